/*
Copyright 2021 The KEDA Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

		http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package messenger

import (
	"fmt"

	"github.com/go-logr/logr"
)

// LinkConfig describes one direction's attach-time configuration: the
// service-relative address suffix and the attach properties map sent with
// that link's attach frame (spec.md §3, "Link config").
type LinkConfig struct {
	// AddressSuffix is appended to "amqps://<host>/devices/<device-id>/"
	// to build the link's source (receiver) or target (sender) address.
	AddressSuffix string

	// Properties is a symbol-keyed attach-properties map; nil is valid
	// and means no properties are attached.
	Properties map[string]string
}

func (l LinkConfig) clone() LinkConfig {
	cp := LinkConfig{AddressSuffix: l.AddressSuffix}
	if l.Properties != nil {
		cp.Properties = make(map[string]string, len(l.Properties))
		for k, v := range l.Properties {
			cp.Properties[k] = v
		}
	}
	return cp
}

// StateChangeFunc is invoked exactly once per observable AM state change,
// and only when the new state differs from the previous one (spec.md I5).
type StateChangeFunc func(previous, current State)

// Config is the AM's immutable configuration, cloned at New and never
// mutated afterward (spec.md §3: "AM config ... cloned at creation, freed
// at destroy").
type Config struct {
	ClientVersion string
	DeviceID      string
	HostFQDN      string

	// SendLink configures the mandatory sender link (target_suffix in
	// spec.md's vocabulary).
	SendLink LinkConfig

	// RecvLink configures the receiver link created lazily once a
	// receive callback is registered (source_suffix in spec.md's
	// vocabulary).
	RecvLink LinkConfig

	// OnStateChange is the state-change sink; may be nil.
	OnStateChange StateChangeFunc

	// Logger receives structured diagnostics; the zero value is logr's
	// safe no-op logger.
	Logger logr.Logger
}

func (c Config) clone() Config {
	cp := c
	cp.SendLink = c.SendLink.clone()
	cp.RecvLink = c.RecvLink.clone()
	return cp
}

func (c Config) validate() error {
	switch {
	case c.ClientVersion == "":
		return fmt.Errorf("%w: client_version is required", ErrInvalidConfig)
	case c.DeviceID == "":
		return fmt.Errorf("%w: device_id is required", ErrInvalidConfig)
	case c.HostFQDN == "":
		return fmt.Errorf("%w: host_fqdn is required", ErrInvalidConfig)
	case c.RecvLink.AddressSuffix == "":
		return fmt.Errorf("%w: recv_link source_suffix is required", ErrInvalidConfig)
	case c.SendLink.AddressSuffix == "":
		return fmt.Errorf("%w: send_link target_suffix is required", ErrInvalidConfig)
	}
	return nil
}

// senderTarget builds the sender link's target address.
func (c Config) senderTarget() string {
	return fmt.Sprintf("amqps://%s/devices/%s/%s", c.HostFQDN, c.DeviceID, c.SendLink.AddressSuffix)
}

// receiverSource builds the receiver link's source address.
func (c Config) receiverSource() string {
	return fmt.Sprintf("amqps://%s/devices/%s/%s", c.HostFQDN, c.DeviceID, c.RecvLink.AddressSuffix)
}
