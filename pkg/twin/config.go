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

package twin

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/Azure/iothub-amqp-messenger/pkg/messenger"
)

// twinLinkSuffix is the fixed send/receive link suffix for the twin
// messenger, identical in both directions (spec.md §4.3, "Construction").
const twinLinkSuffix = "twin/"

const twinAPIVersion = "2016-11-14"

// attach-property keys sent with both twin links.
const (
	propClientVersion  = "com.microsoft:client-version"
	propChannelCorrID  = "com.microsoft:channel-correlation-id"
	propAPIVersion     = "com.microsoft:api-version"
)

// RetryPolicy bounds the subscription state machine's tolerance for
// consecutive GET/PUT/DELETE failures before TM declares itself
// unrecoverable (supplements spec.md §4.3's "reaches 3" with a
// configurable, documented default matching the spec's literal constant).
type RetryPolicy struct {
	// MaxSubscriptionErrors is the cumulative subscription-error ceiling.
	// Zero means "use the spec's default of 3".
	MaxSubscriptionErrors int
}

func (r RetryPolicy) maxSubscriptionErrors() int {
	if r.MaxSubscriptionErrors <= 0 {
		return 3
	}
	return r.MaxSubscriptionErrors
}

// Config is the TM's configuration: the device identity shared with the
// embedded AM, plus the twin-specific retry policy and logger.
type Config struct {
	ClientVersion string
	DeviceID      string
	HostFQDN      string

	RetryPolicy RetryPolicy

	// OnStateChange is the TM-level state-change sink; may be nil.
	OnStateChange StateChangeFunc

	Logger logr.Logger
}

func (c Config) validate() error {
	switch {
	case c.ClientVersion == "":
		return fmt.Errorf("%w: client_version is required", ErrInvalidConfig)
	case c.DeviceID == "":
		return fmt.Errorf("%w: device_id is required", ErrInvalidConfig)
	case c.HostFQDN == "":
		return fmt.Errorf("%w: host_fqdn is required", ErrInvalidConfig)
	}
	return nil
}

// buildMessengerConfig derives the embedded AM's configuration: fixed
// "twin/" link suffixes in both directions and the three twin
// attach-properties (spec.md §4.3, "Construction").
func (c Config) buildMessengerConfig(channelCorrelationID string, onAMStateChange messenger.StateChangeFunc) messenger.Config {
	props := map[string]string{
		propClientVersion: c.ClientVersion,
		propChannelCorrID: fmt.Sprintf("twin:%s", channelCorrelationID),
		propAPIVersion:    twinAPIVersion,
	}
	return messenger.Config{
		ClientVersion: c.ClientVersion,
		DeviceID:      c.DeviceID,
		HostFQDN:      c.HostFQDN,
		SendLink:      messenger.LinkConfig{AddressSuffix: twinLinkSuffix, Properties: props},
		RecvLink:      messenger.LinkConfig{AddressSuffix: twinLinkSuffix, Properties: props},
		OnStateChange: onAMStateChange,
		Logger:        c.Logger,
	}
}
