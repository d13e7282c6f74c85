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

import "fmt"

// OptionSendTimeoutSecs is the single recognized AM option name
// (spec.md §6, "amqp_event_send_timeout_secs").
const OptionSendTimeoutSecs = "amqp_event_send_timeout_secs"

// optionMessageQueueOptions is the internal, opaque round-trip blob name
// used by RetrieveOptions/SetOption to ship the send queue's full state
// without the host needing to understand its shape.
const optionMessageQueueOptions = "amqp_message_queue_options"

// Options is the opaque, round-trippable option bag returned by
// RetrieveOptions and accepted (key by key) by SetOption.
type Options map[string]any

// SetOption applies a single recognized option. Unknown option names
// return ErrInvalidArgument, matching the teacher's "fail loud on
// unrecognized input" convention rather than silently ignoring it.
func (m *Messenger) SetOption(name string, value any) error {
	switch name {
	case OptionSendTimeoutSecs:
		secs, ok := toUint(value)
		if !ok {
			return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidArgument, name)
		}
		m.queue.setMaxEnqueuedTimeSecs(secs)
		return nil
	case optionMessageQueueOptions:
		opts, ok := value.(Options)
		if !ok {
			return fmt.Errorf("%w: %s must be Options", ErrInvalidArgument, name)
		}
		if secs, ok := opts[OptionSendTimeoutSecs]; ok {
			return m.SetOption(OptionSendTimeoutSecs, secs)
		}
		return nil
	default:
		return fmt.Errorf("%w: unrecognized option %q", ErrInvalidArgument, name)
	}
}

// RetrieveOptions returns the AM's current options so the host can
// round-trip them into a freshly created instance.
func (m *Messenger) RetrieveOptions() Options {
	return Options{
		optionMessageQueueOptions: Options{
			OptionSendTimeoutSecs: m.queue.maxEnqueuedTimeSecs,
		},
	}
}

func toUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}
