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

import "github.com/Azure/iothub-amqp-messenger/pkg/messenger"

// State is the TM's projected top-level state: a direct mirror of the
// embedded AM's state (spec.md §4.3, "projects AM states onto TM states").
// Kept as a distinct tagged type from messenger.State per spec.md §9,
// "State-machine duplication": AM and TM never share a state type.
type State int

const (
	StateStopped State = iota
	StateStopping
	StateStarting
	StateStarted
	StateError
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateStopping:
		return "STOPPING"
	case StateStarting:
		return "STARTING"
	case StateStarted:
		return "STARTED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func projectAMState(s messenger.State) State {
	switch s {
	case messenger.StateStopped:
		return StateStopped
	case messenger.StateStopping:
		return StateStopping
	case messenger.StateStarting:
		return StateStarting
	case messenger.StateStarted:
		return StateStarted
	default:
		return StateError
	}
}

// StateChangeFunc is the TM-level state-change sink signature.
type StateChangeFunc func(previous, current State)
