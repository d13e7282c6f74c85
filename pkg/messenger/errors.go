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

import "errors"

var (
	// ErrInvalidConfig is returned by New when a required configuration
	// field is missing.
	ErrInvalidConfig = errors.New("messenger: invalid configuration")

	// ErrBadState is returned when a public operation is called while the
	// AM is not in the state it requires (Start while not Stopped, Stop
	// while Stopped, disposition with no receiver, and similar).
	ErrBadState = errors.New("messenger: operation invalid in current state")

	// ErrNoReceiver is returned by SendMessageDisposition when no
	// receiver link is alive to settle against.
	ErrNoReceiver = errors.New("messenger: no receiver link")

	// ErrSendFailed is the reason surfaced to a send completion callback
	// when the collaborator library rejected or failed a delivery.
	ErrSendFailed = errors.New("messenger: send failed")

	// ErrTimeout is the reason surfaced to a send completion callback
	// when a message's enqueue age exceeded the configured timeout.
	ErrTimeout = errors.New("messenger: send timed out")

	// ErrMessengerDestroyed is the reason surfaced to outstanding send
	// completions when Destroy cancels them.
	ErrMessengerDestroyed = errors.New("messenger: messenger destroyed")

	// ErrInvalidArgument covers nil message/callback arguments to
	// SendAsync and similar entry-point validation failures.
	ErrInvalidArgument = errors.New("messenger: invalid argument")
)
