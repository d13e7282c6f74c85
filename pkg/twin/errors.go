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

import "errors"

var (
	// ErrInvalidConfig is returned by New when a required field is missing.
	ErrInvalidConfig = errors.New("twin: invalid configuration")

	// ErrInvalidArgument covers nil callback/payload arguments to the
	// public entry points.
	ErrInvalidArgument = errors.New("twin: invalid argument")

	// ErrBadState mirrors messenger.ErrBadState for TM-level entry points
	// that require a particular projected state.
	ErrBadState = errors.New("twin: operation invalid in current state")

	// ErrInvalidResponse is the reason surfaced to a report-state
	// completion callback when a PATCH response carries no status code
	// (spec.md §4.3, "boundary behaviors").
	ErrInvalidResponse = errors.New("twin: response carried no status code")

	// ErrFailSending is the reason surfaced to a report-state completion
	// callback when the underlying AM send failed.
	ErrFailSending = errors.New("twin: send failed")

	// ErrMessengerDestroyed is the reason surfaced to every outstanding
	// operation when the TM is destroyed.
	ErrMessengerDestroyed = errors.New("twin: messenger destroyed")
)
