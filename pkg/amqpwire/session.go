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

package amqpwire

// Session is the caller-supplied AMQP transport session the core drives.
// The core never constructs or tears down a Session itself (spec.md §5:
// "the AMQP session is shared input, never mutated by the core except via
// the library's link-create API").
type Session interface {
	// NewSender creates and returns an unattached sender link; the core
	// calls Open on it afterward.
	NewSender(name string, cfg LinkConfig, settleMode SenderSettleMode) (Sender, error)

	// NewReceiver creates and returns an unattached receiver link.
	NewReceiver(name string, cfg LinkConfig, settleMode ReceiverSettleMode) (Receiver, error)
}

// Sender is a single AMQP sender link.
type Sender interface {
	// Open begins attaching the link; state transitions are reported via
	// OnStateChange. Open itself never blocks past frame submission.
	Open() error

	// Close begins detaching the link.
	Close() error

	// Destroy releases any collaborator-owned resources. Destroy is only
	// ever called after Close has produced a terminal state (or the link
	// never reached Open).
	Destroy()

	// State returns the link's last observed state.
	State() LinkState

	// OnStateChange registers the single callback invoked on every state
	// transition. The core registers exactly one callback, at link
	// creation, before calling Open.
	OnStateChange(fn StateChangeFunc)

	// Send hands a single message to the link for transmission. The
	// completion callback fires exactly once, synchronously within a
	// future Tick-equivalent call the collaborator makes on its own
	// schedule, mirroring the uAMQP send-async contract the core is
	// built against. Send itself never blocks.
	Send(msg *Message, onComplete SendCompleteFunc) error
}

// Receiver is a single AMQP receiver link.
type Receiver interface {
	Open() error
	Close() error
	Destroy()
	State() LinkState
	OnStateChange(fn StateChangeFunc)

	// OnReceived registers the single callback invoked once per inbound
	// delivery. The core registers exactly one callback, at link
	// creation, before calling Open.
	OnReceived(fn ReceivedFunc)

	// Name returns the receiver's link name, copied out at disposition
	// time into Disposition (spec.md design note: "the in-place source
	// link name + delivery number tuple must be copied out of the
	// library's borrowed storage at dispatch time").
	Name() string

	// SendDisposition settles a previously-undecided delivery identified
	// by its delivery tag.
	SendDisposition(deliveryTag uint64, outcome DispositionOutcome) error
}

// MessagingSource builds the LinkConfig.Address value for a link whose
// source is the given address (receiver links, and the synthetic
// "<link-name>-source" address sender links attach with).
func MessagingSource(address string) string {
	return address
}

// MessagingTarget builds the LinkConfig.Address value for a link whose
// target is the given address (sender links, and the synthetic
// "<link-name>-target" address receiver links attach with).
func MessagingTarget(address string) string {
	return address
}
