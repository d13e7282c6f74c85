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

// Package amqpwire defines the boundary between the device-side messaging
// core and the AMQP 1.0 library that actually owns the TCP/TLS/SASL
// transport. The core never imports a concrete AMQP client; it drives
// sender and receiver links exclusively through these interfaces.
package amqpwire

// LinkState mirrors the states a sender or receiver link reports to its
// owner across its lifetime.
type LinkState int

const (
	// LinkIdle is the state of a link handle that has not yet been attached.
	LinkIdle LinkState = iota
	LinkOpening
	LinkOpen
	LinkClosing
	LinkError
)

func (s LinkState) String() string {
	switch s {
	case LinkIdle:
		return "IDLE"
	case LinkOpening:
		return "OPENING"
	case LinkOpen:
		return "OPEN"
	case LinkClosing:
		return "CLOSING"
	case LinkError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SenderSettleMode and ReceiverSettleMode mirror the AMQP 1.0 settlement
// negotiation modes relevant to this core: the sender link is always
// attached Settled, the receiver link always First.
type SenderSettleMode int

const (
	SenderSettleModeUnsettled SenderSettleMode = iota
	SenderSettleModeSettled
	SenderSettleModeMixed
)

type ReceiverSettleMode int

const (
	ReceiverSettleModeFirst ReceiverSettleMode = iota
	ReceiverSettleModeSecond
)

// DispositionOutcome is the intent returned by a message-received callback,
// or passed explicitly to SendMessageDisposition.
type DispositionOutcome int

const (
	// DispositionNone means the callback will settle the delivery later,
	// asynchronously, via an explicit disposition call.
	DispositionNone DispositionOutcome = iota
	DispositionAccepted
	DispositionRejected
	DispositionReleased
)

// Message is the wire-level envelope the core exchanges with the
// collaborator library. Body is always an opaque byte slice: this core
// never interprets twin JSON payloads.
type Message struct {
	Body []byte

	// CorrelationID, when non-empty, is encoded as an AMQP string in the
	// message properties, per spec.md's "AMQP string" requirement for
	// twin request/response correlation.
	CorrelationID string

	// Annotations holds symbol-keyed message-annotations, used by the twin
	// messenger for "operation"/"resource" and read back for "status"/
	// "version" on responses.
	Annotations map[string]any
}

// Clone returns a deep copy sufficient for the core's own immutability
// guarantees (queued outbound items own a cloned body).
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	cp := &Message{CorrelationID: m.CorrelationID}
	if m.Body != nil {
		cp.Body = append([]byte(nil), m.Body...)
	}
	if m.Annotations != nil {
		cp.Annotations = make(map[string]any, len(m.Annotations))
		for k, v := range m.Annotations {
			cp.Annotations[k] = v
		}
	}
	return cp
}

// LinkConfig carries the attach-time configuration shared by sender and
// receiver link creation: the service address, optional attach properties,
// and the maximum message size negotiated at attach.
type LinkConfig struct {
	// Address is the fully-qualified amqps:// address; for a sender this
	// becomes the link target, for a receiver the link source.
	Address string

	// Properties is cloned by the caller (messenger.Config.Clone) before
	// reaching here; each key is sent as an AMQP symbol, each value as an
	// AMQP string.
	Properties map[string]string

	MaxMessageSize uint64
}

// StateChangeFunc is invoked by a Sender or Receiver whenever its observed
// LinkState changes. Implementations must invoke it synchronously from
// within Tick/DoWork, never from a background goroutine, preserving the
// core's single-threaded cooperative model (spec.md §5).
type StateChangeFunc func(previous, current LinkState)

// SendCompleteFunc is the per-delivery completion trampoline a Sender
// invokes exactly once per accepted Send call.
type SendCompleteFunc func(ok bool, err error)

// ReceivedFunc is invoked once per inbound delivery; the returned outcome
// is applied synchronously if it is not DispositionNone.
type ReceivedFunc func(msg *Message, deliveryTag uint64) DispositionOutcome
