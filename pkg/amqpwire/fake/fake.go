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

// Package fake is an in-memory, single-goroutine simulator of the
// pkg/amqpwire collaborator contract, used by pkg/messenger and pkg/twin
// tests to drive link state transitions and deliveries deterministically
// without a real AMQP broker, the way the source project's own "umock"
// harnesses isolate the AM/TM state machines from the wire library.
package fake

import (
	"fmt"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
)

// Session is a fake amqpwire.Session. Every Sender/Receiver it creates is
// recorded for test assertions.
type Session struct {
	Senders   []*Sender
	Receivers []*Receiver

	// FailNewSender/FailNewReceiver, when set, makes the next NewSender/
	// NewReceiver call return this error instead of creating a link.
	FailNewSender   error
	FailNewReceiver error
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) NewSender(name string, cfg amqpwire.LinkConfig, mode amqpwire.SenderSettleMode) (amqpwire.Sender, error) {
	if s.FailNewSender != nil {
		err := s.FailNewSender
		s.FailNewSender = nil
		return nil, err
	}
	snd := &Sender{name: name, cfg: cfg, settleMode: mode, state: amqpwire.LinkIdle, AutoComplete: true}
	s.Senders = append(s.Senders, snd)
	return snd, nil
}

func (s *Session) NewReceiver(name string, cfg amqpwire.LinkConfig, mode amqpwire.ReceiverSettleMode) (amqpwire.Receiver, error) {
	if s.FailNewReceiver != nil {
		err := s.FailNewReceiver
		s.FailNewReceiver = nil
		return nil, err
	}
	rcv := &Receiver{name: name, cfg: cfg, settleMode: mode, state: amqpwire.LinkIdle}
	s.Receivers = append(s.Receivers, rcv)
	return rcv, nil
}

// pendingSend is one Send call awaiting manual completion when
// AutoComplete is false.
type pendingSend struct {
	msg        *amqpwire.Message
	onComplete amqpwire.SendCompleteFunc
}

// Sender is a fake amqpwire.Sender.
type Sender struct {
	name       string
	cfg        amqpwire.LinkConfig
	settleMode amqpwire.SenderSettleMode
	state      amqpwire.LinkState
	onState    amqpwire.StateChangeFunc

	// AutoComplete, when true (the default), completes every Send
	// immediately and successfully. Set to false and drain Pending/
	// CompleteNext to control completion timing in a test.
	AutoComplete bool

	// Sent records every message handed to Send, in order.
	Sent []*amqpwire.Message

	// RejectNextSend, when true, makes the next Send call return an
	// error instead of accepting the message (spec.md step 5, "sender
	// rejection").
	RejectNextSend bool

	pending []pendingSend

	closed    bool
	destroyed bool
}

func (s *Sender) Open() error {
	s.setState(amqpwire.LinkOpening)
	return nil
}

func (s *Sender) Close() error {
	s.closed = true
	s.setState(amqpwire.LinkClosing)
	return nil
}

func (s *Sender) Destroy() { s.destroyed = true }

func (s *Sender) State() amqpwire.LinkState { return s.state }

func (s *Sender) OnStateChange(fn amqpwire.StateChangeFunc) { s.onState = fn }

func (s *Sender) Send(msg *amqpwire.Message, onComplete amqpwire.SendCompleteFunc) error {
	if s.RejectNextSend {
		s.RejectNextSend = false
		return fmt.Errorf("fake: sender rejected message")
	}
	s.Sent = append(s.Sent, msg)
	if s.AutoComplete {
		onComplete(true, nil)
		return nil
	}
	s.pending = append(s.pending, pendingSend{msg: msg, onComplete: onComplete})
	return nil
}

// CompleteNext completes the oldest undecided Send call.
func (s *Sender) CompleteNext(ok bool, err error) {
	if len(s.pending) == 0 {
		return
	}
	p := s.pending[0]
	s.pending = s.pending[1:]
	p.onComplete(ok, err)
}

// SetState drives the sender into a new reported state, invoking the
// registered StateChangeFunc exactly as a real collaborator would.
func (s *Sender) SetState(next amqpwire.LinkState) { s.setState(next) }

func (s *Sender) setState(next amqpwire.LinkState) {
	if next == s.state {
		return
	}
	prev := s.state
	s.state = next
	if s.onState != nil {
		s.onState(prev, next)
	}
}

// Receiver is a fake amqpwire.Receiver.
type Receiver struct {
	name       string
	cfg        amqpwire.LinkConfig
	settleMode amqpwire.ReceiverSettleMode
	state      amqpwire.LinkState
	onState    amqpwire.StateChangeFunc
	onReceived amqpwire.ReceivedFunc

	nextDeliveryTag uint64

	// Dispositions records every outcome applied, keyed by delivery tag,
	// both synchronous (returned from the callback) and explicit (via
	// SendDisposition).
	Dispositions map[uint64]amqpwire.DispositionOutcome

	closed    bool
	destroyed bool
}

func (r *Receiver) Open() error {
	r.setState(amqpwire.LinkOpening)
	return nil
}

func (r *Receiver) Close() error {
	r.closed = true
	r.setState(amqpwire.LinkClosing)
	return nil
}

func (r *Receiver) Destroy() { r.destroyed = true }

func (r *Receiver) State() amqpwire.LinkState { return r.state }

func (r *Receiver) OnStateChange(fn amqpwire.StateChangeFunc) { r.onState = fn }

func (r *Receiver) OnReceived(fn amqpwire.ReceivedFunc) { r.onReceived = fn }

func (r *Receiver) Name() string { return r.name }

func (r *Receiver) SendDisposition(deliveryTag uint64, outcome amqpwire.DispositionOutcome) error {
	if r.Dispositions == nil {
		r.Dispositions = map[uint64]amqpwire.DispositionOutcome{}
	}
	r.Dispositions[deliveryTag] = outcome
	return nil
}

// SetState drives the receiver into a new reported state.
func (r *Receiver) SetState(next amqpwire.LinkState) { r.setState(next) }

func (r *Receiver) setState(next amqpwire.LinkState) {
	if next == r.state {
		return
	}
	prev := r.state
	r.state = next
	if r.onState != nil {
		r.onState(prev, next)
	}
}

// Deliver simulates one inbound delivery, invoking the registered
// ReceivedFunc and recording whatever outcome it returns (unless the
// outcome is DispositionNone, in which case the test is expected to call
// SendDisposition itself through the AM/TM under test).
func (r *Receiver) Deliver(msg *amqpwire.Message) uint64 {
	r.nextDeliveryTag++
	tag := r.nextDeliveryTag
	if r.onReceived == nil {
		return tag
	}
	outcome := r.onReceived(msg, tag)
	if outcome != amqpwire.DispositionNone {
		_ = r.SendDisposition(tag, outcome)
	}
	return tag
}
