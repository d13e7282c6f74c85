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

// Package messenger implements the AMQP Messenger (AM): the generic
// per-device engine that multiplexes one outbound send queue and one
// optional inbound delivery stream over a single pair of AMQP 1.0 links
// on a caller-supplied session.
package messenger

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
)

// Messenger is the AM instance (spec.md §3, "AM instance"). It is not
// safe for concurrent use: every method, including DoWork, is intended to
// be called from a single host event-loop tick (spec.md §5).
type Messenger struct {
	cfg   Config
	state State

	session amqpwire.Session

	sender       amqpwire.Sender
	senderState  amqpwire.LinkState
	senderSince  time.Time

	receiver        amqpwire.Receiver
	receiverState   amqpwire.LinkState
	receiverSince   time.Time
	receiverOpened  bool


	queue                 *sendQueue
	consecutiveSendErrors int
	lastStateChangeAt     time.Time

	// unsettled tracks delivery tags dispatched with DispositionNone that
	// are still awaiting an explicit SendMessageDisposition call. A
	// Disposition is a plain value (spec.md §3), so settlement must be
	// tracked here rather than on the handle itself.
	unsettled map[uint64]bool

	receiveCallback ReceiveFunc
	receiveCtx      any

	clock func() time.Time

	destroyed bool
}

// New validates cfg, clones it, and returns a new AM in state Stopped
// (spec.md §4.1, "create").
func New(cfg Config) (*Messenger, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cloned := cfg.clone()
	return &Messenger{
		cfg:               cloned,
		state:             StateStopped,
		clock:             time.Now,
		queue:             newSendQueue(time.Now),
		unsettled:         make(map[uint64]bool),
		lastStateChangeAt: time.Now(),
	}, nil
}

// State returns the AM's current top-level state.
func (m *Messenger) State() State { return m.state }

// LastStateChange returns the time of the most recent top-level state
// transition (added per SPEC_FULL.md §4.1, not excluded by any
// Non-goal; sourced from original_source's transport-level diagnostics
// and exposed here for pkg/diagmetrics).
func (m *Messenger) LastStateChange() time.Time { return m.lastStateChangeAt }

// Stats returns a read-only snapshot of the AM's queue depth,
// consecutive-send-error count, and state, for pkg/diagmetrics to
// publish as Prometheus gauges without reaching into AM internals.
func (m *Messenger) Stats() AMStats {
	return AMStats{
		SendQueueDepth:        m.queue.depth(),
		ConsecutiveSendErrors: m.consecutiveSendErrors,
		State:                 m.state,
		LastStateChangeAt:     m.lastStateChangeAt,
	}
}

// SendStatus is Busy iff the send queue is non-empty (spec.md §4.1,
// "get_send_status").
func (m *Messenger) SendStatus() SendStatus {
	if m.queue.isEmpty() {
		return SendStatusIdle
	}
	return SendStatusBusy
}

// Start records the session and begins attaching the sender link on the
// next DoWork tick (spec.md §4.1, "start").
func (m *Messenger) Start(session amqpwire.Session) error {
	if m.state != StateStopped {
		return fmt.Errorf("%w: start requires Stopped, have %s", ErrBadState, m.state)
	}
	if session == nil {
		return fmt.Errorf("%w: start requires a non-nil session", ErrInvalidArgument)
	}
	m.session = session
	m.setState(StateStarting)
	return nil
}

// Stop tears down the sender and receiver, requeues every in-progress
// entry to the front of pending preserving order, and transitions to
// Stopped, or Error if the requeue cannot be completed (spec.md §4.1,
// "stop").
func (m *Messenger) Stop() error {
	if m.state == StateStopped {
		return fmt.Errorf("%w: stop requires a non-Stopped state", ErrBadState)
	}
	m.setState(StateStopping)

	if m.sender != nil {
		m.sender.Close()
		m.sender.Destroy()
		m.sender = nil
		m.senderState = amqpwire.LinkIdle
	}
	if m.receiver != nil {
		m.receiver.Close()
		m.receiver.Destroy()
		m.receiver = nil
		m.receiverState = amqpwire.LinkIdle
		m.receiverOpened = false
	}
	for tag := range m.unsettled {
		delete(m.unsettled, tag)
	}

	m.queue.moveAllBackToPending()
	m.session = nil
	m.setState(StateStopped)
	return nil
}

// SendAsync clones body into a bare message, enqueues it, and returns.
// onComplete fires exactly once, later, with nil on success or one of
// ErrSendFailed, ErrTimeout, ErrMessengerDestroyed (spec.md §4.1,
// "send_async").
func (m *Messenger) SendAsync(body []byte, onComplete SendCompleteFunc, ctx any) error {
	if body == nil {
		return fmt.Errorf("%w: message body is required", ErrInvalidArgument)
	}
	return m.SendMessageAsync(&amqpwire.Message{Body: body}, onComplete, ctx)
}

// SendMessageAsync is SendAsync's full-envelope counterpart: it clones and
// enqueues msg as given, preserving CorrelationID and Annotations. The
// twin messenger (pkg/twin) uses this to send PATCH/GET/PUT/DELETE request
// envelopes, which SendAsync's bare-body form cannot express.
func (m *Messenger) SendMessageAsync(msg *amqpwire.Message, onComplete SendCompleteFunc, ctx any) error {
	if onComplete == nil {
		return fmt.Errorf("%w: onComplete is required", ErrInvalidArgument)
	}
	if msg == nil {
		return fmt.Errorf("%w: message is required", ErrInvalidArgument)
	}
	m.queue.add(msg.Clone(), onComplete, ctx)
	return nil
}

// SubscribeForMessages records the receive callback; the receiver link is
// created lazily on the next DoWork tick while Started (spec.md §4.1,
// "subscribe_for_messages").
func (m *Messenger) SubscribeForMessages(onReceived ReceiveFunc, ctx any) error {
	if onReceived == nil {
		return fmt.Errorf("%w: onReceived is required", ErrInvalidArgument)
	}
	m.receiveCallback = onReceived
	m.receiveCtx = ctx
	return nil
}

// UnsubscribeForMessages clears the receive callback; the receiver link
// is torn down on the next DoWork tick (spec.md §4.1,
// "unsubscribe_for_messages").
func (m *Messenger) UnsubscribeForMessages() {
	m.receiveCallback = nil
	m.receiveCtx = nil
}

// SendMessageDisposition settles a previously undecided delivery
// (spec.md §4.1, "send_message_disposition").
func (m *Messenger) SendMessageDisposition(d Disposition, outcome amqpwire.DispositionOutcome) error {
	if m.receiver == nil {
		return fmt.Errorf("%w", ErrNoReceiver)
	}
	if !m.unsettled[d.deliveryTag] {
		return fmt.Errorf("%w: disposition already settled or unknown", ErrInvalidArgument)
	}
	if outcome == amqpwire.DispositionNone {
		return nil
	}
	if err := m.receiver.SendDisposition(d.deliveryTag, outcome); err != nil {
		return err
	}
	delete(m.unsettled, d.deliveryTag)
	return nil
}

// Destroy stops the AM if needed, cancels every queued send with
// ErrMessengerDestroyed, and releases its configuration (spec.md §4.1,
// "destroy").
func (m *Messenger) Destroy() {
	if m.destroyed {
		return
	}
	if m.state != StateStopped {
		_ = m.Stop()
	}
	m.queue.cancelAll(ErrMessengerDestroyed)
	m.receiveCallback = nil
	m.destroyed = true
}

func (m *Messenger) setState(next State) {
	if next == m.state {
		return
	}
	prev := m.state
	m.state = next
	m.lastStateChangeAt = m.clock()
	m.cfg.Logger.V(1).Info("AM state transition", "previous", prev.String(), "current", next.String())
	if m.cfg.OnStateChange != nil {
		m.cfg.OnStateChange(prev, next)
	}
}

// DoWork advances the AM by one tick: link creation, send-queue service,
// timeout sweep and error-count escalation (spec.md §4.1, "Tick
// semantics").
func (m *Messenger) DoWork() {
	if m.destroyed || m.state == StateStopped || m.state == StateStopping {
		return
	}

	now := m.clock()
	m.observeLinkStates(now)

	switch m.state {
	case StateStarting:
		m.tickStarting(now)
	case StateStarted:
		m.tickStarted(now)
	}

	if m.state == StateStarted || m.state == StateStarting {
		senderReady := m.sender != nil && m.senderState == amqpwire.LinkOpen
		m.queue.doWork(senderReady, m.sendHead)
		m.queue.sweepTimeouts(now)

		if m.consecutiveSendErrors >= defaultMaxSendErrorCount {
			m.setState(StateError)
		}
	}
}

// observeLinkStates applies step 1 of the tick semantics: observe
// reported sender/receiver states and react to the transition table in
// spec.md §4.1.
func (m *Messenger) observeLinkStates(now time.Time) {
	if m.sender != nil {
		cur := m.sender.State()
		if cur != m.senderState {
			m.senderState = cur
			m.senderSince = now
		}
		switch {
		case m.state == StateStarting && cur == amqpwire.LinkOpen:
			m.setState(StateStarted)
		case m.state == StateStarting && (cur == amqpwire.LinkError || cur == amqpwire.LinkClosing):
			m.setState(StateError)
		case m.state == StateStarting && cur == amqpwire.LinkOpening && now.Sub(m.senderSince) > maxSenderStateChangeTimeout:
			m.setState(StateError)
		case m.state == StateStarted && cur != amqpwire.LinkOpen:
			m.setState(StateError)
		}
	}

	if m.receiver != nil {
		cur := m.receiver.State()
		if cur != m.receiverState {
			m.receiverState = cur
			m.receiverSince = now
		}
		if cur == amqpwire.LinkOpen {
			m.receiverOpened = true
		}
		switch {
		case m.state == StateStarted && cur == amqpwire.LinkOpening && now.Sub(m.receiverSince) > maxReceiverStateChangeTimeout:
			m.setState(StateError)
		case m.state == StateStarted && cur == amqpwire.LinkError:
			m.setState(StateError)
		case m.state == StateStarted && cur == amqpwire.LinkIdle && m.receiverOpened:
			// Unexpected IDLE after having been open is a detach the AM
			// did not request.
			m.setState(StateError)
		}
	}
}

func (m *Messenger) tickStarting(now time.Time) {
	if m.sender == nil {
		if err := m.createSender(); err != nil {
			m.cfg.Logger.Error(err, "failed to create sender link")
			m.setState(StateError)
			return
		}
	}
}

func (m *Messenger) tickStarted(now time.Time) {
	switch {
	case m.receiveCallback != nil && m.receiver == nil:
		if err := m.createReceiver(); err != nil {
			// Not fatal by itself; retried next tick (spec.md step 3).
			m.cfg.Logger.V(1).Info("failed to create receiver link, will retry", "error", err.Error())
		}
	case m.receiveCallback == nil && m.receiver != nil:
		m.receiver.Close()
		m.receiver.Destroy()
		m.receiver = nil
		m.receiverState = amqpwire.LinkIdle
		m.receiverOpened = false
	}
}

func (m *Messenger) createSender() error {
	name := fmt.Sprintf("%s-%s-%s", linkSenderPrefix, m.cfg.DeviceID, uuid.NewString())
	cfg := amqpwire.LinkConfig{
		Address:        amqpwire.MessagingTarget(m.cfg.senderTarget()),
		Properties:     m.cfg.SendLink.Properties,
		MaxMessageSize: math.MaxUint64,
	}
	sender, err := m.session.NewSender(name, cfg, amqpwire.SenderSettleModeSettled)
	if err != nil {
		return err
	}
	sender.OnStateChange(func(prev, cur amqpwire.LinkState) {})
	if err := sender.Open(); err != nil {
		return err
	}
	m.sender = sender
	m.senderState = sender.State()
	m.senderSince = m.clock()
	return nil
}

func (m *Messenger) createReceiver() error {
	name := fmt.Sprintf("%s-%s-%s", linkReceiverPrefix, m.cfg.DeviceID, uuid.NewString())
	cfg := amqpwire.LinkConfig{
		Address:        amqpwire.MessagingSource(m.cfg.receiverSource()),
		Properties:     m.cfg.RecvLink.Properties,
		MaxMessageSize: 65536,
	}
	receiver, err := m.session.NewReceiver(name, cfg, amqpwire.ReceiverSettleModeFirst)
	if err != nil {
		return err
	}
	receiver.OnStateChange(func(prev, cur amqpwire.LinkState) {})
	receiver.OnReceived(m.dispatchReceived)
	if err := receiver.Open(); err != nil {
		return err
	}
	m.receiver = receiver
	m.receiverState = receiver.State()
	m.receiverSince = m.clock()
	m.receiverOpened = false
	return nil
}

// dispatchReceived implements the receive path in spec.md §4.1: mint a
// Disposition, invoke the user callback, and map its returned intent onto
// the wire outcome. Disposition-handle allocation in this Go
// implementation cannot itself fail, but the Released-on-failure policy
// from spec.md §7 is preserved for a nil-receiver race.
func (m *Messenger) dispatchReceived(msg *amqpwire.Message, deliveryTag uint64) amqpwire.DispositionOutcome {
	if m.receiver == nil {
		return amqpwire.DispositionReleased
	}
	d := Disposition{deliveryTag: deliveryTag, linkName: m.receiver.Name()}
	if m.receiveCallback == nil {
		return amqpwire.DispositionReleased
	}
	outcome := m.receiveCallback(msg, d)
	if outcome == amqpwire.DispositionNone {
		m.unsettled[deliveryTag] = true
	}
	return outcome
}

func (m *Messenger) sendHead(msg *amqpwire.Message, onDone func(ok bool, sendErr error)) error {
	err := m.sender.Send(msg, func(ok bool, sendErr error) {
		if ok {
			m.consecutiveSendErrors = 0
		} else {
			m.consecutiveSendErrors++
		}
		onDone(ok, sendErr)
	})
	if err != nil {
		m.consecutiveSendErrors++
	}
	return err
}
