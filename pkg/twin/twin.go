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

// Package twin implements the Twin Messenger (TM): the request/response
// protocol for reporting device properties, fetching the twin document,
// and subscribing to desired-property updates, layered on top of an
// embedded pkg/messenger.Messenger configured with the fixed twin link
// suffixes and attach properties.
package twin

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
	"github.com/Azure/iothub-amqp-messenger/pkg/messenger"
)

// Twin is the TM instance. Like the AM it wraps, it is not safe for
// concurrent use: every method, including DoWork, is intended to be
// called from the host's single event-loop tick.
type Twin struct {
	cfg   Config
	am    *messenger.Messenger
	state State

	subState      subState
	subErrorCount int
	ops           *operationTable

	updateCallback UpdateFunc
	updateCtx      any

	destroyed bool
}

// New validates cfg, builds the embedded AM with twin-specific link
// suffixes and attach properties, and returns a new TM in state Stopped
// (spec.md §4.3, "Construction").
func New(cfg Config) (*Twin, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	t := &Twin{
		cfg:   cfg,
		state: StateStopped,
		ops:   newOperationTable(),
	}

	amCfg := cfg.buildMessengerConfig(uuid.NewString(), t.onAMStateChange)
	am, err := messenger.New(amCfg)
	if err != nil {
		return nil, err
	}
	t.am = am
	if err := t.am.SubscribeForMessages(t.onMessageReceived, nil); err != nil {
		return nil, err
	}
	return t, nil
}

// State returns the TM's current projected state.
func (t *Twin) State() State { return t.state }

// SendStatus is Busy while any PATCH operation is outstanding in the
// operations table, and Idle otherwise (see PendingOperationCount).
func (t *Twin) SendStatus() messenger.SendStatus {
	if t.ops.pendingPatchCount() > 0 {
		return messenger.SendStatusBusy
	}
	return messenger.SendStatusIdle
}

// SetOption forwards verbatim to the embedded AM.
func (t *Twin) SetOption(name string, value any) error { return t.am.SetOption(name, value) }

// RetrieveOptions forwards verbatim to the embedded AM.
func (t *Twin) RetrieveOptions() messenger.Options { return t.am.RetrieveOptions() }

// Stats forwards verbatim to the embedded AM, for pkg/diagmetrics.
func (t *Twin) Stats() messenger.AMStats { return t.am.Stats() }

// PendingOperationCount returns the number of outstanding PATCH operations
// (supplements spec.md §9's second open question: a correct replacement
// for the source's non-advancing get_send_status iterator).
func (t *Twin) PendingOperationCount() int { return t.ops.pendingPatchCount() }

// Start begins attaching the embedded AM's links (spec.md §4.3).
func (t *Twin) Start(session amqpwire.Session) error {
	return t.am.Start(session)
}

// Stop tears down the embedded AM, requeuing in-flight sends (spec.md §5).
// Outstanding twin operations are left in the table: their underlying AM
// send is requeued, not cancelled, and will be retried after the next
// Start.
func (t *Twin) Stop() error {
	return t.am.Stop()
}

// Destroy stops the TM if needed, cancels every outstanding PATCH
// operation with MessengerDestroyed, and resets the subscription state
// machine (spec.md §4.3, "Send-completion coupling").
func (t *Twin) Destroy() {
	if t.destroyed {
		return
	}
	// Cancel the operations table before destroying the embedded AM: AM's
	// own queue cancellation fires each pending send's completion
	// synchronously, and that completion closure also touches t.ops, so
	// PATCH callbacks must see Cancelled/MessengerDestroyed here first
	// rather than a send-failure from the AM teardown underneath it.
	t.ops.cancelAll(ErrMessengerDestroyed)
	t.am.Destroy()
	t.subState = subNotSubscribed
	t.subErrorCount = 0
	t.updateCallback = nil
	t.destroyed = true
}

// ReportStateAsync submits a PATCH request reporting data as the device's
// reported properties (spec.md §4.3). onComplete fires exactly once, with
// Success(status) on a matching response, Error(InvalidResponse) if the
// response carried no status, Error(FailSending) if the underlying send
// failed, or Cancelled(MessengerDestroyed) on destroy.
func (t *Twin) ReportStateAsync(data []byte, onComplete ReportStateFunc, ctx any) error {
	if onComplete == nil {
		return fmt.Errorf("%w: onComplete is required", ErrInvalidArgument)
	}
	corrID := uuid.NewString()
	op := &operation{kind: OpPatch, correlationID: corrID, onComplete: onComplete, ctx: ctx}
	t.ops.insert(op)

	msg := buildRequest(OpPatch, corrID, data)
	err := t.am.SendMessageAsync(msg, func(err error, _ any) {
		if err == nil {
			return
		}
		// The newer source behavior (spec.md §9): a PATCH send failure is
		// surfaced, never swallowed.
		if _, ok := t.ops.remove(corrID); ok {
			onComplete(ReportResult{Kind: ReportError, Err: ErrFailSending}, ctx)
		}
	}, nil)
	if err != nil {
		t.ops.remove(corrID)
		return err
	}
	return nil
}

// Subscribe registers the desired-property update callback and, if the
// subscription state machine is idle, kicks it off toward Subscribed
// (spec.md §4.3, "Subscription state machine").
func (t *Twin) Subscribe(onUpdate UpdateFunc, ctx any) error {
	if onUpdate == nil {
		return fmt.Errorf("%w: onUpdate is required", ErrInvalidArgument)
	}
	t.updateCallback = onUpdate
	t.updateCtx = ctx
	if t.subState == subNotSubscribed {
		t.subState = subGetCompleteProperties
	}
	return nil
}

// Unsubscribe moves a Subscribed TM toward NotSubscribed. It is a no-op
// unless the subscription state machine is currently Subscribed.
func (t *Twin) Unsubscribe() {
	if t.subState == subSubscribed {
		t.subState = subUnsubscribe
	}
}

// DoWork advances the subscription state machine while Started, then
// ticks the embedded AM (spec.md §2, "the host ticks TM.do_work, which
// drives its subscription state machine, then delegates to AM.do_work").
// This ordering matters: a subscription-intent request built by
// tickSubscription must be enqueued before the AM drains its send queue
// for this tick, or it sits unsent for a full extra tick.
func (t *Twin) DoWork() {
	if t.state == StateStarted {
		t.tickSubscription()
	}
	t.am.DoWork()
}

func (t *Twin) setState(next State) {
	if next == t.state {
		return
	}
	prev := t.state
	t.state = next
	t.cfg.Logger.V(1).Info("TM state transition", "previous", prev.String(), "current", next.String())
	if t.cfg.OnStateChange != nil {
		t.cfg.OnStateChange(prev, next)
	}
}

func (t *Twin) onAMStateChange(_, cur messenger.State) {
	t.setState(projectAMState(cur))
}

// onMessageReceived is the AM's ReceiveFunc, dispatching every inbound
// twin message to response correlation or desired-property delivery
// (spec.md §4.3, "Response correlation").
func (t *Twin) onMessageReceived(msg *amqpwire.Message, _ messenger.Disposition) amqpwire.DispositionOutcome {
	return t.handleResponse(msg)
}
