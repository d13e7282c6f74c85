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
	"github.com/google/uuid"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
)

// subState is the nine-state (eight distinct) desired-properties
// subscription state machine (spec.md §4.3, "Subscription state
// machine"). Kept distinct from both messenger.State and twin.State per
// spec.md §9, "State-machine duplication".
type subState int

const (
	subNotSubscribed subState = iota
	subGetCompleteProperties
	subGettingCompleteProperties
	subSubscribeForUpdates
	subSubscribing
	subSubscribed
	subUnsubscribe
	subUnsubscribing
)

// tickSubscription implements one tick of step: for an "intent" state,
// build and send the corresponding request and advance to the matching
// "in-flight" state. Subscribed/NotSubscribed/in-flight states are no-ops
// here; they advance only on a correlated response.
func (t *Twin) tickSubscription() {
	switch t.subState {
	case subGetCompleteProperties:
		t.sendIntentOp(OpGet)
		t.subState = subGettingCompleteProperties
	case subSubscribeForUpdates:
		t.sendIntentOp(OpPut)
		t.subState = subSubscribing
	case subUnsubscribe:
		t.sendIntentOp(OpDelete)
		t.subState = subUnsubscribing
	}
}

// sendIntentOp builds and sends one of the three subscription-intent
// requests (GET/PUT/DELETE), inserting it into the operations table under
// a freshly generated correlation-id.
func (t *Twin) sendIntentOp(kind OperationKind) {
	corrID := uuid.NewString()
	t.ops.insert(&operation{kind: kind, correlationID: corrID})

	msg := buildRequest(kind, corrID, nil)
	_ = t.am.SendMessageAsync(msg, func(err error, _ any) {
		if err == nil {
			return
		}
		if _, ok := t.ops.remove(corrID); ok {
			t.revertSubscriptionIntent(kind)
		}
	}, nil)
}

// revertSubscriptionIntent reverts the subscription state machine back to
// the intent state matching kind and bumps the cumulative error counter,
// used both for send failures and for non-success responses.
func (t *Twin) revertSubscriptionIntent(kind OperationKind) {
	switch kind {
	case OpGet:
		t.subState = subGetCompleteProperties
	case OpPut:
		t.subState = subSubscribeForUpdates
	case OpDelete:
		t.subState = subUnsubscribe
	}
	t.bumpSubscriptionError()
}

func (t *Twin) bumpSubscriptionError() {
	t.subErrorCount++
	if t.subErrorCount >= t.cfg.RetryPolicy.maxSubscriptionErrors() {
		t.setState(StateError)
	}
}

// handleResponse dispatches one inbound twin message: response
// correlation for a known correlation-id, desired-property delta delivery
// for a bodied message with none, or a logged drop for neither (spec.md
// §4.3, "Response correlation").
func (t *Twin) handleResponse(msg *amqpwire.Message) amqpwire.DispositionOutcome {
	if msg == nil {
		return amqpwire.DispositionRejected
	}

	if msg.CorrelationID == "" {
		if hasBody(msg) {
			t.deliverUpdate(Update{Kind: UpdatePartial, Body: msg.Body})
		} else {
			t.cfg.Logger.V(1).Info("dropping twin message with no correlation-id and no body")
		}
		return amqpwire.DispositionAccepted
	}

	op, ok := t.ops.remove(msg.CorrelationID)
	if !ok {
		t.cfg.Logger.V(1).Info("dropping twin response with unknown correlation-id", "correlationID", msg.CorrelationID)
		return amqpwire.DispositionAccepted
	}

	switch op.kind {
	case OpGet:
		t.handleGetResponse(msg)
	case OpPut:
		t.handlePutResponse(msg)
	case OpDelete:
		t.handleDeleteResponse(msg)
	case OpPatch:
		t.handlePatchResponse(op, msg)
	}
	return amqpwire.DispositionAccepted
}

func (t *Twin) handleGetResponse(msg *amqpwire.Message) {
	if hasBody(msg) {
		t.deliverUpdate(Update{Kind: UpdateComplete, Body: msg.Body})
		t.subState = subSubscribeForUpdates
		t.subErrorCount = 0
		return
	}
	t.deliverUpdate(Update{Kind: UpdateComplete, Body: nil})
	t.subState = subGetCompleteProperties
	t.bumpSubscriptionError()
}

func (t *Twin) handlePutResponse(msg *amqpwire.Message) {
	status, _ := responseStatusCode(msg)
	if is2xx(status) {
		t.subState = subSubscribed
		t.subErrorCount = 0
		return
	}
	t.subState = subSubscribeForUpdates
	t.bumpSubscriptionError()
}

func (t *Twin) handleDeleteResponse(msg *amqpwire.Message) {
	status, _ := responseStatusCode(msg)
	if is2xx(status) {
		t.subState = subNotSubscribed
		t.subErrorCount = 0
		return
	}
	t.subState = subUnsubscribe
	t.bumpSubscriptionError()
}

func (t *Twin) handlePatchResponse(op *operation, msg *amqpwire.Message) {
	if op.onComplete == nil {
		return
	}
	status, ok := responseStatusCode(msg)
	if !ok {
		op.onComplete(ReportResult{Kind: ReportError, Err: ErrInvalidResponse}, op.ctx)
		return
	}
	op.onComplete(ReportResult{Kind: ReportSuccess, StatusCode: status}, op.ctx)
}

func (t *Twin) deliverUpdate(u Update) {
	if t.updateCallback != nil {
		t.updateCallback(u, t.updateCtx)
	}
}
