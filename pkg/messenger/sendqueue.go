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

import (
	"container/list"
	"time"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
)

// queuedMessage is one outbound item: an immutable cloned body, its
// enqueue timestamp, and the caller's completion trampoline (spec.md §3,
// "Queued outbound item").
type queuedMessage struct {
	msg        *amqpwire.Message
	enqueuedAt time.Time
	onComplete SendCompleteFunc
	ctx        any

	// completed guards against the trampoline firing twice (it must not,
	// but a defensive collaborator could call back after we've already
	// timed the entry out).
	completed bool
}

// SendCompleteFunc is invoked exactly once per accepted SendAsync call.
type SendCompleteFunc func(err error, ctx any)

// sendQueue is the SQ sub-component (spec.md §4.2): a FIFO of pending
// outbound messages, promoted to "in progress" as the sender accepts them.
type sendQueue struct {
	pending     *list.List // of *queuedMessage
	inProgress  *list.List // of *queuedMessage
	maxEnqueuedTimeSecs uint64
	clock       func() time.Time
}

func newSendQueue(clock func() time.Time) *sendQueue {
	return &sendQueue{
		pending:             list.New(),
		inProgress:          list.New(),
		maxEnqueuedTimeSecs: defaultMaxEnqueuedTimeSecs,
		clock:               clock,
	}
}

func (q *sendQueue) add(msg *amqpwire.Message, onComplete SendCompleteFunc, ctx any) {
	q.pending.PushBack(&queuedMessage{
		msg:        msg,
		enqueuedAt: q.clock(),
		onComplete: onComplete,
		ctx:        ctx,
	})
}

func (q *sendQueue) isEmpty() bool {
	return q.pending.Len() == 0 && q.inProgress.Len() == 0
}

// depth returns the total number of pending-plus-in-progress entries,
// exposed via Messenger.Stats() for metrics.
func (q *sendQueue) depth() int {
	return q.pending.Len() + q.inProgress.Len()
}

func (q *sendQueue) setMaxEnqueuedTimeSecs(secs uint64) {
	q.maxEnqueuedTimeSecs = secs
}

// doWork promotes the pending head to in-progress and hands it to send
// whenever the sender is ready and nothing is already in flight. send
// returns an error when the collaborator rejects the message outright
// (spec.md step 5: "on sender rejection, report FailSending").
func (q *sendQueue) doWork(senderReady bool, send func(msg *amqpwire.Message, onDone func(ok bool, sendErr error)) error) {
	if !senderReady || q.inProgress.Len() > 0 {
		return
	}
	front := q.pending.Front()
	if front == nil {
		return
	}
	q.pending.Remove(front)
	qm := front.Value.(*queuedMessage)
	elem := q.inProgress.PushBack(qm)

	err := send(qm.msg, func(ok bool, sendErr error) {
		q.completeInProgress(elem, ok, sendErr)
	})
	if err != nil {
		q.completeInProgress(elem, false, err)
	}
}

func (q *sendQueue) completeInProgress(elem *list.Element, ok bool, sendErr error) {
	qm, isQueued := elem.Value.(*queuedMessage)
	if !isQueued || qm.completed {
		return
	}
	// elem may already have been spliced out by moveAllBackToPending or a
	// timeout sweep; only remove it from inProgress if it is still there.
	if elem.Value != nil && q.listContains(q.inProgress, elem) {
		q.inProgress.Remove(elem)
	}
	qm.completed = true
	if ok {
		qm.onComplete(nil, qm.ctx)
		return
	}
	if sendErr == nil {
		sendErr = ErrSendFailed
	}
	qm.onComplete(sendErr, qm.ctx)
}

func (q *sendQueue) listContains(l *list.List, target *list.Element) bool {
	for e := l.Front(); e != nil; e = e.Next() {
		if e == target {
			return true
		}
	}
	return false
}

// sweepTimeouts fails every entry (pending or in-progress) whose enqueue
// age exceeds the configured limit.
func (q *sendQueue) sweepTimeouts(now time.Time) {
	limit := time.Duration(q.maxEnqueuedTimeSecs) * time.Second
	q.sweepList(q.pending, now, limit)
	q.sweepList(q.inProgress, now, limit)
}

func (q *sendQueue) sweepList(l *list.List, now time.Time, limit time.Duration) {
	var next *list.Element
	for e := l.Front(); e != nil; e = next {
		next = e.Next()
		qm := e.Value.(*queuedMessage)
		if qm.completed {
			continue
		}
		if now.Sub(qm.enqueuedAt) > limit {
			l.Remove(e)
			qm.completed = true
			qm.onComplete(ErrTimeout, qm.ctx)
		}
	}
}

// moveAllBackToPending prepends every in-progress entry to the front of
// pending, in original order, then clears in-progress (spec.md §4.2 and
// the "stop" ordering guarantee in §5).
func (q *sendQueue) moveAllBackToPending() {
	if q.inProgress.Len() == 0 {
		return
	}
	merged := list.New()
	merged.PushBackList(q.inProgress)
	merged.PushBackList(q.pending)
	q.inProgress.Init()
	q.pending = merged
}

// cancelAll fails every remaining entry with the given reason, used by
// Destroy (spec.md §5: "on destroy, all queued ... are cancelled").
func (q *sendQueue) cancelAll(reason error) {
	q.cancelList(q.pending, reason)
	q.cancelList(q.inProgress, reason)
	q.pending.Init()
	q.inProgress.Init()
}

func (q *sendQueue) cancelList(l *list.List, reason error) {
	for e := l.Front(); e != nil; e = e.Next() {
		qm := e.Value.(*queuedMessage)
		if qm.completed {
			continue
		}
		qm.completed = true
		qm.onComplete(reason, qm.ctx)
	}
}
