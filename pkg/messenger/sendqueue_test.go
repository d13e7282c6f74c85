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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
)

func TestSendQueue_DoWork_RespectsFIFOAndInFlightLimit(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := newSendQueue(func() time.Time { return now })

	var sent [][]byte
	var pendingDone func(ok bool, err error)
	send := func(msg *amqpwire.Message, onDone func(ok bool, sendErr error)) error {
		sent = append(sent, msg.Body)
		pendingDone = onDone
		return nil
	}

	q.add(&amqpwire.Message{Body: []byte("a")}, func(err error, ctx any) {}, nil)
	q.add(&amqpwire.Message{Body: []byte("b")}, func(err error, ctx any) {}, nil)

	q.doWork(true, send)
	assert.Equal(t, [][]byte{[]byte("a")}, sent)

	// second doWork call is a no-op: one item already in flight.
	q.doWork(true, send)
	assert.Len(t, sent, 1)

	pendingDone(true, nil)
	q.doWork(true, send)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, sent)
}

func TestSendQueue_DoWork_SenderNotReady(t *testing.T) {
	q := newSendQueue(time.Now)
	q.add(&amqpwire.Message{Body: []byte("a")}, func(err error, ctx any) {}, nil)

	called := false
	q.doWork(false, func(msg *amqpwire.Message, onDone func(ok bool, sendErr error)) error {
		called = true
		return nil
	})
	assert.False(t, called)
}

func TestSendQueue_DoWork_SynchronousSendFailure(t *testing.T) {
	q := newSendQueue(time.Now)

	var gotErr error
	q.add(&amqpwire.Message{Body: []byte("a")}, func(err error, ctx any) { gotErr = err }, nil)

	q.doWork(true, func(msg *amqpwire.Message, onDone func(ok bool, sendErr error)) error {
		return assert.AnError
	})

	assert.Equal(t, assert.AnError, gotErr)
	assert.True(t, q.isEmpty())
}

func TestSendQueue_SweepTimeouts(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &now
	q := newSendQueue(func() time.Time { return *clock })
	q.setMaxEnqueuedTimeSecs(10)

	var gotErr error
	q.add(&amqpwire.Message{Body: []byte("a")}, func(err error, ctx any) { gotErr = err }, nil)

	*clock = clock.Add(5 * time.Second)
	q.sweepTimeouts(*clock)
	assert.NoError(t, gotErr)

	*clock = clock.Add(6 * time.Second)
	q.sweepTimeouts(*clock)
	assert.ErrorIs(t, gotErr, ErrTimeout)
	assert.True(t, q.isEmpty())
}

func TestSendQueue_MoveAllBackToPending_PreservesOrder(t *testing.T) {
	q := newSendQueue(time.Now)
	var pendingDone func(ok bool, err error)
	send := func(msg *amqpwire.Message, onDone func(ok bool, sendErr error)) error {
		pendingDone = onDone
		return nil
	}

	q.add(&amqpwire.Message{Body: []byte("first")}, func(err error, ctx any) {}, nil)
	q.doWork(true, send) // "first" now in-progress
	require.NotNil(t, pendingDone)

	q.add(&amqpwire.Message{Body: []byte("second")}, func(err error, ctx any) {}, nil)

	q.moveAllBackToPending()

	front := q.pending.Front()
	require.NotNil(t, front)
	assert.Equal(t, []byte("first"), front.Value.(*queuedMessage).msg.Body)
	second := front.Next()
	require.NotNil(t, second)
	assert.Equal(t, []byte("second"), second.Value.(*queuedMessage).msg.Body)
	assert.Equal(t, 0, q.inProgress.Len())
}

func TestSendQueue_CancelAll(t *testing.T) {
	q := newSendQueue(time.Now)

	var errs []error
	q.add(&amqpwire.Message{Body: []byte("a")}, func(err error, ctx any) { errs = append(errs, err) }, nil)
	q.add(&amqpwire.Message{Body: []byte("b")}, func(err error, ctx any) { errs = append(errs, err) }, nil)

	q.cancelAll(ErrMessengerDestroyed)

	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrMessengerDestroyed)
	}
	assert.True(t, q.isEmpty())
}

func TestSendQueue_IsEmpty(t *testing.T) {
	q := newSendQueue(time.Now)
	assert.True(t, q.isEmpty())
	q.add(&amqpwire.Message{Body: []byte("a")}, func(err error, ctx any) {}, nil)
	assert.False(t, q.isEmpty())
}
