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
	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire/fake"
)

func testConfig() Config {
	return Config{
		ClientVersion: "test/1.0",
		DeviceID:      "device-1",
		HostFQDN:      "hub.example.net",
		SendLink:      LinkConfig{AddressSuffix: "messages/events"},
		RecvLink:      LinkConfig{AddressSuffix: "messages/devicebound"},
	}
}

// startAndOpen creates an AM, starts it against a fresh fake session, and
// ticks until the sender link reports OPEN, returning both for further
// driving.
func startAndOpen(t *testing.T) (*Messenger, *fake.Session) {
	t.Helper()
	m, err := New(testConfig())
	require.NoError(t, err)

	session := fake.NewSession()
	require.NoError(t, m.Start(session))
	m.DoWork()

	require.Len(t, session.Senders, 1)
	session.Senders[0].SetState(amqpwire.LinkOpen)
	m.DoWork()
	require.Equal(t, StateStarted, m.State())
	return m, session
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStart_RequiresStopped(t *testing.T) {
	m, _ := startAndOpen(t)
	err := m.Start(fake.NewSession())
	assert.ErrorIs(t, err, ErrBadState)
}

func TestStart_RequiresSession(t *testing.T) {
	m, err := New(testConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, m.Start(nil), ErrInvalidArgument)
}

func TestDoWork_SenderOpen_TransitionsToStarted(t *testing.T) {
	m, session := startAndOpen(t)
	assert.Equal(t, StateStarted, m.State())
	assert.Equal(t, amqpwire.LinkOpen, session.Senders[0].State())
}

func TestDoWork_SenderError_TransitionsAMToError(t *testing.T) {
	m, err := New(testConfig())
	require.NoError(t, err)
	session := fake.NewSession()
	require.NoError(t, m.Start(session))
	m.DoWork()
	require.Len(t, session.Senders, 1)

	session.Senders[0].SetState(amqpwire.LinkError)
	m.DoWork()

	assert.Equal(t, StateError, m.State())
}

func TestDoWork_SenderStuckOpening_TimesOutToError(t *testing.T) {
	m, err := New(testConfig())
	require.NoError(t, err)
	session := fake.NewSession()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.clock = func() time.Time { return now }
	m.queue.clock = m.clock

	require.NoError(t, m.Start(session))
	m.DoWork()

	session.Senders[0].SetState(amqpwire.LinkOpening)
	m.DoWork()
	assert.Equal(t, StateStarting, m.State())

	now = now.Add(301 * time.Second)
	m.DoWork()
	assert.Equal(t, StateError, m.State())
}

func TestSendAsync_DeliversOnAutoCompletingSender(t *testing.T) {
	m, session := startAndOpen(t)

	var gotErr error
	var gotCtx any
	done := make(chan struct{})
	require.NoError(t, m.SendAsync([]byte("hello"), func(err error, ctx any) {
		gotErr = err
		gotCtx = ctx
		close(done)
	}, "ctx-1"))

	session.Senders[0].AutoComplete = true
	m.DoWork()

	<-done
	assert.NoError(t, gotErr)
	assert.Equal(t, "ctx-1", gotCtx)
	require.Len(t, session.Senders[0].Sent, 1)
	assert.Equal(t, []byte("hello"), session.Senders[0].Sent[0].Body)
}

func TestSendAsync_SynchronousRejectionIncrementsConsecutiveErrors(t *testing.T) {
	m, session := startAndOpen(t)

	for i := 0; i < defaultMaxSendErrorCount; i++ {
		errCh := make(chan error, 1)
		session.Senders[0].RejectNextSend = true
		require.NoError(t, m.SendAsync([]byte("x"), func(err error, ctx any) { errCh <- err }, nil))
		m.DoWork()
		err := <-errCh
		assert.Error(t, err)
	}

	assert.Equal(t, StateError, m.State())
}

func TestSendAsync_TimesOutAfterMaxEnqueuedSecs(t *testing.T) {
	m, err := New(testConfig())
	require.NoError(t, err)
	session := fake.NewSession()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.clock = func() time.Time { return now }
	m.queue.clock = m.clock

	require.NoError(t, m.Start(session))
	m.DoWork()
	session.Senders[0].SetState(amqpwire.LinkOpen)
	m.DoWork()

	session.Senders[0].AutoComplete = false
	var gotErr error
	require.NoError(t, m.SendAsync([]byte("slow"), func(err error, ctx any) { gotErr = err }, nil))
	m.DoWork()

	now = now.Add(601 * time.Second)
	m.DoWork()

	assert.ErrorIs(t, gotErr, ErrTimeout)
}

func TestSendStatus_ReflectsQueueOccupancy(t *testing.T) {
	m, session := startAndOpen(t)
	assert.Equal(t, SendStatusIdle, m.SendStatus())

	session.Senders[0].AutoComplete = false
	require.NoError(t, m.SendAsync([]byte("x"), func(err error, ctx any) {}, nil))
	assert.Equal(t, SendStatusBusy, m.SendStatus())

	m.DoWork()
	session.Senders[0].CompleteNext(true, nil)
	assert.Equal(t, SendStatusIdle, m.SendStatus())
}

func TestSubscribeForMessages_CreatesReceiverAndDispatches(t *testing.T) {
	m, session := startAndOpen(t)

	var gotBody []byte
	require.NoError(t, m.SubscribeForMessages(func(msg *amqpwire.Message, d Disposition) amqpwire.DispositionOutcome {
		gotBody = msg.Body
		return amqpwire.DispositionAccepted
	}, nil))

	m.DoWork()
	require.Len(t, session.Receivers, 1)
	session.Receivers[0].SetState(amqpwire.LinkOpen)
	m.DoWork()

	tag := session.Receivers[0].Deliver(&amqpwire.Message{Body: []byte("payload")})
	assert.Equal(t, []byte("payload"), gotBody)
	assert.Equal(t, amqpwire.DispositionAccepted, session.Receivers[0].Dispositions[tag])
}

func TestUnsubscribeForMessages_TearsDownReceiver(t *testing.T) {
	m, session := startAndOpen(t)
	require.NoError(t, m.SubscribeForMessages(func(msg *amqpwire.Message, d Disposition) amqpwire.DispositionOutcome {
		return amqpwire.DispositionAccepted
	}, nil))
	m.DoWork()
	require.Len(t, session.Receivers, 1)

	m.UnsubscribeForMessages()
	m.DoWork()

	assert.Nil(t, m.receiver)
}

func TestSendMessageDisposition_NoReceiver(t *testing.T) {
	m, _ := startAndOpen(t)
	err := m.SendMessageDisposition(Disposition{deliveryTag: 1}, amqpwire.DispositionAccepted)
	assert.ErrorIs(t, err, ErrNoReceiver)
}

func TestSendMessageDisposition_AlreadySettled(t *testing.T) {
	m, session := startAndOpen(t)
	require.NoError(t, m.SubscribeForMessages(func(msg *amqpwire.Message, d Disposition) amqpwire.DispositionOutcome {
		return amqpwire.DispositionNone
	}, nil))
	m.DoWork()
	session.Receivers[0].SetState(amqpwire.LinkOpen)
	m.DoWork()

	tag := session.Receivers[0].Deliver(&amqpwire.Message{Body: []byte("x")})
	d := Disposition{deliveryTag: tag, linkName: session.Receivers[0].Name()}

	require.NoError(t, m.SendMessageDisposition(d, amqpwire.DispositionAccepted))
	err := m.SendMessageDisposition(d, amqpwire.DispositionAccepted)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestStop_RequeuesInProgressPreservingOrder(t *testing.T) {
	m, session := startAndOpen(t)
	session.Senders[0].AutoComplete = false

	require.NoError(t, m.SendAsync([]byte("first"), func(err error, ctx any) {}, nil))
	m.DoWork() // promotes "first" to in-progress
	require.NoError(t, m.SendAsync([]byte("second"), func(err error, ctx any) {}, nil))

	require.NoError(t, m.Stop())
	assert.Equal(t, StateStopped, m.State())

	front := m.queue.pending.Front()
	require.NotNil(t, front)
	assert.Equal(t, []byte("first"), front.Value.(*queuedMessage).msg.Body)
	second := front.Next()
	require.NotNil(t, second)
	assert.Equal(t, []byte("second"), second.Value.(*queuedMessage).msg.Body)
}

func TestDestroy_CancelsQueuedSends(t *testing.T) {
	m, session := startAndOpen(t)
	session.Senders[0].AutoComplete = false

	var gotErr error
	require.NoError(t, m.SendAsync([]byte("x"), func(err error, ctx any) { gotErr = err }, nil))

	m.Destroy()

	assert.ErrorIs(t, gotErr, ErrMessengerDestroyed)
	assert.Equal(t, StateStopped, m.State())
}

func TestDestroy_IsIdempotent(t *testing.T) {
	m, _ := startAndOpen(t)
	m.Destroy()
	assert.NotPanics(t, func() { m.Destroy() })
}

func TestSetOption_SendTimeoutSecs(t *testing.T) {
	m, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, m.SetOption(OptionSendTimeoutSecs, 42))
	assert.EqualValues(t, 42, m.queue.maxEnqueuedTimeSecs)
}

func TestSetOption_RejectsUnknownName(t *testing.T) {
	m, err := New(testConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, m.SetOption("not_a_real_option", 1), ErrInvalidArgument)
}

func TestRetrieveOptions_RoundTrips(t *testing.T) {
	m, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, m.SetOption(OptionSendTimeoutSecs, 99))

	opts := m.RetrieveOptions()

	m2, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, m2.SetOption(optionMessageQueueOptions, opts[optionMessageQueueOptions]))
	assert.EqualValues(t, 99, m2.queue.maxEnqueuedTimeSecs)
}
