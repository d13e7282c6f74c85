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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire/fake"
)

func testConfig() Config {
	return Config{
		ClientVersion: "test/1.0",
		DeviceID:      "dev-1",
		HostFQDN:      "h.example",
	}
}

// startTwin creates a TM, starts it against a fresh fake session, and
// ticks until both the sender and the always-on receiver report OPEN.
func startTwin(t *testing.T) (*Twin, *fake.Session) {
	t.Helper()
	tw, err := New(testConfig())
	require.NoError(t, err)

	session := fake.NewSession()
	require.NoError(t, tw.Start(session))
	tw.DoWork()

	require.Len(t, session.Senders, 1)
	session.Senders[0].SetState(amqpwire.LinkOpen)
	tw.DoWork()
	require.Len(t, session.Receivers, 1)
	session.Receivers[0].SetState(amqpwire.LinkOpen)
	tw.DoWork()

	require.Equal(t, StateStarted, tw.State())
	return tw, session
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStart_CreatesSenderAndReachesStarted(t *testing.T) {
	tw, session := startTwin(t)
	assert.NotEmpty(t, session.Senders)
	assert.Equal(t, StateStarted, tw.State())
}

func TestSubscribe_CompleteThenSubscribed(t *testing.T) {
	tw, session := startTwin(t)

	var gotUpdates []Update
	require.NoError(t, tw.Subscribe(func(u Update, ctx any) {
		gotUpdates = append(gotUpdates, u)
	}, nil))

	tw.DoWork() // sends GET, subState -> GettingCompleteProperties
	require.Len(t, session.Senders[0].Sent, 1)
	getMsg := session.Senders[0].Sent[0]
	assert.Equal(t, "GET", getMsg.Annotations[annotationOperation])

	tw.deliverResponse(session, getMsg.CorrelationID, []byte(`{"desired":{}}`), nil)

	require.Len(t, gotUpdates, 1)
	assert.Equal(t, UpdateComplete, gotUpdates[0].Kind)
	assert.Equal(t, []byte(`{"desired":{}}`), gotUpdates[0].Body)
	assert.Equal(t, subSubscribeForUpdates, tw.subState)

	tw.DoWork() // sends PUT
	require.Len(t, session.Senders[0].Sent, 2)
	putMsg := session.Senders[0].Sent[1]
	assert.Equal(t, "PUT", putMsg.Annotations[annotationOperation])

	status := 200
	tw.deliverResponse(session, putMsg.CorrelationID, nil, &status)

	assert.Equal(t, subSubscribed, tw.subState)
}

func TestReportStateAsync_SuccessOnStatusResponse(t *testing.T) {
	tw, session := startTwin(t)

	var result ReportResult
	var gotCtx any
	require.NoError(t, tw.ReportStateAsync([]byte(`{"x":1}`), func(r ReportResult, ctx any) {
		result = r
		gotCtx = ctx
	}, "ctx-1"))

	tw.DoWork()
	require.Len(t, session.Senders[0].Sent, 1)
	patchMsg := session.Senders[0].Sent[0]
	assert.Equal(t, "PATCH", patchMsg.Annotations[annotationOperation])
	assert.Equal(t, []byte(`{"x":1}`), patchMsg.Body)

	status := 204
	tw.deliverResponse(session, patchMsg.CorrelationID, nil, &status)

	assert.Equal(t, ReportSuccess, result.Kind)
	assert.Equal(t, 204, result.StatusCode)
	assert.Equal(t, "ctx-1", gotCtx)
	assert.Zero(t, tw.PendingOperationCount())
}

func TestReportStateAsync_InvalidResponseWithNoStatus(t *testing.T) {
	tw, session := startTwin(t)

	var result ReportResult
	require.NoError(t, tw.ReportStateAsync([]byte("x"), func(r ReportResult, ctx any) { result = r }, nil))
	tw.DoWork()

	patchMsg := session.Senders[0].Sent[0]
	tw.deliverResponse(session, patchMsg.CorrelationID, nil, nil)

	assert.Equal(t, ReportError, result.Kind)
	assert.ErrorIs(t, result.Err, ErrInvalidResponse)
}

func TestDestroy_CancelsPendingPatch(t *testing.T) {
	tw, _ := startTwin(t)

	var result ReportResult
	require.NoError(t, tw.ReportStateAsync([]byte("x"), func(r ReportResult, ctx any) { result = r }, nil))
	tw.DoWork()

	tw.Destroy()

	assert.Equal(t, ReportCancelled, result.Kind)
	assert.ErrorIs(t, result.Err, ErrMessengerDestroyed)
	assert.Zero(t, tw.PendingOperationCount())
}

func TestUnknownCorrelationID_IsDroppedAndAccepted(t *testing.T) {
	_, session := startTwin(t)
	tag := session.Receivers[0].Deliver(&amqpwire.Message{CorrelationID: "does-not-exist"})
	assert.Equal(t, amqpwire.DispositionAccepted, session.Receivers[0].Dispositions[tag])
}

func TestDesiredPropertyDelta_NoCorrelationID(t *testing.T) {
	tw, session := startTwin(t)

	var got Update
	require.NoError(t, tw.Subscribe(func(u Update, ctx any) { got = u }, nil))

	session.Receivers[0].Deliver(&amqpwire.Message{Body: []byte(`{"delta":1}`)})

	assert.Equal(t, UpdatePartial, got.Kind)
	assert.Equal(t, []byte(`{"delta":1}`), got.Body)
}

// deliverResponse is a test helper that delivers an inbound message on the
// TM's receiver with the given correlation-id, body, and optional status
// annotation.
func (tw *Twin) deliverResponse(session *fake.Session, correlationID string, body []byte, status *int) {
	msg := &amqpwire.Message{CorrelationID: correlationID, Body: body}
	if status != nil {
		msg.Annotations = map[string]any{annotationStatus: *status}
	}
	session.Receivers[0].Deliver(msg)
}
