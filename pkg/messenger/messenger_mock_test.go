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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
	"github.com/Azure/iothub-amqp-messenger/pkg/mock/mock_amqpwire"
)

// TestDoWork_SessionRejectsNewSender_TransitionsToError exercises the
// gomock-generated Session double rather than pkg/amqpwire/fake, so that
// a failure returned directly from NewSender (as opposed to a link
// reaching LinkError after attach) is covered too.
func TestDoWork_SessionRejectsNewSender_TransitionsToError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	session := mock_amqpwire.NewMockSession(ctrl)
	session.EXPECT().
		NewSender(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("amqp: no route to host"))

	m, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, m.Start(session))

	m.DoWork()

	assert.Equal(t, StateError, m.State())
	assert.Nil(t, m.sender)
}

// TestSendMessageAsync_SendsThroughMockSender drives a full send via the
// mock sender, asserting the exact *amqpwire.Message handed to Send
// (including correlation-id and annotations) rather than only its body,
// which pkg/amqpwire/fake's Sent slice already covers.
func TestSendMessageAsync_SendsThroughMockSender(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSender := mock_amqpwire.NewMockSender(ctrl)
	mockSender.EXPECT().OnStateChange(gomock.Any())
	mockSender.EXPECT().Open().Return(nil)
	mockSender.EXPECT().State().Return(amqpwire.LinkOpen).AnyTimes()

	var sentMsg *amqpwire.Message
	mockSender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(msg *amqpwire.Message, onComplete amqpwire.SendCompleteFunc) error {
			sentMsg = msg
			onComplete(true, nil)
			return nil
		})

	session := mock_amqpwire.NewMockSession(ctrl)
	session.EXPECT().NewSender(gomock.Any(), gomock.Any(), gomock.Any()).Return(mockSender, nil)

	m, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, m.Start(session))
	m.DoWork() // creates and opens the sender; LinkOpen observed next tick

	var gotErr error
	require.NoError(t, m.SendMessageAsync(&amqpwire.Message{
		Body:          []byte("twin-request"),
		CorrelationID: "corr-1",
		Annotations:   map[string]any{"operation": "GET"},
	}, func(err error, ctx any) { gotErr = err }, nil))

	m.DoWork()

	require.NoError(t, gotErr)
	require.NotNil(t, sentMsg)
	assert.Equal(t, "corr-1", sentMsg.CorrelationID)
	assert.Equal(t, "GET", sentMsg.Annotations["operation"])
}
