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
	"go.uber.org/mock/gomock"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
	"github.com/Azure/iothub-amqp-messenger/pkg/mock/mock_amqpwire"
)

// TestStart_AttachesWithTwinProperties drives the TM's Start against a
// gomock Session, asserting the attach properties carried on the sender
// link (com.microsoft:client-version, com.microsoft:channel-correlation-id,
// com.microsoft:api-version), which the pkg/amqpwire/fake-backed tests
// cannot inspect.
func TestStart_AttachesWithTwinProperties(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSender := mock_amqpwire.NewMockSender(ctrl)
	mockSender.EXPECT().OnStateChange(gomock.Any())
	mockSender.EXPECT().Open().Return(nil)
	mockSender.EXPECT().State().Return(amqpwire.LinkOpen).AnyTimes()
	var sendMsg *amqpwire.Message
	mockSender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(msg *amqpwire.Message, onComplete amqpwire.SendCompleteFunc) error {
			sendMsg = msg
			onComplete(true, nil)
			return nil
		}).AnyTimes()

	mockReceiver := mock_amqpwire.NewMockReceiver(ctrl)
	mockReceiver.EXPECT().OnStateChange(gomock.Any())
	mockReceiver.EXPECT().OnReceived(gomock.Any())
	mockReceiver.EXPECT().Open().Return(nil)
	mockReceiver.EXPECT().State().Return(amqpwire.LinkOpen).AnyTimes()

	session := mock_amqpwire.NewMockSession(ctrl)
	session.EXPECT().
		NewSender(gomock.Any(), gomock.Any(), amqpwire.SenderSettleModeSettled).
		DoAndReturn(func(_ string, cfg amqpwire.LinkConfig, _ amqpwire.SenderSettleMode) (amqpwire.Sender, error) {
			assert.Equal(t, "test/1.0", cfg.Properties[propClientVersion])
			assert.Equal(t, twinAPIVersion, cfg.Properties[propAPIVersion])
			assert.Contains(t, cfg.Properties[propChannelCorrID], "twin:")
			return mockSender, nil
		})
	session.EXPECT().
		NewReceiver(gomock.Any(), gomock.Any(), amqpwire.ReceiverSettleModeFirst).
		Return(mockReceiver, nil)

	tw, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, tw.Start(session))

	tw.DoWork() // creates sender
	tw.DoWork() // observes sender LinkOpen -> Started, creates receiver
	tw.DoWork() // observes receiver LinkOpen

	require.Equal(t, StateStarted, tw.State())

	var result ReportResult
	require.NoError(t, tw.ReportStateAsync([]byte(`{"x":1}`), func(r ReportResult, _ any) { result = r }, nil))
	tw.DoWork()

	require.NotNil(t, sendMsg)
	assert.Equal(t, "PATCH", sendMsg.Annotations[annotationOperation])
	_ = result
}
