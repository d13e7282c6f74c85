// Generated from this command and then edited:
//
//	mockgen -source=pkg/amqpwire/session.go -package mock_amqpwire
//
// Package mock_amqpwire is a generated GoMock package.

package mock_amqpwire //nolint:revive

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	amqpwire "github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
)

// MockSession is a mock of Session interface.
type MockSession struct {
	ctrl     *gomock.Controller
	recorder *MockSessionMockRecorder
}

// MockSessionMockRecorder is the mock recorder for MockSession.
type MockSessionMockRecorder struct {
	mock *MockSession
}

// NewMockSession creates a new mock instance.
func NewMockSession(ctrl *gomock.Controller) *MockSession {
	mock := &MockSession{ctrl: ctrl}
	mock.recorder = &MockSessionMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSession) EXPECT() *MockSessionMockRecorder {
	return m.recorder
}

// NewSender mocks base method.
func (m *MockSession) NewSender(name string, cfg amqpwire.LinkConfig, mode amqpwire.SenderSettleMode) (amqpwire.Sender, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "NewSender", name, cfg, mode)
	ret0, _ := ret[0].(amqpwire.Sender)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// NewSender indicates an expected call of NewSender.
func (mr *MockSessionMockRecorder) NewSender(name, cfg, mode any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NewSender", reflect.TypeOf((*MockSession)(nil).NewSender), name, cfg, mode)
}

// NewReceiver mocks base method.
func (m *MockSession) NewReceiver(name string, cfg amqpwire.LinkConfig, mode amqpwire.ReceiverSettleMode) (amqpwire.Receiver, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "NewReceiver", name, cfg, mode)
	ret0, _ := ret[0].(amqpwire.Receiver)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// NewReceiver indicates an expected call of NewReceiver.
func (mr *MockSessionMockRecorder) NewReceiver(name, cfg, mode any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NewReceiver", reflect.TypeOf((*MockSession)(nil).NewReceiver), name, cfg, mode)
}

// MockSender is a mock of Sender interface.
type MockSender struct {
	ctrl     *gomock.Controller
	recorder *MockSenderMockRecorder
}

// MockSenderMockRecorder is the mock recorder for MockSender.
type MockSenderMockRecorder struct {
	mock *MockSender
}

// NewMockSender creates a new mock instance.
func NewMockSender(ctrl *gomock.Controller) *MockSender {
	mock := &MockSender{ctrl: ctrl}
	mock.recorder = &MockSenderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSender) EXPECT() *MockSenderMockRecorder {
	return m.recorder
}

// Open mocks base method.
func (m *MockSender) Open() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Open")
	ret0, _ := ret[0].(error)
	return ret0
}

// Open indicates an expected call of Open.
func (mr *MockSenderMockRecorder) Open() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Open", reflect.TypeOf((*MockSender)(nil).Open))
}

// Close mocks base method.
func (m *MockSender) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

// Close indicates an expected call of Close.
func (mr *MockSenderMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockSender)(nil).Close))
}

// Destroy mocks base method.
func (m *MockSender) Destroy() {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Destroy")
}

// Destroy indicates an expected call of Destroy.
func (mr *MockSenderMockRecorder) Destroy() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Destroy", reflect.TypeOf((*MockSender)(nil).Destroy))
}

// State mocks base method.
func (m *MockSender) State() amqpwire.LinkState {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "State")
	ret0, _ := ret[0].(amqpwire.LinkState)
	return ret0
}

// State indicates an expected call of State.
func (mr *MockSenderMockRecorder) State() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "State", reflect.TypeOf((*MockSender)(nil).State))
}

// OnStateChange mocks base method.
func (m *MockSender) OnStateChange(fn amqpwire.StateChangeFunc) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "OnStateChange", fn)
}

// OnStateChange indicates an expected call of OnStateChange.
func (mr *MockSenderMockRecorder) OnStateChange(fn any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnStateChange", reflect.TypeOf((*MockSender)(nil).OnStateChange), fn)
}

// Send mocks base method.
func (m *MockSender) Send(msg *amqpwire.Message, onComplete amqpwire.SendCompleteFunc) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Send", msg, onComplete)
	ret0, _ := ret[0].(error)
	return ret0
}

// Send indicates an expected call of Send.
func (mr *MockSenderMockRecorder) Send(msg, onComplete any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Send", reflect.TypeOf((*MockSender)(nil).Send), msg, onComplete)
}

// MockReceiver is a mock of Receiver interface.
type MockReceiver struct {
	ctrl     *gomock.Controller
	recorder *MockReceiverMockRecorder
}

// MockReceiverMockRecorder is the mock recorder for MockReceiver.
type MockReceiverMockRecorder struct {
	mock *MockReceiver
}

// NewMockReceiver creates a new mock instance.
func NewMockReceiver(ctrl *gomock.Controller) *MockReceiver {
	mock := &MockReceiver{ctrl: ctrl}
	mock.recorder = &MockReceiverMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockReceiver) EXPECT() *MockReceiverMockRecorder {
	return m.recorder
}

// Open mocks base method.
func (m *MockReceiver) Open() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Open")
	ret0, _ := ret[0].(error)
	return ret0
}

// Open indicates an expected call of Open.
func (mr *MockReceiverMockRecorder) Open() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Open", reflect.TypeOf((*MockReceiver)(nil).Open))
}

// Close mocks base method.
func (m *MockReceiver) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

// Close indicates an expected call of Close.
func (mr *MockReceiverMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockReceiver)(nil).Close))
}

// Destroy mocks base method.
func (m *MockReceiver) Destroy() {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Destroy")
}

// Destroy indicates an expected call of Destroy.
func (mr *MockReceiverMockRecorder) Destroy() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Destroy", reflect.TypeOf((*MockReceiver)(nil).Destroy))
}

// State mocks base method.
func (m *MockReceiver) State() amqpwire.LinkState {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "State")
	ret0, _ := ret[0].(amqpwire.LinkState)
	return ret0
}

// State indicates an expected call of State.
func (mr *MockReceiverMockRecorder) State() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "State", reflect.TypeOf((*MockReceiver)(nil).State))
}

// OnStateChange mocks base method.
func (m *MockReceiver) OnStateChange(fn amqpwire.StateChangeFunc) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "OnStateChange", fn)
}

// OnStateChange indicates an expected call of OnStateChange.
func (mr *MockReceiverMockRecorder) OnStateChange(fn any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnStateChange", reflect.TypeOf((*MockReceiver)(nil).OnStateChange), fn)
}

// OnReceived mocks base method.
func (m *MockReceiver) OnReceived(fn amqpwire.ReceivedFunc) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "OnReceived", fn)
}

// OnReceived indicates an expected call of OnReceived.
func (mr *MockReceiverMockRecorder) OnReceived(fn any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnReceived", reflect.TypeOf((*MockReceiver)(nil).OnReceived), fn)
}

// Name mocks base method.
func (m *MockReceiver) Name() string {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Name")
	ret0, _ := ret[0].(string)
	return ret0
}

// Name indicates an expected call of Name.
func (mr *MockReceiverMockRecorder) Name() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Name", reflect.TypeOf((*MockReceiver)(nil).Name))
}

// SendDisposition mocks base method.
func (m *MockReceiver) SendDisposition(deliveryTag uint64, outcome amqpwire.DispositionOutcome) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SendDisposition", deliveryTag, outcome)
	ret0, _ := ret[0].(error)
	return ret0
}

// SendDisposition indicates an expected call of SendDisposition.
func (mr *MockReceiverMockRecorder) SendDisposition(deliveryTag, outcome any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SendDisposition", reflect.TypeOf((*MockReceiver)(nil).SendDisposition), deliveryTag, outcome)
}
