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

package goamqp

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqpgo "github.com/Azure/go-amqp"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
)

type sender struct {
	session *Session
	name    string
	cfg     amqpwire.LinkConfig
	mode    amqpwire.SenderSettleMode

	state   int32 // atomic amqpwire.LinkState
	onState amqpwire.StateChangeFunc

	mu    sync.Mutex
	inner *amqpgo.Sender
}

func newSender(s *Session, name string, cfg amqpwire.LinkConfig, mode amqpwire.SenderSettleMode) *sender {
	return &sender{session: s, name: name, cfg: cfg, mode: mode, state: int32(amqpwire.LinkIdle)}
}

func (sd *sender) State() amqpwire.LinkState {
	return amqpwire.LinkState(atomic.LoadInt32(&sd.state))
}

func (sd *sender) OnStateChange(fn amqpwire.StateChangeFunc) { sd.onState = fn }

func (sd *sender) setState(next amqpwire.LinkState) {
	prev := amqpwire.LinkState(atomic.SwapInt32(&sd.state, int32(next)))
	if prev == next || sd.onState == nil {
		return
	}
	fn := sd.onState
	sd.session.enqueue(func() { fn(prev, next) })
}

// Open attaches the link on a background goroutine; State() reports
// LinkOpening until the attach completes or fails.
func (sd *sender) Open() error {
	sd.setState(amqpwire.LinkOpening)
	go sd.attach()
	return nil
}

func (sd *sender) attach() {
	opts := &amqpgo.SenderOptions{
		Name:       sd.name,
		Properties: toAMQPProperties(sd.cfg.Properties),
		SettlementMode: toAMQPSenderSettleMode(sd.mode),
	}
	snd, err := sd.session.inner.NewSender(sd.session.ctx, sd.cfg.Address, opts)
	if err != nil {
		sd.setState(amqpwire.LinkError)
		return
	}
	sd.mu.Lock()
	sd.inner = snd
	sd.mu.Unlock()
	sd.setState(amqpwire.LinkOpen)
}

func (sd *sender) Close() error {
	sd.setState(amqpwire.LinkClosing)
	go func() {
		sd.mu.Lock()
		inner := sd.inner
		sd.mu.Unlock()
		if inner != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = inner.Close(ctx)
			cancel()
		}
		sd.setState(amqpwire.LinkIdle)
	}()
	return nil
}

func (sd *sender) Destroy() {}

// Send hands msg to a background goroutine that performs the blocking
// go-amqp send; onComplete is queued for the next Session.Pump rather than
// invoked directly on the send goroutine.
func (sd *sender) Send(msg *amqpwire.Message, onComplete amqpwire.SendCompleteFunc) error {
	sd.mu.Lock()
	inner := sd.inner
	sd.mu.Unlock()
	if inner == nil {
		return fmt.Errorf("goamqp: sender %q is not attached", sd.name)
	}

	wire := toAMQPMessage(msg)
	go func() {
		err := inner.Send(sd.session.ctx, wire, nil)
		sd.session.enqueue(func() { onComplete(err == nil, err) })
	}()
	return nil
}
