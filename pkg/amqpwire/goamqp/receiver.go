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

// rejectedCondition and rejectedDescription are the literal strings
// spec.md mandates for every application-level rejection (§4.1,
// `send_message_disposition`: `Rejected("Rejected by application",
// "Rejected by application")`). DispositionOutcome carries no
// caller-supplied reason because this core never rejects with anything
// but this fixed pair.
const (
	rejectedCondition   = "Rejected by application"
	rejectedDescription = "Rejected by application"
)

type receiver struct {
	session *Session
	name    string
	cfg     amqpwire.LinkConfig
	mode    amqpwire.ReceiverSettleMode

	state      int32 // atomic amqpwire.LinkState
	onState    amqpwire.StateChangeFunc
	onReceived amqpwire.ReceivedFunc

	mu      sync.Mutex
	inner   *amqpgo.Receiver
	closing chan struct{}

	nextTag  uint64
	inFlight map[uint64]*amqpgo.Message
}

func newReceiver(s *Session, name string, cfg amqpwire.LinkConfig, mode amqpwire.ReceiverSettleMode) *receiver {
	return &receiver{
		session:  s,
		name:     name,
		cfg:      cfg,
		mode:     mode,
		state:    int32(amqpwire.LinkIdle),
		closing:  make(chan struct{}),
		inFlight: make(map[uint64]*amqpgo.Message),
	}
}

func (r *receiver) State() amqpwire.LinkState {
	return amqpwire.LinkState(atomic.LoadInt32(&r.state))
}

func (r *receiver) OnStateChange(fn amqpwire.StateChangeFunc) { r.onState = fn }

func (r *receiver) OnReceived(fn amqpwire.ReceivedFunc) { r.onReceived = fn }

func (r *receiver) Name() string { return r.name }

func (r *receiver) setState(next amqpwire.LinkState) {
	prev := amqpwire.LinkState(atomic.SwapInt32(&r.state, int32(next)))
	if prev == next || r.onState == nil {
		return
	}
	fn := r.onState
	r.session.enqueue(func() { fn(prev, next) })
}

// Open attaches the link and starts the background receive loop.
func (r *receiver) Open() error {
	r.setState(amqpwire.LinkOpening)
	go r.attach()
	return nil
}

func (r *receiver) attach() {
	opts := &amqpgo.ReceiverOptions{
		Name:               r.name,
		Properties:         toAMQPProperties(r.cfg.Properties),
		SettlementMode:     toAMQPReceiverSettleMode(r.mode),
		MaxMessageSize:     r.cfg.MaxMessageSize,
	}
	rcv, err := r.session.inner.NewReceiver(r.session.ctx, r.cfg.Address, opts)
	if err != nil {
		r.setState(amqpwire.LinkError)
		return
	}
	r.mu.Lock()
	r.inner = rcv
	r.mu.Unlock()
	r.setState(amqpwire.LinkOpen)
	go r.receiveLoop(rcv)
}

// receiveLoop blocks on Receive in a tight loop; every arrival is queued
// for the next Session.Pump so the user callback runs on the host's tick
// goroutine, never here.
func (r *receiver) receiveLoop(rcv *amqpgo.Receiver) {
	for {
		msg, err := rcv.Receive(r.session.ctx, nil)
		if err != nil {
			select {
			case <-r.closing:
				return
			default:
				r.setState(amqpwire.LinkError)
				return
			}
		}

		r.mu.Lock()
		r.nextTag++
		tag := r.nextTag
		r.inFlight[tag] = msg
		r.mu.Unlock()

		r.session.enqueue(func() { r.dispatch(tag, msg) })
	}
}

func (r *receiver) dispatch(tag uint64, raw *amqpgo.Message) {
	if r.onReceived == nil {
		return
	}
	outcome := r.onReceived(fromAMQPMessage(raw), tag)
	if outcome != amqpwire.DispositionNone {
		_ = r.SendDisposition(tag, outcome)
	}
}

func (r *receiver) SendDisposition(deliveryTag uint64, outcome amqpwire.DispositionOutcome) error {
	r.mu.Lock()
	inner := r.inner
	raw, ok := r.inFlight[deliveryTag]
	if ok {
		delete(r.inFlight, deliveryTag)
	}
	r.mu.Unlock()
	if !ok || inner == nil {
		return fmt.Errorf("goamqp: unknown delivery tag %d", deliveryTag)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		switch outcome {
		case amqpwire.DispositionAccepted:
			_ = inner.AcceptMessage(ctx, raw)
		case amqpwire.DispositionRejected:
			_ = inner.RejectMessage(ctx, raw, &amqpgo.Error{
				Condition:   amqpgo.ErrorCondition(rejectedCondition),
				Description: rejectedDescription,
			})
		default:
			_ = inner.ReleaseMessage(ctx, raw)
		}
	}()
	return nil
}

func (r *receiver) Close() error {
	close(r.closing)
	r.setState(amqpwire.LinkClosing)
	go func() {
		r.mu.Lock()
		inner := r.inner
		r.mu.Unlock()
		if inner != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = inner.Close(ctx)
			cancel()
		}
		r.setState(amqpwire.LinkIdle)
	}()
	return nil
}

func (r *receiver) Destroy() {}
