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

// Package goamqp adapts github.com/Azure/go-amqp, whose Sender/Receiver
// API blocks on network I/O, onto pkg/amqpwire's non-blocking, tick-polled
// collaborator contract. Attach, send, and receive all happen on
// background goroutines; every callback the core is allowed to observe
// (state changes, send completions, message arrivals) is queued and only
// invoked from the host's own goroutine when it calls Session.Pump,
// preserving the core's single-threaded cooperative model (spec.md §5)
// even though the real library's events originate off that thread.
package goamqp

import (
	"context"
	"sync"

	amqpgo "github.com/Azure/go-amqp"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
)

// Session wraps a github.com/Azure/go-amqp session.
type Session struct {
	inner *amqpgo.Session
	ctx   context.Context

	mu     sync.Mutex
	events []func()
}

// NewSession adapts an already-open go-amqp session. ctx bounds the
// lifetime of every background goroutine this adapter spawns (attach,
// send, and receive loops); cancel it to tear the adapter down.
func NewSession(ctx context.Context, inner *amqpgo.Session) *Session {
	return &Session{inner: inner, ctx: ctx}
}

// Pump invokes, on the calling goroutine, every event queued by a
// background operation since the last call. The host must call this once
// per tick, immediately before messenger.Messenger.DoWork (or
// twin.Twin.DoWork, which calls it transitively) — the core relies on
// state-change and completion callbacks never arriving from a goroutine
// other than its own tick thread.
func (s *Session) Pump() {
	s.mu.Lock()
	pending := s.events
	s.events = nil
	s.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

func (s *Session) enqueue(fn func()) {
	s.mu.Lock()
	s.events = append(s.events, fn)
	s.mu.Unlock()
}

func (s *Session) NewSender(name string, cfg amqpwire.LinkConfig, mode amqpwire.SenderSettleMode) (amqpwire.Sender, error) {
	return newSender(s, name, cfg, mode), nil
}

func (s *Session) NewReceiver(name string, cfg amqpwire.LinkConfig, mode amqpwire.ReceiverSettleMode) (amqpwire.Receiver, error) {
	return newReceiver(s, name, cfg, mode), nil
}
