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

import "github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"

// Disposition is the owned copy of an inbound delivery's identity, minted
// when a message is handed to the receive callback and freed when the
// caller settles it via SendMessageDisposition (spec.md §3, "Disposition
// handle"; design note: "the in-place source link name + delivery number
// tuple must be copied out of the library's borrowed storage at dispatch
// time").
type Disposition struct {
	deliveryTag uint64
	linkName    string
}

// DeliveryTag returns the delivery number this handle refers to.
func (d Disposition) DeliveryTag() uint64 { return d.deliveryTag }

// LinkName returns the receiver link name this delivery arrived on.
func (d Disposition) LinkName() string { return d.linkName }

// ReceiveFunc is invoked once per inbound delivery. The returned outcome
// is applied synchronously unless it is DispositionNone, in which case
// the caller must later call Messenger.SendMessageDisposition.
type ReceiveFunc func(msg *amqpwire.Message, d Disposition) amqpwire.DispositionOutcome
