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
	amqpgo "github.com/Azure/go-amqp"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"
)

func toAMQPProperties(props map[string]string) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func toAMQPSenderSettleMode(mode amqpwire.SenderSettleMode) *amqpgo.SenderSettleMode {
	var m amqpgo.SenderSettleMode
	switch mode {
	case amqpwire.SenderSettleModeSettled:
		m = amqpgo.SenderSettleModeSettled
	case amqpwire.SenderSettleModeMixed:
		m = amqpgo.SenderSettleModeMixed
	default:
		m = amqpgo.SenderSettleModeUnsettled
	}
	return &m
}

func toAMQPReceiverSettleMode(mode amqpwire.ReceiverSettleMode) *amqpgo.ReceiverSettleMode {
	var m amqpgo.ReceiverSettleMode
	if mode == amqpwire.ReceiverSettleModeSecond {
		m = amqpgo.ReceiverSettleModeSecond
	} else {
		m = amqpgo.ReceiverSettleModeFirst
	}
	return &m
}

// toAMQPMessage builds a wire-level message from the core's envelope. The
// correlation-id is carried in the properties section as an AMQP string
// (spec.md §6); annotations become message-annotations, symbol-keyed.
func toAMQPMessage(msg *amqpwire.Message) *amqpgo.Message {
	out := &amqpgo.Message{Data: [][]byte{msg.Body}}
	if msg.CorrelationID != "" {
		out.Properties = &amqpgo.MessageProperties{CorrelationID: msg.CorrelationID}
	}
	if len(msg.Annotations) > 0 {
		ann := make(amqpgo.Annotations, len(msg.Annotations))
		for k, v := range msg.Annotations {
			ann[k] = v
		}
		out.Annotations = ann
	}
	return out
}

// fromAMQPMessage is toAMQPMessage's inverse for inbound deliveries. This
// adapter folds both message-annotations and application-properties into
// the single flat Annotations map amqpwire.Message exposes, since the
// core's abstraction does not distinguish the two (status/version on twin
// responses arrive as application-properties in the real protocol; see
// DESIGN.md).
func fromAMQPMessage(msg *amqpgo.Message) *amqpwire.Message {
	out := &amqpwire.Message{}
	if len(msg.Data) > 0 {
		out.Body = msg.Data[0]
	}
	if msg.Properties != nil {
		if id, ok := msg.Properties.CorrelationID.(string); ok {
			out.CorrelationID = id
		}
	}
	if len(msg.Annotations) > 0 || len(msg.ApplicationProperties) > 0 {
		out.Annotations = make(map[string]any, len(msg.Annotations)+len(msg.ApplicationProperties))
		for k, v := range msg.Annotations {
			if ks, ok := k.(string); ok {
				out.Annotations[ks] = v
			}
		}
		for k, v := range msg.ApplicationProperties {
			out.Annotations[k] = v
		}
	}
	return out
}
