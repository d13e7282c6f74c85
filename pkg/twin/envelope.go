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

import "github.com/Azure/iothub-amqp-messenger/pkg/amqpwire"

const (
	annotationOperation = "operation"
	annotationResource  = "resource"
	annotationStatus    = "status"

	resourceReportedProperties = "/properties/reported"
	resourceDesiredProperties  = "/notifications/twin/properties/desired"
)

// buildRequest constructs the outbound envelope for one twin operation
// (spec.md §4.3, "Twin request envelope"). payload is nil for GET/PUT/
// DELETE requests carrying no body, in which case a single space byte is
// sent instead of an empty data section.
func buildRequest(kind OperationKind, correlationID string, payload []byte) *amqpwire.Message {
	msg := &amqpwire.Message{
		CorrelationID: correlationID,
		Annotations:   map[string]any{annotationOperation: kind.String()},
	}
	switch kind {
	case OpPatch:
		msg.Annotations[annotationResource] = resourceReportedProperties
	case OpPut, OpDelete:
		msg.Annotations[annotationResource] = resourceDesiredProperties
	}
	if payload != nil {
		msg.Body = payload
	} else {
		msg.Body = []byte(" ")
	}
	return msg
}

// responseStatusCode extracts the numeric status annotation from a
// response message, if present (spec.md §4.3, "Response correlation").
func responseStatusCode(msg *amqpwire.Message) (int, bool) {
	if msg == nil || msg.Annotations == nil {
		return 0, false
	}
	v, ok := msg.Annotations[annotationStatus]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// is2xx reports whether status falls in the HTTP-style success range used
// by twin PUT/DELETE responses.
func is2xx(status int) bool {
	return status >= 200 && status < 300
}

// hasBody reports whether msg carries a non-empty body. A single-space
// body, like the placeholder sent on bodyless requests, counts as a body.
func hasBody(msg *amqpwire.Message) bool {
	return msg != nil && len(msg.Body) > 0
}
