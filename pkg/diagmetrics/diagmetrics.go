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

// Package diagmetrics exposes Prometheus instrumentation for the AMQP and
// twin messengers, adapted from the teacher's pkg/prommetrics Server
// interface to this module's AM/TM state machines instead of scaler
// metrics.
package diagmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Azure/iothub-amqp-messenger/pkg/messenger"
	"github.com/Azure/iothub-amqp-messenger/pkg/twin"
)

const labelDeviceID = "device_id"

var (
	sendQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "iothub_amqp",
		Name:      "send_queue_depth",
		Help:      "Number of messages currently queued or in flight in the AMQP messenger's send queue.",
	}, []string{labelDeviceID})

	amStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iothub_amqp",
		Name:      "messenger_state_transitions_total",
		Help:      "Count of AMQP messenger top-level state transitions, by destination state.",
	}, []string{labelDeviceID, "state"})

	sendErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iothub_amqp",
		Name:      "send_errors_total",
		Help:      "Count of failed send completions reported by the AMQP messenger.",
	}, []string{labelDeviceID})

	twinSubscriptionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "iothub_amqp",
		Name:      "twin_subscription_state",
		Help:      "Twin messenger projected state, one gauge set to 1 per device for the current state label.",
	}, []string{labelDeviceID, "state"})

	twinPendingOperations = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "iothub_amqp",
		Name:      "twin_pending_operations",
		Help:      "Number of outstanding PATCH operations in the twin messenger's operations table.",
	}, []string{labelDeviceID})
)

// Server serves /metrics over HTTP, mirroring the teacher's prommetrics.Server
// shape adapted to this module's single-binary harness (no adapter/operator
// split here, so NewServer takes no scaler-specific arguments).
type Server interface {
	Serve(address string) error
}

type server struct{}

// NewServer returns a Server that exposes the registered collectors above
// on the standard promhttp handler.
func NewServer() Server { return &server{} }

func (s *server) Serve(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(address, mux)
}

// RecordSendQueueDepth sets the current send-queue depth gauge for a
// device to the exact pending-plus-in-progress count from
// Messenger.Stats() (or the twin messenger's forwarding Stats()).
func RecordSendQueueDepth(deviceID string, depth int) {
	sendQueueDepth.WithLabelValues(deviceID).Set(float64(depth))
}

// RecordAMStateTransition increments the transition counter for the
// destination state. Called by the host whenever AMStats.State differs
// from the previous tick's snapshot (the embedded AM's OnStateChange sink
// is taken by the twin messenger, so the host compares Stats() snapshots).
func RecordAMStateTransition(deviceID string, state messenger.State) {
	amStateTransitions.WithLabelValues(deviceID, state.String()).Inc()
}

// RecordSendError increments the send-error counter for a device.
func RecordSendError(deviceID string) {
	sendErrorsTotal.WithLabelValues(deviceID).Inc()
}

// RecordTwinState sets the current and clears every other known twin
// state's gauge for the device, so exactly one state reads 1 at a time.
func RecordTwinState(deviceID string, state twin.State) {
	for _, s := range []twin.State{twin.StateStopped, twin.StateStopping, twin.StateStarting, twin.StateStarted, twin.StateError} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		twinSubscriptionState.WithLabelValues(deviceID, s.String()).Set(v)
	}
}

// RecordTwinPendingOperations sets the outstanding-PATCH gauge for a
// device.
func RecordTwinPendingOperations(deviceID string, count int) {
	twinPendingOperations.WithLabelValues(deviceID).Set(float64(count))
}
