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

// Command devicesim is a reference host harness for the AMQP Messenger
// and Twin Messenger: it ticks the device twin against a real IoT Hub
// (or any CBS-authenticating AMQP 1.0 endpoint), reporting a synthetic
// property on an interval and logging every desired-property delta it
// receives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqpgo "github.com/Azure/go-amqp"
	"github.com/spf13/pflag"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/Azure/iothub-amqp-messenger/pkg/amqpwire/goamqp"
	"github.com/Azure/iothub-amqp-messenger/pkg/diagmetrics"
	"github.com/Azure/iothub-amqp-messenger/pkg/twin"
	"github.com/Azure/iothub-amqp-messenger/pkg/util"
)

var setupLog = ctrl.Log.WithName("setup")

func main() {
	var hostFQDN, deviceID, deviceKey, clientVersion, metricsAddr string
	var tickInterval time.Duration
	pflag.StringVar(&hostFQDN, "hub-hostname", os.Getenv("IOTHUB_HOSTNAME"), "IoT Hub hostname, e.g. myhub.azure-devices.net")
	pflag.StringVar(&deviceID, "device-id", os.Getenv("IOTHUB_DEVICE_ID"), "Device identity")
	pflag.StringVar(&deviceKey, "device-key", os.Getenv("IOTHUB_DEVICE_KEY"), "Base64 device shared access key")
	pflag.StringVar(&clientVersion, "client-version", "iothub-amqp-messenger/1.0", "Reported com.microsoft:client-version")
	pflag.DurationVar(&tickInterval, "tick-interval", 200*time.Millisecond, "Host event-loop tick period")
	pflag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "Prometheus metrics listen address")
	pflag.Parse()

	devLogging, err := util.ResolveOsEnvBool("DEVICESIM_DEV_LOGGING", true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid DEVICESIM_DEV_LOGGING: %v\n", err)
		os.Exit(1)
	}
	ctrl.SetLogger(zap.New(zap.UseDevMode(devLogging)))

	if err := util.ConfigureMaxProcs(setupLog); err != nil {
		setupLog.Error(err, "failed to configure GOMAXPROCS")
	}
	if v, err := util.ResolveOsEnvInt("DEVICESIM_TICK_MS", 0); err == nil && v > 0 {
		tickInterval = time.Duration(v) * time.Millisecond
	}

	if hostFQDN == "" || deviceID == "" || deviceKey == "" {
		setupLog.Error(fmt.Errorf("missing configuration"), "hub-hostname, device-id and device-key are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsServer := diagmetrics.NewServer()
	go func() {
		if err := metricsServer.Serve(metricsAddr); err != nil {
			setupLog.Error(err, "metrics server exited")
		}
	}()

	conn, err := amqpgo.Dial(ctx, fmt.Sprintf("amqps://%s", hostFQDN), &amqpgo.ConnOptions{
		SASLType: amqpgo.SASLTypeAnonymous(),
	})
	if err != nil {
		setupLog.Error(err, "failed to dial AMQP endpoint")
		os.Exit(1)
	}
	defer conn.Close()

	rawSession, err := conn.NewSession(ctx, nil)
	if err != nil {
		setupLog.Error(err, "failed to open AMQP session")
		os.Exit(1)
	}

	tokenProvider, err := newDeviceSASTokenProvider(hostFQDN, deviceID, deviceKey, time.Hour)
	if err != nil {
		setupLog.Error(err, "failed to build SAS token provider")
		os.Exit(1)
	}
	if err := negotiateCBS(ctx, rawSession, tokenProvider); err != nil {
		setupLog.Error(err, "CBS negotiation failed")
		os.Exit(1)
	}

	session := goamqp.NewSession(ctx, rawSession)

	tw, err := twin.New(twin.Config{
		ClientVersion: clientVersion,
		DeviceID:      deviceID,
		HostFQDN:      hostFQDN,
		Logger:        setupLog,
		OnStateChange: func(prev, cur twin.State) {
			diagmetrics.RecordTwinState(deviceID, cur)
			setupLog.Info("twin state transition", "previous", prev.String(), "current", cur.String())
		},
	})
	if err != nil {
		setupLog.Error(err, "failed to construct twin messenger")
		os.Exit(1)
	}

	if err := tw.Subscribe(func(u twin.Update, _ any) {
		setupLog.Info("desired property update", "kind", u.Kind.String(), "body", string(u.Body))
	}, nil); err != nil {
		setupLog.Error(err, "failed to subscribe for desired properties")
		os.Exit(1)
	}

	if err := tw.Start(session); err != nil {
		setupLog.Error(err, "failed to start twin messenger")
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	reportTicker := time.NewTicker(30 * time.Second)
	defer reportTicker.Stop()

	setupLog.Info("devicesim started", "device", deviceID, "hub", hostFQDN)

	prevStats := tw.Stats()

	for {
		select {
		case <-ticker.C:
			session.Pump()
			tw.DoWork()
			diagmetrics.RecordTwinPendingOperations(deviceID, tw.PendingOperationCount())

			stats := tw.Stats()
			diagmetrics.RecordSendQueueDepth(deviceID, stats.SendQueueDepth)
			if stats.State != prevStats.State {
				diagmetrics.RecordAMStateTransition(deviceID, stats.State)
			}
			if stats.ConsecutiveSendErrors > prevStats.ConsecutiveSendErrors {
				diagmetrics.RecordSendError(deviceID)
			}
			prevStats = stats

		case <-reportTicker.C:
			payload := []byte(fmt.Sprintf(`{"uptimeSeconds":%d}`, int(time.Since(startTime).Seconds())))
			if err := tw.ReportStateAsync(payload, func(r twin.ReportResult, _ any) {
				if r.Kind != twin.ReportSuccess {
					setupLog.Error(r.Err, "reported properties rejected", "kind", r.Kind.String())
				}
			}, nil); err != nil {
				setupLog.Error(err, "failed to submit reported properties")
			}

		case <-sigCh:
			setupLog.Info("shutting down")
			_ = tw.Stop()
			tw.Destroy()
			return
		}
	}
}

var startTime = time.Now()
