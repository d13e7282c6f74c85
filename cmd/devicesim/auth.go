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

package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	amqpgo "github.com/Azure/go-amqp"
	"github.com/Azure/azure-amqp-common-go/v4/auth"
)

// deviceSASTokenProvider implements auth.TokenProvider for a single IoT Hub
// device, generating SAS tokens from the device's symmetric key rather
// than delegating to an external STS.
type deviceSASTokenProvider struct {
	hostFQDN string
	deviceID string
	key      []byte // base64-decoded shared access key
	ttl      time.Duration
}

func newDeviceSASTokenProvider(hostFQDN, deviceID, base64Key string, ttl time.Duration) (*deviceSASTokenProvider, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("devicesim: invalid device key: %w", err)
	}
	return &deviceSASTokenProvider{hostFQDN: hostFQDN, deviceID: deviceID, key: key, ttl: ttl}, nil
}

// GetToken signs audience, the CBS put-token resource URI, with the
// device key, following IoT Hub's SharedAccessSignature scheme.
func (p *deviceSASTokenProvider) GetToken(audience string) (*auth.Token, error) {
	expiry := time.Now().Add(p.ttl).Unix()
	encoded := url.QueryEscape(audience)
	toSign := fmt.Sprintf("%s\n%d", encoded, expiry)

	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(toSign))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	tok := fmt.Sprintf("SharedAccessSignature sr=%s&sig=%s&se=%d", encoded, url.QueryEscape(sig), expiry)
	return &auth.Token{
		TokenType: auth.CBSTokenTypeSAS,
		Token:     tok,
		Expiry:    fmt.Sprintf("%d", expiry),
	}, nil
}

// deviceResourceURI builds the CBS audience for this device's link.
func (p *deviceSASTokenProvider) deviceResourceURI() string {
	return fmt.Sprintf("%s/devices/%s", p.hostFQDN, p.deviceID)
}

// negotiateCBS puts a device-scoped SAS token on the session's $cbs node,
// the standard AMQP claims-based-security handshake IoT Hub requires
// before any other link on the session can attach.
func negotiateCBS(ctx context.Context, session *amqpgo.Session, provider *deviceSASTokenProvider) error {
	audience := provider.deviceResourceURI()
	token, err := provider.GetToken(audience)
	if err != nil {
		return fmt.Errorf("devicesim: generating CBS token: %w", err)
	}

	sender, err := session.NewSender(ctx, "$cbs", &amqpgo.SenderOptions{
		TargetCapabilities: []string{"client-credentials"},
	})
	if err != nil {
		return fmt.Errorf("devicesim: opening $cbs sender: %w", err)
	}
	defer sender.Close(ctx)

	receiver, err := session.NewReceiver(ctx, "$cbs", &amqpgo.ReceiverOptions{
		SourceCapabilities: []string{"client-credentials"},
	})
	if err != nil {
		return fmt.Errorf("devicesim: opening $cbs receiver: %w", err)
	}
	defer receiver.Close(ctx)

	msgID := fmt.Sprintf("devicesim-cbs-%d", time.Now().UnixNano())
	req := &amqpgo.Message{
		Properties: &amqpgo.MessageProperties{
			MessageID: msgID,
			ReplyTo:   "cbs",
		},
		ApplicationProperties: map[string]any{
			"operation": "put-token",
			"type":      string(token.TokenType),
			"name":      audience,
		},
		Data: [][]byte{[]byte(token.Token)},
	}
	if err := sender.Send(ctx, req, nil); err != nil {
		return fmt.Errorf("devicesim: sending CBS put-token: %w", err)
	}

	resp, err := receiver.Receive(ctx, nil)
	if err != nil {
		return fmt.Errorf("devicesim: receiving CBS response: %w", err)
	}
	defer func() { _ = receiver.AcceptMessage(ctx, resp) }()

	if status, ok := resp.ApplicationProperties["status-code"]; ok {
		if code, ok := status.(int32); ok && (code < 200 || code >= 300) {
			return fmt.Errorf("devicesim: CBS put-token rejected, status %d", code)
		}
	}
	return nil
}
