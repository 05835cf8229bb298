// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package video

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/domain"
)

// WebhookVerifier validates provider webhook deliveries: the api key header
// must match the configured key and the signature header must be the hex
// HMAC-SHA256 of the raw body keyed by the api secret.
type WebhookVerifier struct {
	apiKey string
	secret []byte
}

var _ domain.WebhookVerifier = (*WebhookVerifier)(nil)

// NewWebhookVerifier creates a verifier for the given credentials.
func NewWebhookVerifier(apiKey, apiSecret string) *WebhookVerifier {
	return &WebhookVerifier{apiKey: apiKey, secret: []byte(apiSecret)}
}

// Sign returns the signature the provider would send for body.
func (v *WebhookVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify implements domain.WebhookVerifier.
func (v *WebhookVerifier) Verify(body []byte, signature, apiKey string) error {
	if len(v.secret) == 0 || v.apiKey == "" {
		return domain.NewUnavailableError("webhook credentials not configured")
	}
	if !hmac.Equal([]byte(apiKey), []byte(v.apiKey)) {
		return domain.ErrInvalidSignature
	}
	expected := v.Sign(body)
	if !hmac.Equal([]byte(strings.ToLower(strings.TrimSpace(signature))), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}
