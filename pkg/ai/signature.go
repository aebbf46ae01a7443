package ai

import (
	"crypto/hmac"
	"crypto/sha256"
)

// WebhookHeader carries the shared secret on transcription callbacks
const WebhookHeader = "X-Webhook-Token"

// VerifyWebhookToken compares a callback token against the configured secret
// in constant time. An empty secret disables the check.
func VerifyWebhookToken(secret, token string) bool {
	if secret == "" {
		return true
	}
	if token == "" {
		return false
	}
	a := sha256.Sum256([]byte(secret))
	b := sha256.Sum256([]byte(token))
	return hmac.Equal(a[:], b[:])
}
