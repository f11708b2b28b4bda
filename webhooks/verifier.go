package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// HMACVerifier authenticates raw request bytes against a shared secret
// using HMAC-SHA256 rendered as lowercase hex. The comparison is constant
// time; a mismatch, a malformed signature, and a missing signature are all
// plain verification failures, never panics.
type HMACVerifier struct {
	Secret string
	// Prefix is stripped from the signature header value before decoding,
	// for providers that send values like "sha256=<hex>".
	Prefix string
}

func NewHMACVerifier(secret string) HMACVerifier {
	return HMACVerifier{Secret: strings.TrimSpace(secret)}
}

// Verify checks the signature over body. Body must be the exact bytes
// received on the wire; a signature computed over re-serialized JSON will
// not match.
func (v HMACVerifier) Verify(_ context.Context, body []byte, signature string) error {
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhooks: signature secret is required")
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), strings.TrimSpace(v.Prefix))
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("webhooks: signature value is required")
	}

	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("webhooks: decode hex signature: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return fmt.Errorf("webhooks: signature verification failed")
	}
	return nil
}

// Sign computes the lowercase hex HMAC-SHA256 signature for body. Clients
// and tests use it to produce valid webhook requests.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
