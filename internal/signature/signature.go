// Package signature implements the keyed-hash message authentication used on
// both trust boundaries of the service: inbound GitHub webhook deliveries and
// envelopes re-delivered by the task queue. The two boundaries use the same
// signature format but independently configured secrets.
package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"

	"github.com/google/go-github/v73/github"
)

const (
	// WebhookHeader carries GitHub's signature over the webhook body.
	WebhookHeader = "X-Hub-Signature"
	// TaskHeader carries our own signature over a task envelope body.
	TaskHeader = "X-Self-Signature"
)

var (
	// ErrMissingSignature reports an absent signature header while a secret
	// is configured.
	ErrMissingSignature = errors.New("missing signature header")
	// ErrSignatureMismatch reports a signature that does not match the
	// received body bytes.
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Sign computes the HMAC-SHA1 signature of body under secret, in the
// "sha1=<hex>" form GitHub uses for webhook deliveries.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over the exact received body bytes and
// compares it against headerValue in constant time. An empty secret disables
// verification entirely; callers are expected to log that condition loudly
// since it leaves the endpoint unauthenticated.
func Verify(body []byte, headerValue, secret string) error {
	if secret == "" {
		return nil
	}
	if headerValue == "" {
		return ErrMissingSignature
	}
	if err := github.ValidateSignature(headerValue, body, []byte(secret)); err != nil {
		return ErrSignatureMismatch
	}
	return nil
}
