// Package webhook verifies Standard Webhooks signatures (also used by Svix) on the raw
// request body.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
)

const secretPrefix = "whsec_"

// Headers are the three values a sender attaches to every delivery.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

// HeadersFrom reads the webhook-* headers, falling back to the svix-* spelling.
func HeadersFrom(get func(string) string) Headers {
	pick := func(name string) string {
		if v := strings.TrimSpace(get("webhook-" + name)); v != "" {
			return v
		}
		return strings.TrimSpace(get("svix-" + name))
	}
	return Headers{
		ID:        pick("id"),
		Timestamp: pick("timestamp"),
		Signature: pick("signature"),
	}
}

type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier decodes the shared secret. Secrets may carry the whsec_ prefix; a secret
// that is not valid base64 is used as raw bytes.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	s := strings.TrimPrefix(strings.TrimSpace(secret), secretPrefix)
	if s == "" {
		return nil, fmt.Errorf("webhook secret is empty")
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		key = []byte(s)
	}
	return &Verifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

// Verify checks headers and signature against body exactly as received. It must run
// before the body is parsed.
func (v *Verifier) Verify(h Headers, body []byte) error {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return apperror.Authentication("missing webhook signature headers")
	}

	sec, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return apperror.Authentication("invalid webhook timestamp")
	}
	ts := time.Unix(sec, 0)
	now := v.now()
	if v.tolerance > 0 && (now.Sub(ts) > v.tolerance || ts.Sub(now) > v.tolerance) {
		return apperror.Authentication("webhook timestamp outside tolerance")
	}

	expected := v.sign(h.ID, h.Timestamp, body)
	for _, part := range strings.Fields(h.Signature) {
		version, sig, ok := strings.Cut(part, ",")
		if !ok || version != "v1" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return apperror.Authentication("webhook signature mismatch")
}

// Sign produces a signature header value for body. Used by tests and local tooling.
func (v *Verifier) Sign(id string, ts time.Time, body []byte) Headers {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	return Headers{
		ID:        id,
		Timestamp: stamp,
		Signature: "v1," + base64.StdEncoding.EncodeToString(v.sign(id, stamp, body)),
	}
}

func (v *Verifier) sign(id, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}
