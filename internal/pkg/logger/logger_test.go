package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactMasksSensitiveKeys(t *testing.T) {
	in := []interface{}{"email", "a@b.c", "webhook_id", "msg_1", "Signature", "v1,abc", "dangling"}
	out := redact(in)

	assert.Equal(t, []interface{}{"email", "[redacted]", "webhook_id", "msg_1", "Signature", "[redacted]", "dangling"}, out)
	assert.Equal(t, "a@b.c", in[1], "input must not be modified")
}

func TestNopLogger(t *testing.T) {
	l := Nop()
	l.With("provider", "payment").Info("applied", "email", "x@y.z")
}
