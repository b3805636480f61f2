package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruet-portal/portal-backend/internal/logging"
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Send(context.Background(), "a@b", "s", "body"))

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "a@b", last.To)

	r.Err = errors.New("smtp down")
	assert.Error(t, r.Send(context.Background(), "a@b", "s", "body"))
	assert.Len(t, r.Sent, 1)
}

func TestOTPMessageContainsCode(t *testing.T) {
	subject, body := OTPMessage("Istiak", "123456", 10)

	assert.NotEmpty(t, subject)
	assert.Contains(t, body, "123456")
	assert.Contains(t, body, "10 minutes")
}

func TestLogMailerNeverFails(t *testing.T) {
	m := LogMailer{Log: logging.Discard()}
	assert.NoError(t, m.Send(context.Background(), "a@b", "s", "b"))
}
