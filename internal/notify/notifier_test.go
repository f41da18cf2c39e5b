package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/ikkim/coach-portal-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_PasswordReset(t *testing.T) {
	subject, body, err := Render(TemplatePasswordReset, map[string]string{
		"name": "Dana",
		"link": "https://coach.example/en/auth/reset-password?token=abc&email=dana%40example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "Reset your password", subject)
	assert.Contains(t, body, "Hi Dana,")
	assert.Contains(t, body, "token=abc")
}

func TestRender_EscapesPayload(t *testing.T) {
	_, body, err := Render(TemplatePasswordReset, map[string]string{
		"name": "<script>alert(1)</script>",
		"link": "https://coach.example/reset",
	})

	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, err := Render("welcome", nil)
	assert.Error(t, err)
}

func TestLogNotifier_Send(t *testing.T) {
	n := NewLogNotifier()

	assert.NoError(t, n.Send(context.Background(), "dana@example.com", TemplatePasswordReset, map[string]string{"link": "x"}))
	assert.True(t, errors.Is(n.Send(context.Background(), "dana@example.com", "missing", nil), ErrDeliveryFailed))
}

func newTestSMTPNotifier(send sendMailFunc) *SMTPNotifier {
	n := NewSMTPNotifier(&config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer@example.com",
		Password: "secret",
	}, 200*time.Millisecond)
	n.sendMail = send
	return n
}

func TestSMTPNotifier_Send(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := newTestSMTPNotifier(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	})

	err := n.Send(context.Background(), "dana@example.com", TemplatePasswordReset, map[string]string{
		"link": "https://coach.example/reset",
	})

	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "mailer@example.com", gotFrom, "falls back to the username")
	assert.Equal(t, []string{"dana@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(string(gotMsg), "From: mailer@example.com\r\nTo: dana@example.com\r\n"))
	assert.Contains(t, string(gotMsg), "Subject: Reset your password\r\n")
}

func TestSMTPNotifier_SendFailure(t *testing.T) {
	n := newTestSMTPNotifier(func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("550 mailbox unavailable")
	})

	err := n.Send(context.Background(), "dana@example.com", TemplatePasswordReset, map[string]string{"link": "x"})

	assert.True(t, errors.Is(err, ErrDeliveryFailed))
}

func TestSMTPNotifier_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	n := newTestSMTPNotifier(func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	})

	start := time.Now()
	err := n.Send(context.Background(), "dana@example.com", TemplatePasswordReset, map[string]string{"link": "x"})

	assert.True(t, errors.Is(err, ErrDeliveryFailed))
	assert.Less(t, time.Since(start), 2*time.Second)
}
