package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/resend/resend-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

const link = "http://localhost:8080/users/verify-email?token=abc.def.ghi"

func TestMessages(t *testing.T) {
	t.Parallel()

	verify := VerificationMessage("a@example.com", link)
	assert.Equal(t, "a@example.com", verify.To)
	assert.Equal(t, "Verify your email", verify.Subject)
	assert.Contains(t, verify.HTML, link)
	assert.Contains(t, verify.Text, link)

	reset := PasswordResetMessage("a@example.com", "http://x/reset?token=t&x=<y>")
	assert.Contains(t, reset.HTML, "&amp;x=&lt;y&gt;")
	assert.Contains(t, reset.Text, "token=t&x=<y>")
}

func TestResendNotifier_Send(t *testing.T) {
	t.Parallel()

	var captured *resend.SendEmailRequest
	n := &ResendNotifier{
		from: "noreply@example.com",
		send: func(request *resend.SendEmailRequest) error {
			captured = request
			return nil
		},
	}

	require.NoError(t, n.SendPasswordReset(context.Background(), "b@example.com", link))
	require.NotNil(t, captured)
	assert.Equal(t, "noreply@example.com", captured.From)
	assert.Equal(t, []string{"b@example.com"}, captured.To)
	assert.Equal(t, "Reset your password", captured.Subject)
	assert.Contains(t, captured.Html, link)
	assert.Contains(t, captured.Text, link)
}

func TestResendNotifier_Errors(t *testing.T) {
	t.Parallel()

	unconfigured := NewResendNotifier("", "")
	assert.ErrorIs(t, unconfigured.SendVerification(context.Background(), "a@example.com", link), ErrNotConfigured)

	boom := errors.New("boom")
	failing := &ResendNotifier{from: "x@example.com", send: func(*resend.SendEmailRequest) error { return boom }}
	assert.ErrorIs(t, failing.SendVerification(context.Background(), "a@example.com", link), boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	cancelled := &ResendNotifier{from: "x@example.com", send: func(*resend.SendEmailRequest) error { called = true; return nil }}
	assert.ErrorIs(t, cancelled.SendVerification(ctx, "a@example.com", link), context.Canceled)
	assert.False(t, called)
}

type fakeDialer struct {
	sent  []*gomail.Message
	err   error
	delay time.Duration
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestSMTPNotifier(t *testing.T) {
	t.Parallel()
	logger, _ := test.NewNullLogger()

	dialer := &fakeDialer{}
	n := &SMTPNotifier{from: "noreply@example.com", dialer: dialer, logger: logger}

	require.NoError(t, n.SendVerification(context.Background(), "c@example.com", link))
	require.Len(t, dialer.sent, 1)
	assert.Equal(t, []string{"c@example.com"}, dialer.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Verify your email"}, dialer.sent[0].GetHeader("Subject"))

	dialer.err = errors.New("relay down")
	assert.ErrorContains(t, n.SendPasswordReset(context.Background(), "c@example.com", link), "relay down")

	slow := &SMTPNotifier{from: "noreply@example.com", dialer: &fakeDialer{delay: 200 * time.Millisecond}, logger: logger}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, slow.SendVerification(ctx, "c@example.com", link), context.DeadlineExceeded)
}

func TestNewSMTPNotifier_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com"}, nil)
	assert.Error(t, err)

	n, err := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com", Port: 465, From: "x@example.com", Encryption: "ssl"}, nil)
	require.NoError(t, err)
	dialer, ok := n.dialer.(*gomail.Dialer)
	require.True(t, ok)
	assert.True(t, dialer.SSL)
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()
	logger, hook := test.NewNullLogger()

	n := LogNotifier{Logger: logger}
	require.NoError(t, n.SendPasswordReset(context.Background(), "d@example.com", link))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, link, entry.Data["link"])
}
