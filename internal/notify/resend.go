package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/resend/resend-go"
)

var ErrNotConfigured = errors.New("email sender not configured")

// ResendNotifier sends mail through the Resend API.
type ResendNotifier struct {
	from string
	send func(request *resend.SendEmailRequest) error
}

func NewResendNotifier(apiKey string, from string) *ResendNotifier {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return &ResendNotifier{}
	}
	client := resend.NewClient(apiKey)
	return &ResendNotifier{
		from: from,
		send: func(request *resend.SendEmailRequest) error {
			_, err := client.Emails.Send(request)
			return err
		},
	}
}

func (n *ResendNotifier) SendVerification(ctx context.Context, email string, link string) error {
	return n.deliver(ctx, VerificationMessage(email, link))
}

func (n *ResendNotifier) SendPasswordReset(ctx context.Context, email string, link string) error {
	return n.deliver(ctx, PasswordResetMessage(email, link))
}

func (n *ResendNotifier) deliver(ctx context.Context, msg Message) error {
	if n.send == nil {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.send(&resend.SendEmailRequest{
		From:    n.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
}
