package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Encryption string
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends mail through a plain SMTP relay.
type SMTPNotifier struct {
	from   string
	dialer mailDialer
	logger logrus.FieldLogger
}

func NewSMTPNotifier(cfg SMTPConfig, logger logrus.FieldLogger) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return nil, fmt.Errorf("smtp host, port and sender must be configured")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	switch strings.ToLower(cfg.Encryption) {
	case "ssl":
		dialer.SSL = true
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	case "tls", "starttls":
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}

	return &SMTPNotifier{from: cfg.From, dialer: dialer, logger: logger}, nil
}

func (n *SMTPNotifier) SendVerification(ctx context.Context, email string, link string) error {
	return n.deliver(ctx, VerificationMessage(email, link))
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, email string, link string) error {
	return n.deliver(ctx, PasswordResetMessage(email, link))
}

func (n *SMTPNotifier) deliver(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	m.AddAlternative("text/plain", msg.Text)

	done := make(chan error, 1)
	go func() {
		done <- n.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("email sending cancelled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
	}

	n.logger.WithField("subject", msg.Subject).Debug("email sent")
	return nil
}
