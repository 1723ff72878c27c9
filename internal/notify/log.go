package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes links to the log instead of sending mail. It is meant
// for local development.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func (n LogNotifier) SendVerification(_ context.Context, email string, link string) error {
	n.logger().WithFields(logrus.Fields{"email": email, "link": link}).Info("verification link")
	return nil
}

func (n LogNotifier) SendPasswordReset(_ context.Context, email string, link string) error {
	n.logger().WithFields(logrus.Fields{"email": email, "link": link}).Info("password reset link")
	return nil
}

func (n LogNotifier) logger() logrus.FieldLogger {
	if n.Logger == nil {
		return logrus.StandardLogger()
	}
	return n.Logger
}
