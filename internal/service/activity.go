package service

import (
	"context"
	"encoding/json"
	"time"

	"useraccount/internal/entity"
	"useraccount/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// activity records audit entries and account events. Both are best-effort:
// failures are logged and never change the outcome of a request.
type activity struct {
	audits repository.AuditLogRepository
	events EventPublisher
	logger logrus.FieldLogger
}

func newActivity(audits repository.AuditLogRepository, events EventPublisher, logger logrus.FieldLogger) activity {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return activity{audits: audits, events: events, logger: logger}
}

func (a activity) audit(
	ctx context.Context,
	userID *uuid.UUID,
	ipAddress *string,
	action entity.AuditAction,
	metadata map[string]any,
) {
	if a.audits == nil {
		return
	}
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			a.logger.WithError(err).WithField("action", action).Warn("audit metadata not encodable")
		} else {
			payload = datatypes.JSON(bytes)
		}
	}

	log := &entity.AuditLog{
		ID:        uuid.New(),
		UserID:    userID,
		IPAddress: ipAddress,
		Action:    action,
		Metadata:  payload,
		CreatedAt: time.Now(),
	}
	if err := a.audits.Log(ctx, log); err != nil {
		a.logger.WithError(err).WithField("action", action).Error("audit log write failed")
	}
}

func (a activity) publish(ctx context.Context, subject string, user *entity.User, at time.Time) {
	if a.events == nil || user == nil {
		return
	}
	event := AccountEvent{AccountID: user.ID.String(), Email: user.Email, OccurredAt: at}
	if err := a.events.Publish(ctx, subject, event); err != nil {
		a.logger.WithError(err).WithField("subject", subject).Error("account event publish failed")
	}
}
