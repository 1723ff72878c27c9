package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditRegister               AuditAction = "register"
	AuditLoginSuccess           AuditAction = "login_success"
	AuditLoginFailed            AuditAction = "login_failed"
	AuditEmailVerified          AuditAction = "email_verified"
	AuditPasswordResetRequested AuditAction = "password_reset_requested"
	AuditPasswordReset          AuditAction = "password_reset"
	AuditAccountUpdated         AuditAction = "account_updated"
	AuditAccountDeleted         AuditAction = "account_deleted"
)

type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	// ON DELETE SET NULL: entries outlive deleted accounts
	UserID *uuid.UUID `gorm:"type:uuid;index"`

	IPAddress *string     `gorm:"type:varchar(45)"`
	Action    AuditAction `gorm:"type:varchar(40);not null"`

	Metadata datatypes.JSON

	CreatedAt time.Time
}
