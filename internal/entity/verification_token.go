package entity

import (
	"time"

	"github.com/google/uuid"
)

type VerificationType string

const (
	EmailVerify   VerificationType = "email_verify"
	PasswordReset VerificationType = "password_reset"
)

// VerificationToken is the ledger row of a single-use signed token. Only the
// SHA-256 of the token is stored.
type VerificationToken struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	TokenHash string           `gorm:"type:text;not null;uniqueIndex"`
	Type      VerificationType `gorm:"type:varchar(32);not null"`

	ExpiresAt time.Time
	UsedAt    *time.Time

	CreatedAt time.Time
}
