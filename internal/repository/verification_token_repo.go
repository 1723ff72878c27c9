package repository

import (
	"context"
	"errors"
	"time"

	"useraccount/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationTokenRepository interface {
	Create(ctx context.Context, token *entity.VerificationToken) error
	FindValid(ctx context.Context, tokenHash string, tokenType entity.VerificationType) (*entity.VerificationToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	Release(ctx context.Context, id uuid.UUID) error
}

type verificationTokenRepository struct {
	db *gorm.DB
}

func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &verificationTokenRepository{db: db}
}

func (r *verificationTokenRepository) Create(ctx context.Context, t *entity.VerificationToken) error {
	return r.db.WithContext(ctx).Omit("User").Create(t).Error
}

func (r *verificationTokenRepository) FindValid(
	ctx context.Context,
	tokenHash string,
	tokenType entity.VerificationType,
) (*entity.VerificationToken, error) {

	var token entity.VerificationToken
	err := r.db.WithContext(ctx).
		Where(`
			token_hash = ? AND
			type = ? AND
			used_at IS NULL AND
			expires_at > NOW()
		`, tokenHash, tokenType).
		First(&token).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// MarkUsed only succeeds once per token; a concurrent second consumer gets
// ErrNotFound.
func (r *verificationTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entity.VerificationToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", &at)
	return affected(result)
}

// Release clears used_at so a token consumed by a failed workflow can be
// presented again.
func (r *verificationTokenRepository) Release(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&entity.VerificationToken{}).
		Where("id = ? AND used_at IS NOT NULL", id).
		Update("used_at", nil)
	return affected(result)
}
