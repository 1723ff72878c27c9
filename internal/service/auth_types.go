package service

import (
	"context"
	"io"
	"time"

	"useraccount/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

// AuthConfig is the process-wide configuration the workflows read. Keys are
// injected here instead of being looked up from the environment.
type AuthConfig struct {
	AccessTokenKey       []byte
	RefreshTokenKey      []byte
	BaseURL              string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	DeliveryTimeout      time.Duration
}

type Notifier interface {
	SendVerification(ctx context.Context, email string, link string) error
	SendPasswordReset(ctx context.Context, email string, link string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash string, password string) bool
}

type TokenIssuer interface {
	Sign(claims utils.Claims, secret []byte, ttl time.Duration) (string, time.Time, error)
	Parse(token string, secret []byte, purpose utils.TokenPurpose) (*utils.Claims, error)
}

type PhotoStorage interface {
	Save(ctx context.Context, filename string, contentType string, body io.Reader, size int64) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

type BcryptPasswordHasher struct {
	Cost int
}

func (h BcryptPasswordHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h BcryptPasswordHasher) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
