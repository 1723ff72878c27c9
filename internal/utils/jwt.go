package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingSecret = errors.New("token secret is empty")
)

// TokenPurpose keeps tokens signed with the same key from being accepted in
// place of each other.
type TokenPurpose string

const (
	PurposeAccess        TokenPurpose = "access"
	PurposeRefresh       TokenPurpose = "refresh"
	PurposeEmailVerify   TokenPurpose = "email_verify"
	PurposePasswordReset TokenPurpose = "password_reset"
)

type Claims struct {
	AccountID string       `json:"accountId"`
	Email     string       `json:"email"`
	Purpose   TokenPurpose `json:"purpose"`
	jwt.RegisteredClaims
}

// SignToken fills the registered claims (jti, iss, sub, iat, exp) and signs
// the token with HS256. The returned time is the expiry as encoded in the
// token.
func SignToken(claims Claims, secret []byte, issuer string, issuedAt time.Time, ttl time.Duration) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Subject:   claims.AccountID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

func ParseToken(tokenString string, secret []byte, purpose TokenPurpose, now time.Time) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Purpose != purpose || claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
