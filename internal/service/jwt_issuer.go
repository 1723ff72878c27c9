package service

import (
	"time"

	"useraccount/internal/utils"
)

type JWTTokenIssuer struct {
	Issuer string
	Clock  Clock
}

func (j JWTTokenIssuer) Sign(claims utils.Claims, secret []byte, ttl time.Duration) (string, time.Time, error) {
	return utils.SignToken(claims, secret, j.Issuer, j.now(), ttl)
}

func (j JWTTokenIssuer) Parse(token string, secret []byte, purpose utils.TokenPurpose) (*utils.Claims, error) {
	return utils.ParseToken(token, secret, purpose, j.now())
}

func (j JWTTokenIssuer) now() time.Time {
	if j.Clock == nil {
		return time.Now()
	}
	return j.Clock.Now()
}
