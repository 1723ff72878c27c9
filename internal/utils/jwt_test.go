package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	now := time.Now()

	tok, expiresAt, err := SignToken(Claims{AccountID: "user-123", Email: "a@example.com", Purpose: PurposeAccess}, secret, "tests", now, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour).Truncate(time.Second).Unix(), expiresAt.Unix())

	claims, err := ParseToken(tok, secret, PurposeAccess, now)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.AccountID)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "tests", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestParseToken_Rejects(t *testing.T) {
	t.Parallel()

	secret := []byte("right-secret")
	now := time.Now()
	valid, _, err := SignToken(Claims{AccountID: "u1", Email: "u1@example.com", Purpose: PurposeRefresh}, secret, "", now, time.Hour)
	require.NoError(t, err)
	expired, _, err := SignToken(Claims{AccountID: "u1", Purpose: PurposeRefresh}, secret, "", now.Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	anonymous, _, err := SignToken(Claims{Purpose: PurposeRefresh}, secret, "", now, time.Hour)
	require.NoError(t, err)

	testCases := []struct {
		name    string
		token   string
		secret  []byte
		purpose TokenPurpose
	}{
		{name: "wrong secret", token: valid, secret: []byte("wrong-secret"), purpose: PurposeRefresh},
		{name: "wrong purpose", token: valid, secret: secret, purpose: PurposeAccess},
		{name: "expired", token: expired, secret: secret, purpose: PurposeRefresh},
		{name: "no account", token: anonymous, secret: secret, purpose: PurposeRefresh},
		{name: "malformed", token: "not.a.jwt", secret: secret, purpose: PurposeRefresh},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseToken(tc.token, tc.secret, tc.purpose, now)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestSignToken_EmptySecret(t *testing.T) {
	t.Parallel()

	_, _, err := SignToken(Claims{AccountID: "u"}, nil, "", time.Now(), time.Minute)
	assert.ErrorIs(t, err, ErrMissingSecret)
}
