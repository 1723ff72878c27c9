package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"useraccount/internal/dto"
	"useraccount/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(method, target, nil), rec), rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWriteServiceError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		err     error
		status  int
		message string
	}{
		{err: service.ErrInvalidInput, status: http.StatusBadRequest, message: "invalid input"},
		{err: service.ErrInvalidPhoto, status: http.StatusBadRequest, message: service.ErrInvalidPhoto.Error()},
		{err: service.ErrInvalidCredentials, status: http.StatusUnauthorized, message: "email or password wrong"},
		{err: service.ErrEmailNotVerified, status: http.StatusUnauthorized, message: "email not verified"},
		{err: service.ErrInvalidToken, status: http.StatusUnauthorized, message: "invalid or expired token"},
		{err: service.ErrEmailAlreadyRegistered, status: http.StatusConflict, message: "email already registered"},
		{err: service.ErrEmailAlreadyVerified, status: http.StatusConflict, message: "email already verified"},
		{err: service.ErrEmailNotRegistered, status: http.StatusNotFound, message: "email not registered"},
		{err: service.ErrUserNotFound, status: http.StatusNotFound, message: "user not found"},
		{err: fmt.Errorf("%w: %w", service.ErrInternal, errors.New("pq: connection refused")), status: http.StatusInternalServerError, message: "internal server error"},
		{err: errors.New("surprise"), status: http.StatusInternalServerError, message: "internal server error"},
	}
	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			logger, _ := test.NewNullLogger()
			c, rec := newContext(http.MethodGet, "/users")

			require.NoError(t, writeServiceError(c, logger, tc.err))
			assert.Equal(t, tc.status, rec.Code)
			env := decodeError(t, rec)
			assert.Equal(t, statusFailed, env.Status)
			assert.Equal(t, tc.status, env.StatusCode)
			assert.Equal(t, tc.message, env.Message)
		})
	}
}

func TestWriteServiceError_LogsInternalCause(t *testing.T) {
	t.Parallel()
	logger, hook := test.NewNullLogger()
	c, rec := newContext(http.MethodPost, "/users/login")

	require.NoError(t, writeServiceError(c, logger, fmt.Errorf("%w: %w", service.ErrInternal, errors.New("db down"))))
	assert.NotContains(t, rec.Body.String(), "db down")
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Data[logrus.ErrorKey].(error).Error(), "db down")
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()
	logger, hook := test.NewNullLogger()
	handle := ErrorHandler(logger)

	c, rec := newContext(http.MethodGet, "/missing")
	handle(echo.ErrNotFound, c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errorEnvelope{Status: statusFailed, StatusCode: http.StatusNotFound, Message: "Not Found"}, decodeError(t, rec))
	assert.Empty(t, hook.Entries)

	c, rec = newContext(http.MethodGet, "/boom")
	handle(errors.New("boom"), c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeError(t, rec).Message)
	assert.Len(t, hook.Entries, 1)

	c, rec = newContext(http.MethodHead, "/missing")
	handle(echo.ErrNotFound, c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestValidateMessages(t *testing.T) {
	t.Parallel()
	v := NewValidator()

	err := validate(v, dto.RegisterRequest{Email: "nope", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, "email must be a valid email; password must be at least 8", err.Error())

	err = validate(v, dto.ResetPasswordRequest{})
	require.Error(t, err)
	assert.Equal(t, "token is required; newPassword is required", err.Error())

	birth := "17-05-1990"
	err = validate(v, dto.UpdateUserRequest{BirthDate: &birth})
	require.Error(t, err)
	assert.Equal(t, "birthDate must use the YYYY-MM-DD format", err.Error())

	assert.NoError(t, validate(v, dto.LoginRequest{Email: "a@example.com", Password: "x"}))
	assert.NoError(t, validate(nil, dto.LoginRequest{}))
}

func TestStringPtr(t *testing.T) {
	t.Parallel()
	assert.Nil(t, stringPtr("   "))
	require.NotNil(t, stringPtr("x"))
	assert.Equal(t, "x", *stringPtr("x"))
}
