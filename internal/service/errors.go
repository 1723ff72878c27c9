package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidPhoto           = errors.New("photo must be a jpeg, png or webp image of at most 2 MiB")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrEmailAlreadyVerified   = errors.New("email already verified")
	ErrInvalidCredentials     = errors.New("email or password wrong")
	ErrEmailNotVerified       = errors.New("email not verified")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrEmailNotRegistered     = errors.New("email not registered")
	ErrUserNotFound           = errors.New("user not found")
	ErrInternal               = errors.New("internal server error")
)

// internalError keeps the collaborator failure reachable through errors.Is/As
// while classifying it as ErrInternal.
func internalError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
