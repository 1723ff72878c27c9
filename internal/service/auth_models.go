package service

import (
	"io"
	"time"

	"useraccount/internal/entity"
)

type RegisterInput struct {
	Email       string
	Password    string
	PhoneNumber string
	IPAddress   *string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress *string
}

// LoginResult carries the stripped account and a fresh token pair.
type LoginResult struct {
	User             *entity.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type PasswordResetTicket struct {
	Token     string
	Link      string
	ExpiresAt time.Time
}

type ListUsersInput struct {
	Limit  int
	Page   int
	Sort   string
	SortBy string
	Search string
}

type UserPage struct {
	Users []entity.User
	Total int64
	Page  int
	Limit int
}

func (p *UserPage) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}

type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UpdateProfileInput holds the fields supplied by the caller. Nil means "not
// supplied".
type UpdateProfileInput struct {
	Name        *string
	Gender      *string
	BirthDate   *time.Time
	Address     *string
	PhoneNumber *string
	Photo       *PhotoUpload
	IPAddress   *string
}

type AccountEvent struct {
	AccountID  string    `json:"accountId"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	SubjectUserRegistered = "users.registered"
	SubjectUserVerified   = "users.verified"
	SubjectUserDeleted    = "users.deleted"
)
