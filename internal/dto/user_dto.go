package dto

import (
	"time"

	"useraccount/internal/entity"
)

const DateLayout = "2006-01-02"

type ListUsersQuery struct {
	Limit  int    `query:"limit" validate:"omitempty,min=1"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Sort   string `query:"sort" validate:"omitempty,oneof=asc desc"`
	SortBy string `query:"sortBy" validate:"omitempty,oneof=created_at name email"`
	Search string `query:"search" validate:"omitempty,max=100"`
}

// UpdateUserRequest holds the editable profile fields. A nil field was not
// supplied by the client.
type UpdateUserRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Gender      *string `json:"gender" validate:"omitempty,max=20"`
	BirthDate   *string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Address     *string `json:"address" validate:"omitempty,max=255"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=32"`
}

type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	PhoneNumber   string     `json:"phoneNumber"`
	Name          string     `json:"name"`
	Gender        string     `json:"gender"`
	BirthDate     string     `json:"birthDate,omitempty"`
	Address       string     `json:"address"`
	Photo         string     `json:"photo"`
	EmailVerified bool       `json:"emailVerified"`
	RoleID        string     `json:"roleId,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	Limit       int   `json:"limit"`
	TotalData   int64 `json:"totalData"`
	TotalPage   int   `json:"totalPage"`
}

// UserResponseFromEntity never copies the password hash. Role and timestamps
// are left out when the entity has them cleared.
func UserResponseFromEntity(user *entity.User) UserResponse {
	response := UserResponse{
		ID:            user.ID.String(),
		Email:         user.Email,
		PhoneNumber:   user.PhoneNumber,
		Name:          user.Name,
		Gender:        user.Gender,
		Address:       user.Address,
		Photo:         user.PhotoPath,
		EmailVerified: user.EmailVerified,
		RoleID:        string(user.RoleID),
	}
	if user.BirthDate != nil {
		response.BirthDate = user.BirthDate.Format(DateLayout)
	}
	if !user.CreatedAt.IsZero() {
		createdAt := user.CreatedAt
		response.CreatedAt = &createdAt
	}
	if !user.UpdatedAt.IsZero() {
		updatedAt := user.UpdatedAt
		response.UpdatedAt = &updatedAt
	}
	return response
}

func UserResponsesFromEntities(users []entity.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, UserResponseFromEntity(&users[i]))
	}
	return responses
}
