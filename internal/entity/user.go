package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password;type:text;not null" json:"-"`
	PhoneNumber  string    `gorm:"type:varchar(32)"`

	Name      string     `gorm:"type:varchar(100);index"`
	Gender    string     `gorm:"type:varchar(20)"`
	BirthDate *time.Time `gorm:"type:date"`
	Address   string     `gorm:"type:text"`
	PhotoPath string     `gorm:"column:photo;type:text"`

	EmailVerified bool     `gorm:"not null"`
	RoleID        UserRole `gorm:"column:role_id;type:varchar(20);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
