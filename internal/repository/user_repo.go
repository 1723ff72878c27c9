package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"useraccount/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// likeEscaper makes user input match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context, params ListParams) ([]entity.User, int64, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListParams selects one page of accounts. SortBy must be one of the
// SortableColumns keys.
type ListParams struct {
	Limit  int
	Offset int
	SortBy string
	Desc   bool
	Search string
}

var SortableColumns = map[string]string{
	"created_at": "created_at",
	"name":       "name",
	"email":      "email",
}

// ProfileChanges carries the mutable profile fields. Nil fields are left as
// they are.
type ProfileChanges struct {
	Name        *string
	Gender      *string
	BirthDate   *time.Time
	Address     *string
	PhoneNumber *string
	PhotoPath   *string
	UpdatedAt   time.Time
}

func (c ProfileChanges) columns() map[string]any {
	values := map[string]any{"updated_at": c.UpdatedAt}
	if c.Name != nil {
		values["name"] = *c.Name
	}
	if c.Gender != nil {
		values["gender"] = *c.Gender
	}
	if c.BirthDate != nil {
		values["birth_date"] = *c.BirthDate
	}
	if c.Address != nil {
		values["address"] = *c.Address
	}
	if c.PhoneNumber != nil {
		values["phone_number"] = *c.PhoneNumber
	}
	if c.PhotoPath != nil {
		values["photo"] = *c.PhotoPath
	}
	return values
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, params ListParams) ([]entity.User, int64, error) {
	filtered := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&entity.User{})
		if params.Search != "" {
			query = query.Where(`name ILIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(params.Search)+"%")
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := SortableColumns[params.SortBy]
	if !ok {
		column = "created_at"
	}
	query := filtered().
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: params.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: params.Desc})
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}

	var users []entity.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges) error {
	result := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Updates(changes.columns())
	return affected(result)
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"password": hash, "updated_at": at})
	return affected(result)
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"email_verified": true, "updated_at": at})
	return affected(result)
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.User{})
	return affected(result)
}

func affected(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
