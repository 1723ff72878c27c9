package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"useraccount/internal/entity"
	"useraccount/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	MaxPhotoSize     = 2 << 20
)

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type UserService struct {
	users    repository.UserRepository
	photos   PhotoStorage
	clock    Clock
	activity activity
}

func NewUserService(
	users repository.UserRepository,
	audits repository.AuditLogRepository,
	photos PhotoStorage,
	events EventPublisher,
	clock Clock,
	logger logrus.FieldLogger,
) *UserService {
	return &UserService{
		users:    users,
		photos:   photos,
		clock:    clock,
		activity: newActivity(audits, events, logger),
	}
}

func (s *UserService) GetUser(ctx context.Context, id string) (*entity.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidInput
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns one page of accounts. Missing paging values fall back to
// page 1 of 10, oversized limits are clamped to 100.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) (*UserPage, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	page := input.Page
	if page <= 0 {
		page = 1
	}
	if page-1 > math.MaxInt/limit {
		return nil, ErrInvalidInput
	}

	sortBy := strings.ToLower(strings.TrimSpace(input.SortBy))
	if sortBy == "" {
		sortBy = "created_at"
	}
	if _, ok := repository.SortableColumns[sortBy]; !ok {
		return nil, ErrInvalidInput
	}

	var desc bool
	switch strings.ToLower(strings.TrimSpace(input.Sort)) {
	case "", "desc":
		desc = true
	case "asc":
		desc = false
	default:
		return nil, ErrInvalidInput
	}

	users, total, err := s.users.List(ctx, repository.ListParams{
		Limit:  limit,
		Offset: (page - 1) * limit,
		SortBy: sortBy,
		Desc:   desc,
		Search: strings.TrimSpace(input.Search),
	})
	if err != nil {
		return nil, internalError(err)
	}

	return &UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*entity.User, error) {
	existing, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, internalError(err)
	}
	if existing == nil {
		return nil, ErrUserNotFound
	}

	changes := repository.ProfileChanges{
		Name:        trimmed(input.Name),
		Gender:      trimmed(input.Gender),
		BirthDate:   input.BirthDate,
		Address:     trimmed(input.Address),
		PhoneNumber: trimmed(input.PhoneNumber),
		UpdatedAt:   s.now(),
	}

	if input.Photo != nil {
		if err := validatePhoto(input.Photo); err != nil {
			return nil, err
		}
		if s.photos == nil {
			return nil, internalError(errors.New("photo storage not configured"))
		}
		path, err := s.photos.Save(ctx, input.Photo.Filename, input.Photo.ContentType, input.Photo.Body, input.Photo.Size)
		if err != nil {
			return nil, internalError(err)
		}
		changes.PhotoPath = &path
	}

	if err := s.users.UpdateProfile(ctx, id, changes); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalError(err)
	}

	s.activity.audit(ctx, &id, input.IPAddress, entity.AuditAccountUpdated, map[string]any{"photo": changes.PhotoPath != nil})

	updated, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, internalError(err)
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}
	return updated, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID, ipAddress *string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return internalError(err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return internalError(err)
	}

	now := s.now()
	// the row is gone, so the id goes into metadata instead of the foreign key
	s.activity.audit(ctx, nil, ipAddress, entity.AuditAccountDeleted, map[string]any{"accountId": id.String()})
	s.activity.publish(ctx, SubjectUserDeleted, user, now)
	return nil
}

// RoleOf reports the stored role of an account.
func (s *UserService) RoleOf(ctx context.Context, id uuid.UUID) (entity.UserRole, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return "", internalError(err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	return user.RoleID, nil
}

func validatePhoto(photo *PhotoUpload) error {
	if photo.Body == nil || photo.Size <= 0 || photo.Size > MaxPhotoSize {
		return ErrInvalidPhoto
	}
	contentType := strings.ToLower(strings.TrimSpace(photo.ContentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if !allowedPhotoTypes[contentType] {
		return ErrInvalidPhoto
	}
	photo.ContentType = contentType
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}

func (s *UserService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}
