// Package memory holds process-local implementations of the repository
// interfaces. It backs STORE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"useraccount/internal/entity"
	"useraccount/internal/repository"

	"github.com/google/uuid"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]entity.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]entity.User)}
}

func (r *UserRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if _, ok := r.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) List(_ context.Context, params repository.ListParams) ([]entity.User, int64, error) {
	r.mu.RLock()
	matched := make([]entity.User, 0, len(r.users))
	search := strings.ToLower(params.Search)
	for _, user := range r.users {
		if search != "" && !strings.Contains(strings.ToLower(user.Name), search) {
			continue
		}
		matched = append(matched, user)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if params.Desc {
			a, b = b, a
		}
		if lessBy(params.SortBy, a, b) {
			return true
		}
		if lessBy(params.SortBy, b, a) {
			return false
		}
		// equal sort keys fall back to the id so pages do not overlap
		return a.ID.String() < b.ID.String()
	})

	total := int64(len(matched))
	start := min(max(params.Offset, 0), len(matched))
	end := len(matched)
	if params.Limit > 0 && params.Limit < end-start {
		end = start + params.Limit
	}
	return matched[start:end], total, nil
}

func lessBy(column string, a, b entity.User) bool {
	switch column {
	case "name":
		return a.Name < b.Name
	case "email":
		return a.Email < b.Email
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func (r *UserRepository) UpdateProfile(_ context.Context, id uuid.UUID, changes repository.ProfileChanges) error {
	return r.mutate(id, func(user *entity.User) {
		if changes.Name != nil {
			user.Name = *changes.Name
		}
		if changes.Gender != nil {
			user.Gender = *changes.Gender
		}
		if changes.BirthDate != nil {
			birthDate := *changes.BirthDate
			user.BirthDate = &birthDate
		}
		if changes.Address != nil {
			user.Address = *changes.Address
		}
		if changes.PhoneNumber != nil {
			user.PhoneNumber = *changes.PhoneNumber
		}
		if changes.PhotoPath != nil {
			user.PhotoPath = *changes.PhotoPath
		}
		user.UpdatedAt = changes.UpdatedAt
	})
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uuid.UUID, hash string, at time.Time) error {
	return r.mutate(id, func(user *entity.User) {
		user.PasswordHash = hash
		user.UpdatedAt = at
	})
}

func (r *UserRepository) MarkEmailVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.mutate(id, func(user *entity.User) {
		user.EmailVerified = true
		user.UpdatedAt = at
	})
}

func (r *UserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) mutate(id uuid.UUID, apply func(user *entity.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	apply(&user)
	r.users[id] = user
	return nil
}

type VerificationTokenRepository struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]entity.VerificationToken
	now    func() time.Time
}

func NewVerificationTokenRepository(now func() time.Time) *VerificationTokenRepository {
	if now == nil {
		now = time.Now
	}
	return &VerificationTokenRepository{tokens: make(map[uuid.UUID]entity.VerificationToken), now: now}
}

func (r *VerificationTokenRepository) Create(_ context.Context, token *entity.VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tokens {
		if existing.TokenHash == token.TokenHash {
			return repository.ErrDuplicate
		}
	}
	r.tokens[token.ID] = *token
	return nil
}

func (r *VerificationTokenRepository) FindValid(
	_ context.Context,
	tokenHash string,
	tokenType entity.VerificationType,
) (*entity.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, token := range r.tokens {
		if token.TokenHash == tokenHash && token.Type == tokenType && token.UsedAt == nil && token.ExpiresAt.After(now) {
			found := token
			return &found, nil
		}
	}
	return nil, nil
}

func (r *VerificationTokenRepository) MarkUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[id]
	if !ok || token.UsedAt != nil {
		return repository.ErrNotFound
	}
	token.UsedAt = &at
	r.tokens[id] = token
	return nil
}

func (r *VerificationTokenRepository) Release(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[id]
	if !ok || token.UsedAt == nil {
		return repository.ErrNotFound
	}
	token.UsedAt = nil
	r.tokens[id] = token
	return nil
}

type AuditLogRepository struct {
	mu      sync.Mutex
	entries []entity.AuditLog
}

func NewAuditLogRepository() *AuditLogRepository {
	return &AuditLogRepository{}
}

func (r *AuditLogRepository) Log(_ context.Context, log *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, *log)
	return nil
}

// Actions returns the recorded actions in insertion order.
func (r *AuditLogRepository) Actions() []entity.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()

	actions := make([]entity.AuditAction, 0, len(r.entries))
	for _, entry := range r.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}
