package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"useraccount/internal/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

var userColumns = []string{"id", "email", "password", "phone_number", "name", "email_verified", "role_id", "created_at", "updated_at"}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "jane@example.com", "hash", "0812345678", "Jane", true, "user", now, now))

	user, err := repo.FindByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.Equal(t, "0812345678", user.PhoneNumber)
	assert.True(t, user.EmailVerified)
	assert.Equal(t, entity.UserRoleUser, user.RoleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmailMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	user, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByIDError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnError(fmt.Errorf("connection reset"))

	user, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	now := time.Now().UTC().Truncate(time.Second)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE name ILIKE \$1 ESCAPE '\\'`).
		WithArgs("%bob%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE name ILIKE \$1 ESCAPE '\\' ORDER BY "name" DESC,"id" DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(uuid.NewString(), "b@example.com", "h", "", "Bob", true, "user", now, now).
			AddRow(uuid.NewString(), "a@example.com", "h", "", "Bobby", false, "admin", now, now))

	users, total, err := repo.List(context.Background(), ListParams{
		Limit:  2,
		Offset: 2,
		SortBy: "name",
		Desc:   true,
		Search: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	require.Len(t, users, 2)
	assert.Equal(t, "Bob", users[0].Name)
	assert.Equal(t, entity.UserRoleAdmin, users[1].RoleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListEscapesWildcards(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE name ILIKE`).
		WithArgs(`%50\%\_off\\%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE name ILIKE`).
		WithArgs(`%50\%\_off\\%`, 10).
		WillReturnRows(sqlmock.NewRows(userColumns))

	users, total, err := repo.List(context.Background(), ListParams{Limit: 10, SortBy: "created_at", Search: `50%_off\`})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	name := "Jane"
	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateProfile(context.Background(), uuid.New(), ProfileChanges{Name: &name, UpdatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateProfileMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProfile(context.Background(), uuid.New(), ProfileChanges{UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	testCases := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{name: "deleted", rows: 1},
		{name: "missing", rows: 0, wantErr: ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewUserRepository(db)

			mock.ExpectExec(`DELETE FROM "users" WHERE id = \$1`).
				WillReturnResult(sqlmock.NewResult(0, tc.rows))

			err := repo.Delete(context.Background(), uuid.New())
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVerificationTokenRepository_MarkUsedTwice(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVerificationTokenRepository(db)

	mock.ExpectExec(`UPDATE "verification_tokens" SET "used_at"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "verification_tokens" SET "used_at"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	id := uuid.New()
	require.NoError(t, repo.MarkUsed(context.Background(), id, time.Now()))
	assert.ErrorIs(t, repo.MarkUsed(context.Background(), id, time.Now()), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(fmt.Errorf("boom")))
	assert.False(t, isUniqueViolation(nil))
}
