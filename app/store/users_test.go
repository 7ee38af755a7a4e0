package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zuricore/identity-service/app/models"
)

/*
UsersStore test cases:

1. Create success — ID, role, flags and CreatedAt populated from RETURNING
2. Create duplicate email — unique violation mapped to ErrDuplicateEmail
3. Create database error — error surfaced
4. GetByEmail success / not found (sql.ErrNoRows)
5. GetByID success / not found
6. MarkVerified success — one row affected
7. MarkVerified already verified — zero rows -> ErrPreconditionFailed
8. UpdatePassword success / missing user -> ErrPreconditionFailed
9. UpdateEmail duplicate -> ErrDuplicateEmail
10. SetTwoFactor success
11. Delete success / missing user -> ErrPreconditionFailed
12. GetAll returns every row
*/

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *UsersStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock database")
	return db, mock, &UsersStore{db: db}
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "email", "password_hash",
		"role_id", "is_verified", "two_factor_enabled", "created_at",
	})
}

func TestUsersStore_Create_Success(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	user := &models.User{
		FirstName:    "Ada",
		LastName:     "Obi",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$hashedpassword",
	}

	createdAt := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (first_name, last_name, email, password_hash)`)).
		WithArgs(user.FirstName, user.LastName, user.Email, user.PasswordHash).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role_id", "is_verified", "two_factor_enabled", "created_at"}).
			AddRow(int64(1), 2, false, false, createdAt))

	err := store.Create(context.Background(), user)

	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, 2, user.RoleID)
	assert.False(t, user.IsVerified)
	assert.Equal(t, createdAt, user.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersStore_Create_DuplicateEmail(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	err := store.Create(context.Background(), &models.User{Email: "taken@example.com"})

	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersStore_Create_DatabaseError(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(errors.New("connection refused"))

	err := store.Create(context.Background(), &models.User{Email: "a@example.com"})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}

func TestUsersStore_GetByEmail_Success(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	createdAt := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("ada@example.com").
		WillReturnRows(userRows().
			AddRow(int64(7), "Ada", "Obi", "ada@example.com", "$2a$10$hash", 2, true, false, createdAt))

	user, err := store.GetByEmail(context.Background(), "ada@example.com")

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "Ada", user.FirstName)
	assert.True(t, user.IsVerified)
	assert.False(t, user.TwoFactorEnabled)
}

func TestUsersStore_GetByEmail_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	user, err := store.GetByEmail(context.Background(), "nobody@example.com")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUsersStore_GetByID_Success(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	createdAt := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(userRows().
			AddRow(int64(7), "Ada", "Obi", "ada@example.com", "$2a$10$hash", 2, false, true, createdAt))

	user, err := store.GetByID(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.True(t, user.TwoFactorEnabled)
}

func TestUsersStore_GetByID_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	user, err := store.GetByID(context.Background(), 99)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUsersStore_MarkVerified_Success(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET is_verified = TRUE WHERE id = $1 AND is_verified = FALSE`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkVerified(context.Background(), 7)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersStore_MarkVerified_AlreadyVerified(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET is_verified = TRUE`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkVerified(context.Background(), 7)

	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestUsersStore_UpdatePassword_Success(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1 WHERE id = $2`)).
		WithArgs("$2a$10$newhash", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.UpdatePassword(context.Background(), 7, "$2a$10$newhash"))
}

func TestUsersStore_UpdatePassword_MissingUser(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1 WHERE id = $2`)).
		WithArgs("$2a$10$newhash", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdatePassword(context.Background(), 99, "$2a$10$newhash")

	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestUsersStore_UpdateEmail_Duplicate(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET email = $1 WHERE id = $2`)).
		WithArgs("taken@example.com", int64(7)).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	err := store.UpdateEmail(context.Background(), 7, "taken@example.com")

	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUsersStore_SetTwoFactor_Success(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET two_factor_enabled = $1 WHERE id = $2`)).
		WithArgs(true, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.SetTwoFactor(context.Background(), 7, true))
}

func TestUsersStore_Delete_MissingUser(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), 99)

	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestUsersStore_GetAll_Success(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	createdAt := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users ORDER BY id`)).
		WillReturnRows(userRows().
			AddRow(int64(1), "Ada", "Obi", "ada@example.com", "h1", 2, true, false, createdAt).
			AddRow(int64(2), "Ben", "Eze", "ben@example.com", "h2", 3, false, true, createdAt))

	users, err := store.GetAll(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ben@example.com", users[1].Email)
}
