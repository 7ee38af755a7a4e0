package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/zuricore/identity-service/app/models"
)

const uniqueViolation = "23505"

type UsersStore struct {
	db *sql.DB
}

const userColumns = `id, first_name, last_name, email, password_hash,
	role_id, is_verified, two_factor_enabled, created_at`

func scanUser(row interface{ Scan(...any) error }, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.RoleID,
		&user.IsVerified,
		&user.TwoFactorEnabled,
		&user.CreatedAt,
	)
}

func (s *UsersStore) GetAll(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *UsersStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user models.User
	if err := scanUser(s.db.QueryRowContext(ctx, query, id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UsersStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var user models.User
	if err := scanUser(s.db.QueryRowContext(ctx, query, email), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts an unverified account. The role defaults to the "user" role
// in the schema; the unique index on email reports duplicates as
// ErrDuplicateEmail.
func (s *UsersStore) Create(ctx context.Context, user *models.User) error {
	query := `
	INSERT INTO users (first_name, last_name, email, password_hash)
	VALUES ($1, $2, $3, $4)
	RETURNING id, role_id, is_verified, two_factor_enabled, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
	).Scan(&user.ID, &user.RoleID, &user.IsVerified, &user.TwoFactorEnabled, &user.CreatedAt)

	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// MarkVerified guards the unverified -> verified transition with a single
// conditional UPDATE so two concurrent verifications cannot both succeed.
func (s *UsersStore) MarkVerified(ctx context.Context, id int64) error {
	query := `UPDATE users SET is_verified = TRUE WHERE id = $1 AND is_verified = FALSE`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *UsersStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1 WHERE id = $2`
	res, err := s.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *UsersStore) UpdateEmail(ctx context.Context, id int64, email string) error {
	query := `UPDATE users SET email = $1 WHERE id = $2`
	res, err := s.db.ExecContext(ctx, query, email, id)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *UsersStore) UpdateNames(ctx context.Context, id int64, firstName, lastName string) error {
	query := `UPDATE users SET first_name = $1, last_name = $2 WHERE id = $3`
	res, err := s.db.ExecContext(ctx, query, firstName, lastName, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *UsersStore) SetTwoFactor(ctx context.Context, id int64, enabled bool) error {
	query := `UPDATE users SET two_factor_enabled = $1 WHERE id = $2`
	res, err := s.db.ExecContext(ctx, query, enabled, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *UsersStore) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// requireAffected converts a zero-rows-affected result into
// ErrPreconditionFailed, the contract conditional mutations rely on.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPreconditionFailed
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
