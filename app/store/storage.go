package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zuricore/identity-service/app/models"
)

// Sentinel errors surfaced by the storage layer. Precondition failures come
// from conditional updates that matched zero rows.
var (
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrPreconditionFailed = errors.New("record not in expected state")
)

type Storage struct {
	Users interface {
		GetAll(ctx context.Context) ([]models.User, error)
		GetByID(ctx context.Context, id int64) (*models.User, error)
		GetByEmail(ctx context.Context, email string) (*models.User, error)
		Create(ctx context.Context, user *models.User) error
		// MarkVerified flips is_verified false -> true in a single statement.
		// Returns ErrPreconditionFailed when no unverified row matched.
		MarkVerified(ctx context.Context, id int64) error
		UpdatePassword(ctx context.Context, id int64, passwordHash string) error
		UpdateEmail(ctx context.Context, id int64, email string) error
		UpdateNames(ctx context.Context, id int64, firstName, lastName string) error
		SetTwoFactor(ctx context.Context, id int64, enabled bool) error
		Delete(ctx context.Context, id int64) error
	}
	Roles interface {
		GetAll(ctx context.Context) ([]models.Role, error)
		GetByName(ctx context.Context, name string) (*models.Role, error)
	}
}

func NewStorage(db *sql.DB) Storage {
	return Storage{
		Users: &UsersStore{db: db},
		Roles: &RolesStore{db: db},
	}
}
