package store

import (
	"context"
	"database/sql"

	"github.com/zuricore/identity-service/app/models"
)

type RolesStore struct {
	db *sql.DB
}

func (s *RolesStore) GetAll(ctx context.Context) ([]models.Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *RolesStore) GetByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name)
	if err != nil {
		return nil, err
	}
	return &role, nil
}
