package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
)

type RoleRepository interface {
	FindByName(ctx context.Context, name string) (*model.Role, error)
	ListNamesForUser(ctx context.Context, userID string) ([]string, error)
	ClearForUser(ctx context.Context, tx *sql.Tx, userID string) error
	AddForUser(ctx context.Context, tx *sql.Tx, userID string, roleID int64) error
}

type pgRoleRepository struct {
	db *sql.DB
}

func NewPgRoleRepository(db *sql.DB) RoleRepository {
	return &pgRoleRepository{db: db}
}

func (r *pgRoleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	query := `SELECT id, name FROM roles WHERE name = $1`
	role := &model.Role{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgRoleRepository.FindByName: %w", common.ClassifyStoreError(err))
	}
	return role, nil
}

func (r *pgRoleRepository) ListNamesForUser(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT r.name FROM roles r
	          JOIN user_roles ur ON ur.role_id = r.id
	          WHERE ur.user_id = $1 ORDER BY r.name ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgRoleRepository.ListNamesForUser query: %w", common.ClassifyStoreError(err))
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("pgRoleRepository.ListNamesForUser scan: %w", err)
		}
		names = append(names, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgRoleRepository.ListNamesForUser rows.Err: %w", common.ClassifyStoreError(err))
	}
	return names, nil
}

func (r *pgRoleRepository) ClearForUser(ctx context.Context, tx *sql.Tx, userID string) error {
	query := `DELETE FROM user_roles WHERE user_id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, userID)
	} else {
		_, err = r.db.ExecContext(ctx, query, userID)
	}
	if err != nil {
		return fmt.Errorf("pgRoleRepository.ClearForUser: %w", common.ClassifyStoreError(err))
	}
	return nil
}

// AddForUser inserts one role edge. ON CONFLICT DO NOTHING makes the call
// a no-op when a concurrent writer already recreated the edge, which keeps
// role replacement safe to retry.
func (r *pgRoleRepository) AddForUser(ctx context.Context, tx *sql.Tx, userID string, roleID int64) error {
	query := `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
	          ON CONFLICT (user_id, role_id) DO NOTHING`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, userID, roleID)
	} else {
		_, err = r.db.ExecContext(ctx, query, userID, roleID)
	}
	if err != nil {
		return fmt.Errorf("pgRoleRepository.AddForUser: %w", common.ClassifyStoreError(err))
	}
	return nil
}
