package repository

import (
	"context"
	"database/sql"

	"github.com/kehila/community-auth/internal/model"
)

// PermissionRepo reads the `permissions` table.
type PermissionRepo struct{ DB *sql.DB }

func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{DB: db} }

// ListByRole returns the grants of role in storage order.  A role without
// rows yields an empty slice.
func (r *PermissionRepo) ListByRole(ctx context.Context, role model.RoleName) ([]model.Grant, error) {
	return listByRole(ctx, r.DB, role)
}

// ListByRoleTx is ListByRole on the connection of tx.
func (r *PermissionRepo) ListByRoleTx(ctx context.Context, tx *sql.Tx, role model.RoleName) ([]model.Grant, error) {
	return listByRole(ctx, tx, role)
}

func listByRole(ctx context.Context, q queryer, role model.RoleName) ([]model.Grant, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT resource, scope FROM permissions WHERE role = ?", string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := []model.Grant{}
	for rows.Next() {
		var g model.Grant
		if err := rows.Scan(&g.Resource, &g.Scope); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
