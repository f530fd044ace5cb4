package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kehila/community-auth/internal/model"
)

// DefaultRoleLevel is assigned to self-registered users.
const DefaultRoleLevel = 1

const userColumns = "id, email, password, COALESCE(phone, ''), COALESCE(address, ''), role_id, active"

// UserRepo is the credential store over `user` and `user_info`.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// normalizeEmail lower-cases and trims so lookups match registration.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailExists reports whether an account already uses email.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var id string
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM user WHERE email = ? LIMIT 1", normalizeEmail(email)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateTx inserts user_info and user rows for u inside tx and returns the
// new id.  The unique index on user.email turns a racing duplicate into
// ErrEmailExists.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, u model.NewUser, createdAt time.Time) (string, error) {
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO user_info (id, first_name, last_name, created_at) VALUES (?, ?, ?, ?)",
		id, strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName), createdAt); err != nil {
		return "", fmt.Errorf("insert user_info: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO user (id, email, password, phone, address, role_id, active) VALUES (?, ?, ?, ?, ?, ?, TRUE)",
		id, normalizeEmail(u.Email), u.PasswordHash, nullIfEmpty(u.Phone), nullIfEmpty(u.Address), DefaultRoleLevel); err != nil {
		if isDuplicateKey(err) {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// GetByEmail fetches a credential row by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM user WHERE email = ? LIMIT 1", normalizeEmail(email)))
}

// GetByID fetches a credential row by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getByID(ctx, r.DB, id)
}

// GetByIDTx is GetByID on the connection of tx.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (model.User, error) {
	return r.getByID(ctx, tx, id)
}

func (r *UserRepo) getByID(ctx context.Context, q queryer, id string) (model.User, error) {
	return r.scanOne(q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM user WHERE id = ? LIMIT 1", id))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Phone, &u.Address, &u.RoleID, &u.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetProfile joins user, user_info and role for display.  A role level
// without a `role` row is named by model.ResolveRole.
func (r *UserRepo) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	var (
		p        model.Profile
		roleName sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT u.id, u.email, COALESCE(u.phone, ''), COALESCE(u.address, ''),
		        COALESCE(ui.first_name, ''), COALESCE(ui.last_name, ''), u.role_id, r.name
		 FROM user u
		 LEFT JOIN user_info ui ON u.id = ui.id
		 LEFT JOIN role r ON u.role_id = r.level
		 WHERE u.id = ?`, id).
		Scan(&p.ID, &p.Email, &p.Phone, &p.Address, &p.FirstName, &p.LastName, &p.RoleLevel, &roleName)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, err
	}
	p.RoleName = roleName.String
	if !roleName.Valid || roleName.String == "" {
		p.RoleName = string(model.ResolveRole(p.RoleLevel))
	}
	return p, nil
}

// UpdatePasswordTx replaces the password hash of user id.
func (r *UserRepo) UpdatePasswordTx(ctx context.Context, tx *sql.Tx, id, hash string) error {
	res, err := tx.ExecContext(ctx, "UPDATE user SET password = ? WHERE id = ?", hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateContact sets phone and address of user id.
func (r *UserRepo) UpdateContact(ctx context.Context, id, phone, address string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user SET phone = ?, address = ? WHERE id = ?", phone, address, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleActiveTx flips the active flag of every listed user in a single
// statement and returns how many rows changed.
func (r *UserRepo) ToggleActiveTx(ctx context.Context, tx *sql.Tx, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	res, err := tx.ExecContext(ctx,
		"UPDATE user SET active = NOT active WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetActivity returns the administrator view of user id with the campaigns
// they joined.
func (r *UserRepo) GetActivity(ctx context.Context, id string) (model.UserActivity, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT u.id, u.email, COALESCE(ui.first_name, ''), COALESCE(ui.last_name, ''),
		        COALESCE(u.phone, ''), ui.created_at, mem.campaign_id, mem.joined_date
		 FROM user u
		 LEFT JOIN user_info ui ON ui.id = u.id
		 LEFT JOIN members mem ON mem.user_id = u.id
		 WHERE u.id = ?`, id)
	if err != nil {
		return model.UserActivity{}, err
	}
	defer rows.Close()

	var (
		out   model.UserActivity
		found bool
	)
	out.Campaigns = []model.Membership{}
	for rows.Next() {
		var (
			createdAt  sql.NullTime
			campaignID sql.NullString
			joinedDate sql.NullTime
		)
		if err := rows.Scan(&out.UserID, &out.Email, &out.FirstName, &out.LastName,
			&out.Phone, &createdAt, &campaignID, &joinedDate); err != nil {
			return model.UserActivity{}, err
		}
		found = true
		if createdAt.Valid {
			out.CreatedAt = createdAt.Time
		}
		if campaignID.Valid {
			out.Campaigns = append(out.Campaigns, model.Membership{
				CampaignID: campaignID.String,
				JoinedDate: joinedDate.Time,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return model.UserActivity{}, err
	}
	if !found {
		return model.UserActivity{}, ErrNotFound
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
