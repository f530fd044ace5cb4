package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenRepo persists refresh tokens.  Only the SHA‑256 hash of a token is
// stored, in the `token` column.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token, expiry_time) VALUES (?, ?, ?, ?)",
		uuid.NewString(), userID, tokenHash, exp)
	return err
}

// RotateTx consumes the active token oldHash and stores newHash for the same
// user, inside tx.  The old row is locked, then revoked with a conditional
// update whose affected-row count must be exactly one, so two concurrent
// rotations of the same token cannot both succeed.  It returns the owner's
// id or ErrInvalidRefresh.
func (r *TokenRepo) RotateTx(ctx context.Context, tx *sql.Tx, oldHash, newHash string, newExp, now time.Time) (string, error) {
	var userID string
	err := tx.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens
		 WHERE token = ? AND revoked = FALSE AND expiry_time > ?
		 FOR UPDATE`, oldHash, now).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidRefresh
	}
	if err != nil {
		return "", fmt.Errorf("lock refresh token: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = TRUE WHERE token = ? AND revoked = FALSE", oldHash)
	if err != nil {
		return "", fmt.Errorf("revoke refresh token: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return "", ErrInvalidRefresh
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token, expiry_time) VALUES (?, ?, ?, ?)",
		uuid.NewString(), userID, newHash, newExp); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return userID, nil
}

// RevokeByHash marks a token of userID as revoked.  Revoking an already
// revoked or unknown token is a no-op.
func (r *TokenRepo) RevokeByHash(ctx context.Context, userID, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = TRUE WHERE token = ? AND user_id = ? AND revoked = FALSE",
		tokenHash, userID)
	return err
}

// RevokeAllForUser revokes all of the user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.revokeAll(ctx, r.DB, userID)
}

// RevokeAllForUserTx is RevokeAllForUser inside tx.
func (r *TokenRepo) RevokeAllForUserTx(ctx context.Context, tx *sql.Tx, userID string) error {
	return r.revokeAll(ctx, tx, userID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *TokenRepo) revokeAll(ctx context.Context, q execer, userID string) error {
	_, err := q.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = ? AND revoked = FALSE", userID)
	return err
}
