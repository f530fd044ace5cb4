package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResetTokenRepo persists password reset tokens (hash only).
type ResetTokenRepo struct{ DB *sql.DB }

func NewResetTokenRepo(db *sql.DB) *ResetTokenRepo { return &ResetTokenRepo{DB: db} }

// Store inserts a reset token hash for userID.
func (r *ResetTokenRepo) Store(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_reset_tokens (id, user_id, token, expiry_time) VALUES (?, ?, ?, ?)",
		uuid.NewString(), userID, tokenHash, exp)
	return err
}

// ConsumeTx marks an unused, unexpired token as used and returns its owner.
// The token can be consumed once; every later attempt gets ErrInvalidReset.
func (r *ResetTokenRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, tokenHash string, now time.Time) (string, error) {
	var userID string
	err := tx.QueryRowContext(ctx,
		`SELECT user_id FROM password_reset_tokens
		 WHERE token = ? AND used_at IS NULL AND expiry_time > ?
		 FOR UPDATE`, tokenHash, now).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidReset
	}
	if err != nil {
		return "", fmt.Errorf("lock reset token: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE password_reset_tokens SET used_at = ? WHERE token = ? AND used_at IS NULL", now, tokenHash)
	if err != nil {
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return "", ErrInvalidReset
	}
	return userID, nil
}
