package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTokenRepo_StoreRefresh(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)
	exp := tokenNow.Add(7 * 24 * time.Hour)

	mock.ExpectExec(q("INSERT INTO refresh_tokens (id, user_id, token, expiry_time)")).
		WithArgs(sqlmock.AnyArg(), "u-1", "hash-1", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.StoreRefresh(context.Background(), "u-1", "hash-1", exp))
}

func TestTokenRepo_RotateTx_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)
	exp := tokenNow.Add(7 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT user_id FROM refresh_tokens")).
		WithArgs("old-hash", tokenNow).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-1"))
	mock.ExpectExec(q("UPDATE refresh_tokens SET revoked = TRUE WHERE token = ? AND revoked = FALSE")).
		WithArgs("old-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO refresh_tokens")).
		WithArgs(sqlmock.AnyArg(), "u-1", "new-hash", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	userID, err := repo.RotateTx(context.Background(), tx, "old-hash", "new-hash", exp, tokenNow)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, "u-1", userID)
}

func TestTokenRepo_RotateTx_RevokedOrExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT user_id FROM refresh_tokens")).
		WithArgs("old-hash", tokenNow).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = repo.RotateTx(context.Background(), tx, "old-hash", "new-hash", tokenNow, tokenNow)
	require.NoError(t, tx.Rollback())

	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestTokenRepo_RotateTx_LostRaceWritesNothing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT user_id FROM refresh_tokens")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-1"))
	mock.ExpectExec(q("UPDATE refresh_tokens SET revoked = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = repo.RotateTx(context.Background(), tx, "old-hash", "new-hash", tokenNow, tokenNow)
	require.NoError(t, tx.Rollback())

	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestTokenRepo_RotateTx_InsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT user_id FROM refresh_tokens")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-1"))
	mock.ExpectExec(q("UPDATE refresh_tokens SET revoked = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO refresh_tokens")).WillReturnError(boom)
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = repo.RotateTx(context.Background(), tx, "old-hash", "new-hash", tokenNow, tokenNow)
	require.NoError(t, tx.Rollback())

	assert.ErrorIs(t, err, boom)
}

func TestTokenRepo_RevokeByHash_IsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	stmt := q("UPDATE refresh_tokens SET revoked = TRUE WHERE token = ? AND user_id = ? AND revoked = FALSE")
	mock.ExpectExec(stmt).WithArgs("h", "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt).WithArgs("h", "u-1").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.RevokeByHash(context.Background(), "u-1", "h"))
	assert.NoError(t, repo.RevokeByHash(context.Background(), "u-1", "h"))
}

func TestTokenRepo_RevokeAllForUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	mock.ExpectExec(q("UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = ? AND revoked = FALSE")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	assert.NoError(t, repo.RevokeAllForUser(context.Background(), "u-1"))
}
