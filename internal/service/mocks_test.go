package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kehila/community-auth/internal/model"
	"github.com/kehila/community-auth/internal/queue"
)

// --- Mock Grant Store ---

type mockGrantStore struct {
	mock.Mock
}

func (m *mockGrantStore) ListByRole(ctx context.Context, role model.RoleName) ([]model.Grant, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Grant), args.Error(1)
}

// mockTxGrantStore also answers on an open transaction.
type mockTxGrantStore struct {
	mockGrantStore
}

func (m *mockTxGrantStore) ListByRoleTx(ctx context.Context, tx *sql.Tx, role model.RoleName) ([]model.Grant, error) {
	args := m.Called(ctx, tx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Grant), args.Error(1)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, ev queue.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, m.ExpectationsWereMet())
		db.Close()
	})
	return db, m
}

func q(s string) string { return regexp.QuoteMeta(s) }

// captureArg matches any value and records it as a string.
type captureArg struct{ into *string }

func (c captureArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if ok {
		*c.into = s
	}
	return ok
}
