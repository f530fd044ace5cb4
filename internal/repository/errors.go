// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow the service layer to tell a
// missing row from a store failure without looking at driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by UserRepo.Create for a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// ErrInvalidRefresh is returned when a refresh token is unknown, revoked or
// expired.  The three cases are deliberately indistinguishable.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// ErrInvalidReset is returned when a password reset token is unknown,
// expired or already used.
var ErrInvalidReset = errors.New("invalid password reset token")

// mysqlDuplicateKey is ER_DUP_ENTRY.
const mysqlDuplicateKey = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateKey
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
