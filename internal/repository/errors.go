// Package repository holds the SQL access for students, librarians and
// books.  Lookups that find nothing return the sentinel errors below so
// that services can tell absence apart from database failure.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrStudentNotFound   = errors.New("student not found")
	ErrLibrarianNotFound = errors.New("librarian not found")
	ErrBookNotFound      = errors.New("book not found")

	// ErrEmailExists and ErrIDExists are returned when an insert collides
	// with the unique email or the primary key.
	ErrEmailExists = errors.New("email already exists")
	ErrIDExists    = errors.New("id already exists")
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isDuplicateKey reports whether err is a unique or primary key violation
// from either supported driver.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// duplicateColumn maps a duplicate-key error to ErrEmailExists when the
// violated index is the email column, ErrIDExists otherwise.  Both drivers
// name the column or index in the message.
func duplicateColumn(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "email") {
		return ErrEmailExists
	}
	return ErrIDExists
}
