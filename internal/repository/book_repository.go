package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ruet-portal/portal-backend/internal/database"
	"github.com/ruet-portal/portal-backend/internal/model"
)

const (
	// BookIDPrefix starts every book id; the rest is a zero-padded number.
	BookIDPrefix = "BK-"

	bookSequenceName = "books"
	bookColumns      = "id, title, author, category, status, issue_due_date, created_at"
)

// FormatBookID renders n as BK-0001.  Numbers past 9999 simply grow wider.
func FormatBookID(n int64) string { return fmt.Sprintf("%s%04d", BookIDPrefix, n) }

// parseBookNumber extracts the numeric suffix of a BK- id, 0 if malformed.
func parseBookNumber(id string) int64 {
	if !strings.HasPrefix(id, BookIDPrefix) {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(id, BookIDPrefix), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// BookRepo reads and writes books and owns the id allocator.
type BookRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewBookRepo(db *sql.DB, dialect database.Dialect) *BookRepo {
	return &BookRepo{db: db, dialect: dialect}
}

func (r *BookRepo) DB() *sql.DB { return r.db }

func scanBook(row interface{ Scan(...any) error }) (*model.Book, error) {
	var b model.Book
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.Status, &b.IssueDueDate, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// nextNumber computes the next free book number: one past the larger of the
// persisted high-water mark and the lexicographically last BK- id.  With
// lock set the sequence row is locked for the rest of the transaction.
func (r *BookRepo) nextNumber(ctx context.Context, q dbtx, lock bool) (int64, error) {
	query := "SELECT last_value FROM book_sequence WHERE name = ?"
	if lock {
		query += r.dialect.ForUpdate()
	}
	var last int64
	err := q.QueryRowContext(ctx, query, bookSequenceName).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	var maxID sql.NullString
	if err := q.QueryRowContext(ctx,
		"SELECT MAX(id) FROM books WHERE id LIKE ?", BookIDPrefix+"%").Scan(&maxID); err != nil {
		return 0, err
	}
	if n := parseBookNumber(maxID.String); n > last {
		last = n
	}
	return last + 1, nil
}

// NextID previews the id the next Create will allocate.  Nothing is
// reserved, so a concurrent Create may take it first.
func (r *BookRepo) NextID(ctx context.Context) (string, error) {
	n, err := r.nextNumber(ctx, r.db, false)
	if err != nil {
		return "", err
	}
	return FormatBookID(n), nil
}

// Create allocates the next id and inserts an available book in a single
// transaction, advancing book_sequence so the id is never handed out again.
func (r *BookRepo) Create(ctx context.Context, title, author, category string, now time.Time) (*model.Book, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	n, err := r.nextNumber(ctx, tx, true)
	if err != nil {
		return nil, fmt.Errorf("allocate book id: %w", err)
	}
	res, err := tx.ExecContext(ctx, "UPDATE book_sequence SET last_value = ? WHERE name = ?", n, bookSequenceName)
	if err != nil {
		return nil, err
	}
	if updated, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if updated == 0 {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO book_sequence (name, last_value) VALUES (?, ?)", bookSequenceName, n); err != nil {
			return nil, err
		}
	}

	b := &model.Book{
		ID:        FormatBookID(n),
		Title:     title,
		Author:    author,
		Category:  category,
		Status:    model.BookAvailable,
		CreatedAt: now.UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO books (id, title, author, category, status, issue_due_date, created_at) VALUES (?, ?, ?, ?, ?, NULL, ?)",
		b.ID, b.Title, b.Author, b.Category, b.Status, b.CreatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return b, nil
}

// GetByID returns ErrBookNotFound when the id is unknown.
func (r *BookRepo) GetByID(ctx context.Context, id string) (*model.Book, error) {
	return r.get(ctx, r.db, id, false)
}

// GetByIDTx reads a book inside tx, locking the row on MySQL.
func (r *BookRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Book, error) {
	return r.get(ctx, tx, id, true)
}

func (r *BookRepo) get(ctx context.Context, q dbtx, id string, lock bool) (*model.Book, error) {
	query := "SELECT " + bookColumns + " FROM books WHERE id = ?"
	if lock {
		query += r.dialect.ForUpdate()
	}
	b, err := scanBook(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	return b, err
}

// List returns all books ordered by id.
func (r *BookRepo) List(ctx context.Context) ([]model.Book, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+bookColumns+" FROM books ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Issue marks an available book as held by studentID until dueDate.  The
// update is conditional on the book still being available, so of two
// concurrent issues only one reports true.
func (r *BookRepo) Issue(ctx context.Context, id, studentID, dueDate string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE books SET status = ?, issue_due_date = ? WHERE id = ? AND status = ?",
		studentID, dueDate, id, model.BookAvailable)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ReleaseTx puts a book back on the shelf if it is still held by borrower.
func (r *BookRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id, borrower string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE books SET status = ?, issue_due_date = NULL WHERE id = ? AND status = ?",
		model.BookAvailable, id, borrower)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Delete removes a book regardless of status.
func (r *BookRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}
