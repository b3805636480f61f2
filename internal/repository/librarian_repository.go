package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ruet-portal/portal-backend/internal/model"
)

type LibrarianRepo struct{ db *sql.DB }

func NewLibrarianRepo(db *sql.DB) *LibrarianRepo { return &LibrarianRepo{db: db} }

// GetByEmail fetches a librarian by normalised email.
func (r *LibrarianRepo) GetByEmail(ctx context.Context, email string) (*model.Librarian, error) {
	var l model.Librarian
	err := r.db.QueryRowContext(ctx,
		"SELECT email, name, password_hash FROM librarians WHERE email = ?", email).
		Scan(&l.Email, &l.Name, &l.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLibrarianNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a librarian; a taken email yields ErrEmailExists.
func (r *LibrarianRepo) Create(ctx context.Context, l model.Librarian) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO librarians (email, name, password_hash) VALUES (?, ?, ?)",
		l.Email, l.Name, l.PasswordHash)
	if err != nil && isDuplicateKey(err) {
		return ErrEmailExists
	}
	return err
}

// List returns librarians ordered by email.
func (r *LibrarianRepo) List(ctx context.Context) ([]model.Librarian, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT email, name, password_hash FROM librarians ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Librarian
	for rows.Next() {
		var l model.Librarian
		if err := rows.Scan(&l.Email, &l.Name, &l.PasswordHash); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
