package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ruet-portal/portal-backend/internal/model"
)

const studentColumns = `id, name, dept, hall, room, email, password_hash,
	hall_fee, library_fee, dept_fee, verified,
	otp_hash, otp_expires_at, otp_attempts_left, photo_path, created_at`

// StudentRepo reads and writes the students table.
type StudentRepo struct {
	db *sql.DB
}

func NewStudentRepo(db *sql.DB) *StudentRepo { return &StudentRepo{db: db} }

// DB exposes the handle so callers can open transactions spanning repos.
func (r *StudentRepo) DB() *sql.DB { return r.db }

func scanStudent(row interface{ Scan(...any) error }) (*model.Student, error) {
	var s model.Student
	err := row.Scan(&s.ID, &s.Name, &s.Dept, &s.Hall, &s.Room, &s.Email, &s.PasswordHash,
		&s.HallFee, &s.LibraryFee, &s.DeptFee, &s.Verified,
		&s.OTPHash, &s.OTPExpiresAt, &s.OTPAttemptsLeft, &s.PhotoPath, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns ErrStudentNotFound when no row matches.
func (r *StudentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	s, err := scanStudent(r.db.QueryRowContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	return s, err
}

// GetByEmail expects an already normalised (lower-case) email.
func (r *StudentRepo) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	s, err := scanStudent(r.db.QueryRowContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE email = ?", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	return s, err
}

// List returns every student ordered by id.
func (r *StudentRepo) List(ctx context.Context) ([]model.Student, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+studentColumns+" FROM students ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StudentRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM students WHERE email = ?", email)
}

func (r *StudentRepo) IDExists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.db, "SELECT 1 FROM students WHERE id = ?", id)
}

func exists(ctx context.Context, q dbtx, query string, arg any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateTx inserts a new student inside tx.  A collision on the email or
// the id maps to ErrEmailExists or ErrIDExists.
func (r *StudentRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Student) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO students
		(id, name, dept, hall, room, email, password_hash, hall_fee, library_fee, dept_fee,
		 verified, otp_hash, otp_expires_at, otp_attempts_left, photo_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Dept, s.Hall, s.Room, s.Email, s.PasswordHash,
		s.HallFee, s.LibraryFee, s.DeptFee, s.Verified,
		s.OTPHash, s.OTPExpiresAt, s.OTPAttemptsLeft, s.PhotoPath, s.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return duplicateColumn(err)
		}
		return err
	}
	return nil
}

// ReplaceOTP stores a fresh OTP for an unverified student and resets the
// attempt counter.  It returns false when the student is missing or already
// verified.
func (r *StudentRepo) ReplaceOTP(ctx context.Context, id, hash string, expiresAt time.Time, attempts int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE students
		SET otp_hash = ?, otp_expires_at = ?, otp_attempts_left = ?
		WHERE id = ? AND verified = ?`, hash, expiresAt.UTC(), attempts, id, false)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ConsumeOTPAttempt decrements the attempt counter if any attempts remain
// and returns the new count.  ok is false when nothing was left to consume.
func (r *StudentRepo) ConsumeOTPAttempt(ctx context.Context, id string) (remaining int, ok bool, err error) {
	res, err := r.db.ExecContext(ctx, `UPDATE students
		SET otp_attempts_left = otp_attempts_left - 1
		WHERE id = ? AND verified = ? AND otp_attempts_left > 0`, id, false)
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	var left sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT otp_attempts_left FROM students WHERE id = ?", id).Scan(&left); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, ErrStudentNotFound
		}
		return 0, false, err
	}
	return int(left.Int64), n == 1, nil
}

// MarkVerified flips verified and clears every OTP field.  Only the first
// caller sees true; later calls match no row.
func (r *StudentRepo) MarkVerified(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE students
		SET verified = ?, otp_hash = NULL, otp_expires_at = NULL, otp_attempts_left = NULL
		WHERE id = ? AND verified = ?`, true, id, false)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// AddLibraryFeeTx adds amount to library_fee, treating NULL as zero.
func (r *StudentRepo) AddLibraryFeeTx(ctx context.Context, tx *sql.Tx, id string, amount int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE students SET library_fee = COALESCE(library_fee, 0) + ? WHERE id = ?", amount, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// FeeUpdate carries externally seeded balances.  Nil fields are left alone.
type FeeUpdate struct {
	HallFee *int64
	DeptFee *int64
	Hall    *string
	Room    *string
}

// UpdateFees applies the non-nil fields of u to the student.
func (r *StudentRepo) UpdateFees(ctx context.Context, id string, u FeeUpdate) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET
		hall_fee = COALESCE(?, hall_fee),
		dept_fee = COALESCE(?, dept_fee),
		hall     = COALESCE(?, hall),
		room     = COALESCE(?, room)
		WHERE id = ?`, u.HallFee, u.DeptFee, u.Hall, u.Room, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStudentNotFound
	}
	return nil
}
