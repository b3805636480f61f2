package model

import (
	"database/sql"
	"time"
)

// Student represents a row in the `students` table.  Fee columns and OTP
// state are nullable; a NULL fee counts as zero wherever it is summed.
//
// Fields:
//
//	ID              – roll number, e.g. 2203177; primary key.
//	Dept            – department code derived from the roll number.
//	Hall, Room      – residential assignment, seeded externally.
//	HallFee, LibraryFee, DeptFee – outstanding balances in taka.
//	Verified        – set once the emailed OTP has been confirmed.
//	OTPHash         – bcrypt hash of the pending OTP.
//	OTPExpiresAt    – after this instant the pending OTP is rejected.
//	OTPAttemptsLeft – wrong guesses remaining before lockout.
//	PhotoPath       – file written by the photo store, if any.
type Student struct {
	ID              string
	Name            string
	Dept            string
	Hall            sql.NullString
	Room            sql.NullString
	Email           string
	PasswordHash    string
	HallFee         sql.NullInt64
	LibraryFee      sql.NullInt64
	DeptFee         sql.NullInt64
	Verified        bool
	OTPHash         sql.NullString
	OTPExpiresAt    sql.NullTime
	OTPAttemptsLeft sql.NullInt64
	PhotoPath       sql.NullString
	CreatedAt       time.Time
}

// TotalDue sums the three fee balances with NULL treated as zero.
func (s Student) TotalDue() int64 {
	return s.HallFee.Int64 + s.LibraryFee.Int64 + s.DeptFee.Int64
}
