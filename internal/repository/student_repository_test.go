package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruet-portal/portal-backend/internal/model"
)

func TestStudentRepoCreateAndGet(t *testing.T) {
	repo := NewStudentRepo(tempDB(t))
	ctx := context.Background()
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	insertStudent(t, repo, model.Student{
		ID:              "2203177",
		Name:            "Istiak",
		Email:           "2203177@student.ruet.ac.bd",
		HallFee:         sql.NullInt64{Int64: 560, Valid: true},
		OTPHash:         sql.NullString{String: "otp", Valid: true},
		OTPExpiresAt:    sql.NullTime{Time: expires, Valid: true},
		OTPAttemptsLeft: sql.NullInt64{Int64: 5, Valid: true},
	})

	s, err := repo.GetByID(ctx, "2203177")
	require.NoError(t, err)
	assert.Equal(t, "Istiak", s.Name)
	assert.False(t, s.Verified)
	assert.Equal(t, int64(560), s.TotalDue())
	assert.False(t, s.LibraryFee.Valid)
	assert.True(t, s.OTPExpiresAt.Time.Equal(expires))

	byEmail, err := repo.GetByEmail(ctx, "2203177@student.ruet.ac.bd")
	require.NoError(t, err)
	assert.Equal(t, s.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestStudentRepoDuplicateKeys(t *testing.T) {
	repo := NewStudentRepo(tempDB(t))
	ctx := context.Background()
	insertStudent(t, repo, model.Student{ID: "1", Name: "a", Email: "1@x"})

	create := func(s model.Student) error {
		s.Dept, s.PasswordHash, s.CreatedAt = "CE", "h", time.Now()
		tx, err := repo.DB().BeginTx(ctx, nil)
		require.NoError(t, err)
		defer tx.Rollback()
		return repo.CreateTx(ctx, tx, &s)
	}

	assert.ErrorIs(t, create(model.Student{ID: "2", Name: "b", Email: "1@x"}), ErrEmailExists)
	assert.ErrorIs(t, create(model.Student{ID: "1", Name: "b", Email: "2@x"}), ErrIDExists)

	ok, err := repo.EmailExists(ctx, "1@x")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.IDExists(ctx, "9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStudentRepoListOrdersByID(t *testing.T) {
	repo := NewStudentRepo(tempDB(t))
	for _, id := range []string{"3", "1", "2"} {
		insertStudent(t, repo, model.Student{ID: id, Name: id, Email: id + "@x"})
	}

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestStudentRepoOTPLifecycle(t *testing.T) {
	repo := NewStudentRepo(tempDB(t))
	ctx := context.Background()
	insertStudent(t, repo, model.Student{
		ID: "7", Name: "n", Email: "7@x",
		OTPHash:         sql.NullString{String: "old", Valid: true},
		OTPExpiresAt:    sql.NullTime{Time: time.Now().Add(time.Minute), Valid: true},
		OTPAttemptsLeft: sql.NullInt64{Int64: 2, Valid: true},
	})

	left, ok, err := repo.ConsumeOTPAttempt(ctx, "7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, left)

	_, _, _ = repo.ConsumeOTPAttempt(ctx, "7")
	left, ok, err = repo.ConsumeOTPAttempt(ctx, "7")
	require.NoError(t, err)
	assert.False(t, ok, "counter never goes below zero")
	assert.Equal(t, 0, left)

	replaced, err := repo.ReplaceOTP(ctx, "7", "new", time.Now().Add(10*time.Minute), 5)
	require.NoError(t, err)
	assert.True(t, replaced)

	first, err := repo.MarkVerified(ctx, "7")
	require.NoError(t, err)
	second, err := repo.MarkVerified(ctx, "7")
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	s, err := repo.GetByID(ctx, "7")
	require.NoError(t, err)
	assert.True(t, s.Verified)
	assert.False(t, s.OTPHash.Valid)
	assert.False(t, s.OTPExpiresAt.Valid)
	assert.False(t, s.OTPAttemptsLeft.Valid)

	replaced, err = repo.ReplaceOTP(ctx, "7", "again", time.Now(), 5)
	require.NoError(t, err)
	assert.False(t, replaced, "verified students never get a new OTP")
}

func TestStudentRepoFees(t *testing.T) {
	repo := NewStudentRepo(tempDB(t))
	ctx := context.Background()
	insertStudent(t, repo, model.Student{ID: "5", Name: "n", Email: "5@x"})

	hall, dept := int64(560), int64(590)
	require.NoError(t, repo.UpdateFees(ctx, "5", FeeUpdate{HallFee: &hall, DeptFee: &dept}))

	tx, err := repo.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.AddLibraryFeeTx(ctx, tx, "5", 27))
	require.NoError(t, tx.Commit())

	s, err := repo.GetByID(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, int64(1177), s.TotalDue())

	assert.ErrorIs(t, repo.UpdateFees(ctx, "nobody", FeeUpdate{HallFee: &hall}), ErrStudentNotFound)
}
