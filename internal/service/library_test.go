package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruet-portal/portal-backend/internal/model"
	"github.com/ruet-portal/portal-backend/internal/queue"
)

func (f *fixture) addBook(t *testing.T, title string) *model.Book {
	t.Helper()
	b, err := f.library.AddBook(context.Background(), AddBookInput{Title: title, Author: "Author", Category: "CS"}, "desk@library.ruet.ac.bd")
	require.NoError(t, err)
	return b
}

func TestAddBookAllocatesSequentialIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	next, err := f.library.NextBookID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BK-0001", next)

	b := f.addBook(t, "The Go Programming Language")
	assert.Equal(t, "BK-0001", b.ID)
	assert.Equal(t, model.BookAvailable, b.Status)

	next, err = f.library.NextBookID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BK-0002", next)

	_, err = f.library.AddBook(ctx, AddBookInput{Title: " ", Author: "x"}, "")
	assert.ErrorIs(t, err, ErrMissingFields)

	evs := f.events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, queue.EventBookAdded, evs[0].Type)
}

func TestIssueThenReturnRestoresBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedStudent(t, "2203177", "2203177@student.ruet.ac.bd", "pw", nil, nil, nil)
	b := f.addBook(t, "SICP")

	issued, err := f.library.IssueBook(ctx, "2203177", b.ID, "2026-03-01", "desk")
	require.NoError(t, err)
	assert.Equal(t, "2203177", issued.Status)
	assert.Equal(t, "2026-03-01", issued.IssueDueDate.String)

	res, err := f.library.ReturnBook(ctx, b.ID, "2026-03-01", "desk")
	require.NoError(t, err)
	assert.Equal(t, 0, res.LateDays)
	assert.Equal(t, int64(0), res.Fine)

	got, err := f.books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookAvailable, got.Status)
	assert.False(t, got.IssueDueDate.Valid)

	st, err := f.students.GetByID(ctx, "2203177")
	require.NoError(t, err)
	assert.False(t, st.LibraryFee.Valid, "no fine, library fee untouched")
}

func TestReturnLateChargesFine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedStudent(t, "2203177", "2203177@student.ruet.ac.bd", "pw", i64(560), i64(19), i64(590))
	b := f.addBook(t, "TAOCP")
	_, err := f.library.IssueBook(ctx, "2203177", b.ID, "2026-03-01", "desk")
	require.NoError(t, err)

	res, err := f.library.ReturnBook(ctx, b.ID, "2026-03-05", "desk")
	require.NoError(t, err)
	assert.Equal(t, 4, res.LateDays)
	assert.Equal(t, int64(8), res.Fine)
	assert.Equal(t, "2203177", res.StudentID)

	p, err := f.student.Get(ctx, "2203177")
	require.NoError(t, err)
	assert.Equal(t, int64(27), p.LibraryFee)
	assert.Equal(t, int64(1177), p.Due.Total)

	evs := f.events.Events()
	last := evs[len(evs)-1]
	assert.Equal(t, queue.EventBookReturned, last.Type)
	assert.Equal(t, int64(8), last.Fine)
}

func TestReturnLateWithNullLibraryFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedStudent(t, "2203177", "2203177@student.ruet.ac.bd", "pw", nil, nil, nil)
	b := f.addBook(t, "K&R")
	_, err := f.library.IssueBook(ctx, "2203177", b.ID, "2026-03-01", "desk")
	require.NoError(t, err)

	_, err = f.library.ReturnBook(ctx, b.ID, "2026-03-02", "desk")
	require.NoError(t, err)

	st, err := f.students.GetByID(ctx, "2203177")
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.LibraryFee.Int64)
}

func TestIssueErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedStudent(t, "2203177", "2203177@student.ruet.ac.bd", "pw", nil, nil, nil)
	f.seedStudent(t, "2203178", "2203178@student.ruet.ac.bd", "pw", nil, nil, nil)
	b := f.addBook(t, "Dune")

	_, err := f.library.IssueBook(ctx, "", b.ID, "2026-03-01", "")
	assert.ErrorIs(t, err, ErrMissingFields)
	_, err = f.library.IssueBook(ctx, "2203177", b.ID, "03/01/2026", "")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = f.library.IssueBook(ctx, "2203177", "BK-9999", "2026-03-01", "")
	assert.ErrorIs(t, err, ErrBookNotFound)
	_, err = f.library.IssueBook(ctx, "9999999", b.ID, "2026-03-01", "")
	assert.ErrorIs(t, err, ErrStudentNotFound)

	_, err = f.library.IssueBook(ctx, "2203177", b.ID, "2026-03-01", "")
	require.NoError(t, err)
	_, err = f.library.IssueBook(ctx, "2203178", b.ID, "2026-03-09", "")
	require.ErrorIs(t, err, ErrAlreadyIssued)
	assert.Contains(t, err.Error(), "2203177", "names the current borrower")

	got, err := f.books.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "2203177", got.Status)
	assert.Equal(t, "2026-03-01", got.IssueDueDate.String)
}

func TestReturnErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "Dune")

	_, err := f.library.ReturnBook(ctx, b.ID, "", "")
	assert.ErrorIs(t, err, ErrMissingFields)
	_, err = f.library.ReturnBook(ctx, b.ID, "tomorrow", "")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = f.library.ReturnBook(ctx, "BK-9999", "2026-03-01", "")
	assert.ErrorIs(t, err, ErrBookNotFound)
	_, err = f.library.ReturnBook(ctx, b.ID, "2026-03-01", "")
	assert.ErrorIs(t, err, ErrAlreadyAvailable)
}

func TestRemoveBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedStudent(t, "2203177", "2203177@student.ruet.ac.bd", "pw", nil, nil, nil)
	a := f.addBook(t, "A")
	b := f.addBook(t, "B")
	_, err := f.library.IssueBook(ctx, "2203177", b.ID, "2026-03-01", "")
	require.NoError(t, err)

	require.NoError(t, f.library.RemoveBook(ctx, a.ID, "desk"))
	require.NoError(t, f.library.RemoveBook(ctx, b.ID, "desk"), "issued books may be removed")
	assert.ErrorIs(t, f.library.RemoveBook(ctx, b.ID, "desk"), ErrBookNotFound)

	evs := f.events.Events()
	last := evs[len(evs)-1]
	assert.Equal(t, queue.EventBookRemoved, last.Type)
	assert.Equal(t, "2203177", last.StudentID)

	next, err := f.library.NextBookID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BK-0003", next, "removed ids are not reused")
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.events.Err = errors.New("broker down")

	b, err := f.library.AddBook(context.Background(), AddBookInput{Title: "t", Author: "a"}, "")
	require.NoError(t, err)
	assert.Equal(t, "BK-0001", b.ID)
}

func TestLateFine(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(dateLayout, s)
		require.NoError(t, err)
		return d
	}
	tests := []struct {
		due, returned string
		days          int
		fine          int64
	}{
		{"2026-03-01", "2026-03-01", 0, 0},
		{"2026-03-01", "2026-02-20", -9, 0},
		{"2026-03-01", "2026-03-02", 1, 2},
		{"2026-02-27", "2026-03-02", 3, 6},
		{"2025-12-31", "2026-01-31", 31, 62},
	}
	for _, tt := range tests {
		days, fine := LateFine(day(tt.due), day(tt.returned))
		assert.Equal(t, tt.days, days, tt.due+"->"+tt.returned)
		assert.Equal(t, tt.fine, fine, tt.due+"->"+tt.returned)
	}
}
