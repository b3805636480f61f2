package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ruet-portal/portal-backend/internal/metrics"
	"github.com/ruet-portal/portal-backend/internal/model"
	"github.com/ruet-portal/portal-backend/internal/queue"
	"github.com/ruet-portal/portal-backend/internal/repository"
)

const (
	dateLayout = "2006-01-02"
	// FinePerLateDay is charged for each whole day past the due date.
	FinePerLateDay = 2
)

type LibraryService struct {
	books    *repository.BookRepo
	students *repository.StudentRepo
	events   queue.Publisher
	log      *logrus.Logger
	now      func() time.Time
}

func NewLibraryService(books *repository.BookRepo, students *repository.StudentRepo, events queue.Publisher, log *logrus.Logger) *LibraryService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &LibraryService{books: books, students: students, events: events, log: log, now: time.Now}
}

// publish never fails the calling operation.
func (s *LibraryService) publish(ctx context.Context, ev queue.LibraryEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"type": ev.Type, "book_id": ev.BookID}).
			Warn("library event not published")
	}
}

func (s *LibraryService) NextBookID(ctx context.Context) (string, error) {
	return s.books.NextID(ctx)
}

func (s *LibraryService) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.books.List(ctx)
}

type AddBookInput struct {
	Title    string
	Author   string
	Category string
}

// AddBook stores a new available book under a freshly allocated id.
func (s *LibraryService) AddBook(ctx context.Context, in AddBookInput, actor string) (*model.Book, error) {
	title := strings.TrimSpace(in.Title)
	author := strings.TrimSpace(in.Author)
	if title == "" || author == "" {
		return nil, ErrMissingFields
	}
	b, err := s.books.Create(ctx, title, author, strings.TrimSpace(in.Category), s.now())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.LibraryEvent{Type: queue.EventBookAdded, BookID: b.ID, Title: b.Title, Actor: actor})
	return b, nil
}

// IssueBook lends an available book to a student until dueDate.
func (s *LibraryService) IssueBook(ctx context.Context, studentID, bookID, dueDate, actor string) (*model.Book, error) {
	studentID, bookID, dueDate = strings.TrimSpace(studentID), strings.TrimSpace(bookID), strings.TrimSpace(dueDate)
	if studentID == "" || bookID == "" || dueDate == "" {
		return nil, ErrMissingFields
	}
	if _, err := time.Parse(dateLayout, dueDate); err != nil {
		return nil, ErrInvalidDate
	}

	b, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, mapBookErr(err)
	}
	if !b.Available() {
		return nil, fmt.Errorf("%w to %s", ErrAlreadyIssued, b.Status)
	}
	if ok, err := s.students.IDExists(ctx, studentID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrStudentNotFound
	}

	issued, err := s.books.Issue(ctx, bookID, studentID, dueDate)
	if err != nil {
		return nil, err
	}
	if !issued {
		// lost a race: report whatever state won
		cur, err := s.books.GetByID(ctx, bookID)
		if err != nil {
			return nil, mapBookErr(err)
		}
		return nil, fmt.Errorf("%w to %s", ErrAlreadyIssued, cur.Status)
	}

	b.Status = studentID
	b.IssueDueDate.String, b.IssueDueDate.Valid = dueDate, true
	s.publish(ctx, queue.LibraryEvent{
		Type: queue.EventBookIssued, BookID: bookID, Title: b.Title,
		StudentID: studentID, DueDate: dueDate, Actor: actor,
	})
	return b, nil
}

// ReturnResult describes a completed return.
type ReturnResult struct {
	BookID    string `json:"bookId"`
	StudentID string `json:"studentId"`
	DueDate   string `json:"dueDate"`
	LateDays  int    `json:"lateDays"`
	Fine      int64  `json:"fine"`
}

// LateFine is FinePerLateDay for every whole day returnDate is past due,
// zero when on time or early.
func LateFine(due, returned time.Time) (lateDays int, fine int64) {
	lateDays = int(returned.Sub(due).Hours() / 24)
	if lateDays <= 0 {
		return lateDays, 0
	}
	return lateDays, int64(lateDays) * FinePerLateDay
}

// ReturnBook puts an issued book back on the shelf and charges the late
// fine to the borrower, all in one transaction.
func (s *LibraryService) ReturnBook(ctx context.Context, bookID, returnDate, actor string) (*ReturnResult, error) {
	bookID, returnDate = strings.TrimSpace(bookID), strings.TrimSpace(returnDate)
	if bookID == "" || returnDate == "" {
		return nil, ErrMissingFields
	}
	returned, err := time.Parse(dateLayout, returnDate)
	if err != nil {
		return nil, ErrInvalidDate
	}

	tx, err := s.books.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.books.GetByIDTx(ctx, tx, bookID)
	if err != nil {
		return nil, mapBookErr(err)
	}
	if b.Available() {
		return nil, ErrAlreadyAvailable
	}

	res := &ReturnResult{BookID: bookID, StudentID: b.Status, DueDate: b.IssueDueDate.String}
	if due, err := time.Parse(dateLayout, b.IssueDueDate.String); err == nil {
		res.LateDays, res.Fine = LateFine(due, returned)
	} else {
		s.log.WithField("book_id", bookID).Warnf("stored due date %q unreadable; no fine charged", b.IssueDueDate.String)
	}

	released, err := s.books.ReleaseTx(ctx, tx, bookID, b.Status)
	if err != nil {
		return nil, err
	}
	if !released {
		return nil, ErrAlreadyAvailable
	}
	if res.Fine > 0 {
		err := s.students.AddLibraryFeeTx(ctx, tx, b.Status, res.Fine)
		if errors.Is(err, repository.ErrStudentNotFound) {
			s.log.WithFields(logrus.Fields{"book_id": bookID, "student_id": b.Status}).
				Warn("borrower no longer exists; fine not recorded")
		} else if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	metrics.RecordFine(res.Fine)
	s.publish(ctx, queue.LibraryEvent{
		Type: queue.EventBookReturned, BookID: bookID, Title: b.Title, StudentID: res.StudentID,
		DueDate: res.DueDate, ReturnDate: returnDate, LateDays: res.LateDays, Fine: res.Fine, Actor: actor,
	})
	return res, nil
}

// RemoveBook deletes a book even while it is issued; the event keeps the
// borrower so the open loan can still be traced.
func (s *LibraryService) RemoveBook(ctx context.Context, bookID, actor string) error {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return ErrMissingFields
	}
	b, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return mapBookErr(err)
	}
	if err := s.books.Delete(ctx, bookID); err != nil {
		return mapBookErr(err)
	}

	ev := queue.LibraryEvent{Type: queue.EventBookRemoved, BookID: bookID, Title: b.Title, Actor: actor}
	if !b.Available() {
		ev.StudentID, ev.DueDate = b.Status, b.IssueDueDate.String
		s.log.WithFields(logrus.Fields{"book_id": bookID, "student_id": b.Status}).Warn("removed an issued book")
	}
	s.publish(ctx, ev)
	return nil
}

func mapBookErr(err error) error {
	if errors.Is(err, repository.ErrBookNotFound) {
		return ErrBookNotFound
	}
	return err
}
