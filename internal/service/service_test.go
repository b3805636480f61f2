package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ruet-portal/portal-backend/internal/database"
	"github.com/ruet-portal/portal-backend/internal/logging"
	"github.com/ruet-portal/portal-backend/internal/mail"
	"github.com/ruet-portal/portal-backend/internal/model"
	"github.com/ruet-portal/portal-backend/internal/queue"
	"github.com/ruet-portal/portal-backend/internal/repository"
	"github.com/ruet-portal/portal-backend/internal/storage"
	"github.com/ruet-portal/portal-backend/internal/utils"
)

// =============================================================================
// Test Helpers
// =============================================================================

const testSecret = "this-is-a-test-secret-with-32-bytes!"

type fixture struct {
	db         *sql.DB
	students   *repository.StudentRepo
	librarians *repository.LibrarianRepo
	books      *repository.BookRepo
	mailer     *mail.Recorder
	events     *queue.MemoryPublisher
	photoDir   string

	auth    *AuthService
	library *LibraryService
	student *StudentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := database.OpenSQLite(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	f := &fixture{
		db:         db,
		students:   repository.NewStudentRepo(db),
		librarians: repository.NewLibrarianRepo(db),
		books:      repository.NewBookRepo(db, database.SQLite),
		mailer:     &mail.Recorder{},
		events:     &queue.MemoryPublisher{},
		photoDir:   filepath.Join(dir, "photos"),
	}
	log := logging.Discard()
	f.auth = NewAuthService(AuthConfig{
		JWTSecret:        testSecret,
		AccessTTL:        time.Hour,
		BcryptCost:       bcrypt.MinCost,
		StudentDomain:    "student.ruet.ac.bd",
		LibrarianDomain:  "library.ruet.ac.bd",
		DemoStudentEmail: "demo@example.com",
	}, f.students, f.librarians, storage.NewPhotoStore(f.photoDir), f.mailer, log)
	f.library = NewLibraryService(f.books, f.students, f.events, log)
	f.student = NewStudentService(f.students)
	return f
}

// seedStudent inserts a verified student with the given fees (nil = NULL).
func (f *fixture) seedStudent(t *testing.T, id, email, password string, hall, library, dept *int64) {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	s := &model.Student{
		ID: id, Name: "Student " + id, Dept: "CSE", Email: email, PasswordHash: hash,
		Verified: true, CreatedAt: time.Now().UTC(),
	}
	for dst, v := range map[*sql.NullInt64]*int64{&s.HallFee: hall, &s.LibraryFee: library, &s.DeptFee: dept} {
		if v != nil {
			*dst = sql.NullInt64{Int64: *v, Valid: true}
		}
	}
	ctx := context.Background()
	tx, err := f.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, f.students.CreateTx(ctx, tx, s))
	require.NoError(t, tx.Commit())
}

func (f *fixture) seedLibrarian(t *testing.T, email, password string) {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.librarians.Create(context.Background(), model.Librarian{Email: email, Name: "Desk", PasswordHash: hash}))
}

func i64(v int64) *int64 { return &v }
