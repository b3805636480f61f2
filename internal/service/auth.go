package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ruet-portal/portal-backend/internal/mail"
	"github.com/ruet-portal/portal-backend/internal/metrics"
	"github.com/ruet-portal/portal-backend/internal/model"
	"github.com/ruet-portal/portal-backend/internal/repository"
	"github.com/ruet-portal/portal-backend/internal/storage"
	"github.com/ruet-portal/portal-backend/internal/utils"
)

// AuthConfig holds the knobs of registration and login.
type AuthConfig struct {
	JWTSecret        string
	AccessTTL        time.Duration
	BcryptCost       int
	StudentDomain    string // e.g. student.ruet.ac.bd
	LibrarianDomain  string // e.g. library.ruet.ac.bd
	DemoStudentEmail string // optional; logs in as a student despite its domain
}

// AuthService registers students, verifies their OTPs and logs in both
// students and librarians.
type AuthService struct {
	cfg        AuthConfig
	students   *repository.StudentRepo
	librarians *repository.LibrarianRepo
	photos     *storage.PhotoStore
	mailer     mail.Mailer
	log        *logrus.Logger
	now        func() time.Time

	studentEmail *regexp.Regexp
}

func NewAuthService(cfg AuthConfig, students *repository.StudentRepo, librarians *repository.LibrarianRepo,
	photos *storage.PhotoStore, mailer mail.Mailer, log *logrus.Logger) *AuthService {
	cfg.StudentDomain = strings.ToLower(cfg.StudentDomain)
	cfg.LibrarianDomain = strings.ToLower(cfg.LibrarianDomain)
	cfg.DemoStudentEmail = strings.ToLower(strings.TrimSpace(cfg.DemoStudentEmail))
	return &AuthService{
		cfg:          cfg,
		students:     students,
		librarians:   librarians,
		photos:       photos,
		mailer:       mailer,
		log:          log,
		now:          time.Now,
		studentEmail: regexp.MustCompile(`^([^@\s]+)@(?i:` + regexp.QuoteMeta(cfg.StudentDomain) + `)$`),
	}
}

// PhotoUpload is an optional registration photo.
type PhotoUpload struct {
	Filename string
	Data     []byte
}

type RegisterInput struct {
	StudentID string
	Email     string
	Name      string
	Password  string
	Photo     *PhotoUpload
}

type RegisterResult struct {
	StudentID string `json:"studentId"`
	Email     string `json:"email"`
	Dept      string `json:"dept"`
}

// Register validates the input, stores an unverified student with a fresh
// OTP and emails the code.  Validation runs before anything is written.
// If only the email fails, the student stays registered and the result is
// returned together with ErrOTPDelivery.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	id := strings.TrimSpace(in.StudentID)
	rawEmail := strings.TrimSpace(in.Email)
	email := strings.ToLower(rawEmail)
	name := strings.TrimSpace(in.Name)
	if id == "" || email == "" || name == "" || strings.TrimSpace(in.Password) == "" {
		return nil, ErrMissingFields
	}
	if len(in.Password) > utils.MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	// the domain is case-insensitive, the local part must equal the id as typed
	m := s.studentEmail.FindStringSubmatch(rawEmail)
	if m == nil {
		return nil, ErrInvalidEmailDomain
	}
	if m[1] != id {
		return nil, ErrEmailIDMismatch
	}
	dept, err := DepartmentFor(id)
	if err != nil {
		return nil, err
	}
	if in.Photo != nil {
		switch err := storage.ValidatePhoto(in.Photo.Filename, len(in.Photo.Data)); {
		case errors.Is(err, storage.ErrUnsupportedType):
			return nil, ErrPhotoType
		case errors.Is(err, storage.ErrTooLarge):
			return nil, ErrPhotoTooLarge
		}
	}

	if taken, err := s.students.EmailExists(ctx, email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := s.students.IDExists(ctx, id); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrIDTaken
	}

	pwHash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	code, otp, err := utils.IssueOTP(s.cfg.BcryptCost, now)
	if err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}

	st := &model.Student{
		ID:              id,
		Name:            name,
		Dept:            dept,
		Email:           email,
		PasswordHash:    pwHash,
		OTPHash:         sql.NullString{String: otp.Hash, Valid: true},
		OTPExpiresAt:    sql.NullTime{Time: otp.ExpiresAt, Valid: true},
		OTPAttemptsLeft: sql.NullInt64{Int64: int64(otp.AttemptsLeft), Valid: true},
		CreatedAt:       now,
	}
	if in.Photo != nil {
		st.PhotoPath = sql.NullString{String: s.photos.PathFor(id), Valid: true}
	}
	if err := s.create(ctx, st, in.Photo); err != nil {
		return nil, err
	}

	res := &RegisterResult{StudentID: id, Email: email, Dept: dept}
	s.log.WithFields(logrus.Fields{"student_id": id, "dept": dept}).Info("student registered")
	if err := s.sendOTP(ctx, email, name, code); err != nil {
		return res, ErrOTPDelivery
	}
	return res, nil
}

// create inserts the student and writes the photo atomically: a failed
// photo write rolls the row back, a failed commit removes the photo.
func (s *AuthService) create(ctx context.Context, st *model.Student, photo *PhotoUpload) error {
	tx, err := s.students.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.students.CreateTx(ctx, tx, st); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return ErrEmailTaken
		case errors.Is(err, repository.ErrIDExists):
			return ErrIDTaken
		}
		return err
	}
	if photo != nil {
		if _, err := s.photos.Save(st.ID, photo.Data); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		if photo != nil {
			_ = s.photos.Remove(st.ID)
		}
		return err
	}
	committed = true
	return nil
}

func (s *AuthService) sendOTP(ctx context.Context, email, name, code string) error {
	subject, body := mail.OTPMessage(name, code, int(utils.OTPTTL/time.Minute))
	err := s.mailer.Send(ctx, email, subject, body)
	metrics.RecordOTPDelivery(err == nil)
	if err != nil {
		s.log.WithError(err).WithField("email", email).Error("otp delivery failed")
	}
	return err
}

// VerifyResult reports whether the account was verified before this call.
type VerifyResult struct {
	AlreadyVerified bool `json:"alreadyVerified"`
}

// VerifyOTP checks a code against the pending OTP.  Every wrong code costs
// one attempt; once none remain even the right code is refused.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*VerifyResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, ErrMissingFields
	}
	st, err := s.students.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrStudentNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}
	if st.Verified {
		return &VerifyResult{AlreadyVerified: true}, nil
	}

	state := utils.OTPState{
		Hash:         st.OTPHash.String,
		ExpiresAt:    st.OTPExpiresAt.Time,
		AttemptsLeft: int(st.OTPAttemptsLeft.Int64),
	}
	switch err := utils.CheckOTP(state, code, s.now()); {
	case errors.Is(err, utils.ErrOTPAttemptsExhausted):
		return nil, ErrTooManyAttempts
	case errors.Is(err, utils.ErrOTPExpired):
		return nil, ErrOTPExpired
	case errors.Is(err, utils.ErrOTPMismatch):
		left, ok, err := s.students.ConsumeOTPAttempt(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrTooManyAttempts
		}
		return nil, fmt.Errorf("%w; %d attempts left", ErrInvalidOTP, left)
	case err != nil:
		return nil, err
	}

	first, err := s.students.MarkVerified(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	if first {
		s.log.WithField("student_id", st.ID).Info("student verified")
	}
	return &VerifyResult{AlreadyVerified: !first}, nil
}

// ResendOTP replaces the pending code with a new one and a full set of
// attempts.  Verified students get a no-op success.
func (s *AuthService) ResendOTP(ctx context.Context, email string) (*VerifyResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrMissingFields
	}
	st, err := s.students.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrStudentNotFound) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}
	if st.Verified {
		return &VerifyResult{AlreadyVerified: true}, nil
	}

	code, otp, err := utils.IssueOTP(s.cfg.BcryptCost, s.now())
	if err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}
	replaced, err := s.students.ReplaceOTP(ctx, st.ID, otp.Hash, otp.ExpiresAt, otp.AttemptsLeft)
	if err != nil {
		return nil, err
	}
	if !replaced {
		// verified between the read and the update
		return &VerifyResult{AlreadyVerified: true}, nil
	}
	if err := s.sendOTP(ctx, email, st.Name, code); err != nil {
		return nil, ErrResendDelivery
	}
	return &VerifyResult{}, nil
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Role      string    `json:"role"`
	StudentID string    `json:"studentId,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
}

// RoleFor picks the account kind from the email suffix, "" if neither.
func (s *AuthService) RoleFor(email string) string {
	switch {
	case strings.HasSuffix(email, "@"+s.cfg.StudentDomain),
		s.cfg.DemoStudentEmail != "" && email == s.cfg.DemoStudentEmail:
		return utils.RoleStudent
	case strings.HasSuffix(email, "@"+s.cfg.LibrarianDomain):
		return utils.RoleLibrarian
	}
	return ""
}

// Login authenticates a student or librarian and issues an access token.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (res *LoginResult, err error) {
	email := strings.ToLower(strings.TrimSpace(identifier))
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	role := s.RoleFor(email)
	defer func() { metrics.RecordLogin(role, err == nil) }()

	var subject, name, studentID string
	switch role {
	case utils.RoleStudent:
		st, err := s.students.GetByEmail(ctx, email)
		if errors.Is(err, repository.ErrStudentNotFound) {
			return nil, ErrAccountNotFound
		}
		if err != nil {
			return nil, err
		}
		if !utils.VerifyPassword(st.PasswordHash, password) {
			return nil, ErrWrongPassword
		}
		if !st.Verified {
			return nil, ErrNotVerified
		}
		subject, name, studentID = st.ID, st.Name, st.ID
	case utils.RoleLibrarian:
		l, err := s.librarians.GetByEmail(ctx, email)
		if errors.Is(err, repository.ErrLibrarianNotFound) {
			return nil, ErrAccountNotFound
		}
		if err != nil {
			return nil, err
		}
		if !utils.VerifyPassword(l.PasswordHash, password) {
			return nil, ErrWrongPassword
		}
		subject, name = l.Email, l.Name
	default:
		return nil, ErrAccountNotFound
	}

	tok, err := utils.NewAccessToken(s.cfg.JWTSecret, subject, role, name, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.log.WithFields(logrus.Fields{"role": role, "subject": subject}).Info("login")
	return &LoginResult{
		Token:     tok.Token,
		ExpiresAt: tok.Exp,
		Role:      role,
		StudentID: studentID,
		Name:      name,
		Email:     email,
	}, nil
}
