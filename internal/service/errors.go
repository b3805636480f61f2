// Package service implements the portal's use cases on top of the
// repositories.  Every failure a client can cause is one of the sentinel
// errors below, possibly wrapped with detail.
package service

import "errors"

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidDate   = errors.New("dates must use YYYY-MM-DD")

	ErrInvalidEmailDomain    = errors.New("email must be an institutional student address")
	ErrEmailIDMismatch       = errors.New("email prefix must match student id")
	ErrUnknownDepartmentCode = errors.New("unknown department code")
	ErrPhotoType             = errors.New("photo must be a .jpg or .jpeg file")
	ErrPhotoTooLarge         = errors.New("photo must be at most 500 KB")
	ErrPasswordTooLong       = errors.New("password must be at most 72 bytes")
	ErrEmailTaken            = errors.New("email already registered")
	ErrIDTaken               = errors.New("student id already registered")
	ErrOTPDelivery           = errors.New("registered but failed to send OTP email; request a new code")
	ErrResendDelivery        = errors.New("failed to send OTP email")

	ErrStudentNotFound = errors.New("student not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrWrongPassword   = errors.New("wrong password")
	ErrNotVerified     = errors.New("email not verified")
	ErrTooManyAttempts = errors.New("too many attempts; request a new code")
	ErrOTPExpired      = errors.New("OTP expired; request a new code")
	ErrInvalidOTP      = errors.New("invalid OTP")

	ErrBookNotFound     = errors.New("book not found")
	ErrAlreadyIssued    = errors.New("book already issued")
	ErrAlreadyAvailable = errors.New("book is not issued")
)
