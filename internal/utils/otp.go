package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	// OTPTTL is how long an issued code stays valid.
	OTPTTL = 10 * time.Minute
	// OTPMaxAttempts is the number of wrong guesses allowed per code.
	OTPMaxAttempts = 5

	otpMin = 100000
	otpMax = 999999
)

var (
	ErrOTPAttemptsExhausted = errors.New("too many OTP attempts")
	ErrOTPExpired           = errors.New("OTP expired")
	ErrOTPMismatch          = errors.New("invalid OTP")
)

// GenerateOTP returns a six digit code drawn uniformly from [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

// OTPState is the stored side of a pending code.  An empty Hash means no
// code is outstanding.
type OTPState struct {
	Hash         string
	ExpiresAt    time.Time
	AttemptsLeft int
}

// IssueOTP generates a code and the state to persist for it.  The plain
// code is returned only so it can be delivered.
func IssueOTP(cost int, now time.Time) (string, OTPState, error) {
	code, err := GenerateOTP()
	if err != nil {
		return "", OTPState{}, err
	}
	hash, err := HashPassword(code, cost)
	if err != nil {
		return "", OTPState{}, err
	}
	return code, OTPState{
		Hash:         hash,
		ExpiresAt:    now.Add(OTPTTL).UTC(),
		AttemptsLeft: OTPMaxAttempts,
	}, nil
}

// CheckOTP validates candidate against st.  Checks run in a fixed order:
// exhausted attempts, then expiry, then the hash.  Persisting the attempt
// decrement on ErrOTPMismatch is the caller's job.
func CheckOTP(st OTPState, candidate string, now time.Time) error {
	if st.AttemptsLeft <= 0 {
		return ErrOTPAttemptsExhausted
	}
	if st.Hash == "" || !now.Before(st.ExpiresAt) {
		return ErrOTPExpired
	}
	if !VerifyPassword(st.Hash, candidate) {
		return ErrOTPMismatch
	}
	return nil
}
