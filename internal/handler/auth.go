package handler

import (
	"context"  // provides context with cancellation for DB calls
	"errors"   // errors.Is against service sentinels
	"io"       // bounded read of the uploaded photo
	"net/http" // HTTP status codes and primitives
	"time"     // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/ruet-portal/portal-backend/internal/middleware"
	"github.com/ruet-portal/portal-backend/internal/service"
	"github.com/ruet-portal/portal-backend/internal/storage"
)

// Registration and OTP resend hash with bcrypt and talk to the SMTP relay,
// so they get more room than plain lookups.
const mailTimeout = 15 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

type verifyReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}
type resendReq struct {
	Email string `json:"email"`
}
type loginReq struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"` // accepted when identifier is empty
	Password   string `json:"password"`
}

// Register: multipart form with studentId, email, name, password and an
// optional photo file.  The account starts unverified and an OTP is mailed.
func (h *AuthHandler) Register(c echo.Context) error {
	in := service.RegisterInput{
		StudentID: c.FormValue("studentId"),
		Email:     c.FormValue("email"),
		Name:      c.FormValue("name"),
		Password:  c.FormValue("password"),
	}
	photo, err := readPhoto(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid photo upload"})
	}
	in.Photo = photo

	ctx, cancel := context.WithTimeout(c.Request().Context(), mailTimeout)
	defer cancel()

	res, err := h.Auth.Register(ctx, in)
	if errors.Is(err, service.ErrOTPDelivery) {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":     err.Error(),
			"studentId": res.StudentID,
			"email":     res.Email,
		})
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "registered; check your email for the OTP",
		"studentId": res.StudentID,
		"email":     res.Email,
		"dept":      res.Dept,
	})
}

// readPhoto returns nil when no photo part was sent.  At most one byte past
// the limit is read, which is enough for the size check to reject it.
func readPhoto(c echo.Context) (*service.PhotoUpload, error) {
	fh, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxPhotoBytes+1))
	if err != nil {
		return nil, err
	}
	return &service.PhotoUpload{Filename: fh.Filename, Data: data}, nil
}

// VerifyOTP: {email, otp}.  Wrong codes report the attempts left.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.VerifyOTP(ctx, req.Email, req.OTP)
	if err != nil {
		return fail(c, err)
	}
	if res.AlreadyVerified {
		return c.JSON(http.StatusOK, echo.Map{"message": "already verified"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}

// ResendOTP: {email}.  Issues a fresh code with a full set of attempts.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	var req resendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), mailTimeout)
	defer cancel()

	res, err := h.Auth.ResendOTP(ctx, req.Email)
	if err != nil {
		return fail(c, err)
	}
	if res.AlreadyVerified {
		return c.JSON(http.StatusOK, echo.Map{"message": "already verified"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "OTP sent"})
}

// Login: {identifier, password}.  Students and librarians share the
// endpoint; the email suffix decides which table is consulted.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	id := req.Identifier
	if id == "" {
		id = req.Email
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.Login(ctx, id, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Me echoes the identity carried by the bearer token.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"subject": middleware.UserID(c),
		"role":    middleware.Role(c),
		"name":    middleware.DisplayName(c),
	})
}
