package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/ruet-portal/portal-backend/internal/service"
)

// statusFor maps a service error to its HTTP status.  Anything unknown is a
// 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidEmailDomain),
		errors.Is(err, service.ErrEmailIDMismatch),
		errors.Is(err, service.ErrUnknownDepartmentCode),
		errors.Is(err, service.ErrPhotoType),
		errors.Is(err, service.ErrPhotoTooLarge),
		errors.Is(err, service.ErrPasswordTooLong),
		errors.Is(err, service.ErrInvalidOTP),
		errors.Is(err, service.ErrOTPExpired),
		errors.Is(err, service.ErrAlreadyIssued),
		errors.Is(err, service.ErrAlreadyAvailable):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrWrongPassword):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotVerified):
		return http.StatusForbidden
	case errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrIDTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": msg} with the mapped status.
func fail(c echo.Context, err error) error {
	return c.JSON(statusFor(err), echo.Map{"error": err.Error()})
}

// ErrorHandler replaces echo's default so framework errors (unknown route,
// bad method, recovered panics) keep the {"error": ...} body shape.
func ErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			log.WithError(err).WithField("route", c.Path()).Error("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, echo.Map{"error": msg})
		}
		if err != nil {
			log.WithError(err).Warn("write error response")
		}
	}
}
