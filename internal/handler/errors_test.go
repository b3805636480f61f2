package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/ruet-portal/portal-backend/internal/logging"
	"github.com/ruet-portal/portal-backend/internal/service"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrMissingFields, http.StatusBadRequest},
		{service.ErrUnknownDepartmentCode, http.StatusBadRequest},
		{service.ErrPasswordTooLong, http.StatusBadRequest},
		{fmt.Errorf("%w; 3 attempts left", service.ErrInvalidOTP), http.StatusBadRequest},
		{fmt.Errorf("%w to 1903001", service.ErrAlreadyIssued), http.StatusBadRequest},
		{service.ErrWrongPassword, http.StatusUnauthorized},
		{service.ErrNotVerified, http.StatusForbidden},
		{service.ErrAccountNotFound, http.StatusNotFound},
		{service.ErrBookNotFound, http.StatusNotFound},
		{service.ErrEmailTaken, http.StatusConflict},
		{service.ErrIDTaken, http.StatusConflict},
		{service.ErrTooManyAttempts, http.StatusTooManyRequests},
		{service.ErrOTPDelivery, http.StatusInternalServerError},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestErrorHandlerKeepsErrorShape(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logging.Discard())
	e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"boom"}`, rec.Body.String())
}
