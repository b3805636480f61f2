package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ruet-portal/portal-backend/internal/metrics"
)

// Metrics records request counts and latencies by route template, so
// /student/:id is one series rather than one per student.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			done := metrics.RequestStarted()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}
			done(c.Request().Method, c.Path(), status, time.Since(start))
			return err
		}
	}
}
