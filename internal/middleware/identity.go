package middleware

// identity.go holds the context keys JWTAuth fills and the accessors the
// handlers and the rate limiter read them through.

import "github.com/labstack/echo/v4"

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxName   = "name"
)

// UserID returns the token subject (student id or librarian email), or
// "" for anonymous requests.
func UserID(c echo.Context) string { return ctxString(c, ctxUserID) }

// Role returns the authenticated role, or "".
func Role(c echo.Context) string { return ctxString(c, ctxRole) }

// DisplayName returns the name claim, or "".
func DisplayName(c echo.Context) string { return ctxString(c, ctxName) }

func ctxString(c echo.Context, key string) string {
	if s, ok := c.Get(key).(string); ok {
		return s
	}
	return ""
}
