package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ruet-portal/portal-backend/internal/handler"
	"github.com/ruet-portal/portal-backend/internal/middleware"
)

// registerAuth mounts the account endpoints.  Everything that takes a
// password or a code sits behind the token bucket.
func registerAuth(g *echo.Group, a *handler.AuthHandler, limit echo.MiddlewareFunc, jwtSecret string) {
	ag := g.Group("/auth")

	open := ag.Group("")
	if limit != nil {
		open.Use(limit)
	}
	open.POST("/register", a.Register)
	open.POST("/verify-otp", a.VerifyOTP)
	open.POST("/resend-otp", a.ResendOTP)
	open.POST("/login", a.Login)

	ag.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}
