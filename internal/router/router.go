package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/ruet-portal/portal-backend/internal/handler"
	"github.com/ruet-portal/portal-backend/internal/metrics"
)

// Handlers bundles everything the routes dispatch to.  AuthLimit guards
// the /auth group; JWTSecret verifies bearer tokens.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Students  *handler.StudentHandler
	Library   *handler.LibraryHandler
	AuthLimit echo.MiddlewareFunc
	JWTSecret string
}

// RegisterRoutes wires every endpoint.  Probe endpoints live at the root
// only; the API is mounted both at the root and under /api, the prefix the
// existing frontend calls.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	for _, prefix := range []string{"", "/api"} {
		g := e.Group(prefix)
		registerStudents(g, h.Students)
		registerAuth(g, h.Auth, h.AuthLimit, h.JWTSecret)
		registerLibrary(g, h.Library, h.JWTSecret)
	}
}

func registerStudents(g *echo.Group, s *handler.StudentHandler) {
	g.GET("/student/:id", s.Get)
	g.GET("/students", s.List)
}
