package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ruet-portal/portal-backend/internal/handler"
	"github.com/ruet-portal/portal-backend/internal/middleware"
	"github.com/ruet-portal/portal-backend/internal/utils"
)

// registerLibrary mounts the catalogue (public reads) and the librarian
// desk.  Mutations require a librarian token.
func registerLibrary(g *echo.Group, l *handler.LibraryHandler, jwtSecret string) {
	lg := g.Group("/library")
	lg.GET("/next-book-id", l.NextBookID)
	lg.GET("/books", l.ListBooks)

	desk := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleLibrarian),
	}
	lg.POST("/books", l.AddBook, desk...)
	lg.DELETE("/books/:id", l.RemoveBook, desk...)
	lg.POST("/issueBook", l.IssueBook, desk...)
	lg.POST("/returnBook", l.ReturnBook, desk...)
}
