package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ruet-portal/portal-backend/internal/middleware"
	"github.com/ruet-portal/portal-backend/internal/model"
	"github.com/ruet-portal/portal-backend/internal/service"
)

// LibraryHandler serves the book catalogue and the librarian desk.
type LibraryHandler struct {
	Library *service.LibraryService
}

func NewLibraryHandler(l *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{Library: l}
}

// ----- DTOs -----

type bookResp struct {
	BookID       string    `json:"bookId"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Category     string    `json:"category"`
	Status       string    `json:"status"`
	IssueDueDate *string   `json:"issueDueDate"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toBookResp(b model.Book) bookResp {
	r := bookResp{
		BookID:    b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Category:  b.Category,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
	}
	if b.IssueDueDate.Valid {
		d := b.IssueDueDate.String
		r.IssueDueDate = &d
	}
	return r
}

type addBookReq struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Category string `json:"category"`
}
type issueReq struct {
	StudentID string `json:"studentId"`
	BookID    string `json:"bookId"`
	DueDate   string `json:"dueDate"`
}
type returnReq struct {
	BookID     string `json:"bookId"`
	ReturnDate string `json:"returnDate"`
}

// NextBookID previews the id the next AddBook will receive.
func (h *LibraryHandler) NextBookID(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Library.NextBookID(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookId": id})
}

func (h *LibraryHandler) ListBooks(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	books, err := h.Library.ListBooks(ctx)
	if err != nil {
		return fail(c, err)
	}
	out := make([]bookResp, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResp(b))
	}
	return c.JSON(http.StatusOK, out)
}

// AddBook: {title, author, category}.  The id is allocated server side.
func (h *LibraryHandler) AddBook(c echo.Context) error {
	var req addBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Library.AddBook(ctx, service.AddBookInput{
		Title:    req.Title,
		Author:   req.Author,
		Category: req.Category,
	}, middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "book added", "bookId": b.ID})
}

// IssueBook: {studentId, bookId, dueDate}.
func (h *LibraryHandler) IssueBook(c echo.Context) error {
	var req issueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Library.IssueBook(ctx, req.StudentID, req.BookID, req.DueDate, middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "book issued",
		"bookId":    b.ID,
		"studentId": b.Status,
		"dueDate":   b.IssueDueDate.String,
	})
}

// ReturnBook: {bookId, returnDate}.  Late returns add the fine to the
// borrower's library fee.
func (h *LibraryHandler) ReturnBook(c echo.Context) error {
	var req returnReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Library.ReturnBook(ctx, req.BookID, req.ReturnDate, middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "book returned",
		"bookId":    res.BookID,
		"studentId": res.StudentID,
		"dueDate":   res.DueDate,
		"lateDays":  res.LateDays,
		"fine":      res.Fine,
	})
}

func (h *LibraryHandler) RemoveBook(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Library.RemoveBook(ctx, id, middleware.UserID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "book removed", "bookId": id})
}
