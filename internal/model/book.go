package model

import (
	"database/sql"
	"time"
)

// BookAvailable is the status of a book on the shelf.  Any other status
// value is the id of the student holding it.
const BookAvailable = "available"

// Book is a row in the `books` table.  Status and IssueDueDate always
// change together: IssueDueDate is set exactly while the book is issued.
type Book struct {
	ID           string         // BK-0001 style, never reused
	Title        string
	Author       string
	Category     string
	Status       string         // BookAvailable or borrower id
	IssueDueDate sql.NullString // YYYY-MM-DD
	CreatedAt    time.Time
}

// Available reports whether the book can be issued.
func (b Book) Available() bool { return b.Status == BookAvailable }
