package model

// Librarian is a row in the `librarians` table.  Librarians are created
// with portalctl and never through the HTTP API.
type Librarian struct {
	Email        string // librarians.email (primary key)
	Name         string // librarians.name
	PasswordHash string // librarians.password_hash
}
