// Package queue carries library domain events over RabbitMQ.
package queue

import "time"

// LibraryQueueName is the durable queue library events are published to.
const LibraryQueueName = "library.events"

// Library event types.
const (
	EventBookAdded    = "book.added"
	EventBookIssued   = "book.issued"
	EventBookReturned = "book.returned"
	EventBookRemoved  = "book.removed"
)

// LibraryEvent is published after every successful library mutation.  It
// holds enough to audit the change without querying the database.
type LibraryEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	BookID     string    `json:"book_id"`
	Title      string    `json:"title,omitempty"`
	StudentID  string    `json:"student_id,omitempty"`
	DueDate    string    `json:"due_date,omitempty"`
	ReturnDate string    `json:"return_date,omitempty"`
	LateDays   int       `json:"late_days,omitempty"`
	Fine       int64     `json:"fine,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
