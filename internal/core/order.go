package core

import (
	"time"

	"github.com/google/uuid"
)

// ReaderTicketString identifies a reader by their library card ticket.
type ReaderTicketString = string

// BookIDString is a canonical book identifier in the form "collection_recordID".
type BookIDString = string

// Order is one fulfillment request by a reader at one library.
// It is immutable after creation; everything that changes over its lifetime
// lives in its history ledger and its items.
type Order struct {
	ID           uuid.UUID
	ReaderTicket ReaderTicketString
	LibraryID    int64
}

// HistoryEntry is one append-only ledger row recording a status transition.
// The ID is assigned by the store (a monotonically increasing sequence) and
// breaks ties between entries with equal timestamps.
type HistoryEntry struct {
	ID          int64
	OrderID     uuid.UUID
	Status      OrderStatus
	Description string
	OccurredAt  time.Time
	StaffTicket *string // nil for reader-initiated and system transitions
}

// OrderItem is one requested book line within an order.
type OrderItem struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	BookID        BookIDString
	Status        ItemStatus
	Description   *string
	OrderToReturn *uuid.UUID // the order whose completion will register this copy as returned
	HandedAt      *time.Time
	ToReturnAt    *time.Time
	ReturnedAt    *time.Time
	AnalogousItem *uuid.UUID // substitute item spawned when this book was unavailable
}

// CurrentStatus derives the current status of an order from its history:
// the status of the entry with the greatest (OccurredAt, ID) pair.
// The second return value is false for an order without any history, which
// must not occur for a properly created order.
func CurrentStatus(history []HistoryEntry) (OrderStatus, bool) {
	if len(history) == 0 {
		return "", false
	}

	latest := history[0]
	for _, entry := range history[1:] {
		if entry.OccurredAt.After(latest.OccurredAt) ||
			(entry.OccurredAt.Equal(latest.OccurredAt) && entry.ID > latest.ID) {
			latest = entry
		}
	}

	return latest.Status, true
}

// ToOccurredAt normalizes a timestamp for history entries and item dates:
// UTC with microsecond precision, matching what Postgres stores.
func ToOccurredAt(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
