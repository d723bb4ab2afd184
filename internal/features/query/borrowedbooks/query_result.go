package borrowedbooks

import (
	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

// BorrowedBooks represents the query result containing the items a reader
// currently has in hand, oldest hand-out first.
type BorrowedBooks struct {
	ReaderTicket core.ReaderTicketString
	Items        []core.OrderItem
	Count        int
}

// ReturningItems represents the query result containing the items other
// orders registered for return together with one order.
type ReturningItems struct {
	OrderID uuid.UUID
	Items   []core.OrderItem
	Count   int
}
