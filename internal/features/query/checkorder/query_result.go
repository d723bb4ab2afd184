package checkorder

import (
	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

// OrderCheck represents the query result: the order's items partitioned
// against the reader's live loans. Found items have a matching loan,
// NotFound items have none, and Additional loans match no item at all.
type OrderCheck struct {
	OrderID      uuid.UUID
	ReaderTicket core.ReaderTicketString
	Found        []core.OrderItem
	NotFound     []core.OrderItem
	Additional   []core.Loan
}
