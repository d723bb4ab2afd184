package listorders

import (
	"time"

	"github.com/liblend/orderdesk/internal/core"
)

// OrderView is one order with its derived current status and composition.
// The list view leaves History empty; the detail view fills it.
type OrderView struct {
	Order    core.Order
	Status   core.OrderStatus
	StatusAt time.Time
	Items    []core.OrderItem
	History  []core.HistoryEntry
}

// ReaderOrders represents the query result containing all orders of one
// reader, newest status change first.
type ReaderOrders struct {
	ReaderTicket core.ReaderTicketString
	Orders       []OrderView
	Count        int
}
