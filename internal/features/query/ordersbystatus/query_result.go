package ordersbystatus

import (
	"time"

	"github.com/liblend/orderdesk/internal/core"
)

// OrderView is one order with its derived current status and composition.
// The board view leaves History empty; the detail view fills it.
type OrderView struct {
	Order    core.Order
	Status   core.OrderStatus
	StatusAt time.Time
	Items    []core.OrderItem
	History  []core.HistoryEntry
}

// StaffOrders represents the query result for the staff board: all orders
// currently in one status, newest status change first.
type StaffOrders struct {
	Status core.OrderStatus
	Orders []OrderView
	Count  int
}
