package orderstats

import (
	"github.com/liblend/orderdesk/internal/core"
)

// Stats represents the query result: order counts per current status,
// the number of orders completed today, and the overall total.
type Stats struct {
	ByStatus  map[core.OrderStatus]int
	DoneToday int
	Total     int
}
