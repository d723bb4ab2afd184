package ordersbystatus

import (
	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

const (
	queryType       = "OrdersByStatus"
	detailQueryType = "StaffOrderDetail"
)

// Query represents the intent to list all orders currently in one status.
type Query struct {
	Status core.OrderStatus
}

// BuildQuery creates a new Query with the provided status.
func BuildQuery(status core.OrderStatus) Query {
	return Query{
		Status: status,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}

// DetailQuery represents the intent of a staff member to view one order.
type DetailQuery struct {
	OrderID uuid.UUID
}

// BuildDetailQuery creates a new DetailQuery with the provided order ID.
func BuildDetailQuery(orderID uuid.UUID) DetailQuery {
	return DetailQuery{
		OrderID: orderID,
	}
}

// QueryType returns the query type.
func (q DetailQuery) QueryType() string {
	return detailQueryType
}
