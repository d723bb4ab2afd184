package checkorder

import (
	"github.com/google/uuid"
)

const queryType = "CheckOrder"

// Query represents the intent to preview an order against live loans.
type Query struct {
	OrderID uuid.UUID
}

// BuildQuery creates a new Query with the provided order ID.
func BuildQuery(orderID uuid.UUID) Query {
	return Query{
		OrderID: orderID,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}
