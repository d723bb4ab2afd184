package listorders

import (
	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

const (
	queryType       = "ListOrders"
	detailQueryType = "GetOrder"
)

// Query represents the intent to list all orders of one reader.
type Query struct {
	ReaderTicket core.ReaderTicketString
}

// BuildQuery creates a new Query with the provided reader ticket.
func BuildQuery(ticket core.ReaderTicketString) Query {
	return Query{
		ReaderTicket: ticket,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}

// DetailQuery represents the intent of a reader to view one of their orders.
type DetailQuery struct {
	ReaderTicket core.ReaderTicketString
	OrderID      uuid.UUID
}

// BuildDetailQuery creates a new DetailQuery with the provided parameters.
func BuildDetailQuery(ticket core.ReaderTicketString, orderID uuid.UUID) DetailQuery {
	return DetailQuery{
		ReaderTicket: ticket,
		OrderID:      orderID,
	}
}

// QueryType returns the query type.
func (q DetailQuery) QueryType() string {
	return detailQueryType
}
