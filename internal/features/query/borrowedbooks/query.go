package borrowedbooks

import (
	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

const (
	queryType          = "BorrowedBooks"
	returningQueryType = "ReturningItems"
)

// Query represents the intent to list the books a reader currently holds.
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

// ReturningQuery represents the intent to list the items registered for
// return together with one order.
type ReturningQuery struct {
	OrderID uuid.UUID
}

// BuildReturningQuery creates a new ReturningQuery with the provided order ID.
func BuildReturningQuery(orderID uuid.UUID) ReturningQuery {
	return ReturningQuery{
		OrderID: orderID,
	}
}

// QueryType returns the query type.
func (q ReturningQuery) QueryType() string {
	return returningQueryType
}
