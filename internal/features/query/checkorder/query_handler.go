package checkorder

import (
	"context"

	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

// OrderStore defines the interface needed by the QueryHandler for order reads.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (core.Order, error)
	ItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]core.OrderItem, error)
}

// Loans fetches the live loans of a reader with book references already
// resolved into the canonical id space.
type Loans interface {
	LiveLoans(ctx context.Context, ticket core.ReaderTicketString) ([]core.Loan, error)
}

// QueryHandler orchestrates the check preview workflow:
// Load -> Fetch Loans -> Partition. A loan gateway failure fails the
// preview; staff must not complete an order on stale loan data.
type QueryHandler struct {
	store OrderStore
	loans Loans
}

// NewQueryHandler creates a new QueryHandler with the provided dependencies.
func NewQueryHandler(store OrderStore, loans Loans) QueryHandler {
	return QueryHandler{
		store: store,
		loans: loans,
	}
}

// Handle partitions the order's items against the reader's live loans.
func (h QueryHandler) Handle(ctx context.Context, query Query) (OrderCheck, error) {
	order, getErr := h.store.GetOrder(ctx, query.OrderID)
	if getErr != nil {
		return OrderCheck{}, getErr
	}

	items, itemsErr := h.store.ItemsByOrder(ctx, query.OrderID)
	if itemsErr != nil {
		return OrderCheck{}, itemsErr
	}

	loans, loansErr := h.loans.LiveLoans(ctx, order.ReaderTicket)
	if loansErr != nil {
		return OrderCheck{}, loansErr
	}

	partition := core.PartitionLoans(items, loans)

	return OrderCheck{
		OrderID:      order.ID,
		ReaderTicket: order.ReaderTicket,
		Found:        partition.Found,
		NotFound:     partition.NotFound,
		Additional:   partition.Additional,
	}, nil
}
