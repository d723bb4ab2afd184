package borrowedbooks

import (
	"context"

	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

// OrderStore defines the interface needed by the QueryHandler for item reads.
type OrderStore interface {
	HandedItemsByReader(ctx context.Context, ticket core.ReaderTicketString) ([]core.OrderItem, error)
	ItemsReturningAgainst(ctx context.Context, orderID uuid.UUID) ([]core.OrderItem, error)
}

// QueryHandler serves the handed-out item queries straight from the store.
type QueryHandler struct {
	store OrderStore
}

// NewQueryHandler creates a new QueryHandler with the provided OrderStore dependency.
func NewQueryHandler(store OrderStore) QueryHandler {
	return QueryHandler{
		store: store,
	}
}

// Handle lists the items a reader currently has in hand.
func (h QueryHandler) Handle(ctx context.Context, query Query) (BorrowedBooks, error) {
	items, itemsErr := h.store.HandedItemsByReader(ctx, query.ReaderTicket)
	if itemsErr != nil {
		return BorrowedBooks{}, itemsErr
	}

	return BorrowedBooks{
		ReaderTicket: query.ReaderTicket,
		Items:        items,
		Count:        len(items),
	}, nil
}

// HandleReturning lists the items registered for return together with the
// queried order.
func (h QueryHandler) HandleReturning(ctx context.Context, query ReturningQuery) (ReturningItems, error) {
	items, itemsErr := h.store.ItemsReturningAgainst(ctx, query.OrderID)
	if itemsErr != nil {
		return ReturningItems{}, itemsErr
	}

	return ReturningItems{
		OrderID: query.OrderID,
		Items:   items,
		Count:   len(items),
	}, nil
}
