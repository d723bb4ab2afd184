package listorders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
	"github.com/liblend/orderdesk/internal/shell/orderstore"
)

// OrderStore defines the interface needed by the QueryHandler for order reads.
type OrderStore interface {
	OrdersByReader(ctx context.Context, ticket core.ReaderTicketString) ([]orderstore.OrderRecord, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (core.Order, error)
	CurrentStatus(ctx context.Context, orderID uuid.UUID) (core.OrderStatus, time.Time, error)
	ItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]core.OrderItem, error)
	HistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]core.HistoryEntry, error)
}

// QueryHandler orchestrates the reader order queries: List -> Load Items,
// and for the detail view Load -> Guard Ownership -> Load Items and History.
type QueryHandler struct {
	store OrderStore
}

// NewQueryHandler creates a new QueryHandler with the provided OrderStore dependency.
func NewQueryHandler(store OrderStore) QueryHandler {
	return QueryHandler{
		store: store,
	}
}

// Handle lists the reader's orders with their current status and items.
func (h QueryHandler) Handle(ctx context.Context, query Query) (ReaderOrders, error) {
	records, listErr := h.store.OrdersByReader(ctx, query.ReaderTicket)
	if listErr != nil {
		return ReaderOrders{}, listErr
	}

	orders := make([]OrderView, 0, len(records))

	for _, record := range records {
		items, itemsErr := h.store.ItemsByOrder(ctx, record.Order.ID)
		if itemsErr != nil {
			return ReaderOrders{}, itemsErr
		}

		orders = append(orders, OrderView{
			Order:    record.Order,
			Status:   record.Status,
			StatusAt: record.StatusAt,
			Items:    items,
		})
	}

	return ReaderOrders{
		ReaderTicket: query.ReaderTicket,
		Orders:       orders,
		Count:        len(orders),
	}, nil
}

// HandleDetail loads one order of the reader, with items and full history.
// An order belonging to another reader is reported as not found.
func (h QueryHandler) HandleDetail(ctx context.Context, query DetailQuery) (OrderView, error) {
	order, getErr := h.store.GetOrder(ctx, query.OrderID)
	if getErr != nil {
		return OrderView{}, getErr
	}

	if order.ReaderTicket != query.ReaderTicket {
		return OrderView{}, orderstore.ErrOrderNotFound
	}

	status, statusAt, statusErr := h.store.CurrentStatus(ctx, query.OrderID)
	if statusErr != nil {
		return OrderView{}, statusErr
	}

	items, itemsErr := h.store.ItemsByOrder(ctx, query.OrderID)
	if itemsErr != nil {
		return OrderView{}, itemsErr
	}

	history, historyErr := h.store.HistoryByOrder(ctx, query.OrderID)
	if historyErr != nil {
		return OrderView{}, historyErr
	}

	return OrderView{
		Order:    order,
		Status:   status,
		StatusAt: statusAt,
		Items:    items,
		History:  history,
	}, nil
}
