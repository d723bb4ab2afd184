package ordersbystatus

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liblend/orderdesk/internal/core"
	"github.com/liblend/orderdesk/internal/shell/orderstore"
)

type fakeStore struct {
	records map[core.OrderStatus][]orderstore.OrderRecord
	orders  map[uuid.UUID]core.Order
	items   map[uuid.UUID][]core.OrderItem
	history map[uuid.UUID][]core.HistoryEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[core.OrderStatus][]orderstore.OrderRecord),
		orders:  make(map[uuid.UUID]core.Order),
		items:   make(map[uuid.UUID][]core.OrderItem),
		history: make(map[uuid.UUID][]core.HistoryEntry),
	}
}

func (f *fakeStore) OrdersByCurrentStatus(_ context.Context, status core.OrderStatus) ([]orderstore.OrderRecord, error) {
	return f.records[status], nil
}

func (f *fakeStore) GetOrder(_ context.Context, orderID uuid.UUID) (core.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return core.Order{}, orderstore.ErrOrderNotFound
	}

	return order, nil
}

func (f *fakeStore) CurrentStatus(_ context.Context, orderID uuid.UUID) (core.OrderStatus, time.Time, error) {
	entries := f.history[orderID]
	if len(entries) == 0 {
		return "", time.Time{}, orderstore.ErrOrderNotFound
	}

	last := entries[len(entries)-1]

	return last.Status, last.OccurredAt, nil
}

func (f *fakeStore) ItemsByOrder(_ context.Context, orderID uuid.UUID) ([]core.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeStore) HistoryByOrder(_ context.Context, orderID uuid.UUID) ([]core.HistoryEntry, error) {
	return f.history[orderID], nil
}

func (f *fakeStore) addOrder(ticket core.ReaderTicketString, status core.OrderStatus) uuid.UUID {
	orderID := uuid.New()
	order := core.Order{ID: orderID, ReaderTicket: ticket, LibraryID: 1}

	f.orders[orderID] = order
	f.records[status] = append(f.records[status], orderstore.OrderRecord{
		Order:    order,
		Status:   status,
		StatusAt: time.Now(),
	})
	f.items[orderID] = []core.OrderItem{
		{ID: uuid.New(), OrderID: orderID, BookID: "ISTU_100", Status: core.ItemStatusOrdered},
	}
	f.history[orderID] = []core.HistoryEntry{
		{OrderID: orderID, Status: status, OccurredAt: time.Now()},
	}

	return orderID
}

func Test_Handle_ListsOrdersInTheQueriedStatus(t *testing.T) {
	store := newFakeStore()
	store.addOrder("R-100200", core.OrderStatusNew)
	store.addOrder("R-999999", core.OrderStatusNew)
	store.addOrder("R-100200", core.OrderStatusReady)

	handler := NewQueryHandler(store)

	result, err := handler.Handle(context.Background(), BuildQuery(core.OrderStatusNew))

	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusNew, result.Status)
	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Orders, 2)
	assert.Len(t, result.Orders[0].Items, 1)
}

func Test_Handle_EmptyBoard(t *testing.T) {
	handler := NewQueryHandler(newFakeStore())

	result, err := handler.Handle(context.Background(), BuildQuery(core.OrderStatusProcessing))

	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.Empty(t, result.Orders)
}

func Test_HandleDetail_ReturnsAnyReadersOrder(t *testing.T) {
	store := newFakeStore()
	orderID := store.addOrder("R-999999", core.OrderStatusReady)

	handler := NewQueryHandler(store)

	view, err := handler.HandleDetail(context.Background(), BuildDetailQuery(orderID))

	require.NoError(t, err)
	assert.Equal(t, orderID, view.Order.ID)
	assert.Equal(t, core.ReaderTicketString("R-999999"), view.Order.ReaderTicket)
	assert.Equal(t, core.OrderStatusReady, view.Status)
	assert.Len(t, view.History, 1)
}

func Test_HandleDetail_UnknownOrder(t *testing.T) {
	handler := NewQueryHandler(newFakeStore())

	_, err := handler.HandleDetail(context.Background(), BuildDetailQuery(uuid.New()))

	assert.ErrorIs(t, err, orderstore.ErrOrderNotFound)
}
