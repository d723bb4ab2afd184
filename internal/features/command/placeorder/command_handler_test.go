package placeorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liblend/orderdesk/internal/core"
)

type fakeStore struct {
	active       map[core.BookIDString]struct{}
	candidates   map[uuid.UUID]*core.ReturnCandidate
	createErr    error
	createdOrder *core.Order
	createdItems []core.OrderItem
	attached     []uuid.UUID
}

func (f *fakeStore) ActiveBookIDs(_ context.Context, _ core.ReaderTicketString, _ *uuid.UUID) (map[core.BookIDString]struct{}, error) {
	if f.active == nil {
		return map[core.BookIDString]struct{}{}, nil
	}

	return f.active, nil
}

func (f *fakeStore) ReturnCandidate(_ context.Context, itemID uuid.UUID) (*core.ReturnCandidate, error) {
	return f.candidates[itemID], nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order core.Order, items []core.OrderItem, attach []uuid.UUID, _ core.HistoryEntry) error {
	if f.createErr != nil {
		return f.createErr
	}

	f.createdOrder = &order
	f.createdItems = items
	f.attached = attach

	return nil
}

type fakeCatalog struct {
	books map[core.BookIDString]*core.Book
	err   error
}

func (f *fakeCatalog) ByID(_ context.Context, bookID core.BookIDString) (*core.Book, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.books[bookID], nil
}

type fakeLocker struct {
	acquired []string
	released int
	err      error
}

func (f *fakeLocker) Acquire(_ context.Context, key string) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}

	f.acquired = append(f.acquired, key)

	return func() { f.released++ }, nil
}

type fakeNotifier struct {
	created []uuid.UUID
}

func (f *fakeNotifier) OrderCreated(_ context.Context, orderID uuid.UUID) {
	f.created = append(f.created, orderID)
}

func orderableBook(id core.BookIDString, libraryID int64) *core.Book {
	return &core.Book{ID: id, LibraryID: libraryID, Orderable: true}
}

func buildTestCommand(bookIDs []core.BookIDString, returnItems []uuid.UUID) Command {
	return BuildCommand("R-100200", 1, bookIDs, returnItems, time.Now())
}

func Test_Handle_CreatesOrderWithDistinctItems(t *testing.T) {
	store := &fakeStore{}
	catalog := &fakeCatalog{books: map[core.BookIDString]*core.Book{
		"ISTU_100": orderableBook("ISTU_100", 1),
		"ISTU_200": orderableBook("ISTU_200", 1),
	}}
	locker := &fakeLocker{}
	notifier := &fakeNotifier{}
	handler := NewCommandHandler(store, catalog, locker, WithNotifier(notifier))

	orderID, err := handler.Handle(
		context.Background(),
		buildTestCommand([]core.BookIDString{"ISTU_100", "ISTU_200", "ISTU_100"}, nil),
	)

	require.NoError(t, err)
	require.NotNil(t, store.createdOrder)
	assert.Equal(t, orderID, store.createdOrder.ID)
	assert.Equal(t, core.ReaderTicketString("R-100200"), store.createdOrder.ReaderTicket)
	assert.Len(t, store.createdItems, 2)
	assert.Equal(t, []string{"R-100200"}, locker.acquired)
	assert.Equal(t, 1, locker.released)
	assert.Equal(t, []uuid.UUID{orderID}, notifier.created)
}

func Test_Handle_EmptyOrder(t *testing.T) {
	handler := NewCommandHandler(&fakeStore{}, &fakeCatalog{}, &fakeLocker{})

	_, err := handler.Handle(context.Background(), buildTestCommand(nil, nil))

	fault, ok := core.FaultFrom(err)
	require.True(t, ok)
	assert.Equal(t, core.FaultEmptyOrder, fault.Code)
}

func Test_Handle_DuplicateActiveBook(t *testing.T) {
	store := &fakeStore{active: map[core.BookIDString]struct{}{"ISTU_100": {}}}
	catalog := &fakeCatalog{books: map[core.BookIDString]*core.Book{
		"ISTU_100": orderableBook("ISTU_100", 1),
	}}
	handler := NewCommandHandler(store, catalog, &fakeLocker{})

	_, err := handler.Handle(context.Background(), buildTestCommand([]core.BookIDString{"ISTU_100"}, nil))

	fault, ok := core.FaultFrom(err)
	require.True(t, ok)
	assert.Equal(t, core.FaultDuplicateActiveBook, fault.Code)
	assert.Equal(t, core.BookIDString("ISTU_100"), fault.BookID)
	assert.Nil(t, store.createdOrder)
}

func Test_Handle_UnresolvableBook(t *testing.T) {
	handler := NewCommandHandler(&fakeStore{}, &fakeCatalog{}, &fakeLocker{})

	_, err := handler.Handle(context.Background(), buildTestCommand([]core.BookIDString{"ISTU_404"}, nil))

	fault, ok := core.FaultFrom(err)
	require.True(t, ok)
	assert.Equal(t, core.FaultInvalidBook, fault.Code)
}

func Test_Handle_BookFromAnotherLibrary(t *testing.T) {
	catalog := &fakeCatalog{books: map[core.BookIDString]*core.Book{
		"FOREIGN_1": orderableBook("FOREIGN_1", 2),
	}}
	handler := NewCommandHandler(&fakeStore{}, catalog, &fakeLocker{})

	_, err := handler.Handle(context.Background(), buildTestCommand([]core.BookIDString{"FOREIGN_1"}, nil))

	fault, ok := core.FaultFrom(err)
	require.True(t, ok)
	assert.Equal(t, core.FaultInvalidBook, fault.Code)
}

func Test_Handle_BookNotOrderable(t *testing.T) {
	notOrderable := &core.Book{ID: "ISTU_100", LibraryID: 1, Orderable: false}
	catalog := &fakeCatalog{books: map[core.BookIDString]*core.Book{"ISTU_100": notOrderable}}
	handler := NewCommandHandler(&fakeStore{}, catalog, &fakeLocker{})

	_, err := handler.Handle(context.Background(), buildTestCommand([]core.BookIDString{"ISTU_100"}, nil))

	fault, ok := core.FaultFrom(err)
	require.True(t, ok)
	assert.Equal(t, core.FaultNotOrderable, fault.Code)
}

func Test_Handle_ValidReturnReference(t *testing.T) {
	itemID := uuid.New()
	store := &fakeStore{candidates: map[uuid.UUID]*core.ReturnCandidate{
		itemID: {
			Item:        core.OrderItem{ID: itemID, Status: core.ItemStatusHanded},
			OwnerTicket: "R-100200",
		},
	}}
	catalog := &fakeCatalog{books: map[core.BookIDString]*core.Book{
		"ISTU_100": orderableBook("ISTU_100", 1),
	}}
	handler := NewCommandHandler(store, catalog, &fakeLocker{})

	_, err := handler.Handle(
		context.Background(),
		buildTestCommand([]core.BookIDString{"ISTU_100"}, []uuid.UUID{itemID}),
	)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{itemID}, store.attached)
}

func Test_Handle_ReturnReferenceNotOwned(t *testing.T) {
	itemID := uuid.New()
	store := &fakeStore{candidates: map[uuid.UUID]*core.ReturnCandidate{
		itemID: {
			Item:        core.OrderItem{ID: itemID, Status: core.ItemStatusHanded},
			OwnerTicket: "R-999999",
		},
	}}
	catalog := &fakeCatalog{books: map[core.BookIDString]*core.Book{
		"ISTU_100": orderableBook("ISTU_100", 1),
	}}
	handler := NewCommandHandler(store, catalog, &fakeLocker{})

	_, err := handler.Handle(
		context.Background(),
		buildTestCommand([]core.BookIDString{"ISTU_100"}, []uuid.UUID{itemID}),
	)

	fault, ok := core.FaultFrom(err)
	require.True(t, ok)
	assert.Equal(t, core.FaultInvalidReturnReference, fault.Code)
	assert.Nil(t, store.createdOrder)
}

func Test_Handle_LockBusy(t *testing.T) {
	busy := errors.New("busy")
	handler := NewCommandHandler(&fakeStore{}, &fakeCatalog{}, &fakeLocker{err: busy})

	_, err := handler.Handle(context.Background(), buildTestCommand([]core.BookIDString{"ISTU_100"}, nil))

	assert.ErrorIs(t, err, busy)
}

func Test_Handle_StoreFailure_NoNotification(t *testing.T) {
	store := &fakeStore{createErr: errors.New("db down")}
	catalog := &fakeCatalog{books: map[core.BookIDString]*core.Book{
		"ISTU_100": orderableBook("ISTU_100", 1),
	}}
	notifier := &fakeNotifier{}
	handler := NewCommandHandler(store, catalog, &fakeLocker{}, WithNotifier(notifier))

	_, err := handler.Handle(context.Background(), buildTestCommand([]core.BookIDString{"ISTU_100"}, nil))

	require.Error(t, err)
	assert.Empty(t, notifier.created)
}
