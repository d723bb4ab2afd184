package orderstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liblend/orderdesk/internal/core"
	"github.com/liblend/orderdesk/internal/shell/orderstore/internal/adapters"
)

// fakeDB records the SQL sent through the adapter so that tests can verify
// which statements a store operation issues and whether they run inside a
// committed transaction.
type fakeDB struct {
	execSQL      []string
	querySQL     []string
	rowsAffected int64
	execErr      error
	begun        int
	committed    int
	rolledBack   int
}

func newFakeDB() *fakeDB {
	return &fakeDB{rowsAffected: 1}
}

func (f *fakeDB) Query(_ context.Context, query string) (adapters.DBRows, error) {
	f.querySQL = append(f.querySQL, query)
	return emptyRows{}, nil
}

func (f *fakeDB) Exec(_ context.Context, query string) (adapters.DBResult, error) {
	if f.execErr != nil {
		return nil, f.execErr
	}

	f.execSQL = append(f.execSQL, query)

	return fakeResult{rowsAffected: f.rowsAffected}, nil
}

func (f *fakeDB) Begin(_ context.Context) (adapters.DBTx, error) {
	f.begun++
	return &fakeTx{db: f}, nil
}

type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) Query(ctx context.Context, query string) (adapters.DBRows, error) {
	return t.db.Query(ctx, query)
}

func (t *fakeTx) Exec(ctx context.Context, query string) (adapters.DBResult, error) {
	return t.db.Exec(ctx, query)
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.db.committed++
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.db.rolledBack++
	return nil
}

type emptyRows struct{}

func (emptyRows) Next() bool        { return false }
func (emptyRows) Scan(...any) error { return errors.New("no row") }
func (emptyRows) Close() error      { return nil }

type fakeResult struct {
	rowsAffected int64
}

func (r fakeResult) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}

func storeWithFake(t *testing.T) (OrderStore, *fakeDB) {
	t.Helper()

	db := newFakeDB()

	return OrderStore{db: db}, db
}

func sampleOrder() (core.Order, []core.OrderItem, core.HistoryEntry) {
	order := core.Order{
		ID:           uuid.New(),
		ReaderTicket: "R-100200",
		LibraryID:    1,
	}

	items := []core.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, BookID: "ISTU_100", Status: core.ItemStatusOrdered},
		{ID: uuid.New(), OrderID: order.ID, BookID: "ISTU_200", Status: core.ItemStatusOrdered},
	}

	history := core.HistoryEntry{
		OrderID:    order.ID,
		Status:     core.OrderStatusNew,
		OccurredAt: time.Now().UTC(),
	}

	return order, items, history
}

func Test_CreateOrder_WritesAllRowsInOneTransaction(t *testing.T) {
	store, db := storeWithFake(t)
	order, items, history := sampleOrder()

	err := store.CreateOrder(context.Background(), order, items, nil, history)

	require.NoError(t, err)
	assert.Equal(t, 1, db.begun)
	assert.Equal(t, 1, db.committed)
	assert.Equal(t, 0, db.rolledBack)
	require.Len(t, db.execSQL, 3)
	assert.Contains(t, db.execSQL[0], `INSERT INTO "orders"`)
	assert.Contains(t, db.execSQL[1], `INSERT INTO "order_items"`)
	assert.Contains(t, db.execSQL[2], `INSERT INTO "order_history"`)
}

func Test_CreateOrder_AttachesReturningItems(t *testing.T) {
	store, db := storeWithFake(t)
	order, items, history := sampleOrder()
	returning := uuid.New()

	err := store.CreateOrder(context.Background(), order, items, []uuid.UUID{returning}, history)

	require.NoError(t, err)
	require.Len(t, db.execSQL, 4)
	assert.Contains(t, db.execSQL[2], `UPDATE "order_items"`)
	assert.Contains(t, db.execSQL[2], `"order_to_return"`)
	assert.Contains(t, db.execSQL[2], returning.String())
}

func Test_CreateOrder_MissingReturningItem_RollsBack(t *testing.T) {
	store, db := storeWithFake(t)
	order, items, history := sampleOrder()
	db.rowsAffected = 1

	err := store.CreateOrder(
		context.Background(),
		order,
		items,
		[]uuid.UUID{uuid.New(), uuid.New()},
		history,
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, 1, db.rolledBack)
	assert.Equal(t, 0, db.committed)
}

func Test_ReplaceComposition_RemovesOldRowsFirst(t *testing.T) {
	store, db := storeWithFake(t)
	order, items, _ := sampleOrder()

	err := store.ReplaceComposition(context.Background(), order, items, nil)

	require.NoError(t, err)
	require.Len(t, db.execSQL, 4)
	assert.Contains(t, db.execSQL[0], `UPDATE "orders"`)
	assert.Contains(t, db.execSQL[1], `DELETE FROM "order_items"`)
	assert.Contains(t, db.execSQL[2], `UPDATE "order_items"`)
	assert.Contains(t, db.execSQL[2], "NULL")
	assert.Contains(t, db.execSQL[3], `INSERT INTO "order_items"`)
	assert.Equal(t, 1, db.committed)
}

func Test_Apply_EmptyChangeset_IsANoOp(t *testing.T) {
	store, db := storeWithFake(t)

	err := store.Apply(context.Background(), uuid.New(), core.Changeset{})

	require.NoError(t, err)
	assert.Equal(t, 0, db.begun)
	assert.Empty(t, db.execSQL)
}

func Test_Apply_WritesUpdatesBeforeHistory(t *testing.T) {
	store, db := storeWithFake(t)
	orderID := uuid.New()
	itemID := uuid.New()
	handed := core.ItemStatusHanded
	now := time.Now().UTC()

	changes := core.Changeset{
		ItemUpdates: []core.ItemUpdate{
			{ItemID: itemID, Status: &handed, HandedAt: &now},
		},
		DetachReturning: true,
		History: &core.HistoryEntry{
			OrderID:    orderID,
			Status:     core.OrderStatusDone,
			OccurredAt: now,
		},
	}

	err := store.Apply(context.Background(), orderID, changes)

	require.NoError(t, err)
	require.Len(t, db.execSQL, 3)
	assert.Contains(t, db.execSQL[0], `UPDATE "order_items"`)
	assert.Contains(t, db.execSQL[0], itemID.String())
	assert.Contains(t, db.execSQL[1], `"order_to_return"`)
	assert.Contains(t, db.execSQL[2], `INSERT INTO "order_history"`)
	assert.Equal(t, 1, db.committed)
}

func Test_Apply_ClearingAnalogousReference_NullsTheColumn(t *testing.T) {
	store, db := storeWithFake(t)
	cancelled := core.ItemStatusCancelled

	changes := core.Changeset{
		ItemUpdates: []core.ItemUpdate{
			{ItemID: uuid.New(), Status: &cancelled, ClearAnalogous: true},
		},
	}

	err := store.Apply(context.Background(), uuid.New(), changes)

	require.NoError(t, err)
	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], `UPDATE "order_items"`)
	assert.Contains(t, db.execSQL[0], `"analogous_item"`)
	assert.Contains(t, db.execSQL[0], "NULL")
}

func Test_Apply_MissingItem_ReturnsItemNotFound(t *testing.T) {
	store, db := storeWithFake(t)
	db.rowsAffected = 0
	handed := core.ItemStatusHanded

	changes := core.Changeset{
		ItemUpdates: []core.ItemUpdate{{ItemID: uuid.New(), Status: &handed}},
	}

	err := store.Apply(context.Background(), uuid.New(), changes)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, 1, db.rolledBack)
}

func Test_GetOrder_NotFound(t *testing.T) {
	store, db := storeWithFake(t)

	_, err := store.GetOrder(context.Background(), uuid.New())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	require.Len(t, db.querySQL, 1)
	assert.Contains(t, db.querySQL[0], `FROM "orders"`)
}

func Test_CurrentStatus_NoHistory_ReturnsNotFound(t *testing.T) {
	store, db := storeWithFake(t)

	_, _, err := store.CurrentStatus(context.Background(), uuid.New())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	require.Len(t, db.querySQL, 1)
	assert.True(t, strings.Contains(db.querySQL[0], `ORDER BY "occurred_at" DESC, "id" DESC`))
}

func Test_NewFromPGXPool_RejectsNilConnection(t *testing.T) {
	_, err := NewFromPGXPool(nil)

	assert.ErrorIs(t, err, ErrNilDatabaseConnection)
}
