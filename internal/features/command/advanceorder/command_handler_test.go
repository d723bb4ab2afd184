package advanceorder

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
	order     core.Order
	items     []core.OrderItem
	returning []core.OrderItem

	applied *core.Changeset
}

func (f *fakeStore) GetOrder(_ context.Context, _ uuid.UUID) (core.Order, error) {
	return f.order, nil
}

func (f *fakeStore) ItemsByOrder(_ context.Context, _ uuid.UUID) ([]core.OrderItem, error) {
	return f.items, nil
}

func (f *fakeStore) ItemsReturningAgainst(_ context.Context, _ uuid.UUID) ([]core.OrderItem, error) {
	return f.returning, nil
}

func (f *fakeStore) Apply(_ context.Context, _ uuid.UUID, changes core.Changeset) error {
	f.applied = &changes
	return nil
}

type fakeLoans struct {
	loans []core.Loan
	err   error
}

func (f *fakeLoans) LiveLoans(_ context.Context, _ core.ReaderTicketString) ([]core.Loan, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.loans, nil
}

type fakeProfiles struct {
	profile core.ReaderProfile
}

func (f *fakeProfiles) ReaderByTicket(_ context.Context, _ core.ReaderTicketString) (core.ReaderProfile, error) {
	return f.profile, nil
}

type fakeLocker struct {
	acquired []string
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, key string) (func(), error) {
	f.acquired = append(f.acquired, key)
	return func() { f.released++ }, nil
}

type fakeNotifier struct {
	notified []core.OrderStatus
	mails    []string
}

func (f *fakeNotifier) OrderTransitioned(_ context.Context, _ uuid.UUID, status core.OrderStatus, mail string) {
	f.notified = append(f.notified, status)
	f.mails = append(f.mails, mail)
}

func storeWithOrderedItems() (*fakeStore, uuid.UUID) {
	orderID := uuid.New()

	return &fakeStore{
		order: core.Order{ID: orderID, ReaderTicket: "R-100200", LibraryID: 1},
		items: []core.OrderItem{
			{ID: uuid.New(), OrderID: orderID, BookID: "ISTU_100", Status: core.ItemStatusOrdered},
			{ID: uuid.New(), OrderID: orderID, BookID: "ISTU_200", Status: core.ItemStatusOrdered},
		},
	}, orderID
}

func Test_Handle_Processing_AppendsHistoryOnly(t *testing.T) {
	store, orderID := storeWithOrderedItems()
	locker := &fakeLocker{}
	handler := NewCommandHandler(store, &fakeLoans{}, locker)

	command := BuildCommand(orderID, "S-7", core.OrderStatusProcessing, "", nil, time.Now())

	result, err := handler.Handle(context.Background(), command)

	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusProcessing, result)
	require.NotNil(t, store.applied)
	assert.Empty(t, store.applied.ItemUpdates)
	require.NotNil(t, store.applied.History)
	require.NotNil(t, store.applied.History.StaffTicket)
	assert.Equal(t, "S-7", *store.applied.History.StaffTicket)
	assert.Equal(t, []string{"S-7"}, locker.acquired)
	assert.Equal(t, 1, locker.released)
}

func Test_Handle_Ready_AllItemsCancelled_AutoCancels(t *testing.T) {
	store, orderID := storeWithOrderedItems()
	handler := NewCommandHandler(store, &fakeLoans{}, &fakeLocker{})

	decisions := []core.ItemDecision{
		{ItemID: store.items[0].ID, Status: core.ItemStatusCancelled, Description: "lost"},
		{ItemID: store.items[1].ID, Status: core.ItemStatusCancelled, Description: "damaged"},
	}
	command := BuildCommand(orderID, "S-7", core.OrderStatusReady, "", decisions, time.Now())

	result, err := handler.Handle(context.Background(), command)

	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusCancelled, result)
	require.NotNil(t, store.applied.History)
	assert.Equal(t, core.NoItemsAvailableDescription, store.applied.History.Description)
}

func Test_Handle_Done_ReconcilesAgainstLiveLoans(t *testing.T) {
	store, orderID := storeWithOrderedItems()
	handedAt := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	deadline := handedAt.AddDate(0, 1, 0)
	loans := &fakeLoans{loans: []core.Loan{
		{BookID: "ISTU_100", HandedAt: handedAt, Deadline: deadline},
	}}
	handler := NewCommandHandler(store, loans, &fakeLocker{})

	command := BuildCommand(orderID, "S-7", core.OrderStatusDone, "", nil, time.Now())

	result, err := handler.Handle(context.Background(), command)

	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusDone, result)
	require.NotNil(t, store.applied)
	require.Len(t, store.applied.ItemUpdates, 2)

	handed := store.applied.ItemUpdates[0]
	assert.Equal(t, store.items[0].ID, handed.ItemID)
	assert.Equal(t, core.ItemStatusHanded, *handed.Status)
	assert.Equal(t, handedAt, *handed.HandedAt)
	assert.Equal(t, deadline, *handed.ToReturnAt)

	cancelled := store.applied.ItemUpdates[1]
	assert.Equal(t, store.items[1].ID, cancelled.ItemID)
	assert.Equal(t, core.ItemStatusCancelled, *cancelled.Status)
}

func Test_Handle_Done_LoanGatewayDown_NothingWritten(t *testing.T) {
	store, orderID := storeWithOrderedItems()
	upstreamDown := errors.New("upstream unavailable")
	handler := NewCommandHandler(store, &fakeLoans{err: upstreamDown}, &fakeLocker{})

	command := BuildCommand(orderID, "S-7", core.OrderStatusDone, "", nil, time.Now())

	_, err := handler.Handle(context.Background(), command)

	assert.ErrorIs(t, err, upstreamDown)
	assert.Nil(t, store.applied)
}

func Test_Handle_InvalidTarget(t *testing.T) {
	store, orderID := storeWithOrderedItems()
	handler := NewCommandHandler(store, &fakeLoans{}, &fakeLocker{})

	command := BuildCommand(orderID, "S-7", core.OrderStatusArchived, "", nil, time.Now())

	_, err := handler.Handle(context.Background(), command)

	fault, ok := core.FaultFrom(err)
	require.True(t, ok)
	assert.Equal(t, core.FaultInvalidTargetStatus, fault.Code)
	assert.Nil(t, store.applied)
}

func Test_Handle_NotifiesReaderWithProfileMail(t *testing.T) {
	store, orderID := storeWithOrderedItems()
	notifier := &fakeNotifier{}
	profiles := &fakeProfiles{profile: core.ReaderProfile{Ticket: "R-100200", Mail: "reader@example.com"}}
	handler := NewCommandHandler(store, &fakeLoans{}, &fakeLocker{}, WithNotifier(notifier, profiles))

	command := BuildCommand(orderID, "S-7", core.OrderStatusReady, "picked", nil, time.Now())

	_, err := handler.Handle(context.Background(), command)

	require.NoError(t, err)
	assert.Equal(t, []core.OrderStatus{core.OrderStatusReady}, notifier.notified)
	assert.Equal(t, []string{"reader@example.com"}, notifier.mails)
}
