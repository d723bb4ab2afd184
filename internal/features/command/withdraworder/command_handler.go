package withdraworder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
	"github.com/liblend/orderdesk/internal/shell/orderstore"
)

// OrderStore defines the interface needed by the CommandHandler for order persistence.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (core.Order, error)
	CurrentStatus(ctx context.Context, orderID uuid.UUID) (core.OrderStatus, time.Time, error)
	ItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]core.OrderItem, error)
	Apply(ctx context.Context, orderID uuid.UUID, changes core.Changeset) error
}

// Locker serializes commands per reader ticket.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// CommandHandler orchestrates the withdraw-order workflow:
// Lock -> Guard status -> Decide -> Apply.
type CommandHandler struct {
	store  OrderStore
	locker Locker
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(store OrderStore, locker Locker) CommandHandler {
	return CommandHandler{
		store:  store,
		locker: locker,
	}
}

// Handle executes the withdrawal under the reader's lock. An order belonging
// to someone else is reported as not found; withdrawal from a status outside
// new, processing, ready or done yields a cannot-cancel fault.
func (h CommandHandler) Handle(ctx context.Context, command Command) error {
	release, lockErr := h.locker.Acquire(ctx, string(command.ReaderTicket))
	if lockErr != nil {
		return lockErr
	}
	defer release()

	order, getErr := h.store.GetOrder(ctx, command.OrderID)
	if getErr != nil {
		return getErr
	}

	if order.ReaderTicket != command.ReaderTicket {
		return orderstore.ErrOrderNotFound
	}

	current, _, statusErr := h.store.CurrentStatus(ctx, command.OrderID)
	if statusErr != nil {
		return statusErr
	}

	items, itemsErr := h.store.ItemsByOrder(ctx, command.OrderID)
	if itemsErr != nil {
		return itemsErr
	}

	changes, decideErr := core.DecideWithdraw(order, current, items, command.OccurredAt)
	if decideErr != nil {
		return decideErr
	}

	return h.store.Apply(ctx, command.OrderID, changes)
}
