package advanceorder

import (
	"context"

	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

// OrderStore defines the interface needed by the CommandHandler for order persistence.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (core.Order, error)
	ItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]core.OrderItem, error)
	ItemsReturningAgainst(ctx context.Context, orderID uuid.UUID) ([]core.OrderItem, error)
	Apply(ctx context.Context, orderID uuid.UUID, changes core.Changeset) error
}

// Loans fetches the live loans of a reader with book references already
// resolved into the canonical id space.
type Loans interface {
	LiveLoans(ctx context.Context, ticket core.ReaderTicketString) ([]core.Loan, error)
}

// Profiles resolves reader contact data for notifications.
type Profiles interface {
	ReaderByTicket(ctx context.Context, ticket core.ReaderTicketString) (core.ReaderProfile, error)
}

// Locker serializes commands per acting user.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Notifier announces a status change to the reader. Delivery is best-effort.
type Notifier interface {
	OrderTransitioned(ctx context.Context, orderID uuid.UUID, status core.OrderStatus, readerMail string)
}

// CommandHandler orchestrates the staff transition workflow:
// Lock -> Load -> Decide (or Reconcile for DONE) -> Apply -> Notify.
type CommandHandler struct {
	store    OrderStore
	loans    Loans
	profiles Profiles
	locker   Locker
	notifier Notifier
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithNotifier sets the notifier announcing transitions, together with the
// profile source used to resolve the reader's mail address.
func WithNotifier(notifier Notifier, profiles Profiles) Option {
	return func(h *CommandHandler) {
		h.notifier = notifier
		h.profiles = profiles
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(store OrderStore, loans Loans, locker Locker, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store:  store,
		loans:  loans,
		locker: locker,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the transition under the staff member's lock and returns
// the status the order ended up in. That status can differ from the target:
// a READY transition whose decisions cancel every item auto-cancels the
// order instead.
func (h CommandHandler) Handle(ctx context.Context, command Command) (core.OrderStatus, error) {
	release, lockErr := h.locker.Acquire(ctx, command.StaffTicket)
	if lockErr != nil {
		return "", lockErr
	}
	defer release()

	order, getErr := h.store.GetOrder(ctx, command.OrderID)
	if getErr != nil {
		return "", getErr
	}

	items, itemsErr := h.store.ItemsByOrder(ctx, command.OrderID)
	if itemsErr != nil {
		return "", itemsErr
	}

	request := core.TransitionRequest{
		Target:      command.Target,
		Description: command.Description,
		StaffTicket: command.StaffTicket,
		Decisions:   command.Decisions,
	}

	var changes core.Changeset

	if command.Target == core.OrderStatusDone {
		var reconcileErr error
		changes, reconcileErr = h.reconcileDone(ctx, order, items, request, command)
		if reconcileErr != nil {
			return "", reconcileErr
		}
	} else {
		var decideErr error
		changes, decideErr = core.DecideTransition(order, items, request, command.OccurredAt)
		if decideErr != nil {
			return "", decideErr
		}
	}

	if applyErr := h.store.Apply(ctx, command.OrderID, changes); applyErr != nil {
		return "", applyErr
	}

	result := changes.History.Status
	h.notifyReader(ctx, order, result)

	return result, nil
}

// reconcileDone completes an order against the reader's live loans. A loan
// gateway failure aborts the transition; an empty loan list is a valid
// answer and cancels every still-ordered item.
func (h CommandHandler) reconcileDone(
	ctx context.Context,
	order core.Order,
	items []core.OrderItem,
	request core.TransitionRequest,
	command Command,
) (core.Changeset, error) {

	returning, returningErr := h.store.ItemsReturningAgainst(ctx, command.OrderID)
	if returningErr != nil {
		return core.Changeset{}, returningErr
	}

	loans, loansErr := h.loans.LiveLoans(ctx, order.ReaderTicket)
	if loansErr != nil {
		return core.Changeset{}, loansErr
	}

	return core.ReconcileDone(order, items, returning, loans, request, command.OccurredAt), nil
}

func (h CommandHandler) notifyReader(ctx context.Context, order core.Order, status core.OrderStatus) {
	if h.notifier == nil || h.profiles == nil {
		return
	}

	profile, profileErr := h.profiles.ReaderByTicket(ctx, order.ReaderTicket)
	if profileErr != nil {
		return
	}

	h.notifier.OrderTransitioned(ctx, order.ID, status, profile.Mail)
}
