package placeorder

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/liblend/orderdesk/internal/core"
)

const resolveConcurrency = 4

// OrderStore defines the interface needed by the CommandHandler for order persistence.
type OrderStore interface {
	ActiveBookIDs(ctx context.Context, ticket core.ReaderTicketString, exclude *uuid.UUID) (map[core.BookIDString]struct{}, error)
	ReturnCandidate(ctx context.Context, itemID uuid.UUID) (*core.ReturnCandidate, error)
	CreateOrder(ctx context.Context, order core.Order, items []core.OrderItem, attachReturning []uuid.UUID, history core.HistoryEntry) error
}

// Catalog defines the interface needed to resolve requested book ids.
type Catalog interface {
	ByID(ctx context.Context, bookID core.BookIDString) (*core.Book, error)
}

// Locker serializes commands per reader ticket.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Notifier announces a successfully placed order. Delivery is best-effort.
type Notifier interface {
	OrderCreated(ctx context.Context, orderID uuid.UUID)
}

// CommandHandler orchestrates the place-order workflow:
// Lock -> Validate -> Build -> Persist -> Notify.
type CommandHandler struct {
	store    OrderStore
	catalog  Catalog
	locker   Locker
	notifier Notifier
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithNotifier sets the notifier announcing placed orders.
func WithNotifier(notifier Notifier) Option {
	return func(h *CommandHandler) {
		h.notifier = notifier
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(store OrderStore, catalog Catalog, locker Locker, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store:   store,
		catalog: catalog,
		locker:  locker,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the place-order workflow under the reader's lock and
// returns the id of the created order. All validation faults surface as
// core.Fault values; nothing is written when any check fails.
func (h CommandHandler) Handle(ctx context.Context, command Command) (uuid.UUID, error) {
	release, lockErr := h.locker.Acquire(ctx, string(command.ReaderTicket))
	if lockErr != nil {
		return uuid.Nil, lockErr
	}
	defer release()

	composition := core.Composition{
		LibraryID:     command.LibraryID,
		BookIDs:       core.DistinctBookIDs(command.BookIDs),
		ReturnItemIDs: command.ReturnItemIDs,
	}

	if err := h.validateComposition(ctx, command.ReaderTicket, composition, nil); err != nil {
		return uuid.Nil, err
	}

	order, items, history := core.BuildOrder(command.ReaderTicket, composition, command.OccurredAt)

	if err := h.store.CreateOrder(ctx, order, items, composition.ReturnItemIDs, history); err != nil {
		return uuid.Nil, err
	}

	if h.notifier != nil {
		h.notifier.OrderCreated(ctx, order.ID)
	}

	return order.ID, nil
}

// validateComposition runs the all-or-nothing checks: non-empty, no book
// already active for the reader, every book orderable in the target library,
// every return reference valid. Catalog lookups run concurrently; the first
// failed check wins.
func (h CommandHandler) validateComposition(
	ctx context.Context,
	requester core.ReaderTicketString,
	composition core.Composition,
	exclude *uuid.UUID,
) error {

	if err := core.ValidateNotEmpty(composition); err != nil {
		return err
	}

	active, activeErr := h.store.ActiveBookIDs(ctx, requester, exclude)
	if activeErr != nil {
		return activeErr
	}

	for _, bookID := range composition.BookIDs {
		if err := core.ValidateNotActive(bookID, active); err != nil {
			return err
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(resolveConcurrency)

	for _, bookID := range composition.BookIDs {
		group.Go(func() error {
			book, resolveErr := h.catalog.ByID(groupCtx, bookID)
			if resolveErr != nil {
				return resolveErr
			}

			return core.ValidateResolvedBook(bookID, book, composition.LibraryID)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	for _, itemID := range composition.ReturnItemIDs {
		candidate, candidateErr := h.store.ReturnCandidate(ctx, itemID)
		if candidateErr != nil {
			return candidateErr
		}

		if err := core.ValidateReturnReference(itemID, candidate, requester); err != nil {
			return err
		}
	}

	return nil
}
