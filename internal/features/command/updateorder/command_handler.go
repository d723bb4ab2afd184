package updateorder

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/liblend/orderdesk/internal/core"
	"github.com/liblend/orderdesk/internal/shell/orderstore"
)

const resolveConcurrency = 4

// OrderStore defines the interface needed by the CommandHandler for order persistence.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (core.Order, error)
	HistoryCount(ctx context.Context, orderID uuid.UUID) (int, error)
	ActiveBookIDs(ctx context.Context, ticket core.ReaderTicketString, exclude *uuid.UUID) (map[core.BookIDString]struct{}, error)
	ReturnCandidate(ctx context.Context, itemID uuid.UUID) (*core.ReturnCandidate, error)
	ReplaceComposition(ctx context.Context, order core.Order, items []core.OrderItem, attachReturning []uuid.UUID) error
}

// Catalog defines the interface needed to resolve requested book ids.
type Catalog interface {
	ByID(ctx context.Context, bookID core.BookIDString) (*core.Book, error)
}

// Locker serializes commands per reader ticket.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// CommandHandler orchestrates the update-order workflow:
// Lock -> Guard editable -> Validate -> Replace.
type CommandHandler struct {
	store   OrderStore
	catalog Catalog
	locker  Locker
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(store OrderStore, catalog Catalog, locker Locker) CommandHandler {
	return CommandHandler{
		store:   store,
		catalog: catalog,
		locker:  locker,
	}
}

// Handle executes the update-order workflow under the reader's lock.
// An order belonging to someone else is reported as not found; an order
// that has progressed past its initial entry is not editable.
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

	historyCount, countErr := h.store.HistoryCount(ctx, command.OrderID)
	if countErr != nil {
		return countErr
	}

	if historyCount != 1 {
		return core.ErrOrderNotEditable()
	}

	composition := core.Composition{
		LibraryID:     command.LibraryID,
		BookIDs:       core.DistinctBookIDs(command.BookIDs),
		ReturnItemIDs: command.ReturnItemIDs,
	}

	if err := h.validateComposition(ctx, command.ReaderTicket, composition, command.OrderID); err != nil {
		return err
	}

	order.LibraryID = command.LibraryID
	items := core.BuildItems(order.ID, composition.BookIDs)

	return h.store.ReplaceComposition(ctx, order, items, composition.ReturnItemIDs)
}

// validateComposition mirrors the checks on creation, with the edited order
// excluded from the duplicate-book scan so an unchanged composition stays
// valid.
func (h CommandHandler) validateComposition(
	ctx context.Context,
	requester core.ReaderTicketString,
	composition core.Composition,
	orderID uuid.UUID,
) error {

	if err := core.ValidateNotEmpty(composition); err != nil {
		return err
	}

	active, activeErr := h.store.ActiveBookIDs(ctx, requester, &orderID)
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
