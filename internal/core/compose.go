package core

import (
	"time"

	"github.com/google/uuid"
)

// Composition is the validated input for creating or rebuilding an order:
// the target library, the books to newly request, and the ids of items the
// reader currently holds and wants to return together with this order.
type Composition struct {
	LibraryID     int64
	BookIDs       []BookIDString
	ReturnItemIDs []uuid.UUID
}

// ReturnCandidate pairs a return-reference item with the ticket of the reader
// owning the order it belongs to.
type ReturnCandidate struct {
	Item        OrderItem
	OwnerTicket ReaderTicketString
}

// DistinctBookIDs removes duplicate book ids, keeping first-seen order.
func DistinctBookIDs(bookIDs []BookIDString) []BookIDString {
	seen := make(map[BookIDString]struct{}, len(bookIDs))
	distinct := make([]BookIDString, 0, len(bookIDs))

	for _, id := range bookIDs {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	return distinct
}

// ValidateNotEmpty rejects a composition without any requested books.
func ValidateNotEmpty(c Composition) error {
	if len(c.BookIDs) == 0 {
		return ErrEmptyOrder()
	}

	return nil
}

// ValidateNotActive rejects a requested book that already appears among the
// reader's active book ids (items with status ordered or handed, excluding
// the order being edited).
func ValidateNotActive(bookID BookIDString, activeBookIDs map[BookIDString]struct{}) error {
	if _, active := activeBookIDs[bookID]; active {
		return ErrDuplicateActiveBook(bookID)
	}

	return nil
}

// ValidateResolvedBook checks that a catalog lookup produced an orderable
// record in the target library. A nil book means the id did not resolve.
func ValidateResolvedBook(bookID BookIDString, book *Book, libraryID int64) error {
	if book == nil || book.LibraryID != libraryID {
		return ErrInvalidBook(bookID)
	}

	if !book.Orderable {
		return ErrNotOrderable(bookID)
	}

	return nil
}

// ValidateReturnReference checks that a return-with-this-order reference
// points at an item owned by the requester and currently handed out.
// A nil candidate means the referenced item does not exist.
func ValidateReturnReference(itemID uuid.UUID, candidate *ReturnCandidate, requester ReaderTicketString) error {
	if candidate == nil ||
		candidate.OwnerTicket != requester ||
		candidate.Item.Status != ItemStatusHanded {
		return ErrInvalidReturnReference(itemID.String())
	}

	return nil
}

// BuildOrder produces the new order, one item per distinct requested book,
// and the initial NEW history entry. The caller persists all of it together
// with the return-reference attachments in a single transaction.
func BuildOrder(requester ReaderTicketString, c Composition, now time.Time) (Order, []OrderItem, HistoryEntry) {
	order := Order{
		ID:           uuid.New(),
		ReaderTicket: requester,
		LibraryID:    c.LibraryID,
	}

	bookIDs := DistinctBookIDs(c.BookIDs)
	items := make([]OrderItem, 0, len(bookIDs))
	for _, bookID := range bookIDs {
		items = append(items, OrderItem{
			ID:      uuid.New(),
			OrderID: order.ID,
			BookID:  bookID,
			Status:  ItemStatusOrdered,
		})
	}

	history := HistoryEntry{
		OrderID:    order.ID,
		Status:     OrderStatusNew,
		OccurredAt: ToOccurredAt(now),
	}

	return order, items, history
}

// BuildItems produces replacement items for the update path, where the order
// already exists and keeps its id and history.
func BuildItems(orderID uuid.UUID, bookIDs []BookIDString) []OrderItem {
	distinct := DistinctBookIDs(bookIDs)
	items := make([]OrderItem, 0, len(distinct))

	for _, bookID := range distinct {
		items = append(items, OrderItem{
			ID:      uuid.New(),
			OrderID: orderID,
			BookID:  bookID,
			Status:  ItemStatusOrdered,
		})
	}

	return items
}
