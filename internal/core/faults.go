package core

import (
	"errors"
	"fmt"
)

// FaultCode is a stable, machine-readable identifier for a business-rule
// violation. Codes are part of the HTTP API contract and must not change.
type FaultCode string

const (
	FaultEmptyOrder             FaultCode = "empty_order"
	FaultDuplicateActiveBook    FaultCode = "duplicate_active_book"
	FaultInvalidBook            FaultCode = "invalid_book"
	FaultNotOrderable           FaultCode = "not_orderable"
	FaultInvalidReturnReference FaultCode = "invalid_return_reference"
	FaultOrderNotEditable       FaultCode = "order_not_editable"
	FaultCannotCancel           FaultCode = "cannot_cancel"
	FaultInvalidTargetStatus    FaultCode = "invalid_target_status"
	FaultInvalidDecision        FaultCode = "invalid_decision"
)

// Fault is a named business-rule violation carrying enough context for the
// caller to render a specific message. It is always a 400-class condition,
// never an infrastructure failure.
type Fault struct {
	Code   FaultCode
	BookID BookIDString // offending book, when applicable
	ItemID string       // offending order item, when applicable
	Status OrderStatus  // current status, when applicable
}

func (f *Fault) Error() string {
	switch f.Code {
	case FaultEmptyOrder:
		return "can't place an empty order"
	case FaultDuplicateActiveBook:
		return fmt.Sprintf("can't order the same book %s twice", f.BookID)
	case FaultInvalidBook:
		return fmt.Sprintf("invalid book id %s", f.BookID)
	case FaultNotOrderable:
		return fmt.Sprintf("can't order book %s", f.BookID)
	case FaultInvalidReturnReference:
		return fmt.Sprintf("invalid borrowed item id %s", f.ItemID)
	case FaultOrderNotEditable:
		return "order status is not new"
	case FaultCannotCancel:
		return fmt.Sprintf("can't cancel an order with status %s", f.Status)
	case FaultInvalidTargetStatus:
		return fmt.Sprintf("can't transition an order to status %s", f.Status)
	case FaultInvalidDecision:
		return fmt.Sprintf("invalid decision %s for item %s", f.Status, f.ItemID)
	default:
		return string(f.Code)
	}
}

// Is makes errors.Is(err, &Fault{Code: ...}) match on the code alone.
func (f *Fault) Is(target error) bool {
	var other *Fault
	if !errors.As(target, &other) {
		return false
	}

	return f.Code == other.Code
}

// FaultFrom extracts a Fault from an error chain.
func FaultFrom(err error) (*Fault, bool) {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault, true
	}

	return nil, false
}

// ErrEmptyOrder reports an order composition without any requested books.
func ErrEmptyOrder() error {
	return &Fault{Code: FaultEmptyOrder}
}

// ErrDuplicateActiveBook reports a requested book that already appears in one
// of the reader's active (ordered or handed) items.
func ErrDuplicateActiveBook(bookID BookIDString) error {
	return &Fault{Code: FaultDuplicateActiveBook, BookID: bookID}
}

// ErrInvalidBook reports a book id that does not resolve in the target library.
func ErrInvalidBook(bookID BookIDString) error {
	return &Fault{Code: FaultInvalidBook, BookID: bookID}
}

// ErrNotOrderable reports a resolved book that cannot currently be ordered.
func ErrNotOrderable(bookID BookIDString) error {
	return &Fault{Code: FaultNotOrderable, BookID: bookID}
}

// ErrInvalidReturnReference reports a return-with-this-order reference that is
// missing, not owned by the requester, or not currently handed out.
func ErrInvalidReturnReference(itemID string) error {
	return &Fault{Code: FaultInvalidReturnReference, ItemID: itemID}
}

// ErrOrderNotEditable reports an update attempt on an order that has moved
// past its initial NEW entry.
func ErrOrderNotEditable() error {
	return &Fault{Code: FaultOrderNotEditable}
}

// ErrCannotCancel reports a reader withdrawal attempt from a terminal status.
func ErrCannotCancel(current OrderStatus) error {
	return &Fault{Code: FaultCannotCancel, Status: current}
}

// ErrInvalidTargetStatus reports a transition request to a status the staff
// workflow does not accept.
func ErrInvalidTargetStatus(target OrderStatus) error {
	return &Fault{Code: FaultInvalidTargetStatus, Status: target}
}

// ErrInvalidDecision reports a per-item decision that names an item outside
// the order or carries a status other than analogous or cancelled.
func ErrInvalidDecision(itemID string, status ItemStatus) error {
	return &Fault{Code: FaultInvalidDecision, ItemID: itemID, Status: OrderStatus(status)}
}
