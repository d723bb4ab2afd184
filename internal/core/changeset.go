package core

import (
	"time"

	"github.com/google/uuid"
)

// ItemUpdate describes an in-place mutation of one existing order item.
// Nil pointer fields are left untouched by the store.
type ItemUpdate struct {
	ItemID        uuid.UUID
	Status        *ItemStatus
	Description   *string
	HandedAt      *time.Time
	ToReturnAt    *time.Time
	ReturnedAt    *time.Time
	AnalogousItem *uuid.UUID

	// ClearAnalogous nulls the analogous_item reference. A nil
	// AnalogousItem alone leaves the column untouched.
	ClearAnalogous bool
}

// Changeset is the write set produced by a decision function. The store
// applies the whole set in one transaction, in this order: item updates,
// new items, item deletions, detaching of returning items, history append.
type Changeset struct {
	ItemUpdates []ItemUpdate
	NewItems    []OrderItem
	DeleteItems []uuid.UUID

	// DetachReturning clears order_to_return on every item currently
	// registered to be returned with this order.
	DetachReturning bool

	History *HistoryEntry
}

// IsEmpty reports whether applying the changeset would write nothing.
func (c Changeset) IsEmpty() bool {
	return len(c.ItemUpdates) == 0 &&
		len(c.NewItems) == 0 &&
		len(c.DeleteItems) == 0 &&
		!c.DetachReturning &&
		c.History == nil
}

func statusPtr(s ItemStatus) *ItemStatus { return &s }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
