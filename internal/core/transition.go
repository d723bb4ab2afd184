package core

import (
	"time"

	"github.com/google/uuid"
)

// NoItemsAvailableDescription is the description of the auto-appended
// CANCELLED entry when a READY transition leaves no fulfillable items.
const NoItemsAvailableDescription = "no items available"

// ItemDecision is a staff decision about one existing item during a READY
// transition: either spawn an analogous substitute or cancel the line.
type ItemDecision struct {
	ItemID          uuid.UUID
	Status          ItemStatus // ItemStatusAnalogous or ItemStatusCancelled
	Description     string
	AnalogousBookID BookIDString // the substitute book, for analogous decisions
}

// TransitionRequest is a staff request to advance an order to a target status.
type TransitionRequest struct {
	Target      OrderStatus
	Description string
	StaffTicket string
	Decisions   []ItemDecision
}

// DecideTransition produces the changeset for a staff transition to
// PROCESSING, NEW, READY or CANCELLED. DONE needs the reader's live loans and
// is decided by ReconcileDone instead; requesting it here, or any status
// outside the staff workflow, yields an invalid-target fault.
func DecideTransition(order Order, items []OrderItem, req TransitionRequest, now time.Time) (Changeset, error) {
	switch req.Target {
	case OrderStatusProcessing, OrderStatusNew:
		return Changeset{History: buildHistory(order.ID, req, now)}, nil

	case OrderStatusReady:
		return decideReady(order, items, req, now)

	case OrderStatusCancelled:
		return decideStaffCancel(order, items, req, now), nil

	default:
		return Changeset{}, ErrInvalidTargetStatus(req.Target)
	}
}

// decideReady applies the per-item decisions, then appends READY - unless
// every item ends up cancelled, in which case the order auto-cancels.
func decideReady(order Order, items []OrderItem, req TransitionRequest, now time.Time) (Changeset, error) {
	byID := make(map[uuid.UUID]OrderItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var cs Changeset
	decided := make(map[uuid.UUID]ItemStatus, len(req.Decisions))

	for _, decision := range req.Decisions {
		item, ok := byID[decision.ItemID]
		if !ok || item.OrderID != order.ID {
			return Changeset{}, ErrInvalidDecision(decision.ItemID.String(), decision.Status)
		}

		switch decision.Status {
		case ItemStatusAnalogous:
			substitute := OrderItem{
				ID:      uuid.New(),
				OrderID: order.ID,
				BookID:  decision.AnalogousBookID,
				Status:  ItemStatusOrdered,
			}
			cs.NewItems = append(cs.NewItems, substitute)
			cs.ItemUpdates = append(cs.ItemUpdates, ItemUpdate{
				ItemID:        item.ID,
				Status:        statusPtr(ItemStatusAnalogous),
				Description:   strPtr(decision.Description),
				AnalogousItem: uuidPtr(substitute.ID),
			})

		case ItemStatusCancelled:
			cs.ItemUpdates = append(cs.ItemUpdates, ItemUpdate{
				ItemID:      item.ID,
				Status:      statusPtr(ItemStatusCancelled),
				Description: strPtr(decision.Description),
			})

		default:
			return Changeset{}, ErrInvalidDecision(decision.ItemID.String(), decision.Status)
		}

		decided[item.ID] = decision.Status
	}

	if allCancelled(items, decided, len(cs.NewItems)) {
		cs.History = &HistoryEntry{
			OrderID:     order.ID,
			Status:      OrderStatusCancelled,
			Description: NoItemsAvailableDescription,
			OccurredAt:  ToOccurredAt(now),
			StaffTicket: strPtr(req.StaffTicket),
		}

		return cs, nil
	}

	cs.History = buildHistory(order.ID, req, now)
	cs.History.Status = OrderStatusReady

	return cs, nil
}

// allCancelled reports whether, after the decisions are applied, no item of
// the order remains fulfillable. Freshly spawned substitutes count as
// fulfillable; items already replaced by a substitute do not count on their
// own, their substitute carries the line.
func allCancelled(items []OrderItem, decided map[uuid.UUID]ItemStatus, spawned int) bool {
	if spawned > 0 {
		return false
	}

	for _, item := range items {
		status := item.Status
		if d, ok := decided[item.ID]; ok {
			status = d
		}

		if status != ItemStatusCancelled && status != ItemStatusAnalogous {
			return false
		}
	}

	return true
}

// decideStaffCancel cancels every item, removes any spawned analogous
// substitutes, and detaches items that were to be returned with this order.
func decideStaffCancel(order Order, items []OrderItem, req TransitionRequest, now time.Time) Changeset {
	cs := Changeset{DetachReturning: true}

	for _, item := range items {
		update := ItemUpdate{
			ItemID: item.ID,
			Status: statusPtr(ItemStatusCancelled),
		}

		if item.AnalogousItem != nil {
			cs.DeleteItems = append(cs.DeleteItems, *item.AnalogousItem)
			update.ClearAnalogous = true
		}

		cs.ItemUpdates = append(cs.ItemUpdates, update)
	}

	cs.History = buildHistory(order.ID, req, now)
	cs.History.Status = OrderStatusCancelled

	return cs
}

// DecideWithdraw produces the changeset for a reader cancelling their own
// order. Withdrawal is only allowed from new, processing, ready or done.
func DecideWithdraw(order Order, current OrderStatus, items []OrderItem, now time.Time) (Changeset, error) {
	if !CanWithdrawFrom(current) {
		return Changeset{}, ErrCannotCancel(current)
	}

	cs := Changeset{
		History: &HistoryEntry{
			OrderID:    order.ID,
			Status:     OrderStatusCancelled,
			OccurredAt: ToOccurredAt(now),
		},
	}

	for _, item := range items {
		cs.ItemUpdates = append(cs.ItemUpdates, ItemUpdate{
			ItemID: item.ID,
			Status: statusPtr(ItemStatusCancelled),
		})
	}

	return cs, nil
}

func buildHistory(orderID uuid.UUID, req TransitionRequest, now time.Time) *HistoryEntry {
	return &HistoryEntry{
		OrderID:     orderID,
		Status:      req.Target,
		Description: req.Description,
		OccurredAt:  ToOccurredAt(now),
		StaffTicket: strPtr(req.StaffTicket),
	}
}
