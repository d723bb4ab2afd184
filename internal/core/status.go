package core

// OrderStatus is the lifecycle status of an order, carried by history entries.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDone       OrderStatus = "done"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusError      OrderStatus = "error"
	OrderStatusArchived   OrderStatus = "archived"
)

// IsValid reports whether s is one of the known order statuses.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusNew, OrderStatusProcessing, OrderStatusReady,
		OrderStatusDone, OrderStatusCancelled, OrderStatusError, OrderStatusArchived:
		return true
	}

	return false
}

// ItemStatus is the fulfillment status of a single order item.
type ItemStatus string

const (
	ItemStatusOrdered   ItemStatus = "ordered"
	ItemStatusHanded    ItemStatus = "handed"
	ItemStatusReturned  ItemStatus = "returned"
	ItemStatusCancelled ItemStatus = "cancelled"
	ItemStatusAnalogous ItemStatus = "analogous"
)

// IsValid reports whether s is one of the known item statuses.
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusOrdered, ItemStatusHanded, ItemStatusReturned,
		ItemStatusCancelled, ItemStatusAnalogous:
		return true
	}

	return false
}

// withdrawableStatuses are the current statuses from which a reader may still
// withdraw their own order.
var withdrawableStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusProcessing,
	OrderStatusReady,
	OrderStatusDone,
}

// CanWithdrawFrom reports whether a reader-initiated cancellation is allowed
// while the order's current status is s.
func CanWithdrawFrom(s OrderStatus) bool {
	for _, acceptable := range withdrawableStatuses {
		if s == acceptable {
			return true
		}
	}

	return false
}
