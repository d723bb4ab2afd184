package core

import "time"

// Reconciliation is the read-only partition of an order's items against the
// reader's live external loans, as shown to staff by the check preview.
type Reconciliation struct {
	Found      []OrderItem
	NotFound   []OrderItem
	Additional []Loan // live loans not matching any item of the order
}

// PartitionLoans splits the order's items into those whose book appears among
// the reader's live loans and those that do not, and collects loans that no
// item accounts for. It never mutates anything; both the DONE transition and
// the check preview are built on it.
func PartitionLoans(items []OrderItem, loans []Loan) Reconciliation {
	loanByBook := make(map[BookIDString]Loan, len(loans))
	for _, loan := range loans {
		loanByBook[loan.BookID] = loan
	}

	var result Reconciliation
	itemBooks := make(map[BookIDString]struct{}, len(items))

	for _, item := range items {
		itemBooks[item.BookID] = struct{}{}

		if _, ok := loanByBook[item.BookID]; ok {
			result.Found = append(result.Found, item)
		} else {
			result.NotFound = append(result.NotFound, item)
		}
	}

	for _, loan := range loans {
		if _, ok := itemBooks[loan.BookID]; !ok {
			result.Additional = append(result.Additional, loan)
		}
	}

	return result
}

// ReconcileDone produces the changeset for completing an order against the
// reader's live loans:
//
//   - items whose book appears among the loans become handed, with handed and
//     expected-return dates taken from each item's own matching loan
//   - items with no matching loan that are still ordered become cancelled
//   - items elsewhere registered to be returned with this order whose book is
//     absent from the loans become returned, stamped now - absence from the
//     live loan list is taken as proof of physical return
//   - a DONE history entry is appended
func ReconcileDone(
	order Order,
	items []OrderItem,
	returning []OrderItem,
	loans []Loan,
	req TransitionRequest,
	now time.Time,
) Changeset {

	loanByBook := make(map[BookIDString]Loan, len(loans))
	for _, loan := range loans {
		loanByBook[loan.BookID] = loan
	}

	var cs Changeset

	for _, item := range items {
		if loan, ok := loanByBook[item.BookID]; ok {
			cs.ItemUpdates = append(cs.ItemUpdates, ItemUpdate{
				ItemID:     item.ID,
				Status:     statusPtr(ItemStatusHanded),
				HandedAt:   timePtr(ToOccurredAt(loan.HandedAt)),
				ToReturnAt: timePtr(ToOccurredAt(loan.Deadline)),
			})

			continue
		}

		if item.Status == ItemStatusOrdered {
			cs.ItemUpdates = append(cs.ItemUpdates, ItemUpdate{
				ItemID: item.ID,
				Status: statusPtr(ItemStatusCancelled),
			})
		}
	}

	for _, item := range returning {
		if _, stillLent := loanByBook[item.BookID]; stillLent {
			continue
		}

		cs.ItemUpdates = append(cs.ItemUpdates, ItemUpdate{
			ItemID:     item.ID,
			Status:     statusPtr(ItemStatusReturned),
			ReturnedAt: timePtr(ToOccurredAt(now)),
		})
	}

	cs.History = &HistoryEntry{
		OrderID:     order.ID,
		Status:      OrderStatusDone,
		Description: req.Description,
		OccurredAt:  ToOccurredAt(now),
		StaffTicket: strPtr(req.StaffTicket),
	}

	return cs
}
