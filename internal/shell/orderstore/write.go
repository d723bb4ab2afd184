package orderstore

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
	"github.com/liblend/orderdesk/internal/shell/orderstore/internal/adapters"
)

const (
	logActionCreateOrder = "create order"
	logActionReplace     = "replace composition"
	logActionApply       = "apply changeset"
)

// CreateOrder persists a new order together with its items, the returning
// items it references, and the initial history entry, all in one transaction.
// The item IDs in attachReturning belong to other orders of the same reader
// and get their order_to_return column pointed at the new order.
func (os OrderStore) CreateOrder(
	ctx context.Context,
	order core.Order,
	items []core.OrderItem,
	attachReturning []uuid.UUID,
	history core.HistoryEntry,
) error {

	txErr := os.withinTx(ctx, func(tx adapters.DBTx) error {
		if err := os.insertOrder(ctx, tx, order); err != nil {
			return err
		}

		if err := os.insertItems(ctx, tx, items); err != nil {
			return err
		}

		if err := os.attachReturningItems(ctx, tx, order.ID, attachReturning); err != nil {
			return err
		}

		return os.insertHistory(ctx, tx, history)
	})
	if txErr != nil {
		return txErr
	}

	os.logOperation(logActionCreateOrder, logAttrOrderID, order.ID.String(), logAttrItemCount, len(items))

	return nil
}

// ReplaceComposition swaps the items of an order for a new set and updates
// the order's target library. Existing items are removed, returning
// references against the order are cleared, and the new items and references
// are written in their place. The history stays untouched; callers guard
// that the order is still editable.
func (os OrderStore) ReplaceComposition(
	ctx context.Context,
	order core.Order,
	items []core.OrderItem,
	attachReturning []uuid.UUID,
) error {

	txErr := os.withinTx(ctx, func(tx adapters.DBTx) error {
		if err := os.updateOrderLibrary(ctx, tx, order); err != nil {
			return err
		}

		if err := os.deleteItemsByOrder(ctx, tx, order.ID); err != nil {
			return err
		}

		if err := os.detachReturningItems(ctx, tx, order.ID); err != nil {
			return err
		}

		if err := os.insertItems(ctx, tx, items); err != nil {
			return err
		}

		return os.attachReturningItems(ctx, tx, order.ID, attachReturning)
	})
	if txErr != nil {
		return txErr
	}

	os.logOperation(logActionReplace, logAttrOrderID, order.ID.String(), logAttrItemCount, len(items))

	return nil
}

// Apply writes a core.Changeset produced by a domain decision in one
// transaction: item updates first, then new items, deletions, detaching of
// returning references, and finally the new history entry.
func (os OrderStore) Apply(ctx context.Context, orderID uuid.UUID, changes core.Changeset) error {
	if changes.IsEmpty() {
		return nil
	}

	txErr := os.withinTx(ctx, func(tx adapters.DBTx) error {
		for _, update := range changes.ItemUpdates {
			if err := os.updateItem(ctx, tx, update); err != nil {
				return err
			}
		}

		if err := os.insertItems(ctx, tx, changes.NewItems); err != nil {
			return err
		}

		if err := os.deleteItemsByID(ctx, tx, changes.DeleteItems); err != nil {
			return err
		}

		if changes.DetachReturning {
			if err := os.detachReturningItems(ctx, tx, orderID); err != nil {
				return err
			}
		}

		if changes.History != nil {
			if err := os.insertHistory(ctx, tx, *changes.History); err != nil {
				return err
			}
		}

		return nil
	})
	if txErr != nil {
		return txErr
	}

	os.logOperation(logActionApply, logAttrOrderID, orderID.String(), logAttrItemCount, len(changes.ItemUpdates))

	return nil
}

func (os OrderStore) insertOrder(ctx context.Context, tx adapters.DBTx, order core.Order) error {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Insert(tableOrders).
		Rows(goqu.Record{
			colID:           order.ID,
			colReaderTicket: order.ReaderTicket,
			colLibraryID:    order.LibraryID,
		}).
		ToSQL()
	if toSQLErr != nil {
		return os.failedToBuildQuery(toSQLErr)
	}

	_, execErr := os.executeExec(ctx, tx, sqlQuery, logActionCreateOrder)

	return execErr
}

func (os OrderStore) updateOrderLibrary(ctx context.Context, tx adapters.DBTx, order core.Order) error {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Update(tableOrders).
		Set(goqu.Record{colLibraryID: order.LibraryID}).
		Where(goqu.C(colID).Eq(order.ID)).
		ToSQL()
	if toSQLErr != nil {
		return os.failedToBuildQuery(toSQLErr)
	}

	rowsAffected, execErr := os.executeExec(ctx, tx, sqlQuery, logActionReplace)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return errors.Join(ErrApplyingChangesFailed, ErrOrderNotFound)
	}

	return nil
}

func (os OrderStore) insertItems(ctx context.Context, tx adapters.DBTx, items []core.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	records := make([]any, 0, len(items))
	for _, item := range items {
		records = append(records, goqu.Record{
			colID:            item.ID,
			colOrderID:       item.OrderID,
			colBookID:        item.BookID,
			colStatus:        item.Status,
			colDescription:   nullableString(item.Description),
			colOrderToReturn: nullableUUID(item.OrderToReturn),
			colHandedAt:      nullableTime(item.HandedAt),
			colToReturnAt:    nullableTime(item.ToReturnAt),
			colReturnedAt:    nullableTime(item.ReturnedAt),
			colAnalogousItem: nullableUUID(item.AnalogousItem),
		})
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Insert(tableItems).
		Rows(records...).
		ToSQL()
	if toSQLErr != nil {
		return os.failedToBuildQuery(toSQLErr)
	}

	_, execErr := os.executeExec(ctx, tx, sqlQuery, logActionCreateOrder)

	return execErr
}

func (os OrderStore) insertHistory(ctx context.Context, tx adapters.DBTx, entry core.HistoryEntry) error {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Insert(tableHistory).
		Rows(goqu.Record{
			colOrderID:     entry.OrderID,
			colStatus:      entry.Status,
			colDescription: entry.Description,
			colOccurredAt:  entry.OccurredAt,
			colStaffTicket: nullableString(entry.StaffTicket),
		}).
		ToSQL()
	if toSQLErr != nil {
		return os.failedToBuildQuery(toSQLErr)
	}

	_, execErr := os.executeExec(ctx, tx, sqlQuery, logActionApply)

	return execErr
}

func (os OrderStore) updateItem(ctx context.Context, tx adapters.DBTx, update core.ItemUpdate) error {
	record := goqu.Record{}

	if update.Status != nil {
		record[colStatus] = *update.Status
	}
	if update.Description != nil {
		record[colDescription] = *update.Description
	}
	if update.HandedAt != nil {
		record[colHandedAt] = *update.HandedAt
	}
	if update.ToReturnAt != nil {
		record[colToReturnAt] = *update.ToReturnAt
	}
	if update.ReturnedAt != nil {
		record[colReturnedAt] = *update.ReturnedAt
	}
	if update.ClearAnalogous {
		record[colAnalogousItem] = nil
	} else if update.AnalogousItem != nil {
		record[colAnalogousItem] = *update.AnalogousItem
	}

	if len(record) == 0 {
		return nil
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Update(tableItems).
		Set(record).
		Where(goqu.C(colID).Eq(update.ItemID)).
		ToSQL()
	if toSQLErr != nil {
		return os.failedToBuildQuery(toSQLErr)
	}

	rowsAffected, execErr := os.executeExec(ctx, tx, sqlQuery, logActionApply)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return errors.Join(ErrApplyingChangesFailed, ErrItemNotFound)
	}

	return nil
}

func (os OrderStore) deleteItemsByOrder(ctx context.Context, tx adapters.DBTx, orderID uuid.UUID) error {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Delete(tableItems).
		Where(goqu.C(colOrderID).Eq(orderID)).
		ToSQL()
	if toSQLErr != nil {
		return os.failedToBuildQuery(toSQLErr)
	}

	_, execErr := os.executeExec(ctx, tx, sqlQuery, logActionReplace)

	return execErr
}

func (os OrderStore) deleteItemsByID(ctx context.Context, tx adapters.DBTx, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Delete(tableItems).
		Where(goqu.C(colID).In(uuidValues(itemIDs)...)).
		ToSQL()
	if toSQLErr != nil {
		return os.failedToBuildQuery(toSQLErr)
	}

	_, execErr := os.executeExec(ctx, tx, sqlQuery, logActionApply)

	return execErr
}

// attachReturningItems points the given handed items at the order they
// will be returned with. All referenced items must still exist.
func (os OrderStore) attachReturningItems(
	ctx context.Context,
	tx adapters.DBTx,
	orderID uuid.UUID,
	itemIDs []uuid.UUID,
) error {

	if len(itemIDs) == 0 {
		return nil
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Update(tableItems).
		Set(goqu.Record{colOrderToReturn: orderID}).
		Where(goqu.C(colID).In(uuidValues(itemIDs)...)).
		ToSQL()
	if toSQLErr != nil {
		return os.failedToBuildQuery(toSQLErr)
	}

	rowsAffected, execErr := os.executeExec(ctx, tx, sqlQuery, logActionApply)
	if execErr != nil {
		return execErr
	}

	if rowsAffected != int64(len(itemIDs)) {
		return errors.Join(ErrApplyingChangesFailed, ErrItemNotFound)
	}

	return nil
}

func (os OrderStore) detachReturningItems(ctx context.Context, tx adapters.DBTx, orderID uuid.UUID) error {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Update(tableItems).
		Set(goqu.Record{colOrderToReturn: nil}).
		Where(goqu.C(colOrderToReturn).Eq(orderID)).
		ToSQL()
	if toSQLErr != nil {
		return os.failedToBuildQuery(toSQLErr)
	}

	_, execErr := os.executeExec(ctx, tx, sqlQuery, logActionApply)

	return execErr
}

func (os OrderStore) failedToBuildQuery(cause error) error {
	if os.logger != nil {
		os.logger.Error(logMsgBuildQueryFailed, logAttrError, cause.Error())
	}

	return errors.Join(ErrBuildingQueryFailed, cause)
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}

	return *s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return *t
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}

	return *id
}

func uuidValues(ids []uuid.UUID) []any {
	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}

	return values
}
