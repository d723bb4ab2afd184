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
	aliasLatest = "latest"
	aliasItems  = "i"
	aliasOrders = "o"
	aliasCount  = "cnt"

	logActionGetOrder     = "get order"
	logActionListOrders   = "list orders"
	logActionLoadItems    = "load items"
	logActionLoadHistory  = "load history"
	logActionStatusCounts = "status counts"
)

// OrderRecord pairs an order with its current status derived from the
// latest history entry.
type OrderRecord struct {
	Order    core.Order
	Status   core.OrderStatus
	StatusAt time.Time
}

// itemColumns lists the order_items columns in scan order.
var itemColumns = []any{
	colID, colOrderID, colBookID, colStatus, colDescription,
	colOrderToReturn, colHandedAt, colToReturnAt, colReturnedAt, colAnalogousItem,
}

// latestHistory selects the newest history row per order.
// Ties on occurred_at are broken by the serial id, newest first.
func latestHistory() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(tableHistory).
		Select(colOrderID, colStatus, colOccurredAt).
		Distinct(colOrderID).
		Order(
			goqu.I(colOrderID).Asc(),
			goqu.I(colOccurredAt).Desc(),
			goqu.I(colID).Desc(),
		)
}

// GetOrder loads a single order row. Returns ErrOrderNotFound when no
// order with the given id exists.
func (os OrderStore) GetOrder(ctx context.Context, orderID uuid.UUID) (core.Order, error) {
	var empty core.Order

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(tableOrders).
		Select(colID, colReaderTicket, colLibraryID).
		Where(goqu.C(colID).Eq(orderID)).
		ToSQL()
	if toSQLErr != nil {
		return empty, os.failedToBuildQuery(toSQLErr)
	}

	rows, queryErr := os.executeQuery(ctx, os.db, sqlQuery, logActionGetOrder)
	if queryErr != nil {
		return empty, queryErr
	}
	defer os.closeRows(rows)

	if !rows.Next() {
		return empty, ErrOrderNotFound
	}

	var order core.Order
	if scanErr := rows.Scan(&order.ID, &order.ReaderTicket, &order.LibraryID); scanErr != nil {
		return empty, os.failedToScanRow(scanErr)
	}

	return order, nil
}

// OrdersByReader lists all orders of one reader with their current status,
// newest status change first.
func (os OrderStore) OrdersByReader(ctx context.Context, ticket core.ReaderTicketString) ([]OrderRecord, error) {
	stmt := os.orderRecordSelect().
		Where(goqu.I(aliasOrders + "." + colReaderTicket).Eq(ticket))

	return os.queryOrderRecords(ctx, stmt)
}

// OrdersByCurrentStatus lists all orders whose current status equals the
// given one, newest status change first. Used by the staff board.
func (os OrderStore) OrdersByCurrentStatus(ctx context.Context, status core.OrderStatus) ([]OrderRecord, error) {
	stmt := os.orderRecordSelect().
		Where(goqu.I(aliasLatest + "." + colStatus).Eq(status))

	return os.queryOrderRecords(ctx, stmt)
}

func (os OrderStore) orderRecordSelect() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(goqu.T(tableOrders).As(aliasOrders)).
		Join(
			latestHistory().As(aliasLatest),
			goqu.On(goqu.I(aliasLatest+"."+colOrderID).Eq(goqu.I(aliasOrders+"."+colID))),
		).
		Select(
			goqu.I(aliasOrders+"."+colID),
			goqu.I(aliasOrders+"."+colReaderTicket),
			goqu.I(aliasOrders+"."+colLibraryID),
			goqu.I(aliasLatest+"."+colStatus),
			goqu.I(aliasLatest+"."+colOccurredAt),
		).
		Order(goqu.I(aliasLatest + "." + colOccurredAt).Desc())
}

func (os OrderStore) queryOrderRecords(ctx context.Context, stmt *goqu.SelectDataset) ([]OrderRecord, error) {
	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return nil, os.failedToBuildQuery(toSQLErr)
	}

	rows, queryErr := os.executeQuery(ctx, os.db, sqlQuery, logActionListOrders)
	if queryErr != nil {
		return nil, queryErr
	}
	defer os.closeRows(rows)

	records := make([]OrderRecord, 0)

	for rows.Next() {
		var record OrderRecord
		scanErr := rows.Scan(
			&record.Order.ID,
			&record.Order.ReaderTicket,
			&record.Order.LibraryID,
			&record.Status,
			&record.StatusAt,
		)
		if scanErr != nil {
			return nil, os.failedToScanRow(scanErr)
		}

		records = append(records, record)
	}

	return records, nil
}

// CurrentStatus derives the current status of an order from its newest
// history entry. Returns ErrOrderNotFound for an order without history.
func (os OrderStore) CurrentStatus(ctx context.Context, orderID uuid.UUID) (core.OrderStatus, time.Time, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(tableHistory).
		Select(colStatus, colOccurredAt).
		Where(goqu.C(colOrderID).Eq(orderID)).
		Order(goqu.I(colOccurredAt).Desc(), goqu.I(colID).Desc()).
		Limit(1).
		ToSQL()
	if toSQLErr != nil {
		return "", time.Time{}, os.failedToBuildQuery(toSQLErr)
	}

	rows, queryErr := os.executeQuery(ctx, os.db, sqlQuery, logActionLoadHistory)
	if queryErr != nil {
		return "", time.Time{}, queryErr
	}
	defer os.closeRows(rows)

	if !rows.Next() {
		return "", time.Time{}, ErrOrderNotFound
	}

	var status core.OrderStatus
	var occurredAt time.Time
	if scanErr := rows.Scan(&status, &occurredAt); scanErr != nil {
		return "", time.Time{}, os.failedToScanRow(scanErr)
	}

	return status, occurredAt, nil
}

// HistoryByOrder loads the full status history of an order, oldest first.
func (os OrderStore) HistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]core.HistoryEntry, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(tableHistory).
		Select(colID, colOrderID, colStatus, colDescription, colOccurredAt, colStaffTicket).
		Where(goqu.C(colOrderID).Eq(orderID)).
		Order(goqu.I(colOccurredAt).Asc(), goqu.I(colID).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return nil, os.failedToBuildQuery(toSQLErr)
	}

	rows, queryErr := os.executeQuery(ctx, os.db, sqlQuery, logActionLoadHistory)
	if queryErr != nil {
		return nil, queryErr
	}
	defer os.closeRows(rows)

	entries := make([]core.HistoryEntry, 0)

	for rows.Next() {
		var entry core.HistoryEntry
		scanErr := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.Status,
			&entry.Description,
			&entry.OccurredAt,
			&entry.StaffTicket,
		)
		if scanErr != nil {
			return nil, os.failedToScanRow(scanErr)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// HistoryCount counts the history entries of an order. The update path
// uses it to guard that the order has not progressed past creation.
func (os OrderStore) HistoryCount(ctx context.Context, orderID uuid.UUID) (int, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(tableHistory).
		Select(goqu.COUNT(goqu.Star()).As(aliasCount)).
		Where(goqu.C(colOrderID).Eq(orderID)).
		ToSQL()
	if toSQLErr != nil {
		return 0, os.failedToBuildQuery(toSQLErr)
	}

	return os.queryCount(ctx, sqlQuery, logActionLoadHistory)
}

// ItemsByOrder loads all items belonging to an order.
func (os OrderStore) ItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]core.OrderItem, error) {
	stmt := goqu.Dialect(dialectPostgres).
		From(tableItems).
		Select(itemColumns...).
		Where(goqu.C(colOrderID).Eq(orderID)).
		Order(goqu.I(colID).Asc())

	return os.queryItems(ctx, stmt)
}

// ItemsReturningAgainst loads the handed items from other orders that the
// reader referenced for return together with this order.
func (os OrderStore) ItemsReturningAgainst(ctx context.Context, orderID uuid.UUID) ([]core.OrderItem, error) {
	stmt := goqu.Dialect(dialectPostgres).
		From(tableItems).
		Select(itemColumns...).
		Where(goqu.C(colOrderToReturn).Eq(orderID)).
		Order(goqu.I(colID).Asc())

	return os.queryItems(ctx, stmt)
}

func (os OrderStore) queryItems(ctx context.Context, stmt *goqu.SelectDataset) ([]core.OrderItem, error) {
	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return nil, os.failedToBuildQuery(toSQLErr)
	}

	rows, queryErr := os.executeQuery(ctx, os.db, sqlQuery, logActionLoadItems)
	if queryErr != nil {
		return nil, queryErr
	}
	defer os.closeRows(rows)

	items := make([]core.OrderItem, 0)

	for rows.Next() {
		item, scanErr := os.scanItem(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		items = append(items, item)
	}

	return items, nil
}

func (os OrderStore) scanItem(rows adapters.DBRows) (core.OrderItem, error) {
	var item core.OrderItem

	scanErr := rows.Scan(
		&item.ID,
		&item.OrderID,
		&item.BookID,
		&item.Status,
		&item.Description,
		&item.OrderToReturn,
		&item.HandedAt,
		&item.ToReturnAt,
		&item.ReturnedAt,
		&item.AnalogousItem,
	)
	if scanErr != nil {
		return core.OrderItem{}, os.failedToScanRow(scanErr)
	}

	return item, nil
}

// ReturnCandidate loads one item together with the reader ticket of the
// order it belongs to. Returns (nil, nil) when no such item exists, so
// callers can turn the absence into a domain fault.
func (os OrderStore) ReturnCandidate(ctx context.Context, itemID uuid.UUID) (*core.ReturnCandidate, error) {
	qualified := make([]any, 0, len(itemColumns)+1)
	for _, column := range itemColumns {
		qualified = append(qualified, goqu.I(aliasItems+"."+column.(string)))
	}
	qualified = append(qualified, goqu.I(aliasOrders+"."+colReaderTicket))

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(goqu.T(tableItems).As(aliasItems)).
		Join(
			goqu.T(tableOrders).As(aliasOrders),
			goqu.On(goqu.I(aliasItems+"."+colOrderID).Eq(goqu.I(aliasOrders+"."+colID))),
		).
		Select(qualified...).
		Where(goqu.I(aliasItems + "." + colID).Eq(itemID)).
		ToSQL()
	if toSQLErr != nil {
		return nil, os.failedToBuildQuery(toSQLErr)
	}

	rows, queryErr := os.executeQuery(ctx, os.db, sqlQuery, logActionLoadItems)
	if queryErr != nil {
		return nil, queryErr
	}
	defer os.closeRows(rows)

	if !rows.Next() {
		return nil, nil
	}

	var candidate core.ReturnCandidate
	scanErr := rows.Scan(
		&candidate.Item.ID,
		&candidate.Item.OrderID,
		&candidate.Item.BookID,
		&candidate.Item.Status,
		&candidate.Item.Description,
		&candidate.Item.OrderToReturn,
		&candidate.Item.HandedAt,
		&candidate.Item.ToReturnAt,
		&candidate.Item.ReturnedAt,
		&candidate.Item.AnalogousItem,
		&candidate.OwnerTicket,
	)
	if scanErr != nil {
		return nil, os.failedToScanRow(scanErr)
	}

	return &candidate, nil
}

// ActiveBookIDs collects the book ids a reader currently has ordered or in
// hand, across all their orders that are not terminally closed. The optional
// exclude skips one order, so the update path does not count the order
// being edited against itself.
func (os OrderStore) ActiveBookIDs(
	ctx context.Context,
	ticket core.ReaderTicketString,
	exclude *uuid.UUID,
) (map[core.BookIDString]struct{}, error) {

	stmt := goqu.Dialect(dialectPostgres).
		From(goqu.T(tableItems).As(aliasItems)).
		Join(
			goqu.T(tableOrders).As(aliasOrders),
			goqu.On(goqu.I(aliasItems+"."+colOrderID).Eq(goqu.I(aliasOrders+"."+colID))),
		).
		Join(
			latestHistory().As(aliasLatest),
			goqu.On(goqu.I(aliasLatest+"."+colOrderID).Eq(goqu.I(aliasOrders+"."+colID))),
		).
		Select(goqu.I(aliasItems + "." + colBookID)).
		Where(
			goqu.I(aliasOrders+"."+colReaderTicket).Eq(ticket),
			goqu.I(aliasItems+"."+colStatus).In(string(core.ItemStatusOrdered), string(core.ItemStatusHanded)),
			goqu.I(aliasLatest+"."+colStatus).NotIn(
				string(core.OrderStatusCancelled),
				string(core.OrderStatusError),
				string(core.OrderStatusArchived),
			),
		)

	if exclude != nil {
		stmt = stmt.Where(goqu.I(aliasOrders + "." + colID).Neq(*exclude))
	}

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return nil, os.failedToBuildQuery(toSQLErr)
	}

	rows, queryErr := os.executeQuery(ctx, os.db, sqlQuery, logActionLoadItems)
	if queryErr != nil {
		return nil, queryErr
	}
	defer os.closeRows(rows)

	active := make(map[core.BookIDString]struct{})

	for rows.Next() {
		var bookID core.BookIDString
		if scanErr := rows.Scan(&bookID); scanErr != nil {
			return nil, os.failedToScanRow(scanErr)
		}

		active[bookID] = struct{}{}
	}

	return active, nil
}

// HandedItemsByReader loads all items a reader currently has in hand,
// across all their orders.
func (os OrderStore) HandedItemsByReader(ctx context.Context, ticket core.ReaderTicketString) ([]core.OrderItem, error) {
	qualified := make([]any, 0, len(itemColumns))
	for _, column := range itemColumns {
		qualified = append(qualified, goqu.I(aliasItems+"."+column.(string)))
	}

	stmt := goqu.Dialect(dialectPostgres).
		From(goqu.T(tableItems).As(aliasItems)).
		Join(
			goqu.T(tableOrders).As(aliasOrders),
			goqu.On(goqu.I(aliasItems+"."+colOrderID).Eq(goqu.I(aliasOrders+"."+colID))),
		).
		Select(qualified...).
		Where(
			goqu.I(aliasOrders+"."+colReaderTicket).Eq(ticket),
			goqu.I(aliasItems+"."+colStatus).Eq(string(core.ItemStatusHanded)),
		).
		Order(goqu.I(aliasItems + "." + colHandedAt).Asc())

	return os.queryItems(ctx, stmt)
}

// StatusCounts counts orders per current status for the live stats board.
func (os OrderStore) StatusCounts(ctx context.Context) (map[core.OrderStatus]int, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(latestHistory().As(aliasLatest)).
		Select(goqu.I(aliasLatest+"."+colStatus), goqu.COUNT(goqu.Star()).As(aliasCount)).
		GroupBy(goqu.I(aliasLatest + "." + colStatus)).
		ToSQL()
	if toSQLErr != nil {
		return nil, os.failedToBuildQuery(toSQLErr)
	}

	rows, queryErr := os.executeQuery(ctx, os.db, sqlQuery, logActionStatusCounts)
	if queryErr != nil {
		return nil, queryErr
	}
	defer os.closeRows(rows)

	counts := make(map[core.OrderStatus]int)

	for rows.Next() {
		var status core.OrderStatus
		var count int64
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, os.failedToScanRow(scanErr)
		}

		counts[status] = int(count)
	}

	return counts, nil
}

// DoneCountSince counts the orders completed at or after the given time,
// typically the start of the current day.
func (os OrderStore) DoneCountSince(ctx context.Context, since time.Time) (int, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(tableHistory).
		Select(goqu.COUNT(goqu.DISTINCT(colOrderID)).As(aliasCount)).
		Where(
			goqu.C(colStatus).Eq(string(core.OrderStatusDone)),
			goqu.C(colOccurredAt).Gte(since),
		).
		ToSQL()
	if toSQLErr != nil {
		return 0, os.failedToBuildQuery(toSQLErr)
	}

	return os.queryCount(ctx, sqlQuery, logActionStatusCounts)
}

func (os OrderStore) queryCount(ctx context.Context, sqlQuery string, action string) (int, error) {
	rows, queryErr := os.executeQuery(ctx, os.db, sqlQuery, action)
	if queryErr != nil {
		return 0, queryErr
	}
	defer os.closeRows(rows)

	var count int64

	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			return 0, os.failedToScanRow(scanErr)
		}
	}

	return int(count), nil
}

func (os OrderStore) failedToScanRow(cause error) error {
	if os.logger != nil {
		os.logger.Error(logMsgScanRowFailed, logAttrError, cause.Error())
	}

	return errors.Join(ErrScanningDBRowFailed, cause)
}
