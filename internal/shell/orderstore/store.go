// Package orderstore persists orders, their items, and the append-only
// status history in Postgres. All writes that belong to one state change
// go through a single transaction; reads derive the current order status
// from the latest history row (occurred_at, then id, descending).
package orderstore

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/liblend/orderdesk/internal/shell/orderstore/internal/adapters"
)

const (
	tableOrders  = "orders"
	tableHistory = "order_history"
	tableItems   = "order_items"

	colID            = "id"
	colReaderTicket  = "reader_ticket"
	colLibraryID     = "library_id"
	colOrderID       = "order_id"
	colStatus        = "status"
	colDescription   = "description"
	colOccurredAt    = "occurred_at"
	colStaffTicket   = "staff_ticket"
	colBookID        = "book_id"
	colOrderToReturn = "order_to_return"
	colHandedAt      = "handed_at"
	colToReturnAt    = "to_return_at"
	colReturnedAt    = "returned_at"
	colAnalogousItem = "analogous_item"

	dialectPostgres = "postgres"

	logMsgBuildQueryFailed = "failed to build sql query"
	logMsgDBQueryFailed    = "database query execution failed"
	logMsgDBExecFailed     = "database execution failed"
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgScanRowFailed    = "failed to scan database row"
	logMsgBeginTxFailed    = "failed to begin transaction"
	logMsgCommitTxFailed   = "failed to commit transaction"
	logMsgSQLExecuted      = "executed sql for: "
	logMsgOperation        = "orderstore operation: "
	logAttrError           = "error"
	logAttrQuery           = "query"
	logAttrOrderID         = "order_id"
	logAttrItemCount       = "item_count"
	logAttrRowsAffected    = "rows_affected"
	logAttrDurationMS      = "duration_ms"
)

// Sentinel errors returned by OrderStore operations.
// Callers match them with errors.Is; the wrapped cause stays attached.
var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrBuildingQueryFailed   = errors.New("building sql query failed")
	ErrQueryingOrdersFailed  = errors.New("querying order data failed")
	ErrApplyingChangesFailed = errors.New("applying order changes failed")
	ErrScanningDBRowFailed   = errors.New("scanning database row failed")
	ErrOrderNotFound         = errors.New("order not found")
	ErrItemNotFound          = errors.New("order item not found")
)

// Logger interface for SQL query logging, operational metrics, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// OrderStore provides transactional access to the order tables.
// It leverages a database adapter and supports customizable logging.
type OrderStore struct {
	db     adapters.DBAdapter
	logger Logger
}

// Option defines a functional option for configuring OrderStore.
type Option func(*OrderStore) error

// WithLogger sets the logger for the OrderStore.
//
// Debug level: SQL queries with execution timing (development use)
// Info level: row counts and durations (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(os *OrderStore) error {
		os.logger = logger
		return nil
	}
}

// NewFromPGXPool creates a new OrderStore using a pgx Pool with optional configuration.
func NewFromPGXPool(db *pgxpool.Pool, options ...Option) (OrderStore, error) {
	if db == nil {
		return OrderStore{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewFromSQLDB creates a new OrderStore using a sql.DB with optional configuration.
func NewFromSQLDB(db *sql.DB, options ...Option) (OrderStore, error) {
	if db == nil {
		return OrderStore{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewFromSQLX creates a new OrderStore using a sqlx.DB with optional configuration.
func NewFromSQLX(db *sqlx.DB, options ...Option) (OrderStore, error) {
	if db == nil {
		return OrderStore{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (OrderStore, error) {
	os := OrderStore{db: db}

	for _, option := range options {
		if err := option(&os); err != nil {
			return OrderStore{}, err
		}
	}

	return os, nil
}

// queryExecer is satisfied by both the adapter itself and an open transaction.
type queryExecer interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// executeQuery executes the SQL query and returns rows with timing information.
func (os OrderStore) executeQuery(ctx context.Context, db queryExecer, sqlQuery string, action string) (
	adapters.DBRows,
	error,
) {

	start := time.Now()
	rows, queryErr := db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	os.logQueryWithDuration(sqlQuery, action, duration)

	if queryErr != nil {
		if os.logger != nil {
			os.logger.Error(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		}

		return nil, errors.Join(ErrQueryingOrdersFailed, queryErr)
	}

	return rows, nil
}

// executeExec executes the SQL statement and returns the affected row count with timing information.
func (os OrderStore) executeExec(ctx context.Context, db queryExecer, sqlQuery string, action string) (
	int64,
	error,
) {

	start := time.Now()
	result, execErr := db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	os.logQueryWithDuration(sqlQuery, action, duration)

	if execErr != nil {
		if os.logger != nil {
			os.logger.Error(logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		}

		return 0, errors.Join(ErrApplyingChangesFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		return 0, errors.Join(ErrApplyingChangesFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// withinTx runs fn inside one transaction, rolling back on any error.
func (os OrderStore) withinTx(ctx context.Context, fn func(tx adapters.DBTx) error) error {
	tx, beginErr := os.db.Begin(ctx)
	if beginErr != nil {
		if os.logger != nil {
			os.logger.Error(logMsgBeginTxFailed, logAttrError, beginErr.Error())
		}

		return errors.Join(ErrApplyingChangesFailed, beginErr)
	}

	if fnErr := fn(tx); fnErr != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			if os.logger != nil {
				os.logger.Warn(logMsgCommitTxFailed, logAttrError, rollbackErr.Error())
			}
		}

		return fnErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		if os.logger != nil {
			os.logger.Error(logMsgCommitTxFailed, logAttrError, commitErr.Error())
		}

		return errors.Join(ErrApplyingChangesFailed, commitErr)
	}

	return nil
}

// closeRows safely closes database rows and logs any errors.
func (os OrderStore) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if os.logger != nil {
			os.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// logQueryWithDuration logs SQL queries with execution time at debug level if the logger is configured.
func (os OrderStore) logQueryWithDuration(sqlQuery string, action string, duration time.Duration) {
	if os.logger != nil {
		os.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, os.durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if the logger is configured.
func (os OrderStore) logOperation(action string, args ...any) {
	if os.logger != nil {
		os.logger.Info(logMsgOperation+action, args...)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (os OrderStore) durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
