// Package core contains the pure domain model of the order lifecycle:
// entities, status enums, the fault taxonomy, and the decision functions that
// validate order composition and drive status transitions.
//
// Everything in this package is side-effect free. Decision functions take the
// current persisted state (orders, items, history, resolved loans) and return
// a Changeset describing the writes to apply; the shell applies a Changeset
// atomically. This keeps the business rules deterministic and testable
// without a database or any external gateway.
//
// The current status of an order is never stored as a mutable column - it is
// always derived from the append-only history ledger, see CurrentStatus.
package core
