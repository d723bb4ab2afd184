// Package listorders implements the reader-facing order queries: the list
// of a reader's own orders and the detail view of a single one. Both are
// pure read operations; the detail view hides orders of other readers as
// if they did not exist.
package listorders
