// Package placeorder implements the reader-facing use case of placing a new
// book order: validating the requested composition against the catalog and
// the reader's active items, persisting the order atomically, and notifying
// the staff desk.
package placeorder
