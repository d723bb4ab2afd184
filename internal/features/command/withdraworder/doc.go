// Package withdraworder implements the reader-facing use case of cancelling
// their own order. Withdrawal is a status change, not a deletion: the order
// keeps its history and gains a cancelled entry, and all items are
// cancelled with it.
package withdraworder
