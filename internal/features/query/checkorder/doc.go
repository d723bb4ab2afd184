// Package checkorder implements the staff check preview: the order's items
// partitioned against the reader's live loans, without writing anything.
// Staff run it before completing an order to see which books the reader
// actually holds, which are missing, and which loans no item accounts for.
package checkorder
