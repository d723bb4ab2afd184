// Package borrowedbooks implements the queries over handed-out items: the
// books a reader currently holds across all their orders, and the items
// other orders registered for return together with one order.
package borrowedbooks
