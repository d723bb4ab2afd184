// Package ordersbystatus implements the staff board query: all orders
// whose derived current status equals a given one, each with its items,
// plus the staff detail view of a single order. Staff see every order,
// so there is no ownership guard here.
package ordersbystatus
