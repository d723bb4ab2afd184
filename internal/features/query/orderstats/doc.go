// Package orderstats implements the live stats query for the staff
// dashboard: order counts per current status plus the number of orders
// completed since the start of the current day.
package orderstats
