package core

import "time"

// BookLink is an external resource attached to a catalog record.
type BookLink struct {
	URL         string
	Description string
}

// Book is the canonical record the catalog gateway produces from an external
// OPAC response. The ID encodes "collection_recordID" and is the identifier
// order items reference.
type Book struct {
	ID          BookIDString
	LibraryID   int64
	Description string
	Year        int
	Copies      int
	Orderable   bool
	Links       []BookLink
	Author      []string
	Collective  []string
	Title       []string
	ISBN        []string
	Language    []string
	Country     []string
	City        []string
	Publisher   []string
	Subject     []string
	Keyword     []string
	Cover       string
	Brief       string
}

// Loan is an external record of a reader currently holding a physical book,
// with its book reference already resolved into the canonical id space.
type Loan struct {
	BookID        BookIDString
	HandedAt      time.Time
	Deadline      time.Time
	Overdue       bool
	Prolongations int
}

// ReaderProfile is the identity provider's view of a reader or staff member.
type ReaderProfile struct {
	Ticket     ReaderTicketString
	Name       string
	Allowed    bool
	Debtor     bool
	Gone       bool
	Academ     bool
	Department string
	Mail       string
	Mira       string
}

// Role is the access level granted by the identity provider at login.
type Role string

const (
	RoleReader    Role = "reader"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

// IsStaff reports whether the role may drive staff order transitions.
func (r Role) IsStaff() bool {
	return r == RoleLibrarian || r == RoleAdmin
}
