package opac

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liblend/orderdesk/internal/core"
)

const (
	pathReaderLoans = "/api/readers/loans/internal/"

	resolveConcurrency = 4
)

// Loan is a live loan record as the OPAC reports it, before its book
// reference is resolved into the canonical id space.
type Loan struct {
	Collection    string
	RecordID      string
	HandedAt      time.Time
	Deadline      time.Time
	Overdue       bool
	Prolongations int
}

type opacLoan struct {
	Type         string `json:"type"`
	Overdue      bool   `json:"overdue"`
	Can          bool   `json:"can"`
	DB           string `json:"db"`
	Book         string `json:"book"`
	Number       string `json:"number"`
	Date         string `json:"date"`
	Deadline     string `json:"deadline"`
	Prolongation int    `json:"prolongation"`
}

// LoansByTicket fetches the live loans of a reader over the internal route.
func (c *Client) LoansByTicket(ctx context.Context, ticket core.ReaderTicketString) ([]Loan, error) {
	var result []opacLoan
	err := c.getJSON(ctx, pathReaderLoans+string(ticket), nil, c.internalHeader(), &result)
	if err != nil {
		return nil, err
	}

	loans := make([]Loan, 0, len(result))
	for _, loan := range result {
		loans = append(loans, Loan{
			Collection:    loan.DB,
			RecordID:      loan.Book,
			HandedAt:      parseLoanTime(loan.Date),
			Deadline:      parseLoanTime(loan.Deadline),
			Overdue:       loan.Overdue,
			Prolongations: loan.Prolongation,
		})
	}

	return loans, nil
}

// ResolveLoans maps loan book references into the canonical id space by
// looking each record up in the catalog, a few lookups at a time. A record
// the catalog no longer knows keeps its raw reference, normalized; an
// upstream failure aborts the whole resolution.
func (c *Client) ResolveLoans(ctx context.Context, loans []Loan) ([]core.Loan, error) {
	resolved := make([]core.Loan, len(loans))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(resolveConcurrency)

	for i, loan := range loans {
		group.Go(func() error {
			book, err := c.ByCollectionID(groupCtx, loan.Collection, loan.RecordID)
			if err != nil {
				return err
			}

			bookID := fallbackLoanBookID(loan)
			if book != nil {
				bookID = book.ID
			}

			resolved[i] = core.Loan{
				BookID:        bookID,
				HandedAt:      loan.HandedAt,
				Deadline:      loan.Deadline,
				Overdue:       loan.Overdue,
				Prolongations: loan.Prolongations,
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return resolved, nil
}

// LiveLoans fetches and resolves a reader's loans in one call, the shape
// order transitions and the check preview consume.
func (c *Client) LiveLoans(ctx context.Context, ticket core.ReaderTicketString) ([]core.Loan, error) {
	loans, err := c.LoansByTicket(ctx, ticket)
	if err != nil {
		return nil, err
	}

	return c.ResolveLoans(ctx, loans)
}

func fallbackLoanBookID(loan Loan) core.BookIDString {
	return core.BookIDString(loan.Collection + "_" + strings.ReplaceAll(loan.RecordID, "/", "_"))
}

// loanTimeLayouts are tried in order; the OPAC is not consistent about
// its date rendering across collections.
var loanTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006",
}

func parseLoanTime(value string) time.Time {
	for _, layout := range loanTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}

	return time.Time{}
}
