package orderstats

import (
	"context"
	"time"

	"github.com/liblend/orderdesk/internal/core"
)

// OrderStore defines the interface needed by the QueryHandler for the
// aggregate reads.
type OrderStore interface {
	StatusCounts(ctx context.Context) (map[core.OrderStatus]int, error)
	DoneCountSince(ctx context.Context, since time.Time) (int, error)
}

// QueryHandler computes the live stats from the store aggregates.
// "Today" is the local day of the configured clock.
type QueryHandler struct {
	store OrderStore
	now   func() time.Time
}

// Option configures a QueryHandler.
type Option func(*QueryHandler)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *QueryHandler) {
		h.now = now
	}
}

// NewQueryHandler creates a new QueryHandler with the provided OrderStore
// dependency and options.
func NewQueryHandler(store OrderStore, opts ...Option) QueryHandler {
	handler := QueryHandler{
		store: store,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle fetches the per-status counts and today's completions.
func (h QueryHandler) Handle(ctx context.Context, _ Query) (Stats, error) {
	counts, countsErr := h.store.StatusCounts(ctx)
	if countsErr != nil {
		return Stats{}, countsErr
	}

	now := h.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	doneToday, doneErr := h.store.DoneCountSince(ctx, startOfDay)
	if doneErr != nil {
		return Stats{}, doneErr
	}

	total := 0
	for _, count := range counts {
		total += count
	}

	return Stats{
		ByStatus:  counts,
		DoneToday: doneToday,
		Total:     total,
	}, nil
}
