package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
	"github.com/liblend/orderdesk/internal/features/command/advanceorder"
	"github.com/liblend/orderdesk/internal/features/command/placeorder"
	"github.com/liblend/orderdesk/internal/features/command/updateorder"
	"github.com/liblend/orderdesk/internal/features/command/withdraworder"
	"github.com/liblend/orderdesk/internal/features/query/borrowedbooks"
	"github.com/liblend/orderdesk/internal/features/query/checkorder"
	"github.com/liblend/orderdesk/internal/features/query/listorders"
	"github.com/liblend/orderdesk/internal/features/query/ordersbystatus"
	"github.com/liblend/orderdesk/internal/features/query/orderstats"
	"github.com/liblend/orderdesk/internal/shell/notify"
	"github.com/liblend/orderdesk/internal/shell/opac"
)

// Identity is the slice of the identity gateway the server needs.
type Identity interface {
	Login(ctx context.Context, username string, password string) (opac.Session, error)
	Profile(ctx context.Context, accessToken string) (core.ReaderProfile, error)
}

// PlaceOrder handles the reader's order creation use case.
type PlaceOrder interface {
	Handle(ctx context.Context, command placeorder.Command) (uuid.UUID, error)
}

// UpdateOrder handles the reader's order edit use case.
type UpdateOrder interface {
	Handle(ctx context.Context, command updateorder.Command) error
}

// WithdrawOrder handles the reader's order cancellation use case.
type WithdrawOrder interface {
	Handle(ctx context.Context, command withdraworder.Command) error
}

// AdvanceOrder handles the staff transition use case.
type AdvanceOrder interface {
	Handle(ctx context.Context, command advanceorder.Command) (core.OrderStatus, error)
}

// ListOrders serves the reader's order list and detail views.
type ListOrders interface {
	Handle(ctx context.Context, query listorders.Query) (listorders.ReaderOrders, error)
	HandleDetail(ctx context.Context, query listorders.DetailQuery) (listorders.OrderView, error)
}

// StaffOrders serves the staff board and staff detail views.
type StaffOrders interface {
	Handle(ctx context.Context, query ordersbystatus.Query) (ordersbystatus.StaffOrders, error)
	HandleDetail(ctx context.Context, query ordersbystatus.DetailQuery) (ordersbystatus.OrderView, error)
}

// CheckOrder serves the staff check preview.
type CheckOrder interface {
	Handle(ctx context.Context, query checkorder.Query) (checkorder.OrderCheck, error)
}

// BorrowedBooks serves the handed-out item views.
type BorrowedBooks interface {
	Handle(ctx context.Context, query borrowedbooks.Query) (borrowedbooks.BorrowedBooks, error)
	HandleReturning(ctx context.Context, query borrowedbooks.ReturningQuery) (borrowedbooks.ReturningItems, error)
}

// OrderStats serves the live statistics view.
type OrderStats interface {
	Handle(ctx context.Context, query orderstats.Query) (orderstats.Stats, error)
}

// DigestSender mails staff a summary of orders still waiting for pickup.
// Triggered by an external scheduler through the digest endpoint.
type DigestSender interface {
	PendingDigest(ctx context.Context, entries []notify.DigestEntry)
}

// Logger abstracts logging without binding to a concrete library.
// It is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Handlers bundles the feature handlers the server routes to.
type Handlers struct {
	PlaceOrder    PlaceOrder
	UpdateOrder   UpdateOrder
	WithdrawOrder WithdrawOrder
	AdvanceOrder  AdvanceOrder
	ListOrders    ListOrders
	StaffOrders   StaffOrders
	CheckOrder    CheckOrder
	BorrowedBooks BorrowedBooks
	OrderStats    OrderStats
}

// Server routes HTTP requests to the feature handlers.
type Server struct {
	handlers Handlers
	identity Identity
	sessions Sessions
	digest   DigestSender
	logger   Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDigest enables the staff digest endpoint.
func WithDigest(digest DigestSender) Option {
	return func(s *Server) {
		s.digest = digest
	}
}

// NewServer creates a Server with the provided dependencies and options.
func NewServer(handlers Handlers, identity Identity, sessions Sessions, opts ...Option) *Server {
	server := &Server{
		handlers: handlers,
		identity: identity,
		sessions: sessions,
	}

	for _, opt := range opts {
		opt(server)
	}

	return server
}

// Routes builds the chi router with the full API surface.
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Post("/api/auth/login", s.handleLogin)

	router.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/api/orders", s.handleListOrders)
		r.Post("/api/orders", s.handlePlaceOrder)
		r.Get("/api/orders/{orderID}", s.handleOrderDetail)
		r.Put("/api/orders/{orderID}", s.handleUpdateOrder)
		r.Delete("/api/orders/{orderID}", s.handleWithdrawOrder)
		r.Get("/api/borrowed", s.handleBorrowedBooks)

		r.Group(func(staff chi.Router) {
			staff.Use(s.requireStaff)

			staff.Get("/api/staff/orders", s.handleStaffOrders)
			staff.Get("/api/staff/orders/{orderID}", s.handleStaffOrderDetail)
			staff.Put("/api/staff/orders/{orderID}", s.handleAdvanceOrder)
			staff.Get("/api/staff/orders/{orderID}/check", s.handleCheckOrder)
			staff.Get("/api/staff/orders/{orderID}/returning", s.handleReturningItems)
			staff.Post("/api/staff/digest", s.handleSendDigest)
			staff.Get("/api/stats/live", s.handleOrderStats)
		})
	})

	return router
}
