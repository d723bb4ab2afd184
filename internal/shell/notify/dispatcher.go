// Package notify delivers order event notifications to librarians and
// readers. Delivery is best-effort: failures are logged and never
// propagated into the request that triggered them, and nothing is sent
// outside the library's staffed hours.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

const (
	logMsgSendFailed   = "failed to send notification"
	logMsgOutsideHours = "notification skipped outside working hours"
	logAttrError       = "error"
	logAttrSubject     = "subject"
	logAttrRecipients  = "recipients"
	logAttrOrderID     = "order_id"
	logAttrOrderCount  = "order_count"
)

// Message is one outbound notification.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers a single message over some transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Logger interface for delivery diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// WorkingHours describes when the library is staffed. Hours are local
// whole hours, end exclusive. Sunday is always closed.
type WorkingHours struct {
	WeekdayStart  int
	WeekdayEnd    int
	SaturdayStart int
	SaturdayEnd   int
}

// Contains reports whether t falls into the staffed hours.
func (w WorkingHours) Contains(t time.Time) bool {
	hour := t.Hour()

	switch t.Weekday() {
	case time.Saturday:
		return w.SaturdayStart <= hour && hour < w.SaturdayEnd
	case time.Sunday:
		return false
	default:
		return w.WeekdayStart <= hour && hour < w.WeekdayEnd
	}
}

// Dispatcher routes order events to the configured staff mailbox and to
// readers. A nil sender disables delivery entirely.
type Dispatcher struct {
	sender    Sender
	hours     WorkingHours
	staffMail []string
	logger    Logger
	now       func() time.Time
}

// Option defines a functional option for configuring Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for the Dispatcher.
func WithLogger(logger Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher creates a Dispatcher sending staff notifications to the
// given addresses during the given hours.
func NewDispatcher(sender Sender, hours WorkingHours, staffMail []string, options ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:    sender,
		hours:     hours,
		staffMail: staffMail,
		now:       time.Now,
	}

	for _, option := range options {
		option(d)
	}

	return d
}

// OrderCreated tells the staff mailbox about a freshly placed order.
func (d *Dispatcher) OrderCreated(ctx context.Context, orderID uuid.UUID) {
	msg := Message{
		To:      d.staffMail,
		Subject: "New order placed",
		Body:    fmt.Sprintf("A new order %s is waiting to be processed.", orderID),
	}

	d.deliver(ctx, msg, logAttrOrderID, orderID.String())
}

// statusSubjects are the reader-facing transitions worth a message.
var statusSubjects = map[core.OrderStatus]string{
	core.OrderStatusReady:     "Your order is ready for pickup",
	core.OrderStatusDone:      "Your order has been handed out",
	core.OrderStatusCancelled: "Your order has been cancelled",
}

// OrderTransitioned tells the reader about a status change on their order.
// Transitions without a reader-facing subject are silently skipped.
func (d *Dispatcher) OrderTransitioned(ctx context.Context, orderID uuid.UUID, status core.OrderStatus, readerMail string) {
	subject, ok := statusSubjects[status]
	if !ok || readerMail == "" {
		return
	}

	msg := Message{
		To:      []string{readerMail},
		Subject: subject,
		Body:    fmt.Sprintf("Order %s is now %s.", orderID, status),
	}

	d.deliver(ctx, msg, logAttrOrderID, orderID.String())
}

// DigestEntry is one order line in the pending-orders digest.
type DigestEntry struct {
	OrderID      uuid.UUID
	ReaderTicket core.ReaderTicketString
	PlacedAt     time.Time
}

// PendingDigest sends the staff mailbox a summary of orders still waiting
// in status new. Meant to be triggered periodically by an external caller.
func (d *Dispatcher) PendingDigest(ctx context.Context, entries []DigestEntry) {
	if len(entries) == 0 {
		return
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%d orders are waiting to be processed:\n", len(entries))
	for _, entry := range entries {
		fmt.Fprintf(&body, "- %s placed by %s at %s\n",
			entry.OrderID, entry.ReaderTicket, entry.PlacedAt.Format(time.RFC3339))
	}

	msg := Message{
		To:      d.staffMail,
		Subject: fmt.Sprintf("%d orders pending", len(entries)),
		Body:    body.String(),
	}

	d.deliver(ctx, msg, logAttrOrderCount, len(entries))
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message, extraKey string, extraVal any) {
	if d.sender == nil || len(msg.To) == 0 {
		return
	}

	if !d.hours.Contains(d.now()) {
		if d.logger != nil {
			d.logger.Debug(logMsgOutsideHours, logAttrSubject, msg.Subject, extraKey, extraVal)
		}

		return
	}

	if sendErr := d.sender.Send(ctx, msg); sendErr != nil {
		if d.logger != nil {
			d.logger.Warn(logMsgSendFailed,
				logAttrError, sendErr.Error(),
				logAttrSubject, msg.Subject,
				logAttrRecipients, len(msg.To),
				extraKey, extraVal)
		}
	}
}
