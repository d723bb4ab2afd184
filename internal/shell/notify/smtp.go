package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers messages over plain SMTP.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPSender creates a sender for the given SMTP endpoint.
// auth may be nil for an unauthenticated relay.
func NewSMTPSender(addr string, from string, auth smtp.Auth) *SMTPSender {
	return &SMTPSender{addr: addr, from: from, auth: auth}
}

// Send delivers one message. The context is honored only between messages;
// net/smtp does not support cancellation mid-delivery.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var payload strings.Builder
	fmt.Fprintf(&payload, "From: %s\r\n", s.from)
	fmt.Fprintf(&payload, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&payload, "Subject: %s\r\n", msg.Subject)
	payload.WriteString("\r\n")
	payload.WriteString(msg.Body)

	return smtp.SendMail(s.addr, s.auth, s.from, msg.To, []byte(payload.String()))
}
