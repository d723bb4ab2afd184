package withdraworder

import (
	"time"

	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

const commandType = "WithdrawOrder"

// Command represents the intent of a reader to cancel one of their orders.
type Command struct {
	OrderID      uuid.UUID
	ReaderTicket core.ReaderTicketString
	OccurredAt   time.Time
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(orderID uuid.UUID, readerTicket core.ReaderTicketString, occurredAt time.Time) Command {
	return Command{
		OrderID:      orderID,
		ReaderTicket: readerTicket,
		OccurredAt:   core.ToOccurredAt(occurredAt),
	}
}
