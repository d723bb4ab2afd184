package advanceorder

import (
	"time"

	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

const commandType = "AdvanceOrder"

// Command represents the intent of a staff member to advance an order to a
// target status, with per-item decisions for READY transitions.
type Command struct {
	OrderID     uuid.UUID
	StaffTicket string
	Target      core.OrderStatus
	Description string
	Decisions   []core.ItemDecision
	OccurredAt  time.Time
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(
	orderID uuid.UUID,
	staffTicket string,
	target core.OrderStatus,
	description string,
	decisions []core.ItemDecision,
	occurredAt time.Time,
) Command {

	return Command{
		OrderID:     orderID,
		StaffTicket: staffTicket,
		Target:      target,
		Description: description,
		Decisions:   decisions,
		OccurredAt:  core.ToOccurredAt(occurredAt),
	}
}
