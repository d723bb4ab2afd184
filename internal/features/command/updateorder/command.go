package updateorder

import (
	"time"

	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

const commandType = "UpdateOrder"

// Command represents the intent of a reader to replace the composition of
// one of their orders.
type Command struct {
	OrderID       uuid.UUID
	ReaderTicket  core.ReaderTicketString
	LibraryID     int64
	BookIDs       []core.BookIDString
	ReturnItemIDs []uuid.UUID
	OccurredAt    time.Time
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(
	orderID uuid.UUID,
	readerTicket core.ReaderTicketString,
	libraryID int64,
	bookIDs []core.BookIDString,
	returnItemIDs []uuid.UUID,
	occurredAt time.Time,
) Command {

	return Command{
		OrderID:       orderID,
		ReaderTicket:  readerTicket,
		LibraryID:     libraryID,
		BookIDs:       bookIDs,
		ReturnItemIDs: returnItemIDs,
		OccurredAt:    core.ToOccurredAt(occurredAt),
	}
}
