package placeorder

import (
	"time"

	"github.com/google/uuid"

	"github.com/liblend/orderdesk/internal/core"
)

const commandType = "PlaceOrder"

// Command represents the intent of a reader to place a new order.
type Command struct {
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
	readerTicket core.ReaderTicketString,
	libraryID int64,
	bookIDs []core.BookIDString,
	returnItemIDs []uuid.UUID,
	occurredAt time.Time,
) Command {

	return Command{
		ReaderTicket:  readerTicket,
		LibraryID:     libraryID,
		BookIDs:       bookIDs,
		ReturnItemIDs: returnItemIDs,
		OccurredAt:    core.ToOccurredAt(occurredAt),
	}
}
