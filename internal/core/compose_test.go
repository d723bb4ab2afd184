package core_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/liblend/orderdesk/internal/core"
)

func Test_ValidateNotEmpty_RejectsEmptyBookList(t *testing.T) {
	// act
	err := core.ValidateNotEmpty(core.Composition{LibraryID: 1})

	// assert
	fault, ok := core.FaultFrom(err)
	assert.True(t, ok)
	assert.Equal(t, core.FaultEmptyOrder, fault.Code)
}

func Test_ValidateNotActive_RejectsBookAlreadyOrderedOrHanded(t *testing.T) {
	// arrange
	active := map[string]struct{}{"ISTU_42": {}}

	// act
	err := core.ValidateNotActive("ISTU_42", active)

	// assert
	fault, ok := core.FaultFrom(err)
	assert.True(t, ok)
	assert.Equal(t, core.FaultDuplicateActiveBook, fault.Code)
	assert.Equal(t, "ISTU_42", fault.BookID)
}

func Test_ValidateNotActive_AllowsUnrelatedBook(t *testing.T) {
	// arrange
	active := map[string]struct{}{"ISTU_42": {}}

	// act / assert
	assert.NoError(t, core.ValidateNotActive("ISTU_43", active))
}

func Test_ValidateResolvedBook(t *testing.T) {
	testCases := []struct {
		name         string
		book         *core.Book
		expectedCode core.FaultCode
	}{
		{
			name:         "unresolved book id",
			book:         nil,
			expectedCode: core.FaultInvalidBook,
		},
		{
			name:         "book from another library",
			book:         &core.Book{ID: "FOR_7", LibraryID: 9, Orderable: true},
			expectedCode: core.FaultInvalidBook,
		},
		{
			name:         "book not orderable",
			book:         &core.Book{ID: "ISTU_7", LibraryID: 1, Orderable: false},
			expectedCode: core.FaultNotOrderable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			err := core.ValidateResolvedBook("ISTU_7", tc.book, 1)

			// assert
			fault, ok := core.FaultFrom(err)
			assert.True(t, ok)
			assert.Equal(t, tc.expectedCode, fault.Code)
		})
	}
}

func Test_ValidateResolvedBook_AcceptsOrderableBookInLibrary(t *testing.T) {
	// arrange
	book := &core.Book{ID: "ISTU_7", LibraryID: 1, Orderable: true}

	// act / assert
	assert.NoError(t, core.ValidateResolvedBook("ISTU_7", book, 1))
}

func Test_ValidateReturnReference(t *testing.T) {
	itemID := uuid.New()

	testCases := []struct {
		name      string
		candidate *core.ReturnCandidate
	}{
		{
			name:      "missing item",
			candidate: nil,
		},
		{
			name: "item owned by another reader",
			candidate: &core.ReturnCandidate{
				Item:        core.OrderItem{ID: itemID, Status: core.ItemStatusHanded},
				OwnerTicket: "T-9999",
			},
		},
		{
			name: "item not handed out",
			candidate: &core.ReturnCandidate{
				Item:        core.OrderItem{ID: itemID, Status: core.ItemStatusOrdered},
				OwnerTicket: "T-1001",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			err := core.ValidateReturnReference(itemID, tc.candidate, "T-1001")

			// assert
			fault, ok := core.FaultFrom(err)
			assert.True(t, ok)
			assert.Equal(t, core.FaultInvalidReturnReference, fault.Code)
			assert.Equal(t, itemID.String(), fault.ItemID)
		})
	}
}

func Test_ValidateReturnReference_AcceptsOwnHandedItem(t *testing.T) {
	// arrange
	itemID := uuid.New()
	candidate := &core.ReturnCandidate{
		Item:        core.OrderItem{ID: itemID, Status: core.ItemStatusHanded},
		OwnerTicket: "T-1001",
	}

	// act / assert
	assert.NoError(t, core.ValidateReturnReference(itemID, candidate, "T-1001"))
}
