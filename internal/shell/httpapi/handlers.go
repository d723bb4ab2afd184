package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
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
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role"`
}

type composeOrderRequest struct {
	LibraryID     int64       `json:"library_id"`
	BookIDs       []string    `json:"books"`
	ReturnItemIDs []uuid.UUID `json:"return_items"`
}

type advanceOrderRequest struct {
	Status      string            `json:"status"`
	Description string            `json:"description"`
	Decisions   []decisionPayload `json:"decisions"`
}

type decisionPayload struct {
	ItemID          uuid.UUID `json:"item_id"`
	Status          string    `json:"status"`
	Description     string    `json:"description"`
	AnalogousBookID string    `json:"analogous_book_id"`
}

type orderIDResponse struct {
	OrderID uuid.UUID `json:"order_id"`
}

type transitionResponse struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
}

type itemPayload struct {
	ID            uuid.UUID  `json:"id"`
	BookID        string     `json:"book_id"`
	Status        string     `json:"status"`
	Description   *string    `json:"description,omitempty"`
	OrderToReturn *uuid.UUID `json:"order_to_return,omitempty"`
	HandedAt      *time.Time `json:"handed_at,omitempty"`
	ToReturnAt    *time.Time `json:"to_return_at,omitempty"`
	ReturnedAt    *time.Time `json:"returned_at,omitempty"`
	AnalogousItem *uuid.UUID `json:"analogous_item,omitempty"`
}

type historyPayload struct {
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	StaffTicket *string   `json:"staff_ticket,omitempty"`
}

type orderPayload struct {
	ID           uuid.UUID        `json:"id"`
	ReaderTicket string           `json:"reader_ticket"`
	LibraryID    int64            `json:"library_id"`
	Status       string           `json:"status"`
	StatusAt     time.Time        `json:"status_at"`
	Items        []itemPayload    `json:"items"`
	History      []historyPayload `json:"history,omitempty"`
}

type orderListResponse struct {
	Orders []orderPayload `json:"orders"`
	Count  int            `json:"count"`
}

type loanPayload struct {
	BookID        string    `json:"book_id"`
	HandedAt      time.Time `json:"handed_at"`
	Deadline      time.Time `json:"deadline"`
	Overdue       bool      `json:"overdue"`
	Prolongations int       `json:"prolongations"`
}

type orderCheckResponse struct {
	OrderID      uuid.UUID     `json:"order_id"`
	ReaderTicket string        `json:"reader_ticket"`
	Found        []itemPayload `json:"found"`
	NotFound     []itemPayload `json:"not_found"`
	Additional   []loanPayload `json:"additional"`
}

type itemListResponse struct {
	Items []itemPayload `json:"items"`
	Count int           `json:"count"`
}

type statsResponse struct {
	ByStatus  map[string]int `json:"by_status"`
	DoneToday int            `json:"done_today"`
	Total     int            `json:"total"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeErrorCode(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}

	session, loginErr := s.identity.Login(r.Context(), request.Username, request.Password)
	if loginErr != nil {
		s.respondError(w, loginErr)
		return
	}

	// Prime the session cache so the role granted here survives into
	// later requests. A failed profile lookup only costs the cache entry.
	profile, profileErr := s.identity.Profile(r.Context(), session.AccessToken)
	if profileErr != nil {
		s.logError("profile lookup after login failed", profileErr)
	} else {
		principal := Principal{Profile: profile, Role: session.Role}
		if putErr := s.sessions.Put(r.Context(), session.AccessToken, principal); putErr != nil {
			s.logError("session cache write failed", putErr)
		}
	}

	s.writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		Role:         string(session.Role),
	})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var request composeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeErrorCode(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}

	command := placeorder.BuildCommand(
		principal.Profile.Ticket,
		request.LibraryID,
		request.BookIDs,
		request.ReturnItemIDs,
		time.Now(),
	)

	orderID, err := s.handlers.PlaceOrder.Handle(r.Context(), command)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, orderIDResponse{OrderID: orderID})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	result, err := s.handlers.ListOrders.Handle(r.Context(), listorders.BuildQuery(principal.Profile.Ticket))
	if err != nil {
		s.respondError(w, err)
		return
	}

	orders := make([]orderPayload, 0, len(result.Orders))
	for _, view := range result.Orders {
		orders = append(orders, orderPayloadFrom(view.Order, view.Status, view.StatusAt, view.Items, view.History))
	}

	s.writeJSON(w, http.StatusOK, orderListResponse{Orders: orders, Count: result.Count})
}

func (s *Server) handleOrderDetail(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	orderID, ok := s.orderIDParam(w, r)
	if !ok {
		return
	}

	view, err := s.handlers.ListOrders.HandleDetail(
		r.Context(),
		listorders.BuildDetailQuery(principal.Profile.Ticket, orderID),
	)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, orderPayloadFrom(view.Order, view.Status, view.StatusAt, view.Items, view.History))
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	orderID, ok := s.orderIDParam(w, r)
	if !ok {
		return
	}

	var request composeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeErrorCode(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}

	command := updateorder.BuildCommand(
		orderID,
		principal.Profile.Ticket,
		request.LibraryID,
		request.BookIDs,
		request.ReturnItemIDs,
		time.Now(),
	)

	if err := s.handlers.UpdateOrder.Handle(r.Context(), command); err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, orderIDResponse{OrderID: orderID})
}

func (s *Server) handleWithdrawOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	orderID, ok := s.orderIDParam(w, r)
	if !ok {
		return
	}

	command := withdraworder.BuildCommand(orderID, principal.Profile.Ticket, time.Now())

	if err := s.handlers.WithdrawOrder.Handle(r.Context(), command); err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleBorrowedBooks(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	result, err := s.handlers.BorrowedBooks.Handle(r.Context(), borrowedbooks.BuildQuery(principal.Profile.Ticket))
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, itemListResponse{Items: itemPayloadsFrom(result.Items), Count: result.Count})
}

func (s *Server) handleStaffOrders(w http.ResponseWriter, r *http.Request) {
	status := core.OrderStatus(r.URL.Query().Get("status"))
	if !status.IsValid() {
		s.writeErrorCode(w, http.StatusBadRequest, codeBadRequest, "unknown order status")
		return
	}

	result, err := s.handlers.StaffOrders.Handle(r.Context(), ordersbystatus.BuildQuery(status))
	if err != nil {
		s.respondError(w, err)
		return
	}

	orders := make([]orderPayload, 0, len(result.Orders))
	for _, view := range result.Orders {
		orders = append(orders, orderPayloadFrom(view.Order, view.Status, view.StatusAt, view.Items, view.History))
	}

	s.writeJSON(w, http.StatusOK, orderListResponse{Orders: orders, Count: result.Count})
}

func (s *Server) handleStaffOrderDetail(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.orderIDParam(w, r)
	if !ok {
		return
	}

	view, err := s.handlers.StaffOrders.HandleDetail(r.Context(), ordersbystatus.BuildDetailQuery(orderID))
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, orderPayloadFrom(view.Order, view.Status, view.StatusAt, view.Items, view.History))
}

func (s *Server) handleAdvanceOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	orderID, ok := s.orderIDParam(w, r)
	if !ok {
		return
	}

	var request advanceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeErrorCode(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}

	decisions := make([]core.ItemDecision, 0, len(request.Decisions))
	for _, decision := range request.Decisions {
		decisions = append(decisions, core.ItemDecision{
			ItemID:          decision.ItemID,
			Status:          core.ItemStatus(decision.Status),
			Description:     decision.Description,
			AnalogousBookID: decision.AnalogousBookID,
		})
	}

	command := advanceorder.BuildCommand(
		orderID,
		principal.Profile.Ticket,
		core.OrderStatus(request.Status),
		request.Description,
		decisions,
		time.Now(),
	)

	result, err := s.handlers.AdvanceOrder.Handle(r.Context(), command)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, transitionResponse{OrderID: orderID, Status: string(result)})
}

func (s *Server) handleCheckOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.orderIDParam(w, r)
	if !ok {
		return
	}

	check, err := s.handlers.CheckOrder.Handle(r.Context(), checkorder.BuildQuery(orderID))
	if err != nil {
		s.respondError(w, err)
		return
	}

	additional := make([]loanPayload, 0, len(check.Additional))
	for _, loan := range check.Additional {
		additional = append(additional, loanPayload{
			BookID:        loan.BookID,
			HandedAt:      loan.HandedAt,
			Deadline:      loan.Deadline,
			Overdue:       loan.Overdue,
			Prolongations: loan.Prolongations,
		})
	}

	s.writeJSON(w, http.StatusOK, orderCheckResponse{
		OrderID:      check.OrderID,
		ReaderTicket: check.ReaderTicket,
		Found:        itemPayloadsFrom(check.Found),
		NotFound:     itemPayloadsFrom(check.NotFound),
		Additional:   additional,
	})
}

func (s *Server) handleReturningItems(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.orderIDParam(w, r)
	if !ok {
		return
	}

	result, err := s.handlers.BorrowedBooks.HandleReturning(r.Context(), borrowedbooks.BuildReturningQuery(orderID))
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, itemListResponse{Items: itemPayloadsFrom(result.Items), Count: result.Count})
}

// handleSendDigest mails staff the list of orders still in NEW. It exists
// for an external scheduler; with notifications disabled it is a no-op.
func (s *Server) handleSendDigest(w http.ResponseWriter, r *http.Request) {
	if s.digest == nil {
		s.writeJSON(w, http.StatusNoContent, nil)
		return
	}

	pending, err := s.handlers.StaffOrders.Handle(r.Context(), ordersbystatus.BuildQuery(core.OrderStatusNew))
	if err != nil {
		s.respondError(w, err)
		return
	}

	entries := make([]notify.DigestEntry, 0, len(pending.Orders))
	for _, view := range pending.Orders {
		entries = append(entries, notify.DigestEntry{
			OrderID:      view.Order.ID,
			ReaderTicket: view.Order.ReaderTicket,
			PlacedAt:     view.StatusAt,
		})
	}

	s.digest.PendingDigest(r.Context(), entries)
	s.writeJSON(w, http.StatusAccepted, map[string]int{"pending": len(entries)})
}

func (s *Server) handleOrderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.handlers.OrderStats.Handle(r.Context(), orderstats.BuildQuery())
	if err != nil {
		s.respondError(w, err)
		return
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		ByStatus:  byStatus,
		DoneToday: stats.DoneToday,
		Total:     stats.Total,
	})
}

func (s *Server) orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		s.writeErrorCode(w, http.StatusBadRequest, codeBadRequest, "malformed order id")
		return uuid.UUID{}, false
	}

	return orderID, true
}

func orderPayloadFrom(
	order core.Order,
	status core.OrderStatus,
	statusAt time.Time,
	items []core.OrderItem,
	history []core.HistoryEntry,
) orderPayload {

	payload := orderPayload{
		ID:           order.ID,
		ReaderTicket: order.ReaderTicket,
		LibraryID:    order.LibraryID,
		Status:       string(status),
		StatusAt:     statusAt,
		Items:        itemPayloadsFrom(items),
	}

	for _, entry := range history {
		payload.History = append(payload.History, historyPayload{
			Status:      string(entry.Status),
			Description: entry.Description,
			OccurredAt:  entry.OccurredAt,
			StaffTicket: entry.StaffTicket,
		})
	}

	return payload
}

func itemPayloadsFrom(items []core.OrderItem) []itemPayload {
	payloads := make([]itemPayload, 0, len(items))

	for _, item := range items {
		payloads = append(payloads, itemPayload{
			ID:            item.ID,
			BookID:        item.BookID,
			Status:        string(item.Status),
			Description:   item.Description,
			OrderToReturn: item.OrderToReturn,
			HandedAt:      item.HandedAt,
			ToReturnAt:    item.ToReturnAt,
			ReturnedAt:    item.ReturnedAt,
			AnalogousItem: item.AnalogousItem,
		})
	}

	return payloads
}
