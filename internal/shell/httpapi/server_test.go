package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liblend/orderdesk/internal/core"
	"github.com/liblend/orderdesk/internal/features/command/advanceorder"
	"github.com/liblend/orderdesk/internal/features/command/placeorder"
	"github.com/liblend/orderdesk/internal/features/command/updateorder"
	"github.com/liblend/orderdesk/internal/features/query/listorders"
	"github.com/liblend/orderdesk/internal/features/query/ordersbystatus"
	"github.com/liblend/orderdesk/internal/features/query/orderstats"
	"github.com/liblend/orderdesk/internal/shell/notify"
	"github.com/liblend/orderdesk/internal/shell/opac"
	"github.com/liblend/orderdesk/internal/shell/orderstore"
	"github.com/liblend/orderdesk/internal/shell/userlock"
)

type fakeSessions struct {
	entries map[string]Principal
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{entries: make(map[string]Principal)}
}

func (f *fakeSessions) Get(_ context.Context, token string) (*Principal, error) {
	principal, ok := f.entries[token]
	if !ok {
		return nil, nil
	}

	return &principal, nil
}

func (f *fakeSessions) Put(_ context.Context, token string, principal Principal) error {
	f.entries[token] = principal
	return nil
}

type fakeIdentity struct {
	session  opac.Session
	loginErr error

	profiles map[string]core.ReaderProfile
}

func (f *fakeIdentity) Login(_ context.Context, _ string, _ string) (opac.Session, error) {
	if f.loginErr != nil {
		return opac.Session{}, f.loginErr
	}

	return f.session, nil
}

func (f *fakeIdentity) Profile(_ context.Context, accessToken string) (core.ReaderProfile, error) {
	profile, ok := f.profiles[accessToken]
	if !ok {
		return core.ReaderProfile{}, opac.ErrInvalidCredentials
	}

	return profile, nil
}

type fakePlaceOrder struct {
	orderID uuid.UUID
	err     error

	commandSeen placeorder.Command
}

func (f *fakePlaceOrder) Handle(_ context.Context, command placeorder.Command) (uuid.UUID, error) {
	f.commandSeen = command

	if f.err != nil {
		return uuid.UUID{}, f.err
	}

	return f.orderID, nil
}

type fakeUpdateOrder struct {
	err error

	commandSeen updateorder.Command
}

func (f *fakeUpdateOrder) Handle(_ context.Context, command updateorder.Command) error {
	f.commandSeen = command
	return f.err
}

type fakeAdvanceOrder struct {
	result core.OrderStatus
	err    error
}

func (f *fakeAdvanceOrder) Handle(_ context.Context, _ advanceorder.Command) (core.OrderStatus, error) {
	if f.err != nil {
		return "", f.err
	}

	return f.result, nil
}

type fakeListOrders struct {
	detail    listorders.OrderView
	detailErr error
}

func (f *fakeListOrders) Handle(_ context.Context, query listorders.Query) (listorders.ReaderOrders, error) {
	return listorders.ReaderOrders{ReaderTicket: query.ReaderTicket}, nil
}

func (f *fakeListOrders) HandleDetail(_ context.Context, _ listorders.DetailQuery) (listorders.OrderView, error) {
	if f.detailErr != nil {
		return listorders.OrderView{}, f.detailErr
	}

	return f.detail, nil
}

type fakeOrderStats struct {
	stats orderstats.Stats
}

func (f *fakeOrderStats) Handle(_ context.Context, _ orderstats.Query) (orderstats.Stats, error) {
	return f.stats, nil
}

func serverWithSessions(handlers Handlers, identity Identity) (*Server, *fakeSessions) {
	sessions := newFakeSessions()
	sessions.entries["reader-token"] = Principal{
		Profile: core.ReaderProfile{Ticket: "R-100200", Mail: "reader@example.com"},
		Role:    core.RoleReader,
	}
	sessions.entries["staff-token"] = Principal{
		Profile: core.ReaderProfile{Ticket: "S-7"},
		Role:    core.RoleLibrarian,
	}

	if identity == nil {
		identity = &fakeIdentity{profiles: map[string]core.ReaderProfile{}}
	}

	return NewServer(handlers, identity, sessions), sessions
}

func doRequest(server *Server, method string, target string, token string, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	request := httptest.NewRequest(method, target, reader)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.Routes().ServeHTTP(recorder, request)

	return recorder
}

func Test_Login_ReturnsTokensAndRole_AndPrimesTheSessionCache(t *testing.T) {
	identity := &fakeIdentity{
		session: opac.Session{AccessToken: "access-1", RefreshToken: "refresh-1", Role: core.RoleLibrarian},
		profiles: map[string]core.ReaderProfile{
			"access-1": {Ticket: "S-7"},
		},
	}
	server, sessions := serverWithSessions(Handlers{}, identity)

	recorder := doRequest(server, http.MethodPost, "/api/auth/login", "", `{"username":"u","password":"p"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"access_token":"access-1"`)
	assert.Contains(t, recorder.Body.String(), `"role":"librarian"`)

	cached, ok := sessions.entries["access-1"]
	require.True(t, ok)
	assert.Equal(t, core.RoleLibrarian, cached.Role)
	assert.Equal(t, "S-7", cached.Profile.Ticket)
}

func Test_Login_RejectedCredentials(t *testing.T) {
	server, _ := serverWithSessions(Handlers{}, &fakeIdentity{loginErr: opac.ErrInvalidCredentials})

	recorder := doRequest(server, http.MethodPost, "/api/auth/login", "", `{"username":"u","password":"x"}`)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func Test_Authenticate_MissingToken(t *testing.T) {
	server, _ := serverWithSessions(Handlers{ListOrders: &fakeListOrders{}}, nil)

	recorder := doRequest(server, http.MethodGet, "/api/orders", "", "")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func Test_Authenticate_UncachedTokenFallsBackToTheIdentityProvider(t *testing.T) {
	identity := &fakeIdentity{profiles: map[string]core.ReaderProfile{
		"fresh-token": {Ticket: "R-555555"},
	}}
	server, sessions := serverWithSessions(Handlers{ListOrders: &fakeListOrders{}}, identity)

	recorder := doRequest(server, http.MethodGet, "/api/orders", "fresh-token", "")

	assert.Equal(t, http.StatusOK, recorder.Code)

	cached, ok := sessions.entries["fresh-token"]
	require.True(t, ok)
	assert.Equal(t, core.RoleReader, cached.Role)
}

func Test_Authenticate_UnknownToken(t *testing.T) {
	server, _ := serverWithSessions(Handlers{ListOrders: &fakeListOrders{}}, nil)

	recorder := doRequest(server, http.MethodGet, "/api/orders", "bogus", "")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func Test_StaffRoutes_RejectReaders(t *testing.T) {
	server, _ := serverWithSessions(Handlers{OrderStats: &fakeOrderStats{}}, nil)

	recorder := doRequest(server, http.MethodGet, "/api/stats/live", "reader-token", "")

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func Test_PlaceOrder_UsesTheAuthenticatedTicket(t *testing.T) {
	place := &fakePlaceOrder{orderID: uuid.New()}
	server, _ := serverWithSessions(Handlers{PlaceOrder: place}, nil)

	recorder := doRequest(server, http.MethodPost, "/api/orders", "reader-token",
		`{"library_id":1,"books":["ISTU_100"]}`)

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Contains(t, recorder.Body.String(), place.orderID.String())
	assert.Equal(t, "R-100200", place.commandSeen.ReaderTicket)
	assert.Equal(t, []string{"ISTU_100"}, place.commandSeen.BookIDs)
}

func Test_PlaceOrder_FaultBecomes400WithStableCode(t *testing.T) {
	place := &fakePlaceOrder{err: core.ErrDuplicateActiveBook("ISTU_100")}
	server, _ := serverWithSessions(Handlers{PlaceOrder: place}, nil)

	recorder := doRequest(server, http.MethodPost, "/api/orders", "reader-token",
		`{"library_id":1,"books":["ISTU_100"]}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"code":"duplicate_active_book"`)
	assert.Contains(t, recorder.Body.String(), `"book_id":"ISTU_100"`)
}

func Test_PlaceOrder_LockBusyBecomesRetryableConflict(t *testing.T) {
	place := &fakePlaceOrder{err: userlock.ErrBusy}
	server, _ := serverWithSessions(Handlers{PlaceOrder: place}, nil)

	recorder := doRequest(server, http.MethodPost, "/api/orders", "reader-token",
		`{"library_id":1,"books":["ISTU_100"]}`)

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"retryable":true`)
}

func Test_UpdateOrder_RespondsOKWithTheOrderID(t *testing.T) {
	update := &fakeUpdateOrder{}
	server, _ := serverWithSessions(Handlers{UpdateOrder: update}, nil)
	orderID := uuid.New()

	recorder := doRequest(server, http.MethodPut, "/api/orders/"+orderID.String(), "reader-token",
		`{"library_id":1,"books":["ISTU_200"]}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), orderID.String())
	assert.Equal(t, orderID, update.commandSeen.OrderID)
	assert.Equal(t, "R-100200", update.commandSeen.ReaderTicket)
}

func Test_OrderDetail_NotFound(t *testing.T) {
	list := &fakeListOrders{detailErr: orderstore.ErrOrderNotFound}
	server, _ := serverWithSessions(Handlers{ListOrders: list}, nil)

	recorder := doRequest(server, http.MethodGet, "/api/orders/"+uuid.NewString(), "reader-token", "")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func Test_OrderDetail_MalformedID(t *testing.T) {
	server, _ := serverWithSessions(Handlers{ListOrders: &fakeListOrders{}}, nil)

	recorder := doRequest(server, http.MethodGet, "/api/orders/not-a-uuid", "reader-token", "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func Test_AdvanceOrder_ReturnsTheResultingStatus(t *testing.T) {
	advance := &fakeAdvanceOrder{result: core.OrderStatusCancelled}
	server, _ := serverWithSessions(Handlers{AdvanceOrder: advance}, nil)

	recorder := doRequest(server, http.MethodPut, "/api/staff/orders/"+uuid.NewString(), "staff-token",
		`{"status":"ready","decisions":[]}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"cancelled"`)
}

func Test_AdvanceOrder_UpstreamDownBecomes502(t *testing.T) {
	advance := &fakeAdvanceOrder{err: opac.ErrUpstreamUnavailable}
	server, _ := serverWithSessions(Handlers{AdvanceOrder: advance}, nil)

	recorder := doRequest(server, http.MethodPut, "/api/staff/orders/"+uuid.NewString(), "staff-token",
		`{"status":"done"}`)

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}

type fakeStaffOrders struct {
	board ordersbystatus.StaffOrders
}

func (f *fakeStaffOrders) Handle(_ context.Context, _ ordersbystatus.Query) (ordersbystatus.StaffOrders, error) {
	return f.board, nil
}

func (f *fakeStaffOrders) HandleDetail(_ context.Context, _ ordersbystatus.DetailQuery) (ordersbystatus.OrderView, error) {
	return ordersbystatus.OrderView{}, nil
}

type fakeDigest struct {
	entries []notify.DigestEntry
}

func (f *fakeDigest) PendingDigest(_ context.Context, entries []notify.DigestEntry) {
	f.entries = entries
}

func Test_SendDigest_CollectsPendingOrders(t *testing.T) {
	orderID := uuid.New()
	board := ordersbystatus.StaffOrders{
		Status: core.OrderStatusNew,
		Orders: []ordersbystatus.OrderView{
			{Order: core.Order{ID: orderID, ReaderTicket: "R-100200"}, Status: core.OrderStatusNew},
		},
		Count: 1,
	}
	digest := &fakeDigest{}

	server, _ := serverWithSessions(Handlers{StaffOrders: &fakeStaffOrders{board: board}}, nil)
	WithDigest(digest)(server)

	recorder := doRequest(server, http.MethodPost, "/api/staff/digest", "staff-token", "")

	require.Equal(t, http.StatusAccepted, recorder.Code)
	require.Len(t, digest.entries, 1)
	assert.Equal(t, orderID, digest.entries[0].OrderID)
}

func Test_SendDigest_DisabledNotifications_NoOp(t *testing.T) {
	server, _ := serverWithSessions(Handlers{}, nil)

	recorder := doRequest(server, http.MethodPost, "/api/staff/digest", "staff-token", "")

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func Test_StaffOrders_RejectsUnknownStatus(t *testing.T) {
	server, _ := serverWithSessions(Handlers{}, nil)

	recorder := doRequest(server, http.MethodGet, "/api/staff/orders?status=bogus", "staff-token", "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
