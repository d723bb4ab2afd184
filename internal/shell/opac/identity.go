package opac

import (
	"context"
	"errors"
	"net/http"

	"github.com/liblend/orderdesk/internal/core"
)

const (
	pathLoginReader    = "/api/login/reader"
	pathLoginAdmin     = "/api/login/admin"
	pathLoginLibrarian = "/api/login/librarian"
	pathReaderInfo     = "/api/readers/info"
	pathReaderInternal = "/api/readers/internal/"
)

// Session holds the opaque tokens the identity provider issued and the
// role of the route that accepted the credentials.
type Session struct {
	AccessToken  string
	RefreshToken string
	Role         core.Role
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type userInfoResponse struct {
	Ticket     string `json:"ticket"`
	Name       string `json:"name"`
	Allowed    bool   `json:"allowed"`
	Debtor     bool   `json:"debtor"`
	Gone       bool   `json:"gone"`
	Academ     bool   `json:"academ"`
	Department string `json:"department"`
	Mail       string `json:"mail"`
	Mira       string `json:"mira"`
}

// loginRoutes are tried in order; the first route that accepts the
// credentials determines the session role.
var loginRoutes = []struct {
	path string
	role core.Role
}{
	{path: pathLoginReader, role: core.RoleReader},
	{path: pathLoginAdmin, role: core.RoleAdmin},
	{path: pathLoginLibrarian, role: core.RoleLibrarian},
}

// Login authenticates against the reader, admin, and librarian routes in
// sequence. A route rejecting the credentials falls through to the next;
// exhausting all routes yields ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, username string, password string) (Session, error) {
	payload := loginRequest{Username: username, Password: password}

	for _, route := range loginRoutes {
		var result authResponse
		err := c.postJSON(ctx, route.path, nil, payload, &result)
		if err == nil {
			return Session{
				AccessToken:  result.AccessToken,
				RefreshToken: result.RefreshToken,
				Role:         route.role,
			}, nil
		}

		var status statusError
		if errors.As(err, &status) && !errors.Is(err, ErrUpstreamUnavailable) {
			continue
		}

		return Session{}, err
	}

	return Session{}, ErrInvalidCredentials
}

// Profile resolves the profile behind an access token.
func (c *Client) Profile(ctx context.Context, accessToken string) (core.ReaderProfile, error) {
	header := http.Header{headerAuthorization: []string{"Bearer " + accessToken}}

	var result userInfoResponse
	if err := c.getJSON(ctx, pathReaderInfo, nil, header, &result); err != nil {
		var status statusError
		if errors.As(err, &status) && !errors.Is(err, ErrUpstreamUnavailable) {
			return core.ReaderProfile{}, ErrInvalidCredentials
		}

		return core.ReaderProfile{}, err
	}

	return profileFromResponse(result), nil
}

// ReaderByTicket resolves a profile by library card over the internal
// server-to-server route.
func (c *Client) ReaderByTicket(ctx context.Context, ticket core.ReaderTicketString) (core.ReaderProfile, error) {
	var result userInfoResponse
	err := c.getJSON(ctx, pathReaderInternal+string(ticket), nil, c.internalHeader(), &result)
	if err != nil {
		return core.ReaderProfile{}, err
	}

	return profileFromResponse(result), nil
}

func profileFromResponse(result userInfoResponse) core.ReaderProfile {
	return core.ReaderProfile{
		Ticket:     core.ReaderTicketString(result.Ticket),
		Name:       result.Name,
		Allowed:    result.Allowed,
		Debtor:     result.Debtor,
		Gone:       result.Gone,
		Academ:     result.Academ,
		Department: result.Department,
		Mail:       result.Mail,
		Mira:       result.Mira,
	}
}
