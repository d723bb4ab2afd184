// Package opac talks to the external OPAC service that owns the catalog,
// reader identities, and live loan records. All calls are context-aware
// and run under a bounded timeout; upstream failures surface as
// ErrUpstreamUnavailable so the API layer can answer 502.
package opac

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	headerInternalToken = "X-ISTU-Request"
	headerAuthorization = "Authorization"

	defaultTimeout = 10 * time.Second

	logMsgUpstreamFailed = "opac request failed"
	logAttrError         = "error"
	logAttrPath          = "path"
	logAttrStatus        = "status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sentinel errors for upstream outcomes.
var (
	ErrUpstreamUnavailable = errors.New("opac upstream unavailable")
	ErrInvalidCredentials  = errors.New("login rejected by identity provider")
)

// Logger interface for request diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Client is an HTTP client for the OPAC service. The collections map
// translates catalog collection names into the library ids orders carry.
type Client struct {
	baseURL       string
	internalToken string
	collections   map[string]int64
	httpClient    *http.Client
	logger        Logger
}

// Option defines a functional option for configuring Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout on the HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger for the Client.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an OPAC client. The internal token authenticates
// server-to-server routes; collections maps collection names to library ids.
func NewClient(baseURL string, internalToken string, collections map[string]int64, options ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		internalToken: internalToken,
		collections:   collections,
		httpClient:    &http.Client{Timeout: defaultTimeout},
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// statusError carries a non-2xx upstream response code below 500.
type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("opac responded with status %d", e.code)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, header http.Header, out any) error {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(path, query), nil)
	if reqErr != nil {
		return reqErr
	}

	return c.do(req, header, out)
}

func (c *Client) postJSON(ctx context.Context, path string, query url.Values, payload any, out any) error {
	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return marshalErr
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(path, query), bytes.NewReader(body))
	if reqErr != nil {
		return reqErr
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil, out)
}

func (c *Client) do(req *http.Request, header http.Header, out any) error {
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		c.logFailure(req.URL.Path, 0, doErr)
		return errors.Join(ErrUpstreamUnavailable, doErr)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logFailure(req.URL.Path, resp.StatusCode, nil)
		return errors.Join(ErrUpstreamUnavailable, statusError{code: resp.StatusCode})
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError{code: resp.StatusCode}
	}

	if out == nil {
		return nil
	}

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		c.logFailure(req.URL.Path, resp.StatusCode, readErr)
		return errors.Join(ErrUpstreamUnavailable, readErr)
	}

	if unmarshalErr := json.Unmarshal(body, out); unmarshalErr != nil {
		c.logFailure(req.URL.Path, resp.StatusCode, unmarshalErr)
		return errors.Join(ErrUpstreamUnavailable, unmarshalErr)
	}

	return nil
}

func (c *Client) requestURL(path string, query url.Values) string {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	return requestURL
}

func (c *Client) internalHeader() http.Header {
	return http.Header{headerInternalToken: []string{c.internalToken}}
}

func (c *Client) logFailure(path string, status int, cause error) {
	if c.logger == nil {
		return
	}

	args := []any{logAttrPath, path, logAttrStatus, status}
	if cause != nil {
		args = append(args, logAttrError, cause.Error())
	}

	c.logger.Warn(logMsgUpstreamFailed, args...)
}
