package httpapi

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/liblend/orderdesk/internal/core"
	"github.com/liblend/orderdesk/internal/shell/opac"
	"github.com/liblend/orderdesk/internal/shell/orderstore"
	"github.com/liblend/orderdesk/internal/shell/userlock"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"

	codeBusy         = "busy"
	codeUnauthorized = "unauthorized"
	codeForbidden    = "forbidden"
	codeNotFound     = "not_found"
	codeUpstream     = "upstream_unavailable"
	codeBadRequest   = "bad_request"
	codeInternal     = "internal_error"

	logMsgEncodeFailed    = "encoding response failed"
	logMsgUnexpectedError = "unexpected error serving request"
)

// errorBody is the wire shape of every non-2xx response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	BookID    string `json:"book_id,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logError(logMsgEncodeFailed, err)
	}
}

func (s *Server) writeErrorCode(w http.ResponseWriter, status int, code string, message string) {
	s.writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// respondError maps an error from the feature layer onto the HTTP surface.
// Domain faults become 400 with their stable code; everything unrecognized
// is a 500 and gets logged.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	if fault, ok := core.FaultFrom(err); ok {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    string(fault.Code),
			Message: fault.Error(),
			BookID:  fault.BookID,
			ItemID:  fault.ItemID,
			Status:  string(fault.Status),
		}})

		return
	}

	switch {
	case errors.Is(err, userlock.ErrBusy):
		s.writeJSON(w, http.StatusConflict, errorBody{Error: errorDetail{
			Code:      codeBusy,
			Message:   "another request for this user is in flight, retry shortly",
			Retryable: true,
		}})
	case errors.Is(err, orderstore.ErrOrderNotFound), errors.Is(err, orderstore.ErrItemNotFound):
		s.writeErrorCode(w, http.StatusNotFound, codeNotFound, "order not found")
	case errors.Is(err, opac.ErrInvalidCredentials):
		s.writeErrorCode(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
	case errors.Is(err, opac.ErrUpstreamUnavailable):
		s.writeErrorCode(w, http.StatusBadGateway, codeUpstream, "library system unavailable")
	default:
		s.logError(logMsgUnexpectedError, err)
		s.writeErrorCode(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func (s *Server) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, "error", err.Error())
	}
}
