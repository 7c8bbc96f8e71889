package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusFor(err))
//  3. Error is mapped via core.MapError to get a user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is written as JSON with its support code
//
// Client errors with no dedicated message (code ERR000) also carry the
// technical cause in details.reason, since the generic text alone gives the
// caller nothing to act on.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/CoordImport/internal/core"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Message string        `json:"message"`
	Action  string        `json:"action,omitempty"`
	Code    string        `json:"code"`
	Details *ErrorDetails `json:"details,omitempty"`
}

// ErrorDetails carries the row counts of a failed import.
type ErrorDetails struct {
	Attempted int    `json:"attempted"`
	Kept      int    `json:"kept"`
	Reason    string `json:"reason,omitempty"`
}

// respondError logs the technical error server-side and writes a
// user-friendly JSON error.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := requestLogger(r)
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"user_message", core.FormatUserError(err),
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}

	var importErr *core.ImportError
	if errors.As(err, &importErr) && (importErr.Attempted > 0 || importErr.Reason != "") {
		resp.Details = &ErrorDetails{
			Attempted: importErr.Attempted,
			Kept:      importErr.Kept,
			Reason:    importErr.Reason,
		}
	} else if !core.IsUserFacing(err) && statusCode < http.StatusInternalServerError {
		resp.Details = &ErrorDetails{Reason: err.Error()}
	}

	writeJSON(w, r, statusCode, resp)
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrWorkspaceNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrImportInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports), errors.Is(err, core.ErrTransformUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrTransformFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, core.ErrNoValidRows),
		errors.Is(err, core.ErrInvalidMapping),
		errors.Is(err, core.ErrFileUnreadable),
		errors.Is(err, core.ErrUnknownSchema):
		return http.StatusBadRequest
	}

	var br *badRequest
	if errors.As(err, &br) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// badRequest marks a malformed request so it maps to a 400 unless the
// wrapped error already has a more specific status.
type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

func invalidRequest(err error) error { return &badRequest{err: err} }
