package web

import (
	"context"
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/datamaster/internal/core"
	"github.com/JonMunkholm/datamaster/internal/csvcodec"
	"github.com/JonMunkholm/datamaster/internal/filter"
	"github.com/JonMunkholm/datamaster/internal/logging"
	"github.com/JonMunkholm/datamaster/internal/pgsource"
	"github.com/JonMunkholm/datamaster/internal/query"
	"github.com/JonMunkholm/datamaster/internal/web/templates"
)

// ErrorResponse is the JSON body of every API error. Code matches the
// codes documented in core.MapError.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var errBadRequest = errors.New("bad request")

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTableExists), errors.Is(err, core.ErrNothingToUndo):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidName),
		errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, core.ErrInvalidRecords),
		errors.Is(err, query.ErrUnsupported),
		errors.Is(err, query.ErrWhereRequired),
		errors.Is(err, query.ErrInvalidWhere),
		errors.Is(err, filter.ErrSyntax),
		errors.Is(err, pgsource.ErrEmptyQuery),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyRows),
		errors.Is(err, pgsource.ErrTooManyRows),
		errors.Is(err, csvcodec.ErrTooLarge),
		errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrWorkspaceFull):
		return http.StatusInsufficientStorage
	case errors.Is(err, core.ErrImportUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, core.ErrTooManyLoads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrImportQuery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error with the request ID and sends the
// mapped user message as JSON.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", args...)
	} else {
		logger.Info("request rejected", args...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, r, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorPage renders err as an HTML page.
func respondErrorPage(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Info("page error",
		"path", r.URL.Path,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = templates.ErrorPage(msg, chimw.GetReqID(r.Context())).Render(r.Context(), w)
}
