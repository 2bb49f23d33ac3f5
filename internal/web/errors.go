package web

// errors.go turns engine and adapter errors into responses.
//
// Every error is logged with its technical detail and the request ID, then
// rendered as a core.UserMessage in the format the client asked for: an
// alert fragment for HTMX, JSON for API clients, or the full page with an
// alert for plain browser form posts.

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/JonMunkholm/suppliers/internal/core"
	"github.com/JonMunkholm/suppliers/internal/dataset"
	"github.com/JonMunkholm/suppliers/internal/logging"
	"github.com/JonMunkholm/suppliers/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err. Order matters: missing and
// too-large files are also IO failures.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrStaleTable),
		errors.Is(err, dataset.ErrNoData),
		errors.Is(err, dataset.ErrNoSchema):
		return http.StatusConflict
	case errors.Is(err, dataset.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, fs.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNoFileSelected),
		errors.Is(err, core.ErrInvalidFileName),
		errors.Is(err, core.ErrBadRequest),
		errors.Is(err, dataset.ErrUnknownColumn),
		errors.Is(err, dataset.ErrSchemaMismatch),
		errors.Is(err, dataset.ErrInvalidQuery),
		errors.Is(err, dataset.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, dataset.ErrParseFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes a user-facing response for it.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request error", "path", r.URL.Path, "method", r.Method,
			"status", status, "code", msg.Code, "error", err.Error())
	} else {
		log.Warn("request rejected", "path", r.URL.Path, "method", r.Method,
			"status", status, "code", msg.Code, "error", err.Error())
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, msg, status)
	case wantsJSON(r):
		respondErrorJSON(w, msg, status)
	default:
		s.renderErrorPage(w, r, msg, status)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// renderErrorPage re-renders the editor page with the alert above the
// current table, so a failed form post leaves the user where they were.
func (s *Server) renderErrorPage(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	params, _ := s.pageParams(r)
	params.Alert = &msg
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Page(params).Render(r.Context(), w)
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client prefers a JSON response. Form posts
// from the editor page get HTML even on /api routes.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/") && !isFormPost(r)
}

// isFormPost reports whether r carries an HTML form body.
func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}
