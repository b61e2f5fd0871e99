package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sparklabs/sparksearch/internal/core"
	"github.com/sparklabs/sparksearch/internal/logging"
)

// errorResponse is the JSON body sent for every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent so all we can do is note it.
		slog.Error("encode response", "error", err)
	}
}

// writeError writes a plain error message with the given status code.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, Message: message})
}

// respondError maps err to a user-facing message and picks an HTTP status
// from its error code.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Warn("request failed",
		"path", r.URL.Path,
		"code", msg.Code,
		"error", err,
	)

	writeJSON(w, statusFor(msg.Code), errorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor maps an application error code to an HTTP status code.
func statusFor(code string) int {
	switch code {
	case "AUTH001":
		return http.StatusUnauthorized
	case "AUTH002":
		return http.StatusUnauthorized
	case "FILE003":
		return http.StatusRequestEntityTooLarge
	case "FILE001", "FILE002", "FILE004", "FILE005", "FLT001", "FLT002":
		return http.StatusBadRequest
	case "ING001":
		return http.StatusNotFound
	case "DB002", "REQ002":
		return http.StatusGatewayTimeout
	case "DB001":
		return http.StatusServiceUnavailable
	case "REQ001":
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}
