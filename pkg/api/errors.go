package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error types.
const (
	ErrorTypeInvalidRequest = "invalid_request_error"
	ErrorTypeTooLarge       = "request_too_large"
	ErrorTypeTimeout        = "timeout"
	ErrorTypeServerError    = "server_error"
)

// Error codes.
const (
	CodeInvalidJSON    = "invalid_json"
	CodeInvalidOptions = "invalid_options"
	CodeMissingContent = "missing_content"
	CodeBodyTooLarge   = "body_too_large"
	CodeTimeout        = "request_timeout"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.WarnContext(r.Context(), "failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, errType, code, message string) {
	writeJSON(w, r, status, ErrorResponse{Error: ErrorDetail{
		Message: message,
		Type:    errType,
		Code:    code,
	}})
}
