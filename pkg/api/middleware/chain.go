package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws to h so that mws[0] runs first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// writeError writes the JSON error body shared with the API handlers.
func writeError(w http.ResponseWriter, r *http.Request, status int, errType, code, message string) {
	detail := map[string]string{"message": message, "type": errType}
	if code != "" {
		detail["code"] = code
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"error": detail}); err != nil {
		slog.WarnContext(r.Context(), "failed to write error response", "error", err)
	}
}

// reject counts a refused request and writes its error.
func reject(w http.ResponseWriter, r *http.Request, rec RejectionRecorder, status int, errType, code, message string) {
	if rec != nil {
		reason := code
		if status == http.StatusUnauthorized {
			reason = "unauthorized"
		}
		rec.RecordRejection(reason)
	}
	writeError(w, r, status, errType, code, message)
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader captures the status code before writing.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called if not already done.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
