package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"promptstudio/aegis/pkg/telemetry/logging"
	"promptstudio/aegis/pkg/telemetry/tracing"
)

// RequestIDHeader is the HTTP header for request ID.
const RequestIDHeader = "X-Request-ID"

// validRequestID limits client-supplied IDs to characters that are safe to
// log and echo back.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestID assigns every request an ID, reusing a well-formed X-Request-ID
// sent by the client and otherwise generating a UUID. The ID is stored in
// the request context for logging, set on the current span and echoed in
// the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(requestID) {
			requestID = uuid.New().String()
		}

		ctx := logging.WithRequestID(r.Context(), requestID)
		tracing.SetRequestAttributes(trace.SpanFromContext(ctx), requestID, "api")

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
