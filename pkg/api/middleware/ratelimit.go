package middleware

import (
	"log/slog"
	"net/http"

	"promptstudio/aegis/pkg/ratelimit"
)

// RateLimit applies per-client throttling and the in-flight cap. Throttled
// requests get 429 with a Retry-After header; requests over the in-flight
// cap get 503.
func RateLimit(l *ratelimit.Limiter, rec RejectionRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			if d := l.Allow(key); !d.Allowed {
				slog.WarnContext(r.Context(), "request throttled",
					"client", key,
					"reason", d.Reason,
					"retry_after", d.RetryAfter,
				)
				w.Header().Set("Retry-After", d.RetryAfterSeconds())
				reject(w, r, rec, http.StatusTooManyRequests, "rate_limit_error", d.Reason, "Too many requests. Retry later.")
				return
			}

			if !l.Acquire() {
				w.Header().Set("Retry-After", "1")
				reject(w, r, rec, http.StatusServiceUnavailable, "overloaded", "concurrency", "The server is busy. Retry later.")
				return
			}
			defer l.Release()

			next.ServeHTTP(w, r)
		})
	}
}
