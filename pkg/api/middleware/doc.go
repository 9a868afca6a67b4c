// Package middleware provides the HTTP middleware used by the Aegis API
// server: request IDs, panic recovery, structured request logging, CORS,
// body size limits, request timeouts, per-route metrics, API-key
// authentication and per-client rate limiting.
//
// Each middleware has the signature func(http.Handler) http.Handler, so
// they compose with Chain:
//
//	handler := middleware.Chain(mux,
//	    middleware.Recovery,
//	    middleware.RequestID,
//	    middleware.Logging,
//	)
//
// The first middleware listed is the outermost.
package middleware
