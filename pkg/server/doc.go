// Package server provides the HTTP server of the safety service.
//
// It wires the API handlers, the health probes and the Prometheus endpoint
// onto one mux, wraps it in the middleware chain and manages the
// http.Server lifecycle including graceful shutdown on SIGTERM or SIGINT.
//
// # Basic Usage
//
//	svc, err := service.New(cfg, info, service.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(context.Background())
//
//	srv := server.NewServer(svc)
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Routes
//
//   - POST /v1/safety/check - run a safety check
//   - POST /v1/safety/sanitize - check and sanitize, writing the text back
//   - GET /v1/safety/patterns - list the active patterns
//   - GET /health, /ready, /version - probes (paths configurable)
//   - GET /metrics - Prometheus metrics when enabled
//
// # Middleware Chain
//
// Requests pass through the following middleware (outermost first):
//  1. Recovery: turns panics into 500 responses
//  2. Tracing: extracts the trace context and starts the server span
//  3. RequestID: accepts or generates X-Request-ID
//  4. Logging: logs one line per request
//  5. CORS: answers preflight and adds CORS headers
//  6. BodyLimit: caps the request body
//  7. Timeout: sets the request deadline
//
// API routes are additionally wrapped, per route, with request metrics,
// then API-key auth when server.auth is enabled, then rate limiting when
// server.rate_limit is enabled. Probes and /metrics are never
// authenticated or throttled.
package server
