// Package ratelimit throttles API clients.
//
// A Limiter keeps one token bucket per client key (an API key name or a
// remote IP) for the per-second rate, an optional fixed one-minute window
// and a process-wide cap on in-flight requests. Idle clients are forgotten
// after a configurable TTL.
//
// # Usage
//
//	limiter := ratelimit.New(cfg.Server.RateLimit)
//	d := limiter.Allow("ci")
//	if !d.Allowed {
//	    w.Header().Set("Retry-After", d.RetryAfterSeconds())
//	    return
//	}
//	if !limiter.Acquire() {
//	    return // too many in flight
//	}
//	defer limiter.Release()
package ratelimit
