package ratelimit

import (
	"strconv"
	"sync"
	"time"

	"promptstudio/aegis/pkg/config"
)

// Reasons reported in a Decision.
const (
	ReasonRate   = "rate_limited"
	ReasonMinute = "minute_quota"
)

// Decision is the outcome of Allow.
type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
}

// RetryAfterSeconds formats RetryAfter for the Retry-After header, rounded
// up to a whole second.
func (d Decision) RetryAfterSeconds() string {
	secs := int64((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

type client struct {
	bucket      *TokenBucket
	windowStart time.Time
	windowCount int
	lastSeen    time.Time
}

// Limiter tracks per-client rates and the global in-flight cap.
type Limiter struct {
	cfg        config.RateLimitConfig
	concurrent *ConcurrentLimiter
	now        func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

// New returns a limiter for cfg.
func New(cfg config.RateLimitConfig) *Limiter {
	return newLimiter(cfg, time.Now)
}

func newLimiter(cfg config.RateLimitConfig, now func() time.Time) *Limiter {
	return &Limiter{
		cfg:        cfg,
		concurrent: NewConcurrentLimiter(cfg.MaxConcurrent),
		now:        now,
		clients:    make(map[string]*client),
		lastSweep:  now(),
	}
}

// Allow records a request from key and reports whether it may proceed.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()

	l.mu.Lock()
	l.sweepLocked(now)
	c, ok := l.clients[key]
	if !ok {
		c = &client{windowStart: now}
		if l.cfg.RequestsPerSecond > 0 {
			c.bucket = newTokenBucket(l.cfg.Burst, l.cfg.RequestsPerSecond, l.now)
		}
		l.clients[key] = c
	}
	c.lastSeen = now

	if l.cfg.RequestsPerMinute > 0 {
		if now.Sub(c.windowStart) >= time.Minute {
			c.windowStart = now
			c.windowCount = 0
		}
		if c.windowCount >= l.cfg.RequestsPerMinute {
			retry := c.windowStart.Add(time.Minute).Sub(now)
			l.mu.Unlock()
			return Decision{Reason: ReasonMinute, RetryAfter: retry}
		}
	}
	bucket := c.bucket
	l.mu.Unlock()

	if bucket != nil {
		if ok, wait := bucket.Take(); !ok {
			return Decision{Reason: ReasonRate, RetryAfter: wait}
		}
	}

	if l.cfg.RequestsPerMinute > 0 {
		l.mu.Lock()
		c.windowCount++
		l.mu.Unlock()
	}
	return Decision{Allowed: true}
}

// Acquire takes an in-flight slot. A caller that gets true must Release.
func (l *Limiter) Acquire() bool {
	return l.concurrent.Acquire()
}

// Release returns an in-flight slot.
func (l *Limiter) Release() {
	l.concurrent.Release()
}

// InFlight returns the number of held slots.
func (l *Limiter) InFlight() int64 {
	return l.concurrent.Current()
}

// Clients returns the number of tracked clients.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// sweepLocked drops clients idle longer than IdleTTL, at most once per TTL.
func (l *Limiter) sweepLocked(now time.Time) {
	ttl := l.cfg.IdleTTL
	if ttl <= 0 || now.Sub(l.lastSweep) < ttl {
		return
	}
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) >= ttl {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}
