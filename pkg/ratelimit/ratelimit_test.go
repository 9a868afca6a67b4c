package ratelimit

import (
	"sync"
	"testing"
	"time"

	"promptstudio/aegis/pkg/config"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestTokenBucket(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(3, 2, clock.Now)

	for i := 0; i < 3; i++ {
		if ok, _ := bucket.Take(); !ok {
			t.Fatalf("Take() #%d = false, want true within burst", i+1)
		}
	}
	ok, wait := bucket.Take()
	if ok {
		t.Fatal("Take() on empty bucket = true, want false")
	}
	if wait != 500*time.Millisecond {
		t.Errorf("wait = %v, want 500ms at 2 tokens/s", wait)
	}

	clock.Advance(500 * time.Millisecond)
	if ok, _ := bucket.Take(); !ok {
		t.Error("Take() after refill = false, want true")
	}

	clock.Advance(time.Hour)
	if got := bucket.Remaining(); got != 3 {
		t.Errorf("Remaining() = %d, want capacity 3", got)
	}
}

func TestTokenBucket_FractionalRate(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(1, 0.5, clock.Now)

	bucket.Take()
	clock.Advance(time.Second)
	if ok, wait := bucket.Take(); ok || wait != time.Second {
		t.Errorf("Take() = %v, %v, want false, 1s", ok, wait)
	}
	clock.Advance(time.Second)
	if ok, _ := bucket.Take(); !ok {
		t.Error("Take() after 2s at 0.5/s = false, want true")
	}
}

func TestConcurrentLimiter(t *testing.T) {
	cl := NewConcurrentLimiter(2)

	if !cl.Acquire() || !cl.Acquire() {
		t.Fatal("Acquire() within limit = false")
	}
	if cl.Acquire() {
		t.Fatal("Acquire() over limit = true")
	}
	if got := cl.Current(); got != 2 {
		t.Errorf("Current() = %d, want 2", got)
	}
	cl.Release()
	if !cl.Acquire() {
		t.Error("Acquire() after Release = false")
	}

	unlimited := NewConcurrentLimiter(0)
	for i := 0; i < 100; i++ {
		if !unlimited.Acquire() {
			t.Fatal("unlimited Acquire() = false")
		}
	}
}

func TestConcurrentLimiter_Parallel(t *testing.T) {
	cl := NewConcurrentLimiter(10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cl.Acquire() {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 10 {
		t.Errorf("admitted = %d, want 10", admitted)
	}
}

func TestLimiter_Allow(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.RateLimitConfig
		requests   int
		wantPassed int
		wantReason string
	}{
		{
			name:       "burst then rate limited",
			cfg:        config.RateLimitConfig{RequestsPerSecond: 1, Burst: 3},
			requests:   5,
			wantPassed: 3,
			wantReason: ReasonRate,
		},
		{
			name:       "minute quota",
			cfg:        config.RateLimitConfig{RequestsPerMinute: 2},
			requests:   4,
			wantPassed: 2,
			wantReason: ReasonMinute,
		},
		{
			name:       "minute quota below burst",
			cfg:        config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100, RequestsPerMinute: 5},
			requests:   10,
			wantPassed: 5,
			wantReason: ReasonMinute,
		},
		{
			name:       "no limits",
			cfg:        config.RateLimitConfig{},
			requests:   50,
			wantPassed: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			l := newLimiter(tt.cfg, clock.Now)

			passed := 0
			var last Decision
			for i := 0; i < tt.requests; i++ {
				d := l.Allow("client")
				if d.Allowed {
					passed++
				} else {
					last = d
				}
			}
			if passed != tt.wantPassed {
				t.Errorf("passed = %d, want %d", passed, tt.wantPassed)
			}
			if last.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", last.Reason, tt.wantReason)
			}
			if tt.wantReason != "" && last.RetryAfter <= 0 {
				t.Errorf("RetryAfter = %v, want positive", last.RetryAfter)
			}
		})
	}
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1}, clock.Now)

	if !l.Allow("a").Allowed {
		t.Fatal("first request from a rejected")
	}
	if l.Allow("a").Allowed {
		t.Fatal("second request from a allowed")
	}
	if !l.Allow("b").Allowed {
		t.Error("first request from b rejected")
	}
}

func TestLimiter_MinuteWindowResets(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(config.RateLimitConfig{RequestsPerMinute: 1}, clock.Now)

	l.Allow("a")
	clock.Advance(20 * time.Second)
	d := l.Allow("a")
	if d.Allowed {
		t.Fatal("second request in window allowed")
	}
	if d.RetryAfter != 40*time.Second {
		t.Errorf("RetryAfter = %v, want 40s", d.RetryAfter)
	}

	clock.Advance(40 * time.Second)
	if !l.Allow("a").Allowed {
		t.Error("request in new window rejected")
	}
}

func TestLimiter_SweepsIdleClients(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute}, clock.Now)

	l.Allow("a")
	l.Allow("b")
	clock.Advance(30 * time.Second)
	l.Allow("b")
	clock.Advance(40 * time.Second)
	l.Allow("c")

	if got := l.Clients(); got != 2 {
		t.Errorf("Clients() = %d, want 2 after a expired", got)
	}
}

func TestDecision_RetryAfterSeconds(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want string
	}{
		{0, "1"},
		{200 * time.Millisecond, "1"},
		{time.Second, "1"},
		{1500 * time.Millisecond, "2"},
		{40 * time.Second, "40"},
	}
	for _, tt := range tests {
		if got := (Decision{RetryAfter: tt.wait}).RetryAfterSeconds(); got != tt.want {
			t.Errorf("RetryAfterSeconds(%v) = %q, want %q", tt.wait, got, tt.want)
		}
	}
}

func TestLimiter_InFlight(t *testing.T) {
	l := New(config.RateLimitConfig{MaxConcurrent: 1})

	if !l.Acquire() {
		t.Fatal("Acquire() = false")
	}
	if l.Acquire() {
		t.Error("second Acquire() = true, want false")
	}
	if got := l.InFlight(); got != 1 {
		t.Errorf("InFlight() = %d, want 1", got)
	}
	l.Release()
	if got := l.InFlight(); got != 0 {
		t.Errorf("InFlight() after Release = %d, want 0", got)
	}
}
