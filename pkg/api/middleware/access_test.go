package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"promptstudio/aegis/pkg/config"
	"promptstudio/aegis/pkg/ratelimit"
)

type fakeRejections struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeRejections) RecordRejection(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestAPIKeyAuth(t *testing.T) {
	ks := NewKeySet(config.AuthConfig{
		Header: "X-API-Key",
		Keys: []config.APIKeyConfig{
			{Name: "ci", Key: "secret-ci"},
			{Name: "old", Key: "secret-old", Disabled: true},
		},
	})

	var client string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, _ = ClientFromContext(r.Context())
	})

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantCode   string
		wantClient string
	}{
		{name: "header key", headers: map[string]string{"X-API-Key": "secret-ci"}, wantStatus: 200, wantClient: "ci"},
		{name: "bearer token", headers: map[string]string{"Authorization": "Bearer secret-ci"}, wantStatus: 200, wantClient: "ci"},
		{name: "lowercase bearer", headers: map[string]string{"Authorization": "bearer secret-ci"}, wantStatus: 200, wantClient: "ci"},
		{name: "missing", wantStatus: 401, wantCode: "missing_api_key"},
		{name: "basic auth ignored", headers: map[string]string{"Authorization": "Basic c2VjcmV0"}, wantStatus: 401, wantCode: "missing_api_key"},
		{name: "wrong key", headers: map[string]string{"X-API-Key": "guess"}, wantStatus: 401, wantCode: "invalid_api_key"},
		{name: "disabled key", headers: map[string]string{"X-API-Key": "secret-old"}, wantStatus: 401, wantCode: "invalid_api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client = ""
			rec := &fakeRejections{}
			req := httptest.NewRequest(http.MethodPost, "/v1/safety/check", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			APIKeyAuth(ks, rec)(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if got := errorCode(t, w); got != tt.wantCode {
					t.Errorf("error code = %q, want %q", got, tt.wantCode)
				}
				if len(rec.reasons) != 1 || rec.reasons[0] != "unauthorized" {
					t.Errorf("rejections = %v, want [unauthorized]", rec.reasons)
				}
			}
			if client != tt.wantClient {
				t.Errorf("client = %q, want %q", client, tt.wantClient)
			}
		})
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	if got := ClientKey(req); got != "ip:10.0.0.7" {
		t.Errorf("ClientKey() = %q, want ip:10.0.0.7", got)
	}

	req = req.WithContext(WithClient(req.Context(), "ci"))
	if got := ClientKey(req); got != "key:ci" {
		t.Errorf("ClientKey() = %q, want key:ci", got)
	}
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})
	rec := &fakeRejections{}
	handler := RateLimit(limiter, rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/safety/check", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := send("10.0.0.1:1000"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}
	w := send("10.0.0.1:1001")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if got := errorCode(t, w); got != ratelimit.ReasonRate {
		t.Errorf("error code = %q, want %q", got, ratelimit.ReasonRate)
	}
	if w := send("10.0.0.2:1000"); w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
	if len(rec.reasons) != 1 || rec.reasons[0] != ratelimit.ReasonRate {
		t.Errorf("rejections = %v", rec.reasons)
	}
	if got := limiter.InFlight(); got != 0 {
		t.Errorf("InFlight() = %d after requests finished, want 0", got)
	}
}

func TestRateLimit_Concurrency(t *testing.T) {
	limiter := ratelimit.New(config.RateLimitConfig{MaxConcurrent: 1})
	entered := make(chan struct{})
	release := make(chan struct{})
	handler := RateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}()
	<-entered

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	close(release)
	<-done

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if got := errorCode(t, w); got != "concurrency" {
		t.Errorf("error code = %q, want concurrency", got)
	}
}

func TestRateLimit_NilLimiter(t *testing.T) {
	handler := RateLimit(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
}
