package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestLimiter(t *testing.T, perMinute, burst int) (*Limiter, *fakeClock) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, Burst: burst, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl.nowFn = clock.Now
	return rl, clock
}

func TestAllowRefillsTokens(t *testing.T) {
	rl, clock := newTestLimiter(t, 60, 2)

	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow("1.1.1.1") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Fatal("other clients have their own bucket")
	}

	clock.now = clock.now.Add(time.Second)
	if !rl.Allow("1.1.1.1") {
		t.Fatal("a token should refill after one second")
	}

	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 2 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, clock := newTestLimiter(t, 60, 1)
	rl.Allow("1.1.1.1")
	clock.now = clock.now.Add(5 * time.Minute)
	rl.Allow("2.2.2.2")

	clock.now = clock.now.Add(6 * time.Minute)
	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("expected one stale client removed, got %d", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("expected one client left, got %d", rl.ActiveClients())
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 60, 1)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := rl.Middleware(func(*http.Request) string { return "9.9.9.9" }, WritesOnly, nil)(ok)

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/transactions", nil))
		return rr
	}

	if rr := do(http.MethodPost); rr.Code != http.StatusNoContent {
		t.Fatalf("first POST: %d", rr.Code)
	}
	rr := do(http.MethodPost)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST: expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Fatalf("unexpected Retry-After %q", rr.Header().Get("Retry-After"))
	}
	if rr := do(http.MethodGet); rr.Code != http.StatusNoContent {
		t.Fatalf("GET should bypass the limiter, got %d", rr.Code)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
}
