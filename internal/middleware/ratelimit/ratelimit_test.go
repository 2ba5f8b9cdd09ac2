package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("request over the limit should be rejected")
	}

	// Another client has its own window.
	if !rl.Allow("5.6.7.8") {
		t.Error("a different client should be allowed")
	}
}

func TestAllowCountsHits(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	rl.Allow("1.2.3.4")
	rl.Allow("1.2.3.4")
	rl.Allow("1.2.3.4")

	m := rl.GetMetrics()
	if m.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2", m.TotalHits)
	}
	if m.ClientCount != 1 {
		t.Errorf("ClientCount = %d, want 1", m.ClientCount)
	}
}

func TestWindowReset(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	rl.Allow("1.2.3.4")
	if rl.Allow("1.2.3.4") {
		t.Fatal("second request in window should be rejected")
	}

	// Age the window past a minute.
	rl.mu.Lock()
	rl.clients["1.2.3.4"].lastRequest = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	if !rl.Allow("1.2.3.4") {
		t.Error("request after window reset should be allowed")
	}
}

func TestCleanupRemovesStaleClients(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	defer rl.Stop()

	rl.Allow("1.2.3.4")
	rl.mu.Lock()
	rl.clients["1.2.3.4"].lastRequest = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.cleanupStaleEntries()

	if got := rl.ActiveClients(); got != 0 {
		t.Errorf("ActiveClients = %d, want 0 after cleanup", got)
	}
}

func TestStopTwice(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}

func TestMiddlewareLimitsListedMethodsOnly(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	handler := rl.Middleware(
		func(*http.Request) string { return "1.2.3.4" },
		nil,
		http.MethodPost,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func() int {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		return rr.Code
	}
	get := func() int {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		return rr.Code
	}

	if code := post(); code != http.StatusOK {
		t.Fatalf("first POST status = %d, want 200", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Errorf("second POST status = %d, want 429", code)
	}

	// GET is not in the limited method list and always passes.
	for i := 0; i < 5; i++ {
		if code := get(); code != http.StatusOK {
			t.Fatalf("GET %d status = %d, want 200", i, code)
		}
	}
}
