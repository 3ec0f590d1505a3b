package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Minute})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("request over the limit should be denied")
	}

	// A different client has its own bucket.
	if !rl.Allow("5.6.7.8") {
		t.Error("independent client should be allowed")
	}
}

func TestLimiter_Middleware_OnlyThrottlesMutations(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	handler := rl.Middleware(
		func(r *http.Request) string { return "1.2.3.4" },
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(method string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/accounts", nil))
		return rec.Code
	}

	if code := do(http.MethodPost); code != http.StatusOK {
		t.Errorf("first POST status = %d, want 200", code)
	}
	if code := do(http.MethodPost); code != http.StatusTooManyRequests {
		t.Errorf("second POST status = %d, want 429", code)
	}

	// GETs are never throttled.
	for i := 0; i < 5; i++ {
		if code := do(http.MethodGet); code != http.StatusOK {
			t.Fatalf("GET %d status = %d, want 200", i+1, code)
		}
	}
}
