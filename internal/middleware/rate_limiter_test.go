package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiterEnforcesBurst(t *testing.T) {
	limiter := NewIPRateLimiter(2, time.Minute, 2, time.Minute)

	if !limiter.Allow("1.2.3.4") || !limiter.Allow("1.2.3.4") {
		t.Fatal("expected first two requests to pass")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("expected third request to be limited")
	}

	// Other callers are tracked independently.
	if !limiter.Allow("5.6.7.8") {
		t.Fatal("expected fresh key to pass")
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func TestLimitMiddlewareReturns429Envelope(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run when limited")
	})
	handler := Limit(denyAllLimiter{})(next)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d got %d", http.StatusTooManyRequests, rec.Code)
	}

	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["success"] != false {
		t.Fatalf("expected success false, got %v", payload["success"])
	}
}
