package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/streamtube/backend/internal/logging"
)

// Limit rejects requests exceeding the per-IP rate with 429. Applied to the
// credential endpoints to slow down brute-force attempts.
func Limit(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				logging.FromContext(r.Context()).Warn("rate limit exceeded", "remote_addr", r.RemoteAddr, "path", r.URL.Path)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"statusCode": http.StatusTooManyRequests,
					"data":       nil,
					"message":    "too many requests, slow down",
					"success":    false,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
