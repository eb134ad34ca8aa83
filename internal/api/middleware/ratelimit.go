package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/lcportal/lcportal/internal/service"
)

// RateLimitMiddleware provides rate limiting middleware
type RateLimitMiddleware struct {
	rateLimitService *service.RateLimitService
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(rateLimitService *service.RateLimitService) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
	}
}

// RateLimit checks and enforces the fixed-window request limit, keyed by the
// authenticated user when present, otherwise by remote address
func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := clientKey(r)

		result, err := m.rateLimitService.CheckAndIncrement(r.Context(), clientID)
		if err != nil {
			// Fail open on Redis errors rather than blocking traffic
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		w.Header().Set("X-RateLimit-Used", fmt.Sprintf("%d", result.Used))

		if !result.Allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", result.RetryAfterSecs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"error":"Rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if user := GetUser(r.Context()); user != nil {
		return "user:" + user.ID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
