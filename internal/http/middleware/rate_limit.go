package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/luxsuv-identity/internal/http/response"
	"github.com/diagnosis/luxsuv-identity/pkg/logger"
)

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	Requests int           // Max requests per window
	Window   time.Duration // Time window duration
}

// RateLimiter throttles OTP requests per client IP using a redis counter
// window. On redis errors the request is allowed (fail open).
type RateLimiter struct {
	client *redis.Client
	config RateLimitConfig
}

func NewRateLimiter(client *redis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, config: config}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.client == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := rl.key(r)
			if !rl.allow(r.Context(), key) {
				response.RateLimit(w, "Too many requests. Try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) key(r *http.Request) string {
	// Hash the key for privacy
	hasher := sha256.New()
	hasher.Write([]byte("ip:" + clientIP(r) + ":" + r.URL.Path))
	return fmt.Sprintf("ratelimit:%x", hasher.Sum(nil))
}

func (rl *RateLimiter) allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		logger.WarnContext(ctx, "rate limit check failed, allowing request", "error", err)
		return true
	}
	if count == 1 {
		if err := rl.client.Expire(ctx, key, rl.config.Window).Err(); err != nil {
			logger.WarnContext(ctx, "rate limit expire failed", "error", err)
		}
	}

	return count <= int64(rl.config.Requests)
}

// clientIP extracts the real client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
