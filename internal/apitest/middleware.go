// ABOUTME: Middleware for the fake backend: chaining, logging, API keys, rate limits
// ABOUTME: Error bodies use the backend's {"detail": "..."} format

package apitest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"sync"
	"time"
)

type middlewareFunc func(http.HandlerFunc) http.HandlerFunc

// chain applies middleware in declaration order (first is outermost)
func chain(h http.HandlerFunc, middlewares ...middlewareFunc) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}

// logRequest logs each request with the client's correlation ID.
func logRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next(wrapped, r)

		slog.Debug("Fake backend request",
			"request_id", r.Header.Get("X-Request-ID"),
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// requireKey rejects requests whose x-api-key does not match. An empty
// key disables the check.
func requireKey(key string) middlewareFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if key != "" && r.Header.Get("x-api-key") != key {
				writeDetail(w, http.StatusForbidden, "Invalid API key")
				return
			}
			next(w, r)
		}
	}
}

// window tracks requests within a fixed time window.
type window struct {
	count     int
	expiresAt time.Time
}

// rateLimiter allows limit requests per window for each key.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

func newRateLimiter(limit int, period time.Duration, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     now,
	}
}

// allow returns false with the time until the window resets when over limit.
func (rl *rateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		rl.windows[key] = &window{count: 1, expiresAt: now.Add(rl.period)}
		return true, 0
	}
	if w.count < rl.limit {
		w.count++
		return true, 0
	}
	return false, w.expiresAt.Sub(now)
}

// rateLimit is a no-op when limiter is nil.
func rateLimit(limiter *rateLimiter) middlewareFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next(w, r)
				return
			}
			allowed, retryAfter := limiter.allow(clientIP(r))
			if allowed {
				next(w, r)
				return
			}
			retrySeconds := int(math.Ceil(retryAfter.Seconds()))
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retrySeconds))
			writeDetail(w, http.StatusTooManyRequests,
				fmt.Sprintf("Too many OTP requests. Try again in %d seconds", retrySeconds))
		}
	}
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
