package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artzymeri/miteinander/internal/metrics"
	"github.com/artzymeri/miteinander/internal/store"
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int64
	Window   time.Duration
}

// RateLimiter implements fixed-window rate limiting on Redis counters,
// keyed by client IP. Endpoints not listed in limits pass through.
type RateLimiter struct {
	redis  *store.RedisStore
	logger zerolog.Logger
	limits map[string]RateLimit
}

// NewRateLimiter creates a rate limiter with per-endpoint limits tuned for
// the realtime service: the websocket handshake and the small read-only API.
func NewRateLimiter(redis *store.RedisStore, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redis,
		logger: logger,
		limits: map[string]RateLimit{
			"GET /ws":            {30, time.Minute},
			"GET /who/":          {120, time.Minute},
			"GET /notifications": {60, time.Minute},
		},
	}
}

// Middleware enforces the configured limits. Redis failures fail open: a
// broken limiter must not take messaging down.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint, limit, ok := rl.match(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		count, err := rl.redis.IncrRateLimit(r.Context(), endpoint, clientIP(r), limit.Window)
		if err != nil {
			rl.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("rate limiter unavailable, failing open")
			next.ServeHTTP(w, r)
			return
		}

		if count > limit.Requests {
			metrics.RateLimitHits.WithLabelValues(endpoint).Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", limit.Window.String())
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) match(r *http.Request) (string, RateLimit, bool) {
	for endpoint, limit := range rl.limits {
		parts := strings.SplitN(endpoint, " ", 2)
		if r.Method != parts[0] {
			continue
		}
		pattern := parts[1]
		if strings.HasSuffix(pattern, "/") {
			if strings.HasPrefix(r.URL.Path, pattern) {
				return endpoint, limit, true
			}
			continue
		}
		if r.URL.Path == pattern {
			return endpoint, limit, true
		}
	}
	return "", RateLimit{}, false
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from the usual proxy
	// headers before we get here.
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}
