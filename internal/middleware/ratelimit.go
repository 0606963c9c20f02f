package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/assogest/assogest/internal/httputil"
	"github.com/assogest/assogest/internal/logging"
)

// clientIdle is how long a client's bucket survives without traffic before
// the next sweep drops it. Losing a bucket only resets a burst allowance.
const clientIdle = 10 * time.Minute

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles clients individually: authenticated requests by
// user, anonymous ones (login, kiosk) by IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	taken   int
	log     *logging.Logger
}

// NewRateLimiter builds a per-client limiter.
func NewRateLimiter(requestsPerSecond float64, burst int, log *logging.Logger) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if burst <= 0 {
		burst = 10
	}
	if log == nil {
		log = logging.NewDefault("ratelimit")
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		log:     log,
	}
}

// allow consumes one token for the key, creating the bucket on first sight.
// Stale buckets are swept opportunistically so the map stays bounded without
// a background goroutine.
func (rl *RateLimiter) allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.taken++
	if rl.taken%4096 == 0 {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > clientIdle {
				delete(rl.clients, k)
			}
		}
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &client{bucket: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.bucket.Allow()
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := httputil.ClientIP(r)
		if p, ok := PrincipalFrom(r.Context()); ok {
			key = p.User.Email
		}

		if !rl.allow(key) {
			rl.log.Warn().
				Str("key", key).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Msg("rate limit exceeded")
			httputil.WriteError(w, http.StatusTooManyRequests, fmt.Errorf("too many requests"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
