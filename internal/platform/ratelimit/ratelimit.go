// Package ratelimit throttles HTTP clients with one token bucket per client IP.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/comment-platform/internal/platform/api"
	"github.com/example/comment-platform/internal/platform/httpserver"
)

// idleAfter is how long an unused bucket is kept before eviction.
const idleAfter = 10 * time.Minute

// sweepEvery bounds how often Allow scans for idle buckets.
const sweepEvery = time.Minute

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter hands out a rate.Limiter per key.
type Limiter struct {
	mu      sync.Mutex
	clients   map[string]*entry
	rps       rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

// New allows rps requests per second per client with the given burst.
// A non-positive rps disables limiting.
func New(rps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		clients: make(map[string]*entry),
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether key may proceed now.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.rps <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.clients[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = e
	}
	e.seen = now
	if now.Sub(l.lastSweep) >= sweepEvery {
		l.evict(now)
		l.lastSweep = now
	}
	return e.lim.AllowN(now, 1)
}

// evict must be called with l.mu held.
func (l *Limiter) evict(now time.Time) {
	for k, e := range l.clients {
		if now.Sub(e.seen) > idleAfter {
			delete(l.clients, k)
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			api.RateLimited(w, "RATE_LIMITED", "Too many requests", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, then RemoteAddr without port.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
