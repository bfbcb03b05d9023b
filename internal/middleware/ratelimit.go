package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for the rate limiter middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit (tokens added per second).
	RequestsPerSecond float64
	// Burst is the maximum number of requests allowed in a burst.
	Burst int
	// IdleTTL is how long an idle client's limiter is kept (default 10m).
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one token bucket per client IP.
type clientLimiters struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func (c *clientLimiters) get(ip string, now time.Time) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(c.cfg.RequestsPerSecond), c.cfg.Burst)}
		c.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

func (c *clientLimiters) evictIdle(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ip, cl := range c.clients {
		if now.Sub(cl.lastSeen) > c.cfg.IdleTTL {
			delete(c.clients, ip)
		}
	}
}

// RateLimiter returns an HTTP middleware that enforces a per-client token-bucket
// rate limit. When the limit is exceeded, it responds with 429 Too Many Requests
// and sets Retry-After. Idle clients are evicted until ctx is done.
func RateLimiter(ctx context.Context, cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	limiters := &clientLimiters{cfg: cfg, clients: make(map[string]*clientLimiter)}

	go func() {
		ticker := time.NewTicker(cfg.IdleTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				limiters.evictIdle(now)
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := limiters.get(clientIP(r), time.Now())

			reservation := limiter.Reserve()
			if !reservation.OK() {
				writeTooManyRequests(w, 0)
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				writeTooManyRequests(w, int(delay.Seconds())+1)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP address from the request, stripping the port.
// X-Forwarded-For is ignored since clients can set it freely.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	if retryAfterSecs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    http.StatusTooManyRequests,
		"message": "rate limit exceeded",
	})
}
