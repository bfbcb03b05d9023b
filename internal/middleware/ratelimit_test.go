package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimiter(ctx, RateLimitConfig{RequestsPerSecond: 1, Burst: 3})(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5678"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimiter_PerClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimiter(ctx, RateLimitConfig{RequestsPerSecond: 1, Burst: 1})(okHandler())

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, addr)
	}
}

func TestRateLimiter_IgnoresForwardedFor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimiter(ctx, RateLimitConfig{RequestsPerSecond: 1, Burst: 1})(okHandler())

	codes := make([]int, 0, 2)
	for _, xff := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestClientLimiters_EvictIdle(t *testing.T) {
	c := &clientLimiters{
		cfg:     RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute},
		clients: make(map[string]*clientLimiter),
	}
	now := time.Now()
	c.get("old", now.Add(-2*time.Minute))
	c.get("fresh", now)

	c.evictIdle(now)

	assert.NotContains(t, c.clients, "old")
	assert.Contains(t, c.clients, "fresh")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:4040"
	assert.Equal(t, "192.168.1.5", clientIP(req))

	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", clientIP(req))
}
