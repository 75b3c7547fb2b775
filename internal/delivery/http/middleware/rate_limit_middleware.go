package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"healthsync-api/pkg/response"

	"golang.org/x/time/rate"
)

const visitorIdleTimeout = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP with a token bucket.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows requestsPerMinute per IP with the given burst and
// starts the idle visitor cleanup. Call Stop during shutdown.
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}

	rl := &RateLimiter{
		limit:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
		visitors: make(map[string]*visitor),
		stopChan: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.evictIdle(time.Now().Add(-visitorIdleTimeout))
		}
	}
}

func (rl *RateLimiter) evictIdle(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

// Limit rejects requests over the per-IP rate with 429.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getLimiter(clientIP(r)).Allow() {
			response.TooManyRequests(w, "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
