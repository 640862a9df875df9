package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/agency/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter tracks a token bucket and its last access time
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter limits requests per client IP with one token bucket per client.
// Buckets idle for longer than the cleanup interval are dropped.
type RateLimiter struct {
	mu              sync.Mutex
	clients         map[string]*clientLimiter
	rate            rate.Limit
	burst           int
	maxClients      int
	cleanupInterval time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
	now             func() time.Time
}

// NewRateLimiter allows requests per window, with the whole allowance usable as a burst
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		clients:         make(map[string]*clientLimiter),
		rate:            rate.Every(window / time.Duration(requests)),
		burst:           requests,
		maxClients:      10000,
		cleanupInterval: 2 * window,
		stopCh:          make(chan struct{}),
		now:             time.Now,
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes clients not seen within the cleanup interval and
// returns how many were removed
func (rl *RateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.cleanupInterval)
	removed := 0
	for key, cl := range rl.clients {
		if cl.lastAccess.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if cl, ok := rl.clients[key]; ok {
		cl.lastAccess = now
		return cl.limiter
	}

	if len(rl.clients) >= rl.maxClients {
		rl.evictOldest()
	}
	cl := &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst), lastAccess: now}
	rl.clients[key] = cl
	return cl.limiter
}

func (rl *RateLimiter) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, cl := range rl.clients {
		if oldestKey == "" || cl.lastAccess.Before(oldest) {
			oldestKey, oldest = key, cl.lastAccess
		}
	}
	delete(rl.clients, oldestKey)
}

// Allow reports whether a request from key may proceed
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiterFor(key).AllowN(rl.now(), 1)
}

// Middleware returns the gin middleware enforcing the limit per client IP
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Rate limit exceeded. Please try again later.",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}
