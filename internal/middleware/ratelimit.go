package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/response"
	"golang.org/x/time/rate"
)

// RateLimiter is a per-key token bucket limiter. Requests are keyed by the
// authenticated user when present, otherwise by client IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perInterval requests per interval with the same
// burst (e.g. 10 per minute).
func NewRateLimiter(perInterval int, interval time.Duration) *RateLimiter {
	if perInterval < 1 {
		perInterval = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(interval / time.Duration(perInterval)),
		burst:    perInterval,
		idleTTL:  3 * interval,
	}
}

// Middleware returns a Gin middleware that rate-limits requests.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(rl.key(c)) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[key]
	if !ok {
		rl.cleanup(now)
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) key(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return "user:" + claims.UserID
	}
	return "ip:" + c.ClientIP()
}

// cleanup drops idle visitors. Called with mu held.
func (rl *RateLimiter) cleanup(now time.Time) {
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, k)
		}
	}
}
