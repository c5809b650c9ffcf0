package middlewares

import (
	"net/http"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/shareflow/shareflow-go/tool"
)

// limiterIdleTTL drops a client's limiter after this long without
// requests, so the cache doesn't grow with every IP ever seen.
const limiterIdleTTL = 10 * time.Minute

// RateLimitCreate limits session creation per client IP. perMinute
// tokens refill per minute with a burst of the same size.
func RateLimitCreate(perMinute int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := ttlworker.NewCache[string, *rate.Limiter](limiterIdleTTL)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		limiter := limiters.Get(ip)
		if limiter == nil {
			limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
			limiters.Set(ip, limiter)
		}
		mu.Unlock()

		if !limiter.Allow() {
			tool.DefaultLogger.Warnf("[RateLimit] Rejected create from %s", ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, tool.FastReturnError("Too many sessions created, slow down"))
			return
		}
		c.Next()
	}
}
