package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateBypassKey is the Gin context key a trusted upstream middleware can set
// to exempt a request from edge throttling (used by tests and health probes).
const rateBypassKey = "rate_bypass"

// clientLimiter pairs a token bucket with its last-seen time so that idle
// entries can be evicted.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter returns per-client-IP token bucket throttling for the whole
// API surface. This is an edge protection against abusive clients and is
// independent of the per-user feedback quota enforced in the service layer.
//
// rps is the sustained refill rate and burst the bucket size. Entries idle
// for more than 10 minutes are evicted by a background sweeper.
func RateLimiter(rps float64, burst int) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		clients = make(map[string]*clientLimiter)
	)

	// Sweep idle buckets so the map cannot grow without bound.
	go func() {
		const idleTTL = 10 * time.Minute
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			for ip, cl := range clients {
				if time.Since(cl.lastSeen) > idleTTL {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		ip := c.ClientIP()

		mu.Lock()
		cl, ok := clients[ip]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		allowed := cl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded. Please try again later.",
				"request_id": asString(mustGet(c, requestIDKey)),
			})
			return
		}
		c.Next()
	}
}

// IsRateBypass reports whether a previous middleware marked this request as
// exempt from edge rate limiting.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(rateBypassKey)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// mustGet fetches a context value, returning nil when absent.
func mustGet(c *gin.Context, key string) interface{} {
	v, _ := c.Get(key)
	return v
}
