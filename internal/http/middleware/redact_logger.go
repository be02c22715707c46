package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// sensitiveHeaders lists request headers whose values never reach the logs.
// Matching is case-insensitive via http.Header canonicalization.
var sensitiveHeaders = map[string]struct{}{
	"Authorization":       {},
	"Cookie":              {},
	"Set-Cookie":          {},
	"X-Api-Key":           {},
	"Idempotency-Key":     {},
	"Proxy-Authorization": {},
}

// RedactingLogger is a drop-in alternative to Logger() that additionally
// scrubs credential-bearing headers before they are logged. Values of headers
// named in sensitiveHeaders are replaced with "[REDACTED]".
func RedactingLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		headers := make(map[string]string, len(c.Request.Header))
		for name, vals := range c.Request.Header {
			if len(vals) == 0 {
				continue
			}
			if _, secret := sensitiveHeaders[name]; secret {
				headers[name] = "[REDACTED]"
				continue
			}
			headers[name] = truncate(vals[0], 256)
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Interface("headers", headers).
			Int64("bytes_in", c.Request.ContentLength).
			Logger()

		c.Set("logger", &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Msg("http_request")
	}
}
