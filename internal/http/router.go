// Package httpapi assembles the Gin engine: middleware chain, route table and
// service wiring. Everything transport-related that is not a handler or a
// middleware lives here.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/studyshare/go-assist-backend/internal/cache"
	"github.com/studyshare/go-assist-backend/internal/config"
	"github.com/studyshare/go-assist-backend/internal/http/handlers"
	"github.com/studyshare/go-assist-backend/internal/http/middleware"
	"github.com/studyshare/go-assist-backend/internal/repo"
	"github.com/studyshare/go-assist-backend/internal/services"
)

// maxBodyBytes caps request bodies. Chat queries are short; anything above
// 1 MiB is abuse.
const maxBodyBytes = 1 << 20

// RegisterRoutes wires middleware, services and endpoints onto r.
//
// cacheClient may be nil (Redis not configured); the services then run
// without caching and without feedback throttling. llm must be non-nil.
func RegisterRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, cacheClient *cache.Client, llm services.Completer) {
	r.HandleMethodNotAllowed = true

	// Avoid a typed-nil interface when Redis is disabled.
	var store services.Cache
	if cacheClient != nil {
		store = cacheClient
	}

	chatSvc := services.NewChatService(db, store, llm)
	chatSvc.CacheTTL = cfg.CacheTTL
	chatSvc.CallTimeout = cfg.LLM.Timeout
	chatSvc.IdempotencyTTL = cfg.IdempotencyTTL

	fbSvc := services.NewFeedbackService(db, store)
	fbSvc.Quota = cfg.FeedbackQuota
	fbSvc.Window = cfg.FeedbackWindow

	h := handlers.New(chatSvc, fbSvc)

	idemLookup := func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
		_, err := repo.GetIdempotency(ctx, db, userID, key, now)
		if err != nil {
			return false, err
		}
		return true, nil
	}

	// Middleware order matters: correlation first, then logging, recovery,
	// body cap, metrics, compression, idempotency, throttling, CORS, headers.
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.IdempotencyValidator(idemLookup))
	if cfg.RateRPS > 0 {
		r.Use(middleware.RateLimiter(cfg.RateRPS, cfg.RateBurst))
	}
	r.Use(corsMiddleware(cfg.CORS))
	r.Use(middleware.SecurityHeaders(securityConfig(cfg.Security)))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.MsgRouteNotFound)
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.MsgMethodNotAllowed)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.POST("/chat", h.Ask)
	api.GET("/chat/history", h.History)
	api.POST("/chat/feedback", h.SubmitFeedback)
}

// corsMiddleware builds the CORS policy. With no allowlist configured the API
// is open to any origin, matching the behavior of the edge deployment it
// replaces; with an allowlist only the listed origins pass.
func corsMiddleware(cc config.CORSConfig) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID", "X-User-ID", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "ETag"},
		MaxAge:        12 * time.Hour,
	}
	if len(cc.AllowedOrigins) == 0 {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = cc.AllowedOrigins
	}
	return cors.New(conf)
}

func securityConfig(sc config.SecurityConfig) middleware.SecurityConfig {
	out := middleware.SecurityConfig{
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	}
	if sc.EnableHSTS {
		out.HSTSMaxAgeSeconds = int(sc.HSTSMaxAge.Seconds())
		out.HSTSIncludeSubdomains = true
	}
	return out
}

// limitBody rejects request bodies above n bytes.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// groupWithPrefix returns the engine itself for a root base path, otherwise a
// route group under the given prefix.
func groupWithPrefix(r *gin.Engine, base string) gin.IRoutes {
	if base == "" || base == "/" {
		return r
	}
	return r.Group(base)
}
