// Package httpapi wires the journal's HTTP API (Gin) to its services,
// middleware and handlers. It centralizes the cross-cutting concerns:
// tracing, correlation IDs, logging with redaction, panic recovery,
// metrics, rate limiting, CORS, security headers and bearer auth.
//
// Middleware order:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger (redacting when LOG_REDACT is on)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and security headers
//
// Bearer auth applies only to the protected groups.
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

	_ "github.com/tbourn/go-journal/docs"
	"github.com/tbourn/go-journal/internal/config"
	"github.com/tbourn/go-journal/internal/http/handlers"
	"github.com/tbourn/go-journal/internal/http/middleware"
	"github.com/tbourn/go-journal/internal/repo"
	"github.com/tbourn/go-journal/internal/services"
)

const (
	maxBodyBytes = 1 << 20

	// credential endpoints get a per-IP budget well below the global one
	authRPS   = 0.5
	authBurst = 5
)

// entryRepoShim adapts the repository free functions to
// handlers.EntryService over a fixed database handle.
type entryRepoShim struct{ db *gorm.DB }

// List proxies repo.ListEntries.
func (s entryRepoShim) List(ctx context.Context, userID string) ([]repo.EntryRecord, error) {
	return repo.ListEntries(ctx, s.db, userID)
}

// Upsert proxies repo.UpsertEntry.
func (s entryRepoShim) Upsert(ctx context.Context, rec repo.EntryRecord) (*repo.EntryRecord, error) {
	return repo.UpsertEntry(ctx, s.db, rec)
}

// Delete proxies repo.DeleteEntry.
func (s entryRepoShim) Delete(ctx context.Context, id, userID string) error {
	return repo.DeleteEntry(ctx, s.db, id, userID)
}

// Stats proxies repo.EntriesStats.
func (s entryRepoShim) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.EntriesStats(ctx, s.db, userID)
}

// RegisterRoutes attaches all middleware and endpoints to r. authSvc
// resolves bearer tokens and serves /auth; gen may be nil when no
// reflection backend is configured.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, authSvc handlers.AuthService, gen services.ReflectionGenerator, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
		}))
	} else {
		r.Use(middleware.Logger())
	}
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS)...)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	h := handlers.New(authSvc, entryRepoShim{db: db}, gen)

	r.GET("/health", h.Health)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authn := middleware.BearerAuth(middleware.AuthenticatorFunc(func(ctx context.Context, token string) (string, error) {
		acct, _, err := authSvc.Authenticate(ctx, token)
		if err != nil {
			return "", err
		}
		return acct.ID, nil
	}))
	strict := middleware.NewRateLimiter(authRPS, authBurst, middleware.KeyByIP()).Handler()
	noStore := middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true})

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		a := api.Group("/auth", noStore)
		a.POST("/register", strict, h.Register)
		a.POST("/login", strict, h.Login)
		a.POST("/confirm", strict, h.Confirm)
		a.POST("/logout", authn, h.Logout)
		a.GET("/session", authn, h.Session)
	}
	{
		p := api.Group("", authn, noStore)
		p.GET("/entries", gzip.Gzip(gzip.DefaultCompression), h.ListEntries)
		p.PUT("/entries/:id", h.UpsertEntry)
		p.DELETE("/entries/:id", h.DeleteEntry)
		p.POST("/reflections", h.CreateReflection)
	}
}

// corsMiddleware allows every origin when none are configured, otherwise
// echoes allow-listed origins.
func corsMiddleware(cfg config.CORSConfig) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		base.AllowAllOrigins = true
		// ACAO: * even without an Origin header, for simple health checks
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = cfg.AllowedOrigins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps request bodies at maxBytes; reads past the cap fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
