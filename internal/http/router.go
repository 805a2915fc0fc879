// Package httpapi wires the HTTP transport (Gin) to the todo service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, compression, the API-key gate, idempotency, and
// rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - The API-key gate runs before anything else touches a todo route
//   - Deterministic, minimal router setup; all dependencies injected
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

	_ "github.com/tbourn/go-todo-api/docs" // registers the OpenAPI document
	"github.com/tbourn/go-todo-api/internal/apperr"
	"github.com/tbourn/go-todo-api/internal/config"
	"github.com/tbourn/go-todo-api/internal/domain"
	"github.com/tbourn/go-todo-api/internal/http/handlers"
	"github.com/tbourn/go-todo-api/internal/http/middleware"
	"github.com/tbourn/go-todo-api/internal/repo"
	"github.com/tbourn/go-todo-api/internal/services"
)

// maxBodyBytes caps request bodies for every endpoint.
const maxBodyBytes = 1 << 20

// todoRepoShim adapts the repository free functions to the services.TodoRepo
// interface expected by the TodoService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type todoRepoShim struct{}

// CreateTodo proxies repo.CreateTodo.
func (todoRepoShim) CreateTodo(ctx context.Context, db *gorm.DB, title, description string, createdAt time.Time) (*domain.Todo, error) {
	return repo.CreateTodo(ctx, db, title, description, createdAt)
}

// ListTodos proxies repo.ListTodos.
func (todoRepoShim) ListTodos(ctx context.Context, db *gorm.DB) ([]domain.Todo, error) {
	return repo.ListTodos(ctx, db)
}

// GetTodo proxies repo.GetTodo.
func (todoRepoShim) GetTodo(ctx context.Context, db *gorm.DB, id string) (*domain.Todo, error) {
	return repo.GetTodo(ctx, db, id)
}

// SaveTodo proxies repo.SaveTodo.
func (todoRepoShim) SaveTodo(ctx context.Context, db *gorm.DB, t *domain.Todo) error {
	return repo.SaveTodo(ctx, db, t)
}

// DeleteTodo proxies repo.DeleteTodo.
func (todoRepoShim) DeleteTodo(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteTodo(ctx, db, id)
}

// CountTodos proxies repo.CountTodos (creation ceiling).
func (todoRepoShim) CountTodos(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountTodos(ctx, db)
}

// TodosStats proxies repo.TodosStats (list ETag).
func (todoRepoShim) TodosStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.TodosStats(ctx, db)
}

// GetIdempotency proxies repo.GetIdempotency.
func (todoRepoShim) GetIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, key, now)
}

// CreateIdempotency proxies repo.CreateIdempotency.
func (todoRepoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, key, todoID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, key, todoID, status, ttl)
}

// NewTodoService builds the TodoService backed by db with the configured
// ceiling and idempotency retention.
func NewTodoService(db *gorm.DB, cfg config.Config) *services.TodoService {
	svc := services.NewTodoService(db, todoRepoShim{})
	if cfg.MaxTodos > 0 {
		svc.MaxTodos = cfg.MaxTodos
	}
	if cfg.IdempotencyTTL > 0 {
		svc.IdempotencyTTL = cfg.IdempotencyTTL
	}
	return svc
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), CORS, security
// headers and compression, health, docs and metrics endpoints, and then
// mounts the gated /todos group under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with the API key masked
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and Security headers
//  8. gzip
//
// and, on the /todos group only:
//  1. API-key gate (nothing else runs for unauthenticated requests)
//  2. Idempotency validator (before rate limiter to allow bypass on replay)
//  3. Rate limiter (per IP, bypass on replay), only when cfg.RateRPS > 0
//
// A wrong method on a known path is answered like an unknown route (404/2003).
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (X-API-Key is masked by default)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to the ServerError envelope
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (allow all if none configured) and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// 8) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))

	// Fallback
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, apperr.NotFound("route not found"))
	})

	// Liveness/health (no API key)
	r.GET("/", handlers.Root(config.AppVersion))
	r.GET("/health", handlers.Health)

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: service ← repo/db
	svc := NewTodoService(db, cfg)
	h := handlers.New(svc)

	chain := []gin.HandlerFunc{
		middleware.APIKey(cfg.APIKey),
		middleware.IdempotencyValidator(
			middleware.IdempotencyOptions{MaxLen: 200},
			func(ctx context.Context, key string, _ time.Time) (bool, error) {
				t, err := svc.Replay(ctx, key)
				return t != nil, err
			},
		),
	}
	// RATE_RPS=0 leaves the API unthrottled
	if cfg.RateRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
		chain = append(chain, rl.Handler())
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	todos := api.Group("/todos")
	todos.Use(chain...)
	{
		// both /todos and /todos/ are served without a redirect
		for _, root := range []string{"", "/"} {
			todos.GET(root, h.ListTodos)
			todos.POST(root, h.CreateTodo)
		}
		todos.GET("/:id", h.GetTodo)
		todos.PUT("/:id", h.UpdateTodo)
		todos.DELETE("/:id", h.DeleteTodo)
		todos.PATCH("/:id/toggle", h.ToggleTodo)
	}
}

// corsMiddleware returns the CORS chain. With no allow-list every origin is
// accepted and ACAO is forced to "*" even without an Origin header; otherwise
// allowed origins are echoed back.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "If-None-Match",
			middleware.HeaderAPIKey, middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders: []string{
			middleware.HeaderRequestID, "ETag", "Retry-After", handlers.HeaderReplayed, "Content-Length",
		},
		AllowCredentials: false, // must remain false with AllowAllOrigins
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
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

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
