// Command server runs the todo API.
//
// @title                      Todo API
// @version                    1.0.0
// @description                CRUD API for todos behind a pre-shared X-API-Key. Errors use a {code, message, details, errors} envelope.
// @BasePath                   /
//
// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       X-API-Key
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-todo-api/docs"
	"github.com/tbourn/go-todo-api/internal/config"
	httpapi "github.com/tbourn/go-todo-api/internal/http"
	"github.com/tbourn/go-todo-api/internal/observability"
	"github.com/tbourn/go-todo-api/internal/repo"
	"github.com/tbourn/go-todo-api/internal/sysutil"
)

const (
	shutdownGrace = 15 * time.Second
	purgeInterval = 10 * time.Minute
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupTracing(ctx, cfg.OTEL, config.AppVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath, repo.Options{
		Tracing: cfg.OTEL.Enabled,
		Silent:  cfg.LogLevel != "debug",
	})
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// expired Idempotency-Key records
	go sysutil.Every(ctx, purgeInterval, func(ctx context.Context) {
		n, err := repo.PurgeIdempotency(ctx, db, time.Now().UTC())
		if err != nil {
			log.Warn().Err(err).Msg("purge idempotency keys")
			return
		}
		if n > 0 {
			log.Debug().Int64("purged", n).Msg("expired idempotency keys removed")
		}
	})

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	httpapi.RegisterRoutes(r, db, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	log.Info().
		Str("addr", srv.Addr).
		Str("version", config.AppVersion).
		Str("base_path", cfg.APIBasePath).
		Int("max_todos", cfg.MaxTodos).
		Bool("swagger", cfg.SwaggerEnabled).
		Bool("otel", cfg.OTEL.Enabled).
		Msg("todo api listening")

	if err := sysutil.Serve(ctx, srv, shutdownGrace); err != nil {
		log.Error().Err(err).Msg("http server")
		return
	}
	log.Info().Msg("server stopped")
}
