package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-journal/docs"
	"github.com/tbourn/go-journal/internal/auth"
	"github.com/tbourn/go-journal/internal/config"
	httpapi "github.com/tbourn/go-journal/internal/http"
	"github.com/tbourn/go-journal/internal/observability"
	"github.com/tbourn/go-journal/internal/reflection"
	"github.com/tbourn/go-journal/internal/repo"
	"github.com/tbourn/go-journal/internal/services"
	"github.com/tbourn/go-journal/internal/sysutil"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

func addServe(topLevel *cobra.Command, c *cli) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the journal HTTP API.",
		Example: `
journal serve
PORT=9090 DB_DRIVER=postgres DATABASE_URL=postgres://journal@db/journal journal serve
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c.cfg)
		},
	}

	topLevel.AddCommand(cmd)
}

func serve(ctx context.Context, cfg config.Config) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	sysutil.SetupLogger(os.Stdout, cfg.LogPretty)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, "server")
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		if err := observability.Shutdown(shutdownOTel, 5*time.Second); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(db)

	authSvc := &auth.Service{
		DB:                  db,
		Secret:              []byte(cfg.Auth.JWTSecret),
		TTL:                 cfg.Auth.SessionTTL,
		RequireConfirmation: cfg.Auth.RequireConfirmation,
		Log:                 log.With().Str("component", "auth").Logger(),
	}
	if cfg.Auth.RedisURL != "" {
		rdb, err := auth.ConnectRedis(ctx, cfg.Auth.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		authSvc.Sessions = auth.RedisSessions{Client: rdb}
		log.Info().Msg("sessions stored in redis")
	} else {
		go purgeSessions(ctx, db, purgeInterval)
	}

	var gen services.ReflectionGenerator
	if cfg.ReflectionsEnabled() {
		gen = reflection.NewGemini(cfg.GenAI.APIKey, cfg.GenAI.Model, cfg.GenAI.Endpoint, cfg.GenAI.Timeout,
			log.With().Str("component", "reflection").Logger())
	} else {
		log.Warn().Msg("GENAI_API_KEY not set; reflections are unavailable")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	httpapi.RegisterRoutes(r, db, authSvc, gen, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore opens the configured database and migrates it. SQLite files
// get their parent directory created first.
func openStore(cfg config.Config) (*gorm.DB, error) {
	if cfg.DB.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o700); err != nil {
			return nil, err
		}
	}
	db, err := repo.Open(cfg.DB.Driver, cfg.DB.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DB.Driver, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeStore(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func closeStore(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// purgeSessions drops expired session rows until ctx is done.
func purgeSessions(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeSessions(ctx, db, now)
			if err != nil {
				log.Warn().Err(err).Msg("purge expired sessions")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("expired sessions purged")
			}
		}
	}
}
