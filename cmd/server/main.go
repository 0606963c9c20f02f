// Package main runs the assogest HTTP server: budget, projets, activités,
// participants, inventaire and pédagogie behind a JSON REST API.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	app "github.com/assogest/assogest/internal/app"
	"github.com/assogest/assogest/internal/app/httpapi"
	janitorsvc "github.com/assogest/assogest/internal/app/services/janitor"
	"github.com/assogest/assogest/internal/app/storage/sqlstore"
	"github.com/assogest/assogest/internal/config"
	"github.com/assogest/assogest/internal/logging"
	"github.com/assogest/assogest/internal/platform/cache"
	"github.com/assogest/assogest/internal/platform/database"
	"github.com/assogest/assogest/internal/platform/ensureschema"
	"github.com/assogest/assogest/internal/platform/migrations"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration")
	flag.Parse()

	_ = godotenv.Load() // allow .env for local runs

	log := logging.NewDefault("server")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dialect, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	log.Info().Str("driver", string(dialect)).Msg("database connected")

	if err := migrations.Apply(ctx, db, dialect); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}
	if err := ensureschema.Apply(ctx, db, dialect, log.Named("ensureschema")); err != nil {
		log.Fatal().Err(err).Msg("reconcile legacy schema")
	}

	store := sqlstore.New(db, dialect)

	opts := app.Options{
		JWTSecret:       cfg.Auth.JWTSecret,
		SessionTTL:      cfg.Auth.SessionTTL,
		PlanningFeedURL: cfg.Planning.FeedURL,
		PlanningToken:   cfg.Planning.Token,
		PlanningTimeout: cfg.Planning.Timeout,
		Janitor: janitorsvc.Config{
			Schedule:    cfg.Retention.CronSchedule,
			Retention:   cfg.Retention.PurgeAfter,
			KioskMaxAge: cfg.Kiosk.TokenTTL,
			SkipPurge:   cfg.Retention.PurgeDisabled,
		},
	}
	if cfg.Redis.Addr != "" {
		sessions, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("connect redis")
		}
		defer sessions.Close()
		opts.SessionCache = sessions
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis session cache enabled")
	}

	application, err := app.New(app.Stores{
		Users:        store,
		RBAC:         store,
		Budget:       store,
		Projets:      store,
		Activite:     store,
		Participants: store,
		Inventaire:   store,
		Pedagogie:    store,
		Reporting:    store,
	}, opts, log.Named("app"))
	if err != nil {
		log.Fatal().Err(err).Msg("build application")
	}
	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start services")
	}

	handler := httpapi.NewHandler(application, httpapi.Config{
		CookieName:        cfg.Auth.CookieName,
		CookieSecure:      cfg.Auth.CookieSecure,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		AuditBuffer:       cfg.Audit.BufferSize,
		AuditFile:         cfg.Audit.FilePath,
		AuditDB:           db,
	}, log.Named("httpapi"))

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("services shutdown")
	}
	log.Info().Msg("server stopped")
}
