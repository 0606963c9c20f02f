// Package janitor runs the nightly maintenance: expiring login sessions,
// closing stale kiosks, and purging soft-deleted activity records past
// their retention window.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/assogest/assogest/internal/app/metrics"
	"github.com/assogest/assogest/internal/app/services/activite"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/logging"
)

// Config tunes the maintenance schedule.
type Config struct {
	// Schedule is a standard 5-field cron expression.
	Schedule string
	// Retention is how long soft-deleted records stay recoverable.
	Retention time.Duration
	// KioskMaxAge closes kiosks left open longer than this.
	KioskMaxAge time.Duration
	// SkipPurge keeps soft-deleted records forever; sessions and kiosks
	// are still cleaned.
	SkipPurge bool
}

// Report summarizes one maintenance run.
type Report struct {
	SessionsExpired int64                `json:"sessions_expired"`
	KiosksClosed    int                  `json:"kiosks_closed"`
	Purged          activite.PurgeResult `json:"purged"`
}

// Service is the scheduled maintenance runner.
type Service struct {
	users     storage.UserStore
	activites *activite.Service
	cfg       Config
	cron      *cron.Cron
	log       *logging.Logger
}

// New constructs the janitor. Zero config fields get the standard nightly
// defaults.
func New(users storage.UserStore, activites *activite.Service, cfg Config, log *logging.Logger) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 3 * * *"
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.KioskMaxAge <= 0 {
		cfg.KioskMaxAge = 12 * time.Hour
	}
	if log == nil {
		log = logging.NewDefault("janitor")
	}
	return &Service{
		users:     users,
		activites: activites,
		cfg:       cfg,
		cron:      cron.New(),
		log:       log,
	}
}

// Name implements the lifecycle service interface.
func (s *Service) Name() string { return "janitor" }

// Start registers the cron entry and starts the scheduler.
func (s *Service) Start(context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("maintenance run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("janitor schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.cfg.Schedule).Dur("retention", s.cfg.Retention).Msg("janitor started")
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Service) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes one maintenance pass. The admin surface also calls it
// directly.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	start := time.Now()
	rep, err := s.runOnce(ctx)
	metrics.RecordJanitorRun(time.Since(start), err == nil)
	return rep, err
}

func (s *Service) runOnce(ctx context.Context) (Report, error) {
	var rep Report

	expired, err := s.users.DeleteExpiredSessions(ctx, time.Now().UTC())
	if err != nil {
		return rep, fmt.Errorf("expire sessions: %w", err)
	}
	rep.SessionsExpired = expired

	closed, err := s.activites.AutoCloseKiosks(ctx, s.cfg.KioskMaxAge)
	if err != nil {
		return rep, fmt.Errorf("close kiosks: %w", err)
	}
	rep.KiosksClosed = closed

	if !s.cfg.SkipPurge {
		purged, err := s.activites.Purge(ctx, time.Now().UTC().Add(-s.cfg.Retention))
		if err != nil {
			return rep, fmt.Errorf("purge: %w", err)
		}
		rep.Purged = purged
	}

	s.log.Info().
		Int64("sessions_expired", rep.SessionsExpired).
		Int("kiosks_closed", rep.KiosksClosed).
		Int64("sessions_purged", rep.Purged.Sessions).
		Int64("ateliers_purged", rep.Purged.Ateliers).
		Int64("archives_purged", rep.Purged.Archives).
		Msg("maintenance run complete")
	return rep, nil
}
