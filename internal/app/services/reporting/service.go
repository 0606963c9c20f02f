// Package reporting serves the dashboard, the attendance and impact
// statistics, the annual bilans and the data-quality report.
package reporting

import (
	"context"
	"time"

	"github.com/assogest/assogest/internal/app/domain/reporting"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/logging"
)

// Service implements the read-only reports.
type Service struct {
	store storage.ReportingStore
	log   *logging.Logger
}

// New constructs the service.
func New(store storage.ReportingStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("reporting")
	}
	return &Service{store: store, log: log}
}

func defaultYear(annee int) int {
	if annee <= 0 {
		return time.Now().UTC().Year()
	}
	return annee
}

// Dashboard returns the landing page counters for one exercice. Zero
// means the current year.
func (s *Service) Dashboard(ctx context.Context, annee int) (reporting.Dashboard, error) {
	return s.store.Dashboard(ctx, defaultYear(annee))
}

// BudgetSynthese returns the per-subvention consumption table. Zero annee
// covers every exercice.
func (s *Service) BudgetSynthese(ctx context.Context, annee int) (reporting.BudgetSynthese, error) {
	return s.store.BudgetSynthese(ctx, annee)
}

// ProjetSynthese returns one project's planned versus spent totals.
func (s *Service) ProjetSynthese(ctx context.Context, projetID int64) (reporting.ProjetSynthese, error) {
	return s.store.ProjetSynthese(ctx, projetID)
}

// Stats returns the attendance report. A non-empty secteur restricts it to
// the workshops of that sector; annee zero covers every year.
func (s *Service) Stats(ctx context.Context, annee int, secteur string) (reporting.StatsPresence, error) {
	stats, err := s.store.StatsPresence(ctx, annee)
	if err != nil {
		return reporting.StatsPresence{}, err
	}
	if secteur == "" {
		return stats, nil
	}
	scoped := reporting.StatsPresence{Annee: stats.Annee, Ateliers: []reporting.AtelierStats{}}
	for _, a := range stats.Ateliers {
		if a.Secteur != secteur {
			continue
		}
		scoped.Ateliers = append(scoped.Ateliers, a)
		scoped.TotalPresences += a.Presences
	}
	return scoped, nil
}

// StatsImpact breaks the attending audience down by sexe, type de public,
// quartier and ville. Empty secteur covers every sector.
func (s *Service) StatsImpact(ctx context.Context, secteur string) (reporting.StatsImpact, error) {
	return s.store.StatsImpact(ctx, secteur)
}

// BilanAnnuel assembles the cross-module yearly report. Zero means the
// current year.
func (s *Service) BilanAnnuel(ctx context.Context, annee int) (reporting.Bilan, error) {
	annee = defaultYear(annee)
	budget, err := s.store.BudgetSynthese(ctx, annee)
	if err != nil {
		return reporting.Bilan{}, err
	}
	activite, err := s.store.StatsPresence(ctx, annee)
	if err != nil {
		return reporting.Bilan{}, err
	}
	archives, err := s.store.CountArchives(ctx)
	if err != nil {
		return reporting.Bilan{}, err
	}
	return reporting.Bilan{Annee: annee, Budget: budget, Activite: activite, Archives: archives}, nil
}

// BilanLourd returns the heavy per-workshop, per-participant grid.
func (s *Service) BilanLourd(ctx context.Context, annee int) ([]reporting.BilanLourdEntry, error) {
	return s.store.BilanLourd(ctx, defaultYear(annee))
}

// Controle runs the data-quality checks.
func (s *Service) Controle(ctx context.Context) ([]reporting.Issue, error) {
	issues, err := s.store.ControleIssues(ctx)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []reporting.Issue{}
	}
	s.log.Debug().Int("issues", len(issues)).Msg("controle run")
	return issues, nil
}
