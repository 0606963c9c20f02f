// Package pedagogie manages the pedagogical sheets written by the
// animation team.
package pedagogie

import (
	"context"
	"fmt"
	"strings"

	"github.com/assogest/assogest/internal/app/domain/pedagogie"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/logging"
)

// Service implements fiche operations.
type Service struct {
	store    storage.PedagogieStore
	ateliers storage.ActiviteStore
	log      *logging.Logger
}

// New constructs the service. ateliers resolves the optional workshop link.
func New(store storage.PedagogieStore, ateliers storage.ActiviteStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("pedagogie")
	}
	return &Service{store: store, ateliers: ateliers, log: log}
}

// Create writes a new fiche.
func (s *Service) Create(ctx context.Context, f pedagogie.Fiche) (pedagogie.Fiche, error) {
	if err := s.normalize(ctx, &f); err != nil {
		return pedagogie.Fiche{}, err
	}
	created, err := s.store.CreateFiche(ctx, f)
	if err != nil {
		return pedagogie.Fiche{}, err
	}
	s.log.Info().Int64("fiche_id", created.ID).Str("titre", created.Titre).Msg("fiche created")
	return created, nil
}

// Update rewrites a fiche and bumps its updated_at.
func (s *Service) Update(ctx context.Context, f pedagogie.Fiche) (pedagogie.Fiche, error) {
	if err := s.normalize(ctx, &f); err != nil {
		return pedagogie.Fiche{}, err
	}
	return s.store.UpdateFiche(ctx, f)
}

// Get returns one fiche.
func (s *Service) Get(ctx context.Context, id int64) (pedagogie.Fiche, error) {
	return s.store.GetFiche(ctx, id)
}

// List returns fiches, optionally limited to one secteur.
func (s *Service) List(ctx context.Context, secteur string) ([]pedagogie.Fiche, error) {
	return s.store.ListFiches(ctx, strings.TrimSpace(secteur))
}

// Delete removes a fiche.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteFiche(ctx, id)
}

func (s *Service) normalize(ctx context.Context, f *pedagogie.Fiche) error {
	f.Titre = strings.TrimSpace(f.Titre)
	if f.Titre == "" {
		return fmt.Errorf("fiche: titre required")
	}
	if f.AtelierID != nil {
		if _, err := s.ateliers.GetAtelier(ctx, *f.AtelierID); err != nil {
			return fmt.Errorf("atelier %d: %w", *f.AtelierID, err)
		}
	}
	return nil
}
