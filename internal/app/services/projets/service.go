// Package projets manages funded projects (appels à projets) and their
// planned charge lines.
package projets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/assogest/assogest/internal/app/domain/projet"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/logging"
)

var (
	// ErrHasCharges blocks deleting a project that still has charge lines.
	ErrHasCharges = errors.New("projets: project has charge lines")
	// ErrHasDepenses blocks deleting a charge that still has expenses.
	ErrHasDepenses = errors.New("projets: charge has expenses")
)

var statuts = map[string]bool{
	projet.StatutPrevu:     true,
	projet.StatutEnCours:   true,
	projet.StatutTermine:   true,
	projet.StatutAbandonne: true,
}

// Service owns the project module.
type Service struct {
	store  storage.ProjetStore
	budget storage.BudgetStore
	log    *logging.Logger
}

// New constructs the project service.
func New(store storage.ProjetStore, budget storage.BudgetStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("projets")
	}
	return &Service{store: store, budget: budget, log: log}
}

// Create records a project.
func (s *Service) Create(ctx context.Context, p projet.Projet) (projet.Projet, error) {
	if err := normalize(&p); err != nil {
		return projet.Projet{}, err
	}
	created, err := s.store.CreateProjet(ctx, p)
	if err != nil {
		return projet.Projet{}, err
	}
	s.log.Info().Int64("projet_id", created.ID).Str("nom", created.Nom).Msg("projet created")
	return created, nil
}

// Update rewrites a project.
func (s *Service) Update(ctx context.Context, p projet.Projet) (projet.Projet, error) {
	if err := normalize(&p); err != nil {
		return projet.Projet{}, err
	}
	return s.store.UpdateProjet(ctx, p)
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, id int64) (projet.Projet, error) {
	return s.store.GetProjet(ctx, id)
}

// List returns every project.
func (s *Service) List(ctx context.Context) ([]projet.Projet, error) {
	return s.store.ListProjets(ctx)
}

// Delete removes a project. Projects with charge lines are protected.
func (s *Service) Delete(ctx context.Context, id int64) error {
	charges, err := s.store.ListChargesProjet(ctx, id)
	if err != nil {
		return err
	}
	if len(charges) > 0 {
		return ErrHasCharges
	}
	return s.store.DeleteProjet(ctx, id)
}

// ChargeEngagement is a charge line with the spending recorded against it.
type ChargeEngagement struct {
	projet.ChargeProjet
	Engage float64 `json:"engage"`
}

// Detail is a project with per-charge engagement totals.
type Detail struct {
	projet.Projet
	Charges     []ChargeEngagement `json:"charges"`
	TotalPrevu  float64            `json:"total_prevu"`
	TotalEngage float64            `json:"total_engage"`
}

// GetDetail returns a project with the engaged amount of each charge line.
func (s *Service) GetDetail(ctx context.Context, id int64) (Detail, error) {
	p, err := s.store.GetProjet(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	charges, err := s.store.ListChargesProjet(ctx, id)
	if err != nil {
		return Detail{}, err
	}

	d := Detail{Projet: p, Charges: make([]ChargeEngagement, 0, len(charges))}
	for _, c := range charges {
		depenses, err := s.budget.ListDepenses(ctx, storage.DepenseFilter{ChargeProjetID: c.ID})
		if err != nil {
			return Detail{}, err
		}
		var engage float64
		for _, dep := range depenses {
			engage += dep.Montant
		}
		d.Charges = append(d.Charges, ChargeEngagement{ChargeProjet: c, Engage: engage})
		d.TotalPrevu += c.MontantPrevu
		d.TotalEngage += engage
	}
	return d, nil
}

// CreateCharge adds a planned charge line to a project.
func (s *Service) CreateCharge(ctx context.Context, c projet.ChargeProjet) (projet.ChargeProjet, error) {
	c.Intitule = strings.TrimSpace(c.Intitule)
	if c.Intitule == "" {
		return projet.ChargeProjet{}, fmt.Errorf("intitule is required")
	}
	if _, err := s.store.GetProjet(ctx, c.ProjetID); err != nil {
		return projet.ChargeProjet{}, fmt.Errorf("projet lookup: %w", err)
	}
	return s.store.CreateChargeProjet(ctx, c)
}

// UpdateCharge rewrites a charge line.
func (s *Service) UpdateCharge(ctx context.Context, c projet.ChargeProjet) (projet.ChargeProjet, error) {
	c.Intitule = strings.TrimSpace(c.Intitule)
	if c.Intitule == "" {
		return projet.ChargeProjet{}, fmt.Errorf("intitule is required")
	}
	return s.store.UpdateChargeProjet(ctx, c)
}

// GetCharge returns one charge line.
func (s *Service) GetCharge(ctx context.Context, id int64) (projet.ChargeProjet, error) {
	return s.store.GetChargeProjet(ctx, id)
}

// ListCharges returns the charge lines of a project.
func (s *Service) ListCharges(ctx context.Context, projetID int64) ([]projet.ChargeProjet, error) {
	return s.store.ListChargesProjet(ctx, projetID)
}

// DeleteCharge removes a charge line. Charges with expenses are protected.
func (s *Service) DeleteCharge(ctx context.Context, id int64) error {
	depenses, err := s.budget.ListDepenses(ctx, storage.DepenseFilter{ChargeProjetID: id})
	if err != nil {
		return err
	}
	if len(depenses) > 0 {
		return ErrHasDepenses
	}
	return s.store.DeleteChargeProjet(ctx, id)
}

func normalize(p *projet.Projet) error {
	p.Nom = strings.TrimSpace(p.Nom)
	if p.Nom == "" {
		return fmt.Errorf("nom is required")
	}
	p.Statut = strings.TrimSpace(strings.ToLower(p.Statut))
	if p.Statut == "" {
		p.Statut = projet.StatutEnCours
	}
	if !statuts[p.Statut] {
		return fmt.Errorf("unknown statut %q", p.Statut)
	}
	return nil
}
