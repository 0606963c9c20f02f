// Package budget manages subventions, budget lines and expenses.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/assogest/assogest/internal/app/domain/budget"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/logging"
)

var (
	// ErrHasLignes blocks deleting a subvention that still has budget lines.
	ErrHasLignes = errors.New("budget: subvention has budget lines")
	// ErrHasDepenses blocks deleting a line that still has expenses.
	ErrHasDepenses = errors.New("budget: line has expenses")
	// ErrParent rejects an expense without exactly one parent line.
	ErrParent = errors.New("budget: expense needs exactly one of ligne_budget_id or charge_projet_id")
)

// Service owns the budget module.
type Service struct {
	store      storage.BudgetStore
	projets    storage.ProjetStore
	inventaire storage.InventaireStore
	log        *logging.Logger
}

// New constructs the budget service.
func New(store storage.BudgetStore, projets storage.ProjetStore, inventaire storage.InventaireStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("budget")
	}
	return &Service{store: store, projets: projets, inventaire: inventaire, log: log}
}

// --- Subventions ---

// CreateSubvention records a funding envelope.
func (s *Service) CreateSubvention(ctx context.Context, sub budget.Subvention) (budget.Subvention, error) {
	sub.Nom = strings.TrimSpace(sub.Nom)
	if sub.Nom == "" {
		return budget.Subvention{}, fmt.Errorf("nom is required")
	}
	created, err := s.store.CreateSubvention(ctx, sub)
	if err != nil {
		return budget.Subvention{}, err
	}
	s.log.Info().Int64("subvention_id", created.ID).Str("nom", created.Nom).Msg("subvention created")
	return created, nil
}

// UpdateSubvention rewrites a funding envelope.
func (s *Service) UpdateSubvention(ctx context.Context, sub budget.Subvention) (budget.Subvention, error) {
	sub.Nom = strings.TrimSpace(sub.Nom)
	if sub.Nom == "" {
		return budget.Subvention{}, fmt.Errorf("nom is required")
	}
	return s.store.UpdateSubvention(ctx, sub)
}

// GetSubvention returns one envelope.
func (s *Service) GetSubvention(ctx context.Context, id int64) (budget.Subvention, error) {
	return s.store.GetSubvention(ctx, id)
}

// ListSubventions returns every envelope.
func (s *Service) ListSubventions(ctx context.Context) ([]budget.Subvention, error) {
	return s.store.ListSubventions(ctx)
}

// DeleteSubvention removes an envelope. Envelopes with lines are protected.
func (s *Service) DeleteSubvention(ctx context.Context, id int64) error {
	lignes, err := s.store.ListLignesBudget(ctx, id)
	if err != nil {
		return err
	}
	if len(lignes) > 0 {
		return ErrHasLignes
	}
	return s.store.DeleteSubvention(ctx, id)
}

// --- Lignes ---

// CreateLigne adds a budget line to a subvention.
func (s *Service) CreateLigne(ctx context.Context, l budget.LigneBudget) (budget.LigneBudget, error) {
	if err := s.normalizeLigne(&l); err != nil {
		return budget.LigneBudget{}, err
	}
	if _, err := s.store.GetSubvention(ctx, l.SubventionID); err != nil {
		return budget.LigneBudget{}, fmt.Errorf("subvention lookup: %w", err)
	}
	return s.store.CreateLigneBudget(ctx, l)
}

// UpdateLigne rewrites a budget line.
func (s *Service) UpdateLigne(ctx context.Context, l budget.LigneBudget) (budget.LigneBudget, error) {
	if err := s.normalizeLigne(&l); err != nil {
		return budget.LigneBudget{}, err
	}
	return s.store.UpdateLigneBudget(ctx, l)
}

// GetLigne returns one budget line.
func (s *Service) GetLigne(ctx context.Context, id int64) (budget.LigneBudget, error) {
	return s.store.GetLigneBudget(ctx, id)
}

// ListLignes returns the lines of a subvention.
func (s *Service) ListLignes(ctx context.Context, subventionID int64) ([]budget.LigneBudget, error) {
	return s.store.ListLignesBudget(ctx, subventionID)
}

// DeleteLigne removes a budget line. Lines with expenses are protected.
func (s *Service) DeleteLigne(ctx context.Context, id int64) error {
	depenses, err := s.store.ListDepenses(ctx, storage.DepenseFilter{LigneBudgetID: id})
	if err != nil {
		return err
	}
	if len(depenses) > 0 {
		return ErrHasDepenses
	}
	return s.store.DeleteLigneBudget(ctx, id)
}

func (s *Service) normalizeLigne(l *budget.LigneBudget) error {
	l.Intitule = strings.TrimSpace(l.Intitule)
	if l.Intitule == "" {
		return fmt.Errorf("intitule is required")
	}
	l.Nature = strings.TrimSpace(strings.ToLower(l.Nature))
	if l.Nature == "" {
		l.Nature = budget.NatureCharge
	}
	if l.Nature != budget.NatureCharge && l.Nature != budget.NatureProduit {
		return fmt.Errorf("nature must be %q or %q", budget.NatureCharge, budget.NatureProduit)
	}
	return nil
}

// --- Dépenses ---

// CreateDepense records spending against a budget line or a project charge.
// When the expense is tied to an invoice line, its amount is derived from
// that line's unit price times the quantity.
func (s *Service) CreateDepense(ctx context.Context, d budget.Depense) (budget.Depense, error) {
	if err := s.validateDepense(ctx, &d); err != nil {
		return budget.Depense{}, err
	}
	created, err := s.store.CreateDepense(ctx, d)
	if err != nil {
		return budget.Depense{}, err
	}
	s.log.Info().Int64("depense_id", created.ID).Float64("montant", created.Montant).Msg("depense created")
	return created, nil
}

// UpdateDepense rewrites an expense under the same rules as creation.
func (s *Service) UpdateDepense(ctx context.Context, d budget.Depense) (budget.Depense, error) {
	if err := s.validateDepense(ctx, &d); err != nil {
		return budget.Depense{}, err
	}
	return s.store.UpdateDepense(ctx, d)
}

// GetDepense returns one expense.
func (s *Service) GetDepense(ctx context.Context, id int64) (budget.Depense, error) {
	return s.store.GetDepense(ctx, id)
}

// ListDepenses returns expenses matching the filter.
func (s *Service) ListDepenses(ctx context.Context, filter storage.DepenseFilter) ([]budget.Depense, error) {
	return s.store.ListDepenses(ctx, filter)
}

// DeleteDepense removes an expense.
func (s *Service) DeleteDepense(ctx context.Context, id int64) error {
	return s.store.DeleteDepense(ctx, id)
}

func (s *Service) validateDepense(ctx context.Context, d *budget.Depense) error {
	d.Libelle = strings.TrimSpace(d.Libelle)
	if d.Libelle == "" {
		return fmt.Errorf("libelle is required")
	}

	hasLigne := d.LigneBudgetID != nil && *d.LigneBudgetID > 0
	hasCharge := d.ChargeProjetID != nil && *d.ChargeProjetID > 0
	if hasLigne == hasCharge {
		return ErrParent
	}
	if hasLigne {
		d.ChargeProjetID = nil
		if _, err := s.store.GetLigneBudget(ctx, *d.LigneBudgetID); err != nil {
			return fmt.Errorf("ligne lookup: %w", err)
		}
	} else {
		d.LigneBudgetID = nil
		if _, err := s.projets.GetChargeProjet(ctx, *d.ChargeProjetID); err != nil {
			return fmt.Errorf("charge lookup: %w", err)
		}
	}

	if d.FactureQuantite <= 0 {
		d.FactureQuantite = 1
	}
	if d.FactureLigneID != nil && *d.FactureLigneID > 0 {
		fl, err := s.inventaire.GetFactureLigne(ctx, *d.FactureLigneID)
		if err != nil {
			return fmt.Errorf("facture ligne lookup: %w", err)
		}
		d.Montant = fl.PrixUnitaire * float64(d.FactureQuantite)
	} else {
		d.FactureLigneID = nil
	}

	if d.Montant < 0 {
		return fmt.Errorf("montant must not be negative")
	}
	return nil
}
