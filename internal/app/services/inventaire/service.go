// Package inventaire manages consumable stock, supplier invoices and the
// durable equipment register.
package inventaire

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/assogest/assogest/internal/app/domain/inventaire"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/logging"
)

// ErrLigneReferenced blocks deleting an invoice whose lines are still
// referenced by expenses.
var ErrLigneReferenced = errors.New("inventaire: facture ligne referenced by depenses")

var etats = map[string]bool{
	inventaire.EtatBon:         true,
	inventaire.EtatUsage:       true,
	inventaire.EtatHorsService: true,
}

// Service implements stock, invoice and equipment operations.
type Service struct {
	store  storage.InventaireStore
	budget storage.BudgetStore
	log    *logging.Logger
}

// New constructs the service. budget is consulted before invoice deletions.
func New(store storage.InventaireStore, budget storage.BudgetStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("inventaire")
	}
	return &Service{store: store, budget: budget, log: log}
}

// CreateArticle registers a consumable.
func (s *Service) CreateArticle(ctx context.Context, a inventaire.Article) (inventaire.Article, error) {
	if err := normalizeArticle(&a); err != nil {
		return inventaire.Article{}, err
	}
	return s.store.CreateArticle(ctx, a)
}

// UpdateArticle rewrites a consumable.
func (s *Service) UpdateArticle(ctx context.Context, a inventaire.Article) (inventaire.Article, error) {
	current, err := s.store.GetArticle(ctx, a.ID)
	if err != nil {
		return inventaire.Article{}, err
	}
	a.CreatedAt = current.CreatedAt
	if err := normalizeArticle(&a); err != nil {
		return inventaire.Article{}, err
	}
	return s.store.UpdateArticle(ctx, a)
}

// GetArticle returns one consumable.
func (s *Service) GetArticle(ctx context.Context, id int64) (inventaire.Article, error) {
	return s.store.GetArticle(ctx, id)
}

// ListArticles returns the whole stock list.
func (s *Service) ListArticles(ctx context.Context) ([]inventaire.Article, error) {
	return s.store.ListArticles(ctx)
}

// DeleteArticle removes a consumable. Invoice lines keep their free-text
// designation, so history survives the deletion.
func (s *Service) DeleteArticle(ctx context.Context, id int64) error {
	return s.store.DeleteArticle(ctx, id)
}

// AdjustStock applies a manual correction (counting, loss, usage).
func (s *Service) AdjustStock(ctx context.Context, id int64, delta float64) (inventaire.Article, error) {
	a, err := s.store.AdjustArticleStock(ctx, id, delta)
	if err != nil {
		return inventaire.Article{}, err
	}
	s.log.Info().Int64("article_id", id).Float64("delta", delta).Float64("stock", a.Stock).Msg("stock adjusted")
	return a, nil
}

// LowStock returns the consumables at or under their alert threshold.
// Articles without a threshold never alert.
func (s *Service) LowStock(ctx context.Context) ([]inventaire.Article, error) {
	all, err := s.store.ListArticles(ctx)
	if err != nil {
		return nil, err
	}
	low := []inventaire.Article{}
	for _, a := range all {
		if a.SeuilAlerte > 0 && a.Stock <= a.SeuilAlerte {
			low = append(low, a)
		}
	}
	return low, nil
}

func normalizeArticle(a *inventaire.Article) error {
	a.Nom = strings.TrimSpace(a.Nom)
	if a.Nom == "" {
		return fmt.Errorf("article: nom required")
	}
	return nil
}

// CreateFacture records a supplier invoice with its lines in one shot.
// The total is derived from the lines, and lines linked to an article add
// the delivered quantity to stock.
func (s *Service) CreateFacture(ctx context.Context, f inventaire.Facture) (inventaire.Facture, error) {
	total := 0.0
	for i := range f.Lignes {
		l := &f.Lignes[i]
		l.Designation = strings.TrimSpace(l.Designation)
		if l.Designation == "" {
			return inventaire.Facture{}, fmt.Errorf("facture ligne %d: designation required", i+1)
		}
		if l.Quantite <= 0 {
			l.Quantite = 1
		}
		if l.PrixUnitaire < 0 {
			return inventaire.Facture{}, fmt.Errorf("facture ligne %d: prix unitaire negative", i+1)
		}
		if l.ArticleID != nil {
			if _, err := s.store.GetArticle(ctx, *l.ArticleID); err != nil {
				return inventaire.Facture{}, fmt.Errorf("facture ligne %d: article %d: %w", i+1, *l.ArticleID, err)
			}
		}
		total += l.Quantite * l.PrixUnitaire
	}
	f.MontantTotal = total

	created, err := s.store.CreateFacture(ctx, f)
	if err != nil {
		return inventaire.Facture{}, err
	}
	for _, l := range created.Lignes {
		if l.ArticleID == nil {
			continue
		}
		if _, err := s.store.AdjustArticleStock(ctx, *l.ArticleID, l.Quantite); err != nil {
			return inventaire.Facture{}, fmt.Errorf("stock in for article %d: %w", *l.ArticleID, err)
		}
	}
	s.log.Info().Int64("facture_id", created.ID).Float64("montant", created.MontantTotal).
		Int("lignes", len(created.Lignes)).Msg("facture created")
	return created, nil
}

// GetFacture returns an invoice with its lines.
func (s *Service) GetFacture(ctx context.Context, id int64) (inventaire.Facture, error) {
	return s.store.GetFacture(ctx, id)
}

// ListFactures returns invoice headers.
func (s *Service) ListFactures(ctx context.Context) ([]inventaire.Facture, error) {
	return s.store.ListFactures(ctx)
}

// DeleteFacture removes an invoice and backs its deliveries out of stock.
// Invoices with lines referenced by expenses cannot be deleted.
func (s *Service) DeleteFacture(ctx context.Context, id int64) error {
	f, err := s.store.GetFacture(ctx, id)
	if err != nil {
		return err
	}
	for _, l := range f.Lignes {
		deps, err := s.budget.ListDepenses(ctx, storage.DepenseFilter{FactureLigneID: l.ID})
		if err != nil {
			return err
		}
		if len(deps) > 0 {
			return ErrLigneReferenced
		}
	}
	for _, l := range f.Lignes {
		if l.ArticleID == nil {
			continue
		}
		// The linked article may have been deleted since delivery.
		if _, err := s.store.AdjustArticleStock(ctx, *l.ArticleID, -l.Quantite); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("stock out for article %d: %w", *l.ArticleID, err)
		}
	}
	if err := s.store.DeleteFacture(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("facture_id", id).Msg("facture deleted")
	return nil
}

// CreateMateriel registers an equipment item.
func (s *Service) CreateMateriel(ctx context.Context, m inventaire.Materiel) (inventaire.Materiel, error) {
	if err := normalizeMateriel(&m); err != nil {
		return inventaire.Materiel{}, err
	}
	return s.store.CreateMateriel(ctx, m)
}

// UpdateMateriel rewrites an equipment item.
func (s *Service) UpdateMateriel(ctx context.Context, m inventaire.Materiel) (inventaire.Materiel, error) {
	current, err := s.store.GetMateriel(ctx, m.ID)
	if err != nil {
		return inventaire.Materiel{}, err
	}
	m.CreatedAt = current.CreatedAt
	if err := normalizeMateriel(&m); err != nil {
		return inventaire.Materiel{}, err
	}
	return s.store.UpdateMateriel(ctx, m)
}

// GetMateriel returns one equipment item.
func (s *Service) GetMateriel(ctx context.Context, id int64) (inventaire.Materiel, error) {
	return s.store.GetMateriel(ctx, id)
}

// ListMateriels returns the equipment register.
func (s *Service) ListMateriels(ctx context.Context) ([]inventaire.Materiel, error) {
	return s.store.ListMateriels(ctx)
}

// DeleteMateriel removes an equipment item.
func (s *Service) DeleteMateriel(ctx context.Context, id int64) error {
	return s.store.DeleteMateriel(ctx, id)
}

func normalizeMateriel(m *inventaire.Materiel) error {
	m.Nom = strings.TrimSpace(m.Nom)
	if m.Nom == "" {
		return fmt.Errorf("materiel: nom required")
	}
	m.Etat = strings.ToLower(strings.TrimSpace(m.Etat))
	if m.Etat == "" {
		m.Etat = inventaire.EtatBon
	}
	if !etats[m.Etat] {
		return fmt.Errorf("materiel: etat %q invalid", m.Etat)
	}
	if m.Quantite <= 0 {
		m.Quantite = 1
	}
	return nil
}
