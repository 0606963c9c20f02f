package inventaire

import (
	"context"
	"errors"
	"testing"

	"github.com/assogest/assogest/internal/app/domain/budget"
	"github.com/assogest/assogest/internal/app/domain/inventaire"
	"github.com/assogest/assogest/internal/app/storage/memory"
	"github.com/assogest/assogest/internal/logging"
)

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	return New(store, store, logging.Nop()), store
}

func TestArticleLifecycleAndLowStock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	if _, err := svc.CreateArticle(ctx, inventaire.Article{Nom: " "}); err == nil {
		t.Fatal("expected error for blank nom")
	}

	paper, err := svc.CreateArticle(ctx, inventaire.Article{Nom: "Ramettes A4", Stock: 12, SeuilAlerte: 5, Unite: "paquet"})
	if err != nil {
		t.Fatalf("create article: %v", err)
	}
	paint, _ := svc.CreateArticle(ctx, inventaire.Article{Nom: "Gouache", Stock: 2, SeuilAlerte: 4})
	svc.CreateArticle(ctx, inventaire.Article{Nom: "Ciseaux", Stock: 0})

	low, err := svc.LowStock(ctx)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	// Gouache is under threshold; Ciseaux has no threshold at all.
	if len(low) != 1 || low[0].ID != paint.ID {
		t.Fatalf("low stock wrong: %+v", low)
	}

	a, err := svc.AdjustStock(ctx, paper.ID, -8)
	if err != nil {
		t.Fatalf("adjust stock: %v", err)
	}
	if a.Stock != 4 {
		t.Fatalf("stock should be 4, got %v", a.Stock)
	}
	low, _ = svc.LowStock(ctx)
	if len(low) != 2 {
		t.Fatalf("expected 2 low articles, got %d", len(low))
	}
}

func TestCreateFacture(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	paper, _ := svc.CreateArticle(ctx, inventaire.Article{Nom: "Ramettes A4", Stock: 3})

	f, err := svc.CreateFacture(ctx, inventaire.Facture{
		Fournisseur: "Bureau Pro",
		Numero:      "F-2025-041",
		Lignes: []inventaire.FactureLigne{
			{Designation: "Ramettes A4", Quantite: 10, PrixUnitaire: 4.5, ArticleID: &paper.ID},
			{Designation: "Livraison", PrixUnitaire: 12},
		},
	})
	if err != nil {
		t.Fatalf("create facture: %v", err)
	}
	// 10×4.50 + 1×12 (quantity defaults to 1).
	if f.MontantTotal != 57 {
		t.Fatalf("montant total should be 57, got %v", f.MontantTotal)
	}
	if len(f.Lignes) != 2 || f.Lignes[0].FactureID != f.ID {
		t.Fatalf("lignes not attached: %+v", f.Lignes)
	}

	got, err := svc.GetArticle(ctx, paper.ID)
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if got.Stock != 13 {
		t.Fatalf("delivery should raise stock to 13, got %v", got.Stock)
	}

	bad := int64(999)
	_, err = svc.CreateFacture(ctx, inventaire.Facture{
		Lignes: []inventaire.FactureLigne{{Designation: "X", ArticleID: &bad}},
	})
	if err == nil {
		t.Fatal("expected error for unknown article")
	}
	if _, err := svc.CreateFacture(ctx, inventaire.Facture{
		Lignes: []inventaire.FactureLigne{{Designation: "  "}},
	}); err == nil {
		t.Fatal("expected error for blank designation")
	}
}

func TestDeleteFacture(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	paper, _ := svc.CreateArticle(ctx, inventaire.Article{Nom: "Ramettes A4", Stock: 0})
	f, err := svc.CreateFacture(ctx, inventaire.Facture{
		Lignes: []inventaire.FactureLigne{{Designation: "Ramettes A4", Quantite: 10, PrixUnitaire: 4.5, ArticleID: &paper.ID}},
	})
	if err != nil {
		t.Fatalf("create facture: %v", err)
	}

	// An expense pinned to the invoice line blocks deletion.
	sub, _ := store.CreateSubvention(ctx, budget.Subvention{Nom: "CAF"})
	ligne, _ := store.CreateLigneBudget(ctx, budget.LigneBudget{SubventionID: sub.ID, Intitule: "Fournitures", Nature: budget.NatureCharge})
	dep, err := store.CreateDepense(ctx, budget.Depense{
		LigneBudgetID: &ligne.ID,
		Libelle:       "Papier",
		Montant:       45,
		FactureLigneID: func() *int64 {
			id := f.Lignes[0].ID
			return &id
		}(),
	})
	if err != nil {
		t.Fatalf("create depense: %v", err)
	}
	if err := svc.DeleteFacture(ctx, f.ID); !errors.Is(err, ErrLigneReferenced) {
		t.Fatalf("expected ErrLigneReferenced, got %v", err)
	}

	if err := store.DeleteDepense(ctx, dep.ID); err != nil {
		t.Fatalf("delete depense: %v", err)
	}
	if err := svc.DeleteFacture(ctx, f.ID); err != nil {
		t.Fatalf("delete facture: %v", err)
	}
	got, _ := svc.GetArticle(ctx, paper.ID)
	if got.Stock != 0 {
		t.Fatalf("stock should be backed out to 0, got %v", got.Stock)
	}
	if _, err := svc.GetFacture(ctx, f.ID); err == nil {
		t.Fatal("facture should be gone")
	}
}

func TestMateriel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	m, err := svc.CreateMateriel(ctx, inventaire.Materiel{Nom: "Vidéoprojecteur", Etat: " BON "})
	if err != nil {
		t.Fatalf("create materiel: %v", err)
	}
	if m.Etat != inventaire.EtatBon || m.Quantite != 1 {
		t.Fatalf("materiel not normalized: %+v", m)
	}

	if _, err := svc.CreateMateriel(ctx, inventaire.Materiel{Nom: "Table", Etat: "cassé"}); err == nil {
		t.Fatal("expected error for invalid etat")
	}

	m.Etat = inventaire.EtatHorsService
	m.Localisation = "Cave"
	updated, err := svc.UpdateMateriel(ctx, m)
	if err != nil {
		t.Fatalf("update materiel: %v", err)
	}
	if updated.Etat != inventaire.EtatHorsService || updated.Localisation != "Cave" {
		t.Fatalf("update lost fields: %+v", updated)
	}

	if err := svc.DeleteMateriel(ctx, m.ID); err != nil {
		t.Fatalf("delete materiel: %v", err)
	}
	left, _ := svc.ListMateriels(ctx)
	if len(left) != 0 {
		t.Fatalf("expected empty register, got %d", len(left))
	}
}
