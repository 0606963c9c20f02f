package pedagogie

import (
	"context"
	"testing"
	"time"

	"github.com/assogest/assogest/internal/app/domain/activite"
	"github.com/assogest/assogest/internal/app/domain/pedagogie"
	"github.com/assogest/assogest/internal/app/storage/memory"
	"github.com/assogest/assogest/internal/logging"
)

func TestFicheLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, logging.Nop())

	if _, err := svc.Create(ctx, pedagogie.Fiche{Titre: "  "}); err == nil {
		t.Fatal("expected error for blank titre")
	}

	bad := int64(999)
	if _, err := svc.Create(ctx, pedagogie.Fiche{Titre: "Initiation théâtre", AtelierID: &bad}); err == nil {
		t.Fatal("expected error for unknown atelier")
	}

	atelier, _ := store.CreateAtelier(ctx, activite.Atelier{Nom: "Théâtre"})
	f, err := svc.Create(ctx, pedagogie.Fiche{
		Titre:     " Initiation théâtre ",
		Secteur:   "jeunesse",
		AtelierID: &atelier.ID,
		Objectifs: "Prise de parole",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.Titre != "Initiation théâtre" {
		t.Fatalf("titre not trimmed: %q", f.Titre)
	}
	if f.UpdatedAt.IsZero() || !f.UpdatedAt.Equal(f.CreatedAt) {
		t.Fatalf("timestamps wrong: %+v", f)
	}

	time.Sleep(5 * time.Millisecond)
	f.Contenu = "Déroulé des 3 séances"
	updated, err := svc.Update(ctx, f)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatalf("updated_at should move forward: %+v", updated)
	}

	svc.Create(ctx, pedagogie.Fiche{Titre: "Atelier couture", Secteur: "famille"})
	jeunesse, err := svc.List(ctx, "jeunesse")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jeunesse) != 1 || jeunesse[0].ID != f.ID {
		t.Fatalf("secteur filter wrong: %+v", jeunesse)
	}
	all, _ := svc.List(ctx, "")
	if len(all) != 2 {
		t.Fatalf("expected 2 fiches, got %d", len(all))
	}

	if err := svc.Delete(ctx, f.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, f.ID); err == nil {
		t.Fatal("deleted fiche still readable")
	}
}
