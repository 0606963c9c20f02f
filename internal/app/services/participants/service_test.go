package participants

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/assogest/assogest/internal/app/domain/participant"
	"github.com/assogest/assogest/internal/app/storage/memory"
	"github.com/assogest/assogest/internal/logging"
)

func newTestService() *Service {
	return New(memory.New(), logging.Nop())
}

func TestParticipantLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	if _, err := svc.Create(ctx, participant.Participant{Nom: "  "}); err == nil {
		t.Fatal("expected error for blank nom")
	}

	born := time.Date(2012, 5, 3, 0, 0, 0, 0, time.UTC)
	p, err := svc.Create(ctx, participant.Participant{
		Nom:           " Martin ",
		Prenom:        "Léa",
		DateNaissance: &born,
		Sexe:          "F",
		TypePublic:    "enfant",
		Ville:         "Lyon",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Nom != "Martin" {
		t.Fatalf("nom not trimmed: %q", p.Nom)
	}

	p.Telephone = "0600000000"
	updated, err := svc.Update(ctx, p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Telephone != "0600000000" || !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Fatalf("update lost fields: %+v", updated)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, p.ID); err == nil {
		t.Fatal("deleted participant still readable")
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	svc.Create(ctx, participant.Participant{Nom: "Martin", Prenom: "Léa"})
	svc.Create(ctx, participant.Participant{Nom: "Diallo", Prenom: "Awa"})
	svc.Create(ctx, participant.Participant{Nom: "Marchand", Prenom: "Paul"})

	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(all))
	}

	found, err := svc.List(ctx, " mar ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 matches for 'mar', got %d", len(found))
	}
}

func TestQuartiers(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	if _, err := svc.CreateQuartier(ctx, participant.Quartier{Nom: ""}); err == nil {
		t.Fatal("expected error for blank quartier")
	}
	q, err := svc.CreateQuartier(ctx, participant.Quartier{Nom: "Centre", Ville: "Lyon"})
	if err != nil {
		t.Fatalf("create quartier: %v", err)
	}

	// Unknown quartier reference is rejected.
	bad := int64(999)
	if _, err := svc.Create(ctx, participant.Participant{Nom: "Martin", QuartierID: &bad}); err == nil {
		t.Fatal("expected error for unknown quartier")
	}

	p, err := svc.Create(ctx, participant.Participant{Nom: "Martin", QuartierID: &q.ID})
	if err != nil {
		t.Fatalf("create with quartier: %v", err)
	}

	if err := svc.DeleteQuartier(ctx, q.ID); !errors.Is(err, ErrQuartierUsed) {
		t.Fatalf("expected ErrQuartierUsed, got %v", err)
	}
	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete participant: %v", err)
	}
	if err := svc.DeleteQuartier(ctx, q.ID); err != nil {
		t.Fatalf("delete quartier: %v", err)
	}
	left, _ := svc.ListQuartiers(ctx)
	if len(left) != 0 {
		t.Fatalf("quartier should be gone, got %d", len(left))
	}
}
