package activite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/assogest/assogest/internal/app/storage/memory"
	"github.com/assogest/assogest/internal/logging"
)

func newFeedServer(t *testing.T, wantToken string, body *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantToken != "" && r.Header.Get("Authorization") != "Bearer "+wantToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(*body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPlanningSync_CreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	body := `{"ateliers": [
		{"ref": "EXT-1", "nom": "Théâtre", "secteur": "jeunesse", "animateur": "Sophie", "sessions": [
			{"date": "2025-03-12", "debut": "14:00", "fin": "16:00"},
			{"date": "2025-03-19", "debut": "14:00", "fin": "16:00"}
		]},
		{"ref": "EXT-2", "nom": "Couture", "secteur": "famille"}
	]}`
	srv := newFeedServer(t, "feed-token", &body)

	imp, err := NewPlanningImporter(nil, srv.URL, "feed-token", store, logging.Nop())
	if err != nil {
		t.Fatalf("new importer: %v", err)
	}

	res, err := imp.Sync(ctx)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if res.AteliersCreated != 2 || res.SessionsCreated != 2 || res.AteliersUpdated != 0 {
		t.Fatalf("first sync counts wrong: %+v", res)
	}

	// Same feed again: nothing to do.
	res, err = imp.Sync(ctx)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if res.AteliersCreated != 0 || res.SessionsCreated != 0 || res.AteliersUpdated != 0 {
		t.Fatalf("resync should be a no-op: %+v", res)
	}

	// Feed renames an atelier and adds one session.
	body = `{"ateliers": [
		{"ref": "EXT-1", "nom": "Théâtre ados", "secteur": "jeunesse", "animateur": "Sophie", "sessions": [
			{"date": "2025-03-12", "debut": "14:00", "fin": "16:00"},
			{"date": "2025-03-26", "debut": "14:00", "fin": "16:00"}
		]},
		{"ref": "EXT-2", "nom": "Couture", "secteur": "famille"}
	]}`
	res, err = imp.Sync(ctx)
	if err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if res.AteliersUpdated != 1 || res.SessionsCreated != 1 || res.AteliersCreated != 0 {
		t.Fatalf("third sync counts wrong: %+v", res)
	}

	atelier, err := store.GetAtelierByExternalRef(ctx, "EXT-1")
	if err != nil {
		t.Fatalf("get atelier: %v", err)
	}
	if atelier.Nom != "Théâtre ados" {
		t.Fatalf("rename not applied: %q", atelier.Nom)
	}
	sessions, _ := store.ListSessions(ctx, atelier.ID, true)
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
}

func TestPlanningSync_SkipsDeletedAndMalformed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, nil, logging.Nop())

	body := `{"ateliers": [
		{"ref": "EXT-1", "nom": "Théâtre"},
		{"nom": "Sans ref"},
		{"ref": "EXT-3", "nom": "Danse", "sessions": [{"date": "pas-une-date", "debut": "10:00"}]}
	]}`
	srv := newFeedServer(t, "", &body)

	imp, err := NewPlanningImporter(nil, srv.URL, "", store, logging.Nop())
	if err != nil {
		t.Fatalf("new importer: %v", err)
	}
	res, err := imp.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	// One entry has no ref, one session has a bad date.
	if res.AteliersCreated != 2 || res.Skipped != 2 || res.SessionsCreated != 0 {
		t.Fatalf("counts wrong: %+v", res)
	}

	// Staff delete EXT-1; the feed must not bring it back.
	atelier, _ := store.GetAtelierByExternalRef(ctx, "EXT-1")
	if err := svc.DeleteAtelier(ctx, atelier.ID); err != nil {
		t.Fatalf("delete atelier: %v", err)
	}
	res, err = imp.Sync(ctx)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if res.AteliersCreated != 0 || res.AteliersUpdated != 0 {
		t.Fatalf("deleted atelier resurrected: %+v", res)
	}
	atelier, _ = store.GetAtelierByExternalRef(ctx, "EXT-1")
	if !atelier.IsDeleted {
		t.Fatal("atelier should stay deleted")
	}
}

func TestPlanningSync_RootArrayAndErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	body := `[{"ref": "EXT-1", "nom": "Théâtre"}]`
	srv := newFeedServer(t, "", &body)

	imp, err := NewPlanningImporter(nil, srv.URL, "", store, logging.Nop())
	if err != nil {
		t.Fatalf("new importer: %v", err)
	}
	res, err := imp.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.AteliersCreated != 1 {
		t.Fatalf("root array not handled: %+v", res)
	}

	body = `{"error": "maintenance"}`
	if _, err := imp.Sync(ctx); err == nil {
		t.Fatal("expected error for feed without ateliers")
	}

	// Wrong token: the server answers 401 and the importer must surface it.
	authed := newFeedServer(t, "secret", &body)
	badImp, err := NewPlanningImporter(nil, authed.URL, "wrong", store, logging.Nop())
	if err != nil {
		t.Fatalf("new importer: %v", err)
	}
	if _, err := badImp.Sync(ctx); err == nil {
		t.Fatal("expected error for rejected token")
	}

	if _, err := NewPlanningImporter(nil, "   ", "", store, logging.Nop()); err == nil {
		t.Fatal("expected error for empty feed url")
	}
}
