package janitor

import (
	"context"
	"testing"
	"time"

	domain "github.com/assogest/assogest/internal/app/domain/activite"
	"github.com/assogest/assogest/internal/app/domain/user"
	"github.com/assogest/assogest/internal/app/services/activite"
	"github.com/assogest/assogest/internal/app/storage/memory"
	"github.com/assogest/assogest/internal/logging"
)

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	activites := activite.New(store, store, nil, logging.Nop())
	svc := New(store, activites, Config{Retention: 30 * 24 * time.Hour, KioskMaxAge: 12 * time.Hour}, logging.Nop())

	// One dead login session, one live.
	u, _ := store.CreateUser(ctx, user.User{Email: "a@b.fr", Nom: "A", Actif: true})
	store.CreateUserSession(ctx, user.Session{TokenHash: "dead", UserID: u.ID, ExpiresAt: time.Now().UTC().Add(-time.Hour)})
	store.CreateUserSession(ctx, user.Session{TokenHash: "live", UserID: u.ID, ExpiresAt: time.Now().UTC().Add(time.Hour)})

	// A kiosk left open since yesterday.
	atelier, _ := activites.CreateAtelier(ctx, domain.Atelier{Nom: "Théâtre"})
	sess, _ := activites.CreateSession(ctx, domain.Session{AtelierID: atelier.ID, DateSession: time.Now().UTC()})
	activites.OpenKiosk(ctx, sess.ID)
	stale, _ := store.GetSession(ctx, sess.ID)
	old := time.Now().UTC().Add(-24 * time.Hour)
	stale.KioskOpenedAt = &old
	store.UpdateSession(ctx, stale)

	// A workshop deleted past retention.
	gone, _ := activites.CreateAtelier(ctx, domain.Atelier{Nom: "Ancien"})
	store.SoftDeleteAtelier(ctx, gone.ID, time.Now().UTC().Add(-40*24*time.Hour))

	rep, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if rep.SessionsExpired != 1 {
		t.Fatalf("expected 1 expired session, got %d", rep.SessionsExpired)
	}
	if rep.KiosksClosed != 1 {
		t.Fatalf("expected 1 closed kiosk, got %d", rep.KiosksClosed)
	}
	if rep.Purged.Ateliers != 1 {
		t.Fatalf("expected 1 purged atelier, got %+v", rep.Purged)
	}

	if _, err := store.GetSessionByTokenHash(ctx, "live"); err != nil {
		t.Fatalf("live session should survive: %v", err)
	}
	if _, err := store.GetSessionByTokenHash(ctx, "dead"); err == nil {
		t.Fatal("dead session should be gone")
	}
	if _, err := store.GetAtelier(ctx, gone.ID); err == nil {
		t.Fatal("purged atelier should be gone")
	}
}

func TestRunOnce_SkipPurge(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	activites := activite.New(store, store, nil, logging.Nop())
	svc := New(store, activites, Config{SkipPurge: true}, logging.Nop())

	gone, _ := activites.CreateAtelier(ctx, domain.Atelier{Nom: "Ancien"})
	store.SoftDeleteAtelier(ctx, gone.ID, time.Now().UTC().Add(-400*24*time.Hour))

	rep, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if rep.Purged.Ateliers != 0 {
		t.Fatalf("purge should be skipped: %+v", rep.Purged)
	}
	if _, err := store.GetAtelier(ctx, gone.ID); err != nil {
		t.Fatalf("atelier should survive: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	store := memory.New()
	activites := activite.New(store, store, nil, logging.Nop())

	bad := New(store, activites, Config{Schedule: "not a cron spec"}, logging.Nop())
	if err := bad.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}

	svc := New(store, activites, Config{}, logging.Nop())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
