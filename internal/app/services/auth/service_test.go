package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/assogest/assogest/internal/app/services/rbac"
	"github.com/assogest/assogest/internal/app/storage/memory"
	"github.com/assogest/assogest/internal/logging"
	"github.com/assogest/assogest/internal/platform/cache"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	rbacSvc := rbac.New(store, store, logging.Nop())
	if err := rbacSvc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap rbac: %v", err)
	}
	svc := New(store, rbacSvc, cache.NewMemory(), "test-secret", time.Hour, logging.Nop())
	return svc, store
}

func TestLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.CreateUser(ctx, CreateUserInput{
		Email:    "Dir@Asso.FR",
		Password: "secret123",
		Nom:      "Direction",
		Role:     rbac.RoleDirection,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.Email != "dir@asso.fr" {
		t.Fatalf("email not normalized: %q", created.Email)
	}
	if created.Role != "directrice" {
		t.Fatalf("legacy role should be directrice, got %q", created.Role)
	}

	res, err := svc.Login(ctx, "dir@asso.fr", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a token")
	}

	p, err := svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.User.ID != created.ID {
		t.Fatalf("wrong principal: %d", p.User.ID)
	}
	if !p.HasRole(rbac.RoleDirection) {
		t.Fatal("principal should hold the direction role")
	}
	if !p.Can("admin:rbac") || !p.Can("subventions:edit") {
		t.Fatal("direction should hold every permission")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.CreateUser(ctx, CreateUserInput{Email: "u@asso.fr", Password: "secret123"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := svc.Login(ctx, "u@asso.fr", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@asso.fr", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	u, err := svc.CreateUser(ctx, CreateUserInput{Email: "off@asso.fr", Password: "secret123"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := svc.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Login(ctx, "off@asso.fr", "secret123"); !errors.Is(err, ErrInactiveUser) {
		t.Fatalf("expected ErrInactiveUser, got %v", err)
	}
}

func TestAuthenticate_RevokedAfterLogout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.CreateUser(ctx, CreateUserInput{Email: "u@asso.fr", Password: "secret123"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	res, err := svc.Login(ctx, "u@asso.fr", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
	// Logout twice is a no-op.
	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestAuthenticate_DeactivatedMidSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	u, err := svc.CreateUser(ctx, CreateUserInput{Email: "u@asso.fr", Password: "secret123"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	res, err := svc.Login(ctx, "u@asso.fr", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrInactiveUser) {
		t.Fatalf("expected ErrInactiveUser, got %v", err)
	}
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Authenticate(ctx, "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticate_ForgedToken(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	if _, err := svc.CreateUser(ctx, CreateUserInput{Email: "u@asso.fr", Password: "secret123"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	res, err := svc.Login(ctx, "u@asso.fr", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Same session rows, different signing secret.
	rbacSvc := rbac.New(store, store, logging.Nop())
	forged := New(store, rbacSvc, nil, "other-secret", time.Hour, logging.Nop())
	if _, err := forged.Authenticate(ctx, res.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestResetPasswordAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	u, err := svc.CreateUser(ctx, CreateUserInput{Email: "u@asso.fr", Password: "first-pass", Role: rbac.RoleFinance})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := svc.ResetPassword(ctx, u.ID, "second-pass"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if _, err := svc.Login(ctx, "u@asso.fr", "first-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old password should be rejected")
	}
	if _, err := svc.Login(ctx, "u@asso.fr", "second-pass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	nom := "Comptable"
	role := rbac.RoleAdminTech
	updated, err := svc.UpdateUser(ctx, u.ID, UpdateUserInput{Nom: &nom, Role: &role})
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Nom != "Comptable" || updated.Role != rbac.RoleAdminTech {
		t.Fatalf("update not applied: %+v", updated)
	}

	res, err := svc.Login(ctx, "u@asso.fr", "second-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	p, err := svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	// Role change attaches without detaching.
	if !p.HasRole(rbac.RoleFinance) || !p.HasRole(rbac.RoleAdminTech) {
		t.Fatalf("expected both roles, got %v", p.Roles)
	}
}

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	u, created, err := svc.EnsureUser(ctx, CreateUserInput{
		Email:    "admin@test.local",
		Password: "admin1234",
		Role:     rbac.RoleDirection,
		Nom:      "Admin Test",
	})
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first run")
	}
	if u.Role != "directrice" {
		t.Fatalf("legacy role should be directrice, got %q", u.Role)
	}

	// Second run repairs instead of duplicating.
	again, created, err := svc.EnsureUser(ctx, CreateUserInput{
		Email:    "ADMIN@test.local",
		Password: "new-password",
		Role:     rbac.RoleFinance,
		Secteur:  "jeunesse",
	})
	if err != nil {
		t.Fatalf("ensure user again: %v", err)
	}
	if created {
		t.Fatal("expected created=false on repair")
	}
	if again.ID != u.ID {
		t.Fatalf("repair created a new account: %d vs %d", again.ID, u.ID)
	}
	if again.Role != rbac.RoleFinance || again.Secteur != "jeunesse" {
		t.Fatalf("repair not applied: %+v", again)
	}
	if _, err := svc.Login(ctx, "admin@test.local", "new-password"); err != nil {
		t.Fatalf("login after repair: %v", err)
	}

	roles, err := store.ListUserRoles(ctx, u.ID)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected direction+finance attached, got %d", len(roles))
	}
}

func TestPrincipalCanExpandsEquivalents(t *testing.T) {
	p := Principal{Permissions: map[string]struct{}{"stats:view": {}}}
	if !p.Can("statsimpact:view") {
		t.Fatal("stats:view should satisfy statsimpact:view")
	}
	if p.Can("statsimpact:view_all") {
		t.Fatal("view_all must not be implied")
	}
	if p.Can("") {
		t.Fatal("blank permission must never pass")
	}
}
