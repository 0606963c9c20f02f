package rbac

import (
	"context"
	"testing"

	"github.com/assogest/assogest/internal/app/domain/user"
	"github.com/assogest/assogest/internal/app/storage/memory"
	"github.com/assogest/assogest/internal/logging"
)

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, logging.Nop())

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	perms, err := store.ListPermissions(ctx)
	if err != nil {
		t.Fatalf("list permissions: %v", err)
	}
	if len(perms) != len(DefaultPermissions) {
		t.Fatalf("expected %d permissions, got %d", len(DefaultPermissions), len(perms))
	}
	for _, p := range perms {
		if p.Label == "" || p.Category == "" {
			t.Fatalf("permission %s missing label or category", p.Code)
		}
	}

	roles, err := store.ListRoles(ctx)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != len(RoleTemplates) {
		t.Fatalf("expected %d roles, got %d", len(RoleTemplates), len(roles))
	}

	direction, err := store.GetRoleByName(ctx, RoleDirection)
	if err != nil {
		t.Fatalf("get direction: %v", err)
	}
	granted, err := store.ListRolePermissions(ctx, direction.ID)
	if err != nil {
		t.Fatalf("list direction perms: %v", err)
	}
	if len(granted) != len(DefaultPermissions) {
		t.Fatalf("direction should hold every permission, got %d", len(granted))
	}
}

func TestBootstrap_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, logging.Nop())

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("first bootstrap: %v", err)
	}
	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}

	perms, _ := store.ListPermissions(ctx)
	if len(perms) != len(DefaultPermissions) {
		t.Fatalf("permissions duplicated: %d", len(perms))
	}
	roles, _ := store.ListRoles(ctx)
	if len(roles) != len(RoleTemplates) {
		t.Fatalf("roles duplicated: %d", len(roles))
	}
}

func TestBootstrap_ResetsTemplateRoles(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, logging.Nop())

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	// Drift: admin_tech gets every permission by hand.
	adminTech, _ := store.GetRoleByName(ctx, RoleAdminTech)
	all, _ := store.ListPermissions(ctx)
	ids := make([]int64, len(all))
	for i, p := range all {
		ids[i] = p.ID
	}
	if err := store.SetRolePermissions(ctx, adminTech.ID, ids); err != nil {
		t.Fatalf("drift role: %v", err)
	}

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("re-bootstrap: %v", err)
	}
	granted, _ := store.ListRolePermissions(ctx, adminTech.ID)
	if len(granted) != len(RoleTemplates[RoleAdminTech]) {
		t.Fatalf("template role not reset: %d perms", len(granted))
	}
}

func TestBootstrap_KeepsCustomRoles(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, logging.Nop())

	if _, err := svc.CreateRole(ctx, "benevole", "Bénévoles de l'accueil"); err != nil {
		t.Fatalf("create custom role: %v", err)
	}
	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := store.GetRoleByName(ctx, "benevole"); err != nil {
		t.Fatalf("custom role lost: %v", err)
	}
}

func TestBootstrap_LegacySync(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, logging.Nop())

	directrice, err := store.CreateUser(ctx, user.User{Email: "dir@asso.fr", Role: "directrice", Actif: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	blank, err := store.CreateUser(ctx, user.User{Email: "new@asso.fr", Actif: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	unmapped, err := store.CreateUser(ctx, user.User{Email: "ext@asso.fr", Role: "stagiaire", Actif: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	roleNames := func(id int64) []string {
		roles, err := store.ListUserRoles(ctx, id)
		if err != nil {
			t.Fatalf("list user roles: %v", err)
		}
		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = r.Name
		}
		return names
	}

	if got := roleNames(directrice.ID); len(got) != 1 || got[0] != RoleDirection {
		t.Fatalf("directrice should map to direction, got %v", got)
	}
	if got := roleNames(blank.ID); len(got) != 1 || got[0] != RoleResponsableSecteur {
		t.Fatalf("blank legacy role should default to responsable_secteur, got %v", got)
	}
	// "stagiaire" has no matching role: nothing is attached, nothing fails.
	if got := roleNames(unmapped.ID); len(got) != 0 {
		t.Fatalf("unmapped legacy role should attach nothing, got %v", got)
	}
}

func TestBootstrap_LegacySyncKeepsExtraRoles(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, logging.Nop())

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	u, err := store.CreateUser(ctx, user.User{Email: "fin@asso.fr", Role: "finance", Actif: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := svc.AssignRole(ctx, u.ID, RoleAdminTech); err != nil {
		t.Fatalf("assign extra role: %v", err)
	}

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("re-bootstrap: %v", err)
	}
	roles, err := store.ListUserRoles(ctx, u.ID)
	if err != nil {
		t.Fatalf("list user roles: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("extra role link removed, got %d roles", len(roles))
	}
}

func TestSetRolePermissions(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, logging.Nop())

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	detail, err := svc.SetRolePermissions(ctx, RoleAdminTech, []string{"dashboard:view", "stats:view"})
	if err != nil {
		t.Fatalf("set role permissions: %v", err)
	}
	if len(detail.Permissions) != 2 {
		t.Fatalf("expected 2 permissions, got %d", len(detail.Permissions))
	}

	if _, err := svc.SetRolePermissions(ctx, RoleAdminTech, []string{"nope:nope"}); err == nil {
		t.Fatal("expected error for unknown permission code")
	}
}

func TestEnsureRole(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, logging.Nop())

	created, err := svc.EnsureRole(ctx, "benevole")
	if err != nil {
		t.Fatalf("ensure role: %v", err)
	}
	again, err := svc.EnsureRole(ctx, "benevole")
	if err != nil {
		t.Fatalf("ensure role twice: %v", err)
	}
	if created.ID != again.ID {
		t.Fatalf("ensure role created a duplicate: %d vs %d", created.ID, again.ID)
	}
}

func TestSetUserRoles(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, logging.Nop())

	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	u, err := store.CreateUser(ctx, user.User{Email: "resp@asso.fr", Role: "responsable_secteur", Actif: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := svc.SetUserRoles(ctx, u.ID, []string{RoleFinance, RoleAdminTech}); err != nil {
		t.Fatalf("set user roles: %v", err)
	}
	perms, err := svc.EffectivePermissions(ctx, u.ID)
	if err != nil {
		t.Fatalf("effective permissions: %v", err)
	}
	want := make(map[string]bool)
	for _, code := range RoleTemplates[RoleFinance] {
		want[code] = true
	}
	for _, code := range RoleTemplates[RoleAdminTech] {
		want[code] = true
	}
	if len(perms) != len(want) {
		t.Fatalf("expected union of %d permissions, got %d", len(want), len(perms))
	}

	if err := svc.SetUserRoles(ctx, u.ID, []string{"missing"}); err == nil {
		t.Fatal("expected error for missing role")
	}
}
