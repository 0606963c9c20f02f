// Package rbac maintains the permission catalog, the role templates and the
// legacy-role synchronization, and answers permission checks.
package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/assogest/assogest/internal/app/domain/user"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/logging"
)

// ErrUnknownPermission reports a permission code absent from the database.
var ErrUnknownPermission = errors.New("rbac: unknown permission")

// Service owns role and permission management.
type Service struct {
	store storage.RBACStore
	users storage.UserStore
	log   *logging.Logger
}

// New constructs the RBAC service.
func New(store storage.RBACStore, users storage.UserStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("rbac")
	}
	return &Service{store: store, users: users, log: log}
}

// Bootstrap aligns the database with the canonical catalog: permissions are
// upserted, template roles are reset to their template, and every user's
// legacy role string is attached as an RBAC role. Custom roles and extra
// user-role links are never removed. Safe to run on every startup.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.syncPermissions(ctx); err != nil {
		return fmt.Errorf("sync permissions: %w", err)
	}
	if err := s.syncRoles(ctx); err != nil {
		return fmt.Errorf("sync roles: %w", err)
	}
	if err := s.syncLegacyRoles(ctx); err != nil {
		return fmt.Errorf("sync legacy roles: %w", err)
	}
	return nil
}

func (s *Service) syncPermissions(ctx context.Context) error {
	existing, err := s.store.ListPermissions(ctx)
	if err != nil {
		return err
	}
	byCode := make(map[string]user.Permission, len(existing))
	for _, p := range existing {
		byCode[p.Code] = p
	}

	changed := 0
	for _, def := range DefaultPermissions {
		category := CategoryFor(def.Code)
		p, ok := byCode[def.Code]
		if !ok {
			if _, err := s.store.CreatePermission(ctx, user.Permission{
				Code:     def.Code,
				Label:    def.Label,
				Category: category,
			}); err != nil {
				return err
			}
			changed++
			continue
		}
		if p.Label == def.Label && p.Category == category {
			continue
		}
		p.Label = def.Label
		p.Category = category
		if _, err := s.store.UpdatePermission(ctx, p); err != nil {
			return err
		}
		changed++
	}
	if changed > 0 {
		s.log.Info().Int("changed", changed).Msg("permission catalog updated")
	}
	return nil
}

func (s *Service) syncRoles(ctx context.Context) error {
	perms, err := s.store.ListPermissions(ctx)
	if err != nil {
		return err
	}
	idByCode := make(map[string]int64, len(perms))
	for _, p := range perms {
		idByCode[p.Code] = p.ID
	}

	for name, codes := range RoleTemplates {
		role, err := s.store.GetRoleByName(ctx, name)
		if errors.Is(err, sql.ErrNoRows) {
			role, err = s.store.CreateRole(ctx, user.Role{Name: name})
		}
		if err != nil {
			return err
		}

		// Unknown template codes are skipped, not errors.
		ids := make([]int64, 0, len(codes))
		for _, code := range codes {
			if id, ok := idByCode[code]; ok {
				ids = append(ids, id)
			}
		}
		if err := s.store.SetRolePermissions(ctx, role.ID, ids); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) syncLegacyRoles(ctx context.Context) error {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		target := NormalizeLegacyRole(u.Role)
		role, err := s.store.GetRoleByName(ctx, target)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		if err := s.store.AssignRole(ctx, u.ID, role.ID); err != nil {
			return err
		}
	}
	return nil
}

// EnsureRole returns the named role, creating it minimally when missing.
func (s *Service) EnsureRole(ctx context.Context, name string) (user.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return user.Role{}, fmt.Errorf("role name is required")
	}
	role, err := s.store.GetRoleByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		role, err = s.store.CreateRole(ctx, user.Role{Name: name})
		if errors.Is(err, storage.ErrDuplicate) {
			return s.store.GetRoleByName(ctx, name)
		}
	}
	return role, err
}

// RoleDetail is a role with its granted permissions, for the admin surface.
type RoleDetail struct {
	user.Role
	Permissions []user.Permission `json:"permissions"`
}

// Roles lists every role with its permission set.
func (s *Service) Roles(ctx context.Context) ([]RoleDetail, error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	details := make([]RoleDetail, 0, len(roles))
	for _, r := range roles {
		perms, err := s.store.ListRolePermissions(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, RoleDetail{Role: r, Permissions: perms})
	}
	return details, nil
}

// Permissions lists the whole permission catalog.
func (s *Service) Permissions(ctx context.Context) ([]user.Permission, error) {
	return s.store.ListPermissions(ctx)
}

// CreateRole adds a custom role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (user.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return user.Role{}, fmt.Errorf("role name is required")
	}
	role, err := s.store.CreateRole(ctx, user.Role{Name: name, Description: strings.TrimSpace(description)})
	if err != nil {
		return user.Role{}, err
	}
	s.log.Info().Str("role", name).Msg("role created")
	return role, nil
}

// SetRolePermissions replaces a role's permission set with the given codes.
// Unlike Bootstrap, an unknown code here is an error.
func (s *Service) SetRolePermissions(ctx context.Context, roleName string, codes []string) (RoleDetail, error) {
	role, err := s.store.GetRoleByName(ctx, roleName)
	if err != nil {
		return RoleDetail{}, err
	}
	perms, err := s.store.ListPermissions(ctx)
	if err != nil {
		return RoleDetail{}, err
	}
	idByCode := make(map[string]int64, len(perms))
	for _, p := range perms {
		idByCode[p.Code] = p.ID
	}

	ids := make([]int64, 0, len(codes))
	for _, code := range codes {
		id, ok := idByCode[strings.TrimSpace(code)]
		if !ok {
			return RoleDetail{}, fmt.Errorf("%w: %s", ErrUnknownPermission, code)
		}
		ids = append(ids, id)
	}
	if err := s.store.SetRolePermissions(ctx, role.ID, ids); err != nil {
		return RoleDetail{}, err
	}
	granted, err := s.store.ListRolePermissions(ctx, role.ID)
	if err != nil {
		return RoleDetail{}, err
	}
	s.log.Info().Str("role", roleName).Int("permissions", len(granted)).Msg("role permissions replaced")
	return RoleDetail{Role: role, Permissions: granted}, nil
}

// AssignRole attaches a role to a user by role name.
func (s *Service) AssignRole(ctx context.Context, userID int64, roleName string) error {
	role, err := s.store.GetRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	return s.store.AssignRole(ctx, userID, role.ID)
}

// SetUserRoles replaces a user's roles with the named set.
func (s *Service) SetUserRoles(ctx context.Context, userID int64, roleNames []string) error {
	ids := make([]int64, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := s.store.GetRoleByName(ctx, strings.TrimSpace(name))
		if err != nil {
			return fmt.Errorf("role %q: %w", name, err)
		}
		ids = append(ids, role.ID)
	}
	return s.store.ReplaceUserRoles(ctx, userID, ids)
}

// UserRoles lists a user's roles.
func (s *Service) UserRoles(ctx context.Context, userID int64) ([]user.Role, error) {
	return s.store.ListUserRoles(ctx, userID)
}

// EffectivePermissions returns the union of the user's roles' permissions.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]user.Permission, error) {
	return s.store.ListUserPermissions(ctx, userID)
}
