package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/assogest/assogest/internal/app/domain/user"
	"github.com/assogest/assogest/internal/app/services/rbac"
)

// CreateUserInput describes a new staff account. Role is the RBAC role
// name; the legacy role column is derived from it.
type CreateUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nom      string `json:"nom"`
	Role     string `json:"role"`
	Secteur  string `json:"secteur"`
}

// UpdateUserInput patches an account. Nil fields are left untouched.
type UpdateUserInput struct {
	Email   *string `json:"email"`
	Nom     *string `json:"nom"`
	Secteur *string `json:"secteur"`
	Role    *string `json:"role"`
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.users.ListUsers(ctx)
}

// GetUser returns one account.
func (s *Service) GetUser(ctx context.Context, id int64) (user.User, error) {
	return s.users.GetUser(ctx, id)
}

// CreateUser adds an account and attaches its RBAC role.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (user.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return user.User{}, fmt.Errorf("email is required")
	}
	if in.Password == "" {
		return user.User{}, fmt.Errorf("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	nom := strings.TrimSpace(in.Nom)
	if nom == "" {
		nom = "Utilisateur"
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = rbac.RoleResponsableSecteur
	}

	u, err := s.users.CreateUser(ctx, user.User{
		Email:        email,
		PasswordHash: string(hash),
		Nom:          nom,
		Role:         legacyRoleString(role),
		Secteur:      strings.TrimSpace(in.Secteur),
		Actif:        true,
	})
	if err != nil {
		return user.User{}, err
	}

	if err := s.attachRole(ctx, u.ID, role); err != nil {
		return user.User{}, err
	}
	s.log.Info().Int64("user_id", u.ID).Str("email", u.Email).Str("role", role).Msg("user created")
	return u, nil
}

// UpdateUser patches an account. A role change rewrites the legacy column
// and attaches the new RBAC role without detaching the others.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (user.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return user.User{}, fmt.Errorf("email is required")
		}
		u.Email = email
	}
	if in.Nom != nil {
		u.Nom = strings.TrimSpace(*in.Nom)
	}
	if in.Secteur != nil {
		u.Secteur = strings.TrimSpace(*in.Secteur)
	}

	var newRole string
	if in.Role != nil {
		newRole = strings.TrimSpace(*in.Role)
		if newRole != "" {
			u.Role = legacyRoleString(newRole)
		}
	}

	updated, err := s.users.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	if newRole != "" {
		if err := s.attachRole(ctx, updated.ID, newRole); err != nil {
			return user.User{}, err
		}
	}
	return updated, nil
}

// SetActive enables or disables an account. Disabling also drops the
// account's live sessions at the next validation.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (user.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.Actif = active
	updated, err := s.users.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.Info().Int64("user_id", id).Bool("actif", active).Msg("user active flag changed")
	return updated, nil
}

// ResetPassword replaces an account's password.
func (s *Service) ResetPassword(ctx context.Context, id int64, password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", id).Msg("password reset")
	return nil
}

// DeleteUser removes an account and its sessions.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.users.DeleteUser(ctx, id)
}

// EnsureUser creates or repairs an account: password reset, coherent legacy
// role, optional secteur, RBAC role attached (created minimally if absent).
// Used by the bootstrap CLI. Returns whether the account was created.
func (s *Service) EnsureUser(ctx context.Context, in CreateUserInput) (user.User, bool, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return user.User{}, false, fmt.Errorf("email is required")
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = rbac.RoleResponsableSecteur
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		nom := strings.TrimSpace(in.Nom)
		if nom == "" {
			nom = "Utilisateur"
		}
		u = user.User{Email: email, Nom: nom, Actif: true}
		created = true
	default:
		return user.User{}, false, err
	}

	u.Role = legacyRoleString(role)
	if in.Secteur != "" {
		u.Secteur = strings.TrimSpace(in.Secteur)
	}
	u.Actif = true

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, false, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	if created {
		u, err = s.users.CreateUser(ctx, u)
	} else {
		u, err = s.users.UpdateUser(ctx, u)
	}
	if err != nil {
		return user.User{}, false, err
	}

	if err := s.attachRole(ctx, u.ID, role); err != nil {
		return user.User{}, false, err
	}
	return u, created, nil
}

// attachRole assigns the named role, creating it minimally when missing.
func (s *Service) attachRole(ctx context.Context, userID int64, roleName string) error {
	if _, err := s.rbac.EnsureRole(ctx, roleName); err != nil {
		return fmt.Errorf("ensure role %q: %w", roleName, err)
	}
	return s.rbac.AssignRole(ctx, userID, roleName)
}

// legacyRoleString keeps the historical single-role column coherent: older
// installs spell the direction role "directrice".
func legacyRoleString(roleName string) string {
	if roleName == rbac.RoleDirection {
		return "directrice"
	}
	return roleName
}
