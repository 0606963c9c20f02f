package sqlstore

import (
	"context"
	"database/sql"

	"github.com/assogest/assogest/internal/app/domain/user"
	"github.com/assogest/assogest/internal/app/storage"
)

func scanRole(row rowScanner) (user.Role, error) {
	var (
		r    user.Role
		desc sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Name, &desc); err != nil {
		return user.Role{}, err
	}
	r.Description = desc.String
	return r, nil
}

func (s *Store) CreatePermission(ctx context.Context, p user.Permission) (user.Permission, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO permissions (code, label, category)
		VALUES ($1, $2, $3)
		RETURNING id
	`, p.Code, p.Label, p.Category).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.Permission{}, storage.ErrDuplicate
		}
		return user.Permission{}, err
	}
	return p, nil
}

func (s *Store) UpdatePermission(ctx context.Context, p user.Permission) (user.Permission, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE permissions
		SET code = $2, label = $3, category = $4
		WHERE id = $1
	`, p.ID, p.Code, p.Label, p.Category)
	if err != nil {
		if isUniqueViolation(err) {
			return user.Permission{}, storage.ErrDuplicate
		}
		return user.Permission{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.Permission{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) ListPermissions(ctx context.Context) ([]user.Permission, error) {
	return s.queryPermissions(ctx, `
		SELECT id, code, label, category
		FROM permissions
		ORDER BY code
	`)
}

func (s *Store) CreateRole(ctx context.Context, r user.Role) (user.Role, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO roles (name, description)
		VALUES ($1, $2)
		RETURNING id
	`, r.Name, r.Description).Scan(&r.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.Role{}, storage.ErrDuplicate
		}
		return user.Role{}, err
	}
	return r, nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (user.Role, error) {
	return scanRole(s.db.QueryRowContext(ctx, `
		SELECT id, name, description
		FROM roles
		WHERE name = $1
	`, name))
}

func (s *Store) ListRoles(ctx context.Context) ([]user.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description
		FROM roles
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]user.Role, 0)
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// SetRolePermissions replaces the grant set of a role in one transaction.
func (s *Store) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := rowExists(ctx, tx, `SELECT COUNT(*) FROM roles WHERE id = $1`, roleID)
		if err != nil {
			return err
		}
		if !ok {
			return sql.ErrNoRows
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, pid := range permissionIDs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, roleID, pid)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID int64) ([]user.Permission, error) {
	ok, err := rowExists(ctx, s.db, `SELECT COUNT(*) FROM roles WHERE id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s.queryPermissions(ctx, `
		SELECT p.id, p.code, p.label, p.category
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.code
	`, roleID)
}

// AssignRole grants a role to a user. Granting twice is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID, roleID int64) error {
	ok, err := rowExists(ctx, s.db, `SELECT COUNT(*) FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if !ok {
		return sql.ErrNoRows
	}
	ok, err = rowExists(ctx, s.db, `SELECT COUNT(*) FROM roles WHERE id = $1`, roleID)
	if err != nil {
		return err
	}
	if !ok {
		return sql.ErrNoRows
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, roleID)
	return err
}

// ReplaceUserRoles swaps the full role set of a user in one transaction.
func (s *Store) ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := rowExists(ctx, tx, `SELECT COUNT(*) FROM users WHERE id = $1`, userID)
		if err != nil {
			return err
		}
		if !ok {
			return sql.ErrNoRows
		}
		for _, rid := range roleIDs {
			ok, err := rowExists(ctx, tx, `SELECT COUNT(*) FROM roles WHERE id = $1`, rid)
			if err != nil {
				return err
			}
			if !ok {
				return sql.ErrNoRows
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, rid := range roleIDs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO user_roles (user_id, role_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, userID, rid)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListUserRoles(ctx context.Context, userID int64) ([]user.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]user.Role, 0)
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) ListUserPermissions(ctx context.Context, userID int64) ([]user.Permission, error) {
	return s.queryPermissions(ctx, `
		SELECT DISTINCT p.id, p.code, p.label, p.category
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.code
	`, userID)
}

func (s *Store) queryPermissions(ctx context.Context, query string, args ...any) ([]user.Permission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]user.Permission, 0)
	for rows.Next() {
		var p user.Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Label, &p.Category); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
