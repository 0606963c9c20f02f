package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/assogest/assogest/internal/app/domain/user"
	"github.com/assogest/assogest/internal/app/storage"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u       user.User
		nom     sql.NullString
		role    sql.NullString
		secteur sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &nom, &role, &secteur, &u.Actif, &u.CreatedAt)
	if err != nil {
		return user.User{}, err
	}
	u.Nom = nom.String
	u.Role = role.String
	u.Secteur = secteur.String
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	u.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, nom, role, secteur, actif, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, u.Email, u.PasswordHash, u.Nom, u.Role, u.Secteur, u.Actif, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, storage.ErrDuplicate
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, nom = $4, role = $5, secteur = $6, actif = $7
		WHERE id = $1
	`, u.ID, u.Email, u.PasswordHash, u.Nom, u.Role, u.Secteur, u.Actif)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, storage.ErrDuplicate
		}
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, nom, role, secteur, actif, created_at
		FROM users
		WHERE id = $1
	`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, nom, role, secteur, actif, created_at
		FROM users
		WHERE email = $1
	`, email))
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, password_hash, nom, role, secteur, actif, created_at
		FROM users
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// DeleteUser removes the account with its sessions and role assignments.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func (s *Store) CreateUserSession(ctx context.Context, sess user.Session) (user.Session, error) {
	sess.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, sess.TokenHash, sess.UserID, sess.CreatedAt, sess.ExpiresAt).Scan(&sess.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.Session{}, storage.ErrDuplicate
		}
		return user.Session{}, err
	}
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, hash string) (user.Session, error) {
	var sess user.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, token_hash, user_id, created_at, expires_at
		FROM sessions
		WHERE token_hash = $1
	`, hash).Scan(&sess.ID, &sess.TokenHash, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return user.Session{}, err
	}
	return sess, nil
}

func (s *Store) DeleteSessionByTokenHash(ctx context.Context, hash string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hash)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
