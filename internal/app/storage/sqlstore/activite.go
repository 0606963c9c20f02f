package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/assogest/assogest/internal/app/domain/activite"
	"github.com/assogest/assogest/internal/app/storage"
)

func scanAtelier(row rowScanner) (activite.Atelier, error) {
	var (
		a         activite.Atelier
		secteur   sql.NullString
		animateur sql.NullString
		lieu      sql.NullString
		desc      sql.NullString
		ref       sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Nom, &secteur, &animateur, &lieu, &desc, &ref, &a.IsDeleted, &deletedAt, &a.CreatedAt)
	if err != nil {
		return activite.Atelier{}, err
	}
	a.Secteur = secteur.String
	a.Animateur = animateur.String
	a.Lieu = lieu.String
	a.Description = desc.String
	a.ExternalRef = ref.String
	a.DeletedAt = timePtr(deletedAt)
	return a, nil
}

func (s *Store) CreateAtelier(ctx context.Context, a activite.Atelier) (activite.Atelier, error) {
	a.CreatedAt = time.Now().UTC()
	a.IsDeleted = false
	a.DeletedAt = nil
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO atelier_activite (nom, secteur, animateur, lieu, description, external_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, a.Nom, a.Secteur, a.Animateur, a.Lieu, a.Description, a.ExternalRef, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return activite.Atelier{}, err
	}
	return a, nil
}

// UpdateAtelier never touches the soft-delete columns; those change only
// through SoftDeleteAtelier and RestoreAtelier.
func (s *Store) UpdateAtelier(ctx context.Context, a activite.Atelier) (activite.Atelier, error) {
	existing, err := s.GetAtelier(ctx, a.ID)
	if err != nil {
		return activite.Atelier{}, err
	}
	a.CreatedAt = existing.CreatedAt
	a.IsDeleted = existing.IsDeleted
	a.DeletedAt = existing.DeletedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE atelier_activite
		SET nom = $2, secteur = $3, animateur = $4, lieu = $5, description = $6, external_ref = $7
		WHERE id = $1
	`, a.ID, a.Nom, a.Secteur, a.Animateur, a.Lieu, a.Description, a.ExternalRef)
	if err != nil {
		return activite.Atelier{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return activite.Atelier{}, sql.ErrNoRows
	}
	return a, nil
}

func (s *Store) GetAtelier(ctx context.Context, id int64) (activite.Atelier, error) {
	return scanAtelier(s.db.QueryRowContext(ctx, `
		SELECT id, nom, secteur, animateur, lieu, description, external_ref, is_deleted, deleted_at, created_at
		FROM atelier_activite
		WHERE id = $1
	`, id))
}

func (s *Store) GetAtelierByExternalRef(ctx context.Context, ref string) (activite.Atelier, error) {
	if ref == "" {
		return activite.Atelier{}, sql.ErrNoRows
	}
	return scanAtelier(s.db.QueryRowContext(ctx, `
		SELECT id, nom, secteur, animateur, lieu, description, external_ref, is_deleted, deleted_at, created_at
		FROM atelier_activite
		WHERE external_ref = $1
		ORDER BY id
		LIMIT 1
	`, ref))
}

func (s *Store) ListAteliers(ctx context.Context, includeDeleted bool) ([]activite.Atelier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, nom, secteur, animateur, lieu, description, external_ref, is_deleted, deleted_at, created_at
		FROM atelier_activite
		WHERE $1 OR is_deleted = FALSE
		ORDER BY id
	`, includeDeleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []activite.Atelier
	for rows.Next() {
		a, err := scanAtelier(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) SoftDeleteAtelier(ctx context.Context, id int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE atelier_activite
		SET is_deleted = TRUE, deleted_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) RestoreAtelier(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE atelier_activite
		SET is_deleted = FALSE, deleted_at = NULL
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PurgeAteliers removes soft-deleted workshops whose sessions are already
// gone; the rest wait for the next run.
func (s *Store) PurgeAteliers(ctx context.Context, deletedBefore time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM atelier_activite
		WHERE is_deleted = TRUE AND deleted_at < $1
		  AND NOT EXISTS (SELECT 1 FROM session_activite WHERE session_activite.atelier_id = atelier_activite.id)
	`, deletedBefore)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanActivitySession(row rowScanner) (activite.Session, error) {
	var (
		sess       activite.Session
		debut      sql.NullString
		fin        sql.NullString
		notes      sql.NullString
		deletedAt  sql.NullTime
		kioskPIN   sql.NullString
		kioskToken sql.NullString
		kioskAt    sql.NullTime
	)
	err := row.Scan(&sess.ID, &sess.AtelierID, &sess.DateSession, &debut, &fin, &notes,
		&sess.IsDeleted, &deletedAt, &sess.KioskOpen, &kioskPIN, &kioskToken, &kioskAt, &sess.CreatedAt)
	if err != nil {
		return activite.Session{}, err
	}
	sess.HeureDebut = debut.String
	sess.HeureFin = fin.String
	sess.Notes = notes.String
	sess.DeletedAt = timePtr(deletedAt)
	sess.KioskPIN = kioskPIN.String
	sess.KioskToken = kioskToken.String
	sess.KioskOpenedAt = timePtr(kioskAt)
	return sess, nil
}

func (s *Store) CreateSession(ctx context.Context, sess activite.Session) (activite.Session, error) {
	ok, err := rowExists(ctx, s.db, `SELECT COUNT(*) FROM atelier_activite WHERE id = $1`, sess.AtelierID)
	if err != nil {
		return activite.Session{}, err
	}
	if !ok {
		return activite.Session{}, sql.ErrNoRows
	}

	sess.CreatedAt = time.Now().UTC()
	sess.IsDeleted = false
	sess.DeletedAt = nil
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO session_activite (atelier_id, date_session, heure_debut, heure_fin, notes, kiosk_open, kiosk_pin, kiosk_token, kiosk_opened_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, sess.AtelierID, sess.DateSession, sess.HeureDebut, sess.HeureFin, sess.Notes,
		sess.KioskOpen, sess.KioskPIN, sess.KioskToken, sess.KioskOpenedAt, sess.CreatedAt).Scan(&sess.ID)
	if err != nil {
		return activite.Session{}, err
	}
	return sess, nil
}

// UpdateSession carries the kiosk columns but, like UpdateAtelier, leaves
// the soft-delete columns alone.
func (s *Store) UpdateSession(ctx context.Context, sess activite.Session) (activite.Session, error) {
	existing, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		return activite.Session{}, err
	}
	sess.CreatedAt = existing.CreatedAt
	sess.IsDeleted = existing.IsDeleted
	sess.DeletedAt = existing.DeletedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE session_activite
		SET atelier_id = $2, date_session = $3, heure_debut = $4, heure_fin = $5, notes = $6,
		    kiosk_open = $7, kiosk_pin = $8, kiosk_token = $9, kiosk_opened_at = $10
		WHERE id = $1
	`, sess.ID, sess.AtelierID, sess.DateSession, sess.HeureDebut, sess.HeureFin, sess.Notes,
		sess.KioskOpen, sess.KioskPIN, sess.KioskToken, sess.KioskOpenedAt)
	if err != nil {
		return activite.Session{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return activite.Session{}, sql.ErrNoRows
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id int64) (activite.Session, error) {
	return scanActivitySession(s.db.QueryRowContext(ctx, `
		SELECT id, atelier_id, date_session, heure_debut, heure_fin, notes, is_deleted, deleted_at, kiosk_open, kiosk_pin, kiosk_token, kiosk_opened_at, created_at
		FROM session_activite
		WHERE id = $1
	`, id))
}

func (s *Store) GetSessionByKioskToken(ctx context.Context, token string) (activite.Session, error) {
	if token == "" {
		return activite.Session{}, sql.ErrNoRows
	}
	return scanActivitySession(s.db.QueryRowContext(ctx, `
		SELECT id, atelier_id, date_session, heure_debut, heure_fin, notes, is_deleted, deleted_at, kiosk_open, kiosk_pin, kiosk_token, kiosk_opened_at, created_at
		FROM session_activite
		WHERE kiosk_token = $1
		ORDER BY id
		LIMIT 1
	`, token))
}

func (s *Store) ListSessions(ctx context.Context, atelierID int64, includeDeleted bool) ([]activite.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, atelier_id, date_session, heure_debut, heure_fin, notes, is_deleted, deleted_at, kiosk_open, kiosk_pin, kiosk_token, kiosk_opened_at, created_at
		FROM session_activite
		WHERE ($1 = 0 OR atelier_id = $1) AND ($2 OR is_deleted = FALSE)
		ORDER BY id
	`, atelierID, includeDeleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []activite.Session
	for rows.Next() {
		sess, err := scanActivitySession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

// SoftDeleteSession also closes the kiosk so a deleted session cannot keep
// accepting sign-ins through a stale device URL.
func (s *Store) SoftDeleteSession(ctx context.Context, id int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE session_activite
		SET is_deleted = TRUE, deleted_at = $2, kiosk_open = FALSE
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) RestoreSession(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE session_activite
		SET is_deleted = FALSE, deleted_at = NULL
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PurgeSessions drops expired soft-deleted sessions with their attendance.
func (s *Store) PurgeSessions(ctx context.Context, deletedBefore time.Time) (int64, error) {
	var purged int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM presence_activite
			WHERE session_id IN (SELECT id FROM session_activite WHERE is_deleted = TRUE AND deleted_at < $1)
		`, deletedBefore)
		if err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `
			DELETE FROM session_activite
			WHERE is_deleted = TRUE AND deleted_at < $1
		`, deletedBefore)
		if err != nil {
			return err
		}
		purged, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

func scanPresence(row rowScanner) (activite.Presence, error) {
	var (
		p        activite.Presence
		signedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.SessionID, &p.ParticipantID, &p.Mode, &signedAt, &p.CreatedAt)
	if err != nil {
		return activite.Presence{}, err
	}
	p.SignedAt = timePtr(signedAt)
	return p, nil
}

func (s *Store) CreatePresence(ctx context.Context, p activite.Presence) (activite.Presence, error) {
	ok, err := rowExists(ctx, s.db, `SELECT COUNT(*) FROM session_activite WHERE id = $1`, p.SessionID)
	if err != nil {
		return activite.Presence{}, err
	}
	if !ok {
		return activite.Presence{}, sql.ErrNoRows
	}
	ok, err = rowExists(ctx, s.db, `SELECT COUNT(*) FROM participant WHERE id = $1`, p.ParticipantID)
	if err != nil {
		return activite.Presence{}, err
	}
	if !ok {
		return activite.Presence{}, sql.ErrNoRows
	}

	p.CreatedAt = time.Now().UTC()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO presence_activite (session_id, participant_id, mode, signed_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, p.SessionID, p.ParticipantID, p.Mode, p.SignedAt, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return activite.Presence{}, storage.ErrDuplicate
		}
		return activite.Presence{}, err
	}
	return p, nil
}

func (s *Store) ListPresences(ctx context.Context, sessionID int64) ([]activite.Presence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, participant_id, mode, signed_at, created_at
		FROM presence_activite
		WHERE $1 = 0 OR session_id = $1
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []activite.Presence
	for rows.Next() {
		p, err := scanPresence(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) DeletePresence(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM presence_activite WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanArchive(row rowScanner) (activite.Archive, error) {
	var (
		a         activite.Archive
		sessionID sql.NullInt64
		nom       sql.NullString
		date      sql.NullTime
		payload   sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &sessionID, &nom, &date, &payload, &a.IsDeleted, &deletedAt, &a.CreatedAt)
	if err != nil {
		return activite.Archive{}, err
	}
	a.SessionID = int64Ptr(sessionID)
	a.AtelierNom = nom.String
	a.DateSession = timePtr(date)
	a.Payload = payload.String
	a.DeletedAt = timePtr(deletedAt)
	return a, nil
}

func (s *Store) CreateArchive(ctx context.Context, a activite.Archive) (activite.Archive, error) {
	a.CreatedAt = time.Now().UTC()
	a.IsDeleted = false
	a.DeletedAt = nil
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO archive_emargement (session_id, atelier_nom, date_session, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.SessionID, a.AtelierNom, a.DateSession, a.Payload, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return activite.Archive{}, err
	}
	return a, nil
}

func (s *Store) GetArchive(ctx context.Context, id int64) (activite.Archive, error) {
	return scanArchive(s.db.QueryRowContext(ctx, `
		SELECT id, session_id, atelier_nom, date_session, payload, is_deleted, deleted_at, created_at
		FROM archive_emargement
		WHERE id = $1
	`, id))
}

func (s *Store) ListArchives(ctx context.Context, includeDeleted bool) ([]activite.Archive, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, atelier_nom, date_session, payload, is_deleted, deleted_at, created_at
		FROM archive_emargement
		WHERE $1 OR is_deleted = FALSE
		ORDER BY id
	`, includeDeleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []activite.Archive
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) SoftDeleteArchive(ctx context.Context, id int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE archive_emargement
		SET is_deleted = TRUE, deleted_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) RestoreArchive(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE archive_emargement
		SET is_deleted = FALSE, deleted_at = NULL
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) PurgeArchives(ctx context.Context, deletedBefore time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM archive_emargement
		WHERE is_deleted = TRUE AND deleted_at < $1
	`, deletedBefore)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
