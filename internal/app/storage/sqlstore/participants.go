package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/assogest/assogest/internal/app/domain/participant"
	"github.com/assogest/assogest/internal/app/storage"
)

func scanParticipant(row rowScanner) (participant.Participant, error) {
	var (
		p          participant.Participant
		prenom     sql.NullString
		naissance  sql.NullTime
		telephone  sql.NullString
		email      sql.NullString
		adresse    sql.NullString
		ville      sql.NullString
		quartierID sql.NullInt64
		sexe       sql.NullString
		typePublic sql.NullString
		signature  sql.NullString
		notes      sql.NullString
	)
	err := row.Scan(&p.ID, &p.Nom, &prenom, &naissance, &telephone, &email, &adresse, &ville,
		&quartierID, &sexe, &typePublic, &signature, &notes, &p.CreatedAt)
	if err != nil {
		return participant.Participant{}, err
	}
	p.Prenom = prenom.String
	p.DateNaissance = timePtr(naissance)
	p.Telephone = telephone.String
	p.Email = email.String
	p.Adresse = adresse.String
	p.Ville = ville.String
	p.QuartierID = int64Ptr(quartierID)
	p.Sexe = sexe.String
	p.TypePublic = typePublic.String
	p.SignaturePath = signature.String
	p.Notes = notes.String
	return p, nil
}

func (s *Store) CreateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	p.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO participant (nom, prenom, date_naissance, telephone, email, adresse, ville, quartier_id, sexe, type_public, signature_path, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, p.Nom, p.Prenom, p.DateNaissance, p.Telephone, p.Email, p.Adresse, p.Ville,
		p.QuartierID, p.Sexe, p.TypePublic, p.SignaturePath, p.Notes, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return participant.Participant{}, err
	}
	return p, nil
}

func (s *Store) UpdateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	existing, err := s.GetParticipant(ctx, p.ID)
	if err != nil {
		return participant.Participant{}, err
	}
	p.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE participant
		SET nom = $2, prenom = $3, date_naissance = $4, telephone = $5, email = $6, adresse = $7,
		    ville = $8, quartier_id = $9, sexe = $10, type_public = $11, signature_path = $12, notes = $13
		WHERE id = $1
	`, p.ID, p.Nom, p.Prenom, p.DateNaissance, p.Telephone, p.Email, p.Adresse,
		p.Ville, p.QuartierID, p.Sexe, p.TypePublic, p.SignaturePath, p.Notes)
	if err != nil {
		return participant.Participant{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return participant.Participant{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) GetParticipant(ctx context.Context, id int64) (participant.Participant, error) {
	return scanParticipant(s.db.QueryRowContext(ctx, `
		SELECT id, nom, prenom, date_naissance, telephone, email, adresse, ville, quartier_id, sexe, type_public, signature_path, notes, created_at
		FROM participant
		WHERE id = $1
	`, id))
}

// ListParticipants matches the search term against name and email,
// case-insensitively. An empty term lists everyone.
func (s *Store) ListParticipants(ctx context.Context, search string) ([]participant.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, nom, prenom, date_naissance, telephone, email, adresse, ville, quartier_id, sexe, type_public, signature_path, notes, created_at
		FROM participant
		WHERE $1 = '' OR LOWER(nom || ' ' || COALESCE(prenom, '') || ' ' || COALESCE(email, '')) LIKE '%' || LOWER($1) || '%'
		ORDER BY id
	`, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []participant.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// DeleteParticipant refuses to remove anyone with recorded attendance.
func (s *Store) DeleteParticipant(ctx context.Context, id int64) error {
	ok, err := rowExists(ctx, s.db, `SELECT COUNT(*) FROM participant WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if !ok {
		return sql.ErrNoRows
	}
	referenced, err := rowExists(ctx, s.db, `SELECT COUNT(*) FROM presence_activite WHERE participant_id = $1`, id)
	if err != nil {
		return err
	}
	if referenced {
		return storage.ErrDuplicate
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM participant WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) CreateQuartier(ctx context.Context, q participant.Quartier) (participant.Quartier, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO quartier (nom, ville)
		VALUES ($1, $2)
		RETURNING id
	`, q.Nom, q.Ville).Scan(&q.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return participant.Quartier{}, storage.ErrDuplicate
		}
		return participant.Quartier{}, err
	}
	return q, nil
}

func (s *Store) GetQuartier(ctx context.Context, id int64) (participant.Quartier, error) {
	var (
		q     participant.Quartier
		ville sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, nom, ville
		FROM quartier
		WHERE id = $1
	`, id).Scan(&q.ID, &q.Nom, &ville)
	if err != nil {
		return participant.Quartier{}, err
	}
	q.Ville = ville.String
	return q, nil
}

func (s *Store) ListQuartiers(ctx context.Context) ([]participant.Quartier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, nom, ville
		FROM quartier
		ORDER BY nom
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]participant.Quartier, 0)
	for rows.Next() {
		var (
			q     participant.Quartier
			ville sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.Nom, &ville); err != nil {
			return nil, err
		}
		q.Ville = ville.String
		result = append(result, q)
	}
	return result, rows.Err()
}

func (s *Store) DeleteQuartier(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM quartier WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
