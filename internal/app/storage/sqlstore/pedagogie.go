package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/assogest/assogest/internal/app/domain/pedagogie"
)

func scanFiche(row rowScanner) (pedagogie.Fiche, error) {
	var (
		f         pedagogie.Fiche
		secteur   sql.NullString
		atelierID sql.NullInt64
		objectifs sql.NullString
		contenu   sql.NullString
		auteurID  sql.NullInt64
	)
	err := row.Scan(&f.ID, &f.Titre, &secteur, &atelierID, &objectifs, &contenu, &auteurID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return pedagogie.Fiche{}, err
	}
	f.Secteur = secteur.String
	f.AtelierID = int64Ptr(atelierID)
	f.Objectifs = objectifs.String
	f.Contenu = contenu.String
	f.AuteurID = int64Ptr(auteurID)
	return f, nil
}

func (s *Store) CreateFiche(ctx context.Context, f pedagogie.Fiche) (pedagogie.Fiche, error) {
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO fiche_pedagogique (titre, secteur, atelier_id, objectifs, contenu, auteur_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, f.Titre, f.Secteur, f.AtelierID, f.Objectifs, f.Contenu, f.AuteurID, f.CreatedAt, f.UpdatedAt).Scan(&f.ID)
	if err != nil {
		return pedagogie.Fiche{}, err
	}
	return f, nil
}

func (s *Store) UpdateFiche(ctx context.Context, f pedagogie.Fiche) (pedagogie.Fiche, error) {
	existing, err := s.GetFiche(ctx, f.ID)
	if err != nil {
		return pedagogie.Fiche{}, err
	}
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE fiche_pedagogique
		SET titre = $2, secteur = $3, atelier_id = $4, objectifs = $5, contenu = $6, auteur_id = $7, updated_at = $8
		WHERE id = $1
	`, f.ID, f.Titre, f.Secteur, f.AtelierID, f.Objectifs, f.Contenu, f.AuteurID, f.UpdatedAt)
	if err != nil {
		return pedagogie.Fiche{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return pedagogie.Fiche{}, sql.ErrNoRows
	}
	return f, nil
}

func (s *Store) GetFiche(ctx context.Context, id int64) (pedagogie.Fiche, error) {
	return scanFiche(s.db.QueryRowContext(ctx, `
		SELECT id, titre, secteur, atelier_id, objectifs, contenu, auteur_id, created_at, updated_at
		FROM fiche_pedagogique
		WHERE id = $1
	`, id))
}

func (s *Store) ListFiches(ctx context.Context, secteur string) ([]pedagogie.Fiche, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, titre, secteur, atelier_id, objectifs, contenu, auteur_id, created_at, updated_at
		FROM fiche_pedagogique
		WHERE $1 = '' OR secteur = $1
		ORDER BY id
	`, secteur)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []pedagogie.Fiche
	for rows.Next() {
		f, err := scanFiche(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (s *Store) DeleteFiche(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM fiche_pedagogique WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
