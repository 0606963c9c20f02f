package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/assogest/assogest/internal/app/domain/projet"
)

func scanProjet(row rowScanner) (projet.Projet, error) {
	var (
		p     projet.Projet
		desc  sql.NullString
		annee sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Nom, &desc, &annee, &p.Statut, &p.BudgetGlobal, &p.CreatedAt)
	if err != nil {
		return projet.Projet{}, err
	}
	p.Description = desc.String
	p.Annee = int64Value(annee)
	return p, nil
}

func (s *Store) CreateProjet(ctx context.Context, p projet.Projet) (projet.Projet, error) {
	p.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO projet (nom, description, annee, statut, budget_global, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.Nom, p.Description, p.Annee, p.Statut, p.BudgetGlobal, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return projet.Projet{}, err
	}
	return p, nil
}

func (s *Store) UpdateProjet(ctx context.Context, p projet.Projet) (projet.Projet, error) {
	existing, err := s.GetProjet(ctx, p.ID)
	if err != nil {
		return projet.Projet{}, err
	}
	p.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE projet
		SET nom = $2, description = $3, annee = $4, statut = $5, budget_global = $6
		WHERE id = $1
	`, p.ID, p.Nom, p.Description, p.Annee, p.Statut, p.BudgetGlobal)
	if err != nil {
		return projet.Projet{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return projet.Projet{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) GetProjet(ctx context.Context, id int64) (projet.Projet, error) {
	return scanProjet(s.db.QueryRowContext(ctx, `
		SELECT id, nom, description, annee, statut, budget_global, created_at
		FROM projet
		WHERE id = $1
	`, id))
}

func (s *Store) ListProjets(ctx context.Context) ([]projet.Projet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, nom, description, annee, statut, budget_global, created_at
		FROM projet
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]projet.Projet, 0)
	for rows.Next() {
		p, err := scanProjet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) DeleteProjet(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projet WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) CreateChargeProjet(ctx context.Context, c projet.ChargeProjet) (projet.ChargeProjet, error) {
	ok, err := rowExists(ctx, s.db, `SELECT COUNT(*) FROM projet WHERE id = $1`, c.ProjetID)
	if err != nil {
		return projet.ChargeProjet{}, err
	}
	if !ok {
		return projet.ChargeProjet{}, sql.ErrNoRows
	}

	c.CreatedAt = time.Now().UTC()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO charge_projet (projet_id, intitule, montant_prevu, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, c.ProjetID, c.Intitule, c.MontantPrevu, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return projet.ChargeProjet{}, err
	}
	return c, nil
}

func (s *Store) UpdateChargeProjet(ctx context.Context, c projet.ChargeProjet) (projet.ChargeProjet, error) {
	existing, err := s.GetChargeProjet(ctx, c.ID)
	if err != nil {
		return projet.ChargeProjet{}, err
	}
	c.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE charge_projet
		SET projet_id = $2, intitule = $3, montant_prevu = $4
		WHERE id = $1
	`, c.ID, c.ProjetID, c.Intitule, c.MontantPrevu)
	if err != nil {
		return projet.ChargeProjet{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return projet.ChargeProjet{}, sql.ErrNoRows
	}
	return c, nil
}

func (s *Store) GetChargeProjet(ctx context.Context, id int64) (projet.ChargeProjet, error) {
	var c projet.ChargeProjet
	err := s.db.QueryRowContext(ctx, `
		SELECT id, projet_id, intitule, montant_prevu, created_at
		FROM charge_projet
		WHERE id = $1
	`, id).Scan(&c.ID, &c.ProjetID, &c.Intitule, &c.MontantPrevu, &c.CreatedAt)
	if err != nil {
		return projet.ChargeProjet{}, err
	}
	return c, nil
}

func (s *Store) ListChargesProjet(ctx context.Context, projetID int64) ([]projet.ChargeProjet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, projet_id, intitule, montant_prevu, created_at
		FROM charge_projet
		WHERE $1 = 0 OR projet_id = $1
		ORDER BY id
	`, projetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []projet.ChargeProjet
	for rows.Next() {
		var c projet.ChargeProjet
		err := rows.Scan(&c.ID, &c.ProjetID, &c.Intitule, &c.MontantPrevu, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) DeleteChargeProjet(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM charge_projet WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
