package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/assogest/assogest/internal/app/domain/budget"
	"github.com/assogest/assogest/internal/app/storage"
)

func scanSubvention(row rowScanner) (budget.Subvention, error) {
	var (
		sub       budget.Subvention
		financeur sql.NullString
		annee     sql.NullInt64
		notes     sql.NullString
	)
	err := row.Scan(&sub.ID, &sub.Nom, &financeur, &annee, &sub.Montant, &notes, &sub.CreatedAt)
	if err != nil {
		return budget.Subvention{}, err
	}
	sub.Financeur = financeur.String
	sub.Annee = int64Value(annee)
	sub.Notes = notes.String
	return sub, nil
}

func (s *Store) CreateSubvention(ctx context.Context, sub budget.Subvention) (budget.Subvention, error) {
	sub.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO subvention (nom, financeur, annee, montant, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, sub.Nom, sub.Financeur, sub.Annee, sub.Montant, sub.Notes, sub.CreatedAt).Scan(&sub.ID)
	if err != nil {
		return budget.Subvention{}, err
	}
	return sub, nil
}

func (s *Store) UpdateSubvention(ctx context.Context, sub budget.Subvention) (budget.Subvention, error) {
	existing, err := s.GetSubvention(ctx, sub.ID)
	if err != nil {
		return budget.Subvention{}, err
	}
	sub.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE subvention
		SET nom = $2, financeur = $3, annee = $4, montant = $5, notes = $6
		WHERE id = $1
	`, sub.ID, sub.Nom, sub.Financeur, sub.Annee, sub.Montant, sub.Notes)
	if err != nil {
		return budget.Subvention{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return budget.Subvention{}, sql.ErrNoRows
	}
	return sub, nil
}

func (s *Store) GetSubvention(ctx context.Context, id int64) (budget.Subvention, error) {
	return scanSubvention(s.db.QueryRowContext(ctx, `
		SELECT id, nom, financeur, annee, montant, notes, created_at
		FROM subvention
		WHERE id = $1
	`, id))
}

func (s *Store) ListSubventions(ctx context.Context) ([]budget.Subvention, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, nom, financeur, annee, montant, notes, created_at
		FROM subvention
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]budget.Subvention, 0)
	for rows.Next() {
		sub, err := scanSubvention(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

func (s *Store) DeleteSubvention(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM subvention WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) CreateLigneBudget(ctx context.Context, l budget.LigneBudget) (budget.LigneBudget, error) {
	ok, err := rowExists(ctx, s.db, `SELECT COUNT(*) FROM subvention WHERE id = $1`, l.SubventionID)
	if err != nil {
		return budget.LigneBudget{}, err
	}
	if !ok {
		return budget.LigneBudget{}, sql.ErrNoRows
	}

	l.CreatedAt = time.Now().UTC()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO ligne_budget (subvention_id, intitule, montant_prevu, nature, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, l.SubventionID, l.Intitule, l.MontantPrevu, l.Nature, l.CreatedAt).Scan(&l.ID)
	if err != nil {
		return budget.LigneBudget{}, err
	}
	return l, nil
}

func (s *Store) UpdateLigneBudget(ctx context.Context, l budget.LigneBudget) (budget.LigneBudget, error) {
	existing, err := s.GetLigneBudget(ctx, l.ID)
	if err != nil {
		return budget.LigneBudget{}, err
	}
	l.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE ligne_budget
		SET subvention_id = $2, intitule = $3, montant_prevu = $4, nature = $5
		WHERE id = $1
	`, l.ID, l.SubventionID, l.Intitule, l.MontantPrevu, l.Nature)
	if err != nil {
		return budget.LigneBudget{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return budget.LigneBudget{}, sql.ErrNoRows
	}
	return l, nil
}

func (s *Store) GetLigneBudget(ctx context.Context, id int64) (budget.LigneBudget, error) {
	var l budget.LigneBudget
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subvention_id, intitule, montant_prevu, nature, created_at
		FROM ligne_budget
		WHERE id = $1
	`, id).Scan(&l.ID, &l.SubventionID, &l.Intitule, &l.MontantPrevu, &l.Nature, &l.CreatedAt)
	if err != nil {
		return budget.LigneBudget{}, err
	}
	return l, nil
}

func (s *Store) ListLignesBudget(ctx context.Context, subventionID int64) ([]budget.LigneBudget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subvention_id, intitule, montant_prevu, nature, created_at
		FROM ligne_budget
		WHERE $1 = 0 OR subvention_id = $1
		ORDER BY id
	`, subventionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []budget.LigneBudget
	for rows.Next() {
		var l budget.LigneBudget
		err := rows.Scan(&l.ID, &l.SubventionID, &l.Intitule, &l.MontantPrevu, &l.Nature, &l.CreatedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (s *Store) DeleteLigneBudget(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ligne_budget WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanDepense(row rowScanner) (budget.Depense, error) {
	var (
		d       budget.Depense
		ligne   sql.NullInt64
		charge  sql.NullInt64
		date    sql.NullTime
		facture sql.NullInt64
	)
	err := row.Scan(&d.ID, &ligne, &charge, &d.Libelle, &d.Montant, &date, &facture, &d.FactureQuantite, &d.CreatedAt)
	if err != nil {
		return budget.Depense{}, err
	}
	d.LigneBudgetID = int64Ptr(ligne)
	d.ChargeProjetID = int64Ptr(charge)
	d.DateDepense = timePtr(date)
	d.FactureLigneID = int64Ptr(facture)
	return d, nil
}

func (s *Store) CreateDepense(ctx context.Context, d budget.Depense) (budget.Depense, error) {
	d.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO depense (ligne_budget_id, charge_projet_id, libelle, montant, date_depense, facture_ligne_id, facture_quantite, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, d.LigneBudgetID, d.ChargeProjetID, d.Libelle, d.Montant, d.DateDepense, d.FactureLigneID, d.FactureQuantite, d.CreatedAt).Scan(&d.ID)
	if err != nil {
		return budget.Depense{}, err
	}
	return d, nil
}

func (s *Store) UpdateDepense(ctx context.Context, d budget.Depense) (budget.Depense, error) {
	existing, err := s.GetDepense(ctx, d.ID)
	if err != nil {
		return budget.Depense{}, err
	}
	d.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE depense
		SET ligne_budget_id = $2, charge_projet_id = $3, libelle = $4, montant = $5, date_depense = $6, facture_ligne_id = $7, facture_quantite = $8
		WHERE id = $1
	`, d.ID, d.LigneBudgetID, d.ChargeProjetID, d.Libelle, d.Montant, d.DateDepense, d.FactureLigneID, d.FactureQuantite)
	if err != nil {
		return budget.Depense{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return budget.Depense{}, sql.ErrNoRows
	}
	return d, nil
}

func (s *Store) GetDepense(ctx context.Context, id int64) (budget.Depense, error) {
	return scanDepense(s.db.QueryRowContext(ctx, `
		SELECT id, ligne_budget_id, charge_projet_id, libelle, montant, date_depense, facture_ligne_id, facture_quantite, created_at
		FROM depense
		WHERE id = $1
	`, id))
}

func (s *Store) ListDepenses(ctx context.Context, filter storage.DepenseFilter) ([]budget.Depense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ligne_budget_id, charge_projet_id, libelle, montant, date_depense, facture_ligne_id, facture_quantite, created_at
		FROM depense
		WHERE ($1 = 0 OR ligne_budget_id = $1)
		  AND ($2 = 0 OR charge_projet_id = $2)
		  AND ($3 = 0 OR facture_ligne_id = $3)
		  AND ($4 = 0 OR `+s.yearExpr("date_depense")+` = $4)
		ORDER BY id
	`, filter.LigneBudgetID, filter.ChargeProjetID, filter.FactureLigneID, filter.Annee)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []budget.Depense
	for rows.Next() {
		d, err := scanDepense(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (s *Store) DeleteDepense(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM depense WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
