package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/assogest/assogest/internal/app/domain/inventaire"
)

func scanArticle(row rowScanner) (inventaire.Article, error) {
	var (
		a         inventaire.Article
		categorie sql.NullString
		unite     sql.NullString
		seuil     sql.NullFloat64
	)
	err := row.Scan(&a.ID, &a.Nom, &categorie, &unite, &a.Stock, &seuil, &a.CreatedAt)
	if err != nil {
		return inventaire.Article{}, err
	}
	a.Categorie = categorie.String
	a.Unite = unite.String
	a.SeuilAlerte = seuil.Float64
	return a, nil
}

func (s *Store) CreateArticle(ctx context.Context, a inventaire.Article) (inventaire.Article, error) {
	a.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO article (nom, categorie, unite, stock, seuil_alerte, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, a.Nom, a.Categorie, a.Unite, a.Stock, a.SeuilAlerte, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return inventaire.Article{}, err
	}
	return a, nil
}

func (s *Store) UpdateArticle(ctx context.Context, a inventaire.Article) (inventaire.Article, error) {
	existing, err := s.GetArticle(ctx, a.ID)
	if err != nil {
		return inventaire.Article{}, err
	}
	a.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE article
		SET nom = $2, categorie = $3, unite = $4, stock = $5, seuil_alerte = $6
		WHERE id = $1
	`, a.ID, a.Nom, a.Categorie, a.Unite, a.Stock, a.SeuilAlerte)
	if err != nil {
		return inventaire.Article{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return inventaire.Article{}, sql.ErrNoRows
	}
	return a, nil
}

func (s *Store) GetArticle(ctx context.Context, id int64) (inventaire.Article, error) {
	return scanArticle(s.db.QueryRowContext(ctx, `
		SELECT id, nom, categorie, unite, stock, seuil_alerte, created_at
		FROM article
		WHERE id = $1
	`, id))
}

func (s *Store) ListArticles(ctx context.Context) ([]inventaire.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, nom, categorie, unite, stock, seuil_alerte, created_at
		FROM article
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]inventaire.Article, 0)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) DeleteArticle(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM article WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AdjustArticleStock applies the delta in the database so concurrent
// deliveries do not lose increments.
func (s *Store) AdjustArticleStock(ctx context.Context, id int64, delta float64) (inventaire.Article, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE article
		SET stock = stock + $2
		WHERE id = $1
	`, id, delta)
	if err != nil {
		return inventaire.Article{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return inventaire.Article{}, sql.ErrNoRows
	}
	return s.GetArticle(ctx, id)
}

func scanFacture(row rowScanner) (inventaire.Facture, error) {
	var (
		f           inventaire.Facture
		fournisseur sql.NullString
		numero      sql.NullString
		date        sql.NullTime
	)
	err := row.Scan(&f.ID, &fournisseur, &numero, &date, &f.MontantTotal, &f.CreatedAt)
	if err != nil {
		return inventaire.Facture{}, err
	}
	f.Fournisseur = fournisseur.String
	f.Numero = numero.String
	f.DateFacture = timePtr(date)
	return f, nil
}

func scanFactureLigne(row rowScanner) (inventaire.FactureLigne, error) {
	var (
		l         inventaire.FactureLigne
		articleID sql.NullInt64
	)
	err := row.Scan(&l.ID, &l.FactureID, &articleID, &l.Designation, &l.Quantite, &l.PrixUnitaire)
	if err != nil {
		return inventaire.FactureLigne{}, err
	}
	l.ArticleID = int64Ptr(articleID)
	return l, nil
}

// CreateFacture writes the invoice and its lines in one transaction.
func (s *Store) CreateFacture(ctx context.Context, f inventaire.Facture) (inventaire.Facture, error) {
	lignes := f.Lignes
	f.Lignes = nil
	f.CreatedAt = time.Now().UTC()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO facture (fournisseur, numero, date_facture, montant_total, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, f.Fournisseur, f.Numero, f.DateFacture, f.MontantTotal, f.CreatedAt).Scan(&f.ID)
		if err != nil {
			return err
		}
		for _, l := range lignes {
			l.FactureID = f.ID
			err := tx.QueryRowContext(ctx, `
				INSERT INTO facture_ligne (facture_id, article_id, designation, quantite, prix_unitaire)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, l.FactureID, l.ArticleID, l.Designation, l.Quantite, l.PrixUnitaire).Scan(&l.ID)
			if err != nil {
				return err
			}
			f.Lignes = append(f.Lignes, l)
		}
		return nil
	})
	if err != nil {
		return inventaire.Facture{}, err
	}
	return f, nil
}

func (s *Store) GetFacture(ctx context.Context, id int64) (inventaire.Facture, error) {
	f, err := scanFacture(s.db.QueryRowContext(ctx, `
		SELECT id, fournisseur, numero, date_facture, montant_total, created_at
		FROM facture
		WHERE id = $1
	`, id))
	if err != nil {
		return inventaire.Facture{}, err
	}
	f.Lignes, err = s.ListFactureLignes(ctx, id)
	if err != nil {
		return inventaire.Facture{}, err
	}
	return f, nil
}

// ListFactures returns invoice heads only; lines come with GetFacture.
func (s *Store) ListFactures(ctx context.Context) ([]inventaire.Facture, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fournisseur, numero, date_facture, montant_total, created_at
		FROM facture
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]inventaire.Facture, 0)
	for rows.Next() {
		f, err := scanFacture(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (s *Store) DeleteFacture(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM facture_ligne WHERE facture_id = $1`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM facture WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func (s *Store) CreateFactureLigne(ctx context.Context, l inventaire.FactureLigne) (inventaire.FactureLigne, error) {
	ok, err := rowExists(ctx, s.db, `SELECT COUNT(*) FROM facture WHERE id = $1`, l.FactureID)
	if err != nil {
		return inventaire.FactureLigne{}, err
	}
	if !ok {
		return inventaire.FactureLigne{}, sql.ErrNoRows
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO facture_ligne (facture_id, article_id, designation, quantite, prix_unitaire)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, l.FactureID, l.ArticleID, l.Designation, l.Quantite, l.PrixUnitaire).Scan(&l.ID)
	if err != nil {
		return inventaire.FactureLigne{}, err
	}
	return l, nil
}

func (s *Store) GetFactureLigne(ctx context.Context, id int64) (inventaire.FactureLigne, error) {
	return scanFactureLigne(s.db.QueryRowContext(ctx, `
		SELECT id, facture_id, article_id, designation, quantite, prix_unitaire
		FROM facture_ligne
		WHERE id = $1
	`, id))
}

func (s *Store) ListFactureLignes(ctx context.Context, factureID int64) ([]inventaire.FactureLigne, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, facture_id, article_id, designation, quantite, prix_unitaire
		FROM facture_ligne
		WHERE $1 = 0 OR facture_id = $1
		ORDER BY id
	`, factureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventaire.FactureLigne
	for rows.Next() {
		l, err := scanFactureLigne(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (s *Store) DeleteFactureLigne(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM facture_ligne WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanMateriel(row rowScanner) (inventaire.Materiel, error) {
	var (
		m            inventaire.Materiel
		reference    sql.NullString
		localisation sql.NullString
		notes        sql.NullString
	)
	err := row.Scan(&m.ID, &m.Nom, &reference, &m.Etat, &localisation, &m.Quantite, &notes, &m.CreatedAt)
	if err != nil {
		return inventaire.Materiel{}, err
	}
	m.Reference = reference.String
	m.Localisation = localisation.String
	m.Notes = notes.String
	return m, nil
}

func (s *Store) CreateMateriel(ctx context.Context, m inventaire.Materiel) (inventaire.Materiel, error) {
	m.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO materiel (nom, reference, etat, localisation, quantite, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, m.Nom, m.Reference, m.Etat, m.Localisation, m.Quantite, m.Notes, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return inventaire.Materiel{}, err
	}
	return m, nil
}

func (s *Store) UpdateMateriel(ctx context.Context, m inventaire.Materiel) (inventaire.Materiel, error) {
	existing, err := s.GetMateriel(ctx, m.ID)
	if err != nil {
		return inventaire.Materiel{}, err
	}
	m.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE materiel
		SET nom = $2, reference = $3, etat = $4, localisation = $5, quantite = $6, notes = $7
		WHERE id = $1
	`, m.ID, m.Nom, m.Reference, m.Etat, m.Localisation, m.Quantite, m.Notes)
	if err != nil {
		return inventaire.Materiel{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return inventaire.Materiel{}, sql.ErrNoRows
	}
	return m, nil
}

func (s *Store) GetMateriel(ctx context.Context, id int64) (inventaire.Materiel, error) {
	return scanMateriel(s.db.QueryRowContext(ctx, `
		SELECT id, nom, reference, etat, localisation, quantite, notes, created_at
		FROM materiel
		WHERE id = $1
	`, id))
}

func (s *Store) ListMateriels(ctx context.Context) ([]inventaire.Materiel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, nom, reference, etat, localisation, quantite, notes, created_at
		FROM materiel
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]inventaire.Materiel, 0)
	for rows.Next() {
		m, err := scanMateriel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) DeleteMateriel(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM materiel WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
