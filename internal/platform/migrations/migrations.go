// Package migrations creates the base schema. Every statement is idempotent
// so Apply can run on every startup; older databases are then upgraded by
// the ensureschema package.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assogest/assogest/internal/platform/database"
)

// Statements returns the schema DDL for a dialect, in dependency order.
func Statements(dialect database.Dialect) []string {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if dialect == database.Postgres {
		pk = "SERIAL PRIMARY KEY"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id ` + pk + `,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			nom VARCHAR(120),
			role VARCHAR(50),
			secteur VARCHAR(100),
			actif BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS roles (
			id ` + pk + `,
			name VARCHAR(50) NOT NULL UNIQUE,
			description VARCHAR(255)
		)`,
		`CREATE TABLE IF NOT EXISTS permissions (
			id ` + pk + `,
			code VARCHAR(100) NOT NULL UNIQUE,
			label VARCHAR(200) NOT NULL DEFAULT '',
			category VARCHAR(100) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id INTEGER NOT NULL REFERENCES users(id),
			role_id INTEGER NOT NULL REFERENCES roles(id),
			PRIMARY KEY (user_id, role_id)
		)`,
		`CREATE TABLE IF NOT EXISTS role_permissions (
			role_id INTEGER NOT NULL REFERENCES roles(id),
			permission_id INTEGER NOT NULL REFERENCES permissions(id),
			PRIMARY KEY (role_id, permission_id)
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id ` + pk + `,
			token_hash VARCHAR(64) NOT NULL UNIQUE,
			user_id INTEGER NOT NULL REFERENCES users(id),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quartier (
			id ` + pk + `,
			nom VARCHAR(120) NOT NULL UNIQUE,
			ville VARCHAR(100)
		)`,
		`CREATE TABLE IF NOT EXISTS participant (
			id ` + pk + `,
			nom VARCHAR(120) NOT NULL,
			prenom VARCHAR(120),
			date_naissance DATE,
			telephone VARCHAR(30),
			email VARCHAR(255),
			adresse VARCHAR(255),
			ville VARCHAR(100),
			quartier_id INTEGER REFERENCES quartier(id),
			sexe VARCHAR(20),
			type_public VARCHAR(50),
			signature_path VARCHAR(255),
			notes TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS subvention (
			id ` + pk + `,
			nom VARCHAR(150) NOT NULL,
			financeur VARCHAR(150),
			annee INTEGER,
			montant NUMERIC(12,2) NOT NULL DEFAULT 0,
			notes TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ligne_budget (
			id ` + pk + `,
			subvention_id INTEGER NOT NULL REFERENCES subvention(id),
			intitule VARCHAR(200) NOT NULL,
			montant_prevu NUMERIC(12,2) NOT NULL DEFAULT 0,
			nature VARCHAR(10) NOT NULL DEFAULT 'charge',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS projet (
			id ` + pk + `,
			nom VARCHAR(200) NOT NULL,
			description TEXT,
			annee INTEGER,
			statut VARCHAR(30) NOT NULL DEFAULT 'en_cours',
			budget_global NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS charge_projet (
			id ` + pk + `,
			projet_id INTEGER NOT NULL REFERENCES projet(id),
			intitule VARCHAR(200) NOT NULL,
			montant_prevu NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS facture (
			id ` + pk + `,
			fournisseur VARCHAR(150),
			numero VARCHAR(50),
			date_facture DATE,
			montant_total NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS article (
			id ` + pk + `,
			nom VARCHAR(200) NOT NULL,
			categorie VARCHAR(100),
			unite VARCHAR(20),
			stock NUMERIC(10,2) NOT NULL DEFAULT 0,
			seuil_alerte NUMERIC(10,2),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS facture_ligne (
			id ` + pk + `,
			facture_id INTEGER NOT NULL REFERENCES facture(id),
			article_id INTEGER REFERENCES article(id),
			designation VARCHAR(200) NOT NULL,
			quantite NUMERIC(10,2) NOT NULL DEFAULT 1,
			prix_unitaire NUMERIC(12,2) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS depense (
			id ` + pk + `,
			ligne_budget_id INTEGER REFERENCES ligne_budget(id),
			charge_projet_id INTEGER REFERENCES charge_projet(id),
			libelle VARCHAR(200) NOT NULL,
			montant NUMERIC(12,2) NOT NULL DEFAULT 0,
			date_depense DATE,
			facture_ligne_id INTEGER REFERENCES facture_ligne(id),
			facture_quantite INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS atelier_activite (
			id ` + pk + `,
			nom VARCHAR(200) NOT NULL,
			secteur VARCHAR(100),
			animateur VARCHAR(120),
			lieu VARCHAR(150),
			description TEXT,
			external_ref VARCHAR(100),
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS session_activite (
			id ` + pk + `,
			atelier_id INTEGER NOT NULL REFERENCES atelier_activite(id),
			date_session DATE NOT NULL,
			heure_debut VARCHAR(5),
			heure_fin VARCHAR(5),
			notes TEXT,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_at TIMESTAMP,
			kiosk_open BOOLEAN NOT NULL DEFAULT FALSE,
			kiosk_pin VARCHAR(10),
			kiosk_token VARCHAR(64),
			kiosk_opened_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS presence_activite (
			id ` + pk + `,
			session_id INTEGER NOT NULL REFERENCES session_activite(id),
			participant_id INTEGER NOT NULL REFERENCES participant(id),
			mode VARCHAR(20) NOT NULL DEFAULT 'manuel',
			signed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS archive_emargement (
			id ` + pk + `,
			session_id INTEGER,
			atelier_nom VARCHAR(200),
			date_session DATE,
			payload TEXT,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS materiel (
			id ` + pk + `,
			nom VARCHAR(200) NOT NULL,
			reference VARCHAR(100),
			etat VARCHAR(30) NOT NULL DEFAULT 'bon',
			localisation VARCHAR(150),
			quantite INTEGER NOT NULL DEFAULT 1,
			notes TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS fiche_pedagogique (
			id ` + pk + `,
			titre VARCHAR(200) NOT NULL,
			secteur VARCHAR(100),
			atelier_id INTEGER REFERENCES atelier_activite(id),
			objectifs TEXT,
			contenu TEXT,
			auteur_id INTEGER REFERENCES users(id),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id ` + pk + `,
			at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			user_email VARCHAR(255),
			method VARCHAR(10),
			path VARCHAR(255),
			status INTEGER,
			trace_id VARCHAR(64),
			detail TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_uq_presence_session_participant ON presence_activite(session_id, participant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_ligne_budget_subvention ON ligne_budget(subvention_id)`,
		`CREATE INDEX IF NOT EXISTS idx_depense_ligne ON depense(ligne_budget_id)`,
		`CREATE INDEX IF NOT EXISTS idx_depense_charge ON depense(charge_projet_id)`,
		`CREATE INDEX IF NOT EXISTS idx_session_activite_atelier ON session_activite(atelier_id)`,
		`CREATE INDEX IF NOT EXISTS idx_presence_session ON presence_activite(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_participant_quartier ON participant(quartier_id)`,
		`CREATE INDEX IF NOT EXISTS idx_facture_ligne_facture ON facture_ligne(facture_id)`,
		`CREATE INDEX IF NOT EXISTS idx_atelier_external_ref ON atelier_activite(external_ref)`,
	}
}

// Apply executes the schema DDL. Tables that already exist are left alone.
func Apply(ctx context.Context, db *sql.DB, dialect database.Dialect) error {
	for _, stmt := range Statements(dialect) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
