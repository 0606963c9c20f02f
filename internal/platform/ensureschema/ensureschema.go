// Package ensureschema upgrades databases created by older releases. It
// adds only what is missing (columns, indexes) so it can run on every
// startup, after the base schema and before RBAC bootstrap.
package ensureschema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assogest/assogest/internal/logging"
	"github.com/assogest/assogest/internal/platform/database"
)

// group is one upgrade shim, applied in its own transaction. A failing
// group is logged and skipped; the remaining groups still run.
type group struct {
	name  string
	stmts []string
}

// Apply inspects the schema and applies the missing upgrade shims.
func Apply(ctx context.Context, db *sql.DB, dialect database.Dialect, log *logging.Logger) error {
	if log == nil {
		log = logging.Nop()
	}

	groups, err := buildGroups(ctx, db, dialect)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}

	for _, g := range groups {
		if len(g.stmts) == 0 {
			continue
		}
		if err := runGroup(ctx, db, g); err != nil {
			log.Warn().Err(err).Str("group", g.name).Msg("schema upgrade group skipped")
			continue
		}
		log.Info().Str("group", g.name).Int("statements", len(g.stmts)).Msg("schema upgrade applied")
	}
	return nil
}

// column describes one conditional ALTER with its per-dialect DDL.
type column struct {
	name   string
	sqlite string
	pg     string
}

func missingColumns(ctx context.Context, db *sql.DB, dialect database.Dialect, table string, wanted []column) ([]string, error) {
	cols, err := database.Columns(ctx, db, dialect, table)
	if err != nil {
		return nil, err
	}
	var stmts []string
	for _, c := range wanted {
		if _, ok := cols[c.name]; ok {
			continue
		}
		if dialect == database.SQLite {
			stmts = append(stmts, c.sqlite)
		} else {
			stmts = append(stmts, c.pg)
		}
	}
	return stmts, nil
}

func buildGroups(ctx context.Context, db *sql.DB, dialect database.Dialect) ([]group, error) {
	var groups []group

	// 1) Finance: nature flag on budget lines.
	stmts, err := missingColumns(ctx, db, dialect, "ligne_budget", []column{{
		name:   "nature",
		sqlite: `ALTER TABLE ligne_budget ADD COLUMN nature VARCHAR(10) NOT NULL DEFAULT 'charge'`,
		pg:     `ALTER TABLE ligne_budget ADD COLUMN IF NOT EXISTS nature VARCHAR(10) NOT NULL DEFAULT 'charge'`,
	}})
	if err != nil {
		return nil, err
	}
	groups = append(groups, group{name: "ligne_budget.nature", stmts: stmts})

	// 2) Activities: kiosk and soft-delete columns on sessions.
	stmts, err = missingColumns(ctx, db, dialect, "session_activite", []column{
		{
			name:   "is_deleted",
			sqlite: `ALTER TABLE session_activite ADD COLUMN is_deleted BOOLEAN NOT NULL DEFAULT 0`,
			pg:     `ALTER TABLE session_activite ADD COLUMN IF NOT EXISTS is_deleted BOOLEAN NOT NULL DEFAULT FALSE`,
		},
		{
			name:   "deleted_at",
			sqlite: `ALTER TABLE session_activite ADD COLUMN deleted_at DATETIME`,
			pg:     `ALTER TABLE session_activite ADD COLUMN IF NOT EXISTS deleted_at TIMESTAMP`,
		},
		{
			name:   "kiosk_open",
			sqlite: `ALTER TABLE session_activite ADD COLUMN kiosk_open BOOLEAN NOT NULL DEFAULT 0`,
			pg:     `ALTER TABLE session_activite ADD COLUMN IF NOT EXISTS kiosk_open BOOLEAN NOT NULL DEFAULT FALSE`,
		},
		{
			name:   "kiosk_pin",
			sqlite: `ALTER TABLE session_activite ADD COLUMN kiosk_pin VARCHAR(10)`,
			pg:     `ALTER TABLE session_activite ADD COLUMN IF NOT EXISTS kiosk_pin VARCHAR(10)`,
		},
		{
			name:   "kiosk_token",
			sqlite: `ALTER TABLE session_activite ADD COLUMN kiosk_token VARCHAR(64)`,
			pg:     `ALTER TABLE session_activite ADD COLUMN IF NOT EXISTS kiosk_token VARCHAR(64)`,
		},
		{
			name:   "kiosk_opened_at",
			sqlite: `ALTER TABLE session_activite ADD COLUMN kiosk_opened_at DATETIME`,
			pg:     `ALTER TABLE session_activite ADD COLUMN IF NOT EXISTS kiosk_opened_at TIMESTAMP`,
		},
	})
	if err != nil {
		return nil, err
	}
	groups = append(groups, group{name: "session_activite.kiosk", stmts: stmts})

	// 3) Activities: soft delete on workshops.
	stmts, err = missingColumns(ctx, db, dialect, "atelier_activite", []column{
		{
			name:   "is_deleted",
			sqlite: `ALTER TABLE atelier_activite ADD COLUMN is_deleted BOOLEAN NOT NULL DEFAULT 0`,
			pg:     `ALTER TABLE atelier_activite ADD COLUMN IF NOT EXISTS is_deleted BOOLEAN NOT NULL DEFAULT FALSE`,
		},
		{
			name:   "deleted_at",
			sqlite: `ALTER TABLE atelier_activite ADD COLUMN deleted_at DATETIME`,
			pg:     `ALTER TABLE atelier_activite ADD COLUMN IF NOT EXISTS deleted_at TIMESTAMP`,
		},
	})
	if err != nil {
		return nil, err
	}
	groups = append(groups, group{name: "atelier_activite.soft_delete", stmts: stmts})

	// 4) Participants: kiosk signature and audience columns.
	stmts, err = missingColumns(ctx, db, dialect, "participant", []column{
		{
			name:   "signature_path",
			sqlite: `ALTER TABLE participant ADD COLUMN signature_path VARCHAR(255)`,
			pg:     `ALTER TABLE participant ADD COLUMN IF NOT EXISTS signature_path VARCHAR(255)`,
		},
		{
			name:   "sexe",
			sqlite: `ALTER TABLE participant ADD COLUMN sexe VARCHAR(20)`,
			pg:     `ALTER TABLE participant ADD COLUMN IF NOT EXISTS sexe VARCHAR(20)`,
		},
		{
			name:   "type_public",
			sqlite: `ALTER TABLE participant ADD COLUMN type_public VARCHAR(50)`,
			pg:     `ALTER TABLE participant ADD COLUMN IF NOT EXISTS type_public VARCHAR(50)`,
		},
		{
			name:   "ville",
			sqlite: `ALTER TABLE participant ADD COLUMN ville VARCHAR(100)`,
			pg:     `ALTER TABLE participant ADD COLUMN IF NOT EXISTS ville VARCHAR(100)`,
		},
		{
			name:   "quartier_id",
			sqlite: `ALTER TABLE participant ADD COLUMN quartier_id INTEGER`,
			pg:     `ALTER TABLE participant ADD COLUMN IF NOT EXISTS quartier_id INTEGER`,
		},
	})
	if err != nil {
		return nil, err
	}
	groups = append(groups, group{name: "participant.publics", stmts: stmts})

	// 5) Attendance archives: soft delete.
	stmts, err = missingColumns(ctx, db, dialect, "archive_emargement", []column{
		{
			name:   "is_deleted",
			sqlite: `ALTER TABLE archive_emargement ADD COLUMN is_deleted BOOLEAN NOT NULL DEFAULT 0`,
			pg:     `ALTER TABLE archive_emargement ADD COLUMN IF NOT EXISTS is_deleted BOOLEAN NOT NULL DEFAULT FALSE`,
		},
		{
			name:   "deleted_at",
			sqlite: `ALTER TABLE archive_emargement ADD COLUMN deleted_at DATETIME`,
			pg:     `ALTER TABLE archive_emargement ADD COLUMN IF NOT EXISTS deleted_at TIMESTAMP`,
		},
	})
	if err != nil {
		return nil, err
	}
	groups = append(groups, group{name: "archive_emargement.soft_delete", stmts: stmts})

	// 6) Unique index against duplicate sign-ins. Fails (and is skipped)
	// when legacy duplicates exist; those must be cleaned up by hand.
	groups = append(groups, group{name: "presence.unique_index", stmts: []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_uq_presence_session_participant ON presence_activite(session_id, participant_id)`,
	}})

	// 7) Finance: expenses linked to invoice lines and project charges.
	stmts, err = missingColumns(ctx, db, dialect, "depense", []column{
		{
			name:   "facture_ligne_id",
			sqlite: `ALTER TABLE depense ADD COLUMN facture_ligne_id INTEGER`,
			pg:     `ALTER TABLE depense ADD COLUMN IF NOT EXISTS facture_ligne_id INTEGER`,
		},
		{
			name:   "facture_quantite",
			sqlite: `ALTER TABLE depense ADD COLUMN facture_quantite INTEGER NOT NULL DEFAULT 1`,
			pg:     `ALTER TABLE depense ADD COLUMN IF NOT EXISTS facture_quantite INTEGER NOT NULL DEFAULT 1`,
		},
		{
			name:   "charge_projet_id",
			sqlite: `ALTER TABLE depense ADD COLUMN charge_projet_id INTEGER`,
			pg:     `ALTER TABLE depense ADD COLUMN IF NOT EXISTS charge_projet_id INTEGER`,
		},
	})
	if err != nil {
		return nil, err
	}
	if dialect == database.Postgres {
		drop, err := ligneBudgetNotNull(ctx, db)
		if err != nil {
			return nil, err
		}
		if drop {
			stmts = append(stmts, `ALTER TABLE depense ALTER COLUMN ligne_budget_id DROP NOT NULL`)
		}
	}
	groups = append(groups, group{name: "depense.invoice_links", stmts: stmts})

	return groups, nil
}

// ligneBudgetNotNull reports whether depense.ligne_budget_id still carries a
// NOT NULL constraint. Older schemas required every expense to sit on a
// budget line; project-charge expenses need it relaxed.
func ligneBudgetNotNull(ctx context.Context, db *sql.DB) (bool, error) {
	const q = `SELECT is_nullable FROM information_schema.columns WHERE table_schema = 'public' AND table_name = 'depense' AND column_name = 'ligne_budget_id'`
	var nullable string
	err := db.QueryRowContext(ctx, q).Scan(&nullable)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return nullable == "NO", nil
}

func runGroup(ctx context.Context, db *sql.DB, g group) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, stmt := range g.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
