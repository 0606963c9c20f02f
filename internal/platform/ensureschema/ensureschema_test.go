package ensureschema

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/assogest/assogest/internal/logging"
	"github.com/assogest/assogest/internal/platform/database"
)

func expectColumns(mock sqlmock.Sqlmock, dialect database.Dialect, table string, cols ...string) {
	if dialect == database.SQLite {
		mock.ExpectQuery("sqlite_master").WithArgs(table).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		rows := sqlmock.NewRows([]string{"name"})
		for _, c := range cols {
			rows.AddRow(c)
		}
		mock.ExpectQuery("pragma_table_info").WithArgs(table).WillReturnRows(rows)
		return
	}
	mock.ExpectQuery("information_schema.tables").WithArgs(table).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	rows := sqlmock.NewRows([]string{"column_name"})
	for _, c := range cols {
		rows.AddRow(c)
	}
	mock.ExpectQuery("information_schema.columns WHERE table_schema = 'public' AND table_name = ..$").
		WithArgs(table).WillReturnRows(rows)
}

func TestApplyUpToDateSchemaOnlyCreatesIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	expectColumns(mock, database.Postgres, "ligne_budget", "nature")
	expectColumns(mock, database.Postgres, "session_activite",
		"is_deleted", "deleted_at", "kiosk_open", "kiosk_pin", "kiosk_token", "kiosk_opened_at")
	expectColumns(mock, database.Postgres, "atelier_activite", "is_deleted", "deleted_at")
	expectColumns(mock, database.Postgres, "participant",
		"signature_path", "sexe", "type_public", "ville", "quartier_id")
	expectColumns(mock, database.Postgres, "archive_emargement", "is_deleted", "deleted_at")
	expectColumns(mock, database.Postgres, "depense",
		"facture_ligne_id", "facture_quantite", "charge_projet_id")
	mock.ExpectQuery("is_nullable").
		WillReturnRows(sqlmock.NewRows([]string{"is_nullable"}).AddRow("YES"))

	mock.ExpectBegin()
	mock.ExpectExec("CREATE UNIQUE INDEX IF NOT EXISTS idx_uq_presence_session_participant").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := Apply(context.Background(), db, database.Postgres, logging.Nop()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplyAddsMissingColumnsSQLite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	// Budget line is missing the nature column; everything else is current.
	expectColumns(mock, database.SQLite, "ligne_budget", "id", "subvention_id")
	expectColumns(mock, database.SQLite, "session_activite",
		"is_deleted", "deleted_at", "kiosk_open", "kiosk_pin", "kiosk_token", "kiosk_opened_at")
	expectColumns(mock, database.SQLite, "atelier_activite", "is_deleted", "deleted_at")
	expectColumns(mock, database.SQLite, "participant",
		"signature_path", "sexe", "type_public", "ville", "quartier_id")
	expectColumns(mock, database.SQLite, "archive_emargement", "is_deleted", "deleted_at")
	expectColumns(mock, database.SQLite, "depense",
		"facture_ligne_id", "facture_quantite", "charge_projet_id")

	mock.ExpectBegin()
	mock.ExpectExec(`ALTER TABLE ligne_budget ADD COLUMN nature VARCHAR\(10\) NOT NULL DEFAULT 'charge'`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE UNIQUE INDEX IF NOT EXISTS idx_uq_presence_session_participant").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := Apply(context.Background(), db, database.SQLite, logging.Nop()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplyFailingGroupDoesNotBlockOthers(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	expectColumns(mock, database.SQLite, "ligne_budget", "id")
	expectColumns(mock, database.SQLite, "session_activite",
		"is_deleted", "deleted_at", "kiosk_open", "kiosk_pin", "kiosk_token", "kiosk_opened_at")
	expectColumns(mock, database.SQLite, "atelier_activite", "is_deleted", "deleted_at")
	expectColumns(mock, database.SQLite, "participant",
		"signature_path", "sexe", "type_public", "ville", "quartier_id")
	expectColumns(mock, database.SQLite, "archive_emargement", "is_deleted", "deleted_at")
	expectColumns(mock, database.SQLite, "depense",
		"facture_ligne_id", "facture_quantite", "charge_projet_id")

	// The nature shim fails and rolls back; the index group still runs.
	mock.ExpectBegin()
	mock.ExpectExec("ALTER TABLE ligne_budget ADD COLUMN nature").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE UNIQUE INDEX IF NOT EXISTS idx_uq_presence_session_participant").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := Apply(context.Background(), db, database.SQLite, logging.Nop()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
