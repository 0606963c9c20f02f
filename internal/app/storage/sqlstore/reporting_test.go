package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/assogest/assogest/internal/platform/database"
)

func TestBudgetSyntheseComputesReste(t *testing.T) {
	store, mock := newMock(t, database.Postgres)

	rows := sqlmock.NewRows([]string{
		"subvention_id", "nom", "annee", "montant",
		"total_charges_prevu", "total_produits_prevu", "total_depense",
	}).
		AddRow(int64(1), "CAF", 2025, 10000.0, 8000.0, 1000.0, 6500.0).
		AddRow(int64(2), "Ville", 2025, 4000.0, 4000.0, 0.0, 4200.0)

	mock.ExpectQuery("FROM subvention").
		WithArgs(2025).
		WillReturnRows(rows)

	res, err := store.BudgetSynthese(context.Background(), 2025)
	if err != nil {
		t.Fatalf("synthese: %v", err)
	}
	if len(res.Subventions) != 2 {
		t.Fatalf("subventions = %d, want 2", len(res.Subventions))
	}
	if res.Subventions[0].Reste != 3500 {
		t.Fatalf("reste = %v, want 3500", res.Subventions[0].Reste)
	}
	if res.Subventions[1].Reste != -200 {
		t.Fatalf("reste = %v, want -200 on overrun", res.Subventions[1].Reste)
	}
	if res.TotalMontant != 14000 || res.TotalDepense != 10700 || res.TotalReste != 3300 {
		t.Fatalf("totals = %v / %v / %v", res.TotalMontant, res.TotalDepense, res.TotalReste)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProjetSyntheseMissing(t *testing.T) {
	store, mock := newMock(t, database.Postgres)

	mock.ExpectQuery("FROM projet").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{
			"projet_id", "nom", "statut", "budget_global", "total_charges_prevu", "total_depense",
		}))

	_, err := store.ProjetSynthese(context.Background(), 9)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want ErrNoRows", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDashboardScalars(t *testing.T) {
	store, mock := newMock(t, database.Postgres)

	mock.ExpectQuery("EXTRACT").
		WithArgs(sqlmock.AnyArg(), 2025).
		WillReturnRows(sqlmock.NewRows([]string{
			"participants", "ateliers_actifs", "sessions_a_venir",
			"depenses_annee", "subventions_annee", "articles_sous_seuil",
		}).AddRow(120, 8, 3, 5400.5, 22000.0, 2))

	d, err := store.Dashboard(context.Background(), 2025)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Participants != 120 || d.AteliersActifs != 8 || d.SessionsAVenir != 3 {
		t.Fatalf("counts = %+v", d)
	}
	if d.DepensesAnnee != 5400.5 || d.SubventionsAnnee != 22000 || d.ArticlesSousSeuil != 2 {
		t.Fatalf("amounts = %+v", d)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStatsPresenceSumsTotal(t *testing.T) {
	store, mock := newMock(t, database.Postgres)

	rows := sqlmock.NewRows([]string{
		"atelier_id", "nom", "secteur", "sessions", "presences", "participants_uniques",
	}).
		AddRow(int64(1), "Théâtre", "jeunesse", 10, 84, 17).
		AddRow(int64(2), "Couture", "famille", 4, 31, 9).
		AddRow(int64(3), "Jardin", "", 0, 0, 0)

	mock.ExpectQuery("FROM atelier_activite").
		WithArgs(0).
		WillReturnRows(rows)

	res, err := store.StatsPresence(context.Background(), 0)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(res.Ateliers) != 3 {
		t.Fatalf("ateliers = %d, want 3", len(res.Ateliers))
	}
	if res.TotalPresences != 115 {
		t.Fatalf("total = %d, want 115", res.TotalPresences)
	}
	if res.Ateliers[2].Sessions != 0 {
		t.Fatal("workshop without sessions should still appear")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStatsImpactBucketsSorted(t *testing.T) {
	store, mock := newMock(t, database.Postgres)

	rows := sqlmock.NewRows([]string{"id", "sexe", "type_public", "ville", "quartier"}).
		AddRow(int64(1), "F", "jeune", "Lille", "Moulins").
		AddRow(int64(2), "F", "adulte", "Lille", "Moulins").
		AddRow(int64(3), "M", "jeune", "Roubaix", "")

	mock.ExpectQuery("FROM participant").
		WithArgs("jeunesse").
		WillReturnRows(rows)

	res, err := store.StatsImpact(context.Background(), "jeunesse")
	if err != nil {
		t.Fatalf("impact: %v", err)
	}
	if res.ParticipantsTotal != 3 {
		t.Fatalf("total = %d, want 3", res.ParticipantsTotal)
	}
	if res.ParSexe[0].Cle != "F" || res.ParSexe[0].Nombre != 2 {
		t.Fatalf("par_sexe = %+v", res.ParSexe)
	}
	if res.ParQuartier[0].Cle != "Moulins" || res.ParQuartier[0].Nombre != 2 {
		t.Fatalf("par_quartier = %+v", res.ParQuartier)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBilanLourdRows(t *testing.T) {
	store, mock := newMock(t, database.Postgres)

	rows := sqlmock.NewRows([]string{
		"atelier_id", "atelier_nom", "participant_id", "participant_nom", "presences",
	}).
		AddRow(int64(1), "Théâtre", int64(4), "Martin Paul", 6).
		AddRow(int64(1), "Théâtre", int64(5), "Durand Zoé", 2)

	mock.ExpectQuery("FROM presence_activite").
		WithArgs(2025).
		WillReturnRows(rows)

	entries, err := store.BilanLourd(context.Background(), 2025)
	if err != nil {
		t.Fatalf("bilan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].ParticipantNom != "Martin Paul" || entries[0].Presences != 6 {
		t.Fatalf("entry = %+v", entries[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCountArchives(t *testing.T) {
	store, mock := newMock(t, database.Postgres)

	mock.ExpectQuery("FROM archive_emargement").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	n, err := store.CountArchives(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 5 {
		t.Fatalf("n = %d, want 5", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestControleIssuesAssemblesAllChecks(t *testing.T) {
	store, mock := newMock(t, database.Postgres)

	mock.ExpectQuery("charge_projet_id IS NULL").
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).AddRow(int64(11), "Sortie piscine"))
	mock.ExpectQuery("facture_ligne_id IS NOT NULL").
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).AddRow(int64(12), "Gouache"))
	mock.ExpectQuery("FROM ligne_budget l").
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).AddRow(int64(3), "Alimentation"))
	mock.ExpectQuery("FROM participant p").
		WillReturnRows(sqlmock.NewRows([]string{"id", "nom", "prenom", "first_id"}).
			AddRow(int64(8), "Martin", "Paul", int64(2)))

	issues, err := store.ControleIssues(context.Background())
	if err != nil {
		t.Fatalf("controle: %v", err)
	}
	if len(issues) != 4 {
		t.Fatalf("issues = %d, want 4", len(issues))
	}
	wantTypes := []string{"depense_orpheline", "facture_ligne_manquante", "ligne_depassement", "participant_doublon"}
	for i, want := range wantTypes {
		if issues[i].Type != want {
			t.Fatalf("issues[%d].Type = %q, want %q", i, issues[i].Type, want)
		}
	}
	if !strings.Contains(issues[3].Message, "#2") {
		t.Fatalf("doublon message = %q, want reference to first id", issues[3].Message)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
