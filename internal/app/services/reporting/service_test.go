package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/assogest/assogest/internal/app/domain/activite"
	"github.com/assogest/assogest/internal/app/domain/budget"
	"github.com/assogest/assogest/internal/app/domain/inventaire"
	"github.com/assogest/assogest/internal/app/domain/participant"
	"github.com/assogest/assogest/internal/app/domain/projet"
	"github.com/assogest/assogest/internal/app/storage/memory"
	"github.com/assogest/assogest/internal/logging"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

// seedActivity builds two workshops with attendance:
// Théâtre (jeunesse): 2 sessions in 2025, 3 presences by 2 participants.
// Couture (famille): 1 session in 2025, 1 presence.
func seedActivity(t *testing.T, store *memory.Store) (participants []participant.Participant) {
	t.Helper()
	ctx := context.Background()

	theatre, _ := store.CreateAtelier(ctx, activite.Atelier{Nom: "Théâtre", Secteur: "jeunesse"})
	couture, _ := store.CreateAtelier(ctx, activite.Atelier{Nom: "Couture", Secteur: "famille"})
	s1, _ := store.CreateSession(ctx, activite.Session{AtelierID: theatre.ID, DateSession: date(t, "2025-02-01")})
	s2, _ := store.CreateSession(ctx, activite.Session{AtelierID: theatre.ID, DateSession: date(t, "2025-02-08")})
	s3, _ := store.CreateSession(ctx, activite.Session{AtelierID: couture.ID, DateSession: date(t, "2025-03-01")})

	centre, _ := store.CreateQuartier(ctx, participant.Quartier{Nom: "Centre", Ville: "Lyon"})
	p1, _ := store.CreateParticipant(ctx, participant.Participant{Nom: "Martin", Prenom: "Léa", Sexe: "F", TypePublic: "enfant", Ville: "Lyon", QuartierID: &centre.ID})
	p2, _ := store.CreateParticipant(ctx, participant.Participant{Nom: "Diallo", Prenom: "Awa", Sexe: "M", TypePublic: "adulte", Ville: "Lyon"})
	p3, _ := store.CreateParticipant(ctx, participant.Participant{Nom: "Bernard", Prenom: "Zoé", Sexe: "F", TypePublic: "enfant", Ville: "Villeurbanne", QuartierID: &centre.ID})

	for _, pair := range []struct{ sess, part int64 }{
		{s1.ID, p1.ID}, {s1.ID, p2.ID}, {s2.ID, p1.ID}, {s3.ID, p3.ID},
	} {
		if _, err := store.CreatePresence(ctx, activite.Presence{SessionID: pair.sess, ParticipantID: pair.part, Mode: activite.ModeManuel}); err != nil {
			t.Fatalf("create presence: %v", err)
		}
	}
	return []participant.Participant{p1, p2, p3}
}

func TestBudgetSynthese(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, logging.Nop())

	caf, _ := store.CreateSubvention(ctx, budget.Subvention{Nom: "CAF", Annee: 2025, Montant: 10000})
	store.CreateSubvention(ctx, budget.Subvention{Nom: "Ville", Annee: 2024, Montant: 5000})
	l1, _ := store.CreateLigneBudget(ctx, budget.LigneBudget{SubventionID: caf.ID, Intitule: "Fournitures", Nature: budget.NatureCharge, MontantPrevu: 4000})
	store.CreateLigneBudget(ctx, budget.LigneBudget{SubventionID: caf.ID, Intitule: "Adhésions", Nature: budget.NatureProduit, MontantPrevu: 2000})
	store.CreateDepense(ctx, budget.Depense{LigneBudgetID: &l1.ID, Libelle: "Papier", Montant: 600})
	store.CreateDepense(ctx, budget.Depense{LigneBudgetID: &l1.ID, Libelle: "Peinture", Montant: 500})

	synth, err := svc.BudgetSynthese(ctx, 2025)
	if err != nil {
		t.Fatalf("synthese: %v", err)
	}
	if len(synth.Subventions) != 1 {
		t.Fatalf("expected 1 subvention for 2025, got %d", len(synth.Subventions))
	}
	got := synth.Subventions[0]
	if got.TotalChargesPrevu != 4000 || got.TotalProduitsPrevu != 2000 {
		t.Fatalf("prevu totals wrong: %+v", got)
	}
	if got.TotalDepense != 1100 || got.Reste != 8900 {
		t.Fatalf("consumption wrong: %+v", got)
	}

	all, _ := svc.BudgetSynthese(ctx, 0)
	if len(all.Subventions) != 2 || all.TotalMontant != 15000 {
		t.Fatalf("all-year synthese wrong: %+v", all)
	}
}

func TestProjetSynthese(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, logging.Nop())

	p, _ := store.CreateProjet(ctx, projet.Projet{Nom: "Fête de quartier", Statut: projet.StatutEnCours, BudgetGlobal: 3000})
	c, _ := store.CreateChargeProjet(ctx, projet.ChargeProjet{ProjetID: p.ID, Intitule: "Animation", MontantPrevu: 1000})
	store.CreateDepense(ctx, budget.Depense{ChargeProjetID: &c.ID, Libelle: "Sono", Montant: 400})

	synth, err := svc.ProjetSynthese(ctx, p.ID)
	if err != nil {
		t.Fatalf("projet synthese: %v", err)
	}
	if synth.TotalChargesPrevu != 1000 || synth.TotalDepense != 400 || synth.Reste != 2600 {
		t.Fatalf("projet synthese wrong: %+v", synth)
	}
	if _, err := svc.ProjetSynthese(ctx, 999); err == nil {
		t.Fatal("expected error for unknown projet")
	}
}

func TestStatsWithSecteurScope(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, logging.Nop())
	seedActivity(t, store)

	stats, err := svc.Stats(ctx, 2025, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats.Ateliers) != 2 || stats.TotalPresences != 4 {
		t.Fatalf("unscoped stats wrong: %+v", stats)
	}
	theatre := stats.Ateliers[0]
	if theatre.Sessions != 2 || theatre.Presences != 3 || theatre.ParticipantsUniques != 2 {
		t.Fatalf("theatre stats wrong: %+v", theatre)
	}

	scoped, err := svc.Stats(ctx, 2025, "jeunesse")
	if err != nil {
		t.Fatalf("scoped stats: %v", err)
	}
	if len(scoped.Ateliers) != 1 || scoped.TotalPresences != 3 {
		t.Fatalf("secteur scope wrong: %+v", scoped)
	}

	empty, _ := svc.Stats(ctx, 2024, "")
	if empty.TotalPresences != 0 {
		t.Fatalf("2024 should be empty: %+v", empty)
	}
}

func TestStatsImpact(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, logging.Nop())
	seedActivity(t, store)

	impact, err := svc.StatsImpact(ctx, "")
	if err != nil {
		t.Fatalf("impact: %v", err)
	}
	if impact.ParticipantsTotal != 3 {
		t.Fatalf("expected 3 attending participants, got %d", impact.ParticipantsTotal)
	}
	if len(impact.ParSexe) != 2 || impact.ParSexe[0].Cle != "F" || impact.ParSexe[0].Nombre != 2 {
		t.Fatalf("par sexe wrong: %+v", impact.ParSexe)
	}
	if impact.ParQuartier[0].Cle != "Centre" || impact.ParQuartier[0].Nombre != 2 {
		t.Fatalf("par quartier wrong: %+v", impact.ParQuartier)
	}

	famille, err := svc.StatsImpact(ctx, "famille")
	if err != nil {
		t.Fatalf("scoped impact: %v", err)
	}
	if famille.ParticipantsTotal != 1 || famille.ParVille[0].Cle != "Villeurbanne" {
		t.Fatalf("famille impact wrong: %+v", famille)
	}
}

func TestDashboardAndBilan(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, logging.Nop())
	seedActivity(t, store)

	caf, _ := store.CreateSubvention(ctx, budget.Subvention{Nom: "CAF", Annee: 2025, Montant: 10000})
	l1, _ := store.CreateLigneBudget(ctx, budget.LigneBudget{SubventionID: caf.ID, Intitule: "Fournitures", Nature: budget.NatureCharge, MontantPrevu: 4000})
	when := date(t, "2025-04-10")
	store.CreateDepense(ctx, budget.Depense{LigneBudgetID: &l1.ID, Libelle: "Papier", Montant: 600, DateDepense: &when})
	store.CreateArticle(ctx, inventaire.Article{Nom: "Gouache", Stock: 1, SeuilAlerte: 4})

	// One upcoming session so the dashboard has something in the future.
	ateliers, _ := store.ListAteliers(ctx, false)
	store.CreateSession(ctx, activite.Session{AtelierID: ateliers[0].ID, DateSession: time.Now().UTC().Add(48 * time.Hour)})

	arch, _ := store.CreateArchive(ctx, activite.Archive{AtelierNom: "Théâtre"})
	store.CreateArchive(ctx, activite.Archive{AtelierNom: "Couture"})
	store.SoftDeleteArchive(ctx, arch.ID, time.Now().UTC())

	dash, err := svc.Dashboard(ctx, 2025)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Participants != 3 || dash.AteliersActifs != 2 {
		t.Fatalf("dashboard counts wrong: %+v", dash)
	}
	if dash.SessionsAVenir != 1 {
		t.Fatalf("expected 1 upcoming session, got %d", dash.SessionsAVenir)
	}
	if dash.DepensesAnnee != 600 || dash.SubventionsAnnee != 10000 || dash.ArticlesSousSeuil != 1 {
		t.Fatalf("dashboard budget wrong: %+v", dash)
	}

	bilan, err := svc.BilanAnnuel(ctx, 2025)
	if err != nil {
		t.Fatalf("bilan: %v", err)
	}
	if bilan.Annee != 2025 || bilan.Budget.TotalMontant != 10000 || bilan.Archives != 1 {
		t.Fatalf("bilan wrong: %+v", bilan)
	}
	if bilan.Activite.TotalPresences != 4 {
		t.Fatalf("bilan activite wrong: %+v", bilan.Activite)
	}
}

func TestBilanLourd(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, logging.Nop())
	parts := seedActivity(t, store)

	entries, err := svc.BilanLourd(ctx, 2025)
	if err != nil {
		t.Fatalf("bilan lourd: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 grid rows, got %d", len(entries))
	}
	first := entries[0]
	if first.AtelierNom != "Théâtre" || first.ParticipantID != parts[0].ID || first.Presences != 2 {
		t.Fatalf("first row wrong: %+v", first)
	}
}

func TestControle(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, logging.Nop())

	// Orphan expense: its budget line never existed.
	ghost := int64(9001)
	store.CreateDepense(ctx, budget.Depense{LigneBudgetID: &ghost, Libelle: "Fantôme", Montant: 10})

	// Over-spent line.
	caf, _ := store.CreateSubvention(ctx, budget.Subvention{Nom: "CAF", Annee: 2025, Montant: 1000})
	small, _ := store.CreateLigneBudget(ctx, budget.LigneBudget{SubventionID: caf.ID, Intitule: "Goûters", Nature: budget.NatureCharge, MontantPrevu: 100})
	store.CreateDepense(ctx, budget.Depense{LigneBudgetID: &small.ID, Libelle: "Brioches", Montant: 200})

	// Expense pointing at a vanished invoice line.
	missing := int64(9002)
	store.CreateDepense(ctx, budget.Depense{LigneBudgetID: &small.ID, Libelle: "Jus", Montant: 5, FactureLigneID: &missing})

	// Duplicate participant.
	born := date(t, "2012-05-03")
	store.CreateParticipant(ctx, participant.Participant{Nom: "Martin", Prenom: "Léa", DateNaissance: &born})
	store.CreateParticipant(ctx, participant.Participant{Nom: "Martin", Prenom: "Léa", DateNaissance: &born})

	issues, err := svc.Controle(ctx)
	if err != nil {
		t.Fatalf("controle: %v", err)
	}
	byType := map[string]int{}
	for _, issue := range issues {
		byType[issue.Type]++
	}
	want := map[string]int{
		"depense_orpheline":       1,
		"facture_ligne_manquante": 1,
		"ligne_depassement":       1,
		"participant_doublon":     1,
	}
	for typ, n := range want {
		if byType[typ] != n {
			t.Fatalf("expected %d %s issue(s), got %d (%+v)", n, typ, byType[typ], issues)
		}
	}
	if len(issues) != 4 {
		t.Fatalf("expected 4 issues, got %d", len(issues))
	}
}

type fakeChecker map[string]bool

func (f fakeChecker) Can(code string) bool { return f[code] }

func TestLauncher(t *testing.T) {
	svc := New(memory.New(), logging.Nop())

	tiles := svc.Launcher(fakeChecker{"dashboard:view": true, "stats:view": true})
	if len(tiles) != 14 {
		t.Fatalf("expected 14 tiles, got %d", len(tiles))
	}
	byCode := map[string]Tile{}
	for _, tile := range tiles {
		byCode[tile.Code] = tile
	}
	if !byCode["dashboard"].Allowed || !byCode["stats"].Allowed {
		t.Fatalf("granted tiles should be allowed: %+v", tiles)
	}
	if byCode["admin"].Allowed || byCode["budget"].Allowed {
		t.Fatalf("ungranted tiles should be refused: %+v", tiles)
	}

	for _, tile := range svc.Launcher(nil) {
		if tile.Allowed {
			t.Fatalf("nil principal should see no access: %+v", tile)
		}
	}
}
