package sqlstore

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/assogest/assogest/internal/app/domain/reporting"
)

// The reporting methods push the grouping into the database through sqlx.
// Sums over child tables go through correlated subqueries rather than
// joins so one aggregate cannot fan out another.

type subventionSyntheseRow struct {
	SubventionID       int64   `db:"subvention_id"`
	Nom                string  `db:"nom"`
	Annee              int     `db:"annee"`
	Montant            float64 `db:"montant"`
	TotalChargesPrevu  float64 `db:"total_charges_prevu"`
	TotalProduitsPrevu float64 `db:"total_produits_prevu"`
	TotalDepense       float64 `db:"total_depense"`
}

func (s *Store) BudgetSynthese(ctx context.Context, annee int) (reporting.BudgetSynthese, error) {
	var rows []subventionSyntheseRow
	err := s.sx.SelectContext(ctx, &rows, `
		SELECT s.id AS subvention_id,
		       s.nom,
		       COALESCE(s.annee, 0) AS annee,
		       s.montant,
		       COALESCE((SELECT SUM(l.montant_prevu) FROM ligne_budget l WHERE l.subvention_id = s.id AND l.nature <> 'produit'), 0) AS total_charges_prevu,
		       COALESCE((SELECT SUM(l.montant_prevu) FROM ligne_budget l WHERE l.subvention_id = s.id AND l.nature = 'produit'), 0) AS total_produits_prevu,
		       COALESCE((SELECT SUM(d.montant) FROM depense d JOIN ligne_budget l ON l.id = d.ligne_budget_id WHERE l.subvention_id = s.id), 0) AS total_depense
		FROM subvention s
		WHERE $1 = 0 OR s.annee = $1
		ORDER BY s.id
	`, annee)
	if err != nil {
		return reporting.BudgetSynthese{}, err
	}

	res := reporting.BudgetSynthese{Annee: annee, Subventions: make([]reporting.SubventionSynthese, 0, len(rows))}
	for _, r := range rows {
		synth := reporting.SubventionSynthese{
			SubventionID:       r.SubventionID,
			Nom:                r.Nom,
			Annee:              r.Annee,
			Montant:            r.Montant,
			TotalChargesPrevu:  r.TotalChargesPrevu,
			TotalProduitsPrevu: r.TotalProduitsPrevu,
			TotalDepense:       r.TotalDepense,
			Reste:              r.Montant - r.TotalDepense,
		}
		res.Subventions = append(res.Subventions, synth)
		res.TotalMontant += synth.Montant
		res.TotalDepense += synth.TotalDepense
		res.TotalReste += synth.Reste
	}
	return res, nil
}

type projetSyntheseRow struct {
	ProjetID          int64   `db:"projet_id"`
	Nom               string  `db:"nom"`
	Statut            string  `db:"statut"`
	BudgetGlobal      float64 `db:"budget_global"`
	TotalChargesPrevu float64 `db:"total_charges_prevu"`
	TotalDepense      float64 `db:"total_depense"`
}

func (s *Store) ProjetSynthese(ctx context.Context, projetID int64) (reporting.ProjetSynthese, error) {
	var r projetSyntheseRow
	err := s.sx.GetContext(ctx, &r, `
		SELECT p.id AS projet_id,
		       p.nom,
		       p.statut,
		       p.budget_global,
		       COALESCE((SELECT SUM(c.montant_prevu) FROM charge_projet c WHERE c.projet_id = p.id), 0) AS total_charges_prevu,
		       COALESCE((SELECT SUM(d.montant) FROM depense d JOIN charge_projet c ON c.id = d.charge_projet_id WHERE c.projet_id = p.id), 0) AS total_depense
		FROM projet p
		WHERE p.id = $1
	`, projetID)
	if err != nil {
		return reporting.ProjetSynthese{}, err
	}
	return reporting.ProjetSynthese{
		ProjetID:          r.ProjetID,
		Nom:               r.Nom,
		Statut:            r.Statut,
		BudgetGlobal:      r.BudgetGlobal,
		TotalChargesPrevu: r.TotalChargesPrevu,
		TotalDepense:      r.TotalDepense,
		Reste:             r.BudgetGlobal - r.TotalDepense,
	}, nil
}

type dashboardRow struct {
	Participants      int     `db:"participants"`
	AteliersActifs    int     `db:"ateliers_actifs"`
	SessionsAVenir    int     `db:"sessions_a_venir"`
	DepensesAnnee     float64 `db:"depenses_annee"`
	SubventionsAnnee  float64 `db:"subventions_annee"`
	ArticlesSousSeuil int     `db:"articles_sous_seuil"`
}

func (s *Store) Dashboard(ctx context.Context, annee int) (reporting.Dashboard, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var r dashboardRow
	err := s.sx.GetContext(ctx, &r, `
		SELECT
			(SELECT COUNT(*) FROM participant) AS participants,
			(SELECT COUNT(*) FROM atelier_activite WHERE is_deleted = FALSE) AS ateliers_actifs,
			(SELECT COUNT(*) FROM session_activite WHERE is_deleted = FALSE AND date_session >= $1) AS sessions_a_venir,
			(SELECT COALESCE(SUM(montant), 0) FROM depense WHERE $2 = 0 OR `+s.yearExpr("COALESCE(date_depense, created_at)")+` = $2) AS depenses_annee,
			(SELECT COALESCE(SUM(montant), 0) FROM subvention WHERE $2 = 0 OR annee = $2) AS subventions_annee,
			(SELECT COUNT(*) FROM article WHERE seuil_alerte > 0 AND stock <= seuil_alerte) AS articles_sous_seuil
	`, today, annee)
	if err != nil {
		return reporting.Dashboard{}, err
	}
	return reporting.Dashboard{
		Participants:      r.Participants,
		AteliersActifs:    r.AteliersActifs,
		SessionsAVenir:    r.SessionsAVenir,
		DepensesAnnee:     r.DepensesAnnee,
		SubventionsAnnee:  r.SubventionsAnnee,
		ArticlesSousSeuil: r.ArticlesSousSeuil,
	}, nil
}

type atelierStatsRow struct {
	AtelierID           int64  `db:"atelier_id"`
	Nom                 string `db:"nom"`
	Secteur             string `db:"secteur"`
	Sessions            int    `db:"sessions"`
	Presences           int    `db:"presences"`
	ParticipantsUniques int    `db:"participants_uniques"`
}

func (s *Store) StatsPresence(ctx context.Context, annee int) (reporting.StatsPresence, error) {
	var rows []atelierStatsRow
	err := s.sx.SelectContext(ctx, &rows, `
		SELECT a.id AS atelier_id,
		       a.nom,
		       COALESCE(a.secteur, '') AS secteur,
		       COUNT(DISTINCT se.id) AS sessions,
		       COUNT(p.id) AS presences,
		       COUNT(DISTINCT p.participant_id) AS participants_uniques
		FROM atelier_activite a
		LEFT JOIN session_activite se ON se.atelier_id = a.id AND se.is_deleted = FALSE AND ($1 = 0 OR `+s.yearExpr("se.date_session")+` = $1)
		LEFT JOIN presence_activite p ON p.session_id = se.id
		WHERE a.is_deleted = FALSE
		GROUP BY a.id, a.nom, a.secteur
		ORDER BY a.id
	`, annee)
	if err != nil {
		return reporting.StatsPresence{}, err
	}

	res := reporting.StatsPresence{Annee: annee, Ateliers: make([]reporting.AtelierStats, 0, len(rows))}
	for _, r := range rows {
		res.Ateliers = append(res.Ateliers, reporting.AtelierStats{
			AtelierID:           r.AtelierID,
			Nom:                 r.Nom,
			Secteur:             r.Secteur,
			Sessions:            r.Sessions,
			Presences:           r.Presences,
			ParticipantsUniques: r.ParticipantsUniques,
		})
		res.TotalPresences += r.Presences
	}
	return res, nil
}

type impactRow struct {
	ID         int64  `db:"id"`
	Sexe       string `db:"sexe"`
	TypePublic string `db:"type_public"`
	Ville      string `db:"ville"`
	Quartier   string `db:"quartier"`
}

// StatsImpact keeps soft-deleted workshops in scope: past attendance still
// counts for the funders even when the workshop is gone.
func (s *Store) StatsImpact(ctx context.Context, secteur string) (reporting.StatsImpact, error) {
	var rows []impactRow
	err := s.sx.SelectContext(ctx, &rows, `
		SELECT DISTINCT p.id,
		       COALESCE(p.sexe, '') AS sexe,
		       COALESCE(p.type_public, '') AS type_public,
		       COALESCE(p.ville, '') AS ville,
		       COALESCE(q.nom, '') AS quartier
		FROM participant p
		JOIN presence_activite pr ON pr.participant_id = p.id
		JOIN session_activite se ON se.id = pr.session_id
		JOIN atelier_activite a ON a.id = se.atelier_id
		LEFT JOIN quartier q ON q.id = p.quartier_id
		WHERE $1 = '' OR a.secteur = $1
	`, secteur)
	if err != nil {
		return reporting.StatsImpact{}, err
	}

	res := reporting.StatsImpact{Secteur: secteur, ParticipantsTotal: len(rows)}
	sexe := map[string]int{}
	typePublic := map[string]int{}
	quartier := map[string]int{}
	ville := map[string]int{}
	for _, r := range rows {
		sexe[r.Sexe]++
		typePublic[r.TypePublic]++
		quartier[r.Quartier]++
		ville[r.Ville]++
	}
	res.ParSexe = toRepartition(sexe)
	res.ParTypePublic = toRepartition(typePublic)
	res.ParQuartier = toRepartition(quartier)
	res.ParVille = toRepartition(ville)
	return res, nil
}

func toRepartition(buckets map[string]int) []reporting.Repartition {
	out := make([]reporting.Repartition, 0, len(buckets))
	for k, n := range buckets {
		out = append(out, reporting.Repartition{Cle: k, Nombre: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Nombre != out[j].Nombre {
			return out[i].Nombre > out[j].Nombre
		}
		return out[i].Cle < out[j].Cle
	})
	return out
}

type bilanLourdRow struct {
	AtelierID      int64  `db:"atelier_id"`
	AtelierNom     string `db:"atelier_nom"`
	ParticipantID  int64  `db:"participant_id"`
	ParticipantNom string `db:"participant_nom"`
	Presences      int    `db:"presences"`
}

func (s *Store) BilanLourd(ctx context.Context, annee int) ([]reporting.BilanLourdEntry, error) {
	var rows []bilanLourdRow
	err := s.sx.SelectContext(ctx, &rows, `
		SELECT se.atelier_id,
		       COALESCE(a.nom, '') AS atelier_nom,
		       pr.participant_id,
		       COALESCE(TRIM(p.nom || ' ' || COALESCE(p.prenom, '')), '') AS participant_nom,
		       COUNT(*) AS presences
		FROM presence_activite pr
		JOIN session_activite se ON se.id = pr.session_id
		LEFT JOIN atelier_activite a ON a.id = se.atelier_id
		LEFT JOIN participant p ON p.id = pr.participant_id
		WHERE se.is_deleted = FALSE AND ($1 = 0 OR `+s.yearExpr("se.date_session")+` = $1)
		GROUP BY se.atelier_id, a.nom, pr.participant_id, p.nom, p.prenom
		ORDER BY se.atelier_id, pr.participant_id
	`, annee)
	if err != nil {
		return nil, err
	}

	entries := make([]reporting.BilanLourdEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, reporting.BilanLourdEntry{
			AtelierID:      r.AtelierID,
			AtelierNom:     r.AtelierNom,
			ParticipantID:  r.ParticipantID,
			ParticipantNom: r.ParticipantNom,
			Presences:      r.Presences,
		})
	}
	return entries, nil
}

func (s *Store) CountArchives(ctx context.Context) (int, error) {
	var n int
	err := s.sx.GetContext(ctx, &n, `SELECT COUNT(*) FROM archive_emargement WHERE is_deleted = FALSE`)
	if err != nil {
		return 0, err
	}
	return n, nil
}

type issueRow struct {
	ID    int64  `db:"id"`
	Label string `db:"label"`
}

type doublonRow struct {
	ID      int64  `db:"id"`
	Nom     string `db:"nom"`
	Prenom  string `db:"prenom"`
	FirstID int64  `db:"first_id"`
}

// ControleIssues runs the data-quality queries. Legacy imports can leave
// expenses without parents or participants registered twice; the report
// surfaces them instead of silently skewing the aggregates.
func (s *Store) ControleIssues(ctx context.Context) ([]reporting.Issue, error) {
	var issues []reporting.Issue

	var orphans []issueRow
	err := s.sx.SelectContext(ctx, &orphans, `
		SELECT d.id, d.libelle AS label
		FROM depense d
		WHERE (d.ligne_budget_id IS NULL AND d.charge_projet_id IS NULL)
		   OR (d.ligne_budget_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM ligne_budget l WHERE l.id = d.ligne_budget_id))
		   OR (d.ligne_budget_id IS NULL AND d.charge_projet_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM charge_projet c WHERE c.id = d.charge_projet_id))
		ORDER BY d.id
	`)
	if err != nil {
		return nil, err
	}
	for _, r := range orphans {
		issues = append(issues, reporting.Issue{
			Type:     "depense_orpheline",
			Message:  "dépense sans ligne budgétaire ni charge projet: " + r.Label,
			EntityID: r.ID,
		})
	}

	var brokenLinks []issueRow
	err = s.sx.SelectContext(ctx, &brokenLinks, `
		SELECT d.id, d.libelle AS label
		FROM depense d
		WHERE d.facture_ligne_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM facture_ligne fl WHERE fl.id = d.facture_ligne_id)
		  AND ((d.ligne_budget_id IS NOT NULL AND EXISTS (SELECT 1 FROM ligne_budget l WHERE l.id = d.ligne_budget_id))
		    OR (d.ligne_budget_id IS NULL AND d.charge_projet_id IS NOT NULL AND EXISTS (SELECT 1 FROM charge_projet c WHERE c.id = d.charge_projet_id)))
		ORDER BY d.id
	`)
	if err != nil {
		return nil, err
	}
	for _, r := range brokenLinks {
		issues = append(issues, reporting.Issue{
			Type:     "facture_ligne_manquante",
			Message:  "dépense liée à une ligne de facture supprimée: " + r.Label,
			EntityID: r.ID,
		})
	}

	var overruns []issueRow
	err = s.sx.SelectContext(ctx, &overruns, `
		SELECT l.id, l.intitule AS label
		FROM ligne_budget l
		WHERE l.montant_prevu > 0
		  AND (SELECT COALESCE(SUM(d.montant), 0) FROM depense d WHERE d.ligne_budget_id = l.id) > l.montant_prevu
		ORDER BY l.id
	`)
	if err != nil {
		return nil, err
	}
	for _, r := range overruns {
		issues = append(issues, reporting.Issue{
			Type:     "ligne_depassement",
			Message:  "ligne budgétaire en dépassement: " + r.Label,
			EntityID: r.ID,
		})
	}

	// Equality on date_naissance must tolerate NULL on both sides; the
	// OR IS NULL pair is the form both dialects accept.
	var doublons []doublonRow
	err = s.sx.SelectContext(ctx, &doublons, `
		SELECT p.id,
		       p.nom,
		       COALESCE(p.prenom, '') AS prenom,
		       (SELECT MIN(p2.id) FROM participant p2
		        WHERE p2.nom = p.nom
		          AND COALESCE(p2.prenom, '') = COALESCE(p.prenom, '')
		          AND (p2.date_naissance = p.date_naissance OR (p2.date_naissance IS NULL AND p.date_naissance IS NULL))) AS first_id
		FROM participant p
		WHERE EXISTS (SELECT 1 FROM participant p2
		              WHERE p2.id < p.id
		                AND p2.nom = p.nom
		                AND COALESCE(p2.prenom, '') = COALESCE(p.prenom, '')
		                AND (p2.date_naissance = p.date_naissance OR (p2.date_naissance IS NULL AND p.date_naissance IS NULL)))
		ORDER BY p.id
	`)
	if err != nil {
		return nil, err
	}
	for _, r := range doublons {
		issues = append(issues, reporting.Issue{
			Type:     "participant_doublon",
			Message:  "participant en doublon probable de #" + strconv.FormatInt(r.FirstID, 10) + ": " + r.Nom + " " + r.Prenom,
			EntityID: r.ID,
		})
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Type != issues[j].Type {
			return issues[i].Type < issues[j].Type
		}
		return issues[i].EntityID < issues[j].EntityID
	})
	return issues, nil
}
