package memory

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/assogest/assogest/internal/app/domain/budget"
	"github.com/assogest/assogest/internal/app/domain/reporting"
)

// The reporting queries mirror the SQL store's aggregates: everything is
// computed under one read lock so a report is a consistent snapshot.

func depenseYear(created time.Time, date *time.Time) int {
	if date != nil {
		return date.Year()
	}
	return created.Year()
}

func (s *Store) BudgetSynthese(_ context.Context, annee int) (reporting.BudgetSynthese, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := reporting.BudgetSynthese{Annee: annee, Subventions: []reporting.SubventionSynthese{}}
	for _, sub := range s.subventions {
		if annee != 0 && sub.Annee != annee {
			continue
		}
		synth := reporting.SubventionSynthese{
			SubventionID: sub.ID,
			Nom:          sub.Nom,
			Annee:        sub.Annee,
			Montant:      sub.Montant,
		}
		for _, l := range s.lignes {
			if l.SubventionID != sub.ID {
				continue
			}
			if l.Nature == budget.NatureProduit {
				synth.TotalProduitsPrevu += l.MontantPrevu
			} else {
				synth.TotalChargesPrevu += l.MontantPrevu
			}
			for _, d := range s.depenses {
				if d.LigneBudgetID != nil && *d.LigneBudgetID == l.ID {
					synth.TotalDepense += d.Montant
				}
			}
		}
		synth.Reste = synth.Montant - synth.TotalDepense
		res.Subventions = append(res.Subventions, synth)
		res.TotalMontant += synth.Montant
		res.TotalDepense += synth.TotalDepense
		res.TotalReste += synth.Reste
	}
	sort.Slice(res.Subventions, func(i, j int) bool {
		return res.Subventions[i].SubventionID < res.Subventions[j].SubventionID
	})
	return res, nil
}

func (s *Store) ProjetSynthese(_ context.Context, projetID int64) (reporting.ProjetSynthese, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projets[projetID]
	if !ok {
		return reporting.ProjetSynthese{}, sql.ErrNoRows
	}
	synth := reporting.ProjetSynthese{
		ProjetID:     p.ID,
		Nom:          p.Nom,
		Statut:       p.Statut,
		BudgetGlobal: p.BudgetGlobal,
	}
	for _, c := range s.charges {
		if c.ProjetID != p.ID {
			continue
		}
		synth.TotalChargesPrevu += c.MontantPrevu
		for _, d := range s.depenses {
			if d.ChargeProjetID != nil && *d.ChargeProjetID == c.ID {
				synth.TotalDepense += d.Montant
			}
		}
	}
	synth.Reste = synth.BudgetGlobal - synth.TotalDepense
	return synth, nil
}

func (s *Store) Dashboard(_ context.Context, annee int) (reporting.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d reporting.Dashboard
	d.Participants = len(s.participants)
	for _, a := range s.ateliers {
		if !a.IsDeleted {
			d.AteliersActifs++
		}
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, sess := range s.sessions {
		if !sess.IsDeleted && !sess.DateSession.Before(today) {
			d.SessionsAVenir++
		}
	}
	for _, dep := range s.depenses {
		if annee == 0 || depenseYear(dep.CreatedAt, dep.DateDepense) == annee {
			d.DepensesAnnee += dep.Montant
		}
	}
	for _, sub := range s.subventions {
		if annee == 0 || sub.Annee == annee {
			d.SubventionsAnnee += sub.Montant
		}
	}
	for _, a := range s.articles {
		if a.SeuilAlerte > 0 && a.Stock <= a.SeuilAlerte {
			d.ArticlesSousSeuil++
		}
	}
	return d, nil
}

func (s *Store) StatsPresence(_ context.Context, annee int) (reporting.StatsPresence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := reporting.StatsPresence{Annee: annee, Ateliers: []reporting.AtelierStats{}}
	for _, a := range s.ateliers {
		if a.IsDeleted {
			continue
		}
		stats := reporting.AtelierStats{AtelierID: a.ID, Nom: a.Nom, Secteur: a.Secteur}
		unique := map[int64]bool{}
		for _, sess := range s.sessions {
			if sess.AtelierID != a.ID || sess.IsDeleted {
				continue
			}
			if annee != 0 && sess.DateSession.Year() != annee {
				continue
			}
			stats.Sessions++
			for _, p := range s.presences {
				if p.SessionID != sess.ID {
					continue
				}
				stats.Presences++
				unique[p.ParticipantID] = true
			}
		}
		stats.ParticipantsUniques = len(unique)
		res.Ateliers = append(res.Ateliers, stats)
		res.TotalPresences += stats.Presences
	}
	sort.Slice(res.Ateliers, func(i, j int) bool { return res.Ateliers[i].AtelierID < res.Ateliers[j].AtelierID })
	return res, nil
}

func (s *Store) StatsImpact(_ context.Context, secteur string) (reporting.StatsImpact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Participants who attended at least one session of the scope.
	attended := map[int64]bool{}
	for _, p := range s.presences {
		sess, ok := s.sessions[p.SessionID]
		if !ok {
			continue
		}
		atelier, ok := s.ateliers[sess.AtelierID]
		if !ok {
			continue
		}
		if secteur != "" && atelier.Secteur != secteur {
			continue
		}
		attended[p.ParticipantID] = true
	}

	res := reporting.StatsImpact{Secteur: secteur, ParticipantsTotal: len(attended)}
	sexe := map[string]int{}
	typePublic := map[string]int{}
	quartier := map[string]int{}
	ville := map[string]int{}
	for id := range attended {
		p, ok := s.participants[id]
		if !ok {
			continue
		}
		sexe[p.Sexe]++
		typePublic[p.TypePublic]++
		ville[p.Ville]++
		name := ""
		if p.QuartierID != nil {
			if q, ok := s.quartiers[*p.QuartierID]; ok {
				name = q.Nom
			}
		}
		quartier[name]++
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

func (s *Store) BilanLourd(_ context.Context, annee int) ([]reporting.BilanLourdEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct{ atelierID, participantID int64 }
	counts := map[key]int{}
	for _, p := range s.presences {
		sess, ok := s.sessions[p.SessionID]
		if !ok || sess.IsDeleted {
			continue
		}
		if annee != 0 && sess.DateSession.Year() != annee {
			continue
		}
		counts[key{sess.AtelierID, p.ParticipantID}]++
	}

	entries := make([]reporting.BilanLourdEntry, 0, len(counts))
	for k, n := range counts {
		e := reporting.BilanLourdEntry{AtelierID: k.atelierID, ParticipantID: k.participantID, Presences: n}
		if a, ok := s.ateliers[k.atelierID]; ok {
			e.AtelierNom = a.Nom
		}
		if p, ok := s.participants[k.participantID]; ok {
			e.ParticipantNom = strings.TrimSpace(p.Nom + " " + p.Prenom)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AtelierID != entries[j].AtelierID {
			return entries[i].AtelierID < entries[j].AtelierID
		}
		return entries[i].ParticipantID < entries[j].ParticipantID
	})
	return entries, nil
}

func (s *Store) CountArchives(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.archives {
		if !a.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (s *Store) ControleIssues(_ context.Context) ([]reporting.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var issues []reporting.Issue

	// Expenses whose parent or invoice line vanished.
	for _, d := range s.depenses {
		orphan := false
		switch {
		case d.LigneBudgetID != nil:
			_, ok := s.lignes[*d.LigneBudgetID]
			orphan = !ok
		case d.ChargeProjetID != nil:
			_, ok := s.charges[*d.ChargeProjetID]
			orphan = !ok
		default:
			orphan = true
		}
		if orphan {
			issues = append(issues, reporting.Issue{
				Type:     "depense_orpheline",
				Message:  "dépense sans ligne budgétaire ni charge projet: " + d.Libelle,
				EntityID: d.ID,
			})
			continue
		}
		if d.FactureLigneID != nil {
			if _, ok := s.factureLignes[*d.FactureLigneID]; !ok {
				issues = append(issues, reporting.Issue{
					Type:     "facture_ligne_manquante",
					Message:  "dépense liée à une ligne de facture supprimée: " + d.Libelle,
					EntityID: d.ID,
				})
			}
		}
	}

	// Budget lines spent past their envelope.
	for _, l := range s.lignes {
		total := 0.0
		for _, d := range s.depenses {
			if d.LigneBudgetID != nil && *d.LigneBudgetID == l.ID {
				total += d.Montant
			}
		}
		if l.MontantPrevu > 0 && total > l.MontantPrevu {
			issues = append(issues, reporting.Issue{
				Type:     "ligne_depassement",
				Message:  "ligne budgétaire en dépassement: " + l.Intitule,
				EntityID: l.ID,
			})
		}
	}

	// Probable duplicate participants (same name and birth date).
	type identity struct {
		nom, prenom string
		naissance   string
	}
	seen := map[identity]int64{}
	ids := make([]int64, 0, len(s.participants))
	for id := range s.participants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		p := s.participants[id]
		key := identity{nom: p.Nom, prenom: p.Prenom}
		if p.DateNaissance != nil {
			key.naissance = p.DateNaissance.Format("2006-01-02")
		}
		if firstID, dup := seen[key]; dup {
			issues = append(issues, reporting.Issue{
				Type:     "participant_doublon",
				Message:  "participant en doublon probable de #" + strconv.FormatInt(firstID, 10) + ": " + p.Nom + " " + p.Prenom,
				EntityID: p.ID,
			})
			continue
		}
		seen[key] = p.ID
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Type != issues[j].Type {
			return issues[i].Type < issues[j].Type
		}
		return issues[i].EntityID < issues[j].EntityID
	})
	return issues, nil
}
