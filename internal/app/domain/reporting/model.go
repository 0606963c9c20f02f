// Package reporting holds the read-only aggregate shapes served by the
// dashboard, stats and bilan endpoints.
package reporting

// SubventionSynthese is one funding envelope with its consumption.
type SubventionSynthese struct {
	SubventionID       int64   `json:"subvention_id"`
	Nom                string  `json:"nom"`
	Annee              int     `json:"annee,omitempty"`
	Montant            float64 `json:"montant"`
	TotalChargesPrevu  float64 `json:"total_charges_prevu"`
	TotalProduitsPrevu float64 `json:"total_produits_prevu"`
	TotalDepense       float64 `json:"total_depense"`
	Reste              float64 `json:"reste"`
}

// BudgetSynthese aggregates every subvention of a year. Annee zero means
// all years.
type BudgetSynthese struct {
	Annee        int                  `json:"annee,omitempty"`
	Subventions  []SubventionSynthese `json:"subventions"`
	TotalMontant float64              `json:"total_montant"`
	TotalDepense float64              `json:"total_depense"`
	TotalReste   float64              `json:"total_reste"`
}

// ProjetSynthese is one project with its planned charges and spending.
type ProjetSynthese struct {
	ProjetID          int64   `json:"projet_id"`
	Nom               string  `json:"nom"`
	Statut            string  `json:"statut"`
	BudgetGlobal      float64 `json:"budget_global"`
	TotalChargesPrevu float64 `json:"total_charges_prevu"`
	TotalDepense      float64 `json:"total_depense"`
	Reste             float64 `json:"reste"`
}

// Dashboard is the landing page summary.
type Dashboard struct {
	Participants      int     `json:"participants"`
	AteliersActifs    int     `json:"ateliers_actifs"`
	SessionsAVenir    int     `json:"sessions_a_venir"`
	DepensesAnnee     float64 `json:"depenses_annee"`
	SubventionsAnnee  float64 `json:"subventions_annee"`
	ArticlesSousSeuil int     `json:"articles_sous_seuil"`
}

// AtelierStats is attendance aggregated for one workshop.
type AtelierStats struct {
	AtelierID           int64  `json:"atelier_id"`
	Nom                 string `json:"nom"`
	Secteur             string `json:"secteur,omitempty"`
	Sessions            int    `json:"sessions"`
	Presences           int    `json:"presences"`
	ParticipantsUniques int    `json:"participants_uniques"`
}

// StatsPresence is the attendance report across workshops.
type StatsPresence struct {
	Annee          int            `json:"annee,omitempty"`
	Ateliers       []AtelierStats `json:"ateliers"`
	TotalPresences int            `json:"total_presences"`
}

// Repartition is one bucket of a breakdown, keyed by the grouped value.
type Repartition struct {
	Cle    string `json:"cle"`
	Nombre int    `json:"nombre"`
}

// StatsImpact breaks attending participants down by audience dimensions.
// Secteur restricts the report to workshops of one sector.
type StatsImpact struct {
	Secteur           string        `json:"secteur,omitempty"`
	ParticipantsTotal int           `json:"participants_total"`
	ParSexe           []Repartition `json:"par_sexe"`
	ParTypePublic     []Repartition `json:"par_type_public"`
	ParQuartier       []Repartition `json:"par_quartier"`
	ParVille          []Repartition `json:"par_ville"`
}

// BilanLourdEntry is one participant row of the heavy per-workshop grid.
type BilanLourdEntry struct {
	AtelierID      int64  `json:"atelier_id"`
	AtelierNom     string `json:"atelier_nom"`
	ParticipantID  int64  `json:"participant_id"`
	ParticipantNom string `json:"participant_nom"`
	Presences      int    `json:"presences"`
}

// Bilan is the annual report.
type Bilan struct {
	Annee    int            `json:"annee"`
	Budget   BudgetSynthese `json:"budget"`
	Activite StatsPresence  `json:"activite"`
	Archives int            `json:"archives"`
}

// Issue flags a record that needs attention in the data-quality report.
type Issue struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	EntityID int64  `json:"entity_id,omitempty"`
}
