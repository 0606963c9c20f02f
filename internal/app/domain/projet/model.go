package projet

import "time"

// Project statuses.
const (
	StatutPrevu     = "prevu"
	StatutEnCours   = "en_cours"
	StatutTermine   = "termine"
	StatutAbandonne = "abandonne"
)

// Projet is a funded project (appel à projets) with its own charge lines.
type Projet struct {
	ID           int64     `json:"id"`
	Nom          string    `json:"nom"`
	Description  string    `json:"description,omitempty"`
	Annee        int       `json:"annee,omitempty"`
	Statut       string    `json:"statut"`
	BudgetGlobal float64   `json:"budget_global"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChargeProjet is a planned spending line of a project. Expenses attach to
// it the same way they attach to budget lines.
type ChargeProjet struct {
	ID           int64     `json:"id"`
	ProjetID     int64     `json:"projet_id"`
	Intitule     string    `json:"intitule"`
	MontantPrevu float64   `json:"montant_prevu"`
	CreatedAt    time.Time `json:"created_at"`
}
