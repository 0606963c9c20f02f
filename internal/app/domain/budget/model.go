package budget

import "time"

// Budget line natures. Charges are spending lines, produits are income.
const (
	NatureCharge  = "charge"
	NatureProduit = "produit"
)

// Subvention is a funding envelope granted by a financer for a year.
type Subvention struct {
	ID        int64     `json:"id"`
	Nom       string    `json:"nom"`
	Financeur string    `json:"financeur,omitempty"`
	Annee     int       `json:"annee,omitempty"`
	Montant   float64   `json:"montant"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LigneBudget is one budget line inside a subvention.
type LigneBudget struct {
	ID           int64     `json:"id"`
	SubventionID int64     `json:"subvention_id"`
	Intitule     string    `json:"intitule"`
	MontantPrevu float64   `json:"montant_prevu"`
	Nature       string    `json:"nature"`
	CreatedAt    time.Time `json:"created_at"`
}

// Depense is recorded spending. It sits on exactly one of LigneBudgetID or
// ChargeProjetID, and may reference the invoice line that justifies it.
type Depense struct {
	ID              int64      `json:"id"`
	LigneBudgetID   *int64     `json:"ligne_budget_id,omitempty"`
	ChargeProjetID  *int64     `json:"charge_projet_id,omitempty"`
	Libelle         string     `json:"libelle"`
	Montant         float64    `json:"montant"`
	DateDepense     *time.Time `json:"date_depense,omitempty"`
	FactureLigneID  *int64     `json:"facture_ligne_id,omitempty"`
	FactureQuantite int        `json:"facture_quantite"`
	CreatedAt       time.Time  `json:"created_at"`
}
