package inventaire

import "time"

// Equipment conditions.
const (
	EtatBon         = "bon"
	EtatUsage       = "usage"
	EtatHorsService = "hors_service"
)

// Article is a consumable stock item.
type Article struct {
	ID          int64     `json:"id"`
	Nom         string    `json:"nom"`
	Categorie   string    `json:"categorie,omitempty"`
	Unite       string    `json:"unite,omitempty"`
	Stock       float64   `json:"stock"`
	SeuilAlerte float64   `json:"seuil_alerte,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Facture is a supplier invoice.
type Facture struct {
	ID           int64          `json:"id"`
	Fournisseur  string         `json:"fournisseur,omitempty"`
	Numero       string         `json:"numero,omitempty"`
	DateFacture  *time.Time     `json:"date_facture,omitempty"`
	MontantTotal float64        `json:"montant_total"`
	CreatedAt    time.Time      `json:"created_at"`
	Lignes       []FactureLigne `json:"lignes,omitempty"`
}

// FactureLigne is one line of an invoice. Expenses can reference it to tie
// spending back to a delivery.
type FactureLigne struct {
	ID           int64   `json:"id"`
	FactureID    int64   `json:"facture_id"`
	ArticleID    *int64  `json:"article_id,omitempty"`
	Designation  string  `json:"designation"`
	Quantite     float64 `json:"quantite"`
	PrixUnitaire float64 `json:"prix_unitaire"`
}

// Materiel is a durable equipment item tracked separately from stock.
type Materiel struct {
	ID           int64     `json:"id"`
	Nom          string    `json:"nom"`
	Reference    string    `json:"reference,omitempty"`
	Etat         string    `json:"etat"`
	Localisation string    `json:"localisation,omitempty"`
	Quantite     int       `json:"quantite"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
