package pedagogie

import "time"

// Fiche is a pedagogical sheet written by the animation team. It may be
// pinned to the workshop it was written for.
type Fiche struct {
	ID        int64     `json:"id"`
	Titre     string    `json:"titre"`
	Secteur   string    `json:"secteur,omitempty"`
	AtelierID *int64    `json:"atelier_id,omitempty"`
	Objectifs string    `json:"objectifs,omitempty"`
	Contenu   string    `json:"contenu,omitempty"`
	AuteurID  *int64    `json:"auteur_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
