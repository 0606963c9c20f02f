package participant

import "time"

// Participant is a person attending activities. SignaturePath points at the
// stored signature image captured by a kiosk, when there is one.
type Participant struct {
	ID            int64      `json:"id"`
	Nom           string     `json:"nom"`
	Prenom        string     `json:"prenom,omitempty"`
	DateNaissance *time.Time `json:"date_naissance,omitempty"`
	Telephone     string     `json:"telephone,omitempty"`
	Email         string     `json:"email,omitempty"`
	Adresse       string     `json:"adresse,omitempty"`
	Ville         string     `json:"ville,omitempty"`
	QuartierID    *int64     `json:"quartier_id,omitempty"`
	Sexe          string     `json:"sexe,omitempty"`
	TypePublic    string     `json:"type_public,omitempty"`
	SignaturePath string     `json:"signature_path,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Quartier is a city district used for impact statistics.
type Quartier struct {
	ID    int64  `json:"id"`
	Nom   string `json:"nom"`
	Ville string `json:"ville,omitempty"`
}
