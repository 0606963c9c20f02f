package activite

import "time"

// Attendance modes.
const (
	ModeManuel = "manuel"
	ModeKiosk  = "kiosk"
)

// Atelier is a recurring workshop. Deletion is soft so attendance history
// stays queryable until the purge job runs.
type Atelier struct {
	ID          int64      `json:"id"`
	Nom         string     `json:"nom"`
	Secteur     string     `json:"secteur,omitempty"`
	Animateur   string     `json:"animateur,omitempty"`
	Lieu        string     `json:"lieu,omitempty"`
	Description string     `json:"description,omitempty"`
	ExternalRef string     `json:"external_ref,omitempty"`
	IsDeleted   bool       `json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Session is one dated occurrence of a workshop. The kiosk fields govern
// the self-service sign-in devices: while open, a session exposes a short
// PIN for the room and an opaque token for the device URL.
type Session struct {
	ID            int64      `json:"id"`
	AtelierID     int64      `json:"atelier_id"`
	DateSession   time.Time  `json:"date_session"`
	HeureDebut    string     `json:"heure_debut,omitempty"`
	HeureFin      string     `json:"heure_fin,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	IsDeleted     bool       `json:"is_deleted"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	KioskOpen     bool       `json:"kiosk_open"`
	KioskPIN      string     `json:"kiosk_pin,omitempty"`
	KioskToken    string     `json:"kiosk_token,omitempty"`
	KioskOpenedAt *time.Time `json:"kiosk_opened_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Presence is one participant signed into one session. The database holds
// a unique index on (session, participant).
type Presence struct {
	ID            int64      `json:"id"`
	SessionID     int64      `json:"session_id"`
	ParticipantID int64      `json:"participant_id"`
	Mode          string     `json:"mode"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Archive is a frozen attendance sheet kept after its session is purged.
// Payload is the JSON snapshot of the sheet at archive time.
type Archive struct {
	ID          int64      `json:"id"`
	SessionID   *int64     `json:"session_id,omitempty"`
	AtelierNom  string     `json:"atelier_nom,omitempty"`
	DateSession *time.Time `json:"date_session,omitempty"`
	Payload     string     `json:"payload,omitempty"`
	IsDeleted   bool       `json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
