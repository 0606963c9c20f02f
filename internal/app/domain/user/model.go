package user

import "time"

// User is a staff account. Role carries the legacy single-role label kept
// for older installs; authorization decisions go through the RBAC tables.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Nom          string    `json:"nom"`
	Role         string    `json:"role,omitempty"`
	Secteur      string    `json:"secteur,omitempty"`
	Actif        bool      `json:"actif"`
	CreatedAt    time.Time `json:"created_at"`
}

// Role groups permissions under a stable name.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Permission is a grantable action, coded as "module:action".
type Permission struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// Session is a server-side login record. Only the SHA-256 of the issued
// token is stored.
type Session struct {
	ID        int64
	TokenHash string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}
