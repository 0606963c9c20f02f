// Package activite manages workshops, their dated sessions, attendance
// sheets and the kiosk self sign-in flow. Deletions are soft so sheets stay
// recoverable until the retention purge.
package activite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/assogest/assogest/internal/app/domain/activite"
	"github.com/assogest/assogest/internal/app/metrics"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/logging"
)

var (
	// ErrDuplicatePresence reports a participant already signed into the session.
	ErrDuplicatePresence = errors.New("activite: participant already signed in")
	// ErrDeleted rejects writes against a soft-deleted record.
	ErrDeleted = errors.New("activite: record is deleted")
	// ErrKioskClosed rejects kiosk operations on a closed or unknown kiosk.
	ErrKioskClosed = errors.New("activite: kiosk closed")
	// ErrBadPIN rejects a kiosk close with the wrong PIN.
	ErrBadPIN = errors.New("activite: wrong PIN")
)

// Service owns the activity module.
type Service struct {
	store        storage.ActiviteStore
	participants storage.ParticipantStore
	hub          *Hub
	log          *logging.Logger
}

// New constructs the activity service. hub may be nil when no live feed is
// wanted (tests, CLI).
func New(store storage.ActiviteStore, participants storage.ParticipantStore, hub *Hub, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("activite")
	}
	return &Service{store: store, participants: participants, hub: hub, log: log}
}

// --- Ateliers ---

// CreateAtelier records a workshop.
func (s *Service) CreateAtelier(ctx context.Context, a activite.Atelier) (activite.Atelier, error) {
	a.Nom = strings.TrimSpace(a.Nom)
	if a.Nom == "" {
		return activite.Atelier{}, fmt.Errorf("nom is required")
	}
	created, err := s.store.CreateAtelier(ctx, a)
	if err != nil {
		return activite.Atelier{}, err
	}
	s.log.Info().Int64("atelier_id", created.ID).Str("nom", created.Nom).Msg("atelier created")
	return created, nil
}

// UpdateAtelier rewrites a workshop.
func (s *Service) UpdateAtelier(ctx context.Context, a activite.Atelier) (activite.Atelier, error) {
	a.Nom = strings.TrimSpace(a.Nom)
	if a.Nom == "" {
		return activite.Atelier{}, fmt.Errorf("nom is required")
	}
	return s.store.UpdateAtelier(ctx, a)
}

// GetAtelier returns one workshop, deleted or not.
func (s *Service) GetAtelier(ctx context.Context, id int64) (activite.Atelier, error) {
	return s.store.GetAtelier(ctx, id)
}

// ListAteliers returns workshops, optionally including soft-deleted ones.
func (s *Service) ListAteliers(ctx context.Context, includeDeleted bool) ([]activite.Atelier, error) {
	return s.store.ListAteliers(ctx, includeDeleted)
}

// DeleteAtelier soft-deletes a workshop and its remaining sessions.
func (s *Service) DeleteAtelier(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.store.SoftDeleteAtelier(ctx, id, now); err != nil {
		return err
	}
	sessions, err := s.store.ListSessions(ctx, id, false)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if err := s.store.SoftDeleteSession(ctx, sess.ID, now); err != nil {
			return err
		}
	}
	s.log.Info().Int64("atelier_id", id).Int("sessions", len(sessions)).Msg("atelier soft-deleted")
	return nil
}

// RestoreAtelier undoes a soft delete. Its sessions stay deleted and are
// restored one by one.
func (s *Service) RestoreAtelier(ctx context.Context, id int64) error {
	return s.store.RestoreAtelier(ctx, id)
}

// --- Sessions ---

// CreateSession adds a dated occurrence to a workshop.
func (s *Service) CreateSession(ctx context.Context, sess activite.Session) (activite.Session, error) {
	if sess.DateSession.IsZero() {
		return activite.Session{}, fmt.Errorf("date_session is required")
	}
	atelier, err := s.store.GetAtelier(ctx, sess.AtelierID)
	if err != nil {
		return activite.Session{}, fmt.Errorf("atelier lookup: %w", err)
	}
	if atelier.IsDeleted {
		return activite.Session{}, ErrDeleted
	}
	return s.store.CreateSession(ctx, sess)
}

// UpdateSession rewrites a session.
func (s *Service) UpdateSession(ctx context.Context, sess activite.Session) (activite.Session, error) {
	if sess.DateSession.IsZero() {
		return activite.Session{}, fmt.Errorf("date_session is required")
	}
	return s.store.UpdateSession(ctx, sess)
}

// GetSession returns one session.
func (s *Service) GetSession(ctx context.Context, id int64) (activite.Session, error) {
	return s.store.GetSession(ctx, id)
}

// ListSessions returns a workshop's sessions; atelierID zero means all.
func (s *Service) ListSessions(ctx context.Context, atelierID int64, includeDeleted bool) ([]activite.Session, error) {
	return s.store.ListSessions(ctx, atelierID, includeDeleted)
}

// DeleteSession soft-deletes a session.
func (s *Service) DeleteSession(ctx context.Context, id int64) error {
	return s.store.SoftDeleteSession(ctx, id, time.Now().UTC())
}

// RestoreSession undoes a soft delete.
func (s *Service) RestoreSession(ctx context.Context, id int64) error {
	return s.store.RestoreSession(ctx, id)
}

// --- Présences ---

// AddPresence signs a participant into a session by hand.
func (s *Service) AddPresence(ctx context.Context, sessionID, participantID int64) (activite.Presence, error) {
	return s.addPresence(ctx, sessionID, participantID, activite.ModeManuel)
}

func (s *Service) addPresence(ctx context.Context, sessionID, participantID int64, mode string) (activite.Presence, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return activite.Presence{}, err
	}
	if sess.IsDeleted {
		return activite.Presence{}, ErrDeleted
	}

	now := time.Now().UTC()
	p, err := s.store.CreatePresence(ctx, activite.Presence{
		SessionID:     sessionID,
		ParticipantID: participantID,
		Mode:          mode,
		SignedAt:      &now,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return activite.Presence{}, ErrDuplicatePresence
	}
	if err != nil {
		return activite.Presence{}, err
	}
	metrics.RecordPresence(mode)
	s.notifyPresence(ctx, sess, p)
	return p, nil
}

// RemovePresence deletes a sign-in.
func (s *Service) RemovePresence(ctx context.Context, id int64) error {
	return s.store.DeletePresence(ctx, id)
}

// SheetEntry is one line of an attendance sheet.
type SheetEntry struct {
	activite.Presence
	Nom    string `json:"nom"`
	Prenom string `json:"prenom,omitempty"`
}

// Sheet returns a session's attendance sheet with participant names.
func (s *Service) Sheet(ctx context.Context, sessionID int64) ([]SheetEntry, error) {
	presences, err := s.store.ListPresences(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entries := make([]SheetEntry, 0, len(presences))
	for _, p := range presences {
		entry := SheetEntry{Presence: p}
		if part, err := s.participants.GetParticipant(ctx, p.ParticipantID); err == nil {
			entry.Nom = part.Nom
			entry.Prenom = part.Prenom
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// --- Archives ---

type archivePayload struct {
	AtelierNom  string       `json:"atelier_nom"`
	DateSession string       `json:"date_session"`
	HeureDebut  string       `json:"heure_debut,omitempty"`
	HeureFin    string       `json:"heure_fin,omitempty"`
	NbPresences int          `json:"nb_presences"`
	Presences   []SheetEntry `json:"presences"`
}

// ArchiveSession freezes a session's attendance sheet into an archive row.
// The session itself is left untouched; purge removes it later.
func (s *Service) ArchiveSession(ctx context.Context, sessionID int64) (activite.Archive, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return activite.Archive{}, err
	}
	atelier, err := s.store.GetAtelier(ctx, sess.AtelierID)
	if err != nil {
		return activite.Archive{}, err
	}
	sheet, err := s.Sheet(ctx, sessionID)
	if err != nil {
		return activite.Archive{}, err
	}

	payload, err := json.Marshal(archivePayload{
		AtelierNom:  atelier.Nom,
		DateSession: sess.DateSession.Format("2006-01-02"),
		HeureDebut:  sess.HeureDebut,
		HeureFin:    sess.HeureFin,
		NbPresences: len(sheet),
		Presences:   sheet,
	})
	if err != nil {
		return activite.Archive{}, fmt.Errorf("marshal sheet: %w", err)
	}

	date := sess.DateSession
	archive, err := s.store.CreateArchive(ctx, activite.Archive{
		SessionID:   &sess.ID,
		AtelierNom:  atelier.Nom,
		DateSession: &date,
		Payload:     string(payload),
	})
	if err != nil {
		return activite.Archive{}, err
	}
	s.log.Info().Int64("session_id", sessionID).Int("presences", len(sheet)).Msg("session archived")
	return archive, nil
}

// GetArchive returns one archived sheet.
func (s *Service) GetArchive(ctx context.Context, id int64) (activite.Archive, error) {
	return s.store.GetArchive(ctx, id)
}

// ListArchives returns archived sheets.
func (s *Service) ListArchives(ctx context.Context, includeDeleted bool) ([]activite.Archive, error) {
	return s.store.ListArchives(ctx, includeDeleted)
}

// DeleteArchive soft-deletes an archived sheet.
func (s *Service) DeleteArchive(ctx context.Context, id int64) error {
	return s.store.SoftDeleteArchive(ctx, id, time.Now().UTC())
}

// RestoreArchive undoes a soft delete.
func (s *Service) RestoreArchive(ctx context.Context, id int64) error {
	return s.store.RestoreArchive(ctx, id)
}

// PurgeResult counts hard-deleted rows per table.
type PurgeResult struct {
	Sessions int64 `json:"sessions"`
	Ateliers int64 `json:"ateliers"`
	Archives int64 `json:"archives"`
}

// Purge hard-deletes soft-deleted rows older than the cutoff. Sessions go
// first so their ateliers become purgeable.
func (s *Service) Purge(ctx context.Context, deletedBefore time.Time) (PurgeResult, error) {
	var res PurgeResult
	var err error
	if res.Sessions, err = s.store.PurgeSessions(ctx, deletedBefore); err != nil {
		return res, fmt.Errorf("purge sessions: %w", err)
	}
	if res.Ateliers, err = s.store.PurgeAteliers(ctx, deletedBefore); err != nil {
		return res, fmt.Errorf("purge ateliers: %w", err)
	}
	if res.Archives, err = s.store.PurgeArchives(ctx, deletedBefore); err != nil {
		return res, fmt.Errorf("purge archives: %w", err)
	}
	if res.Sessions+res.Ateliers+res.Archives > 0 {
		s.log.Info().
			Int64("sessions", res.Sessions).
			Int64("ateliers", res.Ateliers).
			Int64("archives", res.Archives).
			Msg("soft-deleted rows purged")
	}
	return res, nil
}

func (s *Service) notifyPresence(ctx context.Context, sess activite.Session, p activite.Presence) {
	if s.hub == nil {
		return
	}
	entry := SheetEntry{Presence: p}
	if part, err := s.participants.GetParticipant(ctx, p.ParticipantID); err == nil {
		entry.Nom = part.Nom
		entry.Prenom = part.Prenom
	}
	s.hub.Broadcast(sess.ID, Event{Type: "presence", Presence: &entry})
}
