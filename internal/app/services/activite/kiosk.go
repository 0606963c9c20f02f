package activite

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/assogest/assogest/internal/app/domain/activite"
	"github.com/assogest/assogest/internal/app/domain/participant"
)

// KioskAccess is what staff need to hand a device over: the room PIN and
// the opaque URL token.
type KioskAccess struct {
	SessionID int64     `json:"session_id"`
	PIN       string    `json:"pin"`
	Token     string    `json:"token"`
	OpenedAt  time.Time `json:"opened_at"`
}

// OpenKiosk opens a session for self sign-in: a fresh 6-digit PIN and a
// 64-hex token are generated each time. Reopening an open kiosk rotates
// both.
func (s *Service) OpenKiosk(ctx context.Context, sessionID int64) (KioskAccess, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return KioskAccess{}, err
	}
	if sess.IsDeleted {
		return KioskAccess{}, ErrDeleted
	}

	pin, err := generatePIN()
	if err != nil {
		return KioskAccess{}, fmt.Errorf("generate pin: %w", err)
	}
	token, err := generateToken()
	if err != nil {
		return KioskAccess{}, fmt.Errorf("generate token: %w", err)
	}

	now := time.Now().UTC()
	sess.KioskOpen = true
	sess.KioskPIN = pin
	sess.KioskToken = token
	sess.KioskOpenedAt = &now
	if _, err := s.store.UpdateSession(ctx, sess); err != nil {
		return KioskAccess{}, err
	}

	s.log.Info().Int64("session_id", sessionID).Msg("kiosk opened")
	return KioskAccess{SessionID: sessionID, PIN: pin, Token: token, OpenedAt: now}, nil
}

// CloseKiosk closes a session's kiosk. The room PIN doubles as the staff
// confirmation code.
func (s *Service) CloseKiosk(ctx context.Context, sessionID int64, pin string) error {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.KioskOpen {
		return ErrKioskClosed
	}
	if sess.KioskPIN != pin {
		return ErrBadPIN
	}
	return s.closeKiosk(ctx, sess)
}

func (s *Service) closeKiosk(ctx context.Context, sess activite.Session) error {
	sess.KioskOpen = false
	sess.KioskPIN = ""
	sess.KioskToken = ""
	sess.KioskOpenedAt = nil
	if _, err := s.store.UpdateSession(ctx, sess); err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.Broadcast(sess.ID, Event{Type: "kiosk_closed"})
	}
	s.log.Info().Int64("session_id", sess.ID).Msg("kiosk closed")
	return nil
}

// KioskSession resolves a device token to its open session. Closed, deleted
// and unknown tokens all come back as ErrKioskClosed so devices cannot
// probe for sessions.
func (s *Service) KioskSession(ctx context.Context, token string) (activite.Session, error) {
	if token == "" {
		return activite.Session{}, ErrKioskClosed
	}
	sess, err := s.store.GetSessionByKioskToken(ctx, token)
	if err != nil {
		return activite.Session{}, ErrKioskClosed
	}
	if sess.IsDeleted || !sess.KioskOpen {
		return activite.Session{}, ErrKioskClosed
	}
	return sess, nil
}

// KioskSearchParticipants is the directory search shown on the device.
func (s *Service) KioskSearchParticipants(ctx context.Context, token, query string) ([]participant.Participant, error) {
	if _, err := s.KioskSession(ctx, token); err != nil {
		return nil, err
	}
	return s.participants.ListParticipants(ctx, query)
}

// KioskSignIn records a self sign-in on an open kiosk.
func (s *Service) KioskSignIn(ctx context.Context, token string, participantID int64) (activite.Presence, error) {
	sess, err := s.KioskSession(ctx, token)
	if err != nil {
		return activite.Presence{}, err
	}
	return s.addPresence(ctx, sess.ID, participantID, activite.ModeKiosk)
}

// AutoCloseKiosks closes kiosks left open longer than maxAge. The janitor
// runs this nightly so devices do not stay signed in across days.
func (s *Service) AutoCloseKiosks(ctx context.Context, maxAge time.Duration) (int, error) {
	sessions, err := s.store.ListSessions(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	closed := 0
	for _, sess := range sessions {
		if !sess.KioskOpen {
			continue
		}
		if sess.KioskOpenedAt != nil && sess.KioskOpenedAt.After(cutoff) {
			continue
		}
		if err := s.closeKiosk(ctx, sess); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

func generatePIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
