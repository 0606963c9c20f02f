// Package participants manages the people directory and the quartier
// referential behind the impact statistics.
package participants

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/assogest/assogest/internal/app/domain/participant"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/logging"
)

// ErrQuartierUsed blocks deleting a quartier still referenced by
// participants.
var ErrQuartierUsed = errors.New("participants: quartier still referenced")

// Service implements the participant directory operations.
type Service struct {
	store storage.ParticipantStore
	log   *logging.Logger
}

// New constructs the service.
func New(store storage.ParticipantStore, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("participants")
	}
	return &Service{store: store, log: log}
}

// Create registers a participant. Nom is required; prénom and the audience
// fields are free-form.
func (s *Service) Create(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	if err := s.normalize(ctx, &p); err != nil {
		return participant.Participant{}, err
	}
	created, err := s.store.CreateParticipant(ctx, p)
	if err != nil {
		return participant.Participant{}, err
	}
	s.log.Info().Int64("participant_id", created.ID).Str("nom", created.Nom).Msg("participant created")
	return created, nil
}

// Update rewrites a participant record.
func (s *Service) Update(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	current, err := s.store.GetParticipant(ctx, p.ID)
	if err != nil {
		return participant.Participant{}, err
	}
	p.CreatedAt = current.CreatedAt
	if err := s.normalize(ctx, &p); err != nil {
		return participant.Participant{}, err
	}
	return s.store.UpdateParticipant(ctx, p)
}

// Get returns one participant.
func (s *Service) Get(ctx context.Context, id int64) (participant.Participant, error) {
	return s.store.GetParticipant(ctx, id)
}

// List returns participants, optionally filtered by a name search.
func (s *Service) List(ctx context.Context, search string) ([]participant.Participant, error) {
	return s.store.ListParticipants(ctx, strings.TrimSpace(search))
}

// Delete removes a participant. Past presences keep their row; the
// émargement sheet shows them without a name.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteParticipant(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("participant_id", id).Msg("participant deleted")
	return nil
}

func (s *Service) normalize(ctx context.Context, p *participant.Participant) error {
	p.Nom = strings.TrimSpace(p.Nom)
	p.Prenom = strings.TrimSpace(p.Prenom)
	if p.Nom == "" {
		return fmt.Errorf("participant: nom required")
	}
	if p.QuartierID != nil {
		if _, err := s.store.GetQuartier(ctx, *p.QuartierID); err != nil {
			return fmt.Errorf("quartier %d: %w", *p.QuartierID, err)
		}
	}
	return nil
}

// CreateQuartier adds a district to the referential.
func (s *Service) CreateQuartier(ctx context.Context, q participant.Quartier) (participant.Quartier, error) {
	q.Nom = strings.TrimSpace(q.Nom)
	if q.Nom == "" {
		return participant.Quartier{}, fmt.Errorf("quartier: nom required")
	}
	return s.store.CreateQuartier(ctx, q)
}

// ListQuartiers returns the district referential.
func (s *Service) ListQuartiers(ctx context.Context) ([]participant.Quartier, error) {
	return s.store.ListQuartiers(ctx)
}

// DeleteQuartier removes a district no participant references.
func (s *Service) DeleteQuartier(ctx context.Context, id int64) error {
	all, err := s.store.ListParticipants(ctx, "")
	if err != nil {
		return err
	}
	for _, p := range all {
		if p.QuartierID != nil && *p.QuartierID == id {
			return ErrQuartierUsed
		}
	}
	return s.store.DeleteQuartier(ctx, id)
}
