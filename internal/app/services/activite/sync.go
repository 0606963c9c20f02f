package activite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/assogest/assogest/internal/app/domain/activite"
	"github.com/assogest/assogest/internal/app/metrics"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/logging"
)

// PlanningImporter pulls the external planning feed and upserts workshops
// and sessions by their external reference. The feed is JSON; fields are
// extracted by path so unrelated feed changes do not break the import.
type PlanningImporter struct {
	client  *http.Client
	feedURL *url.URL
	token   string
	store   storage.ActiviteStore
	log     *logging.Logger
}

// NewPlanningImporter constructs an importer for the given feed.
func NewPlanningImporter(client *http.Client, feedURL, token string, store storage.ActiviteStore, log *logging.Logger) (*PlanningImporter, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, fmt.Errorf("planning feed url required")
	}
	parsed, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = logging.NewDefault("planning-sync")
	}
	return &PlanningImporter{
		client:  client,
		feedURL: parsed,
		token:   strings.TrimSpace(token),
		store:   store,
		log:     log,
	}, nil
}

// SyncResult summarizes one import run.
type SyncResult struct {
	AteliersCreated int `json:"ateliers_created"`
	AteliersUpdated int `json:"ateliers_updated"`
	SessionsCreated int `json:"sessions_created"`
	Skipped         int `json:"skipped"`
}

// Sync fetches the feed and applies it. Entries without a ref, and entries
// matching a soft-deleted workshop, are skipped.
func (p *PlanningImporter) Sync(ctx context.Context) (SyncResult, error) {
	start := time.Now()
	res, err := p.sync(ctx)
	metrics.RecordPlanningSync(time.Since(start), err == nil)
	return res, err
}

func (p *PlanningImporter) sync(ctx context.Context) (SyncResult, error) {
	body, err := p.fetch(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	items := gjson.GetBytes(body, "ateliers")
	if !items.Exists() {
		if root := gjson.ParseBytes(body); root.IsArray() {
			items = root
		} else {
			return SyncResult{}, fmt.Errorf("planning feed: no ateliers array")
		}
	}

	var res SyncResult
	var syncErr error
	items.ForEach(func(_, item gjson.Result) bool {
		if err := p.applyAtelier(ctx, item, &res); err != nil {
			syncErr = err
			return false
		}
		return true
	})
	if syncErr != nil {
		return res, syncErr
	}

	p.log.Info().
		Int("created", res.AteliersCreated).
		Int("updated", res.AteliersUpdated).
		Int("sessions", res.SessionsCreated).
		Int("skipped", res.Skipped).
		Msg("planning feed applied")
	return res, nil
}

func (p *PlanningImporter) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch planning feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("planning feed status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read planning feed: %w", err)
	}
	return body, nil
}

func (p *PlanningImporter) applyAtelier(ctx context.Context, item gjson.Result, res *SyncResult) error {
	ref := strings.TrimSpace(item.Get("ref").String())
	nom := strings.TrimSpace(item.Get("nom").String())
	if ref == "" || nom == "" {
		res.Skipped++
		return nil
	}

	atelier, err := p.store.GetAtelierByExternalRef(ctx, ref)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		atelier, err = p.store.CreateAtelier(ctx, activite.Atelier{
			Nom:         nom,
			Secteur:     item.Get("secteur").String(),
			Animateur:   item.Get("animateur").String(),
			Lieu:        item.Get("lieu").String(),
			Description: item.Get("description").String(),
			ExternalRef: ref,
		})
		if err != nil {
			return fmt.Errorf("create atelier %s: %w", ref, err)
		}
		res.AteliersCreated++
	case err != nil:
		return err
	case atelier.IsDeleted:
		// Staff deleted it on purpose; the feed does not resurrect it.
		res.Skipped++
		return nil
	default:
		updated := atelier
		updated.Nom = nom
		updated.Secteur = item.Get("secteur").String()
		updated.Animateur = item.Get("animateur").String()
		updated.Lieu = item.Get("lieu").String()
		if desc := item.Get("description").String(); desc != "" {
			updated.Description = desc
		}
		if updated != atelier {
			if _, err := p.store.UpdateAtelier(ctx, updated); err != nil {
				return fmt.Errorf("update atelier %s: %w", ref, err)
			}
			res.AteliersUpdated++
		}
		atelier = updated
	}

	return p.applySessions(ctx, atelier, item.Get("sessions"), res)
}

func (p *PlanningImporter) applySessions(ctx context.Context, atelier activite.Atelier, sessions gjson.Result, res *SyncResult) error {
	if !sessions.IsArray() {
		return nil
	}

	existing, err := p.store.ListSessions(ctx, atelier.ID, true)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, sess := range existing {
		seen[sessionKey(sess.DateSession, sess.HeureDebut)] = true
	}

	var applyErr error
	sessions.ForEach(func(_, item gjson.Result) bool {
		date, err := time.Parse("2006-01-02", item.Get("date").String())
		if err != nil {
			res.Skipped++
			return true
		}
		debut := strings.TrimSpace(item.Get("debut").String())
		key := sessionKey(date, debut)
		if seen[key] {
			return true
		}
		if _, err := p.store.CreateSession(ctx, activite.Session{
			AtelierID:   atelier.ID,
			DateSession: date,
			HeureDebut:  debut,
			HeureFin:    strings.TrimSpace(item.Get("fin").String()),
		}); err != nil {
			applyErr = fmt.Errorf("create session %s/%s: %w", atelier.ExternalRef, key, err)
			return false
		}
		seen[key] = true
		res.SessionsCreated++
		return true
	})
	return applyErr
}

func sessionKey(date time.Time, debut string) string {
	return date.Format("2006-01-02") + "T" + debut
}
