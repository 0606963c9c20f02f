package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/assogest/assogest/internal/httputil"
	"github.com/assogest/assogest/internal/middleware"
)

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.app.Reporting.Dashboard(r.Context(), queryInt(r, "exercice", 0))
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dash)
}

// scopedSecteur resolves the sector filter for the stats endpoints: users
// without the view_all variant only ever see their assigned sector.
func scopedSecteur(r *http.Request, viewAllCode string) (string, error) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return "", errors.New("authentication required")
	}
	requested := strings.TrimSpace(r.URL.Query().Get("secteur"))
	if p.Can(viewAllCode) {
		return requested, nil
	}
	return p.User.Secteur, nil
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	secteur, err := scopedSecteur(r, "stats:view_all")
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, err)
		return
	}
	stats, err := h.app.Reporting.Stats(r.Context(), queryInt(r, "exercice", 0), secteur)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *handler) statsImpact(w http.ResponseWriter, r *http.Request) {
	secteur, err := scopedSecteur(r, "statsimpact:view_all")
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, err)
		return
	}
	impact, err := h.app.Reporting.StatsImpact(r.Context(), secteur)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, impact)
}

func (h *handler) bilanAnnuel(w http.ResponseWriter, r *http.Request) {
	bilan, err := h.app.Reporting.BilanAnnuel(r.Context(), queryInt(r, "exercice", 0))
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bilan)
}

func (h *handler) bilanLourd(w http.ResponseWriter, r *http.Request) {
	entries, err := h.app.Reporting.BilanLourd(r.Context(), queryInt(r, "exercice", 0))
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// launcher returns the module tiles with the caller's access resolved, so
// the front page can grey out what the user cannot enter.
func (h *handler) launcher(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, errors.New("authentication required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.app.Reporting.Launcher(p))
}

func (h *handler) controle(w http.ResponseWriter, r *http.Request) {
	issues, err := h.app.Reporting.Controle(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, issues)
}

func (h *handler) controleAudit(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	httputil.WriteJSON(w, http.StatusOK, h.audit.listLimit(limit))
}
