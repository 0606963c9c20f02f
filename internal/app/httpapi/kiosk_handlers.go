package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/assogest/assogest/internal/httputil"
)

// Staff side: open/close a session's kiosk.

func (h *handler) openKiosk(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	access, err := h.app.Activite.OpenKiosk(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, access)
}

func (h *handler) closeKiosk(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Activite.CloseKiosk(r.Context(), id, strings.TrimSpace(payload.PIN)); err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// Device side: token-scoped endpoints, no user session. The close PIN and
// token never leave the server through these.

func (h *handler) kioskInfo(w http.ResponseWriter, r *http.Request) {
	sess, err := h.app.Activite.KioskSession(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	atelierNom := ""
	if atelier, err := h.app.Activite.GetAtelier(r.Context(), sess.AtelierID); err == nil {
		atelierNom = atelier.Nom
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id":   sess.ID,
		"atelier_id":   sess.AtelierID,
		"atelier_nom":  atelierNom,
		"date_session": sess.DateSession,
		"heure_debut":  sess.HeureDebut,
		"heure_fin":    sess.HeureFin,
		"kiosk_open":   sess.KioskOpen,
	})
}

func (h *handler) kioskParticipants(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		httputil.WriteError(w, http.StatusBadRequest, errors.New("q must be at least 2 characters"))
		return
	}
	participants, err := h.app.Activite.KioskSearchParticipants(r.Context(), mux.Vars(r)["token"], query)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	// The device only needs enough to pick a person from the list.
	type entry struct {
		ID     int64  `json:"id"`
		Nom    string `json:"nom"`
		Prenom string `json:"prenom,omitempty"`
	}
	out := make([]entry, 0, len(participants))
	for _, p := range participants {
		out = append(out, entry{ID: p.ID, Nom: p.Nom, Prenom: p.Prenom})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *handler) kioskSignIn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ParticipantID int64 `json:"participant_id"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if payload.ParticipantID <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, errors.New("participant_id is required"))
		return
	}
	p, err := h.app.Activite.KioskSignIn(r.Context(), mux.Vars(r)["token"], payload.ParticipantID)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}
