package httpapi

import (
	"net/http"
	"strings"

	"github.com/assogest/assogest/internal/app/domain/participant"
	"github.com/assogest/assogest/internal/httputil"
)

func (h *handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	participants, err := h.app.Participants.List(r.Context(), search)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, participants)
}

func (h *handler) createParticipant(w http.ResponseWriter, r *http.Request) {
	var p participant.Participant
	if err := httputil.DecodeJSON(r.Body, &p); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Participants.Create(r.Context(), p)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.app.Participants.Get(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *handler) updateParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var p participant.Participant
	if err := httputil.DecodeJSON(r.Body, &p); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	p.ID = id
	updated, err := h.app.Participants.Update(r.Context(), p)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Participants.Delete(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Quartiers ---

func (h *handler) listQuartiers(w http.ResponseWriter, r *http.Request) {
	quartiers, err := h.app.Participants.ListQuartiers(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quartiers)
}

func (h *handler) createQuartier(w http.ResponseWriter, r *http.Request) {
	var q participant.Quartier
	if err := httputil.DecodeJSON(r.Body, &q); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Participants.CreateQuartier(r.Context(), q)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) deleteQuartier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Participants.DeleteQuartier(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
