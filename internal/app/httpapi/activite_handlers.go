package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/assogest/assogest/internal/app/domain/activite"
	"github.com/assogest/assogest/internal/httputil"
)

func (h *handler) listAteliers(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	ateliers, err := h.app.Activite.ListAteliers(r.Context(), includeDeleted)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ateliers)
}

func (h *handler) createAtelier(w http.ResponseWriter, r *http.Request) {
	var a activite.Atelier
	if err := httputil.DecodeJSON(r.Body, &a); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Activite.CreateAtelier(r.Context(), a)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getAtelier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	a, err := h.app.Activite.GetAtelier(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *handler) updateAtelier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var a activite.Atelier
	if err := httputil.DecodeJSON(r.Body, &a); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	a.ID = id
	updated, err := h.app.Activite.UpdateAtelier(r.Context(), a)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteAtelier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Activite.DeleteAtelier(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) restoreAtelier(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Activite.RestoreAtelier(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// --- Sessions ---

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	atelierID := int64(queryInt(r, "atelier_id", 0))
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	sessions, err := h.app.Activite.ListSessions(r.Context(), atelierID, includeDeleted)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessions)
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	var sess activite.Session
	if err := httputil.DecodeJSON(r.Body, &sess); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Activite.CreateSession(r.Context(), sess)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	sess, err := h.app.Activite.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (h *handler) updateSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	current, err := h.app.Activite.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	sess := current
	if err := httputil.DecodeJSON(r.Body, &sess); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	sess.ID = id
	updated, err := h.app.Activite.UpdateSession(r.Context(), sess)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Activite.DeleteSession(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) restoreSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Activite.RestoreSession(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// --- Émargement ---

func (h *handler) sessionSheet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	sheet, err := h.app.Activite.Sheet(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sheet)
}

func (h *handler) addPresence(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
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
	p, err := h.app.Activite.AddPresence(r.Context(), id, payload.ParticipantID)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *handler) removePresence(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Activite.RemovePresence(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Archives ---

func (h *handler) archiveSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	archive, err := h.app.Activite.ArchiveSession(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, archive)
}

func (h *handler) listArchives(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	archives, err := h.app.Activite.ListArchives(r.Context(), includeDeleted)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, archives)
}

func (h *handler) getArchive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	archive, err := h.app.Activite.GetArchive(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, archive)
}

func (h *handler) deleteArchive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Activite.DeleteArchive(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) restoreArchive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Activite.RestoreArchive(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// purgeActivite hard-deletes soft-deleted records older than the requested
// number of days (default 30).
func (h *handler) purgeActivite(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	if days < 1 {
		httputil.WriteError(w, http.StatusBadRequest, errors.New("days must be at least 1"))
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	res, err := h.app.Activite.Purge(r.Context(), cutoff)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// syncPlanning pulls the external planning feed. The endpoint is only
// wired when a feed URL is configured.
func (h *handler) syncPlanning(w http.ResponseWriter, r *http.Request) {
	if h.app.Planning == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, errors.New("planning feed not configured"))
		return
	}
	res, err := h.app.Planning.Sync(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("planning sync failed")
		httputil.WriteError(w, http.StatusBadGateway, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
