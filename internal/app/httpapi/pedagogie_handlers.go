package httpapi

import (
	"net/http"
	"strings"

	"github.com/assogest/assogest/internal/app/domain/pedagogie"
	"github.com/assogest/assogest/internal/httputil"
	"github.com/assogest/assogest/internal/middleware"
)

func (h *handler) listFiches(w http.ResponseWriter, r *http.Request) {
	secteur := strings.TrimSpace(r.URL.Query().Get("secteur"))
	fiches, err := h.app.Pedagogie.List(r.Context(), secteur)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fiches)
}

func (h *handler) createFiche(w http.ResponseWriter, r *http.Request) {
	var f pedagogie.Fiche
	if err := httputil.DecodeJSON(r.Body, &f); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if p, ok := middleware.PrincipalFrom(r.Context()); ok {
		f.AuteurID = &p.User.ID
	}
	created, err := h.app.Pedagogie.Create(r.Context(), f)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getFiche(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	f, err := h.app.Pedagogie.Get(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (h *handler) updateFiche(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	current, err := h.app.Pedagogie.Get(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	f := current
	if err := httputil.DecodeJSON(r.Body, &f); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	f.ID = id
	f.AuteurID = current.AuteurID
	updated, err := h.app.Pedagogie.Update(r.Context(), f)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteFiche(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Pedagogie.Delete(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
