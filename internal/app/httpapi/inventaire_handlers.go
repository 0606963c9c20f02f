package httpapi

import (
	"net/http"

	"github.com/assogest/assogest/internal/app/domain/inventaire"
	"github.com/assogest/assogest/internal/httputil"
)

// --- Articles (consumables) ---

func (h *handler) listArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.app.Inventaire.ListArticles(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, articles)
}

func (h *handler) createArticle(w http.ResponseWriter, r *http.Request) {
	var a inventaire.Article
	if err := httputil.DecodeJSON(r.Body, &a); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Inventaire.CreateArticle(r.Context(), a)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getArticle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	a, err := h.app.Inventaire.GetArticle(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *handler) updateArticle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var a inventaire.Article
	if err := httputil.DecodeJSON(r.Body, &a); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	a.ID = id
	updated, err := h.app.Inventaire.UpdateArticle(r.Context(), a)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteArticle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Inventaire.DeleteArticle(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// adjustStock applies a signed delta to an article's stock level.
func (h *handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		Delta float64 `json:"delta"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	a, err := h.app.Inventaire.AdjustStock(r.Context(), id, payload.Delta)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *handler) lowStock(w http.ResponseWriter, r *http.Request) {
	articles, err := h.app.Inventaire.LowStock(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, articles)
}

// --- Factures ---

func (h *handler) listFactures(w http.ResponseWriter, r *http.Request) {
	factures, err := h.app.Inventaire.ListFactures(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, factures)
}

func (h *handler) createFacture(w http.ResponseWriter, r *http.Request) {
	var f inventaire.Facture
	if err := httputil.DecodeJSON(r.Body, &f); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Inventaire.CreateFacture(r.Context(), f)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getFacture(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	f, err := h.app.Inventaire.GetFacture(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (h *handler) deleteFacture(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Inventaire.DeleteFacture(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Matériel (equipment) ---

func (h *handler) listMateriels(w http.ResponseWriter, r *http.Request) {
	materiels, err := h.app.Inventaire.ListMateriels(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, materiels)
}

func (h *handler) createMateriel(w http.ResponseWriter, r *http.Request) {
	var m inventaire.Materiel
	if err := httputil.DecodeJSON(r.Body, &m); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Inventaire.CreateMateriel(r.Context(), m)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getMateriel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	m, err := h.app.Inventaire.GetMateriel(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *handler) updateMateriel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var m inventaire.Materiel
	if err := httputil.DecodeJSON(r.Body, &m); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	m.ID = id
	updated, err := h.app.Inventaire.UpdateMateriel(r.Context(), m)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteMateriel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Inventaire.DeleteMateriel(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
