package httpapi

import (
	"net/http"

	"github.com/assogest/assogest/internal/app/domain/projet"
	"github.com/assogest/assogest/internal/httputil"
)

func (h *handler) listProjets(w http.ResponseWriter, r *http.Request) {
	projets, err := h.app.Projets.List(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, projets)
}

func (h *handler) createProjet(w http.ResponseWriter, r *http.Request) {
	var p projet.Projet
	if err := httputil.DecodeJSON(r.Body, &p); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Projets.Create(r.Context(), p)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// getProjet returns the project detail: the record plus the engaged amount
// of each charge line.
func (h *handler) getProjet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	detail, err := h.app.Projets.GetDetail(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *handler) updateProjet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var p projet.Projet
	if err := httputil.DecodeJSON(r.Body, &p); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	p.ID = id
	updated, err := h.app.Projets.Update(r.Context(), p)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteProjet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Projets.Delete(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listCharges(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	charges, err := h.app.Projets.ListCharges(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, charges)
}

func (h *handler) createCharge(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var c projet.ChargeProjet
	if err := httputil.DecodeJSON(r.Body, &c); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	c.ProjetID = id
	created, err := h.app.Projets.CreateCharge(r.Context(), c)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) updateCharge(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	current, err := h.app.Projets.GetCharge(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	c := current
	if err := httputil.DecodeJSON(r.Body, &c); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	c.ID = id
	c.ProjetID = current.ProjetID
	updated, err := h.app.Projets.UpdateCharge(r.Context(), c)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteCharge(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Projets.DeleteCharge(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) projetSynthese(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	synthese, err := h.app.Reporting.ProjetSynthese(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, synthese)
}
