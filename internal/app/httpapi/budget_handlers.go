package httpapi

import (
	"net/http"

	"github.com/assogest/assogest/internal/app/domain/budget"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/httputil"
)

// --- Subventions ---

func (h *handler) listSubventions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.app.Budget.ListSubventions(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, subs)
}

func (h *handler) createSubvention(w http.ResponseWriter, r *http.Request) {
	var sub budget.Subvention
	if err := httputil.DecodeJSON(r.Body, &sub); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Budget.CreateSubvention(r.Context(), sub)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getSubvention(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	sub, err := h.app.Budget.GetSubvention(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *handler) updateSubvention(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var sub budget.Subvention
	if err := httputil.DecodeJSON(r.Body, &sub); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	sub.ID = id
	updated, err := h.app.Budget.UpdateSubvention(r.Context(), sub)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteSubvention(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Budget.DeleteSubvention(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Lignes ---

func (h *handler) listLignes(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	lignes, err := h.app.Budget.ListLignes(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lignes)
}

func (h *handler) createLigne(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var ligne budget.LigneBudget
	if err := httputil.DecodeJSON(r.Body, &ligne); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	ligne.SubventionID = id
	created, err := h.app.Budget.CreateLigne(r.Context(), ligne)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getLigne(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	ligne, err := h.app.Budget.GetLigne(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ligne)
}

func (h *handler) updateLigne(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	current, err := h.app.Budget.GetLigne(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	ligne := current
	if err := httputil.DecodeJSON(r.Body, &ligne); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	ligne.ID = id
	ligne.SubventionID = current.SubventionID
	updated, err := h.app.Budget.UpdateLigne(r.Context(), ligne)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteLigne(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Budget.DeleteLigne(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Dépenses ---

func (h *handler) listDepenses(w http.ResponseWriter, r *http.Request) {
	filter := storage.DepenseFilter{
		LigneBudgetID:  int64(queryInt(r, "ligne_budget_id", 0)),
		ChargeProjetID: int64(queryInt(r, "charge_projet_id", 0)),
		FactureLigneID: int64(queryInt(r, "facture_ligne_id", 0)),
		Annee:          queryInt(r, "exercice", 0),
	}
	depenses, err := h.app.Budget.ListDepenses(r.Context(), filter)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, depenses)
}

func (h *handler) createDepense(w http.ResponseWriter, r *http.Request) {
	var dep budget.Depense
	if err := httputil.DecodeJSON(r.Body, &dep); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Budget.CreateDepense(r.Context(), dep)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) getDepense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	dep, err := h.app.Budget.GetDepense(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dep)
}

func (h *handler) updateDepense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var dep budget.Depense
	if err := httputil.DecodeJSON(r.Body, &dep); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	dep.ID = id
	updated, err := h.app.Budget.UpdateDepense(r.Context(), dep)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteDepense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Budget.DeleteDepense(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) budgetSynthese(w http.ResponseWriter, r *http.Request) {
	synthese, err := h.app.Reporting.BudgetSynthese(r.Context(), exerciceParam(r))
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, synthese)
}
