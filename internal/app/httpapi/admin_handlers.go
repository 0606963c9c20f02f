package httpapi

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/assogest/assogest/internal/app/domain/user"
	authsvc "github.com/assogest/assogest/internal/app/services/auth"
	"github.com/assogest/assogest/internal/httputil"
)

// --- Users ---

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.app.Auth.ListUsers(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in authsvc.CreateUserInput
	if err := httputil.DecodeJSON(r.Body, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.app.Auth.CreateUser(r.Context(), in)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.app.Auth.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var in authsvc.UpdateUserInput
	if err := httputil.DecodeJSON(r.Body, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.app.Auth.UpdateUser(r.Context(), id, in)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Auth.DeleteUser(r.Context(), id); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		Actif bool `json:"actif"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.app.Auth.SetActive(r.Context(), id, payload.Actif)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) resetUserPassword(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		Password string `json:"password"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Auth.ResetPassword(r.Context(), id, payload.Password); err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
}

func (h *handler) userRoles(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	roles, err := h.app.RBAC.UserRoles(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	permissions, err := h.app.RBAC.EffectivePermissions(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"roles":       roles,
		"permissions": permissions,
	})
}

func (h *handler) setUserRoles(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		Roles []string `json:"roles"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.RBAC.SetUserRoles(r.Context(), id, payload.Roles); err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	roles, err := h.app.RBAC.UserRoles(r.Context(), id)
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// --- Roles and permissions ---

func (h *handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.app.RBAC.Roles(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, roles)
}

func (h *handler) createRole(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	role, err := h.app.RBAC.CreateRole(r.Context(), payload.Name, payload.Description)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, role)
}

func (h *handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var payload struct {
		Permissions []string `json:"permissions"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	detail, err := h.app.RBAC.SetRolePermissions(r.Context(), name, payload.Permissions)
	if err != nil {
		respondError(w, err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

// listPermissions returns the catalog grouped by category, the shape the
// role-edit screen renders directly.
func (h *handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.app.RBAC.Permissions(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	grouped := make(map[string][]user.Permission)
	for _, p := range perms {
		grouped[p.Category] = append(grouped[p.Category], p)
	}
	httputil.WriteJSON(w, http.StatusOK, grouped)
}

// --- Ops ---

// systemStatus reports process and host health for the admin screen.
func (h *handler) systemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"uptime":     time.Since(h.started).Round(time.Second).String(),
	}
	if info, err := host.Info(); err == nil {
		status["host"] = map[string]any{
			"hostname": info.Hostname,
			"os":       info.OS,
			"platform": info.Platform,
			"uptime_s": info.Uptime,
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status["memory"] = map[string]any{
			"total":        vm.Total,
			"available":    vm.Available,
			"used_percent": vm.UsedPercent,
		}
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}
	if avg, err := load.Avg(); err == nil {
		status["load"] = map[string]float64{"1m": avg.Load1, "5m": avg.Load5, "15m": avg.Load15}
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// runJanitor triggers one maintenance pass outside the cron schedule.
func (h *handler) runJanitor(w http.ResponseWriter, r *http.Request) {
	if h.app.Janitor == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, errors.New("janitor not configured"))
		return
	}
	report, err := h.app.Janitor.RunOnce(r.Context())
	if err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
