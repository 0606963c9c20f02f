package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/assogest/assogest/internal/app/services/auth"
	"github.com/assogest/assogest/internal/httputil"
	"github.com/assogest/assogest/internal/middleware"
)

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.app.Auth.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrInactiveUser) {
			httputil.WriteError(w, http.StatusUnauthorized, err)
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		httputil.WriteError(w, http.StatusInternalServerError, errors.New("login failed"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       res.User,
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Auth.Logout(r.Context(), h.requestToken(r)); err != nil {
		respondError(w, err, http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, errors.New("authentication required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"user":        p.User,
		"roles":       p.Roles,
		"permissions": p.PermissionCodes(),
	})
}

// requestToken mirrors the authenticator's extraction so logout can revoke
// the same token the middleware validated.
func (h *handler) requestToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(h.cookieName); err == nil {
		return c.Value
	}
	return ""
}
