// Package middleware provides the HTTP middleware chain: CORS, tracing,
// metrics, rate limiting, session authentication and permission checks.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/assogest/assogest/internal/app/metrics"
	"github.com/assogest/assogest/internal/app/services/auth"
	"github.com/assogest/assogest/internal/httputil"
	"github.com/assogest/assogest/internal/logging"
)

type principalCtxKey struct{}

// Authenticator resolves the session token on each request and loads the
// principal into the context.
type Authenticator struct {
	auth       *auth.Service
	cookieName string
	log        *logging.Logger
}

// NewAuthenticator builds the session middleware. cookieName is the fallback
// token carrier for browser clients; the Authorization header wins when both
// are present.
func NewAuthenticator(authSvc *auth.Service, cookieName string, log *logging.Logger) *Authenticator {
	if cookieName == "" {
		cookieName = "auth_token"
	}
	if log == nil {
		log = logging.NewDefault("auth")
	}
	return &Authenticator{auth: authSvc, cookieName: cookieName, log: log}
}

// Require rejects requests without a valid session with 401 and stores the
// principal on the context otherwise.
func (m *Authenticator) Require() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := m.token(r)
			if token == "" {
				httputil.WriteError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
				return
			}
			principal, err := m.auth.Authenticate(r.Context(), token)
			if err != nil {
				m.log.Debug().Err(err).Str("trace_id", logging.TraceID(r.Context())).Msg("authentication rejected")
				httputil.WriteError(w, http.StatusUnauthorized, fmt.Errorf("invalid session"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), &principal)))
		})
	}
}

// token extracts the session token from the Authorization header or the
// session cookie.
func (m *Authenticator) token(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(m.cookieName); err == nil {
		return c.Value
	}
	return ""
}

// WithPrincipal stores an authenticated principal on the context.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(*auth.Principal)
	return p, ok
}

// RequirePerm gates a handler behind one permission code. The check expands
// legacy code spellings, so older role data keeps working. Runs inside
// Require: a missing principal is a 401, a missing permission a 403.
func RequirePerm(code string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
			return
		}
		if !p.Can(code) {
			metrics.RecordPermissionDenial(code)
			httputil.WriteError(w, http.StatusForbidden, fmt.Errorf("permission %s required", code))
			return
		}
		next(w, r)
	}
}

// RequireRole gates a handler behind role membership, for the few admin
// surfaces that are role- rather than permission-scoped.
func RequireRole(names []string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
			return
		}
		if !p.HasAnyRole(names...) {
			httputil.WriteError(w, http.StatusForbidden, fmt.Errorf("role %s required", strings.Join(names, " or ")))
			return
		}
		next(w, r)
	}
}
