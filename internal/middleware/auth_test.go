package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/assogest/assogest/internal/app/services/auth"
	"github.com/assogest/assogest/internal/app/services/rbac"
	"github.com/assogest/assogest/internal/app/storage/memory"
	"github.com/assogest/assogest/internal/logging"
)

func newTestAuth(t *testing.T) (*auth.Service, string) {
	t.Helper()
	store := memory.New()
	rbacSvc := rbac.New(store, store, logging.Nop())
	if err := rbacSvc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap rbac: %v", err)
	}
	svc := auth.New(store, rbacSvc, nil, "test-secret", time.Hour, logging.Nop())

	if _, err := svc.CreateUser(context.Background(), auth.CreateUserInput{
		Email:    "resp@asso.fr",
		Password: "secret123",
		Nom:      "Responsable",
		Role:     rbac.RoleResponsableSecteur,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	res, err := svc.Login(context.Background(), "resp@asso.fr", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return svc, res.Token
}

func protectedRouter(authSvc *auth.Service, route string, handler http.HandlerFunc) http.Handler {
	r := mux.NewRouter()
	r.Use(NewAuthenticator(authSvc, "auth_token", logging.Nop()).Require())
	r.HandleFunc(route, handler)
	return r
}

func TestRequireRejectsMissingToken(t *testing.T) {
	svc, _ := newTestAuth(t)
	router := protectedRouter(svc, "/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRejectsGarbageToken(t *testing.T) {
	svc, _ := newTestAuth(t)
	router := protectedRouter(svc, "/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAcceptsBearerAndLoadsPrincipal(t *testing.T) {
	svc, token := newTestAuth(t)
	var got string
	router := protectedRouter(svc, "/ping", func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFrom(r.Context()); ok {
			got = p.User.Email
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got != "resp@asso.fr" {
		t.Fatalf("principal email = %q", got)
	}
}

func TestRequireAcceptsCookie(t *testing.T) {
	svc, token := newTestAuth(t)
	router := protectedRouter(svc, "/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequirePermDeniesAndAllows(t *testing.T) {
	svc, token := newTestAuth(t)

	// responsable_secteur holds participants:view but not admin:rbac.
	router := mux.NewRouter()
	router.Use(NewAuthenticator(svc, "auth_token", logging.Nop()).Require())
	router.HandleFunc("/participants", RequirePerm("participants:view", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	router.HandleFunc("/admin", RequirePerm("admin:rbac", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/participants", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("participants status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin status = %d, want 403", rec.Code)
	}
}

func TestRequirePermExpandsLegacyCodes(t *testing.T) {
	svc, token := newTestAuth(t)

	// statsimpact:view is not in the responsable template, but stats:view
	// is, and the equivalence table accepts it.
	router := mux.NewRouter()
	router.Use(NewAuthenticator(svc, "auth_token", logging.Nop()).Require())
	router.HandleFunc("/statsimpact", RequirePerm("statsimpact:view", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/statsimpact", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRateLimiterThrottles(t *testing.T) {
	rl := NewRateLimiter(1, 2, logging.Nop())
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.9:1234"

	var last int
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("status after burst = %d, want 429", last)
	}

	// A different client is not affected.
	other := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	other.RemoteAddr = "10.0.0.10:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client status = %d, want 200", rec.Code)
	}
}

func TestCORSPreflightAllowedOrigin(t *testing.T) {
	handler := CORS([]string{"https://app.asso.fr"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/participants", nil)
	req.Header.Set("Origin", "https://app.asso.fr")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.asso.fr" {
		t.Fatalf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/participants", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin %q for unknown origin", got)
	}

	// Plain requests pass through with the headers set.
	req = httptest.NewRequest(http.MethodGet, "/api/participants", nil)
	req.Header.Set("Origin", "https://app.asso.fr")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("allow-credentials = %q", got)
	}
}

func TestTracingSetsHeaderAndContext(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Tracing(logging.Nop()))
	var seen string
	router.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		seen = logging.TraceID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if seen == "" {
		t.Fatal("expected a trace id on the context")
	}
	if rec.Header().Get("X-Trace-ID") != seen {
		t.Fatalf("header %q != context %q", rec.Header().Get("X-Trace-ID"), seen)
	}

	// An inbound trace ID is kept.
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("X-Trace-ID") != "trace-123" {
		t.Fatalf("trace id = %q, want trace-123", rec.Header().Get("X-Trace-ID"))
	}
}
