// Package httpapi exposes the application services as a JSON REST API.
// Every route group ("blueprint" in the launcher's vocabulary) is
// registered here with its permission gate; the handlers themselves live
// in one file per group.
package httpapi

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	app "github.com/assogest/assogest/internal/app"
	"github.com/assogest/assogest/internal/app/metrics"
	"github.com/assogest/assogest/internal/app/services/activite"
	budgetsvc "github.com/assogest/assogest/internal/app/services/budget"
	inventairesvc "github.com/assogest/assogest/internal/app/services/inventaire"
	participantssvc "github.com/assogest/assogest/internal/app/services/participants"
	projetssvc "github.com/assogest/assogest/internal/app/services/projets"
	rbacsvc "github.com/assogest/assogest/internal/app/services/rbac"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/httputil"
	"github.com/assogest/assogest/internal/logging"
	"github.com/assogest/assogest/internal/middleware"
)

// Config carries the handler settings that come from the server
// configuration rather than from the application itself.
type Config struct {
	CookieName        string
	CookieSecure      bool
	AllowedOrigins    []string
	RequestsPerSecond float64
	Burst             int

	// Audit trail: in-memory ring size plus the optional persistent sinks.
	AuditBuffer int
	AuditFile   string
	AuditDB     *sql.DB
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app          *app.Application
	audit        *auditLog
	cookieName   string
	cookieSecure bool
	log          *logging.Logger
	started      time.Time
}

// NewHandler returns the routed REST API. The public subrouter (login and
// the kiosk endpoints) is registered before the authenticated one so its
// routes match first; everything else requires a session.
func NewHandler(application *app.Application, cfg Config, log *logging.Logger) http.Handler {
	if log == nil {
		log = logging.NewDefault("httpapi")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "auth_token"
	}

	h := &handler{
		app:          application,
		audit:        newAuditLog(cfg.AuditBuffer, newAuditSinks(cfg, log)),
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
		log:          log,
		started:      time.Now(),
	}

	authn := middleware.NewAuthenticator(application.Auth, cfg.CookieName, log)
	limiter := middleware.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst, log)
	audited := auditMiddleware(h.audit)

	root := mux.NewRouter()
	root.Use(middleware.Tracing(log), middleware.Metrics())

	root.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	root.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Unauthenticated surface: login and the kiosk device endpoints. The
	// kiosk routes are scoped by the opaque session token instead of a
	// user session; the rate limiter keeps both from being brute-forced.
	public := root.PathPrefix("/api").Subrouter()
	public.Use(limiter.Handler, audited)
	public.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	public.HandleFunc("/kiosk/{token}", h.kioskInfo).Methods(http.MethodGet)
	public.HandleFunc("/kiosk/{token}/participants", h.kioskParticipants).Methods(http.MethodGet)
	public.HandleFunc("/kiosk/{token}/presences", h.kioskSignIn).Methods(http.MethodPost)

	api := root.PathPrefix("/api").Subrouter()
	api.Use(authn.Require(), audited)

	api.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", h.me).Methods(http.MethodGet)
	api.HandleFunc("/launcher", h.launcher).Methods(http.MethodGet)

	api.HandleFunc("/dashboard", perm("dashboard:view", h.dashboard)).Methods(http.MethodGet)

	// budget
	api.HandleFunc("/budget/subventions", perm("subventions:view", h.listSubventions)).Methods(http.MethodGet)
	api.HandleFunc("/budget/subventions", perm("subventions:edit", h.createSubvention)).Methods(http.MethodPost)
	api.HandleFunc("/budget/subventions/{id}", perm("subventions:view", h.getSubvention)).Methods(http.MethodGet)
	api.HandleFunc("/budget/subventions/{id}", perm("subventions:edit", h.updateSubvention)).Methods(http.MethodPut)
	api.HandleFunc("/budget/subventions/{id}", perm("subventions:delete", h.deleteSubvention)).Methods(http.MethodDelete)
	api.HandleFunc("/budget/subventions/{id}/lignes", perm("subventions:view", h.listLignes)).Methods(http.MethodGet)
	api.HandleFunc("/budget/subventions/{id}/lignes", perm("subventions:edit", h.createLigne)).Methods(http.MethodPost)
	api.HandleFunc("/budget/lignes/{id}", perm("subventions:view", h.getLigne)).Methods(http.MethodGet)
	api.HandleFunc("/budget/lignes/{id}", perm("subventions:edit", h.updateLigne)).Methods(http.MethodPut)
	api.HandleFunc("/budget/lignes/{id}", perm("budget:delete", h.deleteLigne)).Methods(http.MethodDelete)
	api.HandleFunc("/budget/depenses", perm("depenses:view", h.listDepenses)).Methods(http.MethodGet)
	api.HandleFunc("/budget/depenses", perm("depenses:create", h.createDepense)).Methods(http.MethodPost)
	api.HandleFunc("/budget/depenses/{id}", perm("depenses:view", h.getDepense)).Methods(http.MethodGet)
	api.HandleFunc("/budget/depenses/{id}", perm("depenses:create", h.updateDepense)).Methods(http.MethodPut)
	api.HandleFunc("/budget/depenses/{id}", perm("depenses:delete", h.deleteDepense)).Methods(http.MethodDelete)
	api.HandleFunc("/budget/synthese", perm("subventions:view", h.budgetSynthese)).Methods(http.MethodGet)

	// projets
	api.HandleFunc("/projets", perm("projets:view", h.listProjets)).Methods(http.MethodGet)
	api.HandleFunc("/projets", perm("projets:edit", h.createProjet)).Methods(http.MethodPost)
	api.HandleFunc("/projets/charges/{id}", perm("projets:edit", h.updateCharge)).Methods(http.MethodPut)
	api.HandleFunc("/projets/charges/{id}", perm("projets:delete", h.deleteCharge)).Methods(http.MethodDelete)
	api.HandleFunc("/projets/{id}", perm("projets:view", h.getProjet)).Methods(http.MethodGet)
	api.HandleFunc("/projets/{id}", perm("projets:edit", h.updateProjet)).Methods(http.MethodPut)
	api.HandleFunc("/projets/{id}", perm("projets:delete", h.deleteProjet)).Methods(http.MethodDelete)
	api.HandleFunc("/projets/{id}/charges", perm("projets:view", h.listCharges)).Methods(http.MethodGet)
	api.HandleFunc("/projets/{id}/charges", perm("projets:edit", h.createCharge)).Methods(http.MethodPost)
	api.HandleFunc("/projets/{id}/synthese", perm("projets:view", h.projetSynthese)).Methods(http.MethodGet)

	// activite + emargement + kiosk staff side
	api.HandleFunc("/activite/ateliers", perm("ateliers:view", h.listAteliers)).Methods(http.MethodGet)
	api.HandleFunc("/activite/ateliers", perm("ateliers:sync", h.createAtelier)).Methods(http.MethodPost)
	api.HandleFunc("/activite/ateliers/{id}", perm("ateliers:view", h.getAtelier)).Methods(http.MethodGet)
	api.HandleFunc("/activite/ateliers/{id}", perm("ateliers:sync", h.updateAtelier)).Methods(http.MethodPut)
	api.HandleFunc("/activite/ateliers/{id}", perm("activite:delete", h.deleteAtelier)).Methods(http.MethodDelete)
	api.HandleFunc("/activite/ateliers/{id}/restore", perm("activite:delete", h.restoreAtelier)).Methods(http.MethodPost)
	api.HandleFunc("/activite/sessions", perm("ateliers:view", h.listSessions)).Methods(http.MethodGet)
	api.HandleFunc("/activite/sessions", perm("ateliers:sync", h.createSession)).Methods(http.MethodPost)
	api.HandleFunc("/activite/sessions/{id}", perm("ateliers:view", h.getSession)).Methods(http.MethodGet)
	api.HandleFunc("/activite/sessions/{id}", perm("ateliers:sync", h.updateSession)).Methods(http.MethodPut)
	api.HandleFunc("/activite/sessions/{id}", perm("activite:delete", h.deleteSession)).Methods(http.MethodDelete)
	api.HandleFunc("/activite/sessions/{id}/restore", perm("activite:delete", h.restoreSession)).Methods(http.MethodPost)
	api.HandleFunc("/activite/sessions/{id}/sheet", perm("emargement:view", h.sessionSheet)).Methods(http.MethodGet)
	api.HandleFunc("/activite/sessions/{id}/presences", perm("emargement:view", h.addPresence)).Methods(http.MethodPost)
	api.HandleFunc("/activite/sessions/{id}/archive", perm("emargement:view", h.archiveSession)).Methods(http.MethodPost)
	api.HandleFunc("/activite/sessions/{id}/kiosk/open", perm("emargement:view", h.openKiosk)).Methods(http.MethodPost)
	api.HandleFunc("/activite/sessions/{id}/kiosk/close", perm("emargement:view", h.closeKiosk)).Methods(http.MethodPost)
	api.HandleFunc("/activite/sessions/{id}/feed", perm("emargement:view", h.sessionFeed)).Methods(http.MethodGet)
	api.HandleFunc("/activite/presences/{id}", perm("emargement:view", h.removePresence)).Methods(http.MethodDelete)
	api.HandleFunc("/activite/archives", perm("emargement:view", h.listArchives)).Methods(http.MethodGet)
	api.HandleFunc("/activite/archives/{id}", perm("emargement:view", h.getArchive)).Methods(http.MethodGet)
	api.HandleFunc("/activite/archives/{id}", perm("activite:delete", h.deleteArchive)).Methods(http.MethodDelete)
	api.HandleFunc("/activite/archives/{id}/restore", perm("activite:delete", h.restoreArchive)).Methods(http.MethodPost)
	api.HandleFunc("/activite/purge", perm("activite:purge", h.purgeActivite)).Methods(http.MethodPost)
	api.HandleFunc("/activite/sync", perm("ateliers:sync", h.syncPlanning)).Methods(http.MethodPost)

	// participants (quartiers before {id} so the literal segment wins)
	api.HandleFunc("/participants/quartiers", perm("participants:view", h.listQuartiers)).Methods(http.MethodGet)
	api.HandleFunc("/participants/quartiers", perm("participants:edit", h.createQuartier)).Methods(http.MethodPost)
	api.HandleFunc("/participants/quartiers/{id}", perm("participants:edit", h.deleteQuartier)).Methods(http.MethodDelete)
	api.HandleFunc("/participants", perm("participants:view", h.listParticipants)).Methods(http.MethodGet)
	api.HandleFunc("/participants", perm("participants:edit", h.createParticipant)).Methods(http.MethodPost)
	api.HandleFunc("/participants/{id}", perm("participants:view", h.getParticipant)).Methods(http.MethodGet)
	api.HandleFunc("/participants/{id}", perm("participants:edit", h.updateParticipant)).Methods(http.MethodPut)
	api.HandleFunc("/participants/{id}", perm("participants:delete", h.deleteParticipant)).Methods(http.MethodDelete)

	// inventaire + materiel
	api.HandleFunc("/inventaire/articles", perm("inventaire:view", h.listArticles)).Methods(http.MethodGet)
	api.HandleFunc("/inventaire/articles", perm("inventaire:edit", h.createArticle)).Methods(http.MethodPost)
	api.HandleFunc("/inventaire/articles/{id}", perm("inventaire:view", h.getArticle)).Methods(http.MethodGet)
	api.HandleFunc("/inventaire/articles/{id}", perm("inventaire:edit", h.updateArticle)).Methods(http.MethodPut)
	api.HandleFunc("/inventaire/articles/{id}", perm("inventaire:edit", h.deleteArticle)).Methods(http.MethodDelete)
	api.HandleFunc("/inventaire/articles/{id}/stock", perm("inventaire:edit", h.adjustStock)).Methods(http.MethodPost)
	api.HandleFunc("/inventaire/alerts", perm("inventaire:view", h.lowStock)).Methods(http.MethodGet)
	api.HandleFunc("/inventaire/factures", perm("inventaire:view", h.listFactures)).Methods(http.MethodGet)
	api.HandleFunc("/inventaire/factures", perm("inventaire:edit", h.createFacture)).Methods(http.MethodPost)
	api.HandleFunc("/inventaire/factures/{id}", perm("inventaire:view", h.getFacture)).Methods(http.MethodGet)
	api.HandleFunc("/inventaire/factures/{id}", perm("inventaire:edit", h.deleteFacture)).Methods(http.MethodDelete)
	api.HandleFunc("/inventaire/materiel", perm("inventaire:view", h.listMateriels)).Methods(http.MethodGet)
	api.HandleFunc("/inventaire/materiel", perm("inventaire:edit", h.createMateriel)).Methods(http.MethodPost)
	api.HandleFunc("/inventaire/materiel/{id}", perm("inventaire:view", h.getMateriel)).Methods(http.MethodGet)
	api.HandleFunc("/inventaire/materiel/{id}", perm("inventaire:edit", h.updateMateriel)).Methods(http.MethodPut)
	api.HandleFunc("/inventaire/materiel/{id}", perm("inventaire:edit", h.deleteMateriel)).Methods(http.MethodDelete)

	// pedagogie
	api.HandleFunc("/pedagogie/fiches", perm("pedagogie:view", h.listFiches)).Methods(http.MethodGet)
	api.HandleFunc("/pedagogie/fiches", perm("pedagogie:view", h.createFiche)).Methods(http.MethodPost)
	api.HandleFunc("/pedagogie/fiches/{id}", perm("pedagogie:view", h.getFiche)).Methods(http.MethodGet)
	api.HandleFunc("/pedagogie/fiches/{id}", perm("pedagogie:view", h.updateFiche)).Methods(http.MethodPut)
	api.HandleFunc("/pedagogie/fiches/{id}", perm("pedagogie:view", h.deleteFiche)).Methods(http.MethodDelete)

	// reporting
	api.HandleFunc("/stats", perm("stats:view", h.stats)).Methods(http.MethodGet)
	api.HandleFunc("/statsimpact", perm("statsimpact:view", h.statsImpact)).Methods(http.MethodGet)
	api.HandleFunc("/bilans/annuel", perm("bilans:view", h.bilanAnnuel)).Methods(http.MethodGet)
	api.HandleFunc("/bilans/lourd", perm("bilans:lourds:view", h.bilanLourd)).Methods(http.MethodGet)
	api.HandleFunc("/controle", perm("controle:view", h.controle)).Methods(http.MethodGet)
	api.HandleFunc("/controle/audit", perm("controle:view", h.controleAudit)).Methods(http.MethodGet)

	// admin
	api.HandleFunc("/admin/users", perm("admin:users", h.listUsers)).Methods(http.MethodGet)
	api.HandleFunc("/admin/users", perm("admin:users", h.createUser)).Methods(http.MethodPost)
	api.HandleFunc("/admin/users/{id}", perm("admin:users", h.getUser)).Methods(http.MethodGet)
	api.HandleFunc("/admin/users/{id}", perm("admin:users", h.updateUser)).Methods(http.MethodPut)
	api.HandleFunc("/admin/users/{id}", perm("admin:users", h.deleteUser)).Methods(http.MethodDelete)
	api.HandleFunc("/admin/users/{id}/activate", perm("admin:users", h.setUserActive)).Methods(http.MethodPost)
	api.HandleFunc("/admin/users/{id}/password", perm("admin:users", h.resetUserPassword)).Methods(http.MethodPost)
	api.HandleFunc("/admin/users/{id}/roles", perm("admin:users", h.userRoles)).Methods(http.MethodGet)
	api.HandleFunc("/admin/users/{id}/roles", perm("admin:rbac", h.setUserRoles)).Methods(http.MethodPut)
	api.HandleFunc("/admin/roles", perm("admin:rbac", h.listRoles)).Methods(http.MethodGet)
	api.HandleFunc("/admin/roles", perm("admin:rbac", h.createRole)).Methods(http.MethodPost)
	api.HandleFunc("/admin/roles/{name}/permissions", perm("admin:rbac", h.setRolePermissions)).Methods(http.MethodPut)
	api.HandleFunc("/admin/permissions", perm("admin:rbac", h.listPermissions)).Methods(http.MethodGet)
	api.HandleFunc("/admin/system", perm("admin:users", h.systemStatus)).Methods(http.MethodGet)
	api.HandleFunc("/admin/janitor/run", perm("admin:users", h.runJanitor)).Methods(http.MethodPost)

	// CORS wraps the router itself: preflight OPTIONS requests have no
	// registered route, so they must be answered before mux matching.
	return middleware.CORS(cfg.AllowedOrigins)(root)
}

// perm gates a handler on one permission code.
func perm(code string, fn http.HandlerFunc) http.HandlerFunc {
	return middleware.RequirePerm(code, fn)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// idParam parses the named numeric route variable.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// queryInt reads an integer query parameter, falling back when absent or
// unparseable.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// exerciceParam returns the requested budget year, defaulting to the
// current one.
func exerciceParam(r *http.Request) int {
	return queryInt(r, "exercice", time.Now().Year())
}

// respondError maps the shared service sentinels onto HTTP statuses and
// falls back to the caller's default for anything unrecognized. Handlers
// pass 400 after decode-and-write operations and 500 after reads.
func respondError(w http.ResponseWriter, err error, fallback int) {
	status := fallback
	switch {
	case errors.Is(err, sql.ErrNoRows):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, activite.ErrDuplicatePresence),
		errors.Is(err, activite.ErrDeleted),
		errors.Is(err, budgetsvc.ErrHasLignes),
		errors.Is(err, budgetsvc.ErrHasDepenses),
		errors.Is(err, projetssvc.ErrHasCharges),
		errors.Is(err, projetssvc.ErrHasDepenses),
		errors.Is(err, participantssvc.ErrQuartierUsed),
		errors.Is(err, inventairesvc.ErrLigneReferenced):
		status = http.StatusConflict
	case errors.Is(err, activite.ErrKioskClosed):
		status = http.StatusGone
	case errors.Is(err, activite.ErrBadPIN):
		status = http.StatusForbidden
	case errors.Is(err, budgetsvc.ErrParent),
		errors.Is(err, rbacsvc.ErrUnknownPermission):
		status = http.StatusBadRequest
	}
	httputil.WriteError(w, status, err)
}
