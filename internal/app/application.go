package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/assogest/assogest/internal/app/services/activite"
	authsvc "github.com/assogest/assogest/internal/app/services/auth"
	budgetsvc "github.com/assogest/assogest/internal/app/services/budget"
	inventairesvc "github.com/assogest/assogest/internal/app/services/inventaire"
	janitorsvc "github.com/assogest/assogest/internal/app/services/janitor"
	participantssvc "github.com/assogest/assogest/internal/app/services/participants"
	pedagogiesvc "github.com/assogest/assogest/internal/app/services/pedagogie"
	projetssvc "github.com/assogest/assogest/internal/app/services/projets"
	rbacsvc "github.com/assogest/assogest/internal/app/services/rbac"
	reportingsvc "github.com/assogest/assogest/internal/app/services/reporting"
	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/app/storage/memory"
	"github.com/assogest/assogest/internal/app/system"
	"github.com/assogest/assogest/internal/logging"
	"github.com/assogest/assogest/internal/platform/cache"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users        storage.UserStore
	RBAC         storage.RBACStore
	Budget       storage.BudgetStore
	Projets      storage.ProjetStore
	Activite     storage.ActiviteStore
	Participants storage.ParticipantStore
	Inventaire   storage.InventaireStore
	Pedagogie    storage.PedagogieStore
	Reporting    storage.ReportingStore
}

// Options carries the runtime settings the services need beyond their
// stores. The zero value works for tests: dev secret, default TTLs, no
// session cache, no planning feed.
type Options struct {
	JWTSecret    string
	SessionTTL   time.Duration
	SessionCache cache.Cache

	PlanningFeedURL string
	PlanningToken   string
	PlanningTimeout time.Duration

	Janitor janitorsvc.Config
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logging.Logger

	RBAC         *rbacsvc.Service
	Auth         *authsvc.Service
	Budget       *budgetsvc.Service
	Projets      *projetssvc.Service
	Activite     *activite.Service
	Hub          *activite.Hub
	Planning     *activite.PlanningImporter
	Participants *participantssvc.Service
	Inventaire   *inventairesvc.Service
	Pedagogie    *pedagogiesvc.Service
	Reporting    *reportingsvc.Service
	Janitor      *janitorsvc.Service
}

// New builds a fully initialised application with the provided stores. RBAC
// bootstrap runs here; its failure is logged, not fatal, so a read-only
// database replica can still serve.
func New(stores Stores, opts Options, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.RBAC == nil {
		stores.RBAC = mem
	}
	if stores.Budget == nil {
		stores.Budget = mem
	}
	if stores.Projets == nil {
		stores.Projets = mem
	}
	if stores.Activite == nil {
		stores.Activite = mem
	}
	if stores.Participants == nil {
		stores.Participants = mem
	}
	if stores.Inventaire == nil {
		stores.Inventaire = mem
	}
	if stores.Pedagogie == nil {
		stores.Pedagogie = mem
	}
	if stores.Reporting == nil {
		stores.Reporting = mem
	}

	if opts.JWTSecret == "" {
		log.Warn().Msg("no JWT secret configured; using the development secret")
		opts.JWTSecret = "dev-secret"
	}

	manager := system.NewManager()

	rbacService := rbacsvc.New(stores.RBAC, stores.Users, log)
	if err := rbacService.Bootstrap(context.Background()); err != nil {
		log.Error().Err(err).Msg("rbac bootstrap failed")
	}

	authService := authsvc.New(stores.Users, rbacService, opts.SessionCache, opts.JWTSecret, opts.SessionTTL, log)

	hub := activite.NewHub(log)
	activiteService := activite.New(stores.Activite, stores.Participants, hub, log)
	budgetService := budgetsvc.New(stores.Budget, stores.Projets, stores.Inventaire, log)
	projetsService := projetssvc.New(stores.Projets, stores.Budget, log)
	participantsService := participantssvc.New(stores.Participants, log)
	inventaireService := inventairesvc.New(stores.Inventaire, stores.Budget, log)
	pedagogieService := pedagogiesvc.New(stores.Pedagogie, stores.Activite, log)
	reportingService := reportingsvc.New(stores.Reporting, log)

	var planning *activite.PlanningImporter
	if opts.PlanningFeedURL != "" {
		timeout := opts.PlanningTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		importer, err := activite.NewPlanningImporter(&http.Client{Timeout: timeout}, opts.PlanningFeedURL, opts.PlanningToken, stores.Activite, log)
		if err != nil {
			return nil, fmt.Errorf("configure planning importer: %w", err)
		}
		planning = importer
	} else {
		log.Warn().Msg("planning feed not configured; sync endpoint disabled")
	}

	janitorService := janitorsvc.New(stores.Users, activiteService, opts.Janitor, log)

	for _, svc := range []system.Service{hub, janitorService} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:      manager,
		log:          log,
		RBAC:         rbacService,
		Auth:         authService,
		Budget:       budgetService,
		Projets:      projetsService,
		Activite:     activiteService,
		Hub:          hub,
		Planning:     planning,
		Participants: participantsService,
		Inventaire:   inventaireService,
		Pedagogie:    pedagogieService,
		Reporting:    reportingService,
		Janitor:      janitorService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
