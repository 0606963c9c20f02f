// Package main creates or resets an account from the command line, for the
// first deployment and for recovering a locked-out admin.
package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/joho/godotenv"

	app "github.com/assogest/assogest/internal/app"
	"github.com/assogest/assogest/internal/app/services/auth"
	"github.com/assogest/assogest/internal/app/storage/sqlstore"
	"github.com/assogest/assogest/internal/config"
	"github.com/assogest/assogest/internal/logging"
	"github.com/assogest/assogest/internal/platform/database"
	"github.com/assogest/assogest/internal/platform/ensureschema"
	"github.com/assogest/assogest/internal/platform/migrations"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML configuration")
		email      = flag.String("email", "admin@test.local", "account email")
		password   = flag.String("password", "admin1234", "account password")
		nom        = flag.String("nom", "Admin Test", "display name")
		role       = flag.String("role", "direction", "role to attach (direction, finance, responsable_secteur, admin_tech or a custom role)")
		secteur    = flag.String("secteur", "", "secteur for scoped statistics")
	)
	flag.Parse()

	_ = godotenv.Load()

	log := logging.NewDefault("bootstrap-user")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}

	ctx := context.Background()

	db, dialect, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db, dialect); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}
	if err := ensureschema.Apply(ctx, db, dialect, log.Named("ensureschema")); err != nil {
		log.Fatal().Err(err).Msg("reconcile legacy schema")
	}

	store := sqlstore.New(db, dialect)

	// app.New runs the RBAC bootstrap, so built-in roles exist before the
	// account is attached to one.
	application, err := app.New(app.Stores{
		Users:        store,
		RBAC:         store,
		Budget:       store,
		Projets:      store,
		Activite:     store,
		Participants: store,
		Inventaire:   store,
		Pedagogie:    store,
		Reporting:    store,
	}, app.Options{JWTSecret: cfg.Auth.JWTSecret}, log.Named("app"))
	if err != nil {
		log.Fatal().Err(err).Msg("build application")
	}

	u, created, err := application.Auth.EnsureUser(ctx, auth.CreateUserInput{
		Email:    *email,
		Password: *password,
		Nom:      *nom,
		Role:     *role,
		Secteur:  *secteur,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("ensure user")
	}

	roles, err := application.RBAC.UserRoles(ctx, u.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("list roles")
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}

	verb := "updated"
	if created {
		verb = "created"
	}
	fmt.Printf("account %s: %s (id %d)\n", verb, u.Email, u.ID)
	fmt.Printf("  legacy role: %s\n", u.Role)
	fmt.Printf("  roles: %s\n", strings.Join(names, ", "))
	if u.Secteur != "" {
		fmt.Printf("  secteur: %s\n", u.Secteur)
	}
}
