package storage

import (
	"context"
	"errors"
	"time"

	"github.com/assogest/assogest/internal/app/domain/activite"
	"github.com/assogest/assogest/internal/app/domain/budget"
	"github.com/assogest/assogest/internal/app/domain/inventaire"
	"github.com/assogest/assogest/internal/app/domain/participant"
	"github.com/assogest/assogest/internal/app/domain/pedagogie"
	"github.com/assogest/assogest/internal/app/domain/projet"
	"github.com/assogest/assogest/internal/app/domain/reporting"
	"github.com/assogest/assogest/internal/app/domain/user"
)

// ErrDuplicate reports a uniqueness conflict (email, role name, permission
// code, or a participant already signed into a session).
var ErrDuplicate = errors.New("storage: duplicate")

// UserStore persists staff accounts and their login sessions.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateUserSession(ctx context.Context, s user.Session) (user.Session, error)
	GetSessionByTokenHash(ctx context.Context, hash string) (user.Session, error)
	DeleteSessionByTokenHash(ctx context.Context, hash string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// RBACStore persists roles, permissions and their assignments.
type RBACStore interface {
	CreatePermission(ctx context.Context, p user.Permission) (user.Permission, error)
	UpdatePermission(ctx context.Context, p user.Permission) (user.Permission, error)
	ListPermissions(ctx context.Context) ([]user.Permission, error)

	CreateRole(ctx context.Context, r user.Role) (user.Role, error)
	GetRoleByName(ctx context.Context, name string) (user.Role, error)
	ListRoles(ctx context.Context) ([]user.Role, error)
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	ListRolePermissions(ctx context.Context, roleID int64) ([]user.Permission, error)

	AssignRole(ctx context.Context, userID, roleID int64) error
	ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
	ListUserRoles(ctx context.Context, userID int64) ([]user.Role, error)
	ListUserPermissions(ctx context.Context, userID int64) ([]user.Permission, error)
}

// DepenseFilter narrows expense listings. Zero fields match everything.
type DepenseFilter struct {
	LigneBudgetID  int64
	ChargeProjetID int64
	FactureLigneID int64
	Annee          int
}

// BudgetStore persists subventions, budget lines and expenses.
type BudgetStore interface {
	CreateSubvention(ctx context.Context, s budget.Subvention) (budget.Subvention, error)
	UpdateSubvention(ctx context.Context, s budget.Subvention) (budget.Subvention, error)
	GetSubvention(ctx context.Context, id int64) (budget.Subvention, error)
	ListSubventions(ctx context.Context) ([]budget.Subvention, error)
	DeleteSubvention(ctx context.Context, id int64) error

	CreateLigneBudget(ctx context.Context, l budget.LigneBudget) (budget.LigneBudget, error)
	UpdateLigneBudget(ctx context.Context, l budget.LigneBudget) (budget.LigneBudget, error)
	GetLigneBudget(ctx context.Context, id int64) (budget.LigneBudget, error)
	ListLignesBudget(ctx context.Context, subventionID int64) ([]budget.LigneBudget, error)
	DeleteLigneBudget(ctx context.Context, id int64) error

	CreateDepense(ctx context.Context, d budget.Depense) (budget.Depense, error)
	UpdateDepense(ctx context.Context, d budget.Depense) (budget.Depense, error)
	GetDepense(ctx context.Context, id int64) (budget.Depense, error)
	ListDepenses(ctx context.Context, filter DepenseFilter) ([]budget.Depense, error)
	DeleteDepense(ctx context.Context, id int64) error
}

// ProjetStore persists projects and their charge lines.
type ProjetStore interface {
	CreateProjet(ctx context.Context, p projet.Projet) (projet.Projet, error)
	UpdateProjet(ctx context.Context, p projet.Projet) (projet.Projet, error)
	GetProjet(ctx context.Context, id int64) (projet.Projet, error)
	ListProjets(ctx context.Context) ([]projet.Projet, error)
	DeleteProjet(ctx context.Context, id int64) error

	CreateChargeProjet(ctx context.Context, c projet.ChargeProjet) (projet.ChargeProjet, error)
	UpdateChargeProjet(ctx context.Context, c projet.ChargeProjet) (projet.ChargeProjet, error)
	GetChargeProjet(ctx context.Context, id int64) (projet.ChargeProjet, error)
	ListChargesProjet(ctx context.Context, projetID int64) ([]projet.ChargeProjet, error)
	DeleteChargeProjet(ctx context.Context, id int64) error
}

// ActiviteStore persists workshops, sessions, attendance and archives.
// Soft-deleted rows stay readable until purged.
type ActiviteStore interface {
	CreateAtelier(ctx context.Context, a activite.Atelier) (activite.Atelier, error)
	UpdateAtelier(ctx context.Context, a activite.Atelier) (activite.Atelier, error)
	GetAtelier(ctx context.Context, id int64) (activite.Atelier, error)
	GetAtelierByExternalRef(ctx context.Context, ref string) (activite.Atelier, error)
	ListAteliers(ctx context.Context, includeDeleted bool) ([]activite.Atelier, error)
	SoftDeleteAtelier(ctx context.Context, id int64, at time.Time) error
	RestoreAtelier(ctx context.Context, id int64) error
	PurgeAteliers(ctx context.Context, deletedBefore time.Time) (int64, error)

	CreateSession(ctx context.Context, s activite.Session) (activite.Session, error)
	UpdateSession(ctx context.Context, s activite.Session) (activite.Session, error)
	GetSession(ctx context.Context, id int64) (activite.Session, error)
	GetSessionByKioskToken(ctx context.Context, token string) (activite.Session, error)
	ListSessions(ctx context.Context, atelierID int64, includeDeleted bool) ([]activite.Session, error)
	SoftDeleteSession(ctx context.Context, id int64, at time.Time) error
	RestoreSession(ctx context.Context, id int64) error
	PurgeSessions(ctx context.Context, deletedBefore time.Time) (int64, error)

	CreatePresence(ctx context.Context, p activite.Presence) (activite.Presence, error)
	ListPresences(ctx context.Context, sessionID int64) ([]activite.Presence, error)
	DeletePresence(ctx context.Context, id int64) error

	CreateArchive(ctx context.Context, a activite.Archive) (activite.Archive, error)
	GetArchive(ctx context.Context, id int64) (activite.Archive, error)
	ListArchives(ctx context.Context, includeDeleted bool) ([]activite.Archive, error)
	SoftDeleteArchive(ctx context.Context, id int64, at time.Time) error
	RestoreArchive(ctx context.Context, id int64) error
	PurgeArchives(ctx context.Context, deletedBefore time.Time) (int64, error)
}

// ParticipantStore persists participants and districts.
type ParticipantStore interface {
	CreateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error)
	UpdateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error)
	GetParticipant(ctx context.Context, id int64) (participant.Participant, error)
	ListParticipants(ctx context.Context, search string) ([]participant.Participant, error)
	DeleteParticipant(ctx context.Context, id int64) error

	CreateQuartier(ctx context.Context, q participant.Quartier) (participant.Quartier, error)
	GetQuartier(ctx context.Context, id int64) (participant.Quartier, error)
	ListQuartiers(ctx context.Context) ([]participant.Quartier, error)
	DeleteQuartier(ctx context.Context, id int64) error
}

// InventaireStore persists stock items, invoices and equipment.
type InventaireStore interface {
	CreateArticle(ctx context.Context, a inventaire.Article) (inventaire.Article, error)
	UpdateArticle(ctx context.Context, a inventaire.Article) (inventaire.Article, error)
	GetArticle(ctx context.Context, id int64) (inventaire.Article, error)
	ListArticles(ctx context.Context) ([]inventaire.Article, error)
	DeleteArticle(ctx context.Context, id int64) error
	AdjustArticleStock(ctx context.Context, id int64, delta float64) (inventaire.Article, error)

	CreateFacture(ctx context.Context, f inventaire.Facture) (inventaire.Facture, error)
	GetFacture(ctx context.Context, id int64) (inventaire.Facture, error)
	ListFactures(ctx context.Context) ([]inventaire.Facture, error)
	DeleteFacture(ctx context.Context, id int64) error
	CreateFactureLigne(ctx context.Context, l inventaire.FactureLigne) (inventaire.FactureLigne, error)
	GetFactureLigne(ctx context.Context, id int64) (inventaire.FactureLigne, error)
	ListFactureLignes(ctx context.Context, factureID int64) ([]inventaire.FactureLigne, error)
	DeleteFactureLigne(ctx context.Context, id int64) error

	CreateMateriel(ctx context.Context, m inventaire.Materiel) (inventaire.Materiel, error)
	UpdateMateriel(ctx context.Context, m inventaire.Materiel) (inventaire.Materiel, error)
	GetMateriel(ctx context.Context, id int64) (inventaire.Materiel, error)
	ListMateriels(ctx context.Context) ([]inventaire.Materiel, error)
	DeleteMateriel(ctx context.Context, id int64) error
}

// PedagogieStore persists pedagogical sheets.
type PedagogieStore interface {
	CreateFiche(ctx context.Context, f pedagogie.Fiche) (pedagogie.Fiche, error)
	UpdateFiche(ctx context.Context, f pedagogie.Fiche) (pedagogie.Fiche, error)
	GetFiche(ctx context.Context, id int64) (pedagogie.Fiche, error)
	ListFiches(ctx context.Context, secteur string) ([]pedagogie.Fiche, error)
	DeleteFiche(ctx context.Context, id int64) error
}

// ReportingStore serves read-only aggregates. The SQL implementation pushes
// the grouping into the database; the in-memory one computes it in Go.
type ReportingStore interface {
	BudgetSynthese(ctx context.Context, annee int) (reporting.BudgetSynthese, error)
	ProjetSynthese(ctx context.Context, projetID int64) (reporting.ProjetSynthese, error)
	Dashboard(ctx context.Context, annee int) (reporting.Dashboard, error)
	StatsPresence(ctx context.Context, annee int) (reporting.StatsPresence, error)
	StatsImpact(ctx context.Context, secteur string) (reporting.StatsImpact, error)
	BilanLourd(ctx context.Context, annee int) ([]reporting.BilanLourdEntry, error)
	CountArchives(ctx context.Context) (int, error)
	ControleIssues(ctx context.Context) ([]reporting.Issue, error)
}
