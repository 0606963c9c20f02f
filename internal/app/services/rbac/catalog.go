package rbac

import "strings"

// Definition couples a permission code with its display label. The category
// is derived from the code prefix at bootstrap time.
type Definition struct {
	Code  string
	Label string
}

// DefaultPermissions is the canonical permission catalog. Bootstrap keeps
// the database aligned with this list without ever deleting extra rows.
var DefaultPermissions = []Definition{
	{"dashboard:view", "Voir le dashboard"},

	{"subventions:view", "Voir les subventions"},
	{"subventions:edit", "Créer/éditer les subventions"},
	{"subventions:delete", "Supprimer les subventions"},

	{"depenses:view", "Voir les dépenses"},
	{"depenses:create", "Créer des dépenses"},
	{"depenses:delete", "Supprimer les dépenses"},

	{"budget:delete", "Supprimer une ligne budgétaire"},

	{"projets:view", "Voir les projets"},
	{"projets:edit", "Créer/éditer les projets"},
	{"projets:delete", "Supprimer les projets"},

	{"participants:view", "Voir les participants"},
	{"participants:edit", "Créer/éditer les participants"},
	{"participants:delete", "Supprimer les participants"},

	{"inventaire:view", "Voir l'inventaire"},
	{"inventaire:edit", "Créer/éditer l'inventaire"},

	{"emargement:view", "Voir l'émargement"},

	{"pedagogie:view", "Voir la pédagogie"},

	{"stats:view", "Voir les stats (secteur)"},
	{"stats:view_all", "Voir les stats (tous secteurs)"},

	{"statsimpact:view", "Voir les données ateliers (secteur)"},
	{"statsimpact:view_all", "Voir les données ateliers (tous secteurs)"},

	{"controle:view", "Accéder au contrôle"},

	{"bilans:view", "Voir les bilans"},

	{"activite:delete", "Supprimer une activité"},
	{"activite:purge", "Purger des activités"},

	{"ateliers:view", "Voir les ateliers"},
	{"ateliers:sync", "Synchroniser les ateliers"},

	{"admin:users", "Gérer les utilisateurs"},
	{"admin:rbac", "Gérer les droits (RBAC)"},
}

// Template role names.
const (
	RoleAdminTech          = "admin_tech"
	RoleDirection          = "direction"
	RoleFinance            = "finance"
	RoleResponsableSecteur = "responsable_secteur"
)

// RoleTemplates maps each built-in role to the permission codes it grants.
// Bootstrap resets these roles to their template; custom roles are untouched.
var RoleTemplates = map[string][]string{
	RoleAdminTech: {
		"dashboard:view",
		"admin:users",
		"admin:rbac",
	},
	RoleDirection: allPermissionCodes(),
	RoleFinance: {
		"dashboard:view",

		"subventions:view",
		"subventions:edit",
		"subventions:delete",

		"depenses:view",
		"depenses:create",
		"depenses:delete",

		"projets:view",
		"projets:edit",
		"projets:delete",

		"participants:view",
		"inventaire:view",
		"emargement:view",

		"stats:view",
		"bilans:view",

		"ateliers:view",
		"ateliers:sync",
	},
	RoleResponsableSecteur: {
		"dashboard:view",

		"subventions:view",

		"depenses:view",
		"depenses:create",

		"projets:view",
		"projets:edit",

		"participants:view",
		"participants:edit",

		"inventaire:view",
		"emargement:view",

		"pedagogie:view",
		"stats:view",
		"bilans:view",

		"ateliers:view",
		"ateliers:sync",
	},
}

func allPermissionCodes() []string {
	codes := make([]string, len(DefaultPermissions))
	for i, def := range DefaultPermissions {
		codes[i] = def.Code
	}
	return codes
}

var categoryNames = map[string]string{
	"dashboard":    "Dashboard",
	"subventions":  "Subventions",
	"depenses":     "Dépenses",
	"budget":       "Budget",
	"projets":      "Projets",
	"participants": "Participants",
	"inventaire":   "Inventaire",
	"emargement":   "Émargement",
	"pedagogie":    "Pédagogie",
	"stats":        "Stats",
	"statsimpact":  "Stats impact",
	"bilans":       "Bilans",
	"ateliers":     "Ateliers",
	"admin":        "Admin",
}

// CategoryFor derives the display category from a permission code prefix.
// Unknown prefixes fall back to the capitalized prefix itself.
func CategoryFor(code string) string {
	module := code
	if i := strings.Index(code, ":"); i >= 0 {
		module = code[:i]
	}
	module = strings.TrimSpace(module)
	if name, ok := categoryNames[module]; ok {
		return name
	}
	if module == "" {
		return ""
	}
	return strings.ToUpper(module[:1]) + strings.ToLower(module[1:])
}

// legacyRoleMap translates the legacy single-role column to RBAC role names.
var legacyRoleMap = map[string]string{
	"directrice":          RoleDirection,
	"direction":           RoleDirection,
	"financiere":          RoleFinance,
	"financière":          RoleFinance,
	"finance":             RoleFinance,
	"responsable_secteur": RoleResponsableSecteur,
	"admin_tech":          RoleAdminTech,
}

// NormalizeLegacyRole maps a legacy role string to its RBAC role name.
// Blank defaults to responsable_secteur; unmapped values pass through so a
// matching custom role can still be attached.
func NormalizeLegacyRole(legacy string) string {
	legacy = strings.TrimSpace(legacy)
	if legacy == "" {
		return RoleResponsableSecteur
	}
	if target, ok := legacyRoleMap[legacy]; ok {
		return target
	}
	return legacy
}

// permEquivalents lists older permission spellings still found in stored
// role grants. A check on the key passes when any member is granted.
var permEquivalents = map[string][]string{
	"statsimpact:view":    {"statsimpact:view", "stats:view"},
	"bilan:view":          {"bilan:view", "bilans:view"},
	"bilans:lourds:view":  {"bilans:lourds:view", "bilans:view"},
	"participants:update": {"participants:update", "participants:edit"},
	"participants:write":  {"participants:write", "participants:edit"},
	"participant:edit":    {"participant:edit", "participants:edit"},
	"projets_edit":        {"projets_edit", "projets:edit"},
}

// Expand returns the set of codes that satisfy a permission check. Unknown
// codes expand to themselves; blank expands to nothing.
func Expand(code string) []string {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	if eq, ok := permEquivalents[code]; ok {
		return append([]string(nil), eq...)
	}
	return []string{code}
}
