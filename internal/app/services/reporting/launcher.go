package reporting

// PermissionChecker is the slice of the authenticated principal the
// launcher needs.
type PermissionChecker interface {
	Can(code string) bool
}

// Tile is one entry of the launcher screen.
type Tile struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	Path       string `json:"path"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// The launcher mirrors the registered route groups; each tile is gated by
// the same permission its routes check.
var tiles = []Tile{
	{Code: "dashboard", Label: "Tableau de bord", Path: "/api/dashboard", Permission: "dashboard:view"},
	{Code: "budget", Label: "Budget & subventions", Path: "/api/budget/subventions", Permission: "subventions:view"},
	{Code: "projets", Label: "Projets", Path: "/api/projets", Permission: "projets:view"},
	{Code: "activite", Label: "Ateliers & sessions", Path: "/api/activite/ateliers", Permission: "ateliers:view"},
	{Code: "emargement", Label: "Émargement", Path: "/api/activite/sessions", Permission: "emargement:view"},
	{Code: "participants", Label: "Participants", Path: "/api/participants", Permission: "participants:view"},
	{Code: "inventaire", Label: "Inventaire", Path: "/api/inventaire/articles", Permission: "inventaire:view"},
	{Code: "materiel", Label: "Matériel", Path: "/api/inventaire/materiel", Permission: "inventaire:view"},
	{Code: "pedagogie", Label: "Fiches pédagogiques", Path: "/api/pedagogie/fiches", Permission: "pedagogie:view"},
	{Code: "stats", Label: "Statistiques", Path: "/api/stats", Permission: "stats:view"},
	{Code: "statsimpact", Label: "Stats impact", Path: "/api/statsimpact", Permission: "statsimpact:view"},
	{Code: "bilans", Label: "Bilans", Path: "/api/bilans/annuel", Permission: "bilans:view"},
	{Code: "controle", Label: "Contrôle qualité", Path: "/api/controle", Permission: "controle:view"},
	{Code: "admin", Label: "Administration", Path: "/api/admin/users", Permission: "admin:users"},
}

// Launcher returns the module tiles with the caller's access resolved.
func (s *Service) Launcher(p PermissionChecker) []Tile {
	out := make([]Tile, len(tiles))
	for i, t := range tiles {
		t.Allowed = p != nil && p.Can(t.Permission)
		out[i] = t
	}
	return out
}
