package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPermissions(t *testing.T) {
	assert.Len(t, DefaultPermissions, 30)

	codes := make(map[string]bool)
	for _, def := range DefaultPermissions {
		assert.NotEmpty(t, def.Label, def.Code)
		assert.False(t, codes[def.Code], "duplicate code %s", def.Code)
		codes[def.Code] = true
	}

	assert.True(t, codes["dashboard:view"])
	assert.True(t, codes["admin:rbac"])
	assert.True(t, codes["activite:purge"])
}

func TestRoleTemplates(t *testing.T) {
	assert.Len(t, RoleTemplates[RoleAdminTech], 3)
	assert.Len(t, RoleTemplates[RoleDirection], len(DefaultPermissions))
	assert.Len(t, RoleTemplates[RoleFinance], 17)
	assert.Len(t, RoleTemplates[RoleResponsableSecteur], 15)

	known := make(map[string]bool)
	for _, def := range DefaultPermissions {
		known[def.Code] = true
	}
	for role, codes := range RoleTemplates {
		for _, code := range codes {
			assert.True(t, known[code], "%s grants unknown code %s", role, code)
		}
	}
}

func TestCategoryFor(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"dashboard:view", "Dashboard"},
		{"depenses:create", "Dépenses"},
		{"emargement:view", "Émargement"},
		{"statsimpact:view_all", "Stats impact"},
		{"admin:rbac", "Admin"},
		{"exports:run", "Exports"},
		{"noprefix", "Noprefix"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CategoryFor(tc.code), tc.code)
	}
}

func TestNormalizeLegacyRole(t *testing.T) {
	cases := []struct {
		legacy string
		want   string
	}{
		{"directrice", RoleDirection},
		{"direction", RoleDirection},
		{"financiere", RoleFinance},
		{"financière", RoleFinance},
		{"finance", RoleFinance},
		{"responsable_secteur", RoleResponsableSecteur},
		{"admin_tech", RoleAdminTech},
		{"", RoleResponsableSecteur},
		{"  ", RoleResponsableSecteur},
		{"benevole", "benevole"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeLegacyRole(tc.legacy), "legacy %q", tc.legacy)
	}
}

func TestExpand(t *testing.T) {
	assert.ElementsMatch(t, []string{"statsimpact:view", "stats:view"}, Expand("statsimpact:view"))
	assert.ElementsMatch(t, []string{"bilans:lourds:view", "bilans:view"}, Expand("bilans:lourds:view"))
	assert.ElementsMatch(t, []string{"participants:write", "participants:edit"}, Expand("participants:write"))
	assert.Equal(t, []string{"subventions:edit"}, Expand("subventions:edit"))
	assert.Empty(t, Expand(""))
	assert.Empty(t, Expand("   "))
}
