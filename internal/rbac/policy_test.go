package rbac

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulfilhub/dashboard/internal/shared"
)

func TestDefaultPolicyCoversResources(t *testing.T) {
	p := mustPolicy(t)
	require.NoError(t, p.Validate([]string{
		"cooperations", "brands", "products", "marketplaces", "users", "shipping-services",
		"orders", "customers", "sweeping-orders", "printings", "packings", "shippings", "stocks",
	}))
	err := p.Validate([]string{"stocks", "returns"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returns")
}

func TestPolicyAllowsResource(t *testing.T) {
	p := mustPolicy(t)
	assert.True(t, p.AllowsResource(shared.RoleAdminIT, "products"))
	assert.False(t, p.AllowsResource(shared.RoleAdminIT, "orders"))
	assert.True(t, p.AllowsResource(shared.RoleShippingStaff, "sweeping-orders"))
	assert.False(t, p.AllowsResource(shared.Role("nobody"), "stocks"))
}

func TestParsePolicyRejectsUnknownRole(t *testing.T) {
	_, err := ParsePolicy([]byte(`
rules:
  - resource: brands
    prefix: /dashboard/brands
    roles: [INTERN]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERN")
}

func TestParsePolicyRejectsPrefixOutsideDashboard(t *testing.T) {
	_, err := ParsePolicy([]byte(`
rules:
  - resource: brands
    prefix: /admin/brands
    roles: [ADMIN]
`))
	require.Error(t, err)
}

func TestParsePolicyRejectsDuplicatePrefix(t *testing.T) {
	_, err := ParsePolicy([]byte(`
rules:
  - resource: brands
    prefix: /dashboard/brands
    roles: [ADMIN]
  - resource: labels
    prefix: /dashboard/brands/
    roles: [ADMIN_IT]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "labels")
}

func TestParsePolicyRejectsEmptyRoles(t *testing.T) {
	_, err := ParsePolicy([]byte(`
rules:
  - resource: brands
    prefix: /dashboard/brands
    roles: []
`))
	require.Error(t, err)
}

func TestLoadPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - resource: stocks
    prefix: /dashboard/stocks
    roles: [MANAGER]
`), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.True(t, p.AllowsResource(shared.RoleManager, "stocks"))
	assert.False(t, p.AllowsResource(shared.RoleCEO, "stocks"))

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	p, err = LoadPolicy("")
	require.NoError(t, err)
	assert.Len(t, p.Rules(), 13)
}
