package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModules() []Module {
	return []Module{
		{Key: "pricing_engine", Name: "Pricing Engine", Core: true},
		{Key: "furniture_configurator", Name: "Furniture Configurator", DependencyKeys: []string{"pricing_engine"}},
		{Key: "showroom_planner", Name: "Showroom Planner", DependencyKeys: []string{"furniture_configurator"}},
		{Key: "logistics_sync", Name: "Logistics Sync"},
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		modules []Module
		wantErr string
	}{
		{
			name:    "valid catalog",
			modules: testModules(),
		},
		{
			name: "invalid key format",
			modules: []Module{
				{Key: "Pricing-Engine"},
			},
			wantErr: "invalid module key",
		},
		{
			name: "duplicate key",
			modules: []Module{
				{Key: "pricing_engine"},
				{Key: "pricing_engine"},
			},
			wantErr: "duplicate module key",
		},
		{
			name: "unresolvable dependency",
			modules: []Module{
				{Key: "furniture_configurator", DependencyKeys: []string{"pricing_engine"}},
			},
			wantErr: "unknown module",
		},
		{
			name: "self dependency is a cycle",
			modules: []Module{
				{Key: "pricing_engine", DependencyKeys: []string{"pricing_engine"}},
			},
			wantErr: "dependency cycle",
		},
		{
			name: "two-node cycle",
			modules: []Module{
				{Key: "alpha", DependencyKeys: []string{"beta"}},
				{Key: "beta", DependencyKeys: []string{"alpha"}},
			},
			wantErr: "dependency cycle",
		},
		{
			name: "longer cycle reported with path",
			modules: []Module{
				{Key: "alpha", DependencyKeys: []string{"beta"}},
				{Key: "beta", DependencyKeys: []string{"gamma"}},
				{Key: "gamma", DependencyKeys: []string{"alpha"}},
			},
			wantErr: "alpha -> beta -> gamma -> alpha",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.modules)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.modules), c.Len())
		})
	}
}

func TestCatalogLookup(t *testing.T) {
	c, err := New(testModules())
	require.NoError(t, err)

	m, ok := c.Lookup("furniture_configurator")
	require.True(t, ok)
	assert.Equal(t, "Furniture Configurator", m.Name)
	assert.Equal(t, []string{"pricing_engine"}, m.DependencyKeys)

	_, ok = c.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestCatalogDefaultsNameToKey(t *testing.T) {
	c, err := New([]Module{{Key: "pricing_engine"}})
	require.NoError(t, err)

	m, ok := c.Lookup("pricing_engine")
	require.True(t, ok)
	assert.Equal(t, "pricing_engine", m.Name)
}

func TestCatalogDependentsOf(t *testing.T) {
	c, err := New(testModules())
	require.NoError(t, err)

	deps := c.DependentsOf("pricing_engine")
	require.Len(t, deps, 1)
	assert.Equal(t, "furniture_configurator", deps[0].Key)
	assert.Equal(t, "Furniture Configurator", deps[0].Name)

	assert.Nil(t, c.DependentsOf("logistics_sync"))
	assert.Nil(t, c.DependentsOf("nonexistent"))
}

func TestCatalogClosure(t *testing.T) {
	c, err := New(testModules())
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
		want []string
	}{
		{
			name: "leaf module is just itself",
			key:  "pricing_engine",
			want: []string{"pricing_engine"},
		},
		{
			name: "direct dependency included",
			key:  "furniture_configurator",
			want: []string{"furniture_configurator", "pricing_engine"},
		},
		{
			name: "transitive chain fully expanded",
			key:  "showroom_planner",
			want: []string{"showroom_planner", "furniture_configurator", "pricing_engine"},
		},
		{
			name: "unknown key",
			key:  "nonexistent",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Closure(tt.key))
		})
	}
}

func TestCatalogClosureIsACopy(t *testing.T) {
	c, err := New(testModules())
	require.NoError(t, err)

	first := c.Closure("furniture_configurator")
	first[0] = "mutated"
	assert.Equal(t, []string{"furniture_configurator", "pricing_engine"}, c.Closure("furniture_configurator"))
}

func TestCatalogModulesStableOrder(t *testing.T) {
	c, err := New(testModules())
	require.NoError(t, err)

	var keys []string
	for _, m := range c.Modules() {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"pricing_engine", "furniture_configurator", "showroom_planner", "logistics_sync"}, keys)
}

func TestCatalogDiamondDependencies(t *testing.T) {
	// Diamonds are legal; only cycles are rejected.
	c, err := New([]Module{
		{Key: "base"},
		{Key: "left", DependencyKeys: []string{"base"}},
		{Key: "right", DependencyKeys: []string{"base"}},
		{Key: "top", DependencyKeys: []string{"left", "right"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"top", "base", "left", "right"}, c.Closure("top"))

	deps := c.DependentsOf("base")
	require.Len(t, deps, 2)
	assert.Equal(t, "left", deps[0].Key)
	assert.Equal(t, "right", deps[1].Key)
}
