package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")

	content := `modules:
  - key: pricing_engine
    name: Pricing Engine
    core: true
  - key: furniture_configurator
    name: Furniture Configurator
    depends_on:
      - pricing_engine
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	m, ok := c.Lookup("furniture_configurator")
	require.True(t, ok)
	assert.Equal(t, []string{"pricing_engine"}, m.DependencyKeys)

	core, ok := c.Lookup("pricing_engine")
	require.True(t, ok)
	assert.True(t, core.Core)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "empty module list",
			content: "modules: []\n",
			wantErr: "defines no modules",
		},
		{
			name:    "malformed yaml",
			content: "modules: [key: {{",
			wantErr: "failed to parse",
		},
		{
			name: "cyclic catalog rejected",
			content: `modules:
  - key: alpha
    depends_on: [beta]
  - key: beta
    depends_on: [alpha]
`,
			wantErr: "dependency cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read catalog file")
}

func TestLoadDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"module_key", "display_name", "dependency_keys", "is_core"}).
		AddRow("furniture_configurator", "Furniture Configurator", []byte("{pricing_engine}"), false).
		AddRow("pricing_engine", "Pricing Engine", []byte("{}"), true)
	mock.ExpectQuery("SELECT module_key, display_name, dependency_keys, is_core").WillReturnRows(rows)

	c, err := LoadDB(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	m, ok := c.Lookup("furniture_configurator")
	require.True(t, ok)
	assert.Equal(t, []string{"pricing_engine"}, m.DependencyKeys)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadDBEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"module_key", "display_name", "dependency_keys", "is_core"})
	mock.ExpectQuery("SELECT module_key, display_name, dependency_keys, is_core").WillReturnRows(rows)

	_, err = LoadDB(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module_catalog table is empty")
}

func TestLoadDBQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT module_key, display_name, dependency_keys, is_core").
		WillReturnError(assert.AnError)

	_, err = LoadDB(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query module catalog")
}
