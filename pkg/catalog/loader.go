package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/lib/pq"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk YAML shape:
//
//	modules:
//	  - key: pricing_engine
//	    name: Pricing Engine
//	    core: true
//	  - key: furniture_configurator
//	    name: Furniture Configurator
//	    depends_on: [pricing_engine]
type catalogFile struct {
	Modules []Module `yaml:"modules"`
}

// LoadFile reads and validates a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(file.Modules) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no modules", path)
	}

	c, err := New(file.Modules)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog in %s: %w", path, err)
	}
	return c, nil
}

// LoadDB reads and validates the catalog from the module_catalog table.
func LoadDB(ctx context.Context, db *sql.DB) (*Catalog, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT module_key, display_name, dependency_keys, is_core
		FROM module_catalog
		ORDER BY module_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query module catalog: %w", err)
	}
	defer rows.Close()

	var modules []Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.Key, &m.Name, pq.Array(&m.DependencyKeys), &m.Core); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("module_catalog table is empty")
	}

	c, err := New(modules)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog in database: %w", err)
	}
	return c, nil
}
