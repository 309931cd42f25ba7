package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mobelwerk/gatehouse/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create organizations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS organizations (
					id UUID PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_organizations_name ON organizations(name);
			`,
		},
		{
			Version:     2,
			Description: "Create organization_members table",
			SQL: `
				CREATE TABLE IF NOT EXISTS organization_members (
					user_id UUID NOT NULL,
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					role VARCHAR(50) NOT NULL DEFAULT 'member',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					banned_until TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					PRIMARY KEY (user_id, organization_id)
				);

				CREATE INDEX IF NOT EXISTS idx_organization_members_user_id
					ON organization_members(user_id, created_at);
				CREATE INDEX IF NOT EXISTS idx_organization_members_organization_id
					ON organization_members(organization_id);
			`,
		},
		{
			Version:     3,
			Description: "Create platform_admins table",
			SQL: `
				CREATE TABLE IF NOT EXISTS platform_admins (
					user_id UUID PRIMARY KEY,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					expires_at TIMESTAMP WITH TIME ZONE,
					granted_by UUID,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     4,
			Description: "Create module_catalog table",
			SQL: `
				CREATE TABLE IF NOT EXISTS module_catalog (
					module_key VARCHAR(100) PRIMARY KEY,
					display_name VARCHAR(255) NOT NULL,
					dependency_keys TEXT[] NOT NULL DEFAULT '{}',
					is_core BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     5,
			Description: "Create organization_module_entitlements table",
			SQL: `
				CREATE TABLE IF NOT EXISTS organization_module_entitlements (
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					module_key VARCHAR(100) NOT NULL REFERENCES module_catalog(module_key),
					enabled BOOLEAN NOT NULL DEFAULT FALSE,
					billing_model VARCHAR(32) NOT NULL DEFAULT 'manual',
					status VARCHAR(32) NOT NULL DEFAULT 'inactive',
					starts_at TIMESTAMP WITH TIME ZONE,
					ends_at TIMESTAMP WITH TIME ZONE,
					source VARCHAR(50) NOT NULL DEFAULT 'manual',
					notes TEXT,
					updated_by VARCHAR(64),
					version INT NOT NULL DEFAULT 1,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					PRIMARY KEY (organization_id, module_key)
				);

				CREATE INDEX IF NOT EXISTS idx_entitlements_module_key
					ON organization_module_entitlements(module_key);
				CREATE INDEX IF NOT EXISTS idx_entitlements_enabled
					ON organization_module_entitlements(organization_id)
					WHERE enabled;
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS gatehouse_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM gatehouse_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		logger.WithField("version", migration.Version).
			WithField("description", migration.Description).
			Info("running migration")

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO gatehouse_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
