package entitlements

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Reader is the read-only slice of the entitlement store. The enforcer and
// the access evaluator depend on nothing more.
type Reader interface {
	// Get returns the entitlement row, or nil if none exists.
	Get(ctx context.Context, orgID uuid.UUID, moduleKey string) (*Entitlement, error)

	// GetForModules fetches entitlement rows for all given module keys in a
	// single query. Absent keys are simply missing from the result map.
	GetForModules(ctx context.Context, orgID uuid.UUID, moduleKeys []string) (map[string]*Entitlement, error)

	// ListByOrg returns all entitlement rows for the org.
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Entitlement, error)
}

// TxStore is the store surface available inside a serialized per-org
// section.
type TxStore interface {
	Reader

	// Upsert writes the row and returns the canonical stored form, with
	// version incremented and timestamps assigned by the database.
	Upsert(ctx context.Context, e *Entitlement) (*Entitlement, error)
}

// Store adds per-org serialization on top of TxStore.
type Store interface {
	TxStore

	// WithOrgLock runs fn inside a transaction holding the org's advisory
	// lock. Concurrent validate-and-persist sequences for the same org are
	// fully serialized; different orgs proceed in parallel.
	WithOrgLock(ctx context.Context, orgID uuid.UUID, fn func(TxStore) error) error
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const entitlementColumns = `organization_id, module_key, enabled, billing_model, status,
	       starts_at, ends_at, source, notes, updated_by, version, created_at, updated_at`

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates an entitlement store backed by PostgreSQL.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get retrieves one entitlement row.
func (s *PostgresStore) Get(ctx context.Context, orgID uuid.UUID, moduleKey string) (*Entitlement, error) {
	return getEntitlement(ctx, s.db, orgID, moduleKey)
}

// GetForModules retrieves entitlement rows for the given module keys.
func (s *PostgresStore) GetForModules(ctx context.Context, orgID uuid.UUID, moduleKeys []string) (map[string]*Entitlement, error) {
	return getForModules(ctx, s.db, orgID, moduleKeys)
}

// ListByOrg retrieves all entitlement rows for the org.
func (s *PostgresStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Entitlement, error) {
	return listByOrg(ctx, s.db, orgID)
}

// Upsert writes the row outside any explicit lock. Mutations coming through
// the Service use WithOrgLock instead; this path serves backfills and tests.
func (s *PostgresStore) Upsert(ctx context.Context, e *Entitlement) (*Entitlement, error) {
	return upsertEntitlement(ctx, s.db, e)
}

// WithOrgLock serializes fn against all other locked sections for the same
// org via pg_advisory_xact_lock. The lock is transaction-scoped: commit or
// rollback releases it.
func (s *PostgresStore) WithOrgLock(ctx context.Context, orgID uuid.UUID, fn func(TxStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", orgLockKey(orgID)); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to acquire org lock: %w", err)
	}

	if err := fn(&txStore{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// orgLockKey folds an org UUID into the int64 advisory-lock keyspace. A hash
// collision only widens the serialized set, never narrows it.
func orgLockKey(orgID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(orgID[:])
	return int64(h.Sum64())
}

// txStore exposes the shared query helpers bound to a transaction.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Get(ctx context.Context, orgID uuid.UUID, moduleKey string) (*Entitlement, error) {
	return getEntitlement(ctx, t.tx, orgID, moduleKey)
}

func (t *txStore) GetForModules(ctx context.Context, orgID uuid.UUID, moduleKeys []string) (map[string]*Entitlement, error) {
	return getForModules(ctx, t.tx, orgID, moduleKeys)
}

func (t *txStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Entitlement, error) {
	return listByOrg(ctx, t.tx, orgID)
}

func (t *txStore) Upsert(ctx context.Context, e *Entitlement) (*Entitlement, error) {
	return upsertEntitlement(ctx, t.tx, e)
}

func getEntitlement(ctx context.Context, q dbtx, orgID uuid.UUID, moduleKey string) (*Entitlement, error) {
	query := `
		SELECT ` + entitlementColumns + `
		FROM organization_module_entitlements
		WHERE organization_id = $1 AND module_key = $2
	`
	e, err := scanEntitlement(q.QueryRowContext(ctx, query, orgID, moduleKey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return e, nil
}

func getForModules(ctx context.Context, q dbtx, orgID uuid.UUID, moduleKeys []string) (map[string]*Entitlement, error) {
	result := make(map[string]*Entitlement, len(moduleKeys))
	if len(moduleKeys) == 0 {
		return result, nil
	}

	query := `
		SELECT ` + entitlementColumns + `
		FROM organization_module_entitlements
		WHERE organization_id = $1 AND module_key = ANY($2)
	`
	rows, err := q.QueryContext(ctx, query, orgID, pq.Array(moduleKeys))
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntitlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		result[e.ModuleKey] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entitlements: %w", err)
	}
	return result, nil
}

func listByOrg(ctx context.Context, q dbtx, orgID uuid.UUID) ([]*Entitlement, error) {
	query := `
		SELECT ` + entitlementColumns + `
		FROM organization_module_entitlements
		WHERE organization_id = $1
		ORDER BY module_key
	`
	rows, err := q.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}
	defer rows.Close()

	var entitlements []*Entitlement
	for rows.Next() {
		e, err := scanEntitlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		entitlements = append(entitlements, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entitlements: %w", err)
	}
	return entitlements, nil
}

func upsertEntitlement(ctx context.Context, q dbtx, e *Entitlement) (*Entitlement, error) {
	query := `
		INSERT INTO organization_module_entitlements (
			organization_id, module_key, enabled, billing_model, status,
			starts_at, ends_at, source, notes, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (organization_id, module_key) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			billing_model = EXCLUDED.billing_model,
			status = EXCLUDED.status,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			source = EXCLUDED.source,
			notes = EXCLUDED.notes,
			updated_by = EXCLUDED.updated_by,
			version = organization_module_entitlements.version + 1,
			updated_at = NOW()
		RETURNING ` + entitlementColumns + `
	`
	stored, err := scanEntitlement(q.QueryRowContext(ctx, query,
		e.OrgID, e.ModuleKey, e.Enabled, string(e.BillingModel), string(e.Status),
		e.StartsAt, e.EndsAt, e.Source, e.Notes, e.UpdatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert entitlement: %w", err)
	}
	return stored, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntitlement(s scanner) (*Entitlement, error) {
	e := &Entitlement{}
	var billingModel, status string
	var startsAt, endsAt sql.NullTime
	var notes, updatedBy sql.NullString
	if err := s.Scan(
		&e.OrgID, &e.ModuleKey, &e.Enabled, &billingModel, &status,
		&startsAt, &endsAt, &e.Source, &notes, &updatedBy,
		&e.Version, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.BillingModel = BillingModel(billingModel)
	e.Status = Status(status)
	if startsAt.Valid {
		e.StartsAt = &startsAt.Time
	}
	if endsAt.Valid {
		e.EndsAt = &endsAt.Time
	}
	if notes.Valid {
		e.Notes = notes.String
	}
	if updatedBy.Valid {
		e.UpdatedBy = updatedBy.String
	}
	return e, nil
}
