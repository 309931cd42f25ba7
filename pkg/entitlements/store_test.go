package entitlements

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entitlementCols = []string{
	"organization_id", "module_key", "enabled", "billing_model", "status",
	"starts_at", "ends_at", "source", "notes", "updated_by",
	"version", "created_at", "updated_at",
}

func newStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func entitlementRow(orgID uuid.UUID, key string, enabled bool, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(entitlementCols).
		AddRow(orgID, key, enabled, "manual", status, nil, nil, "platform-admin", nil, "admin-1", 1, now, now)
}

func TestStoreGet(t *testing.T) {
	store, mock := newStore(t)
	orgID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM organization_module_entitlements").
		WithArgs(orgID, "pricing_engine").
		WillReturnRows(entitlementRow(orgID, "pricing_engine", true, "active"))

	row, err := store.Get(context.Background(), orgID, "pricing_engine")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, orgID, row.OrgID)
	assert.Equal(t, "pricing_engine", row.ModuleKey)
	assert.True(t, row.Enabled)
	assert.Equal(t, BillingManual, row.BillingModel)
	assert.Equal(t, StatusActive, row.Status)
	assert.Equal(t, "admin-1", row.UpdatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetAbsent(t *testing.T) {
	store, mock := newStore(t)
	orgID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM organization_module_entitlements").
		WithArgs(orgID, "pricing_engine").
		WillReturnError(sql.ErrNoRows)

	row, err := store.Get(context.Background(), orgID, "pricing_engine")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestStoreGetQueryFailure(t *testing.T) {
	store, mock := newStore(t)
	orgID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM organization_module_entitlements").
		WillReturnError(errors.New("connection refused"))

	_, err := store.Get(context.Background(), orgID, "pricing_engine")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get entitlement")
}

func TestStoreGetForModules(t *testing.T) {
	store, mock := newStore(t)
	orgID := uuid.New()

	rows := sqlmock.NewRows(entitlementCols).
		AddRow(orgID, "pricing_engine", true, "manual", "active", nil, nil, "platform-admin", nil, "admin-1", 1, time.Now(), time.Now()).
		AddRow(orgID, "catalog_3d", false, "trial", "inactive", nil, nil, "platform-admin", nil, "admin-1", 4, time.Now(), time.Now())

	mock.ExpectQuery("SELECT .+ FROM organization_module_entitlements").
		WithArgs(orgID, pq.Array([]string{"pricing_engine", "catalog_3d", "showroom"})).
		WillReturnRows(rows)

	result, err := store.GetForModules(context.Background(), orgID, []string{"pricing_engine", "catalog_3d", "showroom"})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.True(t, result["pricing_engine"].Enabled)
	assert.Equal(t, BillingTrial, result["catalog_3d"].BillingModel)
	// Absent keys are simply missing, not nil-valued entries.
	_, present := result["showroom"]
	assert.False(t, present)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetForModulesEmptyKeys(t *testing.T) {
	store, mock := newStore(t)

	// No query may be issued for an empty key set.
	result, err := store.GetForModules(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListByOrg(t *testing.T) {
	store, mock := newStore(t)
	orgID := uuid.New()

	rows := sqlmock.NewRows(entitlementCols).
		AddRow(orgID, "catalog_3d", true, "subscription", "grace", nil, nil, "platform-admin", "promo", "admin-2", 2, time.Now(), time.Now()).
		AddRow(orgID, "pricing_engine", true, "manual", "active", nil, nil, "platform-admin", nil, "admin-1", 1, time.Now(), time.Now())

	mock.ExpectQuery("SELECT .+ FROM organization_module_entitlements").
		WithArgs(orgID).
		WillReturnRows(rows)

	list, err := store.ListByOrg(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "catalog_3d", list[0].ModuleKey)
	assert.Equal(t, "promo", list[0].Notes)
	assert.Equal(t, StatusGrace, list[0].Status)
	assert.Equal(t, "pricing_engine", list[1].ModuleKey)
}

func TestStoreUpsert(t *testing.T) {
	store, mock := newStore(t)
	orgID := uuid.New()
	starts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	returned := sqlmock.NewRows(entitlementCols).
		AddRow(orgID, "pricing_engine", true, "subscription", "active", starts, nil, "platform-admin", "upgrade", "admin-1", 7, time.Now(), time.Now())

	mock.ExpectQuery("INSERT INTO organization_module_entitlements").
		WithArgs(orgID, "pricing_engine", true, "subscription", "active", &starts, nil, "platform-admin", "upgrade", "admin-1").
		WillReturnRows(returned)

	stored, err := store.Upsert(context.Background(), &Entitlement{
		OrgID:        orgID,
		ModuleKey:    "pricing_engine",
		Enabled:      true,
		BillingModel: BillingSubscription,
		Status:       StatusActive,
		StartsAt:     &starts,
		Source:       "platform-admin",
		Notes:        "upgrade",
		UpdatedBy:    "admin-1",
	})
	require.NoError(t, err)
	// The database-assigned version comes back on the canonical row.
	assert.Equal(t, int64(7), stored.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithOrgLockCommits(t *testing.T) {
	store, mock := newStore(t)
	orgID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(orgLockKey(orgID)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM organization_module_entitlements").
		WithArgs(orgID, "pricing_engine").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	err := store.WithOrgLock(context.Background(), orgID, func(tx TxStore) error {
		row, err := tx.Get(context.Background(), orgID, "pricing_engine")
		require.NoError(t, err)
		assert.Nil(t, row)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithOrgLockRollsBackOnError(t *testing.T) {
	store, mock := newStore(t)
	orgID := uuid.New()
	boom := errors.New("dependency violation")

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(orgLockKey(orgID)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithOrgLock(context.Background(), orgID, func(tx TxStore) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithOrgLockAcquireFailure(t *testing.T) {
	store, mock := newStore(t)
	orgID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	called := false
	err := store.WithOrgLock(context.Background(), orgID, func(tx TxStore) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire org lock")
	assert.False(t, called)
}

func TestOrgLockKeyDeterministic(t *testing.T) {
	orgID := uuid.New()
	assert.Equal(t, orgLockKey(orgID), orgLockKey(orgID))
	assert.NotEqual(t, orgLockKey(orgID), orgLockKey(uuid.New()))
}
