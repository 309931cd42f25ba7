package orgs

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDirectory(t *testing.T) (*PostgresDirectory, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresDirectory(db), mock
}

func TestGetOrganization(t *testing.T) {
	d, mock := setupDirectory(t)
	orgID := uuid.New()
	created := time.Date(2025, 11, 2, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, name, created_at").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).
			AddRow(orgID, "Möbelwerk Nord GmbH", created))

	org, err := d.GetOrganization(context.Background(), orgID)
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, orgID, org.ID)
	assert.Equal(t, "Möbelwerk Nord GmbH", org.Name)
	assert.Equal(t, created, org.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrganizationAbsent(t *testing.T) {
	d, mock := setupDirectory(t)
	orgID := uuid.New()

	mock.ExpectQuery("SELECT id, name, created_at").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}))

	org, err := d.GetOrganization(context.Background(), orgID)
	require.NoError(t, err)
	assert.Nil(t, org)
}

func TestGetMembership(t *testing.T) {
	d, mock := setupDirectory(t)
	userID := uuid.New()
	orgID := uuid.New()
	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	cols := []string{"user_id", "organization_id", "name", "role", "is_active", "banned_until", "created_at"}
	mock.ExpectQuery("SELECT m.user_id, m.organization_id").
		WithArgs(userID, orgID).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(userID, orgID, "Acme Interiors", "billing_contact", true, nil, created))

	m, err := d.GetMembership(context.Background(), userID, orgID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, orgID, m.OrgID)
	assert.Equal(t, "Acme Interiors", m.OrgName)
	// Unknown directory roles normalize to viewer at scan time.
	assert.Equal(t, RoleViewer, m.Role)
	assert.True(t, m.IsActive)
	assert.Nil(t, m.BannedUntil)
}

func TestGetMembershipAbsent(t *testing.T) {
	d, mock := setupDirectory(t)
	userID := uuid.New()
	orgID := uuid.New()

	cols := []string{"user_id", "organization_id", "name", "role", "is_active", "banned_until", "created_at"}
	mock.ExpectQuery("SELECT m.user_id, m.organization_id").
		WithArgs(userID, orgID).
		WillReturnRows(sqlmock.NewRows(cols))

	m, err := d.GetMembership(context.Background(), userID, orgID)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestGetMembershipQueryError(t *testing.T) {
	d, mock := setupDirectory(t)

	mock.ExpectQuery("SELECT m.user_id, m.organization_id").
		WillReturnError(assert.AnError)

	_, err := d.GetMembership(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get membership")
}

func TestListMemberships(t *testing.T) {
	d, mock := setupDirectory(t)
	userID := uuid.New()
	orgA := uuid.New()
	orgB := uuid.New()
	earliest := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	later := time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC)
	banned := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	cols := []string{"user_id", "organization_id", "name", "role", "is_active", "banned_until", "created_at"}
	mock.ExpectQuery("ORDER BY m.created_at ASC").
		WithArgs(userID, 20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(userID, orgA, "First Org", "admin", true, banned, earliest).
			AddRow(userID, orgB, "Second Org", "member", true, nil, later))

	memberships, err := d.ListMemberships(context.Background(), userID, 20)
	require.NoError(t, err)
	require.Len(t, memberships, 2)
	assert.Equal(t, orgA, memberships[0].OrgID)
	assert.Equal(t, RoleAdmin, memberships[0].Role)
	require.NotNil(t, memberships[0].BannedUntil)
	assert.Equal(t, banned, *memberships[0].BannedUntil)
	assert.Equal(t, orgB, memberships[1].OrgID)
	assert.Equal(t, RoleMember, memberships[1].Role)
}

func TestIsPlatformAdmin(t *testing.T) {
	tests := []struct {
		name string
		rows bool
		want bool
	}{
		{name: "active grant", rows: true, want: true},
		{name: "no grant", rows: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, mock := setupDirectory(t)
			userID := uuid.New()

			mock.ExpectQuery("SELECT EXISTS").
				WithArgs(userID).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.rows))

			isAdmin, err := d.IsPlatformAdmin(context.Background(), userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, isAdmin)
		})
	}
}

func TestIsPlatformAdminLookupFailure(t *testing.T) {
	d, mock := setupDirectory(t)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnError(assert.AnError)

	// A failed lookup must be an error, never a silent false.
	isAdmin, err := d.IsPlatformAdmin(context.Background(), uuid.New())
	require.Error(t, err)
	assert.False(t, isAdmin)
	assert.Contains(t, err.Error(), "failed to check platform admin")
}
