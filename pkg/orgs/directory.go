package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Directory provides read access to the membership directory, the external
// system of record for organizations, memberships, and platform operators.
// Gatehouse never writes to it.
//
// Absent rows are reported as (nil, nil); an error always means the lookup
// itself failed. Callers rely on that distinction: "no membership" feeds
// resolution fall-through, while a failed query must surface as a backend
// failure and never be mistaken for "not a member".
type Directory interface {
	// GetOrganization returns the organization, or nil if none exists.
	GetOrganization(ctx context.Context, orgID uuid.UUID) (*Organization, error)

	// GetMembership returns the user's membership in the given org, or nil
	// if none exists. Activity is NOT filtered here; callers apply ActiveAt.
	GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*Membership, error)

	// ListMemberships returns up to limit memberships for the user, ordered
	// by membership creation time ascending (earliest first).
	ListMemberships(ctx context.Context, userID uuid.UUID, limit int) ([]*Membership, error)

	// IsPlatformAdmin reports whether the user holds an unexpired, active
	// platform-operator grant. A lookup failure returns an error and must
	// never be treated as false.
	IsPlatformAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// PostgresDirectory implements Directory against the directory's replicated
// tables.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory creates a directory backed by PostgreSQL.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// GetOrganization retrieves an organization by ID.
func (d *PostgresDirectory) GetOrganization(ctx context.Context, orgID uuid.UUID) (*Organization, error) {
	query := `
		SELECT id, name, created_at
		FROM organizations
		WHERE id = $1
	`
	org := &Organization{}
	err := d.db.QueryRowContext(ctx, query, orgID).Scan(&org.ID, &org.Name, &org.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetMembership retrieves the user's membership row in the given org.
func (d *PostgresDirectory) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*Membership, error) {
	query := `
		SELECT m.user_id, m.organization_id, o.name, m.role, m.is_active, m.banned_until, m.created_at
		FROM organization_members m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1 AND m.organization_id = $2
	`
	m, err := scanMembership(d.db.QueryRowContext(ctx, query, userID, orgID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// ListMemberships retrieves the user's memberships, earliest created first.
func (d *PostgresDirectory) ListMemberships(ctx context.Context, userID uuid.UUID, limit int) ([]*Membership, error) {
	query := `
		SELECT m.user_id, m.organization_id, o.name, m.role, m.is_active, m.banned_until, m.created_at
		FROM organization_members m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1
		ORDER BY m.created_at ASC
		LIMIT $2
	`
	rows, err := d.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read memberships: %w", err)
	}
	return memberships, nil
}

// IsPlatformAdmin checks for an active, unexpired platform-operator grant.
func (d *PostgresDirectory) IsPlatformAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM platform_admins
			WHERE user_id = $1
			  AND is_active
			  AND (expires_at IS NULL OR expires_at > NOW())
		)
	`
	var isAdmin bool
	if err := d.db.QueryRowContext(ctx, query, userID).Scan(&isAdmin); err != nil {
		return false, fmt.Errorf("failed to check platform admin: %w", err)
	}
	return isAdmin, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMembership(s scanner) (*Membership, error) {
	m := &Membership{}
	var role string
	var bannedUntil sql.NullTime
	if err := s.Scan(&m.UserID, &m.OrgID, &m.OrgName, &role, &m.IsActive, &bannedUntil, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Role = NormalizeRole(role)
	if bannedUntil.Valid {
		m.BannedUntil = &bannedUntil.Time
	}
	return m, nil
}
