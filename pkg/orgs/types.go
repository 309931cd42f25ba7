package orgs

import (
	"time"

	"github.com/google/uuid"
)

// Role is a membership role within an organization. Raw directory values are
// normalized onto this enum once, at scan time, so the rest of the codebase
// never handles free-form role strings.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// NormalizeRole maps a raw directory role string onto the typed enum.
// Unknown values collapse to RoleViewer rather than erroring: the membership
// directory is an external system and its vocabulary can drift ahead of ours.
func NormalizeRole(raw string) Role {
	switch Role(raw) {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return Role(raw)
	default:
		return RoleViewer
	}
}

// Organization is a customer organization as recorded in the membership
// directory.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership is one user's membership row in an organization.
type Membership struct {
	UserID      uuid.UUID  `json:"user_id"`
	OrgID       uuid.UUID  `json:"org_id"`
	OrgName     string     `json:"org_name,omitempty"`
	Role        Role       `json:"role"`
	IsActive    bool       `json:"is_active"`
	BannedUntil *time.Time `json:"banned_until,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ActiveAt reports whether the membership grants access at the given
// instant: the row must be active and any ban must have expired. A ban
// expiring exactly at now no longer suppresses the membership.
func (m *Membership) ActiveAt(now time.Time) bool {
	if !m.IsActive {
		return false
	}
	if m.BannedUntil == nil {
		return true
	}
	return !m.BannedUntil.After(now)
}
