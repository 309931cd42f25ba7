package entitlements

import (
	"time"

	"github.com/google/uuid"
)

// BillingModel records how an entitlement is paid for. Gatehouse stores it
// verbatim for reporting; it never affects access decisions.
type BillingModel string

const (
	BillingManual        BillingModel = "manual"
	BillingSubscription  BillingModel = "subscription"
	BillingPaidInFull    BillingModel = "paid_in_full"
	BillingTrial         BillingModel = "trial"
	BillingYearlyLicense BillingModel = "yearly_license"
)

// Valid reports whether b is a known billing model.
func (b BillingModel) Valid() bool {
	switch b {
	case BillingManual, BillingSubscription, BillingPaidInFull, BillingTrial, BillingYearlyLicense:
		return true
	}
	return false
}

// Status is the commercial lifecycle state of an entitlement. Transitions
// are deliberately unconstrained: lifecycle legality belongs to the billing
// system, not the entitlement gate.
type Status string

const (
	StatusActive   Status = "active"
	StatusGrace    Status = "grace"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusGrace, StatusPastDue, StatusCanceled, StatusInactive:
		return true
	}
	return false
}

// GrantsAccess reports whether the commercial status permits use. Grace
// periods keep access; past_due does not.
func (s Status) GrantsAccess() bool {
	return s == StatusActive || s == StatusGrace
}

// DefaultSource is recorded on rows created without an explicit source.
const DefaultSource = "platform-admin"

// Entitlement is one org's commercial relationship with one feature module.
// Rows are never hard-deleted; revocation flips Enabled or Status.
type Entitlement struct {
	OrgID        uuid.UUID    `json:"org_id"`
	ModuleKey    string       `json:"module_key"`
	Enabled      bool         `json:"enabled"`
	BillingModel BillingModel `json:"billing_model"`
	Status       Status       `json:"status"`
	StartsAt     *time.Time   `json:"starts_at,omitempty"`
	EndsAt       *time.Time   `json:"ends_at,omitempty"`
	Source       string       `json:"source"`
	Notes        string       `json:"notes,omitempty"`
	UpdatedBy    string       `json:"updated_by,omitempty"`
	Version      int64        `json:"version"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Satisfied reports whether the entitlement grants use of its module at the
// given instant: flag on, status in good standing, and now inside the
// validity window. StartsAt is inclusive, EndsAt exclusive: a row expiring
// exactly at now is no longer satisfied. Nil receivers (absent rows) are
// never satisfied.
func (e *Entitlement) Satisfied(now time.Time) bool {
	if e == nil || !e.Enabled || !e.Status.GrantsAccess() {
		return false
	}
	if e.StartsAt != nil && now.Before(*e.StartsAt) {
		return false
	}
	if e.EndsAt != nil && !now.Before(*e.EndsAt) {
		return false
	}
	return true
}

// ModuleEntitlement is one element of the org module listing: the catalog
// definition joined with the org's entitlement row, or rendered defaults
// when no row exists. Satisfied is the row-level predicate; dependency-aware
// access checks go through the evaluator.
type ModuleEntitlement struct {
	ModuleKey      string       `json:"module_key"`
	Name           string       `json:"name"`
	DependencyKeys []string     `json:"dependency_keys,omitempty"`
	Core           bool         `json:"is_core"`
	Enabled        bool         `json:"enabled"`
	BillingModel   BillingModel `json:"billing_model"`
	Status         Status       `json:"status"`
	StartsAt       *time.Time   `json:"starts_at,omitempty"`
	EndsAt         *time.Time   `json:"ends_at,omitempty"`
	Satisfied      bool         `json:"satisfied"`
}
