package audit

import (
	"time"
)

// Action identifies what happened, dotted as domain.verb.
type Action string

const (
	ActionEntitlementUpdated  Action = "entitlement.updated"
	ActionEntitlementEnabled  Action = "entitlement.enabled"
	ActionEntitlementDisabled Action = "entitlement.disabled"
	ActionAccessDenied        Action = "access.denied"
)

// EventStatus is the outcome recorded with an event.
type EventStatus string

const (
	StatusSuccess EventStatus = "success"
	StatusFailure EventStatus = "failure"
	StatusDenied  EventStatus = "denied"
)

// Event is one audit trail entry. ID is assigned by the store.
type Event struct {
	ID           int64                  `json:"id,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	Action       Action                 `json:"action"`
	Status       EventStatus            `json:"status"`
	ActorID      string                 `json:"actor_id,omitempty"`
	OrgID        string                 `json:"org_id,omitempty"`
	TargetType   string                 `json:"target_type,omitempty"`
	TargetID     string                 `json:"target_id,omitempty"`
	RequestID    string                 `json:"request_id,omitempty"`
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Changes      map[string]interface{} `json:"changes,omitempty"`
}

// Filter narrows audit queries. Zero values mean "no constraint".
type Filter struct {
	OrgID   string
	ActorID string
	Action  Action
	Since   *time.Time
	Until   *time.Time
	Limit   int
	Offset  int
}

// ExportFormat selects the serialization used by Export and the archiver.
type ExportFormat string

const (
	FormatJSON   ExportFormat = "json"
	FormatNDJSON ExportFormat = "ndjson"
	FormatCSV    ExportFormat = "csv"
)

// RetentionPolicy controls how long audit events are kept and whether they
// are archived to object storage before deletion.
type RetentionPolicy struct {
	RetentionDays      int  `json:"retention_days"`
	ArchiveBeforePurge bool `json:"archive_before_purge"`
}

// CutoffFrom returns the deletion cutoff implied by the policy at now.
func (p RetentionPolicy) CutoffFrom(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.RetentionDays)
}
