package access

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reason explains an access decision. Callers branch on reason codes, never
// on error text.
type Reason string

const (
	// ReasonEnabled: the module's entitlement (and every dependency's) is
	// satisfied for the resolved org.
	ReasonEnabled Reason = "enabled"

	// ReasonNotEntitled: an entitlement in the module's dependency closure
	// is missing or unsatisfied.
	ReasonNotEntitled Reason = "not_entitled"

	// ReasonPlatformAdminBypass: the requester is a platform operator and
	// bypass was not opted out.
	ReasonPlatformAdminBypass Reason = "platform_admin_bypass"

	// ReasonOrgNotMember: an explicitly requested org exists but the
	// requester holds no active membership in it.
	ReasonOrgNotMember Reason = "org_not_member"

	// ReasonMissingOrgContext: no org could be resolved from any source.
	ReasonMissingOrgContext Reason = "missing_org_context"

	// ReasonOrgContextUnavailable: the membership backend failed; the
	// request is denied fail-closed and the decision is never cached.
	ReasonOrgContextUnavailable Reason = "org_context_unavailable"
)

// Decision is the outcome of one access evaluation. Decisions are ephemeral:
// they live in the decision cache and in responses, never in storage.
type Decision struct {
	ModuleKey       string     `json:"module_key"`
	OrgID           *uuid.UUID `json:"org_id,omitempty"`
	IsPlatformAdmin bool       `json:"is_platform_admin"`
	Allowed         bool       `json:"allowed"`
	Reason          Reason     `json:"reason"`
	EvaluatedAt     time.Time  `json:"evaluated_at"`
}

// DeniedError wraps a denial so handlers can render the structured payload.
// Maps to HTTP 403, distinct from authentication failures.
type DeniedError struct {
	Decision *Decision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access to %s denied: %s", e.Decision.ModuleKey, e.Decision.Reason)
}
