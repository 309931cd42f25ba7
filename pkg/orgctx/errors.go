package orgctx

import (
	"errors"
	"fmt"
)

// Reason classifies why org context resolution failed.
type Reason string

const (
	// ReasonRequestedOrgNotActive: an explicit candidate (preferred, query
	// param, header) named an org the user has no active membership in, or
	// was not a well-formed identifier. Explicit candidates never fall
	// through.
	ReasonRequestedOrgNotActive Reason = "requested_org_not_active"

	// ReasonNoActiveMembership: every source was exhausted and the user has
	// no active membership anywhere.
	ReasonNoActiveMembership Reason = "no_active_membership"

	// ReasonMembershipQueryFailed: the membership directory itself failed.
	// Must never be conflated with the user not being a member.
	ReasonMembershipQueryFailed Reason = "membership_query_failed"
)

// ResolveError reports a failed resolution along with the candidate source
// that failed, when one applies.
type ResolveError struct {
	Reason Reason
	Source Source
	Err    error
}

func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("org resolution failed: %s", e.Reason)
	if e.Source != "" {
		msg += fmt.Sprintf(" (source %s)", e.Source)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// ResolveReason extracts the resolution failure reason from an error chain.
func ResolveReason(err error) (Reason, bool) {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
