package orgctx

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mobelwerk/gatehouse/pkg/orgs"
)

// Source identifies where a resolved org candidate came from.
type Source string

const (
	SourcePreferred  Source = "preferred"
	SourceQuery      Source = "query"
	SourceHeader     Source = "header"
	SourceTokenClaim Source = "token_claim"
	SourceMembership Source = "membership"
)

// DefaultFallbackPageSize bounds the membership page scanned when no
// candidate source names an org.
const DefaultFallbackPageSize = 20

// OrgContext is the resolved organization scope for one request.
type OrgContext struct {
	OrgID      uuid.UUID        `json:"org_id"`
	Source     Source           `json:"source"`
	Membership *orgs.Membership `json:"-"`
}

// ResolveRequest carries the candidate org identifiers for one resolution,
// already extracted from their transports. Empty strings mean "source not
// present".
type ResolveRequest struct {
	UserID     uuid.UUID
	Preferred  string // explicit caller preference (request body, RPC option)
	Query      string // ?org_id= query parameter
	Header     string // X-Org-ID header
	TokenClaim string // org_id claim from the access token
}

// Resolver determines the organization context for a requester by walking
// candidate sources in precedence order.
type Resolver struct {
	directory orgs.Directory
	pageSize  int
	now       func() time.Time
}

// NewResolver creates a resolver over the membership directory.
func NewResolver(directory orgs.Directory) *Resolver {
	return &Resolver{
		directory: directory,
		pageSize:  DefaultFallbackPageSize,
		now:       time.Now,
	}
}

// Resolve walks the candidate sources in precedence order:
//
//  1. explicit preference
//  2. query parameter
//  3. header
//  4. token claim
//  5. earliest-created active membership
//
// Explicit sources (1-3) fail fast: a malformed identifier or an org without
// an active membership aborts resolution with requested_org_not_active. The
// token claim falls through to the membership fallback instead, because
// tokens outlive org changes and a stale claim should not lock a user out of
// orgs they still belong to. Directory failures abort everything with
// membership_query_failed.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (*OrgContext, error) {
	now := r.now()

	explicit := []struct {
		source Source
		value  string
	}{
		{SourcePreferred, req.Preferred},
		{SourceQuery, req.Query},
		{SourceHeader, req.Header},
	}

	for _, candidate := range explicit {
		if candidate.value == "" {
			continue
		}
		orgID, err := uuid.Parse(candidate.value)
		if err != nil {
			return nil, &ResolveError{Reason: ReasonRequestedOrgNotActive, Source: candidate.source, Err: err}
		}
		m, err := r.directory.GetMembership(ctx, req.UserID, orgID)
		if err != nil {
			return nil, &ResolveError{Reason: ReasonMembershipQueryFailed, Source: candidate.source, Err: err}
		}
		if m == nil || !m.ActiveAt(now) {
			return nil, &ResolveError{Reason: ReasonRequestedOrgNotActive, Source: candidate.source}
		}
		return &OrgContext{OrgID: orgID, Source: candidate.source, Membership: m}, nil
	}

	if req.TokenClaim != "" {
		if orgID, err := uuid.Parse(req.TokenClaim); err == nil {
			m, err := r.directory.GetMembership(ctx, req.UserID, orgID)
			if err != nil {
				return nil, &ResolveError{Reason: ReasonMembershipQueryFailed, Source: SourceTokenClaim, Err: err}
			}
			if m != nil && m.ActiveAt(now) {
				return &OrgContext{OrgID: orgID, Source: SourceTokenClaim, Membership: m}, nil
			}
		}
	}

	memberships, err := r.directory.ListMemberships(ctx, req.UserID, r.pageSize)
	if err != nil {
		return nil, &ResolveError{Reason: ReasonMembershipQueryFailed, Source: SourceMembership, Err: err}
	}
	for _, m := range memberships {
		if m.ActiveAt(now) {
			return &OrgContext{OrgID: m.OrgID, Source: SourceMembership, Membership: m}, nil
		}
	}

	return nil, &ResolveError{Reason: ReasonNoActiveMembership}
}
