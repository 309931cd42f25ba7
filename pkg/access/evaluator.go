package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mobelwerk/gatehouse/pkg/catalog"
	"github.com/mobelwerk/gatehouse/pkg/entitlements"
	"github.com/mobelwerk/gatehouse/pkg/orgctx"
	"github.com/mobelwerk/gatehouse/pkg/orgs"
)

// Metrics receives evaluation outcomes. A nil Metrics disables
// instrumentation; implementations must be safe for concurrent use.
type Metrics interface {
	ObserveDecision(reason Reason, allowed bool)
	ObserveCacheLookup(hit bool)
}

// Options tune a single evaluation.
type Options struct {
	// Candidate org identifiers for context resolution, in the resolver's
	// precedence order. Empty strings mean "source not present".
	PreferredOrg string
	QueryOrg     string
	HeaderOrg    string
	ClaimOrg     string

	// DisableBypass makes platform admins subject to normal entitlement
	// checks. Used by tooling that previews what a tenant user would see.
	DisableBypass bool

	// ForceFresh skips the cache lookup. The fresh decision still
	// repopulates the cache.
	ForceFresh bool
}

// Evaluator answers "may this requester use this module right now". It is
// the read path: one evaluation touches the catalog, the membership
// directory, and (at most once) the entitlement store, with decisions
// memoized in the cache.
type Evaluator struct {
	catalog   *catalog.Catalog
	directory orgs.Directory
	resolver  *orgctx.Resolver
	store     entitlements.Reader
	cache     DecisionCache
	metrics   Metrics
	now       func() time.Time
}

// NewEvaluator creates an evaluator. metrics may be nil.
func NewEvaluator(cat *catalog.Catalog, directory orgs.Directory, store entitlements.Reader, cache DecisionCache, metrics Metrics) *Evaluator {
	return &Evaluator{
		catalog:   cat,
		directory: directory,
		resolver:  orgctx.NewResolver(directory),
		store:     store,
		cache:     cache,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Evaluate produces an access decision for the requester and module.
//
// An error return means the evaluation itself could not run (unknown module,
// platform-admin lookup failure, entitlement store failure) and carries no
// decision. Membership directory failures during org resolution are
// different: the platform-admin bypass must still work through them, so they
// become a fail-closed denial (org_context_unavailable) rather than an
// error. Those denials are never cached; a transient outage must not be
// remembered past its cause.
func (e *Evaluator) Evaluate(ctx context.Context, requesterID uuid.UUID, moduleKey string, opts Options) (*Decision, error) {
	if _, ok := e.catalog.Lookup(moduleKey); !ok {
		return nil, fmt.Errorf("module %q: %w", moduleKey, catalog.ErrUnknownModule)
	}

	// A failed admin lookup is fatal, never "false": misreading it as false
	// would subject an operator to tenant entitlement state.
	isAdmin, err := e.directory.IsPlatformAdmin(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("platform admin lookup failed: %w", err)
	}

	orgContext, resolveErr := e.resolver.Resolve(ctx, orgctx.ResolveRequest{
		UserID:     requesterID,
		Preferred:  opts.PreferredOrg,
		Query:      opts.QueryOrg,
		Header:     opts.HeaderOrg,
		TokenClaim: opts.ClaimOrg,
	})
	if resolveErr != nil {
		if _, ok := orgctx.ResolveReason(resolveErr); !ok {
			return nil, resolveErr
		}
	}

	bypass := isAdmin && !opts.DisableBypass
	key := cacheKey(requesterID, moduleKey, orgContext, isAdmin, bypass)

	if !opts.ForceFresh {
		if cached, ok := e.cache.Get(ctx, key); ok {
			e.observeCacheLookup(true)
			return cached, nil
		}
		e.observeCacheLookup(false)
	}

	decision := &Decision{
		ModuleKey:       moduleKey,
		IsPlatformAdmin: isAdmin,
		EvaluatedAt:     e.now(),
	}
	if orgContext != nil {
		orgID := orgContext.OrgID
		decision.OrgID = &orgID
	}

	cacheable := true
	switch {
	case bypass:
		// Operators are never blocked by tenant entitlement state; the
		// entitlement store is deliberately not consulted here.
		decision.Allowed = true
		decision.Reason = ReasonPlatformAdminBypass

	case resolveErr != nil:
		reason, _ := orgctx.ResolveReason(resolveErr)
		switch reason {
		case orgctx.ReasonMembershipQueryFailed:
			decision.Reason = ReasonOrgContextUnavailable
			cacheable = false
		case orgctx.ReasonRequestedOrgNotActive:
			decision.Reason = ReasonOrgNotMember
		default:
			decision.Reason = ReasonMissingOrgContext
		}

	default:
		satisfied, err := e.closureSatisfied(ctx, orgContext.OrgID, moduleKey)
		if err != nil {
			return nil, err
		}
		if satisfied {
			decision.Allowed = true
			decision.Reason = ReasonEnabled
		} else {
			decision.Reason = ReasonNotEntitled
		}
	}

	if cacheable {
		e.cache.Set(ctx, key, decision)
	}
	e.observeDecision(decision)
	return decision, nil
}

// Require evaluates and turns any denial into a *DeniedError carrying the
// full decision, so transport layers can render the structured 403 payload.
func (e *Evaluator) Require(ctx context.Context, requesterID uuid.UUID, moduleKey string, opts Options) (*Decision, error) {
	decision, err := e.Evaluate(ctx, requesterID, moduleKey, opts)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &DeniedError{Decision: decision}
	}
	return decision, nil
}

// closureSatisfied is the dependency-aware entitlement predicate: the module
// and every module in its transitive dependency closure must each hold a
// satisfied row. Enable-time enforcement only sees writes; a dependency
// drifting to canceled through a status-only change is caught here.
//
// The whole closure is fetched in one store call, which is what the caching
// properties count.
func (e *Evaluator) closureSatisfied(ctx context.Context, orgID uuid.UUID, moduleKey string) (bool, error) {
	closure := e.catalog.Closure(moduleKey)
	rows, err := e.store.GetForModules(ctx, orgID, closure)
	if err != nil {
		return false, fmt.Errorf("entitlement lookup failed: %w", err)
	}
	now := e.now()
	for _, key := range closure {
		if !rows[key].Satisfied(now) {
			return false, nil
		}
	}
	return true, nil
}

func cacheKey(requesterID uuid.UUID, moduleKey string, orgContext *orgctx.OrgContext, isAdmin, bypass bool) string {
	org := "none"
	if orgContext != nil {
		org = orgContext.OrgID.String()
	}
	return strings.Join([]string{
		requesterID.String(), moduleKey, org, boolFlag(isAdmin), boolFlag(bypass),
	}, "|")
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (e *Evaluator) observeDecision(d *Decision) {
	if e.metrics != nil {
		e.metrics.ObserveDecision(d.Reason, d.Allowed)
	}
}

func (e *Evaluator) observeCacheLookup(hit bool) {
	if e.metrics != nil {
		e.metrics.ObserveCacheLookup(hit)
	}
}
