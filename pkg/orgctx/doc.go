// Package orgctx resolves the organization context for a request.
//
// # Overview
//
// Most requests do not name an organization explicitly; users belong to one
// org and expect it to be inferred. Others (platform staff, multi-org users,
// API integrations) pin the org via a query parameter, header, or token
// claim. The resolver reconciles all of these into a single OrgContext, or a
// typed failure.
//
// # Precedence
//
//  1. explicit preference (request body / RPC option)
//  2. ?org_id= query parameter
//  3. X-Org-ID header
//  4. org_id token claim
//  5. earliest-created active membership (first page of 20)
//
// Explicit sources fail fast with requested_org_not_active; naming an org
// you cannot act in is a caller bug, and silently evaluating against a
// different org would be far worse than the error. The token claim is the
// exception: tokens outlive org membership changes, so a stale claim falls
// through to the membership fallback instead of failing.
//
// Directory failures are always membership_query_failed; the evaluator maps
// them to a non-cacheable denial.
package orgctx
