// Package api exposes the Gatehouse HTTP surface: entitlement mutations,
// org module listings, access diagnostics, the catalog listing, and the
// RequireModule gate for module-scoped routes.
//
// # Routes
//
//	GET  /catalog/modules                                 catalog listing (public)
//	GET  /orgs/{org_id}/modules                           catalog joined with org entitlements
//	PUT  /orgs/{org_id}/modules/{module_key}              entitlement mutation (platform admins)
//	GET  /orgs/{org_id}/modules/{module_key}/access       diagnostic access evaluation
//
// # Identity
//
// Tokens are verified upstream by the platform gateway; this layer extracts
// the requester from the bearer token's sub claim, or from X-User-ID for
// internal calls. Org-scoped routes without a usable identity get 401.
//
// # Error contract
//
// Validation failures map to 400, unknown orgs and modules to 404, dependency
// violations to 409 with the offending module lists, access denials to 403
// with {error, reason, module_key, org_id}, and a missing database schema to
// 503. Denial reasons are stable codes; clients branch on them, not on text.
package api
