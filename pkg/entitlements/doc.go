// Package entitlements manages per-organization feature module entitlements.
//
// # Overview
//
// An entitlement is one row per (organization, module) recording whether the
// module is enabled, under which billing model, in which lifecycle status,
// and over which validity window. Rows are created lazily on first mutation
// and never hard-deleted; disabling a module is a status transition, not a
// removal.
//
// A module is satisfied when it is enabled, its status grants access
// (active or grace), and the current time falls inside its validity window.
// Satisfaction is the predicate the dependency graph and the access
// evaluator both consume.
//
// # Mutation Semantics
//
// Updates are partial: unsupplied fields keep the stored value, and a row
// created by its first mutation starts from fixed defaults (manual billing,
// active status, platform-admin source). The Service validates in a fixed
// order (resolvable identifiers, enum membership, window ordering) and then
// runs the dependency enforcer against the target enabled value and upserts,
// all inside a per-org advisory lock so concurrent writes to interdependent
// modules cannot validate against stale snapshots.
//
// # Usage Example
//
// Enable a module for an org:
//
//	enabled := true
//	row, err := service.Update(ctx, &entitlements.UpdateRequest{
//		OrgID:     orgID,
//		ModuleKey: "pricing_engine",
//		Enabled:   &enabled,
//		ActorID:   adminID,
//	})
//	if err != nil {
//		var violation *entitlements.DependencyViolationError
//		if errors.As(err, &violation) {
//			// report violation.MissingDependencies / violation.BlockingDependents
//		}
//	}
//
// List the full per-org view (one element per catalog module):
//
//	views, err := service.ListModules(ctx, orgID)
//
// # Related Packages
//
//   - pkg/catalog: Module registry and dependency graph
//   - pkg/access: Read-path access decisions over satisfied entitlements
//   - pkg/audit: Best-effort audit trail for mutations
package entitlements
