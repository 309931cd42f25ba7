// Package orgs provides read access to the membership directory for the
// Gatehouse entitlement service.
//
// # Overview
//
// Organizations, memberships, and platform-operator grants live in an
// external membership directory; Gatehouse consumes replicated copies of
// those tables and never writes to them. This package defines the typed view
// over that data (Organization, Membership, Role) and the Directory
// interface the resolver and evaluator depend on.
//
// # Conventions
//
// Absent rows are (nil, nil), never errors. The org context resolver needs
// to distinguish "this user has no membership here" (which feeds candidate
// fall-through) from "the directory query failed" (which must surface as a
// backend failure). Collapsing the two is exactly the bug this split
// prevents.
//
// Membership activity is decided in Go via Membership.ActiveAt, not in SQL,
// so the ban-expiry boundary is unit-tested. The platform-admin check runs
// its predicate in SQL because expiry there has no boundary subtleties and
// a single EXISTS keeps it one round trip.
//
// Roles are normalized onto the Role enum at scan time; unknown directory
// values collapse to RoleViewer.
//
// # Usage Example
//
//	directory := orgs.NewPostgresDirectory(db)
//	m, err := directory.GetMembership(ctx, userID, orgID)
//	if err != nil {
//		return err // directory unavailable
//	}
//	if m == nil || !m.ActiveAt(time.Now()) {
//		// not an active member
//	}
//
// # Related Packages
//
//   - pkg/orgctx: org context resolution over this directory
//   - pkg/access: platform-admin bypass checks
package orgs
