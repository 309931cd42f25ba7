// Package catalog provides the feature-module registry for the Gatehouse
// entitlement service.
//
// # Overview
//
// The catalog is the authoritative list of feature modules the platform
// offers (configurators, pricing, logistics integrations, and so on), each
// identified by a stable snake_case key. Modules may declare dependencies on
// other modules; the resulting graph must be acyclic and is validated at
// construction time.
//
// The catalog is immutable after load. Mutation of module definitions is a
// deploy-time operation (new YAML file or catalog table migration), never a
// runtime one, which is what makes lock-free concurrent reads safe.
//
// # Loading
//
// Two sources are supported, selected by configuration:
//
//	cat, err := catalog.LoadFile("/etc/gatehouse/catalog.yaml")
//	cat, err := catalog.LoadDB(ctx, db)
//
// Both validate the same way: key format, uniqueness, dependency resolution,
// and cycle detection. A catalog that fails validation never boots the
// service.
//
// # Dependency queries
//
// Three views over the edges are precomputed:
//
//	mod, ok := cat.Lookup("furniture_configurator")
//	deps := mod.DependencyKeys                       // direct dependencies
//	dependents := cat.DependentsOf("pricing_engine") // direct reverse edges
//	closure := cat.Closure("furniture_configurator") // self + transitive deps
//
// The enforcer uses direct edges when validating writes; the access
// evaluator fetches entitlement rows for the full closure in a single query.
//
// # Related Packages
//
//   - pkg/entitlements: dependency enforcement against catalog edges
//   - pkg/access: closure-based satisfaction checks on the read path
package catalog
