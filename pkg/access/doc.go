// Package access is the read path: per-request decisions on whether a
// requester may use a feature module.
//
// # Overview
//
// The Evaluator orchestrates the module catalog, the membership directory,
// the org context resolver, and the entitlement store into a single Decision
// with a stable reason code. Platform operators short-circuit through a
// bypass that never touches entitlement state; everyone else is checked
// against the dependency-aware satisfied predicate: the module and its
// entire transitive dependency closure must each hold a satisfied
// entitlement, fetched in one store query.
//
// # Decision Cache
//
// Decisions are memoized in a DecisionCache keyed by (requester, module,
// resolved org, admin flag, bypass mode). The cache is the only shared
// mutable state on the read path and every backend is safe for concurrent
// use:
//
//   - MemoryCache (default): mutex-guarded map with TTL expiry; Set sweeps
//     expired entries once the map reaches its cap, so memory stays bounded
//     without a background task.
//   - LRUCache: size-bounded expirable LRU for bursty key populations.
//   - RedisCache: shared across instances; redis failures degrade to misses.
//
// Within one process a cached decision is stable for the TTL. Across
// instances the memory and LRU backends are not shared: an entitlement
// change is visible platform-wide only after every instance's TTL window
// lapses (bounded staleness, default 30s). Deploy the redis backend when
// that bound is too loose.
//
// Backend-failure denials (org_context_unavailable) are never cached:
// a transient directory outage must not pin denials past its cause.
//
// # Usage Example
//
//	cache := access.NewMemoryCache(access.DefaultTTL, access.DefaultSweepCap)
//	evaluator := access.NewEvaluator(cat, directory, store, cache, nil)
//
//	decision, err := evaluator.Require(ctx, userID, "furniture_configurator", access.Options{
//		HeaderOrg: r.Header.Get("X-Org-ID"),
//	})
//	if err != nil {
//		var denied *access.DeniedError
//		if errors.As(err, &denied) {
//			// render 403 with denied.Decision.Reason
//		}
//	}
//
// # Related Packages
//
//   - pkg/orgctx: Org context resolution and its precedence rules
//   - pkg/entitlements: The satisfied predicate and the mutation path
//   - pkg/catalog: Dependency closure used by the evaluator
package access
