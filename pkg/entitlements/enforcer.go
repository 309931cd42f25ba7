package entitlements

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mobelwerk/gatehouse/pkg/catalog"
)

// Enforcer validates entitlement writes against the module dependency graph.
// Exactly one check runs per write, selected by the enabled value being
// written; re-asserting the current value re-validates all the same.
type Enforcer struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewEnforcer creates an enforcer over the given catalog.
func NewEnforcer(c *catalog.Catalog) *Enforcer {
	return &Enforcer{catalog: c, now: time.Now}
}

// Check runs the dependency check matching the target enabled value, reading
// entitlement state through reader (the caller's transaction on the write
// path). A *DependencyViolationError means the write must be aborted with no
// state change.
func (e *Enforcer) Check(ctx context.Context, reader Reader, orgID uuid.UUID, module catalog.Module, targetEnabled bool) error {
	if targetEnabled {
		return e.checkEnable(ctx, reader, orgID, module)
	}
	return e.checkDisable(ctx, reader, orgID, module)
}

// checkEnable requires every direct dependency of the module to be satisfied
// for the org. All unsatisfied keys are reported, not just the first.
func (e *Enforcer) checkEnable(ctx context.Context, reader Reader, orgID uuid.UUID, module catalog.Module) error {
	if len(module.DependencyKeys) == 0 {
		return nil
	}

	rows, err := reader.GetForModules(ctx, orgID, module.DependencyKeys)
	if err != nil {
		return fmt.Errorf("failed to load dependency entitlements: %w", err)
	}

	now := e.now()
	var missing []string
	for _, key := range module.DependencyKeys {
		if !rows[key].Satisfied(now) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &DependencyViolationError{ModuleKey: module.Key, MissingDependencies: missing}
	}
	return nil
}

// checkDisable requires that no module depending on this one is still
// satisfied for the org. Blocking dependents carry display names so the
// operator response can be rendered directly.
func (e *Enforcer) checkDisable(ctx context.Context, reader Reader, orgID uuid.UUID, module catalog.Module) error {
	dependents := e.catalog.DependentsOf(module.Key)
	if len(dependents) == 0 {
		return nil
	}

	keys := make([]string, 0, len(dependents))
	for _, dep := range dependents {
		keys = append(keys, dep.Key)
	}
	rows, err := reader.GetForModules(ctx, orgID, keys)
	if err != nil {
		return fmt.Errorf("failed to load dependent entitlements: %w", err)
	}

	now := e.now()
	var blocking []Dependent
	for _, dep := range dependents {
		if rows[dep.Key].Satisfied(now) {
			blocking = append(blocking, Dependent{Key: dep.Key, Name: dep.Name})
		}
	}
	if len(blocking) > 0 {
		return &DependencyViolationError{ModuleKey: module.Key, BlockingDependents: blocking}
	}
	return nil
}
