package entitlements

import (
	"fmt"
	"strings"
)

// ValidationError reports a request field that failed validation. Maps to
// HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports an unresolvable org or module reference. Maps to
// HTTP 404.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Dependent names a module blocking a disable, with its display name so
// operator tooling can render remediation without a second catalog lookup.
type Dependent struct {
	Key  string `json:"module_key"`
	Name string `json:"module_name"`
}

// DependencyViolationError reports a write blocked by the module dependency
// graph. Exactly one of MissingDependencies or BlockingDependents is
// populated, matching the direction of the rejected write. All offending
// modules are listed, not just the first. Maps to HTTP 409.
type DependencyViolationError struct {
	ModuleKey           string      `json:"module_key"`
	MissingDependencies []string    `json:"missing_dependencies,omitempty"`
	BlockingDependents  []Dependent `json:"dependent_modules,omitempty"`
}

func (e *DependencyViolationError) Error() string {
	if len(e.MissingDependencies) > 0 {
		return fmt.Sprintf("cannot enable %s: unsatisfied dependencies: %s",
			e.ModuleKey, strings.Join(e.MissingDependencies, ", "))
	}
	keys := make([]string, 0, len(e.BlockingDependents))
	for _, d := range e.BlockingDependents {
		keys = append(keys, d.Key)
	}
	return fmt.Sprintf("cannot disable %s: still required by: %s",
		e.ModuleKey, strings.Join(keys, ", "))
}
