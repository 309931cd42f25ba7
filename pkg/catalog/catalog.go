package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrUnknownModule is returned when a module key is not present in the catalog.
var ErrUnknownModule = errors.New("unknown module")

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Module describes one feature module offered by the platform.
type Module struct {
	Key            string   `json:"key" yaml:"key"`
	Name           string   `json:"name" yaml:"name"`
	DependencyKeys []string `json:"dependency_keys" yaml:"depends_on"`
	Core           bool     `json:"is_core" yaml:"core"`
}

// Catalog is the immutable registry of feature modules and their dependency
// edges. It is built once at startup and safe for concurrent reads.
type Catalog struct {
	modules    map[string]Module
	order      []string
	dependents map[string][]string
	closures   map[string][]string
}

// New builds a catalog from the given modules. It validates key format,
// uniqueness, dependency resolution, and rejects dependency cycles.
func New(modules []Module) (*Catalog, error) {
	c := &Catalog{
		modules:    make(map[string]Module, len(modules)),
		order:      make([]string, 0, len(modules)),
		dependents: make(map[string][]string),
		closures:   make(map[string][]string, len(modules)),
	}

	for _, m := range modules {
		if !keyPattern.MatchString(m.Key) {
			return nil, fmt.Errorf("invalid module key %q", m.Key)
		}
		if _, exists := c.modules[m.Key]; exists {
			return nil, fmt.Errorf("duplicate module key %q", m.Key)
		}
		if m.Name == "" {
			m.Name = m.Key
		}
		c.modules[m.Key] = m
		c.order = append(c.order, m.Key)
	}

	for _, m := range modules {
		for _, dep := range m.DependencyKeys {
			if _, ok := c.modules[dep]; !ok {
				return nil, fmt.Errorf("module %q depends on %w %q", m.Key, ErrUnknownModule, dep)
			}
			c.dependents[dep] = append(c.dependents[dep], m.Key)
		}
	}
	for dep := range c.dependents {
		sort.Strings(c.dependents[dep])
	}

	if err := c.detectCycles(); err != nil {
		return nil, err
	}
	c.buildClosures()

	return c, nil
}

// detectCycles runs a three-color depth-first search over the dependency
// edges. The returned error names the offending path.
func (c *Catalog) detectCycles() error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(c.modules))
	path := make([]string, 0, len(c.modules))

	var visit func(key string) error
	visit = func(key string) error {
		color[key] = gray
		path = append(path, key)
		for _, dep := range c.modules[key].DependencyKeys {
			switch color[dep] {
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			case gray:
				cycle := append(append([]string{}, path...), dep)
				return fmt.Errorf("dependency cycle: %s", strings.Join(cycle, " -> "))
			}
		}
		path = path[:len(path)-1]
		color[key] = black
		return nil
	}

	for _, key := range c.order {
		if color[key] == white {
			if err := visit(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildClosures precomputes, for every module, the module itself plus its
// transitive dependency set. The evaluator fetches entitlement rows for the
// whole closure in one query.
func (c *Catalog) buildClosures() {
	for _, key := range c.order {
		seen := map[string]bool{key: true}
		var walk func(k string)
		walk = func(k string) {
			for _, dep := range c.modules[k].DependencyKeys {
				if !seen[dep] {
					seen[dep] = true
					walk(dep)
				}
			}
		}
		walk(key)

		closure := make([]string, 0, len(seen))
		for k := range seen {
			if k != key {
				closure = append(closure, k)
			}
		}
		sort.Strings(closure)
		c.closures[key] = append([]string{key}, closure...)
	}
}

// Lookup returns the module for key, if registered.
func (c *Catalog) Lookup(key string) (Module, bool) {
	m, ok := c.modules[key]
	return m, ok
}

// DependentsOf returns the modules that directly depend on key, in stable
// key order. Unknown keys return nil.
func (c *Catalog) DependentsOf(key string) []Module {
	keys := c.dependents[key]
	if len(keys) == 0 {
		return nil
	}
	out := make([]Module, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.modules[k])
	}
	return out
}

// Closure returns key followed by its transitive dependency keys in sorted
// order. Unknown keys return nil.
func (c *Catalog) Closure(key string) []string {
	closure, ok := c.closures[key]
	if !ok {
		return nil
	}
	out := make([]string, len(closure))
	copy(out, closure)
	return out
}

// Modules returns all modules in registration order.
func (c *Catalog) Modules() []Module {
	out := make([]Module, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.modules[key])
	}
	return out
}

// Len reports the number of registered modules.
func (c *Catalog) Len() int {
	return len(c.modules)
}
