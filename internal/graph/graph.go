package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/avikov/forgerig/internal/action"
)

// DefaultEntry is the conventional label run when the caller names none.
const DefaultEntry = "default"

// Graph is a collection of steps and their dependencies, plus the entry
// labels that make subsets of it addressable. All operations are
// concurrency-safe.
type Graph struct {
	mu sync.RWMutex
	// steps stores all steps keyed by their unique name.
	steps map[string]*Step
	// order remembers insertion order for stable listings.
	order []string
	// entries maps entry labels to step names.
	entries map[string]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		steps:   make(map[string]*Step),
		entries: make(map[string]string),
	}
}

// AddStep registers a named step with its dependencies. Every dependency
// must already be registered; forward references are rejected, so a
// successfully built graph can never contain a cycle. On error the graph is
// left unchanged.
func (g *Graph) AddStep(name string, deps []string, spec action.Spec) (*Step, error) {
	if name == "" {
		return nil, errors.New("step name must not be empty")
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("step '%s': %w", name, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.steps[name]; exists {
		return nil, fmt.Errorf("%w: '%s'", ErrDuplicateStep, name)
	}

	// Validate the whole dependency list before touching any step, so a
	// failed add leaves no half-linked edges behind.
	resolved := make([]*Step, 0, len(deps))
	for _, dep := range deps {
		if dep == name {
			return nil, fmt.Errorf("%w: '%s'", ErrSelfDependency, name)
		}
		depStep, ok := g.steps[dep]
		if !ok {
			return nil, fmt.Errorf("%w: '%s' (required by '%s')", ErrUnknownDependency, dep, name)
		}
		resolved = append(resolved, depStep)
	}

	step := newStep(name, spec)
	for _, depStep := range resolved {
		step.deps[depStep.name] = depStep
		depStep.dependents[name] = step
	}

	g.steps[name] = step
	g.order = append(g.order, name)
	return step, nil
}

// AddEntry makes a registered step addressable under a label.
func (g *Graph) AddEntry(label, stepName string) error {
	if label == "" {
		return errors.New("entry label must not be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.entries[label]; exists {
		return fmt.Errorf("%w: '%s'", ErrDuplicateEntry, label)
	}
	if _, ok := g.steps[stepName]; !ok {
		return fmt.Errorf("%w: '%s' (entry '%s')", ErrUnknownStep, stepName, label)
	}
	g.entries[label] = stepName
	return nil
}

// Entry is one addressable entry point.
type Entry struct {
	Label string
	Step  string
}

// Entries returns all entry points sorted by label.
func (g *Graph) Entries() []Entry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Entry, 0, len(g.entries))
	for label, step := range g.entries {
		out = append(out, Entry{Label: label, Step: step})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// EntryTarget resolves an entry label to its step name.
func (g *Graph) EntryTarget(label string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	step, ok := g.entries[label]
	return step, ok
}

// ClosureSize reports how many steps the entry's closure contains, without
// executing anything.
func (g *Graph) ClosureSize(label string) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	target, ok := g.entries[label]
	if !ok {
		return 0, false
	}
	return len(g.closureOf(g.steps[target])), true
}

// Step looks up a step by name.
func (g *Graph) Step(name string) (*Step, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.steps[name]
	return s, ok
}

// Len returns the number of registered steps.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.steps)
}

// StepNames returns all step names sorted.
func (g *Graph) StepNames() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, 0, len(g.steps))
	for name := range g.steps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Kinds returns the distinct action kinds used by registered steps, so the
// action registry can be checked for coverage before execution.
func (g *Graph) Kinds() []action.Kind {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[action.Kind]struct{})
	var out []action.Kind
	for _, s := range g.steps {
		if _, ok := seen[s.spec.Kind]; ok {
			continue
		}
		seen[s.spec.Kind] = struct{}{}
		out = append(out, s.spec.Kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate re-checks structural invariants that construction already
// enforces: every edge resolves and no cycle exists.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.detectCycles()
}

// detectCycles checks for circular dependencies using DFS. Callers hold the
// graph lock.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(step *Step) error
	visit = func(step *Step) error {
		visiting[step.name] = true
		for _, dep := range step.deps {
			if visiting[dep.name] {
				return fmt.Errorf("cycle detected involving '%s'", dep.name)
			}
			if !visited[dep.name] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, step.name)
		visited[step.name] = true
		return nil
	}

	for _, step := range g.steps {
		if !visited[step.name] {
			if err := visit(step); err != nil {
				return err
			}
		}
	}
	return nil
}

// closureOf collects the step and everything it transitively depends on.
// Callers hold the graph lock.
func (g *Graph) closureOf(root *Step) map[string]*Step {
	out := make(map[string]*Step)
	var visit func(s *Step)
	visit = func(s *Step) {
		if _, ok := out[s.name]; ok {
			return
		}
		out[s.name] = s
		for _, dep := range s.deps {
			visit(dep)
		}
	}
	visit(root)
	return out
}
