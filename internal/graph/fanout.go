package graph

import (
	"errors"
	"fmt"

	"github.com/avikov/forgerig/internal/action"
)

// Unit is one independent input of a fan-out pipeline.
type Unit struct {
	// ID must be unique within the pipeline; it becomes the step name
	// suffix, so the same inputs always produce the same step names.
	ID string
	// Input is the value the unit's action processes, typically a file path.
	Input string
}

// Pipeline describes a fan-out expansion: one step per unit, no edges
// between siblings, plus an aggregate no-op step depending on all of them.
type Pipeline struct {
	// Aggregate is the name of the aggregate step and the prefix of every
	// unit step ("<aggregate>:<unit id>").
	Aggregate string
	// Deps are shared upstream dependencies applied to every unit.
	Deps  []string
	Units []Unit
	// Spec derives the unit's action from its immutable record. It is
	// called once per unit during expansion, never during execution.
	Spec func(Unit) action.Spec
}

// FanOut expands a pipeline into the graph and returns the aggregate step,
// which is the pipeline's addressable handle. With no units the aggregate
// still exists and trivially succeeds. A unit failure can block only the
// aggregate, never a sibling.
func FanOut(g *Graph, p Pipeline) (*Step, error) {
	if p.Aggregate == "" {
		return nil, errors.New("fanout: aggregate name must not be empty")
	}
	if p.Spec == nil {
		return nil, errors.New("fanout: spec function must not be nil")
	}

	seen := make(map[string]struct{}, len(p.Units))
	unitNames := make([]string, 0, len(p.Units))
	for _, unit := range p.Units {
		if unit.ID == "" {
			return nil, fmt.Errorf("fanout '%s': unit with empty ID (input %q)", p.Aggregate, unit.Input)
		}
		if _, dup := seen[unit.ID]; dup {
			return nil, fmt.Errorf("fanout '%s': duplicate unit ID '%s'", p.Aggregate, unit.ID)
		}
		seen[unit.ID] = struct{}{}

		name := p.Aggregate + ":" + unit.ID
		if _, err := g.AddStep(name, p.Deps, p.Spec(unit)); err != nil {
			return nil, fmt.Errorf("fanout '%s': %w", p.Aggregate, err)
		}
		unitNames = append(unitNames, name)
	}

	// A unit-less pipeline still waits on the shared deps.
	aggregateDeps := unitNames
	if len(aggregateDeps) == 0 {
		aggregateDeps = p.Deps
	}

	aggregate, err := g.AddStep(p.Aggregate, aggregateDeps, action.NewNoOp())
	if err != nil {
		return nil, fmt.Errorf("fanout '%s': %w", p.Aggregate, err)
	}
	return aggregate, nil
}
