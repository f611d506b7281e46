package graph

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/avikov/forgerig/internal/action"
)

// State is the execution state of a step. Terminal states are final for the
// duration of a run.
type State int32

const (
	// Pending indicates the step is waiting for its dependencies.
	Pending State = iota
	// Running indicates a worker is executing the step's action.
	Running
	// Succeeded indicates the action completed without error.
	Succeeded
	// Failed indicates the action itself returned an error.
	Failed
	// Blocked indicates the step never ran because an upstream step failed.
	// It is deliberately distinct from Failed: the step's own action was
	// never attempted.
	Blocked
	// Cancelled indicates the run's context expired before the step could
	// complete.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Blocked:
		return "blocked"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final within a run.
func (s State) Terminal() bool {
	switch s {
	case Succeeded, Failed, Blocked, Cancelled:
		return true
	default:
		return false
	}
}

// Step is a single vertex in the build graph: a named action plus its
// dependency edges. Scheduling state lives on the step and is written by
// exactly one goroutine per run, guarded by once for the competing skip
// paths.
type Step struct {
	name       string
	spec       action.Spec
	deps       map[string]*Step
	dependents map[string]*Step

	// depCount is the number of unmet dependencies, decremented by the
	// worker that finishes each one.
	depCount atomic.Int32
	state    atomic.Int32
	// once guards the terminal transition for steps that can be reached by
	// more than one mark path (two failed upstreams, cancellation).
	once *sync.Once

	// err and result are written before the terminal state store, so a
	// reader that observes a terminal state sees the final values.
	err    error
	result action.Result
}

func newStep(name string, spec action.Spec) *Step {
	return &Step{
		name:       name,
		spec:       spec,
		deps:       make(map[string]*Step),
		dependents: make(map[string]*Step),
		once:       new(sync.Once),
	}
}

// Name returns the step's unique name.
func (s *Step) Name() string { return s.name }

// Spec returns the step's action description.
func (s *Step) Spec() action.Spec { return s.spec }

// State atomically reads the step's current state.
func (s *Step) State() State { return State(s.state.Load()) }

// Err returns the terminal error, if any. Valid once State is terminal.
func (s *Step) Err() error { return s.err }

// Result returns the action's result. Valid once State is Succeeded.
func (s *Step) Result() action.Result { return s.result }

// Deps returns the names of the step's direct dependencies, sorted.
func (s *Step) Deps() []string {
	out := make([]string, 0, len(s.deps))
	for name := range s.deps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// reset prepares the step for a fresh run.
func (s *Step) reset() {
	s.state.Store(int32(Pending))
	s.err = nil
	s.result = action.Result{}
	s.once = new(sync.Once)
	s.depCount.Store(int32(len(s.deps)))
}

// finish records a terminal state. The error is stored first so readers that
// observe the state also see it.
func (s *Step) finish(st State, err error) {
	s.err = err
	s.state.Store(int32(st))
}
