package graph

import (
	"errors"
	"fmt"
)

// Construction and lookup errors. Callers discriminate with errors.Is.
var (
	// ErrDuplicateStep reports a step name that is already registered.
	ErrDuplicateStep = errors.New("duplicate step")
	// ErrUnknownDependency reports a dependency on a step that has not been
	// registered yet. Dependencies resolve against already-added steps only,
	// which is what keeps the graph acyclic by construction.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrSelfDependency reports a step declared to depend on itself.
	ErrSelfDependency = errors.New("step depends on itself")
	// ErrUnknownStep reports an entry registration naming a missing step.
	ErrUnknownStep = errors.New("unknown step")
	// ErrDuplicateEntry reports an entry label that is already registered.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrUnknownEntry reports a run request for an unregistered entry label.
	ErrUnknownEntry = errors.New("unknown entry")

	// ErrBlocked is the category under every BlockedError.
	ErrBlocked = errors.New("blocked by upstream failure")
)

// BlockedError marks a step that never ran because a step upstream of it
// failed. Dependency names the failed step, which may be several edges away.
type BlockedError struct {
	Step       string
	Dependency string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("step '%s' blocked by failure of '%s'", e.Step, e.Dependency)
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }
