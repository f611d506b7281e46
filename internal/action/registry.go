package action

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Module is the interface action modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Handler executes all actions of one kind.
type Handler interface {
	Kind() Kind
	// Run is called with a spec already validated for the handler's kind.
	Run(ctx context.Context, env *BuildEnv, spec Spec) (Result, error)
}

// Registry maps each action kind to the handler implementing it. It is
// populated during startup and read-only during execution.
type Registry struct {
	handlers map[Kind]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]Handler)}
}

// Register installs a handler under its kind.
func (r *Registry) Register(h Handler) {
	k := h.Kind()
	if _, exists := r.handlers[k]; exists {
		panic(fmt.Sprintf("action handler for kind '%s' already registered", k))
	}
	slog.Debug("Registering action handler.", "kind", k.String())
	r.handlers[k] = h
}

// Handler returns the handler for a kind, if one is registered.
func (r *Registry) Handler(k Kind) (Handler, bool) {
	h, ok := r.handlers[k]
	return h, ok
}

// Validate checks that a handler exists for every kind in use, so a rig
// cannot fail halfway through execution on a missing handler.
func (r *Registry) Validate(kinds []Kind) error {
	var missing []string
	for _, k := range kinds {
		if k == NoOp {
			continue
		}
		if _, ok := r.handlers[k]; !ok {
			missing = append(missing, "'"+k.String()+"'")
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("no action handler registered for kind(s) %s", strings.Join(missing, ", "))
	}
	return nil
}

// Execute validates the spec and dispatches it to the registered handler.
// NoOp specs complete inline without a handler.
func (r *Registry) Execute(ctx context.Context, env *BuildEnv, spec Spec) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	if spec.Kind == NoOp {
		return Result{}, nil
	}
	h, ok := r.handlers[spec.Kind]
	if !ok {
		return Result{}, fmt.Errorf("no action handler registered for kind '%s'", spec.Kind)
	}
	return h.Run(ctx, env, spec)
}
