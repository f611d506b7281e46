package graph

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/ctxlog"
)

// Options configures one run.
type Options struct {
	// Workers bounds the pool; zero or negative means runtime.NumCPU().
	Workers int
	// Registry dispatches step actions. A nil registry can run NoOp-only
	// graphs; anything else fails per step.
	Registry *action.Registry
	// Env is handed to every action.
	Env *action.BuildEnv
	// Timeout, when positive, bounds the whole run. Steps that are not
	// terminal at expiry become Cancelled.
	Timeout time.Duration
	// OnTerminal, when set, is called once per step as it reaches a
	// terminal state. It may be invoked from several workers at once and
	// must be fast.
	OnTerminal func(name string, state State)
}

// executor owns the scheduling state for a single run.
type executor struct {
	registry   *action.Registry
	env        *action.BuildEnv
	closure    map[string]*Step
	ready      chan *Step
	wg         sync.WaitGroup
	onTerminal func(name string, state State)
}

func (e *executor) notify(step *Step) {
	if e.onTerminal != nil {
		e.onTerminal(step.name, step.State())
	}
}

// Run executes the transitive closure of the entry's target step, each step
// exactly once, respecting dependency order. Steps outside the closure are
// never touched. The returned error covers lookup problems only; execution
// outcomes live in the report.
func (g *Graph) Run(ctx context.Context, entryLabel string, opts Options) (*Report, error) {
	logger := ctxlog.FromContext(ctx)

	g.mu.RLock()
	target, ok := g.entries[entryLabel]
	if !ok {
		g.mu.RUnlock()
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownEntry, entryLabel)
	}
	root := g.steps[target]
	closure := g.closureOf(root)
	g.mu.RUnlock()

	registry := opts.Registry
	if registry == nil {
		registry = action.NewRegistry()
	}
	env := opts.Env
	if env == nil {
		env = &action.BuildEnv{}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	e := &executor{
		registry:   registry,
		env:        env,
		closure:    closure,
		ready:      make(chan *Step, len(closure)),
		onTerminal: opts.OnTerminal,
	}

	logger.Info("🚀 Starting run.", "entry", entryLabel, "target", target, "steps", len(closure), "workers", workers)

	for _, step := range closure {
		step.reset()
	}

	// Seed root steps in name order so single-worker runs are reproducible.
	roots := make([]*Step, 0, len(closure))
	for _, step := range closure {
		if step.depCount.Load() == 0 {
			roots = append(roots, step)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].name < roots[j].name })
	for _, step := range roots {
		logger.Debug("Found root step.", "step", step.name)
		e.ready <- step
	}

	e.wg.Add(len(closure))

	logger.Debug("Starting worker pool.", "workers", workers)
	for i := 0; i < workers; i++ {
		go e.worker(ctx, i)
	}

	e.wg.Wait()
	close(e.ready)

	report := newReport(entryLabel, target, closure)
	logger.Info("🏁 Run complete.", "entry", entryLabel, "summary", report.Summary())
	return report, nil
}

// worker is the processing loop for a single concurrent worker.
func (e *executor) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for step := range e.ready {
		stepLogger := logger.With("workerID", workerID, "step", step.name)

		if ctx.Err() != nil {
			stepLogger.Warn("Context expired, cancelling queued step.")
			e.cancel(ctx, step, ctx.Err())
			continue
		}

		stepLogger.Info("▶️ Starting step", "action", step.spec.Kind.String())
		step.state.Store(int32(Running))

		result, err := e.registry.Execute(ctx, e.env, step.spec)
		if err != nil {
			if ctx.Err() != nil {
				stepLogger.Warn("Step aborted by cancellation.", "error", err)
				e.cancel(ctx, step, err)
				continue
			}
			stepLogger.Error("Step failed.", "error", err)
			e.fail(ctx, step, err)
			continue
		}

		step.result = result
		step.finish(Succeeded, nil)
		e.notify(step)
		stepLogger.Info("✅ Finished step")

		for _, dependent := range step.dependents {
			if _, inClosure := e.closure[dependent.name]; !inClosure {
				continue
			}
			if dependent.depCount.Add(-1) == 0 {
				stepLogger.Debug("Unlocking dependent step.", "dependent", dependent.name)
				e.ready <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// fail marks a step Failed and isolates the damage: transitive dependents
// are Blocked, nothing else is disturbed.
func (e *executor) fail(ctx context.Context, step *Step, err error) {
	step.once.Do(func() {
		step.finish(Failed, err)
		e.notify(step)
		e.wg.Done()
	})
	e.blockDependents(ctx, step, step.name)
}

// cancel marks a step Cancelled and propagates to its dependents, which can
// no longer run either.
func (e *executor) cancel(ctx context.Context, step *Step, err error) {
	step.once.Do(func() {
		step.finish(Cancelled, err)
		e.notify(step)
		e.wg.Done()
	})
	e.cancelDependents(ctx, step, err)
}

// blockDependents recursively marks downstream steps Blocked. The failed
// root is carried through the recursion so every blocked step names the
// step that actually failed.
func (e *executor) blockDependents(ctx context.Context, step *Step, failedRoot string) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range step.dependents {
		if _, inClosure := e.closure[dependent.name]; !inClosure {
			continue
		}
		dependent.once.Do(func() {
			logger.Warn("Blocking dependent step due to upstream failure.", "step", dependent.name, "failed", failedRoot)
			dependent.finish(Blocked, &BlockedError{Step: dependent.name, Dependency: failedRoot})
			e.notify(dependent)
			e.wg.Done()
			e.blockDependents(ctx, dependent, failedRoot)
		})
	}
}

// cancelDependents recursively marks downstream steps Cancelled.
func (e *executor) cancelDependents(ctx context.Context, step *Step, err error) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range step.dependents {
		if _, inClosure := e.closure[dependent.name]; !inClosure {
			continue
		}
		dependent.once.Do(func() {
			logger.Warn("Cancelling dependent step.", "step", dependent.name)
			dependent.finish(Cancelled, err)
			e.notify(dependent)
			e.wg.Done()
			e.cancelDependents(ctx, dependent, err)
		})
	}
}
