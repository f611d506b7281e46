package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avikov/forgerig/internal/action"
)

func TestRun_UnknownEntry(t *testing.T) {
	g := New()
	mustAdd(t, g, "a")

	report, err := g.Run(quietCtx(), "nope", Options{})

	require.ErrorIs(t, err, ErrUnknownEntry)
	assert.Nil(t, report)
}

func TestRun_SingleStep(t *testing.T) {
	// --- Arrange ---
	m := newScriptedModule()
	g := New()
	mustAdd(t, g, "solo")
	require.NoError(t, g.AddEntry("default", "solo"))

	// --- Act ---
	report, err := g.Run(quietCtx(), "default", Options{Registry: m.registry()})

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.False(t, report.Failed())
	assert.Equal(t, "default", report.Entry)
	assert.Equal(t, "solo", report.Target)

	res, ok := report.Result("solo")
	require.True(t, ok)
	assert.Equal(t, Succeeded, res.State)
	assert.Equal(t, "out/solo", res.Output)
	assert.NoError(t, res.Err)
}

func TestRun_DependencyOrder(t *testing.T) {
	m := newScriptedModule()
	g := New()
	mustAdd(t, g, "fetch")
	mustAdd(t, g, "build", "fetch")
	mustAdd(t, g, "install", "build")
	require.NoError(t, g.AddEntry("default", "install"))

	report, err := g.Run(quietCtx(), "default", Options{Registry: m.registry(), Workers: 4})

	require.NoError(t, err)
	require.True(t, report.OK())
	assert.Less(t, m.rec.indexOf("fetch"), m.rec.indexOf("build"))
	assert.Less(t, m.rec.indexOf("build"), m.rec.indexOf("install"))
}

func TestRun_DiamondRunsEachStepOnce(t *testing.T) {
	m := newScriptedModule()
	g := New()
	mustAdd(t, g, "base")
	mustAdd(t, g, "left", "base")
	mustAdd(t, g, "right", "base")
	mustAdd(t, g, "top", "left", "right")
	require.NoError(t, g.AddEntry("default", "top"))

	report, err := g.Run(quietCtx(), "default", Options{Registry: m.registry(), Workers: 4})

	require.NoError(t, err)
	require.True(t, report.OK())
	for _, name := range []string{"base", "left", "right", "top"} {
		assert.Equalf(t, 1, m.rec.count(name), "step %q must run exactly once", name)
	}
	assert.Less(t, m.rec.indexOf("base"), m.rec.indexOf("left"))
	assert.Less(t, m.rec.indexOf("base"), m.rec.indexOf("right"))
	assert.Greater(t, m.rec.indexOf("top"), m.rec.indexOf("left"))
	assert.Greater(t, m.rec.indexOf("top"), m.rec.indexOf("right"))
}

func TestRun_FailureIsolatesDependents(t *testing.T) {
	// --- Arrange ---
	// prepare -> compile -> archive feed into site; docs is an independent
	// branch of the same closure.
	boom := errors.New("header not found")
	m := newScriptedModule()
	m.fail["prepare"] = boom

	g := New()
	mustAdd(t, g, "prepare")
	mustAdd(t, g, "compile", "prepare")
	mustAdd(t, g, "archive", "compile")
	mustAdd(t, g, "docs")
	mustAdd(t, g, "site", "archive", "docs")
	require.NoError(t, g.AddEntry("default", "site"))

	// --- Act ---
	report, err := g.Run(quietCtx(), "default", Options{Registry: m.registry(), Workers: 4})

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.False(t, report.OK())

	prepare, _ := report.Result("prepare")
	assert.Equal(t, Failed, prepare.State)
	assert.ErrorIs(t, prepare.Err, boom)

	// Direct and transitive dependents are blocked, not failed, and their
	// error names the step that actually failed.
	for _, name := range []string{"compile", "archive", "site"} {
		res, ok := report.Result(name)
		require.True(t, ok)
		assert.Equalf(t, Blocked, res.State, "step %q", name)
		require.ErrorIs(t, res.Err, ErrBlocked)

		var blocked *BlockedError
		require.ErrorAs(t, res.Err, &blocked)
		assert.Equal(t, "prepare", blocked.Dependency)
	}

	// Blocked steps never execute their action.
	assert.False(t, m.rec.ran("compile"))
	assert.False(t, m.rec.ran("archive"))

	// The independent branch is untouched by the failure.
	docs, _ := report.Result("docs")
	assert.Equal(t, Succeeded, docs.State)

	assert.ErrorIs(t, report.RootCause(), boom)
	assert.Contains(t, report.Summary(), "1 failed")
	assert.Contains(t, report.Summary(), "3 blocked")
}

func TestRun_OnlyRequestedClosureExecutes(t *testing.T) {
	m := newScriptedModule()
	g := New()
	mustAdd(t, g, "core")
	mustAdd(t, g, "lib", "core")
	mustAdd(t, g, "samples", "core")
	require.NoError(t, g.AddEntry("lib", "lib"))
	require.NoError(t, g.AddEntry("samples", "samples"))

	report, err := g.Run(quietCtx(), "lib", Options{Registry: m.registry()})

	require.NoError(t, err)
	assert.True(t, report.OK())
	require.Len(t, report.Results, 2)

	_, inReport := report.Result("samples")
	assert.False(t, inReport, "steps outside the closure must not be reported")
	assert.False(t, m.rec.ran("samples"), "steps outside the closure must not run")

	samples, _ := g.Step("samples")
	assert.Equal(t, Pending, samples.State())
}

func TestRun_ExactlyOnceUnderContention(t *testing.T) {
	m := newScriptedModule()
	g := New()
	deps := make([]string, 0, 20)
	for _, name := range []string{
		"u00", "u01", "u02", "u03", "u04", "u05", "u06", "u07", "u08", "u09",
		"u10", "u11", "u12", "u13", "u14", "u15", "u16", "u17", "u18", "u19",
	} {
		mustAdd(t, g, name)
		deps = append(deps, name)
	}
	_, err := g.AddStep("all", deps, action.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, g.AddEntry("default", "all"))

	report, runErr := g.Run(quietCtx(), "default", Options{Registry: m.registry(), Workers: 8})

	require.NoError(t, runErr)
	require.True(t, report.OK())
	for _, dep := range deps {
		assert.Equalf(t, 1, m.rec.count(dep), "step %q must run exactly once", dep)
	}
}

func TestRun_IndependentStepsOverlap(t *testing.T) {
	m := newScriptedModule()
	m.delay["left"] = 100 * time.Millisecond
	m.delay["right"] = 100 * time.Millisecond

	g := New()
	mustAdd(t, g, "left")
	mustAdd(t, g, "right")
	_, err := g.AddStep("both", []string{"left", "right"}, action.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, g.AddEntry("default", "both"))

	_, runErr := g.Run(quietCtx(), "default", Options{Registry: m.registry(), Workers: 2})

	require.NoError(t, runErr)
	assert.Equal(t, 2, m.rec.max(), "independent steps should run concurrently")
}

func TestRun_SingleWorkerSerializesEverything(t *testing.T) {
	m := newScriptedModule()
	m.delay["a"] = 20 * time.Millisecond
	m.delay["b"] = 20 * time.Millisecond
	m.delay["c"] = 20 * time.Millisecond

	g := New()
	mustAdd(t, g, "a")
	mustAdd(t, g, "b")
	mustAdd(t, g, "c")
	_, err := g.AddStep("all", []string{"a", "b", "c"}, action.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, g.AddEntry("default", "all"))

	report, runErr := g.Run(quietCtx(), "default", Options{Registry: m.registry(), Workers: 1})

	require.NoError(t, runErr)
	assert.True(t, report.OK())
	assert.Equal(t, 1, m.rec.max(), "one worker must never run two steps at once")
}

func TestRun_TimeoutCancelsDistinctFromFailure(t *testing.T) {
	// --- Arrange ---
	m := newScriptedModule()
	m.hang["slow"] = true

	g := New()
	mustAdd(t, g, "quick")
	mustAdd(t, g, "slow")
	mustAdd(t, g, "after", "slow")
	_, err := g.AddStep("all", []string{"quick", "after"}, action.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, g.AddEntry("default", "all"))

	// --- Act ---
	report, runErr := g.Run(quietCtx(), "default", Options{
		Registry: m.registry(),
		Workers:  4,
		Timeout:  150 * time.Millisecond,
	})

	// --- Assert ---
	require.NoError(t, runErr)
	assert.False(t, report.OK())
	assert.False(t, report.Failed(), "cancellation is not a failure")

	slow, _ := report.Result("slow")
	assert.Equal(t, Cancelled, slow.State)
	assert.ErrorIs(t, slow.Err, context.DeadlineExceeded)

	after, _ := report.Result("after")
	assert.Equal(t, Cancelled, after.State)
	assert.False(t, m.rec.ran("after"))

	quick, _ := report.Result("quick")
	assert.Equal(t, Succeeded, quick.State)

	assert.ErrorIs(t, report.RootCause(), context.DeadlineExceeded)
}

func TestRun_ReportOrderedByName(t *testing.T) {
	m := newScriptedModule()
	g := New()
	mustAdd(t, g, "zeta")
	mustAdd(t, g, "alpha", "zeta")
	mustAdd(t, g, "mid", "alpha")
	require.NoError(t, g.AddEntry("default", "mid"))

	report, err := g.Run(quietCtx(), "default", Options{Registry: m.registry()})

	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "alpha", report.Results[0].Name)
	assert.Equal(t, "mid", report.Results[1].Name)
	assert.Equal(t, "zeta", report.Results[2].Name)
}

func TestRun_RootCausePicksFirstFailureByName(t *testing.T) {
	m := newScriptedModule()
	m.fail["bravo"] = errors.New("bravo broke")
	m.fail["alpha"] = errors.New("alpha broke")

	g := New()
	mustAdd(t, g, "alpha")
	mustAdd(t, g, "bravo")
	_, err := g.AddStep("all", []string{"alpha", "bravo"}, action.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, g.AddEntry("default", "all"))

	report, runErr := g.Run(quietCtx(), "default", Options{Registry: m.registry(), Workers: 2})

	require.NoError(t, runErr)
	require.Error(t, report.RootCause())
	assert.Contains(t, report.RootCause().Error(), "alpha")
}

func TestRun_NoOpGraphNeedsNoRegistry(t *testing.T) {
	g := New()
	_, err := g.AddStep("a", nil, action.NewNoOp())
	require.NoError(t, err)
	_, err = g.AddStep("b", []string{"a"}, action.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, g.AddEntry("default", "b"))

	report, runErr := g.Run(quietCtx(), "default", Options{})

	require.NoError(t, runErr)
	assert.True(t, report.OK())
}

func TestRun_RepeatedRunsYieldIdenticalStates(t *testing.T) {
	states := func(rep *Report) map[string]State {
		out := make(map[string]State, len(rep.Results))
		for _, res := range rep.Results {
			out[res.Name] = res.State
		}
		return out
	}

	t.Run("succeeding closure", func(t *testing.T) {
		m := newScriptedModule()
		g := New()
		mustAdd(t, g, "base")
		mustAdd(t, g, "left", "base")
		mustAdd(t, g, "right", "base")
		mustAdd(t, g, "top", "left", "right")
		require.NoError(t, g.AddEntry("default", "top"))

		first, err := g.Run(quietCtx(), "default", Options{Registry: m.registry(), Workers: 4})
		require.NoError(t, err)
		second, err := g.Run(quietCtx(), "default", Options{Registry: m.registry(), Workers: 4})
		require.NoError(t, err)

		assert.True(t, first.OK())
		assert.Equal(t, states(first), states(second))
		assert.Equal(t, first.Summary(), second.Summary())

		// The second run re-executes every step, it does not replay the
		// first run's results.
		for _, name := range []string{"base", "left", "right", "top"} {
			assert.Equalf(t, 2, m.rec.count(name), "step %q must run once per invocation", name)
		}
	})

	t.Run("failing closure", func(t *testing.T) {
		boom := errors.New("header not found")
		m := newScriptedModule()
		m.fail["compile"] = boom

		g := New()
		mustAdd(t, g, "prepare")
		mustAdd(t, g, "compile", "prepare")
		mustAdd(t, g, "archive", "compile")
		mustAdd(t, g, "docs")
		mustAdd(t, g, "site", "archive", "docs")
		require.NoError(t, g.AddEntry("default", "site"))

		first, err := g.Run(quietCtx(), "default", Options{Registry: m.registry(), Workers: 4})
		require.NoError(t, err)
		second, err := g.Run(quietCtx(), "default", Options{Registry: m.registry(), Workers: 4})
		require.NoError(t, err)

		assert.True(t, first.Failed())
		assert.Equal(t, states(first), states(second))
		assert.Equal(t, map[string]State{
			"prepare": Succeeded,
			"compile": Failed,
			"archive": Blocked,
			"docs":    Succeeded,
			"site":    Blocked,
		}, states(second))
		assert.ErrorIs(t, second.RootCause(), boom)

		// Blocked steps stay unexecuted on every run.
		assert.Equal(t, 2, m.rec.count("compile"))
		assert.Equal(t, 0, m.rec.count("archive"))
	})
}

func TestRun_MissingHandlerFailsTheStep(t *testing.T) {
	g := New()
	mustAdd(t, g, "orphan")
	require.NoError(t, g.AddEntry("default", "orphan"))

	report, err := g.Run(quietCtx(), "default", Options{})

	require.NoError(t, err)
	res, _ := report.Result("orphan")
	assert.Equal(t, Failed, res.State)
	assert.ErrorContains(t, res.Err, "no action handler registered")
}
