package graph

import (
	"fmt"
	"sort"
	"strings"
)

// StepResult is the terminal outcome of one step.
type StepResult struct {
	Name   string
	State  State
	Output string
	Err    error
}

// JobResult is the outcome of one fan-out unit, keyed by the unit's input
// identifier.
type JobResult struct {
	Input  string
	Output string
	Err    error
}

// Report captures the terminal state of every step in the executed closure,
// ordered by step name so output is reproducible.
type Report struct {
	Entry   string
	Target  string
	Results []StepResult
}

func newReport(entry, target string, closure map[string]*Step) *Report {
	names := make([]string, 0, len(closure))
	for name := range closure {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]StepResult, 0, len(names))
	for _, name := range names {
		step := closure[name]
		results = append(results, StepResult{
			Name:   step.name,
			State:  step.State(),
			Output: step.result.Output,
			Err:    step.err,
		})
	}
	return &Report{Entry: entry, Target: target, Results: results}
}

// Result looks up one step's outcome by name.
func (r *Report) Result(name string) (StepResult, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return StepResult{}, false
}

// OK reports whether every step in the closure succeeded.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if res.State != Succeeded {
			return false
		}
	}
	return true
}

// Failed reports whether any step failed or was blocked by a failure.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.State == Failed || res.State == Blocked {
			return true
		}
	}
	return false
}

// RootCause returns the first failure in name order, falling back to the
// first cancellation. Nil when the run succeeded.
func (r *Report) RootCause() error {
	for _, res := range r.Results {
		if res.State == Failed {
			return fmt.Errorf("step '%s': %w", res.Name, res.Err)
		}
	}
	for _, res := range r.Results {
		if res.State == Cancelled {
			return fmt.Errorf("step '%s': %w", res.Name, res.Err)
		}
	}
	return nil
}

// Counts tallies results per state.
func (r *Report) Counts() map[State]int {
	out := make(map[State]int)
	for _, res := range r.Results {
		out[res.State]++
	}
	return out
}

// Summary renders a compact one-line tally, e.g. "5 succeeded, 1 failed,
// 2 blocked".
func (r *Report) Summary() string {
	counts := r.Counts()
	parts := make([]string, 0, 4)
	for _, st := range []State{Succeeded, Failed, Blocked, Cancelled} {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, st))
		}
	}
	if len(parts) == 0 {
		return "no steps"
	}
	return strings.Join(parts, ", ")
}

// JobResults collects the per-unit outcomes of a fan-out pipeline, sorted by
// input identifier. Units are the steps named "<aggregate>:<id>".
func (r *Report) JobResults(aggregate string) []JobResult {
	prefix := aggregate + ":"
	var out []JobResult
	for _, res := range r.Results {
		if !strings.HasPrefix(res.Name, prefix) {
			continue
		}
		out = append(out, JobResult{
			Input:  strings.TrimPrefix(res.Name, prefix),
			Output: res.Output,
			Err:    res.Err,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Input < out[j].Input })
	return out
}
