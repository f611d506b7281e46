// Package report renders run outcomes for the operator: per-step terminal
// states, a failure summary naming the specific cause, and an interactive
// progress bar for large fan-outs.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/avikov/forgerig/internal/graph"
)

// Renderer writes human-readable run output to one writer. Colors are used
// only when the writer is an interactive terminal.
type Renderer struct {
	w           io.Writer
	interactive bool
}

// NewRenderer creates a renderer for the given writer, detecting whether it
// is a terminal.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, interactive: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var stateThemes = map[graph.State]*color.Theme{
	graph.Succeeded: color.Success,
	graph.Failed:    color.Danger,
	graph.Blocked:   color.Warn,
	graph.Cancelled: color.Warn,
}

func (r *Renderer) paint(st graph.State, text string) string {
	if !r.interactive {
		return text
	}
	if theme, ok := stateThemes[st]; ok {
		return theme.Sprint(text)
	}
	return text
}

// Render writes the per-step outcomes and the run summary. Failed and
// blocked steps carry their error so the operator can see which input or
// step is to blame without reading logs.
func (r *Renderer) Render(rep *graph.Report) {
	fmt.Fprintf(r.w, "entry %q (target %q)\n", rep.Entry, rep.Target)
	for _, res := range rep.Results {
		line := fmt.Sprintf("  %-10s %s", res.State, res.Name)
		if res.Err != nil && res.State == graph.Failed {
			line += fmt.Sprintf("  (%v)", res.Err)
		}
		fmt.Fprintln(r.w, r.paint(res.State, line))
	}
	fmt.Fprintf(r.w, "%s\n", rep.Summary())

	if cause := rep.RootCause(); cause != nil {
		fmt.Fprintln(r.w, r.paint(graph.Failed, fmt.Sprintf("root cause: %v", cause)))
	}
}

// RenderJobs writes the per-input outcomes of a fan-out pipeline.
func (r *Renderer) RenderJobs(rep *graph.Report, aggregate string) {
	jobs := rep.JobResults(aggregate)
	if len(jobs) == 0 {
		return
	}
	fmt.Fprintf(r.w, "fan-out %q: %d inputs\n", aggregate, len(jobs))
	for _, job := range jobs {
		if job.Err != nil {
			fmt.Fprintln(r.w, r.paint(graph.Failed, fmt.Sprintf("  failed     %s  (%v)", job.Input, job.Err)))
			continue
		}
		fmt.Fprintln(r.w, r.paint(graph.Succeeded, fmt.Sprintf("  ok         %s", job.Input)))
	}
}

// Progress returns an OnTerminal callback driving a progress bar over the
// run's steps. Nil when the writer is not interactive, so non-TTY runs stay
// machine-readable.
func (r *Renderer) Progress(total int, description string) func(name string, st graph.State) {
	if !r.interactive || total == 0 {
		return nil
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return func(name string, st graph.State) {
		_ = bar.Add(1)
	}
}
