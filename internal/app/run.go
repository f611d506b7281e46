package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avikov/forgerig/internal/ctxlog"
	"github.com/avikov/forgerig/internal/fsutil"
	"github.com/avikov/forgerig/internal/graph"
	"github.com/avikov/forgerig/internal/report"
)

// Run executes one entry point and renders its report. An empty label runs
// the default entry. The returned report carries the terminal state of
// every step in the entry's closure; the error covers lookup problems only.
func (a *App) Run(ctx context.Context, entryLabel string) (*graph.Report, error) {
	if entryLabel == "" {
		entryLabel = graph.DefaultEntry
	}
	ctx = ctxlog.WithLogger(ctx, a.logger)

	renderer := report.NewRenderer(a.outW)
	var onTerminal func(name string, state graph.State)
	if total, ok := a.graph.ClosureSize(entryLabel); ok {
		onTerminal = renderer.Progress(total, entryLabel)
	}

	rep, err := a.graph.Run(ctx, entryLabel, graph.Options{
		Workers:    a.config.Workers,
		Registry:   a.registry,
		Env:        a.env,
		Timeout:    a.config.Timeout,
		OnTerminal: onTerminal,
	})
	if err != nil {
		return nil, err
	}

	renderer.Render(rep)
	for _, f := range a.model.FanOuts {
		renderer.RenderJobs(rep, f.Name)
	}

	if rep.Failed() {
		if path, err := persistReport(rep, a.config.LogDir); err != nil {
			a.logger.Warn("Could not persist failure report.", "error", err)
		} else {
			a.logger.Info("Failure report saved.", "path", path)
		}
	}
	return rep, nil
}

// persistReport writes a failed run's report under the log dir so it
// survives the terminal scrollback.
func persistReport(rep *graph.Report, dir string) (string, error) {
	if err := fsutil.EnsureDir(dir); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s.log", rep.Entry, time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	report.NewRenderer(f).Render(rep)
	return path, f.Close()
}
