// Package plan turns a loaded manifest model into an executable build graph
// plus the environment its actions run against. Planning resolves the build
// version, derives the platform configuration, expands fan-outs, and orders
// step registration so that rig declaration order never matters.
package plan

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/ctxlog"
	"github.com/avikov/forgerig/internal/fsutil"
	"github.com/avikov/forgerig/internal/graph"
	"github.com/avikov/forgerig/internal/manifest"
	"github.com/avikov/forgerig/internal/platform"
	"github.com/avikov/forgerig/internal/toolchain"
	"github.com/avikov/forgerig/internal/version"
)

// Options carries the invocation-level inputs planning needs.
type Options struct {
	Target   platform.Target
	Optimize string

	SourceDir  string
	OutDir     string
	InstallDir string

	Tools toolchain.Toolchain
}

// Build constructs the graph and environment for one invocation. Any error
// it returns is a configuration error; nothing has executed yet.
func Build(ctx context.Context, model *manifest.Model, opts Options) (*graph.Graph, *action.BuildEnv, error) {
	if err := model.Validate(); err != nil {
		return nil, nil, err
	}

	env := &action.BuildEnv{
		Version:    resolveVersion(ctx, model.VersionHeader, opts.SourceDir),
		Target:     opts.Target,
		Platform:   resolvePlatform(model.Platforms, opts.Target),
		Optimize:   opts.Optimize,
		SourceDir:  opts.SourceDir,
		OutDir:     opts.OutDir,
		InstallDir: opts.InstallDir,
		Tools:      opts.Tools,
	}

	g := graph.New()
	if err := addAll(g, model, env); err != nil {
		return nil, nil, err
	}
	if err := addEntries(ctx, g, model); err != nil {
		return nil, nil, err
	}
	return g, env, nil
}

// resolveVersion extracts the build version from the configured header. On
// extraction failure it falls back to version.Default — loudly: the fallback
// masks a genuine parse problem from aborting the build, so the operator
// must see it.
func resolveVersion(ctx context.Context, vh *manifest.VersionHeader, sourceDir string) version.Version {
	logger := ctxlog.FromContext(ctx)

	if vh == nil {
		logger.Debug("No version_header configured, using default version.", "version", version.Default)
		return version.Default
	}

	path := vh.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(sourceDir, path)
	}

	extract := version.FromFile
	if vh.Strict {
		extract = version.FromFileStrict
	}

	v, err := extract(path, vh.Markers)
	if err != nil {
		logger.Warn("⚠️ Version extraction failed, falling back to default version.",
			"header", path, "fallback", version.Default.String(), "error", err)
		return version.Default
	}

	logger.Info("Extracted build version.", "header", path, "version", v.String())
	return v
}

// resolvePlatform derives the base configuration for the target and applies
// rig overlays for the matching OS family, in declaration order.
func resolvePlatform(overlays []manifest.Platform, target platform.Target) platform.Config {
	cfg := platform.Resolve(target)
	for _, p := range overlays {
		if !platform.SameOS(p.OS, target.OS) {
			continue
		}
		cfg = cfg.WithExtraFlags(p.ExtraFlags...)
	}
	return cfg
}

// pendingUnit is one manifest block awaiting registration.
type pendingUnit struct {
	name   string
	deps   []string
	step   *manifest.Step
	fanout *manifest.FanOut
}

// addAll registers every step and fan-out. The graph only accepts steps
// whose dependencies already exist, so registration repeatedly sweeps the
// pending list adding whatever has become addable; manifest declaration
// order is irrelevant. A sweep that adds nothing means a dangling or
// circular dependency, reported via the graph's own sentinel error.
func addAll(g *graph.Graph, model *manifest.Model, env *action.BuildEnv) error {
	pending := make([]pendingUnit, 0, len(model.Steps)+len(model.FanOuts))
	for i := range model.Steps {
		s := &model.Steps[i]
		pending = append(pending, pendingUnit{name: s.Name, deps: s.DependsOn, step: s})
	}
	for i := range model.FanOuts {
		f := &model.FanOuts[i]
		pending = append(pending, pendingUnit{name: f.Name, deps: f.DependsOn, fanout: f})
	}

	for len(pending) > 0 {
		var stuck []pendingUnit
		progressed := false

		for _, unit := range pending {
			if !depsRegistered(g, unit.deps) {
				stuck = append(stuck, unit)
				continue
			}
			if err := addUnit(g, unit, env); err != nil {
				return err
			}
			progressed = true
		}

		if !progressed {
			// Force the graph to name the problem for the first stuck unit.
			if err := addUnit(g, stuck[0], env); err != nil {
				return err
			}
		}
		pending = stuck
	}
	return nil
}

func depsRegistered(g *graph.Graph, deps []string) bool {
	for _, dep := range deps {
		if _, ok := g.Step(dep); !ok {
			return false
		}
	}
	return true
}

func addUnit(g *graph.Graph, unit pendingUnit, env *action.BuildEnv) error {
	if unit.step != nil {
		_, err := g.AddStep(unit.step.Name, unit.step.DependsOn, unit.step.Spec)
		return err
	}
	return expandFanOut(g, unit.fanout, env)
}

// expandFanOut resolves the fan-out's inputs and expands it into per-unit
// steps plus the aggregate. Each unit gets its own immutable input record;
// nothing is captured by reference.
func expandFanOut(g *graph.Graph, f *manifest.FanOut, env *action.BuildEnv) error {
	inputs, err := resolveInputs(f, env.SourceDir)
	if err != nil {
		return err
	}

	units := make([]graph.Unit, 0, len(inputs))
	for _, input := range inputs {
		units = append(units, graph.Unit{ID: filepath.Base(input), Input: input})
	}

	template := *f.Translate
	_, err = graph.FanOut(g, graph.Pipeline{
		Aggregate: f.Name,
		Deps:      f.DependsOn,
		Units:     units,
		Spec: func(u graph.Unit) action.Spec {
			in := template
			in.Source = u.Input
			return action.NewTranslate(in)
		},
	})
	return err
}

// resolveInputs merges explicit inputs with glob matches, both resolved
// against the source dir. Glob expansion is sorted, so the generated step
// set is deterministic.
func resolveInputs(f *manifest.FanOut, sourceDir string) ([]string, error) {
	inputs := make([]string, 0, len(f.Inputs))
	for _, in := range f.Inputs {
		if !filepath.IsAbs(in) {
			in = filepath.Join(sourceDir, in)
		}
		inputs = append(inputs, in)
	}

	if f.Glob != "" {
		pattern := f.Glob
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(sourceDir, pattern)
		}
		matches, err := fsutil.SortedGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("fanout '%s': %w", f.Name, err)
		}
		inputs = append(inputs, matches...)
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("fanout '%s': no inputs matched", f.Name)
	}
	return inputs, nil
}

// addEntries registers the rig's entry labels and aliases the resolved
// default under the conventional "default" label. A rig with no default
// entry is allowed; running it then requires naming an entry explicitly.
func addEntries(ctx context.Context, g *graph.Graph, model *manifest.Model) error {
	for _, e := range model.Entries {
		if err := g.AddEntry(e.Label, e.Target); err != nil {
			return err
		}
	}

	label, ok := model.DefaultEntry()
	if !ok {
		ctxlog.FromContext(ctx).Debug("Rig declares no default entry.")
		return nil
	}
	if label == graph.DefaultEntry {
		return nil
	}
	target, _ := g.EntryTarget(label)
	return g.AddEntry(graph.DefaultEntry, target)
}
