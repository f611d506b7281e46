// Package translate implements the 'translate_unit' action: one translator
// run over a single source unit. Fan-out pipelines create one instance per
// input, so a failure here stays attributable to its own unit.
package translate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/ctxlog"
	"github.com/avikov/forgerig/internal/toolchain"
)

// Module implements the action.Module interface for this package.
type Module struct{}

// Register registers the handler with the action registry.
func (m *Module) Register(r *action.Registry) {
	r.Register(&handler{})
}

type handler struct{}

func (h *handler) Kind() action.Kind { return action.TranslateUnit }

func (h *handler) Run(ctx context.Context, env *action.BuildEnv, spec action.Spec) (action.Result, error) {
	in := spec.Translate
	if env.Tools == nil {
		return action.Result{}, fmt.Errorf("translate: no toolchain configured")
	}

	source := env.InSource(in.Source)
	output := OutputPath(env.InOut(in.OutDir), source, in.Suffix)
	includeDirs := make([]string, 0, len(in.IncludeDirs))
	for _, dir := range in.IncludeDirs {
		includeDirs = append(includeDirs, env.InSource(dir))
	}

	ctxlog.FromContext(ctx).Info("Translating unit.", "source", source, "output", output)

	err := env.Tools.Translate(ctx, toolchain.TranslateJob{
		Source:      source,
		Output:      output,
		IncludeDirs: includeDirs,
	})
	if err != nil {
		return action.Result{}, fmt.Errorf("translate '%s': %w", source, err)
	}
	return action.Result{Output: output}, nil
}

// OutputPath derives the deterministic per-unit output location: the
// source's base name with its extension replaced by suffix, under outDir.
func OutputPath(outDir, source, suffix string) string {
	if suffix == "" {
		suffix = ".out"
	}
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, base+suffix)
}
