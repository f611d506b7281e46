// Package compile implements the 'compile' action: one toolchain invocation
// over a list of sources, parameterized entirely by the resolved platform
// configuration and build environment.
package compile

import (
	"context"
	"fmt"

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

func (h *handler) Kind() action.Kind { return action.Compile }

func (h *handler) Run(ctx context.Context, env *action.BuildEnv, spec action.Spec) (action.Result, error) {
	in := spec.Compile
	if env.Tools == nil {
		return action.Result{}, fmt.Errorf("compile: no toolchain configured")
	}

	sources := make([]string, 0, len(in.Sources))
	for _, src := range in.Sources {
		sources = append(sources, env.InSource(src))
	}
	includeDirs := make([]string, 0, len(in.IncludeDirs))
	for _, dir := range in.IncludeDirs {
		includeDirs = append(includeDirs, env.InSource(dir))
	}
	output := env.InOut(env.ExpandVersion(in.Output))

	logger := ctxlog.FromContext(ctx)
	logger.Info("Compiling.", "sources", len(sources), "output", output, "version", env.Version.String())

	err := env.Tools.Compile(ctx, toolchain.CompileJob{
		Sources:     sources,
		IncludeDirs: includeDirs,
		Output:      output,
		Artifact:    in.Artifact,
		Platform:    env.Platform.WithExtraFlags(in.Flags...),
		Optimize:    env.Optimize,
	})
	if err != nil {
		return action.Result{}, fmt.Errorf("compile '%s': %w", output, err)
	}
	return action.Result{Output: output}, nil
}
