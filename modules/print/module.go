// Package print implements the 'print' action: logging the resolved build
// environment. Diagnostic entries use it to show what a build would see
// without compiling anything.
package print

import (
	"context"
	"sort"
	"strings"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/ctxlog"
)

// Module implements the action.Module interface for this package.
type Module struct{}

// Register registers the handler with the action registry.
func (m *Module) Register(r *action.Registry) {
	r.Register(&handler{})
}

type handler struct{}

func (h *handler) Kind() action.Kind { return action.Print }

func (h *handler) Run(ctx context.Context, env *action.BuildEnv, spec action.Spec) (action.Result, error) {
	logger := ctxlog.FromContext(ctx)

	defines := make([]string, 0, len(env.Platform.Defines))
	for name := range env.Platform.Defines {
		defines = append(defines, name)
	}
	sort.Strings(defines)

	logger.Info("Build environment.",
		"message", spec.Print.Message,
		"version", env.Version.String(),
		"target", env.Target.String(),
		"systemLibs", strings.Join(env.Platform.SystemLibs, ","),
		"defines", strings.Join(defines, ","),
		"optimize", env.Optimize,
		"outDir", env.OutDir,
	)
	return action.Result{}, nil
}
