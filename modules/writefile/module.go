// Package writefile implements the 'write_text_file' action. The version
// export entry point uses it to materialize the formatted version string.
package writefile

import (
	"context"
	"fmt"
	"os"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/ctxlog"
	"github.com/avikov/forgerig/internal/fsutil"
)

// Module implements the action.Module interface for this package.
type Module struct{}

// Register registers the handler with the action registry.
func (m *Module) Register(r *action.Registry) {
	r.Register(&handler{})
}

type handler struct{}

func (h *handler) Kind() action.Kind { return action.WriteTextFile }

func (h *handler) Run(ctx context.Context, env *action.BuildEnv, spec action.Spec) (action.Result, error) {
	in := spec.WriteFile

	path := env.InOut(env.ExpandVersion(in.Path))
	content := env.ExpandVersion(in.Content)
	mode := in.Mode
	if mode == 0 {
		mode = fsutil.DefaultFileMode
	}

	if err := fsutil.EnsureParent(path); err != nil {
		return action.Result{}, err
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return action.Result{}, fmt.Errorf("write_text_file: %w", err)
	}

	ctxlog.FromContext(ctx).Info("Wrote text file.", "path", path, "bytes", len(content))
	return action.Result{Output: path}, nil
}
