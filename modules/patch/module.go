// Package patch implements the 'patch' action: prepending a shim block to
// each listed source file. A file already starting with the shim is left
// untouched, so applying the same patch twice is safe.
package patch

import (
	"context"
	"fmt"
	"os"
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

func (h *handler) Kind() action.Kind { return action.Patch }

func (h *handler) Run(ctx context.Context, env *action.BuildEnv, spec action.Spec) (action.Result, error) {
	in := spec.Patch
	logger := ctxlog.FromContext(ctx)

	header := strings.TrimSpace(in.Header)
	if header == "" {
		return action.Result{}, fmt.Errorf("patch: empty header")
	}
	guard := in.Guard
	if guard == "" {
		guard = header
	}

	for _, file := range in.Files {
		path := env.InSource(file)
		applied, err := Apply(path, header, guard)
		if err != nil {
			return action.Result{}, fmt.Errorf("patch '%s': %w", path, err)
		}
		if applied {
			logger.Info("Applied patch.", "file", path)
		} else {
			logger.Debug("Patch already applied, skipping.", "file", path)
		}
	}
	return action.Result{}, nil
}

// Apply prepends header to the file unless its content already starts with
// guard. It reports whether the file was modified.
func Apply(path, header, guard string) (bool, error) {
	original, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if strings.HasPrefix(string(original), guard) {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	patched := header + "\n\n" + string(original)
	if err := os.WriteFile(path, []byte(patched), info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}
