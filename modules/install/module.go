// Package install implements the 'install_file' action: copying a built or
// source artifact into the install prefix. A lock on the prefix keeps
// concurrent forgerig invocations from interleaving partial copies.
package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

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

func (h *handler) Kind() action.Kind { return action.InstallFile }

func (h *handler) Run(ctx context.Context, env *action.BuildEnv, spec action.Spec) (action.Result, error) {
	in := spec.Install

	source := env.InOut(env.ExpandVersion(in.Source))
	if _, err := os.Stat(source); err != nil {
		// Not a built artifact; fall back to the source tree (headers).
		alt := env.InSource(env.ExpandVersion(in.Source))
		if _, altErr := os.Stat(alt); altErr != nil {
			return action.Result{}, fmt.Errorf("install: source %s not found", in.Source)
		}
		source = alt
	}

	dest := env.ExpandVersion(in.Dest)
	intoDir := strings.HasSuffix(dest, string(os.PathSeparator)) || strings.HasSuffix(dest, "/")
	dest = env.InInstall(dest)
	if intoDir {
		dest = filepath.Join(dest, filepath.Base(source))
	}

	if err := fsutil.EnsureDir(env.InstallDir); err != nil {
		return action.Result{}, err
	}

	unlock, err := lockPrefix(env.InstallDir)
	if err != nil {
		return action.Result{}, fmt.Errorf("install: locking prefix %s: %w", env.InstallDir, err)
	}
	defer unlock()

	logger := ctxlog.FromContext(ctx)
	logger.Info("Installing file.", "source", source, "dest", dest)

	if err := fsutil.CopyFile(source, dest, in.Mode); err != nil {
		return action.Result{}, fmt.Errorf("install: %w", err)
	}
	return action.Result{Output: dest}, nil
}

// lockPrefix takes an exclusive flock on the install prefix for the
// duration of one copy.
func lockPrefix(dir string) (func(), error) {
	f, err := os.OpenFile(filepath.Join(dir, ".forgerig.lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
