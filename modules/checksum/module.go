// Package checksum implements the 'checksum' action: BLAKE3 digests of
// named artifacts written to a manifest file, or verified against one.
package checksum

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/ctxlog"
	"github.com/avikov/forgerig/internal/fsutil"
)

// DefaultManifest is the manifest file name under the out dir.
const DefaultManifest = "CHECKSUMS.b3"

// Module implements the action.Module interface for this package.
type Module struct{}

// Register registers the handler with the action registry.
func (m *Module) Register(r *action.Registry) {
	r.Register(&handler{})
}

type handler struct{}

func (h *handler) Kind() action.Kind { return action.Checksum }

func (h *handler) Run(ctx context.Context, env *action.BuildEnv, spec action.Spec) (action.Result, error) {
	in := spec.Checksum

	manifestPath := in.Manifest
	if manifestPath == "" {
		manifestPath = DefaultManifest
	}
	manifestPath = env.InOut(env.ExpandVersion(manifestPath))

	paths := make([]string, 0, len(in.Paths))
	for _, p := range in.Paths {
		paths = append(paths, env.InOut(env.ExpandVersion(p)))
	}

	logger := ctxlog.FromContext(ctx)
	if in.Verify {
		logger.Info("Verifying checksums.", "manifest", manifestPath, "count", len(paths))
		if err := verify(manifestPath, paths); err != nil {
			return action.Result{}, fmt.Errorf("checksum: %w", err)
		}
		return action.Result{Output: manifestPath}, nil
	}

	logger.Info("Writing checksum manifest.", "manifest", manifestPath, "count", len(paths))
	if err := write(manifestPath, paths); err != nil {
		return action.Result{}, fmt.Errorf("checksum: %w", err)
	}
	return action.Result{Output: manifestPath}, nil
}

// HashFile returns the hex BLAKE3 digest of one file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// write produces a manifest with one "digest  name" line per artifact,
// keyed by base name so the manifest is location-independent.
func write(manifestPath string, paths []string) error {
	if err := fsutil.EnsureParent(manifestPath); err != nil {
		return err
	}

	var sb strings.Builder
	for _, p := range paths {
		digest, err := HashFile(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, "%s  %s\n", digest, filepath.Base(p))
	}
	return os.WriteFile(manifestPath, []byte(sb.String()), fsutil.DefaultFileMode)
}

func verify(manifestPath string, paths []string) error {
	want, err := readManifest(manifestPath)
	if err != nil {
		return err
	}

	for _, p := range paths {
		name := filepath.Base(p)
		expected, ok := want[name]
		if !ok {
			return fmt.Errorf("%s not listed in manifest %s", name, manifestPath)
		}
		actual, err := HashFile(p)
		if err != nil {
			return err
		}
		if actual != expected {
			return fmt.Errorf("checksum mismatch for %s: want %s, got %s", name, expected, actual)
		}
	}
	return nil
}

func readManifest(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		out[fields[1]] = fields[0]
	}
	return out, scanner.Err()
}
