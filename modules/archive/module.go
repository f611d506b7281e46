// Package archive implements the 'archive' action: bundling named build
// artifacts into a compressed tarball.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"

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

func (h *handler) Kind() action.Kind { return action.Archive }

func (h *handler) Run(ctx context.Context, env *action.BuildEnv, spec action.Spec) (action.Result, error) {
	in := spec.Archive

	output := env.InOut(env.ExpandVersion(in.Output))
	format := in.Format
	if format == "" {
		format = inferFormat(output)
	}

	sources := make([]string, 0, len(in.Sources))
	for _, src := range in.Sources {
		sources = append(sources, env.InOut(env.ExpandVersion(src)))
	}

	ctxlog.FromContext(ctx).Info("Archiving artifacts.", "output", output, "format", format, "count", len(sources))

	if err := writeArchive(output, format, sources); err != nil {
		return action.Result{}, fmt.Errorf("archive '%s': %w", output, err)
	}
	return action.Result{Output: output}, nil
}

func inferFormat(output string) string {
	switch {
	case strings.HasSuffix(output, ".tar.xz"), strings.HasSuffix(output, ".txz"):
		return "xz"
	case strings.HasSuffix(output, ".tar.zst"):
		return "zst"
	default:
		return "gz"
	}
}

func writeArchive(output, format string, sources []string) error {
	if len(sources) == 0 {
		return fmt.Errorf("no sources")
	}
	if err := fsutil.EnsureParent(output); err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()

	var compressor io.WriteCloser
	switch format {
	case "gz":
		compressor = pgzip.NewWriter(f)
	case "xz":
		compressor, err = xz.NewWriter(f)
		if err != nil {
			return err
		}
	case "zst":
		compressor, err = zstd.NewWriter(f)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q: want gz, xz or zst", format)
	}

	tw := tar.NewWriter(compressor)
	for _, src := range sources {
		if err := addFile(tw, src); err != nil {
			tw.Close()
			compressor.Close()
			return err
		}
	}
	if err := tw.Close(); err != nil {
		compressor.Close()
		return err
	}
	return compressor.Close()
}

// addFile stores one file under its base name; archives are flat bundles of
// named artifacts, not trees.
func addFile(tw *tar.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(path)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
