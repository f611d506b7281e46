package action

import (
	"path/filepath"
	"strings"

	"github.com/avikov/forgerig/internal/platform"
	"github.com/avikov/forgerig/internal/toolchain"
	"github.com/avikov/forgerig/internal/version"
)

// BuildEnv carries everything an action may read: the resolved version and
// platform configuration, the invocation directories, and the toolchain.
// It is constructed once per run and not mutated afterwards.
type BuildEnv struct {
	Version  version.Version
	Target   platform.Target
	Platform platform.Config

	// Optimize is the optimization level forwarded to the toolchain
	// ("0", "1", "2", "3" or "s").
	Optimize string

	SourceDir  string
	OutDir     string
	InstallDir string

	Tools toolchain.Toolchain
}

// InSource resolves a manifest path against the source dir. Absolute paths
// pass through unchanged.
func (e *BuildEnv) InSource(p string) string { return resolve(e.SourceDir, p) }

// InOut resolves a manifest path against the out dir.
func (e *BuildEnv) InOut(p string) string { return resolve(e.OutDir, p) }

// InInstall resolves a manifest path against the install prefix.
func (e *BuildEnv) InInstall(p string) string { return resolve(e.InstallDir, p) }

// ExpandVersion substitutes the "{version}" placeholder in artifact names
// with the resolved dotted triple.
func (e *BuildEnv) ExpandVersion(p string) string {
	return strings.ReplaceAll(p, "{version}", e.Version.Dotted())
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
