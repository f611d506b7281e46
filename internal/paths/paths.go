// Package paths defines the conventional locations forgerig reads and
// writes. Build outputs stay inside the invocation's working tree; per-user
// state follows the XDG base directory spec.
package paths

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "forgerig"

// Default out and install locations, relative to the source dir.
const (
	DefaultOutDir     = "out"
	DefaultInstallDir = "out/install"
)

// OutDir resolves the build output directory for a source tree.
func OutDir(sourceDir string) string {
	return filepath.Join(sourceDir, DefaultOutDir)
}

// InstallDir resolves the default install prefix for a source tree.
func InstallDir(sourceDir string) string {
	return filepath.Join(sourceDir, DefaultInstallDir)
}

// StateDir is the per-user directory for cross-invocation operator state
// (never build artifacts).
//
//	Linux:   $XDG_STATE_HOME/forgerig or ~/.local/state/forgerig
//	macOS:   ~/Library/Application Support/forgerig
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// LogDir is the per-user directory for persisted run logs.
func LogDir() string {
	return filepath.Join(StateDir(), "logs")
}
