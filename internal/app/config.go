package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/avikov/forgerig/internal/paths"
	"github.com/avikov/forgerig/internal/platform"
	"github.com/avikov/forgerig/internal/toolchain"
)

// Config holds all the configuration an App instance needs to run.
type Config struct {
	// RigPath is a single .hcl file or a directory of them.
	RigPath string
	// SourceDir is the root the rig's relative source paths resolve
	// against. Empty means the rig file's directory.
	SourceDir string
	// OutDir and InstallDir default to the conventional locations under
	// SourceDir.
	OutDir     string
	InstallDir string
	// LogDir holds persisted failure reports. Empty means the per-user
	// XDG location; tests point it into a temp dir.
	LogDir string

	Target   platform.Target
	Optimize string

	LogFormat string
	LogLevel  string
	Workers   int
	// Timeout, when positive, bounds each Run call.
	Timeout time.Duration

	// Compiler and Translator override the system toolchain commands.
	Compiler   string
	Translator string
	// Tools overrides the whole toolchain; tests inject fakes here.
	Tools toolchain.Toolchain
}

// NewConfig validates a configuration and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.RigPath == "" {
		return nil, errors.New("RigPath is a required configuration field and cannot be empty")
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn' or 'error'", cfg.LogLevel)
	}

	if cfg.Target == (platform.Target{}) {
		cfg.Target = platform.Host()
	}
	if cfg.SourceDir == "" {
		cfg.SourceDir = "."
	}
	if cfg.OutDir == "" {
		cfg.OutDir = paths.OutDir(cfg.SourceDir)
	}
	if cfg.InstallDir == "" {
		cfg.InstallDir = paths.InstallDir(cfg.SourceDir)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = paths.LogDir()
	}
	if cfg.Tools == nil {
		cfg.Tools = &toolchain.Exec{
			Compiler:   cfg.Compiler,
			Translator: cfg.Translator,
		}
	}
	return &cfg, nil
}
