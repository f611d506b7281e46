package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/ctxlog"
	"github.com/avikov/forgerig/internal/graph"
	"github.com/avikov/forgerig/internal/hclfile"
	"github.com/avikov/forgerig/internal/manifest"
	"github.com/avikov/forgerig/internal/plan"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle. A fully constructed App has loaded and validated its rig and
// is ready to execute entries; construction failures are configuration
// errors and nothing has run yet.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	model    *manifest.Model
	registry *action.Registry
	graph    *graph.Graph
	env      *action.BuildEnv
}

// New builds an App: logger, rig model, action registry, and the planned
// build graph.
func New(outW io.Writer, cfg Config, mods ...action.Module) (*App, error) {
	if cfg.SourceDir == "" && cfg.RigPath != "" {
		// The rig's own directory anchors relative source paths.
		cfg.SourceDir = filepath.Dir(cfg.RigPath)
	}
	config, err := NewConfig(cfg)
	if err != nil {
		return nil, err
	}

	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	loader := hclfile.NewLoader(config.Target)
	model, err := loader.Load(ctx, config.RigPath)
	if err != nil {
		return nil, fmt.Errorf("loading rig: %w", err)
	}
	logger.Debug("Rig loaded and translated into unified model.")

	registry := action.NewRegistry()
	if len(mods) == 0 {
		mods = coreModules
	}
	for _, mod := range mods {
		mod.Register(registry)
	}
	logger.Debug("All action modules registered.", "count", len(mods))

	g, env, err := plan.Build(ctx, model, plan.Options{
		Target:     config.Target,
		Optimize:   config.Optimize,
		SourceDir:  config.SourceDir,
		OutDir:     config.OutDir,
		InstallDir: config.InstallDir,
		Tools:      config.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("planning build graph: %w", err)
	}

	if err := registry.Validate(g.Kinds()); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Build graph planned and validated.", "steps", g.Len())

	return &App{
		outW:     outW,
		logger:   logger,
		config:   config,
		model:    model,
		registry: registry,
		graph:    g,
		env:      env,
	}, nil
}

// Graph exposes the planned graph. This is primarily for testing.
func (a *App) Graph() *graph.Graph { return a.graph }

// Env exposes the resolved build environment. This is primarily for
// testing.
func (a *App) Env() *action.BuildEnv { return a.env }

// Entries lists the rig's addressable entry points.
func (a *App) Entries() []graph.Entry { return a.graph.Entries() }

// StepNames lists all planned step names.
func (a *App) StepNames() []string { return a.graph.StepNames() }
