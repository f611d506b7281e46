package cli

import (
	"context"
	"io"
	"time"

	"github.com/alecthomas/kong"

	"github.com/avikov/forgerig/internal/app"
	"github.com/avikov/forgerig/internal/platform"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Root holds the global flags shared by every subcommand.
type Root struct {
	Rig        string        `short:"r" default:"rig.hcl" env:"FORGERIG_RIG" placeholder:"PATH" help:"Path to the rig file or a directory of rig files."`
	SourceDir  string        `env:"FORGERIG_SOURCE_DIR" placeholder:"DIR" help:"Root for relative source paths. Defaults to the rig's directory."`
	OutDir     string        `env:"FORGERIG_OUT_DIR" placeholder:"DIR" help:"Directory for built artifacts."`
	InstallDir string        `env:"FORGERIG_INSTALL_DIR" placeholder:"DIR" help:"Prefix for installed artifacts."`
	LogDir     string        `env:"FORGERIG_LOG_DIR" placeholder:"DIR" help:"Directory for persisted failure reports. Defaults to the per-user state dir."`
	Target     string        `short:"t" env:"FORGERIG_TARGET" placeholder:"TRIPLE" help:"Target triple 'os-arch[-abi]'. Defaults to the host."`
	Optimize   string        `short:"O" default:"2" env:"FORGERIG_OPTIMIZE" help:"Optimization level forwarded to the toolchain."`
	Workers    int           `default:"4" env:"FORGERIG_WORKERS" help:"Number of concurrent workers for the executor."`
	Timeout    time.Duration `env:"FORGERIG_TIMEOUT" help:"Bound the whole run; steps still pending at expiry are cancelled."`
	Compiler   string        `env:"FORGERIG_CC" placeholder:"CMD" help:"Override the compiler command."`
	Translator string        `env:"FORGERIG_TRANSLATOR" placeholder:"CMD" help:"Override the translator command."`
	LogFormat  string        `default:"text" enum:"text,json" help:"Log output format."`
	LogLevel   string        `default:"info" enum:"debug,info,warn,error" help:"Set the logging level."`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Plan the rig and execute an entry point."`
	Steps   StepsCmd   `cmd:"" help:"List the planned entry points and steps without running anything."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// appConfig translates the parsed flags into an application configuration.
func (r *Root) appConfig() (app.Config, error) {
	cfg := app.Config{
		RigPath:    r.Rig,
		SourceDir:  r.SourceDir,
		OutDir:     r.OutDir,
		InstallDir: r.InstallDir,
		LogDir:     r.LogDir,
		Optimize:   r.Optimize,
		Workers:    r.Workers,
		Timeout:    r.Timeout,
		Compiler:   r.Compiler,
		Translator: r.Translator,
		LogFormat:  r.LogFormat,
		LogLevel:   r.LogLevel,
	}
	if r.Target != "" {
		target, err := platform.ParseTriple(r.Target)
		if err != nil {
			return cfg, err
		}
		cfg.Target = target
	}
	return cfg, nil
}

// Execute parses arguments and runs the selected subcommand. Reports and
// help text go to outW; an ExitError signals the exit code main should use.
func Execute(ctx context.Context, outW io.Writer, args []string) error {
	root := &Root{}

	var helped bool
	parser, err := kong.New(root,
		kong.Name("forgerig"),
		kong.Description("A declarative build orchestrator.\n\nPlans a rig file into a dependency graph of build steps and executes it with a bounded pool of workers."),
		kong.UsageOnError(),
		kong.Writers(outW, outW),
		kong.Exit(func(int) { helped = true }),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(outW, (*io.Writer)(nil)),
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if helped {
		return nil
	}
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	return kongCtx.Run(root)
}
