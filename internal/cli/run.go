package cli

import (
	"context"
	"io"

	"github.com/avikov/forgerig/internal/app"
)

// RunCmd represents the 'forgerig run' command.
type RunCmd struct {
	Entry string `arg:"" optional:"" help:"Entry point label. Defaults to the rig's 'default' entry."`
}

// Run plans the rig and executes the requested entry point. A run with any
// failed or blocked step maps to exit code 1.
func (c *RunCmd) Run(ctx context.Context, root *Root, outW io.Writer) error {
	cfg, err := root.appConfig()
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	application, err := app.New(outW, cfg)
	if err != nil {
		return err
	}

	rep, err := application.Run(ctx, c.Entry)
	if err != nil {
		return err
	}
	if rep.Failed() {
		msg := rep.Summary()
		if cause := rep.RootCause(); cause != nil {
			msg = cause.Error()
		}
		return &ExitError{Code: 1, Message: msg}
	}
	return nil
}
