package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/avikov/forgerig/internal/app"
)

// StepsCmd represents the 'forgerig steps' command.
type StepsCmd struct{}

// Run plans the rig and prints its entry points and steps without executing
// anything.
func (c *StepsCmd) Run(ctx context.Context, root *Root, outW io.Writer) error {
	cfg, err := root.appConfig()
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	application, err := app.New(outW, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(outW, "Entries:")
	for _, entry := range application.Entries() {
		fmt.Fprintf(outW, "  %-16s -> %s\n", entry.Label, entry.Step)
	}
	fmt.Fprintln(outW, "Steps:")
	for _, name := range application.StepNames() {
		fmt.Fprintf(outW, "  %s\n", name)
	}
	return nil
}
