package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
)

// Version is the release version, overridden at build time via -ldflags.
var Version = "dev"

// VersionCmd represents the 'forgerig version' command.
type VersionCmd struct{}

// Run prints version information.
func (c *VersionCmd) Run(ctx context.Context, root *Root, outW io.Writer) error {
	fmt.Fprintf(outW, "forgerig %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	return nil
}
