package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/avikov/forgerig/internal/ctxlog"
	"github.com/avikov/forgerig/internal/fsutil"
)

// Exec shells out to the system toolchain. The zero value uses "cc" and
// "ar"; a translator must be configured explicitly before translate jobs
// can run.
type Exec struct {
	// Compiler is the C compiler driver. Empty means "cc".
	Compiler string
	// Archiver produces static archives. Empty means "ar".
	Archiver string
	// Translator converts single units. Required for Translate.
	Translator string
	// Stdout and Stderr additionally receive tool output when set. Output
	// is always captured for error reporting.
	Stdout io.Writer
	Stderr io.Writer
}

func (e *Exec) compiler() string {
	if e.Compiler != "" {
		return e.Compiler
	}
	return "cc"
}

func (e *Exec) archiver() string {
	if e.Archiver != "" {
		return e.Archiver
	}
	return "ar"
}

// Compile runs the compiler once for shared and object artifacts. Static
// archives take two phases: objects first, then the archiver.
func (e *Exec) Compile(ctx context.Context, job CompileJob) error {
	if len(job.Sources) == 0 {
		return fmt.Errorf("compile %s: no sources", job.Output)
	}
	if err := fsutil.EnsureParent(job.Output); err != nil {
		return err
	}

	switch job.Artifact {
	case "", ArtifactShared:
		args := []string{"-shared", "-fPIC"}
		args = append(args, commonArgs(job)...)
		args = append(args, job.Sources...)
		args = append(args, "-o", job.Output)
		args = append(args, job.Platform.LinkArgs()...)
		return e.run(ctx, e.compiler(), args...)

	case ArtifactObject:
		args := []string{"-c"}
		args = append(args, commonArgs(job)...)
		args = append(args, job.Sources...)
		args = append(args, "-o", job.Output)
		return e.run(ctx, e.compiler(), args...)

	case ArtifactStatic:
		objDir := job.Output + ".objs"
		if err := fsutil.EnsureDir(objDir); err != nil {
			return err
		}
		objects := make([]string, 0, len(job.Sources))
		for _, src := range job.Sources {
			obj := filepath.Join(objDir, objectName(src))
			args := []string{"-c"}
			args = append(args, commonArgs(job)...)
			args = append(args, src, "-o", obj)
			if err := e.run(ctx, e.compiler(), args...); err != nil {
				return err
			}
			objects = append(objects, obj)
		}
		return e.run(ctx, e.archiver(), append([]string{"rcs", job.Output}, objects...)...)

	default:
		return fmt.Errorf("compile %s: unknown artifact form %q", job.Output, job.Artifact)
	}
}

// Translate runs the configured translator over one unit.
func (e *Exec) Translate(ctx context.Context, job TranslateJob) error {
	if e.Translator == "" {
		return fmt.Errorf("translate %s: no translator configured", job.Source)
	}
	if err := fsutil.EnsureParent(job.Output); err != nil {
		return err
	}

	var args []string
	for _, dir := range job.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	args = append(args, job.Source, "-o", job.Output)
	return e.run(ctx, e.Translator, args...)
}

func commonArgs(job CompileJob) []string {
	var args []string
	if job.Optimize != "" {
		args = append(args, "-O"+job.Optimize)
	}
	for _, dir := range job.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	args = append(args, job.Platform.DefineArgs()...)
	args = append(args, job.Platform.ExtraFlags...)
	return args
}

func objectName(src string) string {
	base := filepath.Base(src)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".o"
}

// run executes one tool command in its own process group so cancellation
// reaps the whole group, not just the driver.
func (e *Exec) run(ctx context.Context, name string, args ...string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running toolchain command.", "cmd", name, "args", strings.Join(args, " "))

	var captured bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = tee(&captured, e.Stdout)
	cmd.Stderr = tee(&captured, e.Stderr)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		case <-done:
		}
	}()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s aborted: %w", name, ctx.Err())
		}
		out := strings.TrimSpace(captured.String())
		if out != "" {
			return fmt.Errorf("%s failed: %w\n%s", name, err, out)
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

func tee(capture *bytes.Buffer, extra io.Writer) io.Writer {
	if extra == nil {
		return capture
	}
	return io.MultiWriter(capture, extra)
}
