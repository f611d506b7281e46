package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/avikov/forgerig/internal/toolchain"
)

// FakeToolchain implements toolchain.Toolchain without shelling out. It
// records every job and materializes placeholder artifacts, so tests can
// assert on outputs the way production code consumes them. Failures are
// scripted per source path.
type FakeToolchain struct {
	mu sync.Mutex

	// FailCompile and FailTranslate name source paths (by base name) whose
	// jobs must fail.
	FailCompile   map[string]bool
	FailTranslate map[string]bool

	CompileJobs   []toolchain.CompileJob
	TranslateJobs []toolchain.TranslateJob
}

// NewFakeToolchain creates a fake that succeeds for every job.
func NewFakeToolchain() *FakeToolchain {
	return &FakeToolchain{
		FailCompile:   make(map[string]bool),
		FailTranslate: make(map[string]bool),
	}
}

// Compile records the job and writes a placeholder artifact.
func (f *FakeToolchain) Compile(ctx context.Context, job toolchain.CompileJob) error {
	f.mu.Lock()
	f.CompileJobs = append(f.CompileJobs, job)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	for _, src := range job.Sources {
		if f.FailCompile[filepath.Base(src)] {
			return fmt.Errorf("fake compile failure for %s", src)
		}
	}
	return writePlaceholder(job.Output)
}

// Translate records the job and writes a placeholder output.
func (f *FakeToolchain) Translate(ctx context.Context, job toolchain.TranslateJob) error {
	f.mu.Lock()
	f.TranslateJobs = append(f.TranslateJobs, job)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if f.FailTranslate[filepath.Base(job.Source)] {
		return fmt.Errorf("fake translate failure for %s", job.Source)
	}
	return writePlaceholder(job.Output)
}

// CompileCount returns how many compile jobs ran.
func (f *FakeToolchain) CompileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.CompileJobs)
}

// TranslateCount returns how many translate jobs ran.
func (f *FakeToolchain) TranslateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.TranslateJobs)
}

func writePlaceholder(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("fake artifact\n"), 0o644)
}
