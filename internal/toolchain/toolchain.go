// Package toolchain abstracts the external compiler and translator commands.
// The orchestrator assembles argument lists from resolved configuration and
// hands them to a Toolchain; it never interprets tool output beyond success
// or failure.
package toolchain

import (
	"context"

	"github.com/avikov/forgerig/internal/platform"
)

// Artifact forms a CompileJob can produce.
const (
	ArtifactShared = "shared"
	ArtifactStatic = "static"
	ArtifactObject = "object"
)

// CompileJob is one compiler invocation over a set of sources.
type CompileJob struct {
	Sources     []string
	IncludeDirs []string
	Output      string
	// Artifact is ArtifactShared, ArtifactStatic or ArtifactObject. Empty
	// means shared.
	Artifact string
	Platform platform.Config
	// Optimize is the bare level ("0".."3", "s"); empty adds no flag.
	Optimize string
}

// TranslateJob converts one source unit into another representation.
type TranslateJob struct {
	Source      string
	Output      string
	IncludeDirs []string
}

// Toolchain runs compile and translate jobs.
type Toolchain interface {
	Compile(ctx context.Context, job CompileJob) error
	Translate(ctx context.Context, job TranslateJob) error
}
