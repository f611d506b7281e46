package action

import (
	"fmt"
	"os"
)

// CompileInput describes one compiler invocation over a set of sources.
type CompileInput struct {
	// Sources are translation units, resolved against the source dir unless
	// absolute.
	Sources []string
	// IncludeDirs are passed to the toolchain as header search paths.
	IncludeDirs []string
	// Output is the artifact path, resolved against the out dir. The version
	// placeholder "{version}" is replaced with "major.minor.patch".
	Output string
	// Artifact selects the output form: "shared", "static" or "object".
	// Empty means "shared".
	Artifact string
	// Flags are appended after the platform's flags.
	Flags []string
}

// InstallInput copies one built or source file into the install prefix.
type InstallInput struct {
	Source string
	// Dest is resolved against the install dir unless absolute. A trailing
	// separator means "into this directory under the source's base name".
	Dest string
	// Mode zero means 0644.
	Mode os.FileMode
}

// WriteFileInput materializes a small text file.
type WriteFileInput struct {
	// Path is resolved against the out dir unless absolute.
	Path    string
	Content string
	// Mode zero means 0644.
	Mode os.FileMode
}

// TranslateInput runs the configured translator over a single unit. Fan-out
// pipelines produce one of these per input file. The output path is derived
// from the source's base name: its extension replaced by Suffix, under
// OutDir.
type TranslateInput struct {
	Source      string
	OutDir      string
	IncludeDirs []string
	// Suffix is the output file extension. Empty means ".out".
	Suffix string
}

// ArchiveInput bundles named artifacts into a compressed tarball.
type ArchiveInput struct {
	Sources []string
	Output  string
	// Format is "gz", "xz" or "zst"; empty infers it from Output's extension.
	Format string
}

// ChecksumInput digests named artifacts into a manifest, or verifies them
// against one.
type ChecksumInput struct {
	Paths []string
	// Manifest defaults to "CHECKSUMS.b3" under the out dir.
	Manifest string
	Verify   bool
}

// UploadInput publishes one artifact to a pre-signed URL.
type UploadInput struct {
	Source      string
	URL         string
	ContentType string
}

// PatchInput prepends a shim block to each listed source file. Files already
// carrying the guard string are left untouched, so applying twice is safe.
type PatchInput struct {
	Files  []string
	Header string
	// Guard defaults to the whole trimmed Header.
	Guard string
}

// PrintInput logs a message with the resolved build environment.
type PrintInput struct {
	Message string
}

// Spec is a tagged action description: Kind names the action and exactly the
// matching input field is set. Specs are built once during planning and are
// read-only afterwards.
type Spec struct {
	Kind Kind

	Compile   *CompileInput
	Install   *InstallInput
	WriteFile *WriteFileInput
	Translate *TranslateInput
	Archive   *ArchiveInput
	Checksum  *ChecksumInput
	Upload    *UploadInput
	Patch     *PatchInput
	Print     *PrintInput
}

// Result is what a completed action reports back to the scheduler.
type Result struct {
	// Output is the primary artifact path the action produced, if any.
	Output string
}

// NewNoOp returns the do-nothing action used for aggregate steps.
func NewNoOp() Spec { return Spec{Kind: NoOp} }

// The constructors copy their input record, so callers cannot alias the
// stored payload.

func NewCompile(in CompileInput) Spec { return Spec{Kind: Compile, Compile: &in} }

func NewInstall(in InstallInput) Spec { return Spec{Kind: InstallFile, Install: &in} }

func NewWriteFile(in WriteFileInput) Spec { return Spec{Kind: WriteTextFile, WriteFile: &in} }

func NewTranslate(in TranslateInput) Spec { return Spec{Kind: TranslateUnit, Translate: &in} }

func NewArchive(in ArchiveInput) Spec { return Spec{Kind: Archive, Archive: &in} }

func NewChecksum(in ChecksumInput) Spec { return Spec{Kind: Checksum, Checksum: &in} }

func NewUpload(in UploadInput) Spec { return Spec{Kind: Upload, Upload: &in} }

func NewPatch(in PatchInput) Spec { return Spec{Kind: Patch, Patch: &in} }

func NewPrint(in PrintInput) Spec { return Spec{Kind: Print, Print: &in} }

func (s *Spec) populated() int {
	n := 0
	for _, set := range []bool{
		s.Compile != nil,
		s.Install != nil,
		s.WriteFile != nil,
		s.Translate != nil,
		s.Archive != nil,
		s.Checksum != nil,
		s.Upload != nil,
		s.Patch != nil,
		s.Print != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (s *Spec) hasOwnPayload() bool {
	switch s.Kind {
	case Compile:
		return s.Compile != nil
	case InstallFile:
		return s.Install != nil
	case WriteTextFile:
		return s.WriteFile != nil
	case TranslateUnit:
		return s.Translate != nil
	case Archive:
		return s.Archive != nil
	case Checksum:
		return s.Checksum != nil
	case Upload:
		return s.Upload != nil
	case Patch:
		return s.Patch != nil
	case Print:
		return s.Print != nil
	default:
		return false
	}
}

// Validate checks that the spec carries exactly the input record its kind
// requires and nothing else.
func (s *Spec) Validate() error {
	if !s.Kind.valid() {
		return fmt.Errorf("unknown action kind %d", int(s.Kind))
	}
	n := s.populated()
	if s.Kind == NoOp {
		if n != 0 {
			return fmt.Errorf("action %s: carries %d input record(s), want none", s.Kind, n)
		}
		return nil
	}
	if !s.hasOwnPayload() {
		return fmt.Errorf("action %s: missing its input record", s.Kind)
	}
	if n != 1 {
		return fmt.Errorf("action %s: carries %d input records, want exactly one", s.Kind, n)
	}
	return nil
}
