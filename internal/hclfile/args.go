package hclfile

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/manifest"
	"github.com/avikov/forgerig/internal/schema"
)

// One decode struct per action kind. The attribute names are the rig
// surface; the translated action inputs are the program surface.

type compileArgs struct {
	Sources     []string `hcl:"sources"`
	IncludeDirs []string `hcl:"include_dirs,optional"`
	Output      string   `hcl:"output"`
	Artifact    string   `hcl:"artifact,optional"`
	Flags       []string `hcl:"flags,optional"`
}

type installArgs struct {
	Source string `hcl:"source"`
	Dest   string `hcl:"dest"`
	Mode   *int   `hcl:"mode,optional"`
}

type writeFileArgs struct {
	Path    string `hcl:"path"`
	Content string `hcl:"content"`
	Mode    *int   `hcl:"mode,optional"`
}

type translateArgs struct {
	Source      string   `hcl:"source"`
	OutDir      string   `hcl:"out_dir"`
	IncludeDirs []string `hcl:"include_dirs,optional"`
	Suffix      string   `hcl:"suffix,optional"`
}

// translateFanOutArgs is translateArgs minus the source, which comes from
// the fan-out's inputs.
type translateFanOutArgs struct {
	OutDir      string   `hcl:"out_dir"`
	IncludeDirs []string `hcl:"include_dirs,optional"`
	Suffix      string   `hcl:"suffix,optional"`
}

type archiveArgs struct {
	Sources []string `hcl:"sources"`
	Output  string   `hcl:"output"`
	Format  string   `hcl:"format,optional"`
}

type checksumArgs struct {
	Paths    []string `hcl:"paths"`
	Manifest string   `hcl:"manifest,optional"`
	Verify   bool     `hcl:"verify,optional"`
}

type uploadArgs struct {
	Source      string `hcl:"source"`
	URL         string `hcl:"url"`
	ContentType string `hcl:"content_type,optional"`
}

type patchArgs struct {
	Files  []string `hcl:"files"`
	Header string   `hcl:"header"`
	Guard  string   `hcl:"guard,optional"`
}

type printArgs struct {
	Message string `hcl:"message,optional"`
}

// translateStep decodes a step block's arguments for its declared kind and
// produces the model step.
func (l *Loader) translateStep(s *schema.Step, evalCtx *hcl.EvalContext) (manifest.Step, error) {
	kind, err := action.ParseKind(s.Kind)
	if err != nil {
		return manifest.Step{}, err
	}
	spec, err := l.decodeSpec(kind, s.Arguments, evalCtx)
	if err != nil {
		return manifest.Step{}, err
	}
	return manifest.Step{Name: s.Name, Spec: spec, DependsOn: s.DependsOn}, nil
}

// translateFanOut decodes a fanout block. Only translate_unit fan-outs are
// supported: they are the one action with a natural per-input axis.
func (l *Loader) translateFanOut(f *schema.FanOut, evalCtx *hcl.EvalContext) (manifest.FanOut, error) {
	kind, err := action.ParseKind(f.Kind)
	if err != nil {
		return manifest.FanOut{}, err
	}
	if kind != action.TranslateUnit {
		return manifest.FanOut{}, fmt.Errorf("fanout does not support kind '%s'", kind)
	}

	var args translateFanOutArgs
	if err := decodeArguments(f.Arguments, evalCtx, &args); err != nil {
		return manifest.FanOut{}, err
	}
	return manifest.FanOut{
		Name:   f.Name,
		Kind:   kind,
		Inputs: f.Inputs,
		Glob:   f.Glob,
		Translate: &action.TranslateInput{
			OutDir:      args.OutDir,
			IncludeDirs: args.IncludeDirs,
			Suffix:      args.Suffix,
		},
		DependsOn: f.DependsOn,
	}, nil
}

func (l *Loader) decodeSpec(kind action.Kind, body *schema.StepArgs, evalCtx *hcl.EvalContext) (action.Spec, error) {
	switch kind {
	case action.NoOp:
		if body != nil {
			return action.Spec{}, fmt.Errorf("no_op steps take no arguments")
		}
		return action.NewNoOp(), nil

	case action.Compile:
		var args compileArgs
		if err := decodeArguments(body, evalCtx, &args); err != nil {
			return action.Spec{}, err
		}
		return action.NewCompile(action.CompileInput{
			Sources:     args.Sources,
			IncludeDirs: args.IncludeDirs,
			Output:      args.Output,
			Artifact:    args.Artifact,
			Flags:       args.Flags,
		}), nil

	case action.InstallFile:
		var args installArgs
		if err := decodeArguments(body, evalCtx, &args); err != nil {
			return action.Spec{}, err
		}
		return action.NewInstall(action.InstallInput{
			Source: args.Source,
			Dest:   args.Dest,
			Mode:   fileMode(args.Mode),
		}), nil

	case action.WriteTextFile:
		var args writeFileArgs
		if err := decodeArguments(body, evalCtx, &args); err != nil {
			return action.Spec{}, err
		}
		return action.NewWriteFile(action.WriteFileInput{
			Path:    args.Path,
			Content: args.Content,
			Mode:    fileMode(args.Mode),
		}), nil

	case action.TranslateUnit:
		var args translateArgs
		if err := decodeArguments(body, evalCtx, &args); err != nil {
			return action.Spec{}, err
		}
		return action.NewTranslate(action.TranslateInput{
			Source:      args.Source,
			OutDir:      args.OutDir,
			IncludeDirs: args.IncludeDirs,
			Suffix:      args.Suffix,
		}), nil

	case action.Archive:
		var args archiveArgs
		if err := decodeArguments(body, evalCtx, &args); err != nil {
			return action.Spec{}, err
		}
		return action.NewArchive(action.ArchiveInput{
			Sources: args.Sources,
			Output:  args.Output,
			Format:  args.Format,
		}), nil

	case action.Checksum:
		var args checksumArgs
		if err := decodeArguments(body, evalCtx, &args); err != nil {
			return action.Spec{}, err
		}
		return action.NewChecksum(action.ChecksumInput{
			Paths:    args.Paths,
			Manifest: args.Manifest,
			Verify:   args.Verify,
		}), nil

	case action.Upload:
		var args uploadArgs
		if err := decodeArguments(body, evalCtx, &args); err != nil {
			return action.Spec{}, err
		}
		return action.NewUpload(action.UploadInput{
			Source:      args.Source,
			URL:         args.URL,
			ContentType: args.ContentType,
		}), nil

	case action.Patch:
		var args patchArgs
		if err := decodeArguments(body, evalCtx, &args); err != nil {
			return action.Spec{}, err
		}
		return action.NewPatch(action.PatchInput{
			Files:  args.Files,
			Header: args.Header,
			Guard:  args.Guard,
		}), nil

	case action.Print:
		var args printArgs
		if body != nil {
			if err := decodeArguments(body, evalCtx, &args); err != nil {
				return action.Spec{}, err
			}
		}
		return action.NewPrint(action.PrintInput{Message: args.Message}), nil

	default:
		return action.Spec{}, fmt.Errorf("unknown action kind '%s'", kind)
	}
}

func decodeArguments(body *schema.StepArgs, evalCtx *hcl.EvalContext, target any) error {
	if body == nil || body.Body == nil {
		return fmt.Errorf("missing arguments block")
	}
	if diags := gohcl.DecodeBody(body.Body, evalCtx, target); diags.HasErrors() {
		return fmt.Errorf("decoding arguments: %w", diags)
	}
	return nil
}

func fileMode(mode *int) os.FileMode {
	if mode == nil {
		return 0
	}
	return os.FileMode(*mode)
}
