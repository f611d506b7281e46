// Package hclfile is the HCL implementation of rig file loading: it parses
// .hcl files, decodes them against the schema, and translates the result
// into the format-agnostic manifest model.
package hclfile

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/avikov/forgerig/internal/ctxlog"
	"github.com/avikov/forgerig/internal/fsutil"
	"github.com/avikov/forgerig/internal/manifest"
	"github.com/avikov/forgerig/internal/platform"
	"github.com/avikov/forgerig/internal/schema"
	"github.com/avikov/forgerig/internal/version"
)

// Loader parses rig files for one target. The target is exposed to rig
// expressions as the `target` variable, so argument values can vary by
// platform without any imperative logic in the rig.
type Loader struct {
	target platform.Target
}

// NewLoader creates a loader evaluating rig expressions against the given
// target.
func NewLoader(target platform.Target) *Loader {
	return &Loader{target: target}
}

// Load reads one .hcl file or every .hcl file under a directory, in lexical
// order, and merges the decoded blocks into a single validated model.
func (l *Loader) Load(ctx context.Context, path string) (*manifest.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := l.findRigFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl rig files found at %s", path)
	}
	logger.Debug("Discovered rig files.", "count", len(files))

	evalCtx := l.evalContext()
	parser := hclparse.NewParser()
	model := &manifest.Model{}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse rig file %s: %w", file, diags)
		}

		var root schema.RigConfig
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode rig file %s: %w", file, diags)
		}

		if err := l.mergeFile(model, &root, evalCtx); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Rig loading complete.",
		"steps", len(model.Steps), "fanouts", len(model.FanOuts), "entries", len(model.Entries))
	return model, nil
}

// mergeFile translates one decoded file into the model.
func (l *Loader) mergeFile(model *manifest.Model, root *schema.RigConfig, evalCtx *hcl.EvalContext) error {
	if root.VersionHeader != nil {
		if model.VersionHeader != nil {
			return fmt.Errorf("version_header declared more than once")
		}
		vh, err := translateVersionHeader(root.VersionHeader)
		if err != nil {
			return err
		}
		model.VersionHeader = vh
	}

	for _, p := range root.Platforms {
		model.Platforms = append(model.Platforms, manifest.Platform{
			OS:         p.OS,
			ExtraFlags: p.ExtraFlags,
		})
	}

	for _, s := range root.Steps {
		step, err := l.translateStep(s, evalCtx)
		if err != nil {
			return fmt.Errorf("step '%s' '%s': %w", s.Kind, s.Name, err)
		}
		model.Steps = append(model.Steps, step)
	}

	for _, f := range root.FanOuts {
		fanout, err := l.translateFanOut(f, evalCtx)
		if err != nil {
			return fmt.Errorf("fanout '%s' '%s': %w", f.Kind, f.Name, err)
		}
		model.FanOuts = append(model.FanOuts, fanout)
	}

	for _, e := range root.Entries {
		model.Entries = append(model.Entries, manifest.Entry{
			Label:   e.Label,
			Target:  e.Target,
			Default: e.Default,
		})
	}
	return nil
}

func translateVersionHeader(vh *schema.VersionHeader) (*manifest.VersionHeader, error) {
	out := &manifest.VersionHeader{
		Path:    vh.Path,
		Strict:  vh.Strict,
		Markers: version.DefaultMarkers,
	}
	for _, m := range vh.Markers {
		switch m.Component {
		case "major":
			out.Markers.Major = m.Match
		case "minor":
			out.Markers.Minor = m.Match
		case "patch":
			out.Markers.Patch = m.Match
		default:
			return nil, fmt.Errorf("unknown version component %q: want major, minor or patch", m.Component)
		}
	}
	return out, nil
}

// evalContext exposes the resolved target to rig expressions:
// target.os, target.arch, target.abi and the rendered target.triple.
func (l *Loader) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"target": cty.ObjectVal(map[string]cty.Value{
				"os":     cty.StringVal(l.target.OS),
				"arch":   cty.StringVal(l.target.Arch),
				"abi":    cty.StringVal(l.target.ABI),
				"triple": cty.StringVal(l.target.String()),
			}),
		},
	}
}

// findRigFiles resolves a path to a sorted list of .hcl files.
func (l *Loader) findRigFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("accessing rig path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("scanning rig directory %s: %w", path, err)
	}
	sort.Strings(files)
	return files, nil
}
