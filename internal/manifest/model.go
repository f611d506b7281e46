// Package manifest holds the format-agnostic model of a rig file. The HCL
// loader translates decoded schema structs into this model; everything past
// the loader works on the model alone.
package manifest

import (
	"fmt"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/version"
)

// VersionHeader names the artifact the build version is extracted from and
// the marker substrings identifying each component.
type VersionHeader struct {
	// Path is resolved against the source dir unless absolute.
	Path string
	// Strict opts into token-boundary marker matching. Substring matching
	// is the default.
	Strict  bool
	Markers version.Markers
}

// Platform appends compile flags when building for the named OS family.
// Overlays apply in declaration order.
type Platform struct {
	OS         string
	ExtraFlags []string
}

// Step is one runnable action instance.
type Step struct {
	Name      string
	Spec      action.Spec
	DependsOn []string
}

// FanOut expands one action over many independent inputs: one step per
// input plus an aggregate gating step named after the block.
type FanOut struct {
	Name string
	Kind action.Kind
	// Inputs are explicit paths; Glob adds pattern matches. At least one of
	// the two must yield something for the pipeline to do work.
	Inputs []string
	Glob   string
	// Translate is the argument template for translate_unit fan-outs; the
	// planner fills in each unit's source. Other kinds are rejected at load
	// time.
	Translate *action.TranslateInput
	DependsOn []string
}

// Entry makes a step addressable from the command line.
type Entry struct {
	Label   string
	Target  string
	Default bool
}

// Model is the unified representation of the entire rig configuration.
type Model struct {
	VersionHeader *VersionHeader
	Platforms     []Platform
	Steps         []Step
	FanOuts       []FanOut
	Entries       []Entry
}

// Validate checks cross-block consistency: unique step and entry names,
// entry targets that exist, and at most one default entry. Graph
// construction re-checks the structural invariants; this catches rig
// mistakes with manifest-level wording before any graph is built.
func (m *Model) Validate() error {
	names := make(map[string]struct{}, len(m.Steps)+len(m.FanOuts))
	for _, s := range m.Steps {
		if s.Name == "" {
			return fmt.Errorf("step of kind '%s' has no name", s.Spec.Kind)
		}
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("duplicate step name '%s'", s.Name)
		}
		names[s.Name] = struct{}{}
	}
	for _, f := range m.FanOuts {
		if f.Name == "" {
			return fmt.Errorf("fanout of kind '%s' has no name", f.Kind)
		}
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("duplicate step name '%s'", f.Name)
		}
		names[f.Name] = struct{}{}
		if len(f.Inputs) == 0 && f.Glob == "" {
			return fmt.Errorf("fanout '%s' declares neither inputs nor a glob", f.Name)
		}
	}

	labels := make(map[string]struct{}, len(m.Entries))
	defaults := 0
	for _, e := range m.Entries {
		if _, dup := labels[e.Label]; dup {
			return fmt.Errorf("duplicate entry label '%s'", e.Label)
		}
		labels[e.Label] = struct{}{}
		if _, ok := names[e.Target]; !ok {
			return fmt.Errorf("entry '%s' targets unknown step '%s'", e.Label, e.Target)
		}
		if e.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%d entries marked default, want at most one", defaults)
	}
	return nil
}

// DefaultEntry resolves which entry label the CLI runs when none is named:
// the entry marked default, or failing that the one literally labeled
// "default".
func (m *Model) DefaultEntry() (string, bool) {
	for _, e := range m.Entries {
		if e.Default {
			return e.Label, true
		}
	}
	for _, e := range m.Entries {
		if e.Label == "default" {
			return e.Label, true
		}
	}
	return "", false
}
