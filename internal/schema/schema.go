// Package schema holds the HCL shapes of rig files. These structs exist only
// for gohcl decoding; the loader translates them into the format-agnostic
// manifest model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// StepArgs is the raw content of an 'arguments' block. It stays undecoded
// here because the attribute set depends on the step's action kind.
type StepArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// Marker overrides one version component's marker substring.
type Marker struct {
	Component string `hcl:"component,label"`
	Match     string `hcl:"match"`
}

// VersionHeader names the artifact the build version is extracted from.
type VersionHeader struct {
	Path    string    `hcl:"path"`
	Strict  bool      `hcl:"strict,optional"`
	Markers []*Marker `hcl:"marker,block"`
}

// Platform appends compile flags when building for the named OS family.
type Platform struct {
	OS         string   `hcl:"os,label"`
	ExtraFlags []string `hcl:"extra_flags,optional"`
}

// Step is a `step "<kind>" "<name>"` block: one runnable action instance.
type Step struct {
	Kind      string    `hcl:"action_kind,label"`
	Name      string    `hcl:"instance_name,label"`
	Arguments *StepArgs `hcl:"arguments,block"`
	DependsOn []string  `hcl:"depends_on,optional"`
}

// FanOut is a `fanout "<kind>" "<name>"` block: a per-input expansion of one
// action over many independent inputs.
type FanOut struct {
	Kind      string    `hcl:"action_kind,label"`
	Name      string    `hcl:"instance_name,label"`
	Inputs    []string  `hcl:"inputs,optional"`
	Glob      string    `hcl:"glob,optional"`
	Arguments *StepArgs `hcl:"arguments,block"`
	DependsOn []string  `hcl:"depends_on,optional"`
}

// Entry makes a step addressable from the command line.
type Entry struct {
	Label   string `hcl:"label,label"`
	Target  string `hcl:"target"`
	Default bool   `hcl:"default,optional"`
}

// RigConfig is the top-level structure of a rig file.
type RigConfig struct {
	VersionHeader *VersionHeader `hcl:"version_header,block"`
	Platforms     []*Platform    `hcl:"platform,block"`
	Steps         []*Step        `hcl:"step,block"`
	FanOuts       []*FanOut      `hcl:"fanout,block"`
	Entries       []*Entry       `hcl:"entry,block"`
	Body          hcl.Body       `hcl:",remain"`
}
