// Package platform maps a target descriptor to the compiler and linker
// configuration for that platform. Resolution is a pure data mapping with a
// deliberate default branch: only the Windows family is special-cased, every
// other descriptor falls through to the portable configuration.
package platform

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Target describes where an artifact will run. The fields are opaque
// identifiers supplied by the caller; the resolver only branches on OS.
type Target struct {
	OS   string
	Arch string
	ABI  string
}

// String renders the "os-arch-abi" triple form accepted by ParseTriple.
func (t Target) String() string {
	return t.OS + "-" + t.Arch + "-" + t.ABI
}

// Host returns the target describing the machine the orchestrator runs on.
func Host() Target {
	abi := "gnu"
	if runtime.GOOS == "windows" {
		abi = "msvc"
	}
	return Target{OS: runtime.GOOS, Arch: runtime.GOARCH, ABI: abi}
}

// ParseTriple parses an "os-arch" or "os-arch-abi" descriptor. A missing ABI
// defaults to the host convention for the named OS.
func ParseTriple(s string) (Target, error) {
	parts := strings.Split(s, "-")
	switch len(parts) {
	case 2:
		t := Target{OS: parts[0], Arch: parts[1], ABI: "gnu"}
		if strings.EqualFold(t.OS, "windows") {
			t.ABI = "msvc"
		}
		return t, nil
	case 3:
		return Target{OS: parts[0], Arch: parts[1], ABI: parts[2]}, nil
	default:
		return Target{}, fmt.Errorf("invalid target triple %q: want os-arch[-abi]", s)
	}
}

// SameOS reports whether two OS identifiers name the same family. The
// comparison is case-insensitive, matching how Resolve branches.
func SameOS(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Config is the resolved compiler/linker parameter set for one target.
// It is immutable once computed; actions receive it by value inside the
// build environment and never look configuration up ambiently.
type Config struct {
	// SystemLibs are the system libraries to link, sorted, duplicate-free.
	SystemLibs []string
	// Defines maps preprocessor symbol names to values. A nil value means a
	// bare define with no value.
	Defines map[string]*string
	// ExtraFlags are additional compile flags in the order they were added.
	ExtraFlags []string
}

// Resolve derives the configuration for a target. It is total: unknown
// descriptors receive the default portable configuration, matching the
// behaviour of C client libraries that dynamically load their backing
// runtime (libdl/libpthread everywhere except Windows).
func Resolve(t Target) Config {
	if strings.EqualFold(t.OS, "windows") {
		return Config{
			SystemLibs: []string{"ole32", "oleaut32"},
			Defines:    map[string]*string{"_CRT_SECURE_NO_WARNINGS": nil},
		}
	}
	return Config{
		SystemLibs: []string{"dl", "pthread"},
		Defines:    map[string]*string{},
	}
}

// WithExtraFlags returns a copy of the config with flags appended after the
// existing ones. The receiver is not modified.
func (c Config) WithExtraFlags(flags ...string) Config {
	out := Config{
		SystemLibs: append([]string(nil), c.SystemLibs...),
		Defines:    make(map[string]*string, len(c.Defines)),
		ExtraFlags: append(append([]string(nil), c.ExtraFlags...), flags...),
	}
	for k, v := range c.Defines {
		out.Defines[k] = v
	}
	return out
}

// LinkArgs renders the system libraries as linker arguments.
func (c Config) LinkArgs() []string {
	args := make([]string, 0, len(c.SystemLibs))
	for _, lib := range c.SystemLibs {
		args = append(args, "-l"+lib)
	}
	return args
}

// DefineArgs renders the preprocessor defines as compiler arguments in
// deterministic (sorted) order.
func (c Config) DefineArgs() []string {
	keys := make([]string, 0, len(c.Defines))
	for k := range c.Defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := c.Defines[k]; v != nil {
			args = append(args, "-D"+k+"="+*v)
		} else {
			args = append(args, "-D"+k)
		}
	}
	return args
}
