// Package version extracts a structured version identifier from an
// unstructured header artifact.
package version

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Version is the integer triple discovered in a header artifact. It is
// constructed once per build invocation and never mutated afterwards.
type Version struct {
	Major uint
	Minor uint
	Patch uint
}

// String renders the conventional "v{major}.{minor}.{patch}" form used for
// artifact naming and the version export file.
func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Dotted renders the bare "{major}.{minor}.{patch}" form used in shared
// library suffixes.
func (v Version) Dotted() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Default is the fallback version used when extraction fails and the caller
// has opted into the fallback policy. The fallback must be surfaced to the
// operator; see plan.Build.
var Default = Version{Major: 1, Minor: 0, Patch: 0}

// Markers holds the three marker substrings, one per version component.
// A line of the header is considered a definition of a component when it
// contains that component's marker.
type Markers struct {
	Major string
	Minor string
	Patch string
}

// DefaultMarkers match the "#define X_MAJOR_VERSION n" convention of C
// client library headers. Matching is by substring, so prefixed identifiers
// such as DPI_MAJOR_VERSION are matched as well.
var DefaultMarkers = Markers{
	Major: "MAJOR_VERSION",
	Minor: "MINOR_VERSION",
	Patch: "PATCH_LEVEL",
}

var (
	// ErrVersionNotFound reports that fewer than three components were
	// discovered across the whole text. A partial version is never returned.
	ErrVersionNotFound = errors.New("version not found")

	// ErrNumberNotFound reports that a line matched a marker but carried no
	// integer token.
	ErrNumberNotFound = errors.New("number not found")
)

// NumberError attributes an ErrNumberNotFound failure to the specific marker
// whose matched line had no parseable integer.
type NumberError struct {
	Marker string
	Line   string
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("number not found: marker %q matched line %q which has no integer token", e.Marker, e.Line)
}

func (e *NumberError) Unwrap() error { return ErrNumberNotFound }

// Extract scans text line by line for the three markers and returns the
// version they define. Markers are matched independently and may appear in
// any line order; only the first matching line per marker is honored, and
// scanning stops as soon as all three components are found.
//
// A marker matches by plain substring. This deliberately accepts lines where
// the marker is part of a larger identifier; use ExtractStrict for
// token-boundary matching.
func Extract(text string, m Markers) (Version, error) {
	return extract(text, m, false)
}

// ExtractStrict behaves like Extract but requires each marker to appear as a
// complete whitespace-delimited token of the line. It is opt-in and never
// the default.
func ExtractStrict(text string, m Markers) (Version, error) {
	return extract(text, m, true)
}

// FromFile reads a header artifact and extracts the version from it.
func FromFile(path string, m Markers) (Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Version{}, fmt.Errorf("reading version header: %w", err)
	}
	return Extract(string(data), m)
}

// FromFileStrict is the token-boundary variant of FromFile.
func FromFileStrict(path string, m Markers) (Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Version{}, fmt.Errorf("reading version header: %w", err)
	}
	return ExtractStrict(string(data), m)
}

func extract(text string, m Markers, strict bool) (Version, error) {
	markers := [3]string{m.Major, m.Minor, m.Patch}
	for _, marker := range markers {
		if marker == "" {
			return Version{}, errors.New("version marker must not be empty")
		}
	}

	var found [3]bool
	var parts [3]uint

	for _, line := range strings.Split(text, "\n") {
		for i, marker := range markers {
			if found[i] || !matches(line, marker, strict) {
				continue
			}
			n, ok := firstInteger(line)
			if !ok {
				return Version{}, &NumberError{Marker: marker, Line: strings.TrimSpace(line)}
			}
			parts[i] = n
			found[i] = true
		}
		if found[0] && found[1] && found[2] {
			return Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
		}
	}

	matched := 0
	for _, ok := range found {
		if ok {
			matched++
		}
	}
	return Version{}, fmt.Errorf("%w: matched %d of 3 markers", ErrVersionNotFound, matched)
}

func matches(line, marker string, strict bool) bool {
	if !strict {
		return strings.Contains(line, marker)
	}
	for _, tok := range strings.Fields(line) {
		if tok == marker {
			return true
		}
	}
	return false
}

// firstInteger returns the first whitespace-delimited token of the line that
// parses as an unsigned integer.
func firstInteger(line string) (uint, bool) {
	for _, tok := range strings.Fields(line) {
		if n, err := strconv.ParseUint(tok, 10, 32); err == nil {
			return uint(n), true
		}
	}
	return 0, false
}
