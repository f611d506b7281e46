package action

import "fmt"

// Kind identifies one action behavior. The zero value is NoOp, so an empty
// Spec is a valid do-nothing action.
type Kind int

const (
	NoOp Kind = iota
	Compile
	InstallFile
	WriteTextFile
	TranslateUnit
	Archive
	Checksum
	Upload
	Patch
	Print
)

var kindNames = map[Kind]string{
	NoOp:          "no_op",
	Compile:       "compile",
	InstallFile:   "install_file",
	WriteTextFile: "write_text_file",
	TranslateUnit: "translate_unit",
	Archive:       "archive",
	Checksum:      "checksum",
	Upload:        "upload",
	Patch:         "patch",
	Print:         "print",
}

// String returns the manifest spelling of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind maps a manifest spelling back to its Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown action kind %q", s)
}
