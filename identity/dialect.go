package identity

import "fmt"

// Dialect identifies the scripting language of a plugin's content.
type Dialect string

const (
	DialectAppleScript Dialect = "applescript"
	DialectShell       Dialect = "shell"
	DialectPython      Dialect = "python"
	DialectJavaScript  Dialect = "javascript"
	DialectPHP         Dialect = "php"
)

// Dialects lists every supported dialect in a stable order.
var Dialects = []Dialect{
	DialectAppleScript,
	DialectShell,
	DialectPython,
	DialectJavaScript,
	DialectPHP,
}

// ParseDialect validates a dialect tag.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(s)
	for _, known := range Dialects {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown script dialect %q", s)
}

// RequiresSystemAccess reports whether scripts in this dialect run with
// direct access to the host system (shell and AppleScript both do).
func (d Dialect) RequiresSystemAccess() bool {
	return d == DialectShell || d == DialectAppleScript
}

// Interpreted reports whether the dialect is a general-purpose
// interpreted language without inherent system-automation privileges.
func (d Dialect) Interpreted() bool {
	switch d {
	case DialectPython, DialectJavaScript, DialectPHP:
		return true
	}
	return false
}

// ScriptFileName returns the dialect-appropriate filename for the
// packaged script inside a bundle.
func (d Dialect) ScriptFileName() string {
	switch d {
	case DialectAppleScript:
		return "script.scpt"
	case DialectShell:
		return "script.sh"
	case DialectPython:
		return "script.py"
	case DialectJavaScript:
		return "script.js"
	case DialectPHP:
		return "script.php"
	}
	return "script.txt"
}

func (d Dialect) String() string {
	return string(d)
}
