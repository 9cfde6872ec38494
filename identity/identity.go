// Package identity provides the validated value types shared by the
// whole packaging pipeline: plugin names and ids, script content,
// relative paths, content hashes, risk scores and security levels.
// Every constructor either returns a valid value or an error naming
// the violated constraint; no type can exist in an invalid state.
package identity

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// MaxNameLength bounds plugin display names.
const MaxNameLength = 100

// IDPrefix is the mandatory prefix of every generated plugin id.
const IDPrefix = "mcp_plugin_"

// PluginName is a validated human-readable plugin name.
type PluginName string

// NewPluginName validates a display name. Names must be non-empty, at
// most 100 characters, and restricted to letters (Latin or Cyrillic),
// digits, space, underscore, dot and hyphen.
func NewPluginName(s string) (PluginName, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("plugin name must not be empty")
	}
	if len([]rune(s)) > MaxNameLength {
		return "", fmt.Errorf("plugin name exceeds %d characters", MaxNameLength)
	}
	for _, r := range s {
		if !nameRuneAllowed(r) {
			return "", fmt.Errorf("plugin name contains disallowed character %q", r)
		}
	}
	return PluginName(s), nil
}

func nameRuneAllowed(r rune) bool {
	switch r {
	case '_', '.', '-', ' ':
		return true
	}
	if r >= '0' && r <= '9' {
		return true
	}
	return unicode.In(r, unicode.Latin, unicode.Cyrillic)
}

func (n PluginName) String() string {
	return string(n)
}

// Clean returns the name reduced to lowercase ASCII letters, digits
// and underscores, suitable for embedding in identifiers.
func (n PluginName) Clean() string {
	var b strings.Builder
	for _, r := range strings.ToLower(string(n)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.', r == '_':
			b.WriteByte('_')
		}
	}
	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" {
		cleaned = "plugin"
	}
	return cleaned
}

// PluginID is the globally unique identifier of a plugin, immutable
// once created.
type PluginID string

// NewPluginID generates a fresh id of the form
// mcp_plugin_<clean-name>_<timestamp>_<random8>.
func NewPluginID(name PluginName) PluginID {
	random8 := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return PluginID(fmt.Sprintf("%s%s_%d_%s", IDPrefix, name.Clean(), time.Now().Unix(), random8))
}

// ParsePluginID validates an externally supplied id string.
func ParsePluginID(s string) (PluginID, error) {
	if s == "" {
		return "", fmt.Errorf("plugin id must not be empty")
	}
	if !strings.HasPrefix(s, IDPrefix) {
		return "", fmt.Errorf("plugin id %q must start with %q", s, IDPrefix)
	}
	return PluginID(s), nil
}

func (id PluginID) String() string {
	return string(id)
}

// BundleIdentifier derives the deterministic reverse-DNS bundle
// identifier for this plugin.
func (id PluginID) BundleIdentifier() string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '-'
	}, string(id))
	return "com.mcp.generated." + clean
}

// Identity pairs a plugin's id with its display name.
type Identity struct {
	ID   PluginID   `json:"id"`
	Name PluginName `json:"name"`
}

// NewIdentity validates a name and mints a fresh id for it.
func NewIdentity(name string) (Identity, error) {
	n, err := NewPluginName(name)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: NewPluginID(n), Name: n}, nil
}

// PluginPath is a validated relative path inside a bundle or an
// installation target. Traversal segments and absolute roots are
// rejected at construction so a path value can never escape its base
// directory.
type PluginPath string

// NewPluginPath validates a path string. Every boundary accepting an
// external path string must go through this constructor rather than
// trusting a previous check.
func NewPluginPath(s string) (PluginPath, error) {
	if s == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "\\") {
		return "", fmt.Errorf("path %q must be relative, not absolute", s)
	}
	if len(s) > 1 && s[1] == ':' {
		return "", fmt.Errorf("path %q must not carry a drive prefix", s)
	}
	for _, seg := range strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", fmt.Errorf("path %q contains a traversal segment", s)
		}
	}
	return PluginPath(s), nil
}

func (p PluginPath) String() string {
	return string(p)
}
