// Package install gates the installation step: it validates target
// locations against protected-path and size policies and produces
// installation plans with explicit rollback plans. The package checks
// the filesystem but never mutates it; executing a plan is the
// caller's job.
package install

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMaxBundleBytes caps a staged bundle at 10 MB.
const DefaultMaxBundleBytes = 10 * 1024 * 1024

// Policy bounds what an installation may touch. The zero value is not
// usable; start from DefaultPolicy or LoadPolicy.
type Policy struct {
	// MaxBundleBytes caps the staged bundle size.
	MaxBundleBytes int64 `yaml:"max_bundle_bytes"`

	// ProtectedPaths is the deny-list of absolute path prefixes a
	// target directory may never fall under. This is a deny-list
	// boundary, not an allow-list, and is checked unconditionally.
	ProtectedPaths []string `yaml:"protected_paths"`

	// ProtectedSegments are per-user directory fragments denied at any
	// depth, e.g. Library/LaunchAgents under any home directory.
	ProtectedSegments []string `yaml:"protected_segments"`

	// AllowedExtensions is the allow-list for files inside a bundle.
	// Unexpected extensions produce warnings, not hard failures.
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// DefaultPolicy returns the conservative built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxBundleBytes: DefaultMaxBundleBytes,
		ProtectedPaths: []string{
			"/System",
			"/usr",
			"/bin",
			"/sbin",
		},
		ProtectedSegments: []string{
			"Library/LaunchAgents",
			"Library/LaunchDaemons",
			"Library/Keychains",
		},
		AllowedExtensions: []string{
			".kmsync", ".plist", ".py", ".js", ".sh", ".scpt", ".php",
		},
	}
}

// LoadPolicy reads a YAML policy file. Absent fields keep their
// defaults, so a partial file only overrides what it names.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}

	policy := DefaultPolicy()
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parsing policy file: %w", err)
	}
	if policy.MaxBundleBytes <= 0 {
		policy.MaxBundleBytes = DefaultMaxBundleBytes
	}
	return policy, nil
}
