package install

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/operr"
)

// Boundary validates installation requests against a policy and a
// filesystem. It produces plans; it never executes them.
type Boundary struct {
	policy Policy
	fs     FS
}

// NewBoundary creates a boundary over the given policy and filesystem.
func NewBoundary(policy Policy, fsys FS) *Boundary {
	return &Boundary{policy: policy, fs: fsys}
}

// Request describes one installation attempt.
type Request struct {
	// SourcePath is the staged bundle directory on disk.
	SourcePath string
	// TargetDirectory is where the bundle should be installed.
	TargetDirectory string
	// Force allows overwriting an existing installation at the target.
	// It never overrides the protected-path boundary.
	Force bool
}

// Plan runs the ordered boundary checks and, if all pass, returns the
// precomputed installation plan. Any check failure aborts.
func (bd *Boundary) Plan(b bundle.Bundle, req Request) (Plan, error) {
	size, err := bd.checkSource(req.SourcePath)
	if err != nil {
		return Plan{}, err
	}

	if err := bd.CheckTarget(req.TargetDirectory); err != nil {
		return Plan{}, err
	}

	bundleDir := path.Join(req.TargetDirectory, path.Base(b.BundlePath.String()))
	if bd.fs.Exists(bundleDir) && !req.Force {
		return Plan{}, operr.Newf(operr.KindAlreadyExists,
			"pass force_install to overwrite, or choose another target",
			"target %q already contains this bundle", bundleDir)
	}

	warnings := bd.checkExtensions(b, req.SourcePath)

	var required []string
	if bd.fs.Exists(req.TargetDirectory) && !bd.fs.Writable(req.TargetDirectory) {
		required = append(required, fmt.Sprintf("write access to %s", req.TargetDirectory))
	}

	steps, rollback := buildSteps(b, req.TargetDirectory)
	return Plan{
		Bundle:              b,
		TargetDirectory:     req.TargetDirectory,
		Steps:               steps,
		RollbackSteps:       rollback,
		RequiredPermissions: required,
		EstimatedDiskBytes:  size + int64(len(b.Manifest)),
		Warnings:            warnings,
	}, nil
}

// checkSource verifies the staged bundle exists, is a directory, and
// fits the policy size cap. It returns the measured size.
func (bd *Boundary) checkSource(source string) (int64, error) {
	if source == "" {
		return 0, operr.Validation("bundle source path is empty",
			"stage the bundle and pass its directory")
	}
	if !bd.fs.Exists(source) {
		return 0, operr.Validationf("stage the bundle before planning its installation",
			"bundle source %q does not exist", source)
	}
	if !bd.fs.IsDir(source) {
		return 0, operr.Validationf("the bundle source must be the staged bundle directory",
			"bundle source %q is not a directory", source)
	}

	size, err := bd.fs.Size(source)
	if err != nil {
		return 0, operr.System("measuring staged bundle size", err)
	}
	if size > bd.policy.MaxBundleBytes {
		return 0, operr.Validationf("reduce the bundle below the configured size cap",
			"staged bundle is %d bytes, exceeding the %d byte cap", size, bd.policy.MaxBundleBytes)
	}
	return size, nil
}

// CheckTarget enforces the protected-path deny-list. The check is
// unconditional: force_install never bypasses it.
func (bd *Boundary) CheckTarget(target string) error {
	if target == "" {
		return operr.Validation("installation target directory is empty",
			"pass an explicit target directory")
	}

	cleaned := path.Clean(target)
	for _, protected := range bd.policy.ProtectedPaths {
		if cleaned == protected || strings.HasPrefix(cleaned, protected+"/") {
			return operr.Newf(operr.KindSecurityViolation,
				"install outside the protected system locations",
				"target %q falls under protected path %q", target, protected)
		}
	}
	for _, segment := range bd.policy.ProtectedSegments {
		if strings.Contains(cleaned+"/", "/"+segment+"/") {
			return operr.Newf(operr.KindSecurityViolation,
				"install outside the protected system locations",
				"target %q falls under protected location %q", target, segment)
		}
	}
	return nil
}

// checkExtensions matches every file inside the bundle, both the
// in-memory script files and anything staged on disk, against the
// allow-list. Unexpected extensions are warnings, not hard failures.
func (bd *Boundary) checkExtensions(b bundle.Bundle, source string) []string {
	names := []string{"manifest.json"}
	for _, f := range b.Scripts {
		names = append(names, f.Name)
	}
	if staged, err := bd.fs.List(source); err == nil {
		names = append(names, staged...)
	}

	seen := map[string]bool{}
	var warnings []string
	for _, name := range names {
		if name == "manifest.json" || seen[name] {
			continue
		}
		seen[name] = true
		if !bd.extensionAllowed(name) {
			warnings = append(warnings, fmt.Sprintf("file %q has an unexpected extension", name))
		}
	}
	return warnings
}

func (bd *Boundary) extensionAllowed(name string) bool {
	for _, ext := range bd.policy.AllowedExtensions {
		ok, err := doublestar.Match("**/*"+ext, name)
		if err == nil && ok {
			return true
		}
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
