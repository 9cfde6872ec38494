package install

import (
	"fmt"
	"path"

	"github.com/macroforge/macroforge/bundle"
)

// Step is one mutation an installation executor must perform, or one
// inverse mutation a rollback must perform.
type Step struct {
	Op          string `json:"op"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Plan is the full, precomputed installation plan for one bundle. The
// rollback steps are computed here, before any filesystem mutation
// occurs, never derived retroactively: if a mutation step fails
// partway, the caller executes RollbackSteps in order.
type Plan struct {
	Bundle              bundle.Bundle `json:"bundle"`
	TargetDirectory     string        `json:"target_directory"`
	Steps               []Step        `json:"steps"`
	RollbackSteps       []Step        `json:"rollback_steps"`
	RequiredPermissions []string      `json:"required_permissions,omitempty"`
	EstimatedDiskBytes  int64         `json:"estimated_disk_bytes"`
	Warnings            []string      `json:"warnings,omitempty"`
}

// CanProceed reports whether the plan may run unattended: it must have
// work to do and no unmet permission.
func (p Plan) CanProceed() bool {
	return len(p.Steps) > 0 && len(p.RequiredPermissions) == 0
}

// buildSteps enumerates the forward mutations and their exact inverse.
func buildSteps(b bundle.Bundle, targetDir string) (steps, rollback []Step) {
	bundleDir := path.Join(targetDir, path.Base(b.BundlePath.String()))

	steps = []Step{
		{Op: "create_directory", Path: bundleDir, Description: "create the bundle directory"},
		{Op: "write_manifest", Path: path.Join(bundleDir, "manifest.json"), Description: "write the bundle manifest"},
	}
	for _, f := range b.Scripts {
		steps = append(steps, Step{
			Op:          "write_script",
			Path:        path.Join(bundleDir, f.Name),
			Description: fmt.Sprintf("write script file %s", f.Name),
		})
	}
	steps = append(steps,
		Step{Op: "set_permissions", Path: bundleDir, Description: "restrict bundle permissions to the owning user"},
		Step{Op: "verify_integrity", Path: bundleDir, Description: "verify written content against the recorded hash"},
	)

	rollback = []Step{
		{Op: "remove_directory", Path: bundleDir, Description: "remove the bundle directory"},
		{Op: "restore_prior_state", Path: targetDir, Description: "restore any overwritten prior bundle"},
		{Op: "verify_rollback", Path: targetDir, Description: "verify the target matches its pre-install state"},
	}
	return steps, rollback
}
