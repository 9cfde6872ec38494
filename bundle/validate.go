package bundle

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/security"
)

// Issue is a single defect found during bundle validation.
type Issue struct {
	Field   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// ValidationResult aggregates every defect found in one pass so a
// single validation reports the complete list instead of failing fast.
type ValidationResult struct {
	Issues   []Issue
	Warnings []string
	Report   security.Report
}

// Valid reports whether no defect was found. Warnings alone do not
// invalidate a bundle.
func (r ValidationResult) Valid() bool {
	return len(r.Issues) == 0
}

// Validate re-checks a finished bundle: manifest structure, script
// file non-emptiness and text encoding, bundle path suffix, plugin-id
// prefix convention, and the full security boundary. All checks run;
// nothing short-circuits.
func Validate(b Bundle) ValidationResult {
	var result ValidationResult
	add := func(field, format string, args ...any) {
		result.Issues = append(result.Issues, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for _, msg := range checkManifestKeys(b.Manifest) {
		add("manifest", "%s", msg)
	}

	if len(b.Scripts) == 0 {
		add("scripts", "bundle contains no script files")
	}
	for _, f := range b.Scripts {
		if len(f.Data) == 0 {
			add("scripts", "script file %q is empty", f.Name)
		} else if !utf8.Valid(f.Data) {
			add("scripts", "script file %q is not valid text", f.Name)
		}
	}

	if !b.HasSuffix() {
		add("bundle_path", "bundle path %q must end in %s", b.BundlePath, BundleSuffix)
	}

	if !strings.HasPrefix(b.Identity.ID.String(), identity.IDPrefix) {
		add("plugin_id", "plugin id %q must start with %q", b.Identity.ID, identity.IDPrefix)
	}
	if b.Metadata.Identity != b.Identity {
		add("identity", "bundle identity %q does not match metadata identity %q",
			b.Identity.ID, b.Metadata.Identity.ID)
	}
	if err := b.Metadata.Level.ValidateLimits(b.Metadata.Limits); err != nil {
		add("resource_limits", "%v", err)
	}

	result.Report = revalidateSecurity(b, add)
	for _, w := range result.Report.Warnings {
		result.Warnings = append(result.Warnings, w.Description)
	}
	return result
}

// revalidateSecurity re-runs the scan, score and sandbox decision on
// the packaged script bytes. Installation trusts nothing computed at
// creation time.
func revalidateSecurity(b Bundle, add func(field, format string, args ...any)) security.Report {
	var merged security.Report
	for _, f := range b.Scripts {
		content, err := identity.NewScriptContent(string(f.Data), b.Metadata.Dialect)
		if err != nil {
			// Emptiness and encoding were already reported above.
			continue
		}

		if content.Hash() != b.Metadata.ContentHash {
			add("content_hash", "script file %q does not match the recorded content hash", f.Name)
		}

		report := security.Scan(content)
		for _, v := range report.Violations {
			add("security", "%s: %s", v.Threat, v.Description)
		}
		merged.Violations = append(merged.Violations, report.Violations...)
		merged.Warnings = append(merged.Warnings, report.Warnings...)

		score := security.Score(b.Metadata.Dialect, b.Metadata.Level, report)
		if advice := security.Advise(score, report); advice.Decision == security.DecisionReject {
			add("security", "sandbox advisor rejects the content at score %d", score.Int())
		}
	}
	return merged
}
