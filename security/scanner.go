// Package security performs static threat analysis of plugin script
// content: pattern scanning, risk scoring and sandbox-level advice.
// Nothing in this package ever executes the content it analyzes.
package security

import (
	"fmt"

	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/operr"
)

// Finding is a single matched dangerous or risk-adjacent construct.
type Finding struct {
	Threat      ThreatType
	Severity    int
	Description string
	Mitigation  string
}

// Report is the full scan output for one piece of content.
//
// Violations come from the fixed dangerous-pattern table and always
// classify the content as unsafe. Warnings come from dialect-specific
// heuristics; they raise the risk score but do not by themselves make
// content unsafe, so legitimate risk-adjacent code is not hard-blocked.
type Report struct {
	Violations []Finding
	Warnings   []Finding
}

// Unsafe reports whether any hard violation was found.
func (r Report) Unsafe() bool {
	return len(r.Violations) > 0
}

// ThreatDescriptions lists the descriptions of all violations, for
// caller-facing remediation messages.
func (r Report) ThreatDescriptions() []string {
	descs := make([]string, len(r.Violations))
	for i, f := range r.Violations {
		descs[i] = fmt.Sprintf("%s (severity %d): %s", f.Threat, f.Severity, f.Description)
	}
	return descs
}

// Scan evaluates the full dangerous-pattern table plus the dialect's
// heuristic rules against the content. Every matching row is recorded;
// the scan never short-circuits, so the caller always sees the
// complete threat surface.
func Scan(content identity.ScriptContent) Report {
	text := content.Text()

	var report Report
	for _, p := range dangerousPatterns {
		if p.re.MatchString(text) {
			report.Violations = append(report.Violations, Finding{
				Threat:      p.threat,
				Severity:    p.severity,
				Description: p.desc,
				Mitigation:  p.mitigation,
			})
		}
	}

	report.Warnings = dialectWarnings(text, content.Dialect())
	return report
}

// Gate enforces the hard-ban boundary: content carrying any violation
// is rejected with a SecurityViolation enumerating every matched
// threat. Every boundary that accepts script content re-runs this
// check rather than trusting an earlier one.
func Gate(content identity.ScriptContent) (Report, error) {
	report := Scan(content)
	if report.Unsafe() {
		return report, operr.Security(
			fmt.Sprintf("script content matched %d dangerous pattern(s)", len(report.Violations)),
			report.ThreatDescriptions(),
		)
	}
	return report, nil
}

// dialectWarnings runs the secondary, dialect-specific heuristics.
func dialectWarnings(text string, dialect identity.Dialect) []Finding {
	var warnings []Finding
	add := func(threat ThreatType, desc, mitigation string) {
		warnings = append(warnings, Finding{
			Threat:      threat,
			Severity:    warningSeverity,
			Description: desc,
			Mitigation:  mitigation,
		})
	}

	switch dialect {
	case identity.DialectPython:
		if pythonRiskyImports.MatchString(text) {
			add(ThreatCodeInjection, "import of a system-capable Python module",
				"limit imports to the modules the plugin genuinely needs")
		}
		if pythonDynamicImport.MatchString(text) {
			add(ThreatCodeInjection, "dynamic import machinery (__import__ / importlib.import_module)",
				"import modules statically so the dependency surface is auditable")
		}
	case identity.DialectShell:
		if shellSubstitution.MatchString(text) {
			add(ThreatCodeInjection, "command substitution",
				"avoid executing the output of other commands")
		}
		if shellAdminCommands.MatchString(text) {
			add(ThreatSystemCompromise, "dangerous administrative command",
				"plugins must not run destructive admin commands")
		}
	case identity.DialectJavaScript:
		if jsRequire.MatchString(text) {
			add(ThreatCodeInjection, "CommonJS require( call",
				"limit required modules to the plugin's declared needs")
		}
		if jsGlobalAccess.MatchString(text) {
			add(ThreatCodeInjection, "DOM or global object access",
				"avoid touching host global objects")
		}
	}

	return warnings
}
