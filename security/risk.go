package security

import "github.com/macroforge/macroforge/identity"

// Scoring constants. The aggregate is deterministic: identical
// (dialect, level, content) always yields the identical score, which
// reproducible security audits rely on.
const (
	// dialectSystemRisk applies to dialects with direct system access
	// (shell, AppleScript).
	dialectSystemRisk = 15

	// dialectInterpretedRisk applies to general-purpose interpreted
	// dialects (Python, JavaScript, PHP).
	dialectInterpretedRisk = 8

	// violationRisk is added once per distinct matched dangerous
	// pattern.
	violationRisk = 10

	// warningRisk is added once per distinct dialect heuristic hit.
	warningRisk = 5
)

// levelRisk maps a declared security level to its base contribution.
// Declaring a less trusted level raises the aggregate, so the score
// reflects both content and declared intent.
func levelRisk(level identity.SecurityLevel) int {
	switch level {
	case identity.LevelTrusted:
		return 0
	case identity.LevelSandboxed:
		return 5
	case identity.LevelRestricted:
		return 20
	case identity.LevelDangerous:
		return 40
	}
	return 0
}

// dialectRisk maps a dialect to its base contribution.
func dialectRisk(d identity.Dialect) int {
	switch {
	case d.RequiresSystemAccess():
		return dialectSystemRisk
	case d.Interpreted():
		return dialectInterpretedRisk
	}
	return 0
}

// Score aggregates dialect risk, declared security level and scan
// findings into a bounded [0,100] score. Adding a matched pattern to
// the report never decreases the result (monotonicity).
func Score(dialect identity.Dialect, level identity.SecurityLevel, report Report) identity.RiskScore {
	total := dialectRisk(dialect) + levelRisk(level)
	total += violationRisk * len(report.Violations)
	total += warningRisk * len(report.Warnings)
	return identity.ClampRiskScore(total)
}
