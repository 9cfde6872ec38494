package security

import "github.com/macroforge/macroforge/identity"

// Context is the derived security posture packaged alongside a bundle.
// It is computed from the scan outcome and declared level, never
// hand-edited.
type Context struct {
	Identity          identity.Identity       `json:"identity"`
	Level             identity.SecurityLevel  `json:"security_level"`
	Score             identity.RiskScore      `json:"risk_score"`
	ContentHash       identity.SecurityHash   `json:"content_hash"`
	AllowedOperations []string                `json:"allowed_operations,omitempty"`
	Limits            identity.ResourceLimits `json:"resource_limits"`
}

// NewContext derives the security context for a plugin at the given
// declared level. The resource limits are the level's ceilings.
func NewContext(id identity.Identity, level identity.SecurityLevel, score identity.RiskScore, hash identity.SecurityHash) Context {
	return Context{
		Identity:          id,
		Level:             level,
		Score:             score,
		ContentHash:       hash,
		AllowedOperations: allowedOperations(level),
		Limits:            level.Ceiling(),
	}
}

// allowedOperations maps a security level to the operations the host
// may grant a plugin at that level.
func allowedOperations(level identity.SecurityLevel) []string {
	switch level {
	case identity.LevelTrusted:
		return []string{"execute", "file_read", "file_write", "network"}
	case identity.LevelSandboxed:
		return []string{"execute", "file_read"}
	case identity.LevelRestricted:
		return []string{"execute"}
	}
	// Dangerous plugins execute only under explicit operator approval.
	return nil
}
