package identity

import (
	"fmt"
	"time"
)

// RiskScore is an aggregate threat score in [0,100].
type RiskScore int

// NewRiskScore validates the [0,100] bound.
func NewRiskScore(n int) (RiskScore, error) {
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("risk score %d outside [0,100]", n)
	}
	return RiskScore(n), nil
}

// ClampRiskScore caps an aggregate at 100. Scores are never negative
// by construction, so only the upper bound is applied.
func ClampRiskScore(n int) RiskScore {
	if n > 100 {
		return 100
	}
	if n < 0 {
		return 0
	}
	return RiskScore(n)
}

func (s RiskScore) Int() int {
	return int(s)
}

// SecurityLevel is the declared trust tier of a plugin. Levels are
// ordered Trusted < Sandboxed < Restricted < Dangerous; each defines
// resource ceilings a plugin at that level may never exceed.
type SecurityLevel string

const (
	LevelTrusted    SecurityLevel = "trusted"
	LevelSandboxed  SecurityLevel = "sandboxed"
	LevelRestricted SecurityLevel = "restricted"
	LevelDangerous  SecurityLevel = "dangerous"
)

// DefaultSecurityLevel applies when a creation request declares none.
const DefaultSecurityLevel = LevelSandboxed

// SecurityLevels lists the levels in ascending trust-risk order.
var SecurityLevels = []SecurityLevel{
	LevelTrusted,
	LevelSandboxed,
	LevelRestricted,
	LevelDangerous,
}

// ParseSecurityLevel validates a level tag.
func ParseSecurityLevel(s string) (SecurityLevel, error) {
	l := SecurityLevel(s)
	for _, known := range SecurityLevels {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown security level %q", s)
}

// Ordinal maps the level to its position in the order, Trusted being 0.
func (l SecurityLevel) Ordinal() int {
	for i, known := range SecurityLevels {
		if l == known {
			return i
		}
	}
	return -1
}

func (l SecurityLevel) String() string {
	return string(l)
}

// ResourceLimits are the memory and wall-clock ceilings granted to a
// plugin execution. This module only derives and validates limits; an
// external enforcer applies them.
type ResourceLimits struct {
	MemoryMB int           `json:"memory_mb"`
	Timeout  time.Duration `json:"timeout"`
}

// Ceiling returns the maximum limits permitted at this level.
func (l SecurityLevel) Ceiling() ResourceLimits {
	switch l {
	case LevelTrusted:
		return ResourceLimits{MemoryMB: 1000, Timeout: 300 * time.Second}
	case LevelSandboxed:
		return ResourceLimits{MemoryMB: 100, Timeout: 60 * time.Second}
	case LevelRestricted:
		return ResourceLimits{MemoryMB: 500, Timeout: 180 * time.Second}
	case LevelDangerous:
		return ResourceLimits{MemoryMB: 50, Timeout: 30 * time.Second}
	}
	return ResourceLimits{}
}

// ValidateLimits rejects requested limits exceeding the level's
// ceiling. Limits are never silently clamped.
func (l SecurityLevel) ValidateLimits(req ResourceLimits) error {
	ceiling := l.Ceiling()
	if req.MemoryMB > ceiling.MemoryMB {
		return fmt.Errorf("requested %d MB exceeds the %d MB ceiling of level %s", req.MemoryMB, ceiling.MemoryMB, l)
	}
	if req.Timeout > ceiling.Timeout {
		return fmt.Errorf("requested timeout %s exceeds the %s ceiling of level %s", req.Timeout, ceiling.Timeout, l)
	}
	if req.MemoryMB <= 0 {
		return fmt.Errorf("requested memory limit must be positive, got %d MB", req.MemoryMB)
	}
	if req.Timeout <= 0 {
		return fmt.Errorf("requested timeout must be positive, got %s", req.Timeout)
	}
	return nil
}
