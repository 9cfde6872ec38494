// Package bundle implements the pure packaging pipeline: metadata
// creation, manifest generation, bundle assembly and aggregate bundle
// validation. Every function here is side-effect-free and total over
// valid input; the filesystem is never touched.
package bundle

import (
	"time"

	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/lifecycle"
	"github.com/macroforge/macroforge/operr"
	"github.com/macroforge/macroforge/security"
)

// Parameter describes one declared plugin parameter.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Default     string `json:"default,omitempty"`
}

// CreationData is the validated input of one plugin creation request.
type CreationData struct {
	Name           identity.PluginName
	Content        identity.ScriptContent
	Description    string
	Parameters     []Parameter
	OutputHandling string
	Level          identity.SecurityLevel

	// Limits are the caller-requested resource limits. The zero value
	// means the level's ceilings apply; non-zero limits exceeding the
	// ceiling are rejected, never clamped.
	Limits identity.ResourceLimits
}

// Metadata is the self-describing record created once per plugin.
// Every field except State is immutable after creation; State moves
// only through the lifecycle transition table.
type Metadata struct {
	Identity    identity.Identity       `json:"identity"`
	Dialect     identity.Dialect        `json:"dialect"`
	ContentHash identity.SecurityHash   `json:"content_hash"`
	RiskScore   identity.RiskScore      `json:"risk_score"`
	Level       identity.SecurityLevel  `json:"security_level"`
	Limits      identity.ResourceLimits `json:"resource_limits"`
	CreatedAt   time.Time               `json:"created_at"`
	State       lifecycle.State         `json:"state"`
	Parameters  []Parameter             `json:"parameters,omitempty"`
	Description string                  `json:"description,omitempty"`
}

// CreateMetadata runs the first pipeline stage: it enforces the
// security gate, mints the plugin identity, hashes the exact script
// bytes and scores the content. The scan report is returned alongside
// so callers can surface warnings.
func CreateMetadata(data CreationData) (Metadata, security.Report, error) {
	report, err := security.Gate(data.Content)
	if err != nil {
		return Metadata{}, report, err
	}

	level := data.Level
	if level == "" {
		level = identity.DefaultSecurityLevel
	}
	if _, err := identity.ParseSecurityLevel(string(level)); err != nil {
		return Metadata{}, report, operr.Wrap(operr.KindValidation,
			"invalid security level", "declare one of trusted, sandboxed, restricted, dangerous", err)
	}

	limits := data.Limits
	if limits == (identity.ResourceLimits{}) {
		limits = level.Ceiling()
	} else if err := level.ValidateLimits(limits); err != nil {
		return Metadata{}, report, operr.Wrap(operr.KindValidation,
			"requested resource limits exceed the declared level's ceiling",
			"request limits within the level's ceiling, or declare a more trusted level", err)
	}

	id := identity.Identity{
		ID:   identity.NewPluginID(data.Name),
		Name: data.Name,
	}

	return Metadata{
		Identity:    id,
		Dialect:     data.Content.Dialect(),
		ContentHash: data.Content.Hash(),
		RiskScore:   security.Score(data.Content.Dialect(), level, report),
		Level:       level,
		Limits:      limits,
		CreatedAt:   time.Now().UTC(),
		State:       lifecycle.StateCreated,
		Parameters:  data.Parameters,
		Description: data.Description,
	}, report, nil
}
