package service

import (
	"time"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/install"
	"github.com/macroforge/macroforge/lifecycle"
	"github.com/macroforge/macroforge/registry"
	"github.com/macroforge/macroforge/security"
)

// CreateInput is one plugin creation request.
type CreateInput struct {
	ActionName     string
	ScriptContent  string
	Dialect        string
	Description    string
	Parameters     []bundle.Parameter
	OutputHandling string
	SecurityLevel  string

	// MemoryLimitMB and TimeoutSeconds optionally request resource
	// limits below the declared level's ceiling. Zero means the
	// ceiling applies; requests above it are rejected, never clamped.
	MemoryLimitMB  int
	TimeoutSeconds int
}

// CreateResult reports a successful creation.
type CreateResult struct {
	PluginID      string    `json:"plugin_id"`
	Name          string    `json:"name"`
	BundlePath    string    `json:"bundle_path"`
	ContentHash   string    `json:"content_hash"`
	RiskScore     int       `json:"risk_score"`
	SecurityLevel string    `json:"security_level"`
	CreatedAt     time.Time `json:"created_at"`
	Warnings      []string  `json:"warnings,omitempty"`
}

// InstallInput is one installation request.
type InstallInput struct {
	PluginID        string
	TargetDirectory string
	ForceInstall    bool
}

// InstallResult carries the precomputed plan for the executor plus the
// recorded outcome.
type InstallResult struct {
	PluginID      string          `json:"plugin_id"`
	InstalledPath string          `json:"installed_path"`
	Plan          install.Plan    `json:"plan"`
	State         lifecycle.State `json:"state"`
	Warnings      []string        `json:"warnings,omitempty"`
}

// ValidateInput selects which validation passes to run.
type ValidateInput struct {
	PluginID      string
	Comprehensive bool
	SecurityScan  bool
}

// ValidationReport aggregates everything one validation pass found.
type ValidationReport struct {
	PluginID  string            `json:"plugin_id"`
	Valid     bool              `json:"valid"`
	Issues    []string          `json:"issues,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
	RiskScore int               `json:"risk_score"`
	Bucket    security.Bucket   `json:"bucket"`
	Decision  security.Decision `json:"decision"`
	CheckedAt time.Time         `json:"checked_at"`
}

// RemoveInput is one removal request.
type RemoveInput struct {
	PluginID     string
	RemoveFiles  bool
	CreateBackup bool
}

// RemovalResult reports a completed removal.
type RemovalResult struct {
	PluginID     string `json:"plugin_id"`
	RemovedPath  string `json:"removed_path,omitempty"`
	BackupPath   string `json:"backup_path,omitempty"`
	FilesRemoved bool   `json:"files_removed"`
}

// StatusInput optionally narrows the report to one plugin.
type StatusInput struct {
	PluginID string
}

// PluginStatus is one plugin's entry in a status report.
type PluginStatus struct {
	PluginID      string          `json:"plugin_id"`
	Name          string          `json:"name"`
	Dialect       string          `json:"dialect"`
	State         lifecycle.State `json:"state"`
	RiskScore     int             `json:"risk_score"`
	SecurityLevel string          `json:"security_level"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StatusReport describes the registry's current contents and the
// append-only installation history.
type StatusReport struct {
	Count   int                     `json:"count"`
	Plugins []PluginStatus          `json:"plugins,omitempty"`
	History []registry.HistoryEntry `json:"history,omitempty"`
}
