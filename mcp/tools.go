package mcp

import (
	"context"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/service"
)

// Tool input types. The jsonschema tags drive the generated input
// schemas advertised to MCP clients.

type createPluginInput struct {
	ActionName     string          `json:"action_name" jsonschema:"required,description=Display name of the plugin"`
	ScriptContent  string          `json:"script_content" jsonschema:"required,description=Raw script text; it is scanned and packaged but never executed"`
	Dialect        string          `json:"dialect" jsonschema:"required,description=Script dialect: applescript, shell, python, javascript or php"`
	Description    string          `json:"description,omitempty"`
	Parameters     []toolParameter `json:"parameters,omitempty"`
	OutputHandling string          `json:"output_handling,omitempty"`
	SecurityLevel  string          `json:"security_level,omitempty" jsonschema:"description=Declared trust tier: trusted, sandboxed, restricted or dangerous (default sandboxed)"`
	MemoryLimitMB  int             `json:"memory_limit_mb,omitempty" jsonschema:"description=Requested memory limit; must not exceed the declared level's ceiling"`
	TimeoutSeconds int             `json:"timeout_seconds,omitempty" jsonschema:"description=Requested execution timeout; must not exceed the declared level's ceiling"`
}

type toolParameter struct {
	Name        string `json:"name" jsonschema:"required"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Default     string `json:"default,omitempty"`
}

type installPluginInput struct {
	PluginID        string `json:"plugin_id" jsonschema:"required"`
	TargetDirectory string `json:"target_directory,omitempty"`
	ForceInstall    bool   `json:"force_install,omitempty" jsonschema:"description=Overwrite an existing installation; never bypasses the protected-path boundary"`
}

type validatePluginInput struct {
	PluginID      string `json:"plugin_id" jsonschema:"required"`
	Comprehensive *bool  `json:"comprehensive,omitempty"`
	SecurityScan  *bool  `json:"security_scan,omitempty"`
}

type removePluginInput struct {
	PluginID     string `json:"plugin_id" jsonschema:"required"`
	RemoveFiles  *bool  `json:"remove_files,omitempty"`
	CreateBackup *bool  `json:"create_backup,omitempty"`
}

type pluginStatusInput struct {
	PluginID string `json:"plugin_id,omitempty"`
}

func (s *Server) registerTools() {
	addTool(s, "create_plugin",
		"Scan, score and package an automation script into an installable plugin bundle without executing it.",
		func(ctx context.Context, in createPluginInput) (service.CreateResult, error) {
			params := make([]bundle.Parameter, len(in.Parameters))
			for i, p := range in.Parameters {
				params[i] = bundle.Parameter(p)
			}
			return s.svc.Create(ctx, service.CreateInput{
				ActionName:     in.ActionName,
				ScriptContent:  in.ScriptContent,
				Dialect:        in.Dialect,
				Description:    in.Description,
				Parameters:     params,
				OutputHandling: in.OutputHandling,
				SecurityLevel:  in.SecurityLevel,
				MemoryLimitMB:  in.MemoryLimitMB,
				TimeoutSeconds: in.TimeoutSeconds,
			})
		})

	addTool(s, "install_plugin",
		"Validate a packaged plugin against the installation boundary and produce the installation plan with its rollback plan.",
		func(ctx context.Context, in installPluginInput) (service.InstallResult, error) {
			return s.svc.Install(ctx, service.InstallInput{
				PluginID:        in.PluginID,
				TargetDirectory: in.TargetDirectory,
				ForceInstall:    in.ForceInstall,
			})
		})

	addTool(s, "validate_plugin",
		"Re-validate a registered plugin's bundle and report every defect found in one pass.",
		func(ctx context.Context, in validatePluginInput) (service.ValidationReport, error) {
			return s.svc.Validate(ctx, service.ValidateInput{
				PluginID:      in.PluginID,
				Comprehensive: boolOr(in.Comprehensive, true),
				SecurityScan:  boolOr(in.SecurityScan, true),
			})
		})

	addTool(s, "remove_plugin",
		"Delete a registered plugin, optionally backing up and removing its staged files.",
		func(ctx context.Context, in removePluginInput) (service.RemovalResult, error) {
			return s.svc.Remove(ctx, service.RemoveInput{
				PluginID:     in.PluginID,
				RemoveFiles:  boolOr(in.RemoveFiles, true),
				CreateBackup: boolOr(in.CreateBackup, true),
			})
		})

	addTool(s, "plugin_status",
		"Report registered plugins, their lifecycle state and the installation history.",
		func(ctx context.Context, in pluginStatusInput) (service.StatusReport, error) {
			return s.svc.Status(ctx, service.StatusInput{PluginID: in.PluginID})
		})
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
