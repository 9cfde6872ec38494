package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/contract"
	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/operr"
)

// Create runs the full creation pipeline: validate input, scan and
// score the content, assemble the bundle, stage it, and register the
// metadata.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	return contract.Run("create_plugin", s.invariant, createPre, s.createPost, in,
		func(in CreateInput) (CreateResult, error) { return s.create(ctx, in) })
}

// createPre checks input well-formedness before the pipeline runs.
func createPre(in CreateInput) error {
	if strings.TrimSpace(in.ActionName) == "" {
		return operr.Validation("action_name is required", "name the plugin and resubmit")
	}
	if in.ScriptContent == "" {
		return operr.Validation("script_content is required", "supply the script text and resubmit")
	}
	if in.Dialect == "" {
		return operr.Validation("dialect is required",
			"tag the script as applescript, shell, python, javascript or php")
	}
	return nil
}

// createPost verifies the creation contract: a success implies an
// assigned id, a bounded score, and a content hash that matches a
// fresh recomputation over the staged script bytes.
func (s *Service) createPost(_ CreateInput, out CreateResult) error {
	if !strings.HasPrefix(out.PluginID, identity.IDPrefix) {
		return fmt.Errorf("result id %q lacks the %q prefix", out.PluginID, identity.IDPrefix)
	}
	if out.RiskScore < 0 || out.RiskScore > 100 {
		return fmt.Errorf("result risk score %d outside [0,100]", out.RiskScore)
	}

	b, ok := s.heldBundle(identity.PluginID(out.PluginID))
	if !ok {
		return fmt.Errorf("created plugin %s has no held bundle", out.PluginID)
	}
	for _, f := range b.Scripts {
		if identity.HashBytes(f.Data).String() != out.ContentHash {
			return fmt.Errorf("recomputed hash of %s does not match the reported content hash", f.Name)
		}
	}
	return nil
}

func (s *Service) create(ctx context.Context, in CreateInput) (CreateResult, error) {
	name, err := identity.NewPluginName(in.ActionName)
	if err != nil {
		return CreateResult{}, operr.Wrap(operr.KindValidation,
			"invalid action name", "use up to 100 letters, digits, space, dot, underscore or hyphen", err)
	}

	dialect, err := identity.ParseDialect(strings.ToLower(in.Dialect))
	if err != nil {
		return CreateResult{}, operr.Wrap(operr.KindValidation,
			"invalid dialect", "tag the script as applescript, shell, python, javascript or php", err)
	}

	content, err := identity.NewScriptContent(in.ScriptContent, dialect)
	if err != nil {
		return CreateResult{}, operr.Wrap(operr.KindValidation,
			"invalid script content", "submit non-empty UTF-8 content within the size ceiling", err)
	}

	level := identity.DefaultSecurityLevel
	if in.SecurityLevel != "" {
		level, err = identity.ParseSecurityLevel(strings.ToLower(in.SecurityLevel))
		if err != nil {
			return CreateResult{}, operr.Wrap(operr.KindValidation,
				"invalid security level", "declare one of trusted, sandboxed, restricted, dangerous", err)
		}
	}

	var limits identity.ResourceLimits
	if in.MemoryLimitMB != 0 || in.TimeoutSeconds != 0 {
		ceiling := level.Ceiling()
		limits = identity.ResourceLimits{
			MemoryMB: in.MemoryLimitMB,
			Timeout:  time.Duration(in.TimeoutSeconds) * time.Second,
		}
		if limits.MemoryMB == 0 {
			limits.MemoryMB = ceiling.MemoryMB
		}
		if limits.Timeout == 0 {
			limits.Timeout = ceiling.Timeout
		}
	}

	data := bundle.CreationData{
		Name:           name,
		Content:        content,
		Description:    in.Description,
		Parameters:     in.Parameters,
		OutputHandling: in.OutputHandling,
		Level:          level,
		Limits:         limits,
	}

	meta, report, err := bundle.CreateMetadata(data)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"name":       in.ActionName,
			"dialect":    dialect,
			"violations": len(report.Violations),
		}).Warn("plugin creation rejected")
		return CreateResult{}, err
	}

	b, err := bundle.Assemble(meta, data, "")
	if err != nil {
		return CreateResult{}, err
	}

	if err := s.stage(ctx, b); err != nil {
		return CreateResult{}, err
	}

	if err := s.store.Put(meta); err != nil {
		_ = os.RemoveAll(s.stagedPath(b))
		return CreateResult{}, err
	}
	s.holdBundle(b)

	warnings := make([]string, 0, len(report.Warnings))
	for _, w := range report.Warnings {
		warnings = append(warnings, w.Description)
	}

	s.log.WithFields(logrus.Fields{
		"plugin_id":  meta.Identity.ID,
		"dialect":    dialect,
		"risk_score": meta.RiskScore.Int(),
		"level":      meta.Level,
	}).Info("plugin created")

	return CreateResult{
		PluginID:      meta.Identity.ID.String(),
		Name:          meta.Identity.Name.String(),
		BundlePath:    s.stagedPath(b),
		ContentHash:   meta.ContentHash.String(),
		RiskScore:     meta.RiskScore.Int(),
		SecurityLevel: meta.Level.String(),
		CreatedAt:     meta.CreatedAt,
		Warnings:      warnings,
	}, nil
}

// stage materializes an assembled bundle under the staging root so the
// installation boundary can run its filesystem checks against it.
func (s *Service) stage(ctx context.Context, b bundle.Bundle) error {
	if err := ctx.Err(); err != nil {
		return operr.System("staging canceled", err)
	}

	dir := s.stagedPath(b)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return operr.System("creating staging directory", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), b.Manifest, 0o600); err != nil {
		return operr.System("writing staged manifest", err)
	}
	for _, f := range b.Scripts {
		if err := os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o600); err != nil {
			return operr.System("writing staged script", err)
		}
	}
	return nil
}
