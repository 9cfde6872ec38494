package service

import (
	"context"
	"fmt"
	"time"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/contract"
	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/operr"
	"github.com/macroforge/macroforge/security"
)

// Validate re-checks a registered plugin's bundle and reports every
// defect found in one pass.
func (s *Service) Validate(ctx context.Context, in ValidateInput) (ValidationReport, error) {
	return contract.Run("validate_plugin", s.invariant, s.refPre(in.PluginID), validatePost, in,
		func(in ValidateInput) (ValidationReport, error) { return s.validate(ctx, in) })
}

// refPre builds the common precondition for operations referencing an
// existing plugin.
func (s *Service) refPre(pluginID string) contract.Pre[ValidateInput] {
	return func(ValidateInput) error {
		return s.checkRef(pluginID)
	}
}

// checkRef validates an externally supplied id and its registration.
func (s *Service) checkRef(pluginID string) error {
	id, err := identity.ParsePluginID(pluginID)
	if err != nil {
		return operr.Wrap(operr.KindValidation, "invalid plugin id",
			"pass the id returned by create_plugin", err)
	}
	_, ok, err := s.store.Get(id)
	if err != nil {
		return operr.System("registry lookup", err)
	}
	if !ok {
		return operr.NotFound(pluginID)
	}
	return nil
}

func validatePost(in ValidateInput, out ValidationReport) error {
	if out.PluginID != in.PluginID {
		return fmt.Errorf("report names plugin %q, request named %q", out.PluginID, in.PluginID)
	}
	if out.Valid && len(out.Issues) > 0 {
		return fmt.Errorf("report claims valid but lists %d issues", len(out.Issues))
	}
	return nil
}

func (s *Service) validate(ctx context.Context, in ValidateInput) (ValidationReport, error) {
	if err := ctx.Err(); err != nil {
		return ValidationReport{}, operr.System("validation canceled", err)
	}

	id := identity.PluginID(in.PluginID)
	meta, _, err := s.store.Get(id)
	if err != nil {
		return ValidationReport{}, operr.System("registry lookup", err)
	}

	report := ValidationReport{
		PluginID:  in.PluginID,
		RiskScore: meta.RiskScore.Int(),
		Bucket:    security.BucketOf(meta.RiskScore),
		Decision:  security.Advise(meta.RiskScore, security.Report{}).Decision,
		CheckedAt: time.Now().UTC(),
	}

	b, ok := s.heldBundle(id)
	if !ok {
		// The bundle was assembled by another process (or an earlier
		// one); recover it from the staging area before giving up.
		b, ok = s.reloadStaged(meta)
	}
	if !ok {
		report.Issues = append(report.Issues,
			"bundle content is not available in this process or staging area; only registry metadata was checked")
		report.Decision = security.DecisionManualApproval
		return report, nil
	}

	if in.Comprehensive {
		result := bundle.Validate(b)
		for _, issue := range result.Issues {
			report.Issues = append(report.Issues, issue.String())
		}
		report.Warnings = append(report.Warnings, result.Warnings...)
	}

	if in.SecurityScan {
		for _, f := range b.Scripts {
			content, err := identity.NewScriptContent(string(f.Data), meta.Dialect)
			if err != nil {
				report.Issues = append(report.Issues, fmt.Sprintf("script %s: %v", f.Name, err))
				continue
			}
			scan := security.Scan(content)
			score := security.Score(meta.Dialect, meta.Level, scan)
			advice := security.Advise(score, scan)
			report.RiskScore = score.Int()
			report.Bucket = advice.Bucket
			report.Decision = advice.Decision
			for _, v := range scan.Violations {
				report.Issues = append(report.Issues, fmt.Sprintf("security: %s: %s", v.Threat, v.Description))
			}
		}
	}

	report.Valid = len(report.Issues) == 0
	return report, nil
}
