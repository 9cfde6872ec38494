package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/contract"
	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/install"
	"github.com/macroforge/macroforge/lifecycle"
	"github.com/macroforge/macroforge/operr"
	"github.com/macroforge/macroforge/registry"
)

// Install gates an installation request and, when every boundary check
// passes, returns the precomputed plan and records the installation.
// The plan's rollback steps exist before any mutation: the executor
// runs them in order if a step fails partway.
func (s *Service) Install(ctx context.Context, in InstallInput) (InstallResult, error) {
	return contract.Run("install_plugin", s.invariant, s.installPre, installPost, in,
		func(in InstallInput) (InstallResult, error) { return s.install(ctx, in) })
}

// installPre checks the reference and the target lifecycle state.
func (s *Service) installPre(in InstallInput) error {
	id, err := identity.ParsePluginID(in.PluginID)
	if err != nil {
		return operr.Wrap(operr.KindValidation, "invalid plugin id",
			"pass the id returned by create_plugin", err)
	}

	meta, ok, err := s.store.Get(id)
	if err != nil {
		return operr.System("registry lookup", err)
	}
	if !ok {
		return operr.NotFound(in.PluginID)
	}
	if !lifecycle.CanTransition(meta.State, lifecycle.StateDisabled) {
		return operr.Newf(operr.KindInvalidStateTransition,
			"only freshly created or re-enabled plugins can be installed",
			"plugin %s in state %q cannot be installed", id, meta.State)
	}
	return nil
}

// installPost verifies the install contract: a success implies a plan
// whose rollback is non-empty and mirrors the forward steps.
func installPost(in InstallInput, out InstallResult) error {
	if out.PluginID != in.PluginID {
		return fmt.Errorf("result names plugin %q, request named %q", out.PluginID, in.PluginID)
	}
	if len(out.Plan.Steps) == 0 {
		return fmt.Errorf("installation plan has no steps")
	}
	if len(out.Plan.RollbackSteps) == 0 {
		return fmt.Errorf("installation plan has no rollback steps")
	}
	return nil
}

func (s *Service) install(ctx context.Context, in InstallInput) (InstallResult, error) {
	if err := ctx.Err(); err != nil {
		return InstallResult{}, operr.System("installation canceled", err)
	}

	id := identity.PluginID(in.PluginID)
	b, ok := s.heldBundle(id)
	if !ok {
		if meta, found, err := s.store.Get(id); err == nil && found {
			b, ok = s.reloadStaged(meta)
		}
	}
	if !ok {
		return InstallResult{}, operr.New(operr.KindSystem,
			"bundle content is not available in this process or staging area",
			"recreate the plugin and retry the installation")
	}

	if result := bundle.Validate(b); !result.Valid() {
		issues := make([]string, len(result.Issues))
		for i, issue := range result.Issues {
			issues[i] = issue.String()
		}
		return InstallResult{}, operr.Security("bundle failed revalidation before install", issues)
	}

	target := in.TargetDirectory
	if target == "" {
		target = s.defaultTarget
	}

	plan, err := s.boundary.Plan(b, install.Request{
		SourcePath:      s.stagedPath(b),
		TargetDirectory: target,
		Force:           in.ForceInstall,
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"plugin_id": id,
			"target":    target,
		}).WithError(err).Warn("installation denied")
		return InstallResult{}, err
	}

	// Installed-but-not-enabled is represented as Disabled; enabling
	// is the host's explicit follow-up.
	var state lifecycle.State
	err = s.store.Update(id, func(meta bundle.Metadata) (bundle.Metadata, error) {
		next, err := lifecycle.Transition(meta.State, lifecycle.StateDisabled)
		if err != nil {
			return meta, err
		}
		meta.State = next
		state = next
		return meta, nil
	})
	if err != nil {
		return InstallResult{}, err
	}

	if err := s.store.AppendHistory(registry.HistoryEntry{
		PluginID: id,
		Path:     target,
		At:       time.Now().UTC(),
	}); err != nil {
		return InstallResult{}, operr.System("recording installation history", err)
	}

	s.log.WithFields(logrus.Fields{
		"plugin_id": id,
		"target":    target,
		"steps":     len(plan.Steps),
	}).Info("installation planned")

	return InstallResult{
		PluginID:      in.PluginID,
		InstalledPath: target,
		Plan:          plan,
		State:         state,
		Warnings:      plan.Warnings,
	}, nil
}
