package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/contract"
	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/lifecycle"
	"github.com/macroforge/macroforge/operr"
)

// Remove transitions a plugin to Deleted and removes it from the
// registry permanently. Staged files are deleted when requested, with
// an optional backup taken first.
func (s *Service) Remove(ctx context.Context, in RemoveInput) (RemovalResult, error) {
	return contract.Run("remove_plugin", s.invariant, s.removePre, s.removePost, in,
		func(in RemoveInput) (RemovalResult, error) { return s.remove(ctx, in) })
}

func (s *Service) removePre(in RemoveInput) error {
	if err := s.checkRef(in.PluginID); err != nil {
		return err
	}

	meta, _, err := s.store.Get(identity.PluginID(in.PluginID))
	if err != nil {
		return operr.System("registry lookup", err)
	}
	if !lifecycle.CanTransition(meta.State, lifecycle.StateDeleted) {
		return operr.Newf(operr.KindInvalidStateTransition,
			"wait for the plugin to finish executing before removing it",
			"plugin %s in state %q cannot be deleted", in.PluginID, meta.State)
	}
	return nil
}

// removePost verifies the plugin is gone from both the registry and
// the held-bundle map.
func (s *Service) removePost(in RemoveInput, _ RemovalResult) error {
	id := identity.PluginID(in.PluginID)
	if _, ok, err := s.store.Get(id); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("plugin %s still registered after removal", id)
	}
	if _, held := s.heldBundle(id); held {
		return fmt.Errorf("plugin %s bundle still held after removal", id)
	}
	return nil
}

func (s *Service) remove(ctx context.Context, in RemoveInput) (RemovalResult, error) {
	if err := ctx.Err(); err != nil {
		return RemovalResult{}, operr.System("removal canceled", err)
	}

	id := identity.PluginID(in.PluginID)
	meta, _, err := s.store.Get(id)
	if err != nil {
		return RemovalResult{}, operr.System("registry lookup", err)
	}

	// The Deleted transition is validated (and would reject an
	// executing plugin) before anything is removed.
	err = s.store.Update(id, func(meta bundle.Metadata) (bundle.Metadata, error) {
		next, err := lifecycle.Transition(meta.State, lifecycle.StateDeleted)
		if err != nil {
			return meta, err
		}
		meta.State = next
		return meta, nil
	})
	if err != nil {
		return RemovalResult{}, err
	}

	result := RemovalResult{PluginID: in.PluginID}

	staged := s.stagedPathFor(meta.Identity.ID)
	if _, statErr := os.Stat(staged); statErr == nil {
		result.RemovedPath = staged

		if in.CreateBackup {
			backup := staged + ".backup-" + time.Now().UTC().Format("20060102T150405Z")
			if err := os.Rename(staged, backup); err == nil {
				result.BackupPath = backup
			} else if in.RemoveFiles {
				// Fall through to plain removal when no backup could
				// be taken.
				s.log.WithError(err).Warn("backup failed, removing without one")
			}
		}

		if in.RemoveFiles && result.BackupPath == "" {
			if err := os.RemoveAll(staged); err != nil {
				return RemovalResult{}, operr.System("removing staged bundle", err)
			}
			result.FilesRemoved = true
		}
	}

	if err := s.store.Delete(id); err != nil {
		return RemovalResult{}, err
	}
	s.dropBundle(id)

	s.log.WithFields(logrus.Fields{
		"plugin_id": id,
		"backup":    result.BackupPath,
	}).Info("plugin removed")
	return result, nil
}
