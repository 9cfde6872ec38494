package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/identity"
)

// stagedPathFor derives the staging directory of a plugin's bundle
// from registry metadata alone, so staged content can be recovered
// even when the in-process bundle was lost. Staging is keyed by the
// unique plugin id, never the display name: same-named plugins must
// not share a staging directory. The installed bundle still lands at
// <clean-name>.kmsync inside its target.
func (s *Service) stagedPathFor(id identity.PluginID) string {
	return filepath.Join(s.stagingRoot, id.String()+bundle.BundleSuffix)
}

// reloadStaged rebuilds a plugin's bundle from its staging directory
// and registry metadata. It returns false when the staging area no
// longer holds the bundle or what it holds cannot be reconciled.
func (s *Service) reloadStaged(meta bundle.Metadata) (bundle.Bundle, bool) {
	dir := s.stagedPathFor(meta.Identity.ID)
	manifest, scripts, err := loadStaged(dir)
	if err != nil {
		s.log.WithError(err).WithField("plugin_id", meta.Identity.ID).
			Debug("staged bundle not recoverable")
		return bundle.Bundle{}, false
	}
	if manifest.BundleIdentifier != meta.Identity.ID.BundleIdentifier() {
		s.log.WithFields(logrus.Fields{
			"plugin_id": meta.Identity.ID,
			"staged":    manifest.BundleIdentifier,
		}).Warn("staged manifest names a different plugin")
		return bundle.Bundle{}, false
	}
	if manifest.ContentHash != "" {
		// The hash string is external input read back from disk; it
		// is parsed, never trusted.
		h, err := identity.ParseSecurityHash(manifest.ContentHash)
		if err != nil || h != meta.ContentHash {
			s.log.WithField("plugin_id", meta.Identity.ID).
				Warn("staged manifest hash does not match the registered content hash")
			return bundle.Bundle{}, false
		}
	}

	raw, err := bundle.GenerateManifest(meta)
	if err != nil {
		return bundle.Bundle{}, false
	}
	path, err := identity.NewPluginPath(meta.Identity.Name.Clean() + bundle.BundleSuffix)
	if err != nil {
		return bundle.Bundle{}, false
	}
	b := bundle.Bundle{
		Identity:   meta.Identity,
		BundlePath: path,
		Manifest:   raw,
		Scripts:    scripts,
		Metadata:   meta,
		Security:   bundle.SecurityContext(meta),
	}
	s.holdBundle(b)
	return b, true
}

// loadStaged reads a staged bundle directory back into memory: the
// manifest plus every script file alongside it.
func loadStaged(dir string) (bundle.Manifest, []bundle.ScriptFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return bundle.Manifest{}, nil, fmt.Errorf("accessing staged bundle: %w", err)
	}
	if !info.IsDir() {
		return bundle.Manifest{}, nil, fmt.Errorf("staged bundle %s is not a directory", dir)
	}

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return bundle.Manifest{}, nil, fmt.Errorf("reading staged manifest: %w", err)
	}
	manifest, err := bundle.ParseManifest(data)
	if err != nil {
		return bundle.Manifest{}, nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return bundle.Manifest{}, nil, fmt.Errorf("listing staged bundle: %w", err)
	}

	var scripts []bundle.ScriptFile
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == "manifest.json" {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return bundle.Manifest{}, nil, fmt.Errorf("reading staged script %s: %w", entry.Name(), err)
		}
		scripts = append(scripts, bundle.ScriptFile{Name: entry.Name(), Data: content})
	}
	return manifest, scripts, nil
}
