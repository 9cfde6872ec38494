// Package service exposes the public pipeline operations: create,
// install, validate, remove and status. Every operation is wrapped in
// contract guards and returns a tagged operr error on failure; nothing
// panics past this boundary.
package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/install"
	"github.com/macroforge/macroforge/registry"
)

// Service owns the packaging pipeline. The registry store and the
// staged bundle map are the only mutable state; both are serialized so
// concurrent creations never race on id allocation.
type Service struct {
	store    registry.Store
	boundary *install.Boundary
	log      *logrus.Entry

	stagingRoot   string
	defaultTarget string

	mu      sync.RWMutex
	bundles map[identity.PluginID]bundle.Bundle
}

// Option configures a Service.
type Option func(*config)

type config struct {
	policy        install.Policy
	fs            install.FS
	log           *logrus.Entry
	stagingRoot   string
	defaultTarget string
}

// WithPolicy overrides the default installation policy.
func WithPolicy(p install.Policy) Option {
	return func(c *config) { c.policy = p }
}

// WithFS overrides the filesystem used by the installation boundary.
// Intended for tests.
func WithFS(fsys install.FS) Option {
	return func(c *config) { c.fs = fsys }
}

// WithLogger sets the structured logger. The default logs to the
// standard logrus logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *config) { c.log = log }
}

// WithStagingRoot sets the directory bundles are staged under after
// assembly.
func WithStagingRoot(dir string) Option {
	return func(c *config) { c.stagingRoot = dir }
}

// WithDefaultTarget sets the installation target used when a request
// names none.
func WithDefaultTarget(dir string) Option {
	return func(c *config) { c.defaultTarget = dir }
}

// New creates a Service over the given registry store.
func New(store registry.Store, opts ...Option) *Service {
	cfg := &config{
		policy:      install.DefaultPolicy(),
		fs:          install.OSFS{},
		log:         logrus.NewEntry(logrus.StandardLogger()),
		stagingRoot: filepath.Join(os.TempDir(), "macroforge-staging"),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Service{
		store:         store,
		boundary:      install.NewBoundary(cfg.policy, cfg.fs),
		log:           cfg.log.WithField("component", "service"),
		stagingRoot:   cfg.stagingRoot,
		defaultTarget: cfg.defaultTarget,
		bundles:       make(map[identity.PluginID]bundle.Bundle),
	}
}

// stagedPath returns the on-disk staging directory of a bundle.
func (s *Service) stagedPath(b bundle.Bundle) string {
	return s.stagedPathFor(b.Identity.ID)
}

// holdBundle retains an assembled bundle for later install/validate
// calls in this process.
func (s *Service) holdBundle(b bundle.Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[b.Identity.ID] = b
}

func (s *Service) heldBundle(id identity.PluginID) (bundle.Bundle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bundles[id]
	return b, ok
}

func (s *Service) dropBundle(id identity.PluginID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bundles, id)
}

// invariant is the system consistency check run before and after every
// guarded operation: every held bundle must belong to a registered
// plugin, and the registry must be countable.
func (s *Service) invariant() error {
	if _, err := s.store.Count(); err != nil {
		return fmt.Errorf("registry count: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.bundles {
		_, ok, err := s.store.Get(id)
		if err != nil {
			return fmt.Errorf("registry lookup for %s: %w", id, err)
		}
		if !ok {
			return fmt.Errorf("bundle %s held without a registry entry", id)
		}
	}
	return nil
}
