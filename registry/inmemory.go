package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/operr"
)

// InMemory is the canonical registry: a mutex-guarded map owned by
// whoever constructs the service. It holds metadata for the process
// lifetime only.
type InMemory struct {
	mu      sync.RWMutex
	plugins map[identity.PluginID]bundle.Metadata
	history []HistoryEntry
}

// NewInMemory creates an empty in-memory registry.
func NewInMemory() *InMemory {
	return &InMemory{plugins: make(map[identity.PluginID]bundle.Metadata)}
}

func (r *InMemory) Put(meta bundle.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[meta.Identity.ID]; exists {
		return operr.Newf(operr.KindAlreadyExists,
			"plugin ids are unique; create a new plugin instead",
			"plugin %q is already registered", meta.Identity.ID)
	}
	r.plugins[meta.Identity.ID] = meta
	return nil
}

func (r *InMemory) Get(id identity.PluginID) (bundle.Metadata, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.plugins[id]
	return meta, ok, nil
}

func (r *InMemory) Update(id identity.PluginID, fn func(bundle.Metadata) (bundle.Metadata, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, ok := r.plugins[id]
	if !ok {
		return operr.NotFound(id.String())
	}
	updated, err := fn(meta)
	if err != nil {
		return err
	}
	if updated.Identity != meta.Identity {
		return fmt.Errorf("update must not change plugin identity")
	}
	r.plugins[id] = updated
	return nil
}

func (r *InMemory) Delete(id identity.PluginID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[id]; !ok {
		return operr.NotFound(id.String())
	}
	delete(r.plugins, id)
	return nil
}

func (r *InMemory) List() ([]bundle.Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]bundle.Metadata, 0, len(r.plugins))
	for _, meta := range r.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity.ID < out[j].Identity.ID
	})
	return out, nil
}

func (r *InMemory) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins), nil
}

func (r *InMemory) AppendHistory(entry HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, entry)
	return nil
}

func (r *InMemory) History() ([]HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]HistoryEntry, len(r.history))
	copy(out, r.history)
	return out, nil
}

func (r *InMemory) Close() error {
	return nil
}
