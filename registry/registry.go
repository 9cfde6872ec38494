// Package registry owns plugin metadata for the lifetime of a
// process. The canonical implementation is in-memory; a BoltDB-backed
// store is available behind the same interface for hosts that want
// metadata to survive restarts. All implementations serialize writes,
// because concurrent creations must not race on id allocation.
package registry

import (
	"time"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/identity"
)

// HistoryEntry records one completed installation. The history is
// append-only.
type HistoryEntry struct {
	PluginID identity.PluginID `json:"plugin_id"`
	Path     string            `json:"path"`
	At       time.Time         `json:"at"`
}

// Store is the metadata registry contract. Get returns ok=false for
// unknown ids rather than an error, so callers decide how absence is
// reported at their boundary.
type Store interface {
	Put(meta bundle.Metadata) error
	Get(id identity.PluginID) (bundle.Metadata, bool, error)
	// Update applies fn to the stored metadata under the store's write
	// lock. If fn errors, nothing is persisted.
	Update(id identity.PluginID, fn func(bundle.Metadata) (bundle.Metadata, error)) error
	// Delete removes the plugin permanently.
	Delete(id identity.PluginID) error
	List() ([]bundle.Metadata, error)
	Count() (int, error)
	AppendHistory(entry HistoryEntry) error
	History() ([]HistoryEntry, error)
	Close() error
}
