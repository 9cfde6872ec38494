package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/lifecycle"
	"github.com/macroforge/macroforge/operr"
)

func testMeta(t *testing.T, name string) bundle.Metadata {
	t.Helper()
	n, err := identity.NewPluginName(name)
	require.NoError(t, err)
	content, err := identity.NewScriptContent("echo "+n.Clean(), identity.DialectShell)
	require.NoError(t, err)
	meta, _, err := bundle.CreateMetadata(bundle.CreationData{Name: n, Content: content})
	require.NoError(t, err)
	return meta
}

// stores builds each Store implementation against the same test body,
// so both stay contract-equivalent.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	b, err := OpenBolt(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	return map[string]Store{
		"inmemory": NewInMemory(),
		"bolt":     b,
	}
}

func TestStore_PutGet(t *testing.T) {
	for impl, store := range stores(t) {
		t.Run(impl, func(t *testing.T) {
			meta := testMeta(t, "Stored")
			require.NoError(t, store.Put(meta))

			got, ok, err := store.Get(meta.Identity.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, meta.Identity, got.Identity)
			assert.Equal(t, meta.ContentHash, got.ContentHash)
			assert.Equal(t, meta.State, got.State)

			// Duplicate registration is a collision, not an upsert.
			err = store.Put(meta)
			require.Error(t, err)
			assert.Equal(t, operr.KindAlreadyExists, operr.KindOf(err))
		})
	}
}

func TestStore_GetUnknown(t *testing.T) {
	for impl, store := range stores(t) {
		t.Run(impl, func(t *testing.T) {
			_, ok, err := store.Get("mcp_plugin_ghost_1_00000000")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_Update(t *testing.T) {
	for impl, store := range stores(t) {
		t.Run(impl, func(t *testing.T) {
			meta := testMeta(t, "Updated")
			require.NoError(t, store.Put(meta))

			err := store.Update(meta.Identity.ID, func(m bundle.Metadata) (bundle.Metadata, error) {
				next, err := lifecycle.Transition(m.State, lifecycle.StateDisabled)
				if err != nil {
					return m, err
				}
				m.State = next
				return m, nil
			})
			require.NoError(t, err)

			got, ok, err := store.Get(meta.Identity.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, lifecycle.StateDisabled, got.State)
		})
	}
}

func TestStore_UpdateRejectsIdentityChange(t *testing.T) {
	for impl, store := range stores(t) {
		t.Run(impl, func(t *testing.T) {
			meta := testMeta(t, "Immutable")
			require.NoError(t, store.Put(meta))

			err := store.Update(meta.Identity.ID, func(m bundle.Metadata) (bundle.Metadata, error) {
				m.Identity.Name = "renamed"
				return m, nil
			})
			require.Error(t, err)

			got, _, err := store.Get(meta.Identity.ID)
			require.NoError(t, err)
			assert.Equal(t, meta.Identity, got.Identity, "failed update must not persist")
		})
	}
}

func TestStore_UpdateErrorPersistsNothing(t *testing.T) {
	for impl, store := range stores(t) {
		t.Run(impl, func(t *testing.T) {
			meta := testMeta(t, "Untouched")
			require.NoError(t, store.Put(meta))

			err := store.Update(meta.Identity.ID, func(m bundle.Metadata) (bundle.Metadata, error) {
				m.State = lifecycle.StateDeleted
				return m, assert.AnError
			})
			require.Error(t, err)

			got, _, err := store.Get(meta.Identity.ID)
			require.NoError(t, err)
			assert.Equal(t, meta.State, got.State)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for impl, store := range stores(t) {
		t.Run(impl, func(t *testing.T) {
			meta := testMeta(t, "Doomed")
			require.NoError(t, store.Put(meta))
			require.NoError(t, store.Delete(meta.Identity.ID))

			_, ok, err := store.Get(meta.Identity.ID)
			require.NoError(t, err)
			assert.False(t, ok)

			err = store.Delete(meta.Identity.ID)
			require.Error(t, err)
			assert.Equal(t, operr.KindNotFound, operr.KindOf(err))
		})
	}
}

func TestStore_ListAndCount(t *testing.T) {
	for impl, store := range stores(t) {
		t.Run(impl, func(t *testing.T) {
			first := testMeta(t, "Alpha")
			second := testMeta(t, "Beta")
			require.NoError(t, store.Put(first))
			require.NoError(t, store.Put(second))

			n, err := store.Count()
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			listed, err := store.List()
			require.NoError(t, err)
			require.Len(t, listed, 2)
			assert.LessOrEqual(t, listed[0].Identity.ID, listed[1].Identity.ID, "list must be id-ordered")
		})
	}
}

func TestStore_History(t *testing.T) {
	for impl, store := range stores(t) {
		t.Run(impl, func(t *testing.T) {
			entries := []HistoryEntry{
				{PluginID: "mcp_plugin_a_1_00000001", Path: "/Users/me/plugins/a.kmsync", At: time.Now().UTC()},
				{PluginID: "mcp_plugin_b_1_00000002", Path: "/Users/me/plugins/b.kmsync", At: time.Now().UTC()},
			}
			for _, e := range entries {
				require.NoError(t, store.AppendHistory(e))
			}

			got, err := store.History()
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, entries[0].PluginID, got[0].PluginID, "history must keep append order")
			assert.Equal(t, entries[1].PluginID, got[1].PluginID)
		})
	}
}
