package registry

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"

	"github.com/macroforge/macroforge/bundle"
	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/operr"
)

var (
	bucketPlugins = []byte("plugins")
	bucketHistory = []byte("history")
)

// Bolt is a durable Store for hosts that want registered plugins to
// survive restarts. It satisfies the same contract as InMemory; the
// core pipeline does not know which one it is running on.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) a BoltDB-backed registry at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketPlugins, bucketHistory} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("creating bucket %q: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (r *Bolt) Put(meta bundle.Metadata) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPlugins)
		key := []byte(meta.Identity.ID)
		if b.Get(key) != nil {
			return operr.Newf(operr.KindAlreadyExists,
				"plugin ids are unique; create a new plugin instead",
				"plugin %q is already registered", meta.Identity.ID)
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		return b.Put(key, data)
	})
}

func (r *Bolt) Get(id identity.PluginID) (bundle.Metadata, bool, error) {
	var meta bundle.Metadata
	var found bool
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPlugins).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &meta)
	})
	return meta, found, err
}

func (r *Bolt) Update(id identity.PluginID, fn func(bundle.Metadata) (bundle.Metadata, error)) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPlugins)
		data := b.Get([]byte(id))
		if data == nil {
			return operr.NotFound(id.String())
		}
		var meta bundle.Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("decoding metadata: %w", err)
		}
		updated, err := fn(meta)
		if err != nil {
			return err
		}
		if updated.Identity != meta.Identity {
			return fmt.Errorf("update must not change plugin identity")
		}
		out, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		return b.Put([]byte(id), out)
	})
}

func (r *Bolt) Delete(id identity.PluginID) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPlugins)
		if b.Get([]byte(id)) == nil {
			return operr.NotFound(id.String())
		}
		return b.Delete([]byte(id))
	})
}

func (r *Bolt) List() ([]bundle.Metadata, error) {
	var out []bundle.Metadata
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlugins).ForEach(func(_, v []byte) error {
			var meta bundle.Metadata
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("decoding metadata: %w", err)
			}
			out = append(out, meta)
			return nil
		})
	})
	return out, err
}

func (r *Bolt) Count() (int, error) {
	var n int
	err := r.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketPlugins).Stats().KeyN
		return nil
	})
	return n, err
}

func (r *Bolt) AppendHistory(entry HistoryEntry) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encoding history entry: %w", err)
		}
		return b.Put(key, data)
	})
}

func (r *Bolt) History() ([]HistoryEntry, error) {
	var out []HistoryEntry
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHistory).ForEach(func(_, v []byte) error {
			var entry HistoryEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decoding history entry: %w", err)
			}
			out = append(out, entry)
			return nil
		})
	})
	return out, err
}

func (r *Bolt) Close() error {
	return r.db.Close()
}
