package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, int64(DefaultMaxBundleBytes), p.MaxBundleBytes)
	assert.Contains(t, p.ProtectedPaths, "/System")
	assert.Contains(t, p.ProtectedSegments, "Library/LaunchAgents")
	assert.Contains(t, p.AllowedExtensions, ".kmsync")
}

func TestLoadPolicy(t *testing.T) {
	t.Run("partial file overrides only what it names", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_bundle_bytes: 1024\n"), 0o600))

		p, err := LoadPolicy(path)
		require.NoError(t, err)
		assert.Equal(t, int64(1024), p.MaxBundleBytes)
		assert.Equal(t, DefaultPolicy().ProtectedPaths, p.ProtectedPaths)
	})

	t.Run("explicit protected paths replace the defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("protected_paths:\n  - /opt/locked\n"), 0o600))

		p, err := LoadPolicy(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"/opt/locked"}, p.ProtectedPaths)
	})

	t.Run("non-positive size cap falls back to the default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_bundle_bytes: 0\n"), 0o600))

		p, err := LoadPolicy(path)
		require.NoError(t, err)
		assert.Equal(t, int64(DefaultMaxBundleBytes), p.MaxBundleBytes)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{{not yaml"), 0o600))

		_, err := LoadPolicy(path)
		assert.Error(t, err)
	})
}
