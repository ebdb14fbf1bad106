package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsEmptyFile(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.NotNil(t, f.Profiles)
	assert.Empty(t, f.Profiles)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	f := &File{
		Profiles: map[string]Profile{
			"prod": {HubURL: "https://koji.example.com/kojihub", AuthMethod: "ssl"},
		},
		DefaultProfile: "prod",
	}
	require.NoError(t, Save(path, f))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://koji.example.com/kojihub", loaded.Profiles["prod"].HubURL)
	assert.Equal(t, "prod", loaded.DefaultProfile)
}

func TestResolveOrder(t *testing.T) {
	t.Setenv("KOJI_HABITUDE_PROFILE", "")
	f := &File{
		Profiles: map[string]Profile{
			"default": {HubURL: "https://default"},
			"staging": {HubURL: "https://staging"},
		},
		DefaultProfile: "staging",
	}

	t.Run("flag wins", func(t *testing.T) {
		p, name, err := f.Resolve("default")
		require.NoError(t, err)
		assert.Equal(t, "default", name)
		assert.Equal(t, "https://default", p.HubURL)
	})

	t.Run("falls back to file default", func(t *testing.T) {
		p, name, err := f.Resolve("")
		require.NoError(t, err)
		assert.Equal(t, "staging", name)
		assert.Equal(t, "https://staging", p.HubURL)
	})

	t.Run("unknown profile errors", func(t *testing.T) {
		_, _, err := f.Resolve("nonexistent")
		assert.Error(t, err)
	})
}

func TestResolveLiteralDefaultFallback(t *testing.T) {
	t.Setenv("KOJI_HABITUDE_PROFILE", "")
	f := &File{Profiles: map[string]Profile{"default": {HubURL: "https://d"}}}
	p, name, err := f.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "default", name)
	assert.Equal(t, "https://d", p.HubURL)
}
