package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name     string
		envPath  string
		xdgHome  string
		expected string
	}{
		{
			name:     "XDG_CONFIG_HOME",
			xdgHome:  "/custom/config",
			expected: "/custom/config/reval/config.yaml",
		},
		{
			name:     "REVAL_CONFIG wins",
			envPath:  "/elsewhere/reval.yaml",
			xdgHome:  "/custom/config",
			expected: "/elsewhere/reval.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", tt.xdgHome)
			t.Setenv(ConfigPathEnv, tt.envPath)
			xdg.Reload()

			assert.Equal(t, tt.expected, ConfigPath())
		})
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.SerializeRequests())
	assert.True(t, cfg.ColorEnabled())
	assert.Equal(t, DefaultDebounce, cfg.WatchDebounce())
	assert.Zero(t, cfg.Dispatch.Timeout)
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name:    "empty file",
			content: "",
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.SerializeRequests())
			},
		},
		{
			name: "all keys",
			content: `dispatch:
  serialize: false
  timeout: 2s
watch:
  debounce: 50ms
  ignore: [dist, build]
notify:
  color: false
`,
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.SerializeRequests())
				assert.Equal(t, 2*time.Second, cfg.Dispatch.Timeout.Std())
				assert.Equal(t, 50*time.Millisecond, cfg.WatchDebounce())
				assert.Equal(t, []string{"dist", "build"}, cfg.Watch.Ignore)
				assert.False(t, cfg.ColorEnabled())
			},
		},
		{
			name:    "partial keeps defaults",
			content: "dispatch:\n  timeout: 500ms\n",
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.SerializeRequests())
				assert.Equal(t, 500*time.Millisecond, cfg.Dispatch.Timeout.Std())
				assert.Equal(t, DefaultDebounce, cfg.WatchDebounce())
			},
		},
		{
			name:    "bad duration",
			content: "dispatch:\n  timeout: soon\n",
			wantErr: true,
		},
		{
			name:    "not yaml",
			content: "dispatch: [unclosed\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			cfg, err := LoadFrom(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	off := false
	cfg.Dispatch.Serialize = &off
	cfg.Dispatch.Timeout = Duration(3 * time.Second)
	require.NoError(t, cfg.SaveTo(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.False(t, loaded.SerializeRequests())
	assert.Equal(t, 3*time.Second, loaded.Dispatch.Timeout.Std())
}
