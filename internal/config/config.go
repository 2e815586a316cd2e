package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"reval/internal/errors"
	"reval/internal/logging"
	"reval/pkg/fileops"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const APP_NAME = "reval" // application name used for config directory

// ConfigPathEnv overrides the settings file location.
const ConfigPathEnv = "REVAL_CONFIG"

const DefaultDebounce = 300 * time.Millisecond

// Duration is a time.Duration read from strings like "2s" or "150ms".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return errors.Wrap(err, "duration must be a string")
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.WithHintf(errors.Wrapf(err, "invalid duration %q", s), "Use Go duration syntax, e.g. %q.", "500ms")
	}
	*d = Duration(v)
	return nil
}

// Config holds user settings for reval. Project addressing lives in
// .revalrc; this file only tunes client behavior.
type Config struct {
	Dispatch DispatchConfig `yaml:"dispatch"`
	Watch    WatchConfig    `yaml:"watch"`
	Notify   NotifyConfig   `yaml:"notify"`
}

type DispatchConfig struct {
	// Serialize keeps at most one request in flight.
	Serialize *bool `yaml:"serialize,omitempty"`
	// Timeout bounds each request. Zero means no timeout.
	Timeout Duration `yaml:"timeout,omitempty"`
}

type WatchConfig struct {
	Debounce Duration `yaml:"debounce,omitempty"`
	// Ignore lists extra base names the watcher skips.
	Ignore []string `yaml:"ignore,omitempty"`
}

type NotifyConfig struct {
	Color *bool `yaml:"color,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	serialize, color := true, true
	return Config{
		Dispatch: DispatchConfig{Serialize: &serialize},
		Watch:    WatchConfig{Debounce: Duration(DefaultDebounce)},
		Notify:   NotifyConfig{Color: &color},
	}
}

func (c *Config) SerializeRequests() bool {
	return c.Dispatch.Serialize == nil || *c.Dispatch.Serialize
}

func (c *Config) ColorEnabled() bool {
	return c.Notify.Color == nil || *c.Notify.Color
}

func (c *Config) WatchDebounce() time.Duration {
	if c.Watch.Debounce <= 0 {
		return DefaultDebounce
	}
	return c.Watch.Debounce.Std()
}

// ConfigPath returns the settings file path, honoring REVAL_CONFIG.
func ConfigPath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		logging.Debug("Using config path from environment", "path", p)
		return fileops.ExpandPath(p)
	}
	configPath := filepath.Join(xdg.ConfigHome, APP_NAME, "config.yaml")
	logging.Debug("Determined config path", "path", configPath)
	return configPath
}

// FindConfigFile returns the path to the config file, and whether it exists.
func FindConfigFile() (string, bool) {
	path := ConfigPath()
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path, true
	}
	return path, false
}

// Load reads settings from the standard location. A missing file yields
// defaults.
func Load() (*Config, error) {
	path, exists := FindConfigFile()
	if !exists {
		logging.Debug("No config file, using defaults", "path", path)
		cfg := DefaultConfig()
		return &cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads settings from path. Keys absent from the file keep their
// default values.
func LoadFrom(path string) (*Config, error) {
	logging.Debug("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		// An empty file decodes to io.EOF; treat it as all defaults.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, errors.WithDetailf(errors.Wrap(err, "failed to parse config file"), "path: %s", path)
	}

	logging.Debug("Loaded config", "serialize", cfg.SerializeRequests(), "timeout", cfg.Dispatch.Timeout.Std())
	return &cfg, nil
}

// SaveTo writes the config to path, replacing any existing file atomically.
func (c *Config) SaveTo(path string) error {
	if err := fileops.EnsureDirectoryExists(filepath.Dir(path)); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	err := fileops.AtomicWrite(path, 0o600, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	return nil
}
