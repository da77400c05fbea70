package domain

import "path/filepath"

// ConfigFileName is the name of the configuration file in both the data and global dirs.
const ConfigFileName = "config.toml"

// Store backends.
const (
	StoreJSON   = "json"
	StoreGit    = "git"
	StoreSQLite = "sqlite"
)

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Engine   *EngineOverrides `toml:"engine,omitempty"` // [engine.*] sections, applied over engine defaults
	Warnings []string         `toml:"-"`
	Store    StoreConfig      `toml:"store"`
	Log      LogConfig        `toml:"log"`
}

// StoreConfig holds persistence settings from the [store] section.
type StoreConfig struct {
	Backend   string `toml:"backend,omitempty"`   // "json" (default), "git" or "sqlite"
	Namespace string `toml:"namespace,omitempty"` // Git ref namespace (default: "projex")
	Path      string `toml:"path,omitempty"`      // Store file for json/sqlite (default: inside the data dir)
}

// LogConfig holds logging settings from the [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // Log level: debug, info, warn, error
}

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:   StoreJSON,
			Namespace: "projex",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ResolveEngine returns the engine configuration for an optional project:
// defaults, then the [engine] sections, then the project's settings.
func (c *Config) ResolveEngine(project *ProjectSnapshot) EngineConfig {
	cfg := NewDefaultEngineConfig()
	if c != nil {
		cfg = c.Engine.Apply(cfg)
	}
	if project != nil {
		cfg = project.Settings.Apply(cfg)
	}
	return cfg
}

// StorePath returns the configured store file, or the backend default under dataDir.
func (c *Config) StorePath(dataDir string) string {
	if c.Store.Path != "" {
		if filepath.IsAbs(c.Store.Path) {
			return c.Store.Path
		}
		return filepath.Join(dataDir, c.Store.Path)
	}
	if c.Store.Backend == StoreSQLite {
		return filepath.Join(dataDir, "projex.db")
	}
	return filepath.Join(dataDir, "store.json")
}
