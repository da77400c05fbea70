// Package config provides configuration loading functionality.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	dataDir       string // Path to the .projex directory
	globalConfDir string // Path to global config directory (e.g., ~/.config/projex)
}

// NewLoader creates a new Loader.
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(dataDir, globalConfDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalDataDir(configHome)
}

// Load returns the merged configuration.
// Precedence: defaults, then the global file, then the repository file.
func (l *Loader) Load() (*domain.Config, error) {
	global, err := l.LoadGlobal()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	repo, err := l.LoadRepo()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	base := domain.NewDefaultConfig()
	if global != nil {
		base = mergeConfigs(base, global)
	}
	if repo != nil {
		base = mergeConfigs(base, repo)
	}
	if err := validate(base); err != nil {
		return nil, err
	}
	return base, nil
}

// LoadEngineConfig returns the engine configuration with project settings applied last.
func (l *Loader) LoadEngineConfig(project *domain.ProjectSnapshot) (domain.EngineConfig, error) {
	cfg, err := l.Load()
	if err != nil {
		return domain.EngineConfig{}, err
	}
	return cfg.ResolveEngine(project), nil
}

// LoadGlobal returns only the global configuration.
func (l *Loader) LoadGlobal() (*domain.Config, error) {
	if l.globalConfDir == "" {
		return nil, os.ErrNotExist
	}
	return l.loadFile(filepath.Join(l.globalConfDir, domain.ConfigFileName))
}

// LoadRepo returns only the repository configuration.
func (l *Loader) LoadRepo() (*domain.Config, error) {
	return l.loadFile(filepath.Join(l.dataDir, domain.ConfigFileName))
}

// loadFile decodes a configuration file. Unknown keys do not fail the load;
// they are reported as warnings on the returned config.
func (l *Loader) loadFile(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg domain.Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err = dec.Decode(&cfg)

	var strict *toml.StrictMissingError
	switch {
	case err == nil:
	case errors.As(err, &strict):
		cfg = domain.Config{}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.Warnings = unknownKeyWarnings(path, strict)
	default:
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// unknownKeyWarnings renders one sorted warning per unknown key.
func unknownKeyWarnings(path string, strict *toml.StrictMissingError) []string {
	warnings := make([]string, 0, len(strict.Errors))
	for _, e := range strict.Errors {
		key := e.Key()
		if len(key) == 0 {
			continue
		}
		if len(key) == 1 {
			warnings = append(warnings, fmt.Sprintf("%s: unknown key: %s", path, key[0]))
			continue
		}
		section := strings.Join(key[:len(key)-1], ".")
		warnings = append(warnings, fmt.Sprintf("%s: unknown key in [%s]: %s", path, section, key[len(key)-1]))
	}
	sort.Strings(warnings)
	return warnings
}

// mergeConfigs merges two configs, with override taking precedence.
func mergeConfigs(base, override *domain.Config) *domain.Config {
	result := &domain.Config{
		Engine:   base.Engine.Merge(override.Engine),
		Store:    base.Store,
		Log:      base.Log,
		Warnings: append(append([]string{}, base.Warnings...), override.Warnings...),
	}

	if override.Store.Backend != "" {
		result.Store.Backend = override.Store.Backend
	}
	if override.Store.Namespace != "" {
		result.Store.Namespace = override.Store.Namespace
	}
	if override.Store.Path != "" {
		result.Store.Path = override.Store.Path
	}
	if override.Log.Level != "" {
		result.Log.Level = override.Log.Level
	}
	return result
}

// validate rejects values no component could work with.
func validate(cfg *domain.Config) error {
	switch cfg.Store.Backend {
	case domain.StoreJSON, domain.StoreGit, domain.StoreSQLite:
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownStore, cfg.Store.Backend)
	}
	if cfg.Engine != nil && cfg.Engine.Estimation != nil && cfg.Engine.Estimation.Method != nil {
		if m := *cfg.Engine.Estimation.Method; !m.IsValid() {
			return fmt.Errorf("invalid estimation method %q", m)
		}
	}
	return nil
}
