package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// Ensure Manager implements domain.ConfigManager.
var _ domain.ConfigManager = (*Manager)(nil)

const templateHeader = `# projex configuration
#
# Every key is optional. Missing keys keep their built-in default.
# Projects can override the [engine.*] sections through their settings.

`

// Manager manages configuration files.
type Manager struct {
	dataDir       string // Path to the .projex directory
	globalConfDir string // Path to global config directory (e.g., ~/.config/projex)
}

// NewManager creates a new Manager.
func NewManager(dataDir string) *Manager {
	return &Manager{
		dataDir:       dataDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewManagerWithGlobalDir creates a new Manager with a custom global config directory.
// This is useful for testing.
func NewManagerWithGlobalDir(dataDir, globalConfDir string) *Manager {
	return &Manager{
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
	}
}

// GetRepoConfigInfo returns information about the repository config file.
func (m *Manager) GetRepoConfigInfo() domain.ConfigInfo {
	return m.getConfigInfo(filepath.Join(m.dataDir, domain.ConfigFileName))
}

// GetGlobalConfigInfo returns information about the global config file.
func (m *Manager) GetGlobalConfigInfo() domain.ConfigInfo {
	if m.globalConfDir == "" {
		return domain.ConfigInfo{}
	}
	return m.getConfigInfo(filepath.Join(m.globalConfDir, domain.ConfigFileName))
}

// getConfigInfo reads a config file and returns its info.
func (m *Manager) getConfigInfo(path string) domain.ConfigInfo {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigInfo{Path: path}
	}
	return domain.ConfigInfo{
		Path:    path,
		Content: string(content),
		Exists:  true,
	}
}

// InitRepoConfig creates a repository config file with the default template.
func (m *Manager) InitRepoConfig() error {
	if err := os.MkdirAll(m.dataDir, 0o750); err != nil {
		return err
	}
	return m.initConfig(filepath.Join(m.dataDir, domain.ConfigFileName))
}

// InitGlobalConfig creates a global config file with the default template.
func (m *Manager) InitGlobalConfig() error {
	if m.globalConfDir == "" {
		return errors.New("global config directory not available")
	}
	if err := os.MkdirAll(m.globalConfDir, 0o700); err != nil {
		return err
	}
	return m.initConfig(filepath.Join(m.globalConfDir, domain.ConfigFileName))
}

// initConfig creates a config file with the default template.
func (m *Manager) initConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return domain.ErrConfigExists
	}
	content, err := RenderTemplate()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

// RenderTemplate renders the default configuration with every engine key spelled out.
func RenderTemplate() (string, error) {
	cfg := domain.NewDefaultConfig()
	cfg.Engine = overridesFrom(domain.NewDefaultEngineConfig())
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return templateHeader + string(data), nil
}

// overridesFrom turns a complete engine config into overrides that set every key.
func overridesFrom(c domain.EngineConfig) *domain.EngineOverrides {
	return &domain.EngineOverrides{
		Weights: &domain.WeightOverrides{
			Urgency:        &c.Weights.Urgency,
			Overdue:        &c.Weights.Overdue,
			ManualPriority: &c.Weights.ManualPriority,
			Dependencies:   &c.Weights.Dependencies,
			Completion:     &c.Weights.Completion,
			Workload:       &c.Weights.Workload,
		},
		Priority: &domain.PriorityOverrides{
			UrgencyDecay:   &c.Priority.UrgencyDecay,
			OverduePenalty: &c.Priority.OverduePenalty,
			WorkloadScale:  &c.Priority.WorkloadScale,
		},
		Workload: &domain.WorkloadOverrides{
			OverloadThreshold:      &c.Workload.OverloadThreshold,
			WarningThreshold:       &c.Workload.WarningThreshold,
			UnderutilizedThreshold: &c.Workload.UnderutilizedThreshold,
			DefaultWeeklyCapacity:  &c.Workload.DefaultWeeklyCapacity,
		},
		Estimation: &domain.EstimationOverrides{
			Method:              &c.Estimation.Method,
			FallbackMultiplier:  &c.Estimation.FallbackMultiplier,
			SimilarityThreshold: &c.Estimation.SimilarityThreshold,
			MinSamples:          &c.Estimation.MinSamples,
			DefaultMinutes:      &c.Estimation.DefaultMinutes,
			MaxHistory:          &c.Estimation.MaxHistory,
		},
		Duplication: &domain.DuplicationOverrides{
			SimilarityThreshold: &c.Duplication.SimilarityThreshold,
			MinTokens:           &c.Duplication.MinTokens,
		},
		Dependency: &domain.DependencyOverrides{
			MaxDepth: &c.Dependency.MaxDepth,
		},
	}
}
