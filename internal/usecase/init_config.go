package usecase

import (
	"context"
	"fmt"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// Config file scopes reported by InitConfig.
const (
	ScopeRepository = "repository"
	ScopeGlobal     = "global"
)

// InitConfigInput selects which config file to create.
type InitConfigInput struct {
	Global bool // $XDG_CONFIG_HOME/projex/config.toml instead of .projex/config.toml
}

// InitConfigOutput reports the file written.
type InitConfigOutput struct {
	Path  string `json:"path"`
	Scope string `json:"scope"`
}

// InitConfig writes a config file holding every engine default, ready to be edited.
type InitConfig struct {
	configManager domain.ConfigManager
}

// NewInitConfig creates a new InitConfig use case.
func NewInitConfig(configManager domain.ConfigManager) *InitConfig {
	return &InitConfig{configManager: configManager}
}

// Execute creates the file. It fails with domain.ErrConfigExists rather than overwrite.
func (uc *InitConfig) Execute(_ context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	scope, info, create := ScopeRepository, uc.configManager.GetRepoConfigInfo(), uc.configManager.InitRepoConfig
	if in.Global {
		scope, info, create = ScopeGlobal, uc.configManager.GetGlobalConfigInfo(), uc.configManager.InitGlobalConfig
	}
	if err := create(); err != nil {
		return nil, fmt.Errorf("init %s config: %w", scope, err)
	}
	return &InitConfigOutput{Path: info.Path, Scope: scope}, nil
}
