package usecase

import (
	"context"
	"fmt"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// ShowConfigInput contains the input for the ShowConfig use case.
type ShowConfigInput struct {
	ProjectID string // Apply this project's settings to the effective engine config (optional)
}

// ShowConfigOutput contains the output of the ShowConfig use case.
type ShowConfigOutput struct {
	Engine       domain.EngineConfig // Effective engine configuration
	Warnings     []string            // Unknown keys found while loading
	GlobalConfig domain.ConfigInfo   // Global config file info
	RepoConfig   domain.ConfigInfo   // Repository config file info
	Store        domain.StoreConfig  // Effective store settings
}

// ShowConfig displays configuration file information and the effective engine configuration.
type ShowConfig struct {
	configManager domain.ConfigManager
	configLoader  domain.ConfigLoader
	store         domain.EntityStore
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(configManager domain.ConfigManager, configLoader domain.ConfigLoader, store domain.EntityStore) *ShowConfig {
	return &ShowConfig{
		configManager: configManager,
		configLoader:  configLoader,
		store:         store,
	}
}

// Execute retrieves configuration file information and resolves the engine configuration.
func (uc *ShowConfig) Execute(_ context.Context, in ShowConfigInput) (*ShowConfigOutput, error) {
	cfg, err := uc.configLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	engineCfg, _, err := shared.EngineConfigFor(uc.configLoader, uc.store, in.ProjectID)
	if err != nil {
		return nil, err
	}

	return &ShowConfigOutput{
		GlobalConfig: uc.configManager.GetGlobalConfigInfo(),
		RepoConfig:   uc.configManager.GetRepoConfigInfo(),
		Engine:       engineCfg,
		Store:        cfg.Store,
		Warnings:     cfg.Warnings,
	}, nil
}
