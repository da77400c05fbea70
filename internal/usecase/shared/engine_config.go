package shared

import (
	"fmt"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// EngineConfigFor resolves the engine configuration for an optional project.
// An empty projectID yields the configuration without project settings.
func EngineConfigFor(loader domain.ConfigLoader, store domain.EntityStore, projectID string) (domain.EngineConfig, *domain.ProjectSnapshot, error) {
	var project *domain.ProjectSnapshot
	if projectID != "" {
		p, err := GetProjectSnapshot(store, projectID)
		if err != nil {
			return domain.EngineConfig{}, nil, err
		}
		project = p
	}
	cfg, err := loader.LoadEngineConfig(project)
	if err != nil {
		return domain.EngineConfig{}, nil, fmt.Errorf("load engine config: %w", err)
	}
	return cfg, project, nil
}
