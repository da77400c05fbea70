package usecase

import (
	"context"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// ShowGraphInput contains the parameters for the dependency graph view.
type ShowGraphInput struct {
	TaskID   string // Root task (required)
	MaxDepth int    // Hops to expand (0 = configured max depth)
}

// ShowGraphOutput is the bounded neighbourhood of the root task.
type ShowGraphOutput struct {
	Graph    engine.Graph        `json:"graph"`
	Task     domain.TaskSnapshot `json:"task"`
	MaxDepth int                 `json:"maxDepth"` // Depth actually used
}

// ShowGraph is the use case for walking a task's dependencies and dependents.
type ShowGraph struct {
	store  domain.EntityStore
	config domain.ConfigLoader
}

// NewShowGraph creates a new ShowGraph use case.
func NewShowGraph(store domain.EntityStore, config domain.ConfigLoader) *ShowGraph {
	return &ShowGraph{store: store, config: config}
}

// Execute expands the graph around the task up to the requested depth.
func (uc *ShowGraph) Execute(_ context.Context, in ShowGraphInput) (*ShowGraphOutput, error) {
	graph, err := shared.LoadGraph(uc.store)
	if err != nil {
		return nil, err
	}
	task, err := graph.Snapshot(in.TaskID)
	if err != nil {
		return nil, err
	}

	depth := in.MaxDepth
	if depth <= 0 {
		projectID := ""
		if task.ProjectID != nil {
			projectID = *task.ProjectID
		}
		cfg, _, err := shared.EngineConfigFor(uc.config, uc.store, projectID)
		if err != nil {
			return nil, err
		}
		depth = cfg.Dependency.MaxDepth
	}
	if depth <= 0 {
		depth = engine.DefaultMaxDepth
	}

	g, err := engine.NewResolver(graph).DependencyGraph(task.ID, depth)
	if err != nil {
		return nil, err
	}
	return &ShowGraphOutput{Task: task, Graph: g, MaxDepth: depth}, nil
}
