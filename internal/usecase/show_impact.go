package usecase

import (
	"context"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// ShowImpactInput contains the parameters for the impact report.
type ShowImpactInput struct {
	TaskID string // Task ID (required)
}

// ShowImpactOutput describes what waits on a task and what it waits on.
// Fields are ordered to minimize memory padding.
type ShowImpactOutput struct {
	Blockers    []domain.TaskSnapshot `json:"blockers"`
	Factors     []engine.Factor       `json:"factors"`
	Impact      engine.Impact         `json:"impact"`
	Explanation string                `json:"explanation"`
	Task        domain.TaskSnapshot   `json:"task"`
}

// ShowImpact is the use case for reporting the transitive dependents of a task.
type ShowImpact struct {
	store domain.EntityStore
}

// NewShowImpact creates a new ShowImpact use case.
func NewShowImpact(store domain.EntityStore) *ShowImpact {
	return &ShowImpact{store: store}
}

// Execute computes the direct and indirect dependents of the task.
func (uc *ShowImpact) Execute(_ context.Context, in ShowImpactInput) (*ShowImpactOutput, error) {
	graph, err := shared.LoadGraph(uc.store)
	if err != nil {
		return nil, err
	}
	task, err := graph.Snapshot(in.TaskID)
	if err != nil {
		return nil, err
	}

	resolver := engine.NewResolver(graph)
	impact, err := resolver.ImpactedTasks(task.ID)
	if err != nil {
		return nil, err
	}
	blockers, err := resolver.BlockingTasks(task)
	if err != nil {
		return nil, err
	}
	explanation, factors := engine.ExplainDependencies(blockers, impact)

	return &ShowImpactOutput{
		Task:        task,
		Impact:      impact,
		Blockers:    blockers,
		Explanation: explanation,
		Factors:     factors,
	}, nil
}
