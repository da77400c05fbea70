package usecase

import (
	"context"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// ShowTaskInput contains the parameters for showing a task.
type ShowTaskInput struct {
	TaskID string // Task ID (required)
}

// ShowTaskOutput contains the result of showing a task.
// Fields are ordered to minimize memory padding.
type ShowTaskOutput struct {
	Record     *domain.TaskRecord    `json:"record"`     // The persisted task, including its description
	Blockers   []domain.TaskSnapshot `json:"blockers"`   // Incomplete dependencies
	Dependents []string              `json:"dependents"` // Tasks depending directly on this one
	Task       domain.TaskSnapshot   `json:"task"`       // Normalized task
	Blocked    bool                  `json:"blocked"`    // Whether any dependency is incomplete
}

// ShowTask is the use case for displaying task details.
type ShowTask struct {
	store domain.EntityStore
}

// NewShowTask creates a new ShowTask use case.
func NewShowTask(store domain.EntityStore) *ShowTask {
	return &ShowTask{store: store}
}

// Execute retrieves the task with its blocked state and direct dependents.
func (uc *ShowTask) Execute(_ context.Context, in ShowTaskInput) (*ShowTaskOutput, error) {
	rec, err := shared.GetTask(uc.store, in.TaskID)
	if err != nil {
		return nil, err
	}
	task, err := domain.ToTaskSnapshot(rec)
	if err != nil {
		return nil, err
	}

	graph, err := shared.LoadGraph(uc.store)
	if err != nil {
		return nil, err
	}
	resolver := engine.NewResolver(graph)
	blockers, err := resolver.BlockingTasks(task)
	if err != nil {
		return nil, err
	}
	dependents, err := graph.DependentsOf(task.ID)
	if err != nil {
		return nil, err
	}

	return &ShowTaskOutput{
		Record:     rec,
		Task:       task,
		Blocked:    engine.IsBlockedBy(blockers),
		Blockers:   blockers,
		Dependents: dependents,
	}, nil
}
