package usecase

import (
	"context"
	"fmt"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// ListTasksInput contains the parameters for listing tasks.
type ListTasksInput struct {
	ProjectID   string   // Filter by project (empty = all)
	Assignee    string   // Filter by assignee (empty = any)
	Labels      []string // Filter by labels (AND condition)
	IncludeDone bool     // Include completed tasks
	BlockedOnly bool     // Only tasks with an incomplete dependency
}

// TaskSummary is a task with its derived blocked state.
type TaskSummary struct {
	Task    domain.TaskSnapshot `json:"task"`
	Blocked bool                `json:"blocked"`
}

// ListTasksOutput contains the result of listing tasks.
type ListTasksOutput struct {
	Tasks []TaskSummary `json:"tasks"`
}

// ListTasks is the use case for listing tasks.
type ListTasks struct {
	store domain.EntityStore
}

// NewListTasks creates a new ListTasks use case.
func NewListTasks(store domain.EntityStore) *ListTasks {
	return &ListTasks{store: store}
}

// Execute lists tasks matching the given input criteria.
// Blocked state is derived from the whole task graph on every call.
func (uc *ListTasks) Execute(_ context.Context, in ListTasksInput) (*ListTasksOutput, error) {
	filter := domain.TaskFilter{
		ProjectID: in.ProjectID,
		Assignee:  in.Assignee,
		Labels:    in.Labels,
	}
	if !in.IncludeDone {
		open := false
		filter.Done = &open
	}

	recs, err := uc.store.ListTasks(filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks, _ := domain.ToTaskSnapshots(recs)

	graph, err := shared.LoadGraph(uc.store)
	if err != nil {
		return nil, err
	}
	resolver := engine.NewResolver(graph)

	out := &ListTasksOutput{Tasks: make([]TaskSummary, 0, len(tasks))}
	for _, t := range tasks {
		blocked, err := resolver.IsBlocked(t)
		if err != nil {
			return nil, err
		}
		if in.BlockedOnly && !blocked {
			continue
		}
		out.Tasks = append(out.Tasks, TaskSummary{Task: t, Blocked: blocked})
	}
	return out, nil
}
