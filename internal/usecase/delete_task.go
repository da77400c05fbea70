package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// DeleteTaskInput contains the parameters for deleting a task.
type DeleteTaskInput struct {
	TaskID string // Task to delete (required)
	Force  bool   // Also drop the edge from every dependent
}

// DeleteTaskOutput lists the dependents whose edge to the deleted task was removed.
type DeleteTaskOutput struct {
	Detached []string `json:"detached"`
}

// DeleteTask is the use case for deleting a task.
type DeleteTask struct {
	repo   domain.Repository
	clock  domain.Clock
	logger domain.Logger
}

// NewDeleteTask creates a new DeleteTask use case.
func NewDeleteTask(repo domain.Repository, clock domain.Clock, logger domain.Logger) *DeleteTask {
	return &DeleteTask{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

// Execute deletes the task. A task other tasks depend on is only deleted with
// Force, in which case those edges are removed in the same write.
func (uc *DeleteTask) Execute(_ context.Context, in DeleteTaskInput) (*DeleteTaskOutput, error) {
	var detached []string
	err := uc.repo.Atomic(func(tx domain.EntityStore) error {
		rec, err := shared.GetTask(tx, in.TaskID)
		if err != nil {
			return err
		}

		graph, err := shared.LoadGraph(tx)
		if err != nil {
			return err
		}
		shared.WarnSkipped(uc.logger, graph.Skipped())
		dependents, err := graph.DependentsOf(rec.ID)
		if err != nil {
			return err
		}
		if len(dependents) > 0 && !in.Force {
			return fmt.Errorf("%w: %s", domain.ErrHasDependents, strings.Join(dependents, ", "))
		}

		now := uc.clock.Now()
		for _, id := range dependents {
			dep, err := shared.GetTask(tx, id)
			if err != nil {
				return err
			}
			dep.Dependencies = slices.DeleteFunc(dep.Dependencies, func(r domain.Ref) bool { return r.ID == rec.ID })
			dep.UpdatedAt = now
			if err := tx.SaveTask(dep); err != nil {
				return fmt.Errorf("save task %s: %w", id, err)
			}
		}
		detached = dependents

		if rec.Project != nil {
			if err := detachFromProject(tx, rec.Project.ID, rec.ID); err != nil {
				return err
			}
		}
		if err := tx.DeleteTask(rec.ID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info(in.TaskID, "task", "deleted")
		for _, id := range detached {
			uc.logger.Info(id, "dependency", fmt.Sprintf("dependency on %s removed", in.TaskID))
		}
	}
	return &DeleteTaskOutput{Detached: detached}, nil
}

// detachFromProject removes taskID from the project's task list. A missing
// project is ignored.
func detachFromProject(tx domain.EntityStore, projectID, taskID string) error {
	project, err := tx.GetProject(projectID)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil
	}
	before := len(project.Tasks)
	project.Tasks = slices.DeleteFunc(project.Tasks, func(r domain.Ref) bool { return r.ID == taskID })
	if len(project.Tasks) == before {
		return nil
	}
	if err := tx.SaveProject(project); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}
