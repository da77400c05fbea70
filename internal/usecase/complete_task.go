package usecase

import (
	"context"
	"fmt"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// CompleteTaskInput contains the parameters for completing a task.
type CompleteTaskInput struct {
	ActualTime *int   // Minutes actually spent (optional, feeds future estimates)
	TaskID     string // Task ID to complete
}

// CompleteTaskOutput contains the result of completing a task.
type CompleteTaskOutput struct {
	Task      domain.TaskSnapshot   `json:"task"`      // The completed task
	Unblocked []domain.TaskSnapshot `json:"unblocked"` // Dependents with no incomplete dependency left
	Waiting   []domain.TaskSnapshot `json:"waiting"`   // Dependents still blocked by another task
}

// CompleteTask is the use case for marking a task as done.
// Fields are ordered to minimize memory padding.
type CompleteTask struct {
	repo     domain.Repository
	notifier domain.Notifier
	clock    domain.Clock
	logger   domain.Logger
}

// NewCompleteTask creates a new CompleteTask use case.
func NewCompleteTask(repo domain.Repository, notifier domain.Notifier, clock domain.Clock, logger domain.Logger) *CompleteTask {
	return &CompleteTask{
		repo:     repo,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// Execute marks a task as done and reports the dependents it unblocked.
// Preconditions:
//   - The task exists and is not done yet
//
// The notifier is called for each unblocked dependent after the write is committed.
// Blocked state is never persisted.
func (uc *CompleteTask) Execute(_ context.Context, in CompleteTaskInput) (*CompleteTaskOutput, error) {
	if in.ActualTime != nil && *in.ActualTime < 0 {
		return nil, fmt.Errorf("actual time must not be negative: %d", *in.ActualTime)
	}

	var out CompleteTaskOutput
	err := uc.repo.Atomic(func(tx domain.EntityStore) error {
		rec, err := shared.GetTask(tx, in.TaskID)
		if err != nil {
			return err
		}
		if rec.Done {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyDone, in.TaskID)
		}

		now := uc.clock.Now()
		rec.Done = true
		rec.DoneAt = &now
		rec.UpdatedAt = now
		rec.PercentDone = 100
		if in.ActualTime != nil {
			rec.ActualTime = in.ActualTime
		}
		if err := tx.SaveTask(rec); err != nil {
			return fmt.Errorf("save task: %w", err)
		}

		graph, err := shared.LoadGraph(tx)
		if err != nil {
			return err
		}
		shared.WarnSkipped(uc.logger, graph.Skipped())
		result, err := engine.NewResolver(graph).UnblockDependentTasks(in.TaskID)
		if err != nil {
			return err
		}
		task, err := graph.Snapshot(in.TaskID)
		if err != nil {
			return err
		}
		out = CompleteTaskOutput{Task: task, Unblocked: result.Unblocked, Waiting: result.Waiting}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info(in.TaskID, "task", fmt.Sprintf("completed, %d dependents unblocked", len(out.Unblocked)))
	}
	for _, t := range out.Unblocked {
		if uc.notifier != nil {
			uc.notifier.TaskUnblocked(t, in.TaskID)
		}
		if uc.logger != nil {
			uc.logger.Info(t.ID, "dependency", fmt.Sprintf("unblocked by %s", in.TaskID))
		}
	}
	return &out, nil
}
