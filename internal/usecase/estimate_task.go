package usecase

import (
	"context"
	"fmt"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// EstimateTaskInput contains the parameters for estimating a task.
type EstimateTaskInput struct {
	TaskID     string // Task ID (required)
	AssigneeID string // Estimate for this user (default: the task's first assignee)
	Save       bool   // Store the estimate as the task's estimated time
}

// EstimateTaskOutput contains the estimate.
type EstimateTaskOutput struct {
	Result engine.EstimateResult `json:"result"`
	Saved  bool                  `json:"saved"`
}

// EstimateTask is the use case for estimating a task from completed history.
// Fields are ordered to minimize memory padding.
type EstimateTask struct {
	repo   domain.Repository
	config domain.ConfigLoader
	clock  domain.Clock
	logger domain.Logger
}

// NewEstimateTask creates a new EstimateTask use case.
func NewEstimateTask(repo domain.Repository, config domain.ConfigLoader, clock domain.Clock, logger domain.Logger) *EstimateTask {
	return &EstimateTask{
		repo:   repo,
		config: config,
		clock:  clock,
		logger: logger,
	}
}

// Execute estimates the task. With Save, the estimate overwrites any
// existing estimated time.
func (uc *EstimateTask) Execute(_ context.Context, in EstimateTaskInput) (*EstimateTaskOutput, error) {
	rec, err := shared.GetTask(uc.repo, in.TaskID)
	if err != nil {
		return nil, err
	}
	task, err := domain.ToTaskSnapshot(rec)
	if err != nil {
		return nil, err
	}

	assigneeID := in.AssigneeID
	if assigneeID == "" && len(task.Assignees) > 0 {
		assigneeID = task.Assignees[0]
	}
	var assignee *domain.UserSnapshot
	if assigneeID != "" {
		if assignee, err = shared.GetUserSnapshot(uc.repo, assigneeID); err != nil {
			return nil, err
		}
	}

	projectID := ""
	if task.ProjectID != nil {
		projectID = *task.ProjectID
	}
	cfg, project, err := shared.EngineConfigFor(uc.config, uc.repo, projectID)
	if err != nil {
		return nil, err
	}

	done := true
	recs, err := uc.repo.ListTasks(domain.TaskFilter{Done: &done})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	history, skipped := domain.ToTaskSnapshots(recs)
	shared.WarnSkipped(uc.logger, skipped)

	result := engine.EstimateTime(task, history, assignee, project, cfg)
	out := &EstimateTaskOutput{Result: result}
	if !in.Save {
		return out, nil
	}

	err = uc.repo.Atomic(func(tx domain.EntityStore) error {
		rec, err := shared.GetTask(tx, in.TaskID)
		if err != nil {
			return err
		}
		minutes := result.EstimatedMinutes
		rec.EstimatedTime = &minutes
		rec.UpdatedAt = uc.clock.Now()
		if err := tx.SaveTask(rec); err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Saved = true
	if uc.logger != nil {
		uc.logger.Info(in.TaskID, "estimate", fmt.Sprintf("estimated time set to %d minutes (confidence %.2f)", result.EstimatedMinutes, result.ConfidenceLevel))
	}
	return out, nil
}
