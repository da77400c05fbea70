package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// EditTaskInput contains the parameters for editing a task.
// All fields except TaskID are optional. Only non-nil/non-empty fields are updated.
// Fields are ordered to minimize memory padding.
type EditTaskInput struct {
	Title           *string    // New title
	Description     *string    // New description
	Priority        *string    // "low", "medium", "high" or 1..5
	DueDate         *time.Time // New due date
	EstimatedTime   *int       // Estimated minutes
	PercentDone     *int       // 0..100
	TaskID          string     // Task to edit (required)
	AddLabels       []string
	RemoveLabels    []string
	AddAssignees    []string
	RemoveAssignees []string
	ClearDueDate    bool
}

func (in EditTaskInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Priority == nil &&
		in.DueDate == nil && !in.ClearDueDate && in.EstimatedTime == nil && in.PercentDone == nil &&
		len(in.AddLabels) == 0 && len(in.RemoveLabels) == 0 &&
		len(in.AddAssignees) == 0 && len(in.RemoveAssignees) == 0
}

// EditTaskOutput contains the result of editing a task.
type EditTaskOutput struct {
	Task domain.TaskSnapshot `json:"task"`
}

// EditTask is the use case for editing an existing task.
type EditTask struct {
	repo   domain.Repository
	clock  domain.Clock
	logger domain.Logger
}

// NewEditTask creates a new EditTask use case.
func NewEditTask(repo domain.Repository, clock domain.Clock, logger domain.Logger) *EditTask {
	return &EditTask{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

// Execute edits a task with the given input.
func (uc *EditTask) Execute(_ context.Context, in EditTaskInput) (*EditTaskOutput, error) {
	if in.empty() {
		return nil, domain.ErrNoFieldsToUpdate
	}
	var title string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, domain.ErrEmptyTitle
		}
	}
	var priority domain.PriorityValue
	if in.Priority != nil {
		p, err := domain.ParsePriority(*in.Priority)
		if err != nil {
			return nil, fmt.Errorf("parse priority: %w", err)
		}
		priority = p
	}
	if in.PercentDone != nil && (*in.PercentDone < 0 || *in.PercentDone > 100) {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidPercent, *in.PercentDone)
	}
	if in.EstimatedTime != nil && *in.EstimatedTime < 0 {
		return nil, fmt.Errorf("estimated time must not be negative: %d", *in.EstimatedTime)
	}

	var snap domain.TaskSnapshot
	err := uc.repo.Atomic(func(tx domain.EntityStore) error {
		rec, err := shared.GetTask(tx, in.TaskID)
		if err != nil {
			return err
		}
		for _, userID := range in.AddAssignees {
			if _, err := shared.GetUser(tx, userID); err != nil {
				return err
			}
		}

		if in.Title != nil {
			rec.Title = title
		}
		if in.Description != nil {
			rec.Description = *in.Description
		}
		if in.Priority != nil {
			rec.Priority = priority
		}
		if in.ClearDueDate {
			rec.DueDate = nil
		}
		if in.DueDate != nil {
			rec.DueDate = in.DueDate
		}
		if in.EstimatedTime != nil {
			rec.EstimatedTime = in.EstimatedTime
		}
		if in.PercentDone != nil {
			rec.PercentDone = *in.PercentDone
		}
		if len(in.AddLabels) > 0 || len(in.RemoveLabels) > 0 {
			rec.Labels = updateRefs(rec.Labels, in.AddLabels, in.RemoveLabels)
		}
		if len(in.AddAssignees) > 0 || len(in.RemoveAssignees) > 0 {
			rec.Assignees = updateRefs(rec.Assignees, in.AddAssignees, in.RemoveAssignees)
		}
		rec.UpdatedAt = uc.clock.Now()

		if err := tx.SaveTask(rec); err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		snap, err = domain.ToTaskSnapshot(rec)
		return err
	})
	if err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info(snap.ID, "task", "edited")
	}
	return &EditTaskOutput{Task: snap}, nil
}

// updateRefs adds and removes ids from the current set.
// Existing order is kept; new ids are appended in the order given.
func updateRefs(current []domain.Ref, add, remove []string) []domain.Ref {
	result := make([]domain.Ref, 0, len(current)+len(add))
	seen := make(map[string]bool, len(current)+len(add))
	keep := func(id string) {
		if id == "" || seen[id] || slices.Contains(remove, id) {
			return
		}
		seen[id] = true
		result = append(result, domain.Ref{ID: id})
	}
	for _, ref := range current {
		keep(ref.ID)
	}
	for _, id := range add {
		keep(id)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
