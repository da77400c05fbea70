package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// NewTaskInput contains the parameters for creating a new task.
// Fields are ordered to minimize memory padding.
type NewTaskInput struct {
	EstimatedTime *int       // Estimated minutes (optional)
	DueDate       *time.Time // Due date (optional)
	Title         string     // Task title (required)
	Description   string     // Task description (optional)
	ProjectID     string     // Project ID (optional)
	Priority      string     // "low", "medium", "high" or 1..5 (optional, default medium)
	Assignees     []string   // User IDs (optional)
	Labels        []string   // Labels (optional)
	Dependencies  []string   // Task IDs this task depends on (optional)
}

// NewTaskOutput contains the result of creating a new task.
type NewTaskOutput struct {
	TaskID  string               `json:"taskId"`  // The ID of the created task
	Similar []engine.SimilarTask `json:"similar"` // Open tasks with a near-duplicate title
}

// NewTask is the use case for creating a new task.
type NewTask struct {
	repo   domain.Repository
	config domain.ConfigLoader
	clock  domain.Clock
	logger domain.Logger
}

// NewNewTask creates a new NewTask use case.
func NewNewTask(repo domain.Repository, config domain.ConfigLoader, clock domain.Clock, logger domain.Logger) *NewTask {
	return &NewTask{
		repo:   repo,
		config: config,
		clock:  clock,
		logger: logger,
	}
}

// Execute creates a new task with the given input.
// Dependencies are validated and the task is written in the same critical section.
func (uc *NewTask) Execute(_ context.Context, in NewTaskInput) (*NewTaskOutput, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}
	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, fmt.Errorf("parse priority: %w", err)
	}

	cfg, _, err := shared.EngineConfigFor(uc.config, uc.repo, in.ProjectID)
	if err != nil {
		return nil, err
	}
	for _, userID := range in.Assignees {
		if _, err := shared.GetUser(uc.repo, userID); err != nil {
			return nil, err
		}
	}

	now := uc.clock.Now()
	task := &domain.TaskRecord{
		ID:            uuid.NewString(),
		Title:         title,
		Description:   in.Description,
		Priority:      priority,
		Assignees:     domain.Refs(in.Assignees...),
		Labels:        domain.Refs(in.Labels...),
		EstimatedTime: in.EstimatedTime,
		DueDate:       in.DueDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.ProjectID != "" {
		task.Project = &domain.Ref{ID: in.ProjectID}
	}

	var similar []engine.SimilarTask
	err = uc.repo.Atomic(func(tx domain.EntityStore) error {
		graph, err := shared.LoadGraph(tx)
		if err != nil {
			return err
		}
		shared.WarnSkipped(uc.logger, graph.Skipped())
		deps, err := engine.NewResolver(graph).ValidateDependencies("", in.Dependencies)
		if err != nil {
			return err
		}
		task.Dependencies = domain.Refs(deps...)

		open := slices.DeleteFunc(graph.Tasks(), func(t domain.TaskSnapshot) bool { return t.Done })
		similar = engine.FindSimilar(title, open, cfg)

		if err := tx.SaveTask(task); err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		if in.ProjectID != "" {
			return attachToProject(tx, in.ProjectID, task.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info(task.ID, "task", fmt.Sprintf("created: %q", title))
		for _, s := range similar {
			uc.logger.Warn(task.ID, "duplicate", fmt.Sprintf("similar to %s %q (%.2f)", s.TaskID, s.Title, s.Similarity))
		}
	}

	return &NewTaskOutput{TaskID: task.ID, Similar: similar}, nil
}

// attachToProject adds taskID to the project's task list if it is not there yet.
func attachToProject(tx domain.EntityStore, projectID, taskID string) error {
	project, err := shared.GetProject(tx, projectID)
	if err != nil {
		return err
	}
	for _, ref := range project.Tasks {
		if ref.ID == taskID {
			return nil
		}
	}
	project.Tasks = append(project.Tasks, domain.Ref{ID: taskID})
	if err := tx.SaveProject(project); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}
