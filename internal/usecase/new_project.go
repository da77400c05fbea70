package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// NewProjectInput contains the parameters for creating a project.
// Fields are ordered to minimize memory padding.
type NewProjectInput struct {
	StartDate   *time.Time              // Optional
	EndDate     *time.Time              // Optional
	Settings    *domain.EngineOverrides // Engine overrides for tasks of this project (optional)
	ID          string                  // Project ID (optional, generated if empty)
	Name        string                  // Project name (required)
	WorkingDays []string                // Weekday names (optional)
}

// NewProjectOutput contains the result of creating a project.
type NewProjectOutput struct {
	ProjectID string `json:"projectId"`
}

// NewProject is the use case for creating a project.
type NewProject struct {
	repo   domain.Repository
	logger domain.Logger
}

// NewNewProject creates a new NewProject use case.
func NewNewProject(repo domain.Repository, logger domain.Logger) *NewProject {
	return &NewProject{repo: repo, logger: logger}
}

// Execute validates and stores the project.
func (uc *NewProject) Execute(_ context.Context, in NewProjectInput) (*NewProjectOutput, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrEmptyName
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, fmt.Errorf("end date %s is before start date %s",
			in.EndDate.Format(time.DateOnly), in.StartDate.Format(time.DateOnly))
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	project := &domain.ProjectRecord{
		ID:          id,
		Name:        name,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		WorkingDays: in.WorkingDays,
		Settings:    in.Settings,
	}
	if _, err := domain.ToProjectSnapshot(project); err != nil {
		return nil, err
	}

	err := uc.repo.Atomic(func(tx domain.EntityStore) error {
		existing, err := tx.GetProject(id)
		if err != nil {
			return fmt.Errorf("get project: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("project %s already exists", id)
		}
		if err := tx.SaveProject(project); err != nil {
			return fmt.Errorf("save project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info("", "project", fmt.Sprintf("created %s: %q", id, name))
	}
	return &NewProjectOutput{ProjectID: id}, nil
}
