package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// SetDependenciesInput contains the parameters for editing a task's dependencies.
// Removals are applied before additions.
type SetDependenciesInput struct {
	TaskID string   // Task ID (required)
	Add    []string // Dependency IDs to add
	Remove []string // Dependency IDs to remove
	Clear  bool     // Drop every existing dependency first
}

// SetDependenciesOutput contains the result of editing dependencies.
type SetDependenciesOutput struct {
	Dependencies []string `json:"dependencies"` // The dependency list now persisted
}

// SetDependencies is the use case for changing which tasks a task depends on.
type SetDependencies struct {
	repo   domain.Repository
	clock  domain.Clock
	logger domain.Logger
}

// NewSetDependencies creates a new SetDependencies use case.
func NewSetDependencies(repo domain.Repository, clock domain.Clock, logger domain.Logger) *SetDependencies {
	return &SetDependencies{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

// Execute validates the edited dependency list against the current graph and saves it.
// A rejected list leaves the task untouched.
func (uc *SetDependencies) Execute(_ context.Context, in SetDependenciesInput) (*SetDependenciesOutput, error) {
	var deps []string
	err := uc.repo.Atomic(func(tx domain.EntityStore) error {
		rec, err := shared.GetTask(tx, in.TaskID)
		if err != nil {
			return err
		}

		var next []string
		if !in.Clear {
			next = rec.DependencyIDs()
		}
		next = slices.DeleteFunc(next, func(id string) bool { return slices.Contains(in.Remove, id) })
		next = append(next, in.Add...)

		graph, err := shared.LoadGraph(tx)
		if err != nil {
			return err
		}
		shared.WarnSkipped(uc.logger, graph.Skipped())
		deps, err = engine.NewResolver(graph).ValidateDependencies(rec.ID, next)
		if err != nil {
			return err
		}

		rec.Dependencies = domain.Refs(deps...)
		rec.UpdatedAt = uc.clock.Now()
		if err := tx.SaveTask(rec); err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		return nil
	})
	if err != nil {
		if uc.logger != nil {
			uc.logger.Warn(in.TaskID, "dependency", fmt.Sprintf("rejected: %v", err))
		}
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info(in.TaskID, "dependency", fmt.Sprintf("dependencies set to [%s]", strings.Join(deps, ", ")))
	}
	return &SetDependenciesOutput{Dependencies: deps}, nil
}
