package usecase

import (
	"context"
	"errors"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// ValidateDependenciesInput contains the parameters for a dependency dry run.
type ValidateDependenciesInput struct {
	TaskID       string   // Task the list belongs to (empty for a task not created yet)
	Dependencies []string // Proposed dependency IDs
}

// ValidateDependenciesOutput reports whether the proposed list would be accepted.
// Fields are ordered to minimize memory padding.
type ValidateDependenciesOutput struct {
	Err          error    `json:"-"`            // The validation failure, nil when valid
	Dependencies []string `json:"dependencies"` // Deduplicated list (valid only)
	CyclePath    []string `json:"cyclePath"`    // Offending cycle, when one was found
	Missing      []string `json:"missing"`      // Unknown ids, when any
	Valid        bool     `json:"valid"`
}

// ValidateDependencies checks a dependency list without writing anything.
type ValidateDependencies struct {
	store domain.EntityStore
}

// NewValidateDependencies creates a new ValidateDependencies use case.
func NewValidateDependencies(store domain.EntityStore) *ValidateDependencies {
	return &ValidateDependencies{store: store}
}

// Execute runs the same checks as task creation and dependency edits.
// Validation failures are reported in the output; only lookup failures are returned as errors.
func (uc *ValidateDependencies) Execute(_ context.Context, in ValidateDependenciesInput) (*ValidateDependenciesOutput, error) {
	if in.TaskID != "" {
		if _, err := shared.GetTask(uc.store, in.TaskID); err != nil {
			return nil, err
		}
	}
	graph, err := shared.LoadGraph(uc.store)
	if err != nil {
		return nil, err
	}

	deps, err := engine.NewResolver(graph).ValidateDependencies(in.TaskID, in.Dependencies)
	if err == nil {
		return &ValidateDependenciesOutput{Valid: true, Dependencies: deps}, nil
	}

	out := &ValidateDependenciesOutput{Err: err}
	var cycleErr *domain.CycleError
	var missingErr *domain.MissingDependenciesError
	switch {
	case errors.As(err, &cycleErr):
		out.CyclePath = cycleErr.Path
	case errors.As(err, &missingErr):
		out.Missing = missingErr.IDs
	case errors.Is(err, domain.ErrSelfDependency):
	default:
		return nil, err
	}
	return out, nil
}
