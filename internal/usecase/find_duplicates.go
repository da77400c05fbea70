package usecase

import (
	"context"
	"fmt"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// FindDuplicatesInput contains the parameters for duplicate detection.
type FindDuplicatesInput struct {
	ProjectID   string // Compare only tasks of this project (empty = all)
	IncludeDone bool   // Compare completed tasks too
}

// FindDuplicatesOutput lists the tasks that have at least one near-duplicate.
type FindDuplicatesOutput struct {
	Results []engine.DuplicateResult `json:"results"`
	Checked int                      `json:"checked"` // Number of tasks compared
}

// FindDuplicates is the use case for detecting near-duplicate task titles.
type FindDuplicates struct {
	store  domain.EntityStore
	config domain.ConfigLoader
}

// NewFindDuplicates creates a new FindDuplicates use case.
func NewFindDuplicates(store domain.EntityStore, config domain.ConfigLoader) *FindDuplicates {
	return &FindDuplicates{store: store, config: config}
}

// Execute compares every pair of selected task titles.
func (uc *FindDuplicates) Execute(_ context.Context, in FindDuplicatesInput) (*FindDuplicatesOutput, error) {
	cfg, _, err := shared.EngineConfigFor(uc.config, uc.store, in.ProjectID)
	if err != nil {
		return nil, err
	}

	filter := domain.TaskFilter{ProjectID: in.ProjectID}
	if !in.IncludeDone {
		open := false
		filter.Done = &open
	}
	recs, err := uc.store.ListTasks(filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks, _ := domain.ToTaskSnapshots(recs)

	return &FindDuplicatesOutput{
		Results: engine.DetectDuplicates(tasks, cfg),
		Checked: len(tasks),
	}, nil
}
