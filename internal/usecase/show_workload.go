package usecase

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/iter"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// ShowWorkloadInput contains the parameters for the workload report.
type ShowWorkloadInput struct {
	UserID string // Report a single user (empty = everyone)
}

// ShowWorkloadOutput contains one result per user, in user id order.
type ShowWorkloadOutput struct {
	Results []engine.WorkloadResult `json:"results"`
}

// ShowWorkload is the use case for reporting assignee utilization.
type ShowWorkload struct {
	store  domain.EntityStore
	config domain.ConfigLoader
}

// NewShowWorkload creates a new ShowWorkload use case.
func NewShowWorkload(store domain.EntityStore, config domain.ConfigLoader) *ShowWorkload {
	return &ShowWorkload{store: store, config: config}
}

// Execute computes the workload of each selected user over all open tasks.
func (uc *ShowWorkload) Execute(_ context.Context, in ShowWorkloadInput) (*ShowWorkloadOutput, error) {
	var users []domain.UserSnapshot
	if in.UserID != "" {
		user, err := shared.GetUserSnapshot(uc.store, in.UserID)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	} else {
		recs, err := uc.store.ListUsers()
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		for _, rec := range recs {
			user, err := domain.ToUserSnapshot(rec)
			if err != nil {
				return nil, err
			}
			users = append(users, user)
		}
	}

	open := false
	recs, err := uc.store.ListTasks(domain.TaskFilter{Done: &open})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks, _ := domain.ToTaskSnapshots(recs)
	cfg, _, err := shared.EngineConfigFor(uc.config, uc.store, "")
	if err != nil {
		return nil, err
	}

	results := iter.Map(users, func(u *domain.UserSnapshot) engine.WorkloadResult {
		return engine.CalculateWorkload(*u, tasks, cfg)
	})
	return &ShowWorkloadOutput{Results: results}, nil
}
