package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/iter"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// ScoreTasksInput contains the parameters for ranking open tasks.
type ScoreTasksInput struct {
	ProjectID   string // Filter by project (empty = all)
	Assignee    string // Filter by assignee (empty = any)
	TaskID      string // Score a single task (overrides the filters)
	Limit       int    // Keep the top N results (0 = all)
	UseWorkload bool   // Feed the most loaded assignee's ratio into the score
}

// ScoreTasksOutput contains the ranked results, highest score first.
type ScoreTasksOutput struct {
	Results []engine.PriorityResult `json:"results"`
}

// ScoreTasks is the use case for computing explained priority scores.
type ScoreTasks struct {
	store  domain.EntityStore
	config domain.ConfigLoader
	clock  domain.Clock
}

// NewScoreTasks creates a new ScoreTasks use case.
func NewScoreTasks(store domain.EntityStore, config domain.ConfigLoader, clock domain.Clock) *ScoreTasks {
	return &ScoreTasks{
		store:  store,
		config: config,
		clock:  clock,
	}
}

type scoreJob struct {
	cfg   domain.EngineConfig
	input engine.PriorityInput
}

// Execute scores the selected tasks. Each task is scored with its own
// project's settings; tasks are scored concurrently since the engine is pure.
func (uc *ScoreTasks) Execute(_ context.Context, in ScoreTasksInput) (*ScoreTasksOutput, error) {
	graph, err := shared.LoadGraph(uc.store)
	if err != nil {
		return nil, err
	}
	selected, err := uc.selectTasks(graph, in)
	if err != nil {
		return nil, err
	}

	base, _, err := shared.EngineConfigFor(uc.config, uc.store, "")
	if err != nil {
		return nil, err
	}
	var ratios map[string]float64
	if in.UseWorkload {
		if ratios, err = uc.workloadRatios(graph.Tasks(), base); err != nil {
			return nil, err
		}
	}

	configs := map[string]domain.EngineConfig{"": base}
	resolver := engine.NewResolver(graph)
	jobs := make([]scoreJob, 0, len(selected))
	for _, t := range selected {
		projectID := ""
		if t.ProjectID != nil {
			projectID = *t.ProjectID
		}
		cfg, ok := configs[projectID]
		if !ok {
			cfg, err = uc.projectConfig(projectID, base)
			if err != nil {
				return nil, err
			}
			configs[projectID] = cfg
		}

		count, err := resolver.IncompleteDependencyCount(t)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, scoreJob{
			cfg: cfg,
			input: engine.PriorityInput{
				Task:    t,
				Options: engine.PriorityOptions{IncompleteDependencyCount: count, WorkloadRatio: maxRatio(t, ratios)},
			},
		})
	}

	now := uc.clock.Now()
	results := iter.Map(jobs, func(j *scoreJob) engine.PriorityResult {
		return engine.CalculatePriority(j.input.Task, now, j.cfg, j.input.Options)
	})
	engine.SortPriorities(results)
	if in.Limit > 0 && len(results) > in.Limit {
		results = results[:in.Limit]
	}
	return &ScoreTasksOutput{Results: results}, nil
}

func (uc *ScoreTasks) selectTasks(graph *shared.Graph, in ScoreTasksInput) ([]domain.TaskSnapshot, error) {
	if in.TaskID != "" {
		t, err := graph.Snapshot(in.TaskID)
		if err != nil {
			return nil, err
		}
		return []domain.TaskSnapshot{t}, nil
	}
	var selected []domain.TaskSnapshot
	for _, t := range graph.Tasks() {
		if t.Done {
			continue
		}
		if in.ProjectID != "" && !t.InProject(in.ProjectID) {
			continue
		}
		if in.Assignee != "" && !t.HasAssignee(in.Assignee) {
			continue
		}
		selected = append(selected, t)
	}
	return selected, nil
}

// projectConfig resolves the settings of projectID. A task pointing at a
// project that no longer exists is scored with the base configuration.
func (uc *ScoreTasks) projectConfig(projectID string, base domain.EngineConfig) (domain.EngineConfig, error) {
	cfg, _, err := shared.EngineConfigFor(uc.config, uc.store, projectID)
	if errors.Is(err, domain.ErrProjectNotFound) {
		return base, nil
	}
	return cfg, err
}

func (uc *ScoreTasks) workloadRatios(tasks []domain.TaskSnapshot, cfg domain.EngineConfig) (map[string]float64, error) {
	recs, err := uc.store.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	ratios := make(map[string]float64, len(recs))
	for _, rec := range recs {
		user, err := domain.ToUserSnapshot(rec)
		if err != nil {
			return nil, err
		}
		ratios[user.ID] = engine.WorkloadRatio(user, tasks, cfg)
	}
	return ratios, nil
}

// maxRatio returns the highest ratio among the task's known assignees, or nil.
func maxRatio(t domain.TaskSnapshot, ratios map[string]float64) *float64 {
	var best *float64
	for _, id := range t.Assignees {
		r, ok := ratios[id]
		if !ok {
			continue
		}
		if best == nil || r > *best {
			best = &r
		}
	}
	return best
}
