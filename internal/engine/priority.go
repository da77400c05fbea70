package engine

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// Priority factor names.
const (
	FactorUrgency        = "urgency"
	FactorOverdue        = "overdue"
	FactorManualPriority = "manualPriority"
	FactorBlocking       = "blocking"
	FactorCompletion     = "completion"
	FactorWorkload       = "workload"
)

const (
	baselineScore = 50
	urgencyPeak   = 10.0
	hoursPerDay   = 24.0
)

// PriorityOptions carries the inputs the caller computes outside the engine.
type PriorityOptions struct {
	// WorkloadRatio is the assignee's load over capacity. nil keeps the factor
	// neutral (ratio 1).
	WorkloadRatio *float64

	// IncompleteDependencyCount is usually taken from Resolver.IncompleteDependencyCount.
	IncompleteDependencyCount int
}

// PriorityInput pairs a task with its options for CalculatePriorities.
type PriorityInput struct {
	Options PriorityOptions
	Task    domain.TaskSnapshot
}

// PriorityResult is the explained score of one task.
type PriorityResult struct {
	TaskID      string   `json:"taskId"`
	Explanation string   `json:"explanation"`
	Reasons     []string `json:"reasons"`
	Factors     []Factor `json:"factors"`
	Score       int      `json:"score"`
}

// CalculatePriority scores task in [0,100]. The weighted factor contributions are
// summed and shifted so that a task with nothing notable about it scores 50.
// Project settings are expected to be merged into cfg already.
func CalculatePriority(task domain.TaskSnapshot, now time.Time, cfg domain.EngineConfig, opts PriorityOptions) PriorityResult {
	w := cfg.Weights
	factors := []Factor{
		urgencyFactor(task, now, cfg.Priority.UrgencyDecay, w.Urgency),
		overdueFactor(task, now, cfg.Priority.OverduePenalty, w.Overdue),
		manualPriorityFactor(task, w.ManualPriority),
		blockingFactor(opts.IncompleteDependencyCount, w.Dependencies),
		completionFactor(task, w.Completion),
		workloadFactor(opts.WorkloadRatio, cfg.Priority.WorkloadScale, w.Workload),
	}

	var total float64
	reasons := []string{}
	for _, f := range factors {
		total += f.Impact
		if f.Description != "" {
			reasons = append(reasons, f.Description)
		}
	}
	if math.IsNaN(total) {
		total = 0
	}
	score := math.Max(0, math.Min(100, math.Round(total)+baselineScore))

	return PriorityResult{
		TaskID:      task.ID,
		Score:       int(score),
		Reasons:     reasons,
		Factors:     factors,
		Explanation: BuildExplanation(KindPriority, factors),
	}
}

// CalculatePriorities scores every input and returns the results sorted by score.
func CalculatePriorities(inputs []PriorityInput, now time.Time, cfg domain.EngineConfig) []PriorityResult {
	results := make([]PriorityResult, 0, len(inputs))
	for _, in := range inputs {
		results = append(results, CalculatePriority(in.Task, now, cfg, in.Options))
	}
	SortPriorities(results)
	return results
}

// SortPriorities orders results by descending score. Ties keep their input order.
func SortPriorities(results []PriorityResult) {
	slices.SortStableFunc(results, func(a, b PriorityResult) int {
		return b.Score - a.Score
	})
}

func newFactor(name string, value, weight float64, description string) Factor {
	return Factor{
		Name:        name,
		Value:       round2(value),
		Weight:      weight,
		Impact:      round2(value * weight),
		Description: description,
	}
}

// daysUntil counts calendar days from now to due in now's location.
// A due date anywhere on the current day is 0; yesterday is -1.
func daysUntil(due, now time.Time) int {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = due.In(now.Location()).Date()
	dueDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(math.Round(dueDay.Sub(today).Hours() / hoursPerDay))
}

func urgencyFactor(task domain.TaskSnapshot, now time.Time, decay, weight float64) Factor {
	if task.DueDate == nil || task.Done {
		return newFactor(FactorUrgency, 0, weight, "")
	}
	days := daysUntil(*task.DueDate, now)
	if days < 0 {
		return newFactor(FactorUrgency, 0, weight, "")
	}

	var desc string
	switch days {
	case 0:
		desc = "due today"
	case 1:
		desc = "due tomorrow"
	default:
		desc = fmt.Sprintf("due in %d days", days)
	}
	return newFactor(FactorUrgency, urgencyPeak*math.Exp(-decay*float64(days)), weight, desc)
}

func overdueFactor(task domain.TaskSnapshot, now time.Time, penalty, weight float64) Factor {
	if task.DueDate == nil || task.Done {
		return newFactor(FactorOverdue, 0, weight, "")
	}
	days := -daysUntil(*task.DueDate, now)
	if days < 1 {
		return newFactor(FactorOverdue, 0, weight, "")
	}
	f := newFactor(FactorOverdue, float64(days)*penalty, weight, "")
	if f.Impact != 0 {
		f.Description = fmt.Sprintf("overdue by %s", plural(days, "day"))
	}
	return f
}

func manualPriorityFactor(task domain.TaskSnapshot, weight float64) Factor {
	raw := float64(task.Priority-domain.PriorityDefault) * 2
	var desc string
	switch {
	case raw > 0 && weight != 0:
		desc = "high manual priority"
	case raw < 0 && weight != 0:
		desc = "low manual priority"
	}
	return newFactor(FactorManualPriority, raw, weight, desc)
}

func blockingFactor(count int, weight float64) Factor {
	if count <= 0 {
		return newFactor(FactorBlocking, 0, weight, "")
	}
	var desc string
	if weight != 0 {
		desc = "blocks " + plural(count, "task")
	}
	return newFactor(FactorBlocking, float64(count)*2, weight, desc)
}

func completionFactor(task domain.TaskSnapshot, weight float64) Factor {
	var desc string
	if task.PercentDone > 0 && weight != 0 {
		desc = fmt.Sprintf("%d%% complete", task.PercentDone)
	}
	return newFactor(FactorCompletion, float64(100-task.PercentDone)/100, weight, desc)
}

// workloadFactor maps a load ratio to points: spare capacity raises the score,
// overload lowers it. A nil ratio is neutral.
func workloadFactor(ratio *float64, scale, weight float64) Factor {
	r := 1.0
	if ratio != nil {
		r = *ratio
	}
	f := newFactor(FactorWorkload, (1-r)*scale, weight, "")
	switch {
	case f.Impact < 0:
		f.Description = "assignee is overloaded"
	case f.Impact > 0:
		f.Description = "assignee has spare capacity"
	}
	return f
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
