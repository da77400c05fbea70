package engine

import (
	"fmt"
	"math"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// WorkloadStatus classifies a user's utilization.
type WorkloadStatus string

// Workload statuses.
const (
	StatusOverload      WorkloadStatus = "overload"
	StatusWarning       WorkloadStatus = "warning"
	StatusUnderutilized WorkloadStatus = "underutilized"
	StatusBalanced      WorkloadStatus = "balanced"
)

// WorkloadResult is the utilization report of one user.
// Fields are ordered to minimize memory padding.
type WorkloadResult struct {
	UserID          string         `json:"userId"`
	Status          WorkloadStatus `json:"status"`
	Explanation     string         `json:"explanation"`
	Warnings        []string       `json:"warnings"`
	Suggestions     []string       `json:"suggestions"`
	Ratio           float64        `json:"ratio"`
	WeeklyLoad      int            `json:"weeklyLoad"`      // minutes
	Capacity        int            `json:"capacity"`        // minutes
	LoadPercentage  int            `json:"loadPercentage"`  // 110 means 110%
	TaskCount       int            `json:"taskCount"`       // open tasks assigned
	OverflowMinutes int            `json:"overflowMinutes"` // load above capacity
	SpareMinutes    int            `json:"spareMinutes"`    // capacity left
}

// CalculateWorkload sums the estimated time of the open tasks assigned to user
// and classifies it against the configured thresholds. Tasks without an
// estimate count as 0 minutes; a non-positive capacity falls back to the
// configured default.
func CalculateWorkload(user domain.UserSnapshot, tasks []domain.TaskSnapshot, cfg domain.EngineConfig) WorkloadResult {
	load, count := assignedLoad(user.ID, tasks)
	capacity := effectiveCapacity(user, cfg)
	ratio := float64(load) / float64(capacity)

	res := WorkloadResult{
		UserID:          user.ID,
		WeeklyLoad:      load,
		Capacity:        capacity,
		Ratio:           round2(ratio),
		LoadPercentage:  int(math.Round(ratio * 100)),
		TaskCount:       count,
		OverflowMinutes: max(load-capacity, 0),
		SpareMinutes:    max(capacity-load, 0),
		Status:          classify(ratio, cfg.Workload),
		Warnings:        []string{},
		Suggestions:     []string{},
	}

	var factors []Factor
	name := user.Name
	if name == "" {
		name = user.ID
	}
	switch res.Status {
	case StatusOverload:
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s is over capacity by %d minutes", name, res.OverflowMinutes))
		res.Suggestions = append(res.Suggestions, "Reassign some tasks to team members with spare capacity")
		factors = append(factors, Factor{Name: "load", Value: ratio, Impact: ratio,
			Description: fmt.Sprintf("load at %d%% of capacity exceeds the overload threshold", res.LoadPercentage)})
	case StatusWarning:
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s is close to capacity (%d%%)", name, res.LoadPercentage))
		res.Suggestions = append(res.Suggestions, "Avoid assigning new tasks until current work is completed")
		factors = append(factors, Factor{Name: "load", Value: ratio, Impact: ratio,
			Description: fmt.Sprintf("load at %d%% of capacity is near the limit", res.LoadPercentage)})
	case StatusUnderutilized:
		res.Suggestions = append(res.Suggestions, fmt.Sprintf("Assign more tasks to %s (%d minutes available)", name, res.SpareMinutes))
		factors = append(factors, Factor{Name: "load", Value: ratio, Impact: ratio,
			Description: fmt.Sprintf("load at %d%% of capacity leaves room for more work", res.LoadPercentage)})
	}
	if count == 0 {
		factors = append(factors, Factor{Name: "tasks", Description: "no open tasks assigned"})
	}
	res.Explanation = BuildExplanation(KindWorkload, factors)
	return res
}

// CalculateWorkloads reports every user against the same task set, in user order.
func CalculateWorkloads(users []domain.UserSnapshot, tasks []domain.TaskSnapshot, cfg domain.EngineConfig) []WorkloadResult {
	results := make([]WorkloadResult, 0, len(users))
	for _, u := range users {
		results = append(results, CalculateWorkload(u, tasks, cfg))
	}
	return results
}

// WorkloadRatio returns load over capacity for user, the value PriorityOptions.WorkloadRatio expects.
func WorkloadRatio(user domain.UserSnapshot, tasks []domain.TaskSnapshot, cfg domain.EngineConfig) float64 {
	load, _ := assignedLoad(user.ID, tasks)
	return float64(load) / float64(effectiveCapacity(user, cfg))
}

func assignedLoad(userID string, tasks []domain.TaskSnapshot) (load, count int) {
	for i := range tasks {
		t := &tasks[i]
		if t.Done || !t.HasAssignee(userID) {
			continue
		}
		load += max(t.Estimate(), 0)
		count++
	}
	return load, count
}

func effectiveCapacity(user domain.UserSnapshot, cfg domain.EngineConfig) int {
	if user.WeeklyCapacity > 0 {
		return user.WeeklyCapacity
	}
	if cfg.Workload.DefaultWeeklyCapacity > 0 {
		return cfg.Workload.DefaultWeeklyCapacity
	}
	return domain.NewDefaultEngineConfig().Workload.DefaultWeeklyCapacity
}

// classify checks the thresholds in order; the first match wins.
func classify(ratio float64, cfg domain.WorkloadConfig) WorkloadStatus {
	switch {
	case ratio >= cfg.OverloadThreshold:
		return StatusOverload
	case ratio >= cfg.WarningThreshold:
		return StatusWarning
	case ratio <= cfg.UnderutilizedThreshold:
		return StatusUnderutilized
	default:
		return StatusBalanced
	}
}
