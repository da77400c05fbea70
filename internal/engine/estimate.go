package engine

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// Similarity rubric points.
const (
	labelPoints    = 3
	projectPoints  = 2
	assigneePoints = 2
	priorityPoints = 1
)

const (
	fallbackConfidence = 0.3
	fullConfidenceAt   = 10.0
	filteredPenalty    = 0.9
)

// Dimensions reported in EstimateResult.BasedOn.
const (
	BasisLabel    = "label"
	BasisProject  = "project"
	BasisAssignee = "assignee"
	BasisPriority = "priority"
	BasisFallback = "fallback"
)

// EstimateResult is a time estimate with its supporting evidence.
type EstimateResult struct {
	TaskID           string   `json:"taskId"`
	Explanation      string   `json:"explanation"`
	BasedOn          []string `json:"basedOn"`
	ConfidenceLevel  float64  `json:"confidenceLevel"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
	SampleSize       int      `json:"sampleSize"`
}

type similarity struct {
	label, project, assignee bool
}

// EstimateTime estimates task's duration in minutes from similar completed tasks.
// assignee and project are optional. When fewer than MinSamples similar tasks
// carry an actual time, the estimate falls back to the assignee's historical
// averages or the configured default, scaled by FallbackMultiplier.
func EstimateTime(task domain.TaskSnapshot, history []domain.TaskSnapshot, assignee *domain.UserSnapshot, project *domain.ProjectSnapshot, cfg domain.EngineConfig) EstimateResult {
	ec := cfg.Estimation
	projectID := ""
	if project != nil {
		projectID = project.ID
	} else if task.ProjectID != nil {
		projectID = *task.ProjectID
	}

	maxScore := priorityPoints
	if len(task.Labels) > 0 {
		maxScore += labelPoints
	}
	if projectID != "" {
		maxScore += projectPoints
	}
	if assignee != nil {
		maxScore += assigneePoints
	}

	var (
		similar int
		sample  []int
		matched similarity
	)
	for _, h := range recentCompleted(task.ID, history, ec.MaxHistory) {
		score := 0
		var m similarity
		if slices.ContainsFunc(task.Labels, h.HasLabel) {
			score += labelPoints
			m.label = true
		}
		if projectID != "" && h.InProject(projectID) {
			score += projectPoints
			m.project = true
		}
		if assignee != nil && h.HasAssignee(assignee.ID) {
			score += assigneePoints
			m.assignee = true
		}
		if abs(h.Priority-task.Priority) <= 1 {
			score += priorityPoints
		}
		if float64(score)/float64(maxScore) < ec.SimilarityThreshold {
			continue
		}

		similar++
		if h.ActualTime == nil || *h.ActualTime <= 0 {
			continue
		}
		sample = append(sample, *h.ActualTime)
		matched.label = matched.label || m.label
		matched.project = matched.project || m.project
		matched.assignee = matched.assignee || m.assignee
	}

	if len(sample) < ec.MinSamples || len(sample) == 0 {
		return fallbackEstimate(task, assignee, projectID, len(sample), ec)
	}

	var minutes int
	method := ec.Method
	if method == domain.EstimationMean {
		minutes = mean(sample)
	} else {
		method = domain.EstimationMedian
		minutes = median(sample)
	}

	confidence := math.Min(1, float64(len(sample))/fullConfidenceAt)
	factors := []Factor{
		{Name: "sample", Value: float64(len(sample)),
			Description: fmt.Sprintf("based on the %s of %s", method, plural(len(sample), "similar completed task"))},
	}
	if similar > len(sample) {
		confidence *= filteredPenalty
		factors = append(factors, Factor{Name: "filtered", Value: float64(similar - len(sample)),
			Description: fmt.Sprintf("%d without recorded time ignored", similar-len(sample))})
	}

	basedOn := make([]string, 0, 3)
	if matched.label {
		basedOn = append(basedOn, BasisLabel)
	}
	if matched.project {
		basedOn = append(basedOn, BasisProject)
	}
	if matched.assignee {
		basedOn = append(basedOn, BasisAssignee)
	}
	if len(basedOn) == 0 {
		basedOn = append(basedOn, BasisPriority)
	}
	factors = append(factors, Factor{Name: "basis", Description: "matched on " + strings.Join(basedOn, ", ")})

	return EstimateResult{
		TaskID:           task.ID,
		EstimatedMinutes: minutes,
		ConfidenceLevel:  round2(confidence),
		BasedOn:          basedOn,
		SampleSize:       len(sample),
		Explanation:      BuildExplanation(KindEstimate, factors),
	}
}

func fallbackEstimate(task domain.TaskSnapshot, assignee *domain.UserSnapshot, projectID string, sampleSize int, ec domain.EstimationConfig) EstimateResult {
	base := ec.DefaultMinutes
	source := "the default duration"
	if assignee != nil {
		if v, label, ok := labelAverage(assignee, task.Labels); ok {
			base = v
			source = fmt.Sprintf("the assignee's average for label %s", label)
		} else if v, ok := assignee.HistoricalAverageByProject[projectID]; ok && projectID != "" && v > 0 {
			base = v
			source = fmt.Sprintf("the assignee's average for project %s", projectID)
		}
	}

	minutes := int(math.Round(float64(base) * ec.FallbackMultiplier))
	factors := []Factor{
		{Name: "fallback", Value: float64(base), Description: fmt.Sprintf("based on %s of %d minutes", source, base)},
		{Name: "multiplier", Value: ec.FallbackMultiplier, Description: fmt.Sprintf("with a %gx safety multiplier", ec.FallbackMultiplier)},
		{Name: "sample", Value: float64(sampleSize), Description: fmt.Sprintf("too few similar tasks (%d)", sampleSize)},
	}
	return EstimateResult{
		TaskID:           task.ID,
		EstimatedMinutes: minutes,
		ConfidenceLevel:  fallbackConfidence,
		BasedOn:          []string{BasisFallback},
		SampleSize:       sampleSize,
		Explanation:      BuildExplanation(KindEstimate, factors),
	}
}

func labelAverage(user *domain.UserSnapshot, labels []string) (int, string, bool) {
	for _, l := range labels {
		if v, ok := user.HistoricalAverageByLabel[l]; ok && v > 0 {
			return v, l, true
		}
	}
	return 0, "", false
}

// recentCompleted returns the done tasks of history other than taskID, most
// recently completed first, capped at limit (0 = unbounded).
func recentCompleted(taskID string, history []domain.TaskSnapshot, limit int) []domain.TaskSnapshot {
	done := make([]domain.TaskSnapshot, 0, len(history))
	for _, h := range history {
		if h.Done && h.ID != taskID {
			done = append(done, h)
		}
	}
	slices.SortStableFunc(done, func(a, b domain.TaskSnapshot) int {
		return b.CompletedAt().Compare(a.CompletedAt())
	})
	if limit > 0 && len(done) > limit {
		done = done[:limit]
	}
	return done
}

func median(values []int) int {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return int(math.Round(float64(sorted[mid-1]+sorted[mid]) / 2))
}

func mean(values []int) int {
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(values))))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
