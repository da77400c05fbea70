package domain

import (
	"slices"
	"time"
)

// Priority bounds for TaskSnapshot.Priority.
const (
	PriorityMin     = 1
	PriorityDefault = 3
	PriorityMax     = 5
)

// TaskSnapshot is the immutable, normalized projection of a task that the engine reads.
// All references are plain ids; optional values are nil when absent.
type TaskSnapshot struct {
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	ProjectID     *string    `json:"projectId,omitempty"`
	EstimatedTime *int       `json:"estimatedTime,omitempty"` // minutes
	ActualTime    *int       `json:"actualTime,omitempty"`    // minutes
	DueDate       *time.Time `json:"dueDate,omitempty"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	DoneAt        *time.Time `json:"doneAt,omitempty"`
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Assignees     []string   `json:"assignees"`
	Labels        []string   `json:"labels"`
	Dependencies  []string   `json:"dependencies"` // ordered, unique, never contains ID
	Priority      int        `json:"priority"`     // 1..5
	PercentDone   int        `json:"percentDone"`  // 0..100
	Done          bool       `json:"done"`
}

// HasAssignee reports whether userID is among the task's assignees.
func (t *TaskSnapshot) HasAssignee(userID string) bool {
	return slices.Contains(t.Assignees, userID)
}

// HasLabel reports whether the task carries labelID.
func (t *TaskSnapshot) HasLabel(labelID string) bool {
	return slices.Contains(t.Labels, labelID)
}

// InProject reports whether the task belongs to projectID.
func (t *TaskSnapshot) InProject(projectID string) bool {
	return t.ProjectID != nil && *t.ProjectID == projectID
}

// Estimate returns the estimated time in minutes, or 0 if absent.
func (t *TaskSnapshot) Estimate() int {
	if t.EstimatedTime == nil {
		return 0
	}
	return *t.EstimatedTime
}

// CompletedAt returns DoneAt, falling back to UpdatedAt for done tasks without one.
func (t *TaskSnapshot) CompletedAt() time.Time {
	if t.DoneAt != nil {
		return *t.DoneAt
	}
	return t.UpdatedAt
}

// UserSnapshot is the normalized projection of a user.
type UserSnapshot struct {
	HistoricalAverageByLabel   map[string]int       `json:"historicalAverageByLabel"`
	HistoricalAverageByProject map[string]int       `json:"historicalAverageByProject"`
	AvailabilityByDay          map[time.Weekday]int `json:"availabilityByDay"`
	ID                         string               `json:"id"`
	Name                       string               `json:"name"`
	WeeklyCapacity             int                  `json:"weeklyCapacity"` // minutes per week
}

// ProjectSnapshot is the normalized projection of a project.
type ProjectSnapshot struct {
	StartDate   *time.Time       `json:"startDate,omitempty"`
	EndDate     *time.Time       `json:"endDate,omitempty"`
	Settings    *EngineOverrides `json:"settings,omitempty"`
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	TaskIDs     []string         `json:"taskIds"`
	WorkingDays []time.Weekday   `json:"workingDays"`
}
