// Package domain contains core business entities and interfaces.
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Ref is a reference to another entity as it appears in persisted documents.
// Documents may hold either the raw id ("t-1") or a populated sub-document
// ({"_id": "t-1", "title": ...}); both decode to the same Ref.
// Ref always encodes back to the plain id.
type Ref struct {
	ID string
}

// UnmarshalJSON accepts a string id or an object carrying "_id" or "id".
func (r *Ref) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		r.ID = id
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("reference must be an id or an object: %w", err)
	}
	r.ID = idFromDocument(doc)
	return nil
}

// MarshalJSON encodes the reference as its plain id.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// UnmarshalYAML accepts a scalar id or a mapping carrying "_id" or "id".
func (r *Ref) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		r.ID = value.Value
		return nil
	case yaml.MappingNode:
		var doc map[string]any
		if err := value.Decode(&doc); err != nil {
			return err
		}
		r.ID = idFromDocument(doc)
		return nil
	default:
		return fmt.Errorf("line %d: reference must be an id or a mapping", value.Line)
	}
}

// MarshalYAML encodes the reference as its plain id.
func (r Ref) MarshalYAML() (any, error) {
	return r.ID, nil
}

func idFromDocument(doc map[string]any) string {
	for _, key := range []string{"_id", "id"} {
		switch v := doc[key].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

// Refs builds references from plain ids.
func Refs(ids ...string) []Ref {
	refs := make([]Ref, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, Ref{ID: id})
	}
	return refs
}

// PriorityValue is a persisted priority: either the enum name
// ("low", "medium", "high") or a number 1..5.
type PriorityValue struct {
	Name  string
	Level int
}

// PriorityLevel builds a numeric priority value.
func PriorityLevel(level int) PriorityValue {
	return PriorityValue{Level: level}
}

// PriorityNamed builds an enum priority value.
func PriorityNamed(name string) PriorityValue {
	return PriorityValue{Name: name}
}

// priorityNames maps the enum form onto the numeric scale.
var priorityNames = map[string]int{
	"low":    1,
	"medium": 3,
	"high":   5,
}

// IsZero reports whether no priority was set.
func (p PriorityValue) IsZero() bool {
	return p.Name == "" && p.Level == 0
}

// Resolve returns the numeric priority.
// An unset value resolves to PriorityDefault.
func (p PriorityValue) Resolve() (int, error) {
	if p.Name != "" {
		level, ok := priorityNames[strings.ToLower(strings.TrimSpace(p.Name))]
		if !ok {
			return 0, fmt.Errorf("unknown priority %q", p.Name)
		}
		return level, nil
	}
	if p.Level == 0 {
		return PriorityDefault, nil
	}
	if p.Level < PriorityMin || p.Level > PriorityMax {
		return 0, fmt.Errorf("priority %d out of range %d..%d", p.Level, PriorityMin, PriorityMax)
	}
	return p.Level, nil
}

// Normalize returns the numeric priority without failing: unknown names map to
// PriorityDefault and out-of-range levels are clamped to PriorityMin..PriorityMax.
func (p PriorityValue) Normalize() int {
	if level, err := p.Resolve(); err == nil {
		return level
	}
	if p.Name != "" {
		return PriorityDefault
	}
	return min(max(p.Level, PriorityMin), PriorityMax)
}

// UnmarshalJSON accepts a number or an enum name.
func (p *PriorityValue) UnmarshalJSON(data []byte) error {
	var level int
	if err := json.Unmarshal(data, &level); err == nil {
		*p = PriorityValue{Level: level}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("priority must be a number or a name: %w", err)
	}
	*p = parsePriorityString(name)
	return nil
}

// MarshalJSON encodes the value in the form it was given.
func (p PriorityValue) MarshalJSON() ([]byte, error) {
	if p.Name != "" {
		return json.Marshal(p.Name)
	}
	return json.Marshal(p.Level)
}

// UnmarshalYAML accepts a number or an enum name.
func (p *PriorityValue) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: priority must be a scalar", value.Line)
	}
	*p = parsePriorityString(value.Value)
	return nil
}

// MarshalYAML encodes the value in the form it was given.
func (p PriorityValue) MarshalYAML() (any, error) {
	if p.Name != "" {
		return p.Name, nil
	}
	return p.Level, nil
}

// ParsePriority parses a priority given as a name or a number and validates it.
// An empty string yields the zero value.
func ParsePriority(s string) (PriorityValue, error) {
	if strings.TrimSpace(s) == "" {
		return PriorityValue{}, nil
	}
	p := parsePriorityString(s)
	if _, err := p.Resolve(); err != nil {
		return PriorityValue{}, err
	}
	return p, nil
}

func parsePriorityString(s string) PriorityValue {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return PriorityValue{Level: n}
	}
	return PriorityValue{Name: s}
}

// TaskRecord is the persisted shape of a task.
// Fields are ordered to minimize memory padding.
type TaskRecord struct {
	CreatedAt     time.Time     `json:"createdAt" yaml:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" yaml:"updatedAt"`
	Project       *Ref          `json:"project,omitempty" yaml:"project,omitempty"`
	EstimatedTime *int          `json:"estimatedTime,omitempty" yaml:"estimatedTime,omitempty"`
	ActualTime    *int          `json:"actualTime,omitempty" yaml:"actualTime,omitempty"`
	DueDate       *time.Time    `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	StartDate     *time.Time    `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate       *time.Time    `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	DoneAt        *time.Time    `json:"doneAt,omitempty" yaml:"doneAt,omitempty"`
	ID            string        `json:"id" yaml:"id"`
	Title         string        `json:"title" yaml:"title"`
	Description   string        `json:"description,omitempty" yaml:"description,omitempty"`
	Priority      PriorityValue `json:"priority" yaml:"priority"`
	Assignees     []Ref         `json:"assignees,omitempty" yaml:"assignees,omitempty"`
	Labels        []Ref         `json:"labels,omitempty" yaml:"labels,omitempty"`
	Dependencies  []Ref         `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	PercentDone   int           `json:"percentDone,omitempty" yaml:"percentDone,omitempty"`
	Done          bool          `json:"done" yaml:"done"`
}

// DependencyIDs returns the plain ids of the task's dependencies.
func (t *TaskRecord) DependencyIDs() []string {
	ids := make([]string, 0, len(t.Dependencies))
	for _, ref := range t.Dependencies {
		ids = append(ids, ref.ID)
	}
	return ids
}

// UserRecord is the persisted shape of a user.
type UserRecord struct {
	HistoricalAverageByLabel   map[string]int `json:"historicalAverageByLabel,omitempty" yaml:"historicalAverageByLabel,omitempty"`
	HistoricalAverageByProject map[string]int `json:"historicalAverageByProject,omitempty" yaml:"historicalAverageByProject,omitempty"`
	AvailabilityByDay          map[string]int `json:"availabilityByDay,omitempty" yaml:"availabilityByDay,omitempty"` // weekday name -> minutes
	ID                         string         `json:"id" yaml:"id"`
	Name                       string         `json:"name" yaml:"name"`
	WeeklyCapacity             int            `json:"weeklyCapacity,omitempty" yaml:"weeklyCapacity,omitempty"`
}

// ProjectRecord is the persisted shape of a project.
type ProjectRecord struct {
	StartDate   *time.Time       `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate     *time.Time       `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Settings    *EngineOverrides `json:"settings,omitempty" yaml:"settings,omitempty"`
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Tasks       []Ref            `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	WorkingDays []string         `json:"workingDays,omitempty" yaml:"workingDays,omitempty"`
}
