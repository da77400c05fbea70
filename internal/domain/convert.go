package domain

import (
	"strings"
	"time"
)

// ToTaskSnapshot normalizes a persisted task into a TaskSnapshot.
// References collapse to plain ids, duplicates and self-references are dropped
// from the dependency list, percentDone is clamped to 0..100 and an unreadable
// priority degrades through PriorityValue.Normalize.
// Only a nil record or a missing id is reported as ErrInvalidSnapshot.
func ToTaskSnapshot(rec *TaskRecord) (TaskSnapshot, error) {
	if rec == nil {
		return TaskSnapshot{}, &InvalidSnapshotError{Kind: "task", Reason: "record is nil"}
	}
	if rec.ID == "" {
		return TaskSnapshot{}, &InvalidSnapshotError{Kind: "task", Field: "id", Reason: "missing"}
	}
	snap := TaskSnapshot{
		ID:            rec.ID,
		Title:         rec.Title,
		Assignees:     uniqueIDs(rec.Assignees, ""),
		Labels:        uniqueIDs(rec.Labels, ""),
		Dependencies:  uniqueIDs(rec.Dependencies, rec.ID),
		Priority:      rec.Priority.Normalize(),
		PercentDone:   clamp(rec.PercentDone, 0, 100),
		EstimatedTime: copyInt(rec.EstimatedTime),
		ActualTime:    copyInt(rec.ActualTime),
		DueDate:       copyTime(rec.DueDate),
		StartDate:     copyTime(rec.StartDate),
		EndDate:       copyTime(rec.EndDate),
		DoneAt:        copyTime(rec.DoneAt),
		Done:          rec.Done,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	if rec.Project != nil && rec.Project.ID != "" {
		id := rec.Project.ID
		snap.ProjectID = &id
	}
	return snap, nil
}

// ToTaskSnapshots converts a batch of records. Records that cannot be converted
// are left out of snaps and reported in skipped, so one damaged record never
// hides the rest.
func ToTaskSnapshots(recs []*TaskRecord) (snaps []TaskSnapshot, skipped []error) {
	snaps = make([]TaskSnapshot, 0, len(recs))
	for _, rec := range recs {
		snap, err := ToTaskSnapshot(rec)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, skipped
}

// ToUserSnapshot normalizes a persisted user.
// Non-positive capacities are kept as 0 so the workload engine can apply its default.
func ToUserSnapshot(rec *UserRecord) (UserSnapshot, error) {
	if rec == nil {
		return UserSnapshot{}, &InvalidSnapshotError{Kind: "user", Reason: "record is nil"}
	}
	if rec.ID == "" {
		return UserSnapshot{}, &InvalidSnapshotError{Kind: "user", Field: "id", Reason: "missing"}
	}
	availability := make(map[time.Weekday]int, len(rec.AvailabilityByDay))
	for name, minutes := range rec.AvailabilityByDay {
		day, ok := ParseWeekday(name)
		if !ok {
			return UserSnapshot{}, &InvalidSnapshotError{Kind: "user", ID: rec.ID, Field: "availabilityByDay", Reason: "unknown weekday " + name}
		}
		availability[day] = minutes
	}
	return UserSnapshot{
		ID:                         rec.ID,
		Name:                       rec.Name,
		WeeklyCapacity:             max(rec.WeeklyCapacity, 0),
		HistoricalAverageByLabel:   copyMap(rec.HistoricalAverageByLabel),
		HistoricalAverageByProject: copyMap(rec.HistoricalAverageByProject),
		AvailabilityByDay:          availability,
	}, nil
}

// ToProjectSnapshot normalizes a persisted project.
func ToProjectSnapshot(rec *ProjectRecord) (ProjectSnapshot, error) {
	if rec == nil {
		return ProjectSnapshot{}, &InvalidSnapshotError{Kind: "project", Reason: "record is nil"}
	}
	if rec.ID == "" {
		return ProjectSnapshot{}, &InvalidSnapshotError{Kind: "project", Field: "id", Reason: "missing"}
	}
	days := make([]time.Weekday, 0, len(rec.WorkingDays))
	seen := make(map[time.Weekday]bool, len(rec.WorkingDays))
	for _, name := range rec.WorkingDays {
		day, ok := ParseWeekday(name)
		if !ok {
			return ProjectSnapshot{}, &InvalidSnapshotError{Kind: "project", ID: rec.ID, Field: "workingDays", Reason: "unknown weekday " + name}
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return ProjectSnapshot{
		ID:          rec.ID,
		Name:        rec.Name,
		TaskIDs:     uniqueIDs(rec.Tasks, ""),
		StartDate:   copyTime(rec.StartDate),
		EndDate:     copyTime(rec.EndDate),
		WorkingDays: days,
		Settings:    rec.Settings,
	}, nil
}

// ParseWeekday parses a weekday name ("monday", "Mon") case-insensitively.
func ParseWeekday(name string) (time.Weekday, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) < 3 {
		return 0, false
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, true
		}
	}
	return 0, false
}

// uniqueIDs flattens refs to ids, dropping empties, duplicates and exclude.
func uniqueIDs(refs []Ref, exclude string) []string {
	ids := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref.ID == "" || ref.ID == exclude || seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true
		ids = append(ids, ref.ID)
	}
	return ids
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
