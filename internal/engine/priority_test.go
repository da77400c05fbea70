package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func factorByName(t *testing.T, factors []Factor, name string) Factor {
	t.Helper()
	for _, f := range factors {
		if f.Name == name {
			return f
		}
	}
	require.Failf(t, "factor not found", "%s", name)
	return Factor{}
}

func TestCalculatePriority_NeutralBaseline(t *testing.T) {
	// Setup
	tk := task("A")

	// Execute
	got := CalculatePriority(tk, now, domain.NewDefaultEngineConfig(), PriorityOptions{})

	// Assert
	assert.Equal(t, 50, got.Score)
	assert.Empty(t, got.Reasons)
	assert.Equal(t, "Standard priority based on default factors.", got.Explanation)
	assert.Len(t, got.Factors, 6)
}

func TestCalculatePriority_DueTodayHighPriorityBlocked(t *testing.T) {
	// Setup
	tk := task("B")
	tk.Priority = domain.PriorityMax
	tk.DueDate = at(0)

	// Execute
	got := CalculatePriority(tk, now, domain.NewDefaultEngineConfig(), PriorityOptions{IncompleteDependencyCount: 2})

	// Assert
	assert.InDelta(t, 10, factorByName(t, got.Factors, FactorUrgency).Impact, 0.01)
	assert.InDelta(t, 2, factorByName(t, got.Factors, FactorManualPriority).Impact, 0.01)
	assert.InDelta(t, 4, factorByName(t, got.Factors, FactorBlocking).Impact, 0.01)
	assert.Equal(t, 66, got.Score)
	assert.Contains(t, got.Reasons, "due today")
	assert.Contains(t, got.Reasons, "blocks 2 tasks")
	assert.Equal(t, "Due today, high manual priority, blocks 2 tasks.", got.Explanation)
}

func TestCalculatePriority_DueDateInCalendarDays(t *testing.T) {
	cfg := domain.NewDefaultEngineConfig()
	midnight := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		due        time.Time
		wantScore  int
		wantReason string
	}{
		{name: "date-only due today", due: midnight, wantScore: 60, wantReason: "due today"},
		{name: "deadline passed an hour ago", due: now.Add(-time.Hour), wantScore: 60, wantReason: "due today"},
		{name: "late last night", due: midnight.Add(-time.Hour), wantScore: 52, wantReason: "overdue by 1 day"},
		{name: "early tomorrow", due: midnight.Add(25 * time.Hour), wantScore: 58, wantReason: "due tomorrow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := task("T")
			tk.DueDate = &tt.due

			got := CalculatePriority(tk, now, cfg, PriorityOptions{})

			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, []string{tt.wantReason}, got.Reasons)
		})
	}
}

func TestCalculatePriority_DueDateUsesClockLocation(t *testing.T) {
	// 23:30 on the 9th in UTC is already the 10th in Tokyo.
	tokyo := time.FixedZone("JST", 9*60*60)
	due := time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)
	tk := task("T")
	tk.DueDate = &due

	got := CalculatePriority(tk, now.In(tokyo), domain.NewDefaultEngineConfig(), PriorityOptions{})

	assert.Contains(t, got.Reasons, "due today")
}

func TestCalculatePriority_Factors(t *testing.T) {
	cfg := domain.NewDefaultEngineConfig()
	ratio := func(v float64) *float64 { return &v }

	tests := []struct {
		name       string
		mutate     func(*domain.TaskSnapshot)
		opts       PriorityOptions
		wantScore  int
		wantReason string
	}{
		{
			name:       "due tomorrow",
			mutate:     func(tk *domain.TaskSnapshot) { tk.DueDate = at(30 * time.Hour) },
			wantScore:  58, // 10*e^-0.2 = 8.19
			wantReason: "due tomorrow",
		},
		{
			name:       "due in several days",
			mutate:     func(tk *domain.TaskSnapshot) { tk.DueDate = at(5 * 24 * time.Hour) },
			wantScore:  54, // 10*e^-1 = 3.68
			wantReason: "due in 5 days",
		},
		{
			name:       "overdue",
			mutate:     func(tk *domain.TaskSnapshot) { tk.DueDate = at(-(3*24 + 5) * time.Hour) },
			wantScore:  56,
			wantReason: "overdue by 3 days",
		},
		{
			name: "overdue but done",
			mutate: func(tk *domain.TaskSnapshot) {
				tk.DueDate = at(-72 * time.Hour)
				tk.Done = true
			},
			wantScore: 50,
		},
		{
			name:       "low priority",
			mutate:     func(tk *domain.TaskSnapshot) { tk.Priority = domain.PriorityMin },
			wantScore:  48,
			wantReason: "low manual priority",
		},
		{
			name:       "partially complete",
			mutate:     func(tk *domain.TaskSnapshot) { tk.PercentDone = 75 },
			wantScore:  50,
			wantReason: "75% complete",
		},
		{
			name:       "single blocker",
			opts:       PriorityOptions{IncompleteDependencyCount: 1},
			wantScore:  52,
			wantReason: "blocks 1 task",
		},
		{
			name:       "overloaded assignee",
			opts:       PriorityOptions{WorkloadRatio: ratio(1.5)},
			wantScore:  48,
			wantReason: "assignee is overloaded",
		},
		{
			name:       "available assignee",
			opts:       PriorityOptions{WorkloadRatio: ratio(0.2)},
			wantScore:  54,
			wantReason: "assignee has spare capacity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := task("T")
			if tt.mutate != nil {
				tt.mutate(&tk)
			}

			got := CalculatePriority(tk, now, cfg, tt.opts)

			assert.Equal(t, tt.wantScore, got.Score)
			if tt.wantReason != "" {
				assert.Contains(t, got.Reasons, tt.wantReason)
			} else {
				assert.Empty(t, got.Reasons)
			}
		})
	}
}

func TestCalculatePriority_StaysInBounds(t *testing.T) {
	cfg := domain.NewDefaultEngineConfig()
	huge := math.Inf(1)

	tests := []struct {
		name string
		tk   domain.TaskSnapshot
		opts PriorityOptions
		want int
	}{
		{
			name: "years overdue",
			tk: func() domain.TaskSnapshot {
				tk := task("T")
				tk.DueDate = at(-5 * 365 * 24 * time.Hour)
				return tk
			}(),
			want: 100,
		},
		{
			name: "many blockers",
			tk:   task("T"),
			opts: PriorityOptions{IncompleteDependencyCount: 1000},
			want: 100,
		},
		{
			name: "infinite workload",
			tk:   task("T"),
			opts: PriorityOptions{WorkloadRatio: &huge},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePriority(tt.tk, now, cfg, tt.opts)

			assert.Equal(t, tt.want, got.Score)
			assert.GreaterOrEqual(t, got.Score, 0)
			assert.LessOrEqual(t, got.Score, 100)
		})
	}
}

func TestCalculatePriority_ZeroWeightHidesReason(t *testing.T) {
	cfg := domain.NewDefaultEngineConfig()
	cfg.Weights.Dependencies = 0

	got := CalculatePriority(task("T"), now, cfg, PriorityOptions{IncompleteDependencyCount: 3})

	assert.Equal(t, 50, got.Score)
	assert.Empty(t, got.Reasons)
}

func TestCalculatePriorities_StableDescending(t *testing.T) {
	// Setup
	high := task("high")
	high.Priority = domain.PriorityMax
	inputs := []PriorityInput{
		{Task: task("first")},
		{Task: high},
		{Task: task("second")},
		{Task: task("blocked"), Options: PriorityOptions{IncompleteDependencyCount: 3}},
	}

	// Execute
	got := CalculatePriorities(inputs, now, domain.NewDefaultEngineConfig())

	// Assert
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.TaskID)
	}
	assert.Equal(t, []string{"blocked", "high", "first", "second"}, ids)
}
