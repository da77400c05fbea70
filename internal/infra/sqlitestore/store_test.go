package sqlitestore

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "projex.db"))
	require.NoError(t, store.Initialize())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Initialize(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "nested", "projex.db"))
	t.Cleanup(func() { _ = store.Close() })

	assert.False(t, store.IsInitialized())
	require.NoError(t, store.Initialize())
	assert.True(t, store.IsInitialized())

	require.NoError(t, store.SaveUser(&domain.UserRecord{ID: "u1", Name: "Ada"}))
	require.NoError(t, store.Initialize(), "Initialize is idempotent")

	u, err := store.GetUser("u1")
	require.NoError(t, err)
	require.NotNil(t, u, "second Initialize kept existing rows")
}

func TestStore_NotInitialized(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "projex.db"))

	_, err := store.GetTask("a")

	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestStore_SaveAndGetTask(t *testing.T) {
	// Setup
	store := newTestStore(t)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)
	estimate := 90
	task := &domain.TaskRecord{
		ID:            "t1",
		Title:         "Test Task",
		Priority:      domain.PriorityNamed("high"),
		Assignees:     domain.Refs("u1"),
		Labels:        domain.Refs("bug"),
		Dependencies:  domain.Refs("t0"),
		Project:       &domain.Ref{ID: "p1"},
		EstimatedTime: &estimate,
		DueDate:       &due,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Execute
	require.NoError(t, store.SaveTask(task))
	got, err := store.GetTask("t1")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Test Task", got.Title)
	assert.Equal(t, domain.Refs("t0"), got.Dependencies)
	assert.Equal(t, "p1", got.Project.ID)
	assert.Equal(t, 90, *got.EstimatedTime)
	assert.True(t, due.Equal(*got.DueDate))
	assert.True(t, now.Equal(got.CreatedAt))
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	task, err := store.GetTask("ghost")
	require.NoError(t, err)
	assert.Nil(t, task)

	project, err := store.GetProject("ghost")
	require.NoError(t, err)
	assert.Nil(t, project)
}

func TestStore_SaveRejectsEmptyID(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveTask(&domain.TaskRecord{Title: "no id"})

	var invalid *domain.InvalidSnapshotError
	assert.True(t, errors.As(err, &invalid))
}

func TestStore_ListTasks(t *testing.T) {
	// Setup
	store := newTestStore(t)
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	records := []*domain.TaskRecord{
		{ID: "b", Title: "second", CreatedAt: base.Add(time.Second), Project: &domain.Ref{ID: "p1"}, Labels: domain.Refs("ui")},
		{ID: "a", Title: "first", CreatedAt: base, Assignees: domain.Refs("u1")},
		{ID: "c", Title: "done", CreatedAt: base.Add(2 * time.Second), Done: true, Project: &domain.Ref{ID: "p1"}},
		{ID: "d", Title: "same instant", CreatedAt: base.Add(time.Second)},
	}
	for _, r := range records {
		require.NoError(t, store.SaveTask(r))
	}
	open := false

	tests := []struct {
		name   string
		filter domain.TaskFilter
		want   []string
	}{
		{name: "all ordered by creation then id", want: []string{"a", "b", "d", "c"}},
		{name: "open only", filter: domain.TaskFilter{Done: &open}, want: []string{"a", "b", "d"}},
		{name: "by project", filter: domain.TaskFilter{ProjectID: "p1"}, want: []string{"b", "c"}},
		{name: "by assignee", filter: domain.TaskFilter{Assignee: "u1"}, want: []string{"a"}},
		{name: "by label", filter: domain.TaskFilter{Labels: []string{"ui"}}, want: []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := store.ListTasks(tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(tasks))
			for _, task := range tasks {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_UpdateReplacesRow(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveTask(&domain.TaskRecord{ID: "t1", Title: "before"}))

	require.NoError(t, store.SaveTask(&domain.TaskRecord{ID: "t1", Title: "after", Done: true}))

	done := true
	tasks, err := store.ListTasks(domain.TaskFilter{Done: &done})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "after", tasks[0].Title)
}

func TestStore_DeleteTask(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveTask(&domain.TaskRecord{ID: "t1", Title: "x"}))

	require.NoError(t, store.DeleteTask("t1"))

	got, err := store.GetTask("t1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_UsersAndProjects(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveUser(&domain.UserRecord{ID: "u2", Name: "Grace", WeeklyCapacity: 1200}))
	require.NoError(t, store.SaveUser(&domain.UserRecord{
		ID:                       "u1",
		Name:                     "Ada",
		HistoricalAverageByLabel: map[string]int{"bug": 45},
	}))
	weight := 0.0
	require.NoError(t, store.SaveProject(&domain.ProjectRecord{
		ID:       "p1",
		Name:     "Platform",
		Tasks:    domain.Refs("t1"),
		Settings: &domain.EngineOverrides{Weights: &domain.WeightOverrides{ManualPriority: &weight}},
	}))

	users, err := store.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, 45, users[0].HistoricalAverageByLabel["bug"])
	assert.Equal(t, 1200, users[1].WeeklyCapacity)

	projects, err := store.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.NotNil(t, projects[0].Settings)
	require.NotNil(t, projects[0].Settings.Weights.ManualPriority)
	assert.Zero(t, *projects[0].Settings.Weights.ManualPriority)
}

func TestStore_Atomic_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveTask(&domain.TaskRecord{ID: "t1", Title: "keep"}))

	errAbort := errors.New("abort")
	err := store.Atomic(func(tx domain.EntityStore) error {
		if err := tx.SaveTask(&domain.TaskRecord{ID: "t2", Title: "discard"}); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		got, err := tx.GetTask("t2")
		if err != nil || got == nil {
			t.Errorf("GetTask inside tx = %v, %v", got, err)
		}
		return errAbort
	})

	assert.ErrorIs(t, err, errAbort)
	got, err := store.GetTask("t2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_Atomic_Commits(t *testing.T) {
	store := newTestStore(t)

	err := store.Atomic(func(tx domain.EntityStore) error {
		if err := tx.SaveTask(&domain.TaskRecord{ID: "t1", Title: "a"}); err != nil {
			return err
		}
		return tx.SaveProject(&domain.ProjectRecord{ID: "p1", Name: "P", Tasks: domain.Refs("t1")})
	})

	require.NoError(t, err)
	project, err := store.GetProject("p1")
	require.NoError(t, err)
	require.NotNil(t, project)
	assert.Equal(t, domain.Refs("t1"), project.Tasks)
}

func TestStore_Atomic_Serializes(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveUser(&domain.UserRecord{ID: "u1", Name: "counter"}))

	const workers = 8
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Atomic(func(tx domain.EntityStore) error {
				u, err := tx.GetUser("u1")
				if err != nil {
					return err
				}
				u.WeeklyCapacity++
				return tx.SaveUser(u)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	u, err := store.GetUser("u1")
	require.NoError(t, err)
	assert.Equal(t, workers, u.WeeklyCapacity)
}
