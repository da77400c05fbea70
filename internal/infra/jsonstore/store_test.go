package jsonstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "store.json"))
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return store
}

func TestStore_Initialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	store := New(path)

	if store.IsInitialized() {
		t.Fatal("IsInitialized() = true before Initialize")
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not created: %v", err)
	}
	if !store.IsInitialized() {
		t.Error("IsInitialized() = false after Initialize")
	}

	// Initialize again should be idempotent and keep data
	if err := store.SaveUser(&domain.UserRecord{ID: "u1", Name: "Ada"}); err != nil {
		t.Fatalf("SaveUser() error = %v", err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() second call error = %v", err)
	}
	if u, _ := store.GetUser("u1"); u == nil {
		t.Error("second Initialize dropped existing data")
	}
}

func TestStore_NotInitialized(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "store.json"))

	_, err := store.GetTask("a")
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("GetTask() error = %v, want ErrNotInitialized", err)
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	due := now.Add(48 * time.Hour)
	estimate := 90
	task := &domain.TaskRecord{
		ID:            "t1",
		Title:         "Test Task",
		Description:   "A test task",
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

	if err := store.SaveTask(task); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}

	got, err := store.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetTask() returned nil")
	}
	if got.Title != task.Title || got.Description != task.Description {
		t.Errorf("GetTask() = %+v, want %+v", got, task)
	}
	if got.Priority != task.Priority {
		t.Errorf("Priority = %+v, want %+v", got.Priority, task.Priority)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0].ID != "t0" {
		t.Errorf("Dependencies = %v, want [t0]", got.Dependencies)
	}
	if got.Project == nil || got.Project.ID != "p1" {
		t.Errorf("Project = %v, want p1", got.Project)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}
	if got.EstimatedTime == nil || *got.EstimatedTime != 90 {
		t.Errorf("EstimatedTime = %v, want 90", got.EstimatedTime)
	}

	missing, err := store.GetTask("nope")
	if err != nil || missing != nil {
		t.Errorf("GetTask(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestStore_SaveRejectsEmptyID(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveTask(&domain.TaskRecord{Title: "no id"})
	if !errors.Is(err, domain.ErrInvalidSnapshot) {
		t.Errorf("SaveTask() error = %v, want ErrInvalidSnapshot", err)
	}
}

func TestStore_ListTasks(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	records := []*domain.TaskRecord{
		{ID: "c", Title: "third", CreatedAt: base.Add(2 * time.Hour), Labels: domain.Refs("bug")},
		{ID: "a", Title: "first", CreatedAt: base, Labels: domain.Refs("bug", "ui")},
		{ID: "b", Title: "second", CreatedAt: base.Add(time.Hour), Done: true},
	}
	for _, r := range records {
		if err := store.SaveTask(r); err != nil {
			t.Fatalf("SaveTask() error = %v", err)
		}
	}

	open := false
	tests := []struct {
		name   string
		filter domain.TaskFilter
		want   []string
	}{
		{"all ordered by creation", domain.TaskFilter{}, []string{"a", "b", "c"}},
		{"open only", domain.TaskFilter{Done: &open}, []string{"a", "c"}},
		{"labels AND", domain.TaskFilter{Labels: []string{"bug", "ui"}}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListTasks(tt.filter)
			if err != nil {
				t.Fatalf("ListTasks() error = %v", err)
			}
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Errorf("ListTasks() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestStore_UsersAndProjects(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"u2", "u1"} {
		if err := store.SaveUser(&domain.UserRecord{ID: id, Name: id, WeeklyCapacity: 600}); err != nil {
			t.Fatalf("SaveUser() error = %v", err)
		}
	}
	if err := store.SaveProject(&domain.ProjectRecord{ID: "p1", Name: "Platform", Tasks: domain.Refs("t1")}); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}

	users, err := store.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 || users[0].ID != "u1" || users[0].WeeklyCapacity != 600 {
		t.Errorf("ListUsers() = %+v", users)
	}

	projects, err := store.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 1 || len(projects[0].Tasks) != 1 || projects[0].Tasks[0].ID != "t1" {
		t.Errorf("ListProjects() = %+v", projects)
	}
}

func TestStore_DeleteTask(t *testing.T) {
	store := newTestStore(t)
	_ = store.SaveTask(&domain.TaskRecord{ID: "t1", Title: "doomed"})

	if err := store.DeleteTask("t1"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if got, _ := store.GetTask("t1"); got != nil {
		t.Error("task still present after DeleteTask")
	}
}

func TestStore_Atomic_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	_ = store.SaveTask(&domain.TaskRecord{ID: "t1", Title: "original"})
	boom := errors.New("validation failed")

	err := store.Atomic(func(tx domain.EntityStore) error {
		rec, _ := tx.GetTask("t1")
		rec.Title = "changed"
		if err := tx.SaveTask(rec); err != nil {
			return err
		}
		return tx.SaveTask(&domain.TaskRecord{ID: "t2", Title: "new"})
	})
	if err != nil {
		t.Fatalf("Atomic() error = %v", err)
	}

	err = store.Atomic(func(tx domain.EntityStore) error {
		_ = tx.SaveTask(&domain.TaskRecord{ID: "t3", Title: "never"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Atomic() error = %v, want %v", err, boom)
	}

	if got, _ := store.GetTask("t1"); got.Title != "changed" {
		t.Errorf("t1 title = %q, want changed", got.Title)
	}
	if got, _ := store.GetTask("t3"); got != nil {
		t.Error("write from a failed Atomic was committed")
	}
}

func TestStore_Atomic_Serializes(t *testing.T) {
	store := newTestStore(t)
	_ = store.SaveUser(&domain.UserRecord{ID: "counter", Name: "c"})

	const workers = 8
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Atomic(func(tx domain.EntityStore) error {
				u, _ := tx.GetUser("counter")
				u.WeeklyCapacity++
				return tx.SaveUser(u)
			})
			if err != nil {
				t.Errorf("Atomic() error = %v", err)
			}
		}()
	}
	wg.Wait()

	u, _ := store.GetUser("counter")
	if u.WeeklyCapacity != workers {
		t.Errorf("WeeklyCapacity = %d, want %d (lost update)", u.WeeklyCapacity, workers)
	}
}

func TestStore_ReadsPopulatedReferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	content := `{
  "tasks": {
    "t2": {"title": "Build", "priority": "low", "dependencies": [{"_id": "t1", "title": "Design"}], "done": false}
  }
}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	store := New(path)

	got, err := store.GetTask("t2")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.ID != "t2" {
		t.Errorf("ID = %q, want key t2", got.ID)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0].ID != "t1" {
		t.Errorf("Dependencies = %v, want [t1]", got.Dependencies)
	}
	if users, _ := store.ListUsers(); len(users) != 0 {
		t.Errorf("ListUsers() = %v, want empty", users)
	}
}
