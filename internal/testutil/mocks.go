// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockRepository is an in-memory domain.Repository.
// Get methods return copies so callers cannot mutate stored records in place.
// Fields are ordered to minimize memory padding.
type MockRepository struct {
	Tasks       map[string]*domain.TaskRecord
	Users       map[string]*domain.UserRecord
	Projects    map[string]*domain.ProjectRecord
	SaveErr     error
	GetErr      error
	ListErr     error
	AtomicCalls int
	mu          sync.Mutex
	Initialized bool
}

// NewMockRepository creates a new MockRepository with initialized maps.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		Tasks:       make(map[string]*domain.TaskRecord),
		Users:       make(map[string]*domain.UserRecord),
		Projects:    make(map[string]*domain.ProjectRecord),
		Initialized: true,
	}
}

// Initialize marks the repository as initialized.
func (m *MockRepository) Initialize() error {
	m.Initialized = true
	return nil
}

// IsInitialized returns the configured value.
func (m *MockRepository) IsInitialized() bool {
	return m.Initialized
}

// AddTask stores a task record directly, bypassing SaveErr.
func (m *MockRepository) AddTask(rec *domain.TaskRecord) {
	m.Tasks[rec.ID] = rec
}

// GetTask retrieves a task by ID.
func (m *MockRepository) GetTask(id string) (*domain.TaskRecord, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	t, ok := m.Tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// GetUser retrieves a user by ID.
func (m *MockRepository) GetUser(id string) (*domain.UserRecord, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// GetProject retrieves a project by ID.
func (m *MockRepository) GetProject(id string) (*domain.ProjectRecord, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.Projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// ListTasks returns matching tasks ordered by creation time then id.
func (m *MockRepository) ListTasks(filter domain.TaskFilter) ([]*domain.TaskRecord, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	tasks := make([]*domain.TaskRecord, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		if filter.Matches(t) {
			cp := *t
			tasks = append(tasks, &cp)
		}
	}
	slices.SortFunc(tasks, func(a, b *domain.TaskRecord) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return tasks, nil
}

// ListUsers returns all users ordered by id.
func (m *MockRepository) ListUsers() ([]*domain.UserRecord, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	users := make([]*domain.UserRecord, 0, len(m.Users))
	for _, u := range m.Users {
		cp := *u
		users = append(users, &cp)
	}
	slices.SortFunc(users, func(a, b *domain.UserRecord) int { return strings.Compare(a.ID, b.ID) })
	return users, nil
}

// ListProjects returns all projects ordered by id.
func (m *MockRepository) ListProjects() ([]*domain.ProjectRecord, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	projects := make([]*domain.ProjectRecord, 0, len(m.Projects))
	for _, p := range m.Projects {
		cp := *p
		projects = append(projects, &cp)
	}
	slices.SortFunc(projects, func(a, b *domain.ProjectRecord) int { return strings.Compare(a.ID, b.ID) })
	return projects, nil
}

// SaveTask saves a task.
func (m *MockRepository) SaveTask(task *domain.TaskRecord) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Tasks[task.ID] = task
	return nil
}

// SaveUser saves a user.
func (m *MockRepository) SaveUser(user *domain.UserRecord) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Users[user.ID] = user
	return nil
}

// SaveProject saves a project.
func (m *MockRepository) SaveProject(project *domain.ProjectRecord) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Projects[project.ID] = project
	return nil
}

// DeleteTask removes a task by ID.
func (m *MockRepository) DeleteTask(id string) error {
	delete(m.Tasks, id)
	return nil
}

// Atomic runs fn against a scratch copy and commits it only when fn succeeds.
func (m *MockRepository) Atomic(fn func(tx domain.EntityStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AtomicCalls++

	tx := &MockRepository{
		Tasks:    maps(m.Tasks),
		Users:    maps(m.Users),
		Projects: maps(m.Projects),
		SaveErr:  m.SaveErr,
		GetErr:   m.GetErr,
		ListErr:  m.ListErr,
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.Tasks, m.Users, m.Projects = tx.Tasks, tx.Users, tx.Projects
	return nil
}

func maps[V any](src map[string]*V) map[string]*V {
	dst := make(map[string]*V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// LogEntry is one line captured by MockLogger.
type LogEntry struct {
	Level    string
	TaskID   string
	Category string
	Msg      string
}

// String renders the entry like the file logger does, without the timestamp.
func (e LogEntry) String() string {
	scope := "global"
	if e.TaskID != "" {
		scope = "task-" + e.TaskID
	}
	return fmt.Sprintf("[%s] [%s] [%s] %s", e.Level, scope, e.Category, e.Msg)
}

// MockLogger is a test double for domain.Logger that records every entry.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

func (m *MockLogger) add(level, taskID, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, TaskID: taskID, Category: category, Msg: msg})
}

// Info records an INFO entry.
func (m *MockLogger) Info(taskID, category, msg string) { m.add("INFO", taskID, category, msg) }

// Debug records a DEBUG entry.
func (m *MockLogger) Debug(taskID, category, msg string) { m.add("DEBUG", taskID, category, msg) }

// Warn records a WARN entry.
func (m *MockLogger) Warn(taskID, category, msg string) { m.add("WARN", taskID, category, msg) }

// Error records an ERROR entry.
func (m *MockLogger) Error(taskID, category, msg string) { m.add("ERROR", taskID, category, msg) }

// MockNotifier is a test double for domain.Notifier.
type MockNotifier struct {
	Unblocked []string // "<task>:<completed>"
}

// TaskUnblocked records the notification.
func (m *MockNotifier) TaskUnblocked(task domain.TaskSnapshot, completedID string) {
	m.Unblocked = append(m.Unblocked, task.ID+":"+completedID)
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config  *domain.Config
	LoadErr error
}

// NewMockConfigLoader returns a loader serving the default configuration.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{Config: domain.NewDefaultConfig()}
}

// Load returns the configured config.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// LoadEngineConfig resolves the engine config with project settings applied.
func (m *MockConfigLoader) LoadEngineConfig(project *domain.ProjectSnapshot) (domain.EngineConfig, error) {
	cfg, err := m.Load()
	if err != nil {
		return domain.EngineConfig{}, err
	}
	return cfg.ResolveEngine(project), nil
}

// MockConfigManager is a test double for domain.ConfigManager.
// Fields are ordered to minimize memory padding.
type MockConfigManager struct {
	InitRepoErr      error
	InitGlobalErr    error
	RepoConfigInfo   domain.ConfigInfo
	GlobalConfigInfo domain.ConfigInfo
	InitRepoCalled   bool
	InitGlobalCalled bool
}

// NewMockConfigManager creates a new MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{}
}

// GetRepoConfigInfo returns the configured repository config info.
func (m *MockConfigManager) GetRepoConfigInfo() domain.ConfigInfo {
	return m.RepoConfigInfo
}

// GetGlobalConfigInfo returns the configured global config info.
func (m *MockConfigManager) GetGlobalConfigInfo() domain.ConfigInfo {
	return m.GlobalConfigInfo
}

// InitRepoConfig records the call.
func (m *MockConfigManager) InitRepoConfig() error {
	m.InitRepoCalled = true
	return m.InitRepoErr
}

// InitGlobalConfig records the call.
func (m *MockConfigManager) InitGlobalConfig() error {
	m.InitGlobalCalled = true
	return m.InitGlobalErr
}
