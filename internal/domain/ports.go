package domain

import "time"

// StoreInitializer initializes the data store.
type StoreInitializer interface {
	// Initialize creates the store if it doesn't exist.
	Initialize() error

	// IsInitialized returns true if the store has been initialized.
	IsInitialized() bool
}

// EntityStore reads and writes persisted entities.
// Get methods return nil without error when the entity does not exist.
type EntityStore interface {
	GetTask(id string) (*TaskRecord, error)
	GetUser(id string) (*UserRecord, error)
	GetProject(id string) (*ProjectRecord, error)

	// ListTasks retrieves tasks matching the filter, ordered by creation time then id.
	ListTasks(filter TaskFilter) ([]*TaskRecord, error)
	ListUsers() ([]*UserRecord, error)
	ListProjects() ([]*ProjectRecord, error)

	SaveTask(task *TaskRecord) error
	SaveUser(user *UserRecord) error
	SaveProject(project *ProjectRecord) error

	DeleteTask(id string) error
}

// Repository is an EntityStore that can run a read-validate-write sequence atomically.
type Repository interface {
	EntityStore

	// Atomic runs fn inside a critical section. Writes made through tx are
	// committed only when fn returns nil.
	Atomic(fn func(tx EntityStore) error) error
}

// TaskFilter specifies criteria for listing tasks.
// Fields are ordered to minimize memory padding.
type TaskFilter struct {
	Done      *bool    // nil = any
	ProjectID string   // empty = all projects
	Assignee  string   // empty = any assignee
	Labels    []string // Filter by labels (AND condition)
}

// Matches reports whether rec satisfies the filter.
func (f TaskFilter) Matches(rec *TaskRecord) bool {
	if f.Done != nil && rec.Done != *f.Done {
		return false
	}
	if f.ProjectID != "" && (rec.Project == nil || rec.Project.ID != f.ProjectID) {
		return false
	}
	if f.Assignee != "" && !containsRef(rec.Assignees, f.Assignee) {
		return false
	}
	for _, label := range f.Labels {
		if !containsRef(rec.Labels, label) {
			return false
		}
	}
	return true
}

func containsRef(refs []Ref, id string) bool {
	for _, r := range refs {
		if r.ID == id {
			return true
		}
	}
	return false
}

// EdgeLookup exposes the dependency edges of the task graph.
type EdgeLookup interface {
	// DependenciesOf returns the ids the task depends on.
	DependenciesOf(id string) ([]string, error)

	// DependentsOf returns the ids of tasks that depend on the task.
	DependentsOf(id string) ([]string, error)

	// Exists reports whether a task with the id exists.
	Exists(id string) (bool, error)
}

// TaskLookup resolves a task id to its snapshot. Returns nil if not found.
type TaskLookup interface {
	Task(id string) (*TaskSnapshot, error)
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (default + global + repo).
	Load() (*Config, error)

	// LoadEngineConfig returns the engine configuration with project settings applied.
	LoadEngineConfig(project *ProjectSnapshot) (EngineConfig, error)
}

// ConfigInfo describes a configuration file.
type ConfigInfo struct {
	Path    string // Absolute path to the file
	Content string // File content (empty if not exists)
	Exists  bool   // Whether the file exists
}

// ConfigManager inspects and creates configuration files.
type ConfigManager interface {
	GetRepoConfigInfo() ConfigInfo
	GetGlobalConfigInfo() ConfigInfo

	// InitRepoConfig writes the default template to the repository config file.
	// Returns ErrConfigExists if the file is already present.
	InitRepoConfig() error

	// InitGlobalConfig writes the default template to the global config file.
	InitGlobalConfig() error
}

// Notifier receives side effects of task transitions, such as tasks becoming unblocked.
type Notifier interface {
	TaskUnblocked(task TaskSnapshot, completedID string)
}

// Logger writes categorized log lines, optionally scoped to a task.
// An empty taskID logs globally only.
type Logger interface {
	Info(taskID, category, msg string)
	Debug(taskID, category, msg string)
	Warn(taskID, category, msg string)
	Error(taskID, category, msg string)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Syncer exchanges the store with a remote. Only the git backend implements it.
type Syncer interface {
	Push() error
	Fetch() error
}
