package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors.
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrProjectNotFound    = errors.New("project not found")
	ErrEmptyTitle         = errors.New("title cannot be empty")
	ErrEmptyName          = errors.New("name cannot be empty")
	ErrNotInitialized     = errors.New("projex not initialized (run 'projex init' first)")
	ErrAlreadyDone        = errors.New("task already done")
	ErrUnknownStore       = errors.New("unknown store backend")
	ErrSelfDependency     = errors.New("task cannot depend on itself")
	ErrCycleDetected      = errors.New("circular dependency detected")
	ErrDependencyNotFound = errors.New("dependency not found")
	ErrInvalidSnapshot    = errors.New("invalid snapshot")
	ErrConfigExists       = errors.New("config file already exists")
	ErrMigrationConflict  = errors.New("destination already holds a different record")
	ErrNoLogs             = errors.New("no log file found")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
	ErrHasDependents      = errors.New("task has dependents")
	ErrInvalidPercent     = errors.New("percent done must be between 0 and 100")
	ErrSyncUnsupported    = errors.New("store backend does not support sync (use backend = \"git\")")
)

// CycleError reports a dependency cycle together with the offending path.
// The path starts and ends with the same id.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycleDetected, strings.Join(e.Path, " -> "))
}

// Unwrap returns ErrCycleDetected.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// MissingDependenciesError lists every dependency id that does not resolve to a task.
type MissingDependenciesError struct {
	IDs []string
}

func (e *MissingDependenciesError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDependencyNotFound, strings.Join(e.IDs, ", "))
}

// Unwrap returns ErrDependencyNotFound.
func (e *MissingDependenciesError) Unwrap() error {
	return ErrDependencyNotFound
}

// InvalidSnapshotError reports a persisted entity that cannot be normalized.
type InvalidSnapshotError struct {
	Kind   string // task, user, project
	ID     string
	Field  string
	Reason string
}

func (e *InvalidSnapshotError) Error() string {
	var b strings.Builder
	b.WriteString(ErrInvalidSnapshot.Error())
	b.WriteString(": ")
	b.WriteString(e.Kind)
	if e.ID != "" {
		b.WriteString(" " + e.ID)
	}
	if e.Field != "" {
		b.WriteString(" field " + e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	return b.String()
}

// Unwrap returns ErrInvalidSnapshot.
func (e *InvalidSnapshotError) Unwrap() error {
	return ErrInvalidSnapshot
}
