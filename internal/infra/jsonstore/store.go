// Package jsonstore provides a JSON file-based implementation of domain.Repository.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// formatVersion is written to new store files.
const formatVersion = 1

// storeData represents the JSON file structure.
// Fields are ordered to minimize memory padding.
type storeData struct {
	Tasks    map[string]*domain.TaskRecord    `json:"tasks"`
	Users    map[string]*domain.UserRecord    `json:"users"`
	Projects map[string]*domain.ProjectRecord `json:"projects"`
	Meta     meta                             `json:"meta"`
}

// meta contains store metadata.
type meta struct {
	Version int `json:"version"`
}

// Store implements domain.Repository using a single JSON file.
// Every operation holds an flock on a sibling lock file, so separate
// processes sharing a workspace see a consistent file.
type Store struct {
	path     string
	lockPath string
}

// Ensure Store implements domain.Repository and domain.StoreInitializer.
var (
	_ domain.Repository       = (*Store)(nil)
	_ domain.StoreInitializer = (*Store)(nil)
)

// New creates a new Store for the given file path.
// The file does not need to exist; Initialize creates it.
func New(path string) *Store {
	return &Store{
		path:     path,
		lockPath: path + ".lock",
	}
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(id string) (*domain.TaskRecord, error) {
	var task *domain.TaskRecord
	err := s.withLock(func(tx *txStore) error {
		task, _ = tx.GetTask(id)
		return nil
	})
	return task, err
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(id string) (*domain.UserRecord, error) {
	var user *domain.UserRecord
	err := s.withLock(func(tx *txStore) error {
		user, _ = tx.GetUser(id)
		return nil
	})
	return user, err
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(id string) (*domain.ProjectRecord, error) {
	var project *domain.ProjectRecord
	err := s.withLock(func(tx *txStore) error {
		project, _ = tx.GetProject(id)
		return nil
	})
	return project, err
}

// ListTasks retrieves tasks matching the filter.
func (s *Store) ListTasks(filter domain.TaskFilter) ([]*domain.TaskRecord, error) {
	var tasks []*domain.TaskRecord
	err := s.withLock(func(tx *txStore) error {
		tasks, _ = tx.ListTasks(filter)
		return nil
	})
	return tasks, err
}

// ListUsers retrieves all users.
func (s *Store) ListUsers() ([]*domain.UserRecord, error) {
	var users []*domain.UserRecord
	err := s.withLock(func(tx *txStore) error {
		users, _ = tx.ListUsers()
		return nil
	})
	return users, err
}

// ListProjects retrieves all projects.
func (s *Store) ListProjects() ([]*domain.ProjectRecord, error) {
	var projects []*domain.ProjectRecord
	err := s.withLock(func(tx *txStore) error {
		projects, _ = tx.ListProjects()
		return nil
	})
	return projects, err
}

// SaveTask creates or updates a task.
func (s *Store) SaveTask(task *domain.TaskRecord) error {
	return s.withLockWrite(func(tx *txStore) error { return tx.SaveTask(task) })
}

// SaveUser creates or updates a user.
func (s *Store) SaveUser(user *domain.UserRecord) error {
	return s.withLockWrite(func(tx *txStore) error { return tx.SaveUser(user) })
}

// SaveProject creates or updates a project.
func (s *Store) SaveProject(project *domain.ProjectRecord) error {
	return s.withLockWrite(func(tx *txStore) error { return tx.SaveProject(project) })
}

// DeleteTask removes a task by ID.
func (s *Store) DeleteTask(id string) error {
	return s.withLockWrite(func(tx *txStore) error { return tx.DeleteTask(id) })
}

// Atomic runs fn under the exclusive lock against the decoded file.
// The file is rewritten only when fn returns nil.
func (s *Store) Atomic(fn func(tx domain.EntityStore) error) error {
	return s.withLockWrite(func(tx *txStore) error { return fn(tx) })
}

// IsInitialized checks if the store file exists.
func (s *Store) IsInitialized() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Initialize creates an empty store file if it doesn't exist.
func (s *Store) Initialize() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return nil // Already exists
	}

	return s.write(newStoreData())
}

func newStoreData() *storeData {
	return &storeData{
		Meta:     meta{Version: formatVersion},
		Tasks:    make(map[string]*domain.TaskRecord),
		Users:    make(map[string]*domain.UserRecord),
		Projects: make(map[string]*domain.ProjectRecord),
	}
}

// withLock executes fn with a shared (read) lock.
func (s *Store) withLock(fn func(*txStore) error) error {
	lock, err := s.acquireLock(syscall.LOCK_SH)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}

	return fn(&txStore{data: data})
}

// withLockWrite executes fn with an exclusive (write) lock and writes the result.
func (s *Store) withLockWrite(fn func(*txStore) error) error {
	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}

	if err := fn(&txStore{data: data}); err != nil {
		return err
	}

	return s.write(data)
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	dir := filepath.Dir(s.lockPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

func (s *Store) read() (*storeData, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotInitialized
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	data := newStoreData()
	if err := json.Unmarshal(content, data); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}

	// A file written by hand may omit sections
	if data.Tasks == nil {
		data.Tasks = make(map[string]*domain.TaskRecord)
	}
	if data.Users == nil {
		data.Users = make(map[string]*domain.UserRecord)
	}
	if data.Projects == nil {
		data.Projects = make(map[string]*domain.ProjectRecord)
	}
	for id, t := range data.Tasks {
		t.ID = id
	}
	for id, u := range data.Users {
		u.ID = id
	}
	for id, p := range data.Projects {
		p.ID = id
	}

	return data, nil
}

func (s *Store) write(data *storeData) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store data: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Clean up
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// txStore is a domain.EntityStore over decoded file contents.
type txStore struct {
	data *storeData
}

func (tx *txStore) GetTask(id string) (*domain.TaskRecord, error) {
	return tx.data.Tasks[id], nil
}

func (tx *txStore) GetUser(id string) (*domain.UserRecord, error) {
	return tx.data.Users[id], nil
}

func (tx *txStore) GetProject(id string) (*domain.ProjectRecord, error) {
	return tx.data.Projects[id], nil
}

func (tx *txStore) ListTasks(filter domain.TaskFilter) ([]*domain.TaskRecord, error) {
	tasks := []*domain.TaskRecord{}
	for _, t := range tx.data.Tasks {
		if filter.Matches(t) {
			tasks = append(tasks, t)
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

func (tx *txStore) ListUsers() ([]*domain.UserRecord, error) {
	users := make([]*domain.UserRecord, 0, len(tx.data.Users))
	for _, u := range tx.data.Users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b *domain.UserRecord) int { return strings.Compare(a.ID, b.ID) })
	return users, nil
}

func (tx *txStore) ListProjects() ([]*domain.ProjectRecord, error) {
	projects := make([]*domain.ProjectRecord, 0, len(tx.data.Projects))
	for _, p := range tx.data.Projects {
		projects = append(projects, p)
	}
	slices.SortFunc(projects, func(a, b *domain.ProjectRecord) int { return strings.Compare(a.ID, b.ID) })
	return projects, nil
}

func (tx *txStore) SaveTask(task *domain.TaskRecord) error {
	if task.ID == "" {
		return fmt.Errorf("save task: %w", &domain.InvalidSnapshotError{Kind: "task", Field: "id", Reason: "missing"})
	}
	tx.data.Tasks[task.ID] = task
	return nil
}

func (tx *txStore) SaveUser(user *domain.UserRecord) error {
	if user.ID == "" {
		return fmt.Errorf("save user: %w", &domain.InvalidSnapshotError{Kind: "user", Field: "id", Reason: "missing"})
	}
	tx.data.Users[user.ID] = user
	return nil
}

func (tx *txStore) SaveProject(project *domain.ProjectRecord) error {
	if project.ID == "" {
		return fmt.Errorf("save project: %w", &domain.InvalidSnapshotError{Kind: "project", Field: "id", Reason: "missing"})
	}
	tx.data.Projects[project.ID] = project
	return nil
}

func (tx *txStore) DeleteTask(id string) error {
	delete(tx.data.Tasks, id)
	return nil
}
