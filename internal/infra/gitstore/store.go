// Package gitstore provides a Git plumbing-based implementation of domain.Repository.
package gitstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"gopkg.in/yaml.v3"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// Entity kinds, also the ref directory names.
const (
	kindTasks    = "tasks"
	kindUsers    = "users"
	kindProjects = "projects"
)

// Store implements domain.Repository using Git plumbing (refs and blobs).
// Nothing touches the working tree or the commit history.
//
// Data structure:
//
//	refs/<namespace>/
//	  initialized  → marker blob
//	  tasks/<id>    → blob (task YAML)
//	  users/<id>    → blob (user YAML)
//	  projects/<id> → blob (project YAML)
type Store struct {
	repo      *git.Repository
	repoPath  string // path to the repository, empty for in-memory repos
	namespace string // e.g., "projex"
	lockPath  string // flock file serializing writers across processes (optional)
	mu        sync.RWMutex
}

// Ensure Store implements domain.Repository and domain.StoreInitializer.
var (
	_ domain.Repository       = (*Store)(nil)
	_ domain.StoreInitializer = (*Store)(nil)
)

// New opens the repository at repoPath. When lockPath is not empty, writes are
// also serialized across processes through an flock on that file.
func New(repoPath, namespace, lockPath string) (*Store, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	return &Store{
		repo:      repo,
		repoPath:  repoPath,
		namespace: namespace,
		lockPath:  lockPath,
	}, nil
}

// NewWithRepo creates a new Store with an existing repository instance.
func NewWithRepo(repo *git.Repository, namespace string) *Store {
	return &Store{
		repo:      repo,
		namespace: namespace,
	}
}

// refPrefix returns the ref prefix for this namespace.
func (s *Store) refPrefix() string {
	return "refs/" + s.namespace + "/"
}

func (s *Store) entityRef(kind, id string) plumbing.ReferenceName {
	return plumbing.ReferenceName(s.refPrefix() + kind + "/" + id)
}

// initializedRef returns the ref name for the initialized marker.
func (s *Store) initializedRef() plumbing.ReferenceName {
	return plumbing.ReferenceName(s.refPrefix() + "initialized")
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(id string) (*domain.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&txStore{s: s}).GetTask(id)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(id string) (*domain.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&txStore{s: s}).GetUser(id)
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(id string) (*domain.ProjectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&txStore{s: s}).GetProject(id)
}

// ListTasks retrieves tasks matching the filter, ordered by creation time then id.
func (s *Store) ListTasks(filter domain.TaskFilter) ([]*domain.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&txStore{s: s}).ListTasks(filter)
}

// ListUsers retrieves all users ordered by id.
func (s *Store) ListUsers() ([]*domain.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&txStore{s: s}).ListUsers()
}

// ListProjects retrieves all projects ordered by id.
func (s *Store) ListProjects() ([]*domain.ProjectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&txStore{s: s}).ListProjects()
}

// SaveTask creates or updates a task.
func (s *Store) SaveTask(task *domain.TaskRecord) error {
	return s.Atomic(func(tx domain.EntityStore) error { return tx.SaveTask(task) })
}

// SaveUser creates or updates a user.
func (s *Store) SaveUser(user *domain.UserRecord) error {
	return s.Atomic(func(tx domain.EntityStore) error { return tx.SaveUser(user) })
}

// SaveProject creates or updates a project.
func (s *Store) SaveProject(project *domain.ProjectRecord) error {
	return s.Atomic(func(tx domain.EntityStore) error { return tx.SaveProject(project) })
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(id string) error {
	return s.Atomic(func(tx domain.EntityStore) error { return tx.DeleteTask(id) })
}

// Atomic runs fn with writes buffered in memory. Reads inside fn see the
// buffered writes; the refs are updated only when fn returns nil.
func (s *Store) Atomic(fn func(tx domain.EntityStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile()
	if err != nil {
		return err
	}
	defer unlock()

	tx := &txStore{s: s, pending: make(map[plumbing.ReferenceName]*pendingWrite)}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// lockFile takes the cross-process lock when one is configured.
func (s *Store) lockFile() (func(), error) {
	if s.lockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(lock.Fd()), syscall.LOCK_EX); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return func() {
		_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
		_ = lock.Close()
	}, nil
}

// writeBlob writes data to a blob and returns the hash.
func (s *Store) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("create blob writer: %w", err)
	}
	if _, writeErr := writer.Write(data); writeErr != nil {
		_ = writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", writeErr)
	}
	_ = writer.Close()

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store blob: %w", err)
	}
	return hash, nil
}

// readBlob reads the content of a blob.
func (s *Store) readBlob(hash plumbing.Hash) ([]byte, error) {
	blob, err := s.repo.BlobObject(hash)
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read blob data: %w", err)
	}
	return data, nil
}

// Initialize creates the initialized marker if it doesn't exist.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.repo.Reference(s.initializedRef(), true)
	if err == nil {
		return nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("check initialized ref: %w", err)
	}

	hash, err := s.writeBlob([]byte("initialized"))
	if err != nil {
		return err
	}
	ref := plumbing.NewHashReference(s.initializedRef(), hash)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("set initialized ref: %w", err)
	}
	return nil
}

// IsInitialized checks if the store has been initialized.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.repo.Reference(s.initializedRef(), true)
	return err == nil
}

// === Remote sync operations ===

// Push pushes the namespace refs to origin.
func (s *Store) Push() error {
	return s.git("push", "origin", s.refspec())
}

// Fetch fetches the namespace refs from origin, overwriting local ones.
func (s *Store) Fetch() error {
	return s.git("fetch", "origin", "+"+s.refspec())
}

func (s *Store) refspec() string {
	return fmt.Sprintf("refs/%s/*:refs/%s/*", s.namespace, s.namespace)
}

// git runs a git command against the repository.
// go-git push/fetch would need its own auth config, so the git binary is used.
func (s *Store) git(args ...string) error {
	if s.repoPath == "" {
		return errors.New("remote sync needs an on-disk repository")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := exec.Command("git", append([]string{"-C", s.repoPath}, args...)...) //nolint:gosec // args are built from the trusted namespace
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s failed: %s: %w", args[0], strings.TrimSpace(string(output)), err)
	}
	return nil
}

// validID rejects ids that cannot be used as a single ref path component.
func validID(kind, id string) error {
	if id == "" {
		return &domain.InvalidSnapshotError{Kind: strings.TrimSuffix(kind, "s"), Field: "id", Reason: "missing"}
	}
	if strings.ContainsAny(id, "/\\ ~^:?*[") || strings.Contains(id, "..") || strings.HasPrefix(id, ".") || strings.HasSuffix(id, ".lock") {
		return &domain.InvalidSnapshotError{Kind: strings.TrimSuffix(kind, "s"), ID: id, Field: "id", Reason: "not usable as a git ref name"}
	}
	return nil
}

// sortTasks orders tasks by creation time then id.
func sortTasks(tasks []*domain.TaskRecord) {
	slices.SortFunc(tasks, func(a, b *domain.TaskRecord) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// decode unmarshals a record blob.
func decode[T any](data []byte) (*T, error) {
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
