// Package sqlitestore provides a SQLite implementation of domain.Repository.
// Records are stored as JSON documents; only the columns needed for ordering
// and filtering are broken out.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	done       INTEGER NOT NULL DEFAULT 0,
	project_id TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS tasks_created ON tasks (created_at, id);
CREATE TABLE IF NOT EXISTS users (
	id   TEXT PRIMARY KEY,
	body TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS projects (
	id   TEXT PRIMARY KEY,
	body TEXT NOT NULL
);
`

// sortableTime keeps created_at lexically ordered.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

// Store implements domain.Repository on a SQLite database file.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Ensure Store implements domain.Repository and domain.StoreInitializer.
var (
	_ domain.Repository       = (*Store)(nil)
	_ domain.StoreInitializer = (*Store)(nil)
)

// New creates a Store for the database at path. Nothing is opened until first use.
func New(path string) *Store {
	return &Store{path: path}
}

// conn opens the database on first use. A missing file means the store was
// never initialized, unless create is set.
func (s *Store) conn(create bool) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}
	if !create {
		if _, err := os.Stat(s.path); err != nil {
			return nil, domain.ErrNotInitialized
		}
	}

	dsn := "file:" + s.path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", s.path, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	s.db = db
	return db, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Initialize creates the database file and schema if needed.
func (s *Store) Initialize() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	db, err := s.conn(true)
	if err != nil {
		return err
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// IsInitialized reports whether the database file exists and holds the schema.
func (s *Store) IsInitialized() bool {
	db, err := s.conn(false)
	if err != nil {
		return false
	}
	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'tasks'`).Scan(&name)
	return err == nil
}

func (s *Store) store() (*txStore, error) {
	db, err := s.conn(false)
	if err != nil {
		return nil, err
	}
	return &txStore{q: db}, nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(id string) (*domain.TaskRecord, error) {
	tx, err := s.store()
	if err != nil {
		return nil, err
	}
	return tx.GetTask(id)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(id string) (*domain.UserRecord, error) {
	tx, err := s.store()
	if err != nil {
		return nil, err
	}
	return tx.GetUser(id)
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(id string) (*domain.ProjectRecord, error) {
	tx, err := s.store()
	if err != nil {
		return nil, err
	}
	return tx.GetProject(id)
}

// ListTasks retrieves tasks matching the filter, ordered by creation time then id.
func (s *Store) ListTasks(filter domain.TaskFilter) ([]*domain.TaskRecord, error) {
	tx, err := s.store()
	if err != nil {
		return nil, err
	}
	return tx.ListTasks(filter)
}

// ListUsers retrieves all users ordered by id.
func (s *Store) ListUsers() ([]*domain.UserRecord, error) {
	tx, err := s.store()
	if err != nil {
		return nil, err
	}
	return tx.ListUsers()
}

// ListProjects retrieves all projects ordered by id.
func (s *Store) ListProjects() ([]*domain.ProjectRecord, error) {
	tx, err := s.store()
	if err != nil {
		return nil, err
	}
	return tx.ListProjects()
}

// SaveTask creates or updates a task.
func (s *Store) SaveTask(task *domain.TaskRecord) error {
	tx, err := s.store()
	if err != nil {
		return err
	}
	return tx.SaveTask(task)
}

// SaveUser creates or updates a user.
func (s *Store) SaveUser(user *domain.UserRecord) error {
	tx, err := s.store()
	if err != nil {
		return err
	}
	return tx.SaveUser(user)
}

// SaveProject creates or updates a project.
func (s *Store) SaveProject(project *domain.ProjectRecord) error {
	tx, err := s.store()
	if err != nil {
		return err
	}
	return tx.SaveProject(project)
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(id string) error {
	tx, err := s.store()
	if err != nil {
		return err
	}
	return tx.DeleteTask(id)
}

// Atomic runs fn inside an immediate SQLite transaction, so concurrent
// writers from other processes wait instead of interleaving.
func (s *Store) Atomic(fn func(tx domain.EntityStore) error) error {
	db, err := s.conn(false)
	if err != nil {
		return err
	}
	sqlTx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&txStore{q: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// querier is the part of *sql.DB and *sql.Tx the store needs.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// txStore is a domain.EntityStore over a database or an open transaction.
type txStore struct {
	q querier
}

func getBody[T any](q querier, table, id string, setID func(*T, string)) (*T, error) {
	var body string
	err := q.QueryRow(`SELECT body FROM `+table+` WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", table, id, err)
	}
	var v T
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", table, id, err)
	}
	setID(&v, id)
	return &v, nil
}

func listBodies[T any](q querier, query string, setID func(*T, string), args ...any) ([]*T, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*T{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var v T
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", id, err)
		}
		setID(&v, id)
		out = append(out, &v)
	}
	return out, rows.Err()
}

func setTaskID(t *domain.TaskRecord, id string)       { t.ID = id }
func setUserID(u *domain.UserRecord, id string)       { u.ID = id }
func setProjectID(p *domain.ProjectRecord, id string) { p.ID = id }

func (tx *txStore) GetTask(id string) (*domain.TaskRecord, error) {
	return getBody(tx.q, "tasks", id, setTaskID)
}

func (tx *txStore) GetUser(id string) (*domain.UserRecord, error) {
	return getBody(tx.q, "users", id, setUserID)
}

func (tx *txStore) GetProject(id string) (*domain.ProjectRecord, error) {
	return getBody(tx.q, "projects", id, setProjectID)
}

// ListTasks narrows by done state and project in SQL; the remaining filter
// fields live inside the JSON body and are matched in Go.
func (tx *txStore) ListTasks(filter domain.TaskFilter) ([]*domain.TaskRecord, error) {
	query := `SELECT id, body FROM tasks WHERE 1 = 1`
	var args []any
	if filter.Done != nil {
		query += ` AND done = ?`
		args = append(args, *filter.Done)
	}
	if filter.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, filter.ProjectID)
	}
	query += ` ORDER BY created_at, id`

	all, err := listBodies(tx.q, query, setTaskID, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := all[:0]
	for _, t := range all {
		if filter.Matches(t) {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (tx *txStore) ListUsers() ([]*domain.UserRecord, error) {
	return listBodies(tx.q, `SELECT id, body FROM users ORDER BY id`, setUserID)
}

func (tx *txStore) ListProjects() ([]*domain.ProjectRecord, error) {
	return listBodies(tx.q, `SELECT id, body FROM projects ORDER BY id`, setProjectID)
}

func (tx *txStore) SaveTask(task *domain.TaskRecord) error {
	if task.ID == "" {
		return &domain.InvalidSnapshotError{Kind: "task", Field: "id", Reason: "missing"}
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	projectID := ""
	if task.Project != nil {
		projectID = task.Project.ID
	}
	_, err = tx.q.Exec(`
		INSERT INTO tasks (id, created_at, done, project_id, body) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			done = excluded.done,
			project_id = excluded.project_id,
			body = excluded.body`,
		task.ID, task.CreatedAt.UTC().Format(sortableTime), task.Done, projectID, string(body))
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

func (tx *txStore) SaveUser(user *domain.UserRecord) error {
	if user.ID == "" {
		return &domain.InvalidSnapshotError{Kind: "user", Field: "id", Reason: "missing"}
	}
	return upsertBody(tx.q, "users", user.ID, user)
}

func (tx *txStore) SaveProject(project *domain.ProjectRecord) error {
	if project.ID == "" {
		return &domain.InvalidSnapshotError{Kind: "project", Field: "id", Reason: "missing"}
	}
	return upsertBody(tx.q, "projects", project.ID, project)
}

func (tx *txStore) DeleteTask(id string) error {
	if _, err := tx.q.Exec(`DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func upsertBody(q querier, table, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", table, err)
	}
	_, err = q.Exec(`INSERT INTO `+table+` (id, body) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body`, id, string(body))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}
