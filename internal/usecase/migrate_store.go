package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// MigrateStoreInput contains parameters for MigrateStore.
type MigrateStoreInput struct {
	// DryRun reports what would be copied without writing to the destination.
	DryRun bool
}

// MigrateStoreOutput contains migration results per entity kind.
type MigrateStoreOutput struct {
	Tasks    MigrateCount `json:"tasks"`
	Users    MigrateCount `json:"users"`
	Projects MigrateCount `json:"projects"`
}

// MigrateCount counts records seen, copied and skipped for one entity kind.
type MigrateCount struct {
	Total    int `json:"total"`
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
}

// MigrateStore copies every entity from one store backend to another.
type MigrateStore struct {
	source   domain.EntityStore
	dest     domain.Repository
	destInit domain.StoreInitializer
}

// NewMigrateStore creates a new MigrateStore use case.
func NewMigrateStore(source domain.EntityStore, dest domain.Repository, destInit domain.StoreInitializer) *MigrateStore {
	return &MigrateStore{source: source, dest: dest, destInit: destInit}
}

// Execute copies users, projects and tasks to the destination in one atomic write.
// Records already present and identical are skipped; a differing record fails
// the whole migration with ErrMigrationConflict.
func (uc *MigrateStore) Execute(_ context.Context, in MigrateStoreInput) (*MigrateStoreOutput, error) {
	if uc.source == nil || uc.dest == nil || uc.destInit == nil {
		return nil, errors.New("source or destination store is nil")
	}

	users, err := uc.source.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("list source users: %w", err)
	}
	projects, err := uc.source.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("list source projects: %w", err)
	}
	tasks, err := uc.source.ListTasks(domain.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("list source tasks: %w", err)
	}

	if !in.DryRun {
		if err := uc.destInit.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize destination store: %w", err)
		}
	}

	out := &MigrateStoreOutput{}
	plan := func(tx domain.EntityStore) error {
		*out = MigrateStoreOutput{}
		for _, u := range users {
			copyIt, err := needsCopy("user", u.ID, u, func() (any, error) { return nilIfMissing(tx.GetUser(u.ID)) })
			if err != nil {
				return err
			}
			if err := count(&out.Users, copyIt, in.DryRun, func() error { return tx.SaveUser(u) }); err != nil {
				return fmt.Errorf("save user %s: %w", u.ID, err)
			}
		}
		for _, p := range projects {
			copyIt, err := needsCopy("project", p.ID, p, func() (any, error) { return nilIfMissing(tx.GetProject(p.ID)) })
			if err != nil {
				return err
			}
			if err := count(&out.Projects, copyIt, in.DryRun, func() error { return tx.SaveProject(p) }); err != nil {
				return fmt.Errorf("save project %s: %w", p.ID, err)
			}
		}
		for _, t := range tasks {
			copyIt, err := needsCopy("task", t.ID, t, func() (any, error) { return nilIfMissing(tx.GetTask(t.ID)) })
			if err != nil {
				return err
			}
			if err := count(&out.Tasks, copyIt, in.DryRun, func() error { return tx.SaveTask(t) }); err != nil {
				return fmt.Errorf("save task %s: %w", t.ID, err)
			}
		}
		return nil
	}

	if in.DryRun {
		var view domain.EntityStore = emptyStore{}
		if uc.destInit.IsInitialized() {
			view = uc.dest
		}
		if err := plan(view); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := uc.dest.Atomic(plan); err != nil {
		return nil, err
	}
	return out, nil
}

func count(c *MigrateCount, copyIt, dryRun bool, save func() error) error {
	c.Total++
	if !copyIt {
		c.Skipped++
		return nil
	}
	if !dryRun {
		if err := save(); err != nil {
			return err
		}
	}
	c.Migrated++
	return nil
}

// needsCopy reports whether src must be written: false when the destination
// already holds an identical record.
func needsCopy(kind, id string, src any, get func() (any, error)) (bool, error) {
	existing, err := get()
	if err != nil {
		return false, fmt.Errorf("check destination %s %s: %w", kind, id, err)
	}
	if existing == nil {
		return true, nil
	}
	same, err := sameRecord(src, existing)
	if err != nil {
		return false, err
	}
	if !same {
		return false, fmt.Errorf("%w: %s %s", domain.ErrMigrationConflict, kind, id)
	}
	return false, nil
}

// nilIfMissing turns a typed nil pointer into an untyped nil.
func nilIfMissing[T any](v *T, err error) (any, error) {
	if err != nil || v == nil {
		return nil, err
	}
	return v, nil
}

// sameRecord compares two records by their JSON encoding, which ignores
// time zone and monotonic clock differences between backends.
func sameRecord(a, b any) (bool, error) {
	ja, err := json.Marshal(a)
	if err != nil {
		return false, fmt.Errorf("encode record: %w", err)
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false, fmt.Errorf("encode record: %w", err)
	}
	return string(ja) == string(jb), nil
}

// emptyStore stands in for a destination that does not exist yet.
type emptyStore struct{}

func (emptyStore) GetTask(string) (*domain.TaskRecord, error)       { return nil, nil }
func (emptyStore) GetUser(string) (*domain.UserRecord, error)       { return nil, nil }
func (emptyStore) GetProject(string) (*domain.ProjectRecord, error) { return nil, nil }
func (emptyStore) ListTasks(domain.TaskFilter) ([]*domain.TaskRecord, error) {
	return nil, nil
}
func (emptyStore) ListUsers() ([]*domain.UserRecord, error)       { return nil, nil }
func (emptyStore) ListProjects() ([]*domain.ProjectRecord, error) { return nil, nil }
func (emptyStore) SaveTask(*domain.TaskRecord) error              { return nil }
func (emptyStore) SaveUser(*domain.UserRecord) error              { return nil }
func (emptyStore) SaveProject(*domain.ProjectRecord) error        { return nil }
func (emptyStore) DeleteTask(string) error                        { return nil }
