package gitstore

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"gopkg.in/yaml.v3"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// pendingWrite is a buffered write. A nil data means delete.
type pendingWrite struct {
	data []byte
}

// txStore reads through to the refs and, inside Atomic, buffers writes.
// A txStore without pending map is read-only.
type txStore struct {
	s       *Store
	pending map[plumbing.ReferenceName]*pendingWrite
}

// load returns the raw record for ref, or nil if absent.
func (tx *txStore) load(ref plumbing.ReferenceName) ([]byte, error) {
	if w, ok := tx.pending[ref]; ok {
		return w.data, nil
	}
	r, err := tx.s.repo.Reference(ref, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ref %s: %w", ref, err)
	}
	return tx.s.readBlob(r.Hash())
}

// ids lists the ids of one kind, including buffered writes.
func (tx *txStore) ids(kind string) ([]string, error) {
	prefix := tx.s.refPrefix() + kind + "/"
	seen := make(map[string]bool)

	refs, err := tx.s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if id, ok := strings.CutPrefix(string(ref.Name()), prefix); ok && id != "" {
			seen[id] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for name, w := range tx.pending {
		if id, ok := strings.CutPrefix(string(name), prefix); ok {
			seen[id] = w.data != nil
		}
	}

	ids := make([]string, 0, len(seen))
	for id, ok := range seen {
		if ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func getRecord[T any](tx *txStore, kind, id string, setID func(*T, string)) (*T, error) {
	data, err := tx.load(tx.s.entityRef(kind, id))
	if err != nil || data == nil {
		return nil, err
	}
	v, err := decode[T](data)
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	setID(v, id)
	return v, nil
}

func listRecords[T any](tx *txStore, kind string, setID func(*T, string)) ([]*T, error) {
	ids, err := tx.ids(kind)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		v, err := getRecord(tx, kind, id, setID)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (tx *txStore) put(kind, id string, v any) error {
	if tx.pending == nil {
		return errors.New("write outside of a transaction")
	}
	if err := validID(kind, id); err != nil {
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", kind, id, err)
	}
	tx.pending[tx.s.entityRef(kind, id)] = &pendingWrite{data: data}
	return nil
}

func setTaskID(t *domain.TaskRecord, id string)       { t.ID = id }
func setUserID(u *domain.UserRecord, id string)       { u.ID = id }
func setProjectID(p *domain.ProjectRecord, id string) { p.ID = id }

func (tx *txStore) GetTask(id string) (*domain.TaskRecord, error) {
	return getRecord(tx, kindTasks, id, setTaskID)
}

func (tx *txStore) GetUser(id string) (*domain.UserRecord, error) {
	return getRecord(tx, kindUsers, id, setUserID)
}

func (tx *txStore) GetProject(id string) (*domain.ProjectRecord, error) {
	return getRecord(tx, kindProjects, id, setProjectID)
}

func (tx *txStore) ListTasks(filter domain.TaskFilter) ([]*domain.TaskRecord, error) {
	all, err := listRecords(tx, kindTasks, setTaskID)
	if err != nil {
		return nil, err
	}
	tasks := slices.DeleteFunc(all, func(t *domain.TaskRecord) bool { return !filter.Matches(t) })
	sortTasks(tasks)
	return tasks, nil
}

func (tx *txStore) ListUsers() ([]*domain.UserRecord, error) {
	return listRecords(tx, kindUsers, setUserID)
}

func (tx *txStore) ListProjects() ([]*domain.ProjectRecord, error) {
	return listRecords(tx, kindProjects, setProjectID)
}

func (tx *txStore) SaveTask(task *domain.TaskRecord) error {
	return tx.put(kindTasks, task.ID, task)
}

func (tx *txStore) SaveUser(user *domain.UserRecord) error {
	return tx.put(kindUsers, user.ID, user)
}

func (tx *txStore) SaveProject(project *domain.ProjectRecord) error {
	return tx.put(kindProjects, project.ID, project)
}

func (tx *txStore) DeleteTask(id string) error {
	if tx.pending == nil {
		return errors.New("write outside of a transaction")
	}
	tx.pending[tx.s.entityRef(kindTasks, id)] = &pendingWrite{}
	return nil
}

// commit writes the buffered blobs first, then moves the refs in name order.
func (tx *txStore) commit() error {
	names := make([]plumbing.ReferenceName, 0, len(tx.pending))
	for name := range tx.pending {
		names = append(names, name)
	}
	slices.Sort(names)

	hashes := make(map[plumbing.ReferenceName]plumbing.Hash, len(names))
	for _, name := range names {
		if data := tx.pending[name].data; data != nil {
			hash, err := tx.s.writeBlob(data)
			if err != nil {
				return err
			}
			hashes[name] = hash
		}
	}

	for _, name := range names {
		hash, ok := hashes[name]
		if !ok {
			if err := tx.s.repo.Storer.RemoveReference(name); err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
				return fmt.Errorf("remove ref %s: %w", name, err)
			}
			continue
		}
		if err := tx.s.repo.Storer.SetReference(plumbing.NewHashReference(name, hash)); err != nil {
			return fmt.Errorf("set ref %s: %w", name, err)
		}
	}
	return nil
}
