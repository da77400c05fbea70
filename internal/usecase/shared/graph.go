// Package shared provides shared utilities for use cases.
package shared

import (
	"fmt"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// Graph is an in-memory dependency index built from task snapshots.
// It implements domain.EdgeLookup and domain.TaskLookup, so it can back an
// engine.Resolver. Dependents are kept in task order.
type Graph struct {
	tasks      map[string]*domain.TaskSnapshot
	dependents map[string][]string
	order      []string
	skipped    []error
}

// NewGraph indexes tasks. A later task with the same id replaces an earlier one.
func NewGraph(tasks []domain.TaskSnapshot) *Graph {
	g := &Graph{
		tasks:      make(map[string]*domain.TaskSnapshot, len(tasks)),
		dependents: make(map[string][]string),
	}
	for i := range tasks {
		t := tasks[i]
		if _, ok := g.tasks[t.ID]; !ok {
			g.order = append(g.order, t.ID)
		}
		g.tasks[t.ID] = &t
	}
	for _, id := range g.order {
		for _, dep := range g.tasks[id].Dependencies {
			g.dependents[dep] = append(g.dependents[dep], id)
		}
	}
	return g
}

// LoadGraph reads every task from store and indexes it.
// Records that cannot be converted are left out; see Skipped.
func LoadGraph(store domain.EntityStore) (*Graph, error) {
	recs, err := store.ListTasks(domain.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	snaps, skipped := domain.ToTaskSnapshots(recs)
	g := NewGraph(snaps)
	g.skipped = skipped
	return g, nil
}

// Skipped returns the conversion errors of records left out by LoadGraph.
func (g *Graph) Skipped() []error {
	return g.skipped
}

// WarnSkipped logs each record conversion error at warn level.
func WarnSkipped(logger domain.Logger, skipped []error) {
	if logger == nil {
		return
	}
	for _, err := range skipped {
		logger.Warn("", "snapshot", "skipped task record: "+err.Error())
	}
}

// DependenciesOf returns the ids task id depends on.
func (g *Graph) DependenciesOf(id string) ([]string, error) {
	t, ok := g.tasks[id]
	if !ok {
		return nil, nil
	}
	return t.Dependencies, nil
}

// DependentsOf returns the ids of tasks depending on id.
func (g *Graph) DependentsOf(id string) ([]string, error) {
	return g.dependents[id], nil
}

// Exists reports whether id is a known task.
func (g *Graph) Exists(id string) (bool, error) {
	_, ok := g.tasks[id]
	return ok, nil
}

// Task returns a copy of the snapshot of id, or nil.
func (g *Graph) Task(id string) (*domain.TaskSnapshot, error) {
	t, ok := g.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// Tasks returns every snapshot in index order.
func (g *Graph) Tasks() []domain.TaskSnapshot {
	out := make([]domain.TaskSnapshot, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.tasks[id])
	}
	return out
}

// Snapshot returns the snapshot of id or domain.ErrTaskNotFound.
func (g *Graph) Snapshot(id string) (domain.TaskSnapshot, error) {
	t, ok := g.tasks[id]
	if !ok {
		return domain.TaskSnapshot{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return *t, nil
}
