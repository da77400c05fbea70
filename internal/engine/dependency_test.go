package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// memGraph is an in-memory TaskGraph keeping insertion order.
type memGraph struct {
	tasks map[string]*domain.TaskSnapshot
	order []string
}

func newMemGraph(tasks ...domain.TaskSnapshot) *memGraph {
	g := &memGraph{tasks: make(map[string]*domain.TaskSnapshot)}
	for _, t := range tasks {
		g.put(t)
	}
	return g
}

func (g *memGraph) put(t domain.TaskSnapshot) {
	if _, ok := g.tasks[t.ID]; !ok {
		g.order = append(g.order, t.ID)
	}
	g.tasks[t.ID] = &t
}

func (g *memGraph) DependenciesOf(id string) ([]string, error) {
	if t, ok := g.tasks[id]; ok {
		return t.Dependencies, nil
	}
	return nil, nil
}

func (g *memGraph) DependentsOf(id string) ([]string, error) {
	var out []string
	for _, tid := range g.order {
		for _, dep := range g.tasks[tid].Dependencies {
			if dep == id {
				out = append(out, tid)
				break
			}
		}
	}
	return out, nil
}

func (g *memGraph) Exists(id string) (bool, error) {
	_, ok := g.tasks[id]
	return ok, nil
}

func (g *memGraph) Task(id string) (*domain.TaskSnapshot, error) {
	t, ok := g.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// reaches reports whether to is reachable from from following dependencies.
func (g *memGraph) reaches(from, to string) bool {
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		deps, _ := g.DependenciesOf(id)
		for _, d := range deps {
			if d == to {
				return true
			}
			if !seen[d] {
				seen[d] = true
				stack = append(stack, d)
			}
		}
	}
	return false
}

type failingGraph struct{ memGraph }

var errLookup = errors.New("lookup failed")

func (failingGraph) DependenciesOf(string) ([]string, error) { return nil, errLookup }
func (failingGraph) DependentsOf(string) ([]string, error)   { return nil, errLookup }

func task(id string, deps ...string) domain.TaskSnapshot {
	return domain.TaskSnapshot{ID: id, Title: id, Priority: domain.PriorityDefault, Dependencies: deps}
}

func doneTask(id string, deps ...string) domain.TaskSnapshot {
	t := task(id, deps...)
	t.Done = true
	return t
}

func TestResolver_DetectCycle(t *testing.T) {
	tests := []struct {
		name     string
		tasks    []domain.TaskSnapshot
		taskID   string
		proposed []string
		wantPath []string
	}{
		{
			name:     "direct back edge",
			tasks:    []domain.TaskSnapshot{task("T1"), task("T2", "T1")},
			taskID:   "T1",
			proposed: []string{"T2"},
			wantPath: []string{"T1", "T2", "T1"},
		},
		{
			name:     "self dependency",
			tasks:    []domain.TaskSnapshot{task("T1")},
			taskID:   "T1",
			proposed: []string{"T1"},
			wantPath: []string{"T1", "T1"},
		},
		{
			name:     "transitive back edge",
			tasks:    []domain.TaskSnapshot{task("T1"), task("T2", "T1"), task("T3", "T2")},
			taskID:   "T1",
			proposed: []string{"T3"},
			wantPath: []string{"T1", "T3", "T2", "T1"},
		},
		{
			name:     "chain without cycle",
			tasks:    []domain.TaskSnapshot{task("T1"), task("T2", "T3"), task("T3")},
			taskID:   "T1",
			proposed: []string{"T2"},
		},
		{
			name:     "diamond without cycle",
			tasks:    []domain.TaskSnapshot{task("T1"), task("A", "C"), task("B", "C"), task("C")},
			taskID:   "T1",
			proposed: []string{"A", "B"},
		},
		{
			name:     "creation reaches existing cycle",
			tasks:    []domain.TaskSnapshot{task("A", "B"), task("B", "A")},
			taskID:   "",
			proposed: []string{"A"},
			wantPath: []string{"A", "B", "A"},
		},
		{
			name:     "creation without cycle",
			tasks:    []domain.TaskSnapshot{task("A", "B"), task("B")},
			taskID:   "",
			proposed: []string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			r := NewResolver(newMemGraph(tt.tasks...))

			// Execute
			got, err := r.DetectCycle(tt.taskID, tt.proposed)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath != nil, got.HasCycle)
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}
}

func TestResolver_DetectCycle_LookupError(t *testing.T) {
	r := NewResolver(&failingGraph{})

	_, err := r.DetectCycle("T1", []string{"T2"})

	assert.ErrorIs(t, err, errLookup)
}

func TestResolver_ValidateDependencies(t *testing.T) {
	graph := newMemGraph(task("T1"), task("T2", "T1"), task("T3"))
	r := NewResolver(graph)

	t.Run("self dependency is rejected first", func(t *testing.T) {
		_, err := r.ValidateDependencies("T1", []string{"missing", "T1"})
		assert.ErrorIs(t, err, domain.ErrSelfDependency)
	})

	t.Run("all missing ids are reported", func(t *testing.T) {
		_, err := r.ValidateDependencies("T3", []string{"X", "T1", "Y", "X"})

		require.ErrorIs(t, err, domain.ErrDependencyNotFound)
		var missing *domain.MissingDependenciesError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{"X", "Y"}, missing.IDs)
	})

	t.Run("cycle carries its path", func(t *testing.T) {
		_, err := r.ValidateDependencies("T1", []string{"T2"})

		require.ErrorIs(t, err, domain.ErrCycleDetected)
		var cycle *domain.CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"T1", "T2", "T1"}, cycle.Path)
		assert.Contains(t, err.Error(), "T1 -> T2 -> T1")
	})

	t.Run("valid set is de-duplicated", func(t *testing.T) {
		deps, err := r.ValidateDependencies("T3", []string{"T2", "T2", "", "T1"})

		require.NoError(t, err)
		assert.Equal(t, []string{"T2", "T1"}, deps)
	})

	t.Run("creation skips self check", func(t *testing.T) {
		deps, err := r.ValidateDependencies("", []string{"T1"})

		require.NoError(t, err)
		assert.Equal(t, []string{"T1"}, deps)
	})
}

func TestResolver_ValidateDependencies_KeepsGraphAcyclic(t *testing.T) {
	// Setup
	graph := newMemGraph(task("A"), task("B"), task("C"), task("D"), task("E"))
	r := NewResolver(graph)
	proposals := []struct {
		id   string
		deps []string
	}{
		{"B", []string{"A"}},
		{"C", []string{"B"}},
		{"A", []string{"C"}},
		{"D", []string{"C", "A"}},
		{"A", []string{"D"}},
		{"E", []string{"D", "B"}},
		{"B", []string{"E"}},
		{"A", []string{"A"}},
		{"A", []string{"E"}},
	}

	// Execute
	accepted := 0
	for _, p := range proposals {
		deps, err := r.ValidateDependencies(p.id, p.deps)
		if err != nil {
			continue
		}
		accepted++
		tk, _ := graph.Task(p.id)
		tk.Dependencies = deps
		graph.put(*tk)
	}

	// Assert
	assert.Equal(t, 4, accepted)
	for _, id := range graph.order {
		assert.False(t, graph.reaches(id, id), "%s reaches itself", id)
	}
}

func TestResolver_IsBlocked(t *testing.T) {
	graph := newMemGraph(task("open"), doneTask("closed"), task("a", "closed"), task("b", "closed", "open"), task("c", "gone"))
	r := NewResolver(graph)

	tests := []struct {
		id   string
		want bool
	}{
		{"a", false},
		{"b", true},
		{"c", false},
		{"open", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			tk, _ := graph.Task(tt.id)

			got, err := r.IsBlocked(*tk)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsBlockedBy(t *testing.T) {
	assert.False(t, IsBlockedBy(nil))
	assert.False(t, IsBlockedBy([]domain.TaskSnapshot{doneTask("a"), doneTask("b")}))
	assert.True(t, IsBlockedBy([]domain.TaskSnapshot{doneTask("a"), task("b")}))
}

func TestResolver_BlockingTasks(t *testing.T) {
	graph := newMemGraph(task("x"), doneTask("y"), task("z"), task("t", "x", "y", "z", "gone"))
	r := NewResolver(graph)
	tk, _ := graph.Task("t")

	blockers, err := r.BlockingTasks(*tk)
	require.NoError(t, err)
	count, err := r.IncompleteDependencyCount(*tk)
	require.NoError(t, err)

	require.Len(t, blockers, 2)
	assert.Equal(t, "x", blockers[0].ID)
	assert.Equal(t, "z", blockers[1].ID)
	assert.Equal(t, 2, count)
}

func TestResolver_ImpactedTasks(t *testing.T) {
	t.Run("transitive dependents", func(t *testing.T) {
		r := NewResolver(newMemGraph(task("A"), task("B", "A"), task("C", "B"), task("D", "C", "A")))

		got, err := r.ImpactedTasks("A")

		require.NoError(t, err)
		assert.Equal(t, []string{"B", "D"}, got.Direct)
		assert.Equal(t, []string{"C"}, got.Indirect)
		assert.Equal(t, []string{"B", "D", "C"}, got.All)
	})

	t.Run("inconsistent cyclic lookup terminates", func(t *testing.T) {
		r := NewResolver(newMemGraph(task("A", "C"), task("B", "A"), task("C", "B")))

		got, err := r.ImpactedTasks("A")

		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, got.Direct)
		assert.Equal(t, []string{"C"}, got.Indirect)
	})

	t.Run("leaf has no impact", func(t *testing.T) {
		r := NewResolver(newMemGraph(task("A")))

		got, err := r.ImpactedTasks("A")

		require.NoError(t, err)
		assert.Empty(t, got.All)
	})
}

func TestResolver_DependencyGraph(t *testing.T) {
	graph := newMemGraph(task("T1"), task("T2", "T1"), task("T3", "T2"), task("T4", "T3"), task("T5", "T4"))
	r := NewResolver(graph)

	t.Run("depths start at zero", func(t *testing.T) {
		got, err := r.DependencyGraph("T2", 5)

		require.NoError(t, err)
		require.Len(t, got.Upstream, 1)
		assert.Equal(t, "T1", got.Upstream[0].Task.ID)
		assert.Equal(t, 0, got.Upstream[0].Depth)

		require.Len(t, got.Downstream, 3)
		for i, want := range []string{"T3", "T4", "T5"} {
			assert.Equal(t, want, got.Downstream[i].Task.ID)
			assert.Equal(t, i, got.Downstream[i].Depth)
		}
	})

	t.Run("max depth bounds traversal", func(t *testing.T) {
		got, err := r.DependencyGraph("T1", 2)

		require.NoError(t, err)
		assert.Empty(t, got.Upstream)
		require.Len(t, got.Downstream, 2)
		assert.Equal(t, "T3", got.Downstream[1].Task.ID)
	})

	t.Run("root excluded in cyclic data", func(t *testing.T) {
		r := NewResolver(newMemGraph(task("A", "B"), task("B", "A")))

		got, err := r.DependencyGraph("A", 0)

		require.NoError(t, err)
		require.Len(t, got.Upstream, 1)
		require.Len(t, got.Downstream, 1)
		assert.Equal(t, "B", got.Upstream[0].Task.ID)
		assert.Equal(t, "B", got.Downstream[0].Task.ID)
	})
}

func TestResolver_UnblockDependentTasks(t *testing.T) {
	// Setup: A has just been completed but the graph still shows it open.
	graph := newMemGraph(task("A"), task("D"), task("B", "A"), task("C", "A", "D"), doneTask("E", "A"))
	r := NewResolver(graph)

	// Execute
	got, err := r.UnblockDependentTasks("A")

	// Assert
	require.NoError(t, err)
	require.Len(t, got.Unblocked, 1)
	assert.Equal(t, "B", got.Unblocked[0].ID)
	require.Len(t, got.Waiting, 1)
	assert.Equal(t, "C", got.Waiting[0].ID)
}

func TestExplainDependencies(t *testing.T) {
	tests := []struct {
		name     string
		blockers []domain.TaskSnapshot
		impact   Impact
		want     string
	}{
		{name: "isolated", want: "No dependency relationships affect this task."},
		{
			name:     "both directions",
			blockers: []domain.TaskSnapshot{task("a")},
			impact:   Impact{Direct: []string{"c", "d"}, Indirect: []string{"e"}},
			want:     "Waiting on 1 task, blocks 2 tasks directly, 1 more indirectly.",
		},
		{
			name:   "only dependents",
			impact: Impact{Direct: []string{"c"}},
			want:   "Blocks 1 task directly.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, factors := ExplainDependencies(tt.blockers, tt.impact)

			assert.Equal(t, tt.want, got)
			for _, f := range factors {
				assert.NotEmpty(t, f.Description)
			}
		})
	}
}
