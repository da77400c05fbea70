// Package engine implements the deterministic task-intelligence engine:
// dependency graph resolution and the priority, workload, estimation and
// duplication heuristics. Every function is pure with respect to its inputs.
package engine

import (
	"fmt"
	"slices"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// DefaultMaxDepth bounds DependencyGraph when the caller passes a non-positive depth.
const DefaultMaxDepth = 5

// TaskGraph is the collaborator the resolver traverses.
type TaskGraph interface {
	domain.EdgeLookup
	domain.TaskLookup
}

// Resolver answers dependency questions over a TaskGraph.
// It holds no state besides the graph; traversal state is local to each call.
type Resolver struct {
	graph TaskGraph
}

// NewResolver creates a Resolver.
func NewResolver(graph TaskGraph) *Resolver {
	return &Resolver{graph: graph}
}

// CycleCheck is the result of DetectCycle.
type CycleCheck struct {
	Path     []string `json:"cyclePath,omitempty"`
	HasCycle bool     `json:"hasCycle"`
}

// Impact lists the tasks transitively depending on a task.
type Impact struct {
	Direct   []string `json:"direct"`
	Indirect []string `json:"indirect"`
	All      []string `json:"all"`
}

// GraphNode is a task reached during DependencyGraph with its hop distance.
// Direct neighbours of the root have depth 0.
type GraphNode struct {
	Task  domain.TaskSnapshot `json:"task"`
	Depth int                 `json:"depth"`
}

// Graph is the bounded neighbourhood of a task.
type Graph struct {
	Upstream   []GraphNode `json:"upstream"`
	Downstream []GraphNode `json:"downstream"`
}

// UnblockResult splits the incomplete dependents of a completed task.
type UnblockResult struct {
	Waiting   []domain.TaskSnapshot `json:"waiting"`   // still blocked by another dependency
	Unblocked []domain.TaskSnapshot `json:"unblocked"` // no incomplete dependency left
}

// DetectCycle reports whether giving taskID the dependencies proposed would
// create a cycle. An empty taskID checks a task being created: any cycle among
// the nodes reachable from proposed is reported.
// The returned path starts and ends with the same id.
func (r *Resolver) DetectCycle(taskID string, proposed []string) (CycleCheck, error) {
	if taskID != "" && slices.Contains(proposed, taskID) {
		return CycleCheck{HasCycle: true, Path: []string{taskID, taskID}}, nil
	}

	adj, order, err := r.reachable(taskID, proposed)
	if err != nil {
		return CycleCheck{}, err
	}

	var path []string
	if taskID != "" {
		path = findCycle(adj, []string{taskID}, taskID)
	} else {
		path = findCycle(adj, order, "")
	}
	if path == nil {
		return CycleCheck{}, nil
	}
	return CycleCheck{HasCycle: true, Path: path}, nil
}

// reachable expands, breadth first, the subgraph reachable from proposed.
// taskID is never expanded; its outgoing edges are the proposed ones.
func (r *Resolver) reachable(taskID string, proposed []string) (map[string][]string, []string, error) {
	adj := make(map[string][]string)
	visited := make(map[string]bool)
	var order []string

	if taskID != "" {
		adj[taskID] = proposed
		visited[taskID] = true
		order = append(order, taskID)
	}

	queue := make([]string, 0, len(proposed))
	for _, id := range proposed {
		if !visited[id] {
			visited[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		deps, err := r.graph.DependenciesOf(id)
		if err != nil {
			return nil, nil, fmt.Errorf("lookup dependencies of %s: %w", id, err)
		}
		adj[id] = deps
		for _, dep := range deps {
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return adj, order, nil
}

type dfsFrame struct {
	id   string
	next int
}

// findCycle runs an iterative depth-first search from roots.
// With a target, only an edge back to target counts as a cycle; otherwise
// the first back edge found does.
func findCycle(adj map[string][]string, roots []string, target string) []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(adj))

	for _, root := range roots {
		if color[root] != white {
			continue
		}
		stack := []dfsFrame{{id: root}}
		color[root] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := adj[top.id]
			if top.next >= len(edges) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := edges[top.next]
			top.next++

			switch color[child] {
			case gray:
				if target != "" && child != target {
					continue
				}
				return cyclePath(stack, child)
			case white:
				color[child] = gray
				stack = append(stack, dfsFrame{id: child})
			}
		}
	}
	return nil
}

func cyclePath(stack []dfsFrame, closing string) []string {
	start := 0
	for i, f := range stack {
		if f.id == closing {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.id)
	}
	return append(path, closing)
}

// IsBlocked reports whether any dependency of task resolves to an incomplete task.
// Ids that no longer resolve do not block.
func (r *Resolver) IsBlocked(task domain.TaskSnapshot) (bool, error) {
	for _, id := range task.Dependencies {
		dep, err := r.graph.Task(id)
		if err != nil {
			return false, fmt.Errorf("lookup task %s: %w", id, err)
		}
		if dep != nil && !dep.Done {
			return true, nil
		}
	}
	return false, nil
}

// IsBlockedBy reports whether any of the already materialized dependencies is incomplete.
func IsBlockedBy(deps []domain.TaskSnapshot) bool {
	for _, dep := range deps {
		if !dep.Done {
			return true
		}
	}
	return false
}

// BlockingTasks returns the incomplete dependencies of task in dependency order.
func (r *Resolver) BlockingTasks(task domain.TaskSnapshot) ([]domain.TaskSnapshot, error) {
	var blockers []domain.TaskSnapshot
	for _, id := range task.Dependencies {
		dep, err := r.graph.Task(id)
		if err != nil {
			return nil, fmt.Errorf("lookup task %s: %w", id, err)
		}
		if dep != nil && !dep.Done {
			blockers = append(blockers, *dep)
		}
	}
	return blockers, nil
}

// IncompleteDependencyCount returns the number of dependencies of task that are not done.
func (r *Resolver) IncompleteDependencyCount(task domain.TaskSnapshot) (int, error) {
	blockers, err := r.BlockingTasks(task)
	if err != nil {
		return 0, err
	}
	return len(blockers), nil
}

// ImpactedTasks returns the tasks that transitively depend on taskID.
// Nodes are marked visited before they are enqueued so an inconsistent
// lookup containing cycles still terminates.
func (r *Resolver) ImpactedTasks(taskID string) (Impact, error) {
	impact := Impact{Direct: []string{}, Indirect: []string{}}
	visited := map[string]bool{taskID: true}

	direct, err := r.graph.DependentsOf(taskID)
	if err != nil {
		return Impact{}, fmt.Errorf("lookup dependents of %s: %w", taskID, err)
	}
	for _, id := range direct {
		if !visited[id] {
			visited[id] = true
			impact.Direct = append(impact.Direct, id)
		}
	}

	queue := slices.Clone(impact.Direct)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		dependents, err := r.graph.DependentsOf(id)
		if err != nil {
			return Impact{}, fmt.Errorf("lookup dependents of %s: %w", id, err)
		}
		for _, dep := range dependents {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			impact.Indirect = append(impact.Indirect, dep)
			queue = append(queue, dep)
		}
	}

	impact.All = append(slices.Clone(impact.Direct), impact.Indirect...)
	return impact, nil
}

// DependencyGraph expands up to maxDepth hops of dependencies (upstream) and
// dependents (downstream) around taskID. The root never appears in either list.
func (r *Resolver) DependencyGraph(taskID string, maxDepth int) (Graph, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	upstream, err := r.walk(taskID, maxDepth, r.graph.DependenciesOf)
	if err != nil {
		return Graph{}, err
	}
	downstream, err := r.walk(taskID, maxDepth, r.graph.DependentsOf)
	if err != nil {
		return Graph{}, err
	}
	return Graph{Upstream: upstream, Downstream: downstream}, nil
}

func (r *Resolver) walk(root string, maxDepth int, next func(string) ([]string, error)) ([]GraphNode, error) {
	nodes := []GraphNode{}
	visited := map[string]bool{root: true}
	frontier := []string{root}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var following []string
		for _, id := range frontier {
			neighbours, err := next(id)
			if err != nil {
				return nil, fmt.Errorf("expand %s: %w", id, err)
			}
			for _, n := range neighbours {
				if visited[n] {
					continue
				}
				visited[n] = true
				task, err := r.graph.Task(n)
				if err != nil {
					return nil, fmt.Errorf("lookup task %s: %w", n, err)
				}
				if task == nil {
					continue
				}
				nodes = append(nodes, GraphNode{Task: *task, Depth: depth})
				following = append(following, n)
			}
		}
		frontier = following
	}
	return nodes, nil
}

// ValidateDependencies checks a candidate dependency set for taskID (empty for
// a task being created) and returns it de-duplicated. Checks run in order:
// self-dependency, existence of every id, cycles. A nil error means the whole
// set is acceptable; any failure rejects the whole set.
func (r *Resolver) ValidateDependencies(taskID string, ids []string) ([]string, error) {
	deps := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		deps = append(deps, id)
	}

	if taskID != "" && seen[taskID] {
		return nil, domain.ErrSelfDependency
	}

	var missing []string
	for _, id := range deps {
		ok, err := r.graph.Exists(id)
		if err != nil {
			return nil, fmt.Errorf("lookup task %s: %w", id, err)
		}
		if !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.MissingDependenciesError{IDs: missing}
	}

	check, err := r.DetectCycle(taskID, deps)
	if err != nil {
		return nil, err
	}
	if check.HasCycle {
		return nil, &domain.CycleError{Path: check.Path}
	}
	return deps, nil
}

// UnblockDependentTasks inspects the incomplete dependents of a task that has
// just been completed. completedID counts as done even if the graph has not
// observed the transition yet.
func (r *Resolver) UnblockDependentTasks(completedID string) (UnblockResult, error) {
	result := UnblockResult{Waiting: []domain.TaskSnapshot{}, Unblocked: []domain.TaskSnapshot{}}

	dependents, err := r.graph.DependentsOf(completedID)
	if err != nil {
		return UnblockResult{}, fmt.Errorf("lookup dependents of %s: %w", completedID, err)
	}
	for _, id := range dependents {
		task, err := r.graph.Task(id)
		if err != nil {
			return UnblockResult{}, fmt.Errorf("lookup task %s: %w", id, err)
		}
		if task == nil || task.Done {
			continue
		}
		blockers, err := r.BlockingTasks(*task)
		if err != nil {
			return UnblockResult{}, err
		}
		blockers = slices.DeleteFunc(blockers, func(b domain.TaskSnapshot) bool {
			return b.ID == completedID
		})
		if len(blockers) > 0 {
			result.Waiting = append(result.Waiting, *task)
		} else {
			result.Unblocked = append(result.Unblocked, *task)
		}
	}
	return result, nil
}

// ExplainDependencies describes how a task sits in the graph: what it waits on
// and how many tasks wait on it.
func ExplainDependencies(blockers []domain.TaskSnapshot, impact Impact) (string, []Factor) {
	var factors []Factor
	if n := len(blockers); n > 0 {
		factors = append(factors, Factor{Name: "blockedBy", Value: float64(n), Description: "waiting on " + plural(n, "task")})
	}
	if n := len(impact.Direct); n > 0 {
		factors = append(factors, Factor{Name: "directDependents", Value: float64(n), Description: "blocks " + plural(n, "task") + " directly"})
	}
	if n := len(impact.Indirect); n > 0 {
		factors = append(factors, Factor{Name: "indirectDependents", Value: float64(n), Description: fmt.Sprintf("%d more indirectly", n)})
	}
	return BuildExplanation(KindDependency, factors), factors
}
