package project

import (
	"slices"

	"github.com/nibzard/atomgraph-go/internal/algo"
	"github.com/nibzard/atomgraph-go/internal/graph"
	"github.com/nibzard/atomgraph-go/internal/task"
)

// Get returns a copy of the task, or nil when it does not exist.
func (p *Project) Get(id string) *task.Task {
	if t := p.graph.Get(id); t != nil {
		return t.Clone()
	}
	return nil
}

// GetOrFail returns a copy of the task or a NotFound error.
func (p *Project) GetOrFail(id string) (*task.Task, error) {
	t, err := p.graph.GetOrFail(id)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// Tasks returns copies of every task in insertion order.
func (p *Project) Tasks() []*task.Task {
	return p.Resolve(p.graph.IDs())
}

// Resolve returns copies of the named tasks, skipping unknown ids.
func (p *Project) Resolve(ids []string) []*task.Task {
	out := make([]*task.Task, 0, len(ids))
	for _, id := range ids {
		if t := p.graph.Get(id); t != nil {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Edges returns every edge in insertion order of the source task.
func (p *Project) Edges() []graph.Edge { return p.graph.Edges() }

// Dependents returns the tasks that wait on id.
func (p *Project) Dependents(id string) []string { return p.graph.Outgoing(id) }

// Prerequisites returns the tasks id waits on.
func (p *Project) Prerequisites(id string) []string { return p.graph.Incoming(id) }

// Roots returns tasks nothing points at.
func (p *Project) Roots() []string { return p.index.Roots() }

// Orphans returns tasks with no edges at all.
func (p *Project) Orphans() []string { return p.index.Orphans() }

// Leaves returns tasks that point at nothing.
func (p *Project) Leaves() []string { return p.index.Leaves() }

// ByStatus returns the ids of tasks with the given status.
func (p *Project) ByStatus(s task.Status) []string { return p.index.ByStatus(s) }

// ByPriority returns the ids of tasks with the given priority.
func (p *Project) ByPriority(pr task.Priority) []string { return p.index.ByPriority(pr) }

// ByFile returns the ids of tasks that reference path.
func (p *Project) ByFile(path string) []string { return p.index.ByFile(path) }

// Search returns the ids of tasks that contain every word of query.
func (p *Project) Search(query string) []string { return p.index.Search(query) }

// Counts returns the number of tasks per status.
func (p *Project) Counts() map[task.Status]int { return p.index.Counts() }

// TopologicalSort orders all tasks so every edge points forward.
func (p *Project) TopologicalSort() algo.TopoResult { return algo.TopologicalSort(p.graph) }

// DetectCycles returns every cycle in the graph.
func (p *Project) DetectCycles() [][]string { return algo.DetectCycles(p.graph) }

// Levels groups tasks into waves that can run in parallel.
func (p *Project) Levels() ([][]string, bool) { return algo.Levels(p.graph) }

// Traverse walks the graph from start.
func (p *Project) Traverse(dir algo.Direction, strategy algo.Strategy, start string) (*algo.Walker, error) {
	return algo.Traverse(p.graph, dir, strategy, start)
}

// ShortestPath returns the shortest chain of edges from one task to another.
func (p *Project) ShortestPath(from, to string) ([]string, bool, error) {
	return algo.ShortestPath(p.graph, from, to)
}

var priorityRank = map[task.Priority]int{
	task.PriorityHigh:   0,
	task.PriorityMedium: 1,
	task.PriorityLow:    2,
}

// Ready returns the ready tasks whose blockers are all complete, highest
// priority first and insertion order within a priority.
func (p *Project) Ready() []*task.Task {
	var out []*task.Task
	for _, id := range p.graph.IDs() {
		t := p.graph.Get(id)
		if t.Status != task.StatusReady || !blockersDone(t, p.graph) {
			continue
		}
		out = append(out, t.Clone())
	}
	slices.SortStableFunc(out, func(a, b *task.Task) int {
		return priorityRank[a.Priority] - priorityRank[b.Priority]
	})
	return out
}
