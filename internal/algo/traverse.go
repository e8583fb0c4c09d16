package algo

import (
	"fmt"
	"slices"

	"github.com/nibzard/atomgraph-go/internal/errs"
)

// Direction selects which edges a traversal follows.
type Direction string

const (
	// Downstream follows outgoing edges: tasks that depend on the start.
	Downstream Direction = "downstream"
	// Upstream follows incoming edges: tasks the start depends on.
	Upstream Direction = "upstream"
)

// Strategy selects the visiting order.
type Strategy string

const (
	// BreadthFirst visits in level order, nearest tasks first.
	BreadthFirst Strategy = "bfs"
	// DepthFirst visits in pre-order, following each branch to its end.
	DepthFirst Strategy = "dfs"
)

// ParseDirection converts a string into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Downstream, Upstream:
		return d, nil
	}
	return "", fmt.Errorf("invalid direction %q, must be one of: downstream, upstream", s)
}

// ParseStrategy converts a string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case BreadthFirst, DepthFirst:
		return st, nil
	}
	return "", fmt.Errorf("invalid strategy %q, must be one of: bfs, dfs", s)
}

// Walker yields task ids one at a time. It visits each task at most once,
// so it terminates on cyclic graphs, and cannot be restarted.
type Walker struct {
	g        Graph
	dir      Direction
	strategy Strategy
	pending  []string
	seen     map[string]bool
}

// Traverse starts a walk at start, which is yielded first.
func Traverse(g Graph, dir Direction, strategy Strategy, start string) (*Walker, error) {
	const op = "algo.traverse"
	if !g.Has(start) {
		return nil, errs.NotFound(op, start)
	}
	if _, err := ParseDirection(string(dir)); err != nil {
		return nil, errs.Invalid(op, start, "direction", "%v", err)
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, errs.Invalid(op, start, "strategy", "%v", err)
	}
	w := &Walker{
		g:        g,
		dir:      dir,
		strategy: strategy,
		pending:  []string{start},
		seen:     make(map[string]bool),
	}
	if strategy == BreadthFirst {
		w.seen[start] = true
	}
	return w, nil
}

// Next returns the next task id, or false when the walk is finished.
func (w *Walker) Next() (string, bool) {
	if w.strategy == BreadthFirst {
		return w.nextBFS()
	}
	return w.nextDFS()
}

// Collect drains the walker and returns the remaining ids.
func (w *Walker) Collect() []string {
	var ids []string
	for {
		id, ok := w.Next()
		if !ok {
			return ids
		}
		ids = append(ids, id)
	}
}

// nextBFS marks tasks when they are queued so each is queued once.
func (w *Walker) nextBFS() (string, bool) {
	if len(w.pending) == 0 {
		return "", false
	}
	id := w.pending[0]
	w.pending = w.pending[1:]
	for _, n := range w.neighbors(id) {
		if !w.seen[n] {
			w.seen[n] = true
			w.pending = append(w.pending, n)
		}
	}
	return id, true
}

// nextDFS marks tasks when they are popped, which gives pre-order with
// backtracking.
func (w *Walker) nextDFS() (string, bool) {
	for len(w.pending) > 0 {
		last := len(w.pending) - 1
		id := w.pending[last]
		w.pending = w.pending[:last]
		if w.seen[id] {
			continue
		}
		w.seen[id] = true
		neighbors := w.neighbors(id)
		for i := len(neighbors) - 1; i >= 0; i-- {
			if !w.seen[neighbors[i]] {
				w.pending = append(w.pending, neighbors[i])
			}
		}
		return id, true
	}
	return "", false
}

func (w *Walker) neighbors(id string) []string {
	if w.dir == Upstream {
		return w.g.Incoming(id)
	}
	return w.g.Outgoing(id)
}

// ShortestPath returns the fewest-edge path from one task to another along
// outgoing edges, including both ends. The second result is false when no
// path exists.
func ShortestPath(g Graph, from, to string) ([]string, bool, error) {
	const op = "algo.shortest_path"
	if !g.Has(from) {
		return nil, false, errs.NotFound(op, from)
	}
	if !g.Has(to) {
		return nil, false, errs.NotFound(op, to)
	}
	parent := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == to {
			var path []string
			for cur := to; cur != ""; cur = parent[cur] {
				path = append(path, cur)
			}
			slices.Reverse(path)
			return path, true, nil
		}
		for _, n := range g.Outgoing(id) {
			if _, ok := parent[n]; !ok {
				parent[n] = id
				queue = append(queue, n)
			}
		}
	}
	return nil, false, nil
}
