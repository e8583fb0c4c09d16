package algo

import "container/heap"

// TopoResult is the outcome of a topological sort.
type TopoResult struct {
	Order      []string `json:"order"`
	HasCycle   bool     `json:"has_cycle"`
	CycleNodes []string `json:"cycle_nodes,omitempty"`
}

// TopologicalSort orders ids so that every edge A->B puts A before B. Among
// tasks that are ready at the same time, the earliest inserted goes first.
// When the graph has a cycle, Order holds the tasks that could be resolved
// and CycleNodes the rest, which include every task on a cycle.
func TopologicalSort(g Graph) TopoResult {
	ids := g.IDs()
	pos := positions(ids)
	indeg := make(map[string]int, len(ids))
	for _, id := range ids {
		indeg[id] = len(g.Incoming(id))
	}

	ready := &posHeap{pos: pos}
	for _, id := range ids {
		if indeg[id] == 0 {
			heap.Push(ready, id)
		}
	}

	order := make([]string, 0, len(ids))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(string)
		order = append(order, id)
		for _, next := range g.Outgoing(id) {
			indeg[next]--
			if indeg[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	res := TopoResult{Order: order}
	if len(order) < len(ids) {
		res.HasCycle = true
		for _, id := range ids {
			if indeg[id] > 0 {
				res.CycleNodes = append(res.CycleNodes, id)
			}
		}
	}
	return res
}

// Levels groups tasks into waves: every task in a wave depends only on tasks
// in earlier waves. The second result is false when a cycle stopped the
// grouping early.
func Levels(g Graph) ([][]string, bool) {
	ids := g.IDs()
	indeg := make(map[string]int, len(ids))
	var wave []string
	for _, id := range ids {
		indeg[id] = len(g.Incoming(id))
		if indeg[id] == 0 {
			wave = append(wave, id)
		}
	}

	pos := positions(ids)
	var levels [][]string
	placed := 0
	for len(wave) > 0 {
		levels = append(levels, wave)
		placed += len(wave)
		var next []string
		for _, id := range wave {
			for _, succ := range g.Outgoing(id) {
				indeg[succ]--
				if indeg[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		sortByPos(next, pos)
		wave = next
	}
	return levels, placed == len(ids)
}

func positions(ids []string) map[string]int {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	return pos
}

func sortByPos(ids []string, pos map[string]int) {
	h := &posHeap{pos: pos, ids: append([]string(nil), ids...)}
	heap.Init(h)
	for i := range ids {
		ids[i] = heap.Pop(h).(string)
	}
}

// posHeap is a min-heap of ids ordered by their position in the view.
type posHeap struct {
	pos map[string]int
	ids []string
}

func (h *posHeap) Len() int           { return len(h.ids) }
func (h *posHeap) Less(i, j int) bool { return h.pos[h.ids[i]] < h.pos[h.ids[j]] }
func (h *posHeap) Swap(i, j int)      { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }
func (h *posHeap) Push(x any)         { h.ids = append(h.ids, x.(string)) }
func (h *posHeap) Pop() any {
	n := len(h.ids)
	id := h.ids[n-1]
	h.ids = h.ids[:n-1]
	return id
}
