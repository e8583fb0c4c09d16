// Package graph holds tasks and their dependency edges in memory.
//
// An Engine owns every task inserted into it. Edges are plain id pairs kept in
// two adjacency sets (outgoing and incoming) that always mirror each other,
// and each task's Edges field always equals its outgoing set.
//
// The engine is not safe for concurrent use.
package graph

import (
	"slices"
	"sort"
	"time"

	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/task"
)

// FormatVersion is the metadata version written for new projects.
const FormatVersion = "1.0.0"

var now = func() time.Time { return time.Now().UTC() }

// Metadata describes the project a graph belongs to.
type Metadata struct {
	ProjectName string    `json:"project_name"`
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Edge is a directed dependency: From must finish before To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type set map[string]struct{}

// Engine is an in-memory directed graph of tasks.
type Engine struct {
	nodes map[string]*task.Task
	out   map[string]set
	in    map[string]set
	seq   map[string]uint64
	next  uint64
	meta  Metadata
}

// New returns an empty graph for the named project.
func New(projectName string) *Engine {
	ts := now()
	return &Engine{
		nodes: make(map[string]*task.Task),
		out:   make(map[string]set),
		in:    make(map[string]set),
		seq:   make(map[string]uint64),
		meta: Metadata{
			ProjectName: projectName,
			Version:     FormatVersion,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		},
	}
}

// Metadata returns the project metadata.
func (g *Engine) Metadata() Metadata {
	return g.meta
}

// Touch bumps the metadata updated timestamp.
func (g *Engine) Touch() {
	g.meta.UpdatedAt = now()
}

// Len returns the number of tasks.
func (g *Engine) Len() int {
	return len(g.nodes)
}

// Has reports whether id is in the graph.
func (g *Engine) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Insert adds a task. The engine takes ownership of t. Any edges already
// recorded on the task seed the adjacency sets; their targets must exist.
func (g *Engine) Insert(t *task.Task) error {
	const op = "graph.insert"
	if t.IsZero() {
		return errs.Invalid(op, "", "id", "missing required field")
	}
	if g.Has(t.ID) {
		return errs.AlreadyExists(op, t.ID)
	}
	t.Normalize()
	seen := make(set, len(t.Edges))
	for _, to := range t.Edges {
		if to == t.ID {
			return errs.Invalid(op, t.ID, "edges", "task cannot depend on itself")
		}
		if !g.Has(to) {
			return errs.NotFound(op, to)
		}
		if _, dup := seen[to]; dup {
			return errs.AlreadyExists(op, t.ID+"->"+to)
		}
		seen[to] = struct{}{}
	}

	g.nodes[t.ID] = t
	g.out[t.ID] = make(set)
	g.in[t.ID] = make(set)
	g.next++
	g.seq[t.ID] = g.next
	for _, to := range t.Edges {
		g.out[t.ID][to] = struct{}{}
		g.in[to][t.ID] = struct{}{}
	}
	g.Touch()
	return nil
}

// Remove deletes a task and every edge touching it, returning the removed task.
func (g *Engine) Remove(id string) (*task.Task, error) {
	t, ok := g.nodes[id]
	if !ok {
		return nil, errs.NotFound("graph.remove", id)
	}
	for succ := range g.out[id] {
		delete(g.in[succ], id)
	}
	for pred := range g.in[id] {
		delete(g.out[pred], id)
		p := g.nodes[pred]
		p.Edges = slices.DeleteFunc(p.Edges, func(e string) bool { return e == id })
		p.Touch()
	}
	delete(g.nodes, id)
	delete(g.out, id)
	delete(g.in, id)
	delete(g.seq, id)
	t.Edges = []string{}
	g.Touch()
	return t, nil
}

// Replace swaps the stored task with next, which must carry the same id, and
// returns the previous value. The edge list of next is overwritten with the
// engine's outgoing set so the two cannot diverge.
func (g *Engine) Replace(next *task.Task) (*task.Task, error) {
	if next.IsZero() {
		return nil, errs.Invalid("graph.replace", "", "id", "missing required field")
	}
	prev, ok := g.nodes[next.ID]
	if !ok {
		return nil, errs.NotFound("graph.replace", next.ID)
	}
	next.Normalize()
	next.Edges = slices.Clone(prev.Edges)
	g.nodes[next.ID] = next
	g.Touch()
	return prev, nil
}

// AddEdge records that from must finish before to.
func (g *Engine) AddEdge(from, to string) error {
	const op = "graph.add_edge"
	if err := g.checkEndpoints(op, from, to); err != nil {
		return err
	}
	if from == to {
		return errs.Invalid(op, from, "edges", "task cannot depend on itself")
	}
	if _, ok := g.out[from][to]; ok {
		return errs.AlreadyExists(op, from+"->"+to)
	}
	g.out[from][to] = struct{}{}
	g.in[to][from] = struct{}{}
	src := g.nodes[from]
	src.Edges = append(src.Edges, to)
	src.Touch()
	g.Touch()
	return nil
}

// RemoveEdge deletes the edge from -> to.
func (g *Engine) RemoveEdge(from, to string) error {
	const op = "graph.remove_edge"
	if err := g.checkEndpoints(op, from, to); err != nil {
		return err
	}
	if _, ok := g.out[from][to]; !ok {
		return errs.NotFound(op, from+"->"+to)
	}
	delete(g.out[from], to)
	delete(g.in[to], from)
	src := g.nodes[from]
	src.Edges = slices.DeleteFunc(src.Edges, func(e string) bool { return e == to })
	src.Touch()
	g.Touch()
	return nil
}

// HasEdge reports whether the edge from -> to exists.
func (g *Engine) HasEdge(from, to string) bool {
	_, ok := g.out[from][to]
	return ok
}

func (g *Engine) checkEndpoints(op, from, to string) error {
	if !g.Has(from) {
		return errs.NotFound(op, from)
	}
	if !g.Has(to) {
		return errs.NotFound(op, to)
	}
	return nil
}

// Get returns the task with the given id, or nil. The returned task is owned
// by the engine; change it only through Replace or the engine's edge methods.
func (g *Engine) Get(id string) *task.Task {
	return g.nodes[id]
}

// GetOrFail returns the task with the given id or a NotFound error.
func (g *Engine) GetOrFail(id string) (*task.Task, error) {
	t, ok := g.nodes[id]
	if !ok {
		return nil, errs.NotFound("graph.get", id)
	}
	return t, nil
}

// Outgoing returns the successors of id in the order the edges were added.
// Unknown ids yield an empty list.
func (g *Engine) Outgoing(id string) []string {
	t, ok := g.nodes[id]
	if !ok {
		return []string{}
	}
	return slices.Clone(t.Edges)
}

// Incoming returns the predecessors of id in insertion order. Unknown ids
// yield an empty list.
func (g *Engine) Incoming(id string) []string {
	return g.ordered(g.in[id])
}

// OutDegree returns the number of successors of id.
func (g *Engine) OutDegree(id string) int {
	return len(g.out[id])
}

// InDegree returns the number of predecessors of id.
func (g *Engine) InDegree(id string) int {
	return len(g.in[id])
}

// IDs returns every task id in insertion order.
func (g *Engine) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	g.sortBySeq(ids)
	return ids
}

// Nodes returns every task in insertion order.
func (g *Engine) Nodes() []*task.Task {
	ids := g.IDs()
	nodes := make([]*task.Task, len(ids))
	for i, id := range ids {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// Edges returns every edge, grouped by source in insertion order.
func (g *Engine) Edges() []Edge {
	var edges []Edge
	for _, id := range g.IDs() {
		for _, to := range g.nodes[id].Edges {
			edges = append(edges, Edge{From: id, To: to})
		}
	}
	return edges
}

// Roots returns tasks with no incoming edges.
func (g *Engine) Roots() []string {
	return g.filter(func(id string) bool { return len(g.in[id]) == 0 })
}

// Orphans returns tasks with neither incoming nor outgoing edges.
func (g *Engine) Orphans() []string {
	return g.filter(func(id string) bool { return len(g.in[id]) == 0 && len(g.out[id]) == 0 })
}

// Leaves returns tasks with no outgoing edges.
func (g *Engine) Leaves() []string {
	return g.filter(func(id string) bool { return len(g.out[id]) == 0 })
}

func (g *Engine) filter(keep func(string) bool) []string {
	ids := []string{}
	for _, id := range g.IDs() {
		if keep(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (g *Engine) ordered(s set) []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	g.sortBySeq(ids)
	return ids
}

func (g *Engine) sortBySeq(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return g.seq[ids[i]] < g.seq[ids[j]]
	})
}
