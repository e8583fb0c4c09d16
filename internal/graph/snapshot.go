package graph

import (
	"fmt"
	"slices"

	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/task"
)

// Snapshot is a detached copy of an engine's state.
type Snapshot struct {
	Nodes    []*task.Task        // insertion order
	Outgoing map[string][]string // id -> successors
	Incoming map[string][]string // id -> predecessors
	Metadata Metadata
}

// Snapshot returns a deep copy of the graph.
func (g *Engine) Snapshot() *Snapshot {
	s := &Snapshot{
		Outgoing: make(map[string][]string, len(g.nodes)),
		Incoming: make(map[string][]string, len(g.nodes)),
		Metadata: g.meta,
	}
	for _, t := range g.Nodes() {
		s.Nodes = append(s.Nodes, t.Clone())
		s.Outgoing[t.ID] = g.Outgoing(t.ID)
		s.Incoming[t.ID] = g.Incoming(t.ID)
	}
	return s
}

// FromSnapshot rebuilds an engine. Adjacency comes from Outgoing when it is
// present and from each node's Edges otherwise; when both Outgoing and
// Incoming are given they must agree. Metadata is restored as-is.
func FromSnapshot(s *Snapshot) (*Engine, error) {
	const op = "graph.from_snapshot"
	g := New(s.Metadata.ProjectName)
	for _, n := range s.Nodes {
		t := n.Clone()
		if t.IsZero() {
			return nil, errs.Invalid(op, "", "id", "missing required field")
		}
		if g.Has(t.ID) {
			return nil, errs.AlreadyExists(op, t.ID)
		}
		if s.Outgoing != nil {
			t.Edges = slices.Clone(s.Outgoing[t.ID])
		}
		t.Normalize()
		g.nodes[t.ID] = t
		g.out[t.ID] = make(set)
		g.in[t.ID] = make(set)
		g.next++
		g.seq[t.ID] = g.next
	}

	for _, t := range g.Nodes() {
		for _, to := range t.Edges {
			if to == t.ID {
				return nil, errs.Invalid(op, t.ID, "edges", "task cannot depend on itself")
			}
			if !g.Has(to) {
				return nil, errs.NotFound(op, to)
			}
			if _, dup := g.out[t.ID][to]; dup {
				return nil, errs.AlreadyExists(op, t.ID+"->"+to)
			}
			g.out[t.ID][to] = struct{}{}
			g.in[to][t.ID] = struct{}{}
		}
	}

	if s.Outgoing != nil && s.Incoming != nil {
		for id, preds := range s.Incoming {
			if !g.Has(id) {
				return nil, errs.NotFound(op, id)
			}
			if len(preds) != len(g.in[id]) {
				return nil, errs.Invalid(op, id, "incoming", "incoming adjacency does not mirror outgoing adjacency")
			}
			for _, p := range preds {
				if _, ok := g.in[id][p]; !ok {
					return nil, errs.Invalid(op, id, "incoming", "incoming edge from %q has no outgoing counterpart", p)
				}
			}
		}
	}

	meta := s.Metadata
	if meta.Version == "" {
		meta.Version = FormatVersion
	}
	g.meta = meta
	return g, nil
}

// CheckInvariants verifies that the adjacency sets mirror each other and
// that every task's Edges matches its outgoing set.
func (g *Engine) CheckInvariants() error {
	for id, succs := range g.out {
		for to := range succs {
			if _, ok := g.in[to][id]; !ok {
				return fmt.Errorf("edge %s->%s missing from incoming[%s]", id, to, to)
			}
		}
		t := g.nodes[id]
		if t == nil {
			return fmt.Errorf("adjacency entry for unknown task %s", id)
		}
		if len(t.Edges) != len(succs) {
			return fmt.Errorf("task %s edges %v do not match outgoing set of size %d", id, t.Edges, len(succs))
		}
		for _, to := range t.Edges {
			if _, ok := succs[to]; !ok {
				return fmt.Errorf("task %s lists edge to %s missing from outgoing[%s]", id, to, id)
			}
		}
	}
	for id, preds := range g.in {
		for from := range preds {
			if _, ok := g.out[from][id]; !ok {
				return fmt.Errorf("edge %s->%s missing from outgoing[%s]", from, id, from)
			}
		}
	}
	if len(g.out) != len(g.nodes) || len(g.in) != len(g.nodes) {
		return fmt.Errorf("adjacency covers %d/%d tasks, want %d", len(g.out), len(g.in), len(g.nodes))
	}
	return nil
}
