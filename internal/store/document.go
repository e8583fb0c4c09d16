package store

import (
	"cmp"
	"encoding/json"
	"slices"

	"github.com/nibzard/atomgraph-go/internal/graph"
	"github.com/nibzard/atomgraph-go/internal/index"
	"github.com/nibzard/atomgraph-go/internal/task"
)

const (
	// FileVersion is the schema version written to the version field.
	FileVersion = 1
	// FileFormat tags the document so foreign JSON files are rejected early.
	FileFormat = "atomgraph/v1"
)

// DocMetadata is the metadata block of the persisted document.
type DocMetadata struct {
	graph.Metadata
	TaskCount int `json:"task_count"`
}

// Document is the on-disk shape of a project graph. Edges and Indexes are
// written for tooling convenience and ignored on load; adjacency comes from
// each task's edges. Order lists task ids in insertion order.
type Document struct {
	Version  int                   `json:"version"`
	Format   string                `json:"format"`
	Metadata DocMetadata           `json:"metadata"`
	Tasks    map[string]*task.Task `json:"tasks"`
	Order    []string              `json:"order,omitempty"`
	Edges    []graph.Edge          `json:"edges"`
	Indexes  *index.Buckets        `json:"indexes,omitempty"`
}

// NewDocument captures the current state of g. idx may be nil.
func NewDocument(g *graph.Engine, idx *index.Manager) *Document {
	snap := g.Snapshot()
	doc := &Document{
		Version:  FileVersion,
		Format:   FileFormat,
		Metadata: DocMetadata{Metadata: snap.Metadata, TaskCount: len(snap.Nodes)},
		Tasks:    make(map[string]*task.Task, len(snap.Nodes)),
		Order:    make([]string, 0, len(snap.Nodes)),
		Edges:    g.Edges(),
	}
	for _, t := range snap.Nodes {
		doc.Tasks[t.ID] = t
		doc.Order = append(doc.Order, t.ID)
	}
	if doc.Edges == nil {
		doc.Edges = []graph.Edge{}
	}
	if idx != nil {
		b := idx.Snapshot()
		doc.Indexes = &b
	}
	return doc
}

// Encode renders the document with two-space indentation and a trailing
// newline.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// snapshot converts the document into a graph snapshot. Tasks follow Order
// when it names every task exactly once; otherwise they are ordered by
// creation time, then id.
func (d *Document) snapshot() *graph.Snapshot {
	nodes := make([]*task.Task, 0, len(d.Tasks))
	if d.orderComplete() {
		for _, id := range d.Order {
			nodes = append(nodes, d.Tasks[id])
		}
		return &graph.Snapshot{Nodes: nodes, Metadata: d.Metadata.Metadata}
	}
	for _, t := range d.Tasks {
		nodes = append(nodes, t)
	}
	slices.SortFunc(nodes, func(a, b *task.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return &graph.Snapshot{Nodes: nodes, Metadata: d.Metadata.Metadata}
}

func (d *Document) orderComplete() bool {
	if len(d.Order) != len(d.Tasks) {
		return false
	}
	seen := make(map[string]bool, len(d.Order))
	for _, id := range d.Order {
		if _, ok := d.Tasks[id]; !ok || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}
