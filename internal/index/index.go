// Package index maintains denormalized lookup tables over the task graph.
//
// The tables are a cache: they can always be rebuilt from the tasks and the
// graph's adjacency, and are never trusted over them.
package index

import (
	"path/filepath"
	"sort"

	"github.com/nibzard/atomgraph-go/internal/task"
)

// Adjacency is the part of the graph the index consults to classify roots,
// orphans and leaves.
type Adjacency interface {
	Has(id string) bool
	InDegree(id string) int
	OutDegree(id string) int
}

type set map[string]struct{}

// Manager holds the lookup tables. It is not safe for concurrent use.
type Manager struct {
	status   map[task.Status]set
	priority map[task.Priority]set
	files    map[string]set
	terms    map[string]set
	roots    set
	orphans  set
	leaves   set
}

// New returns an empty index.
func New() *Manager {
	m := &Manager{}
	m.reset()
	return m
}

func (m *Manager) reset() {
	m.status = make(map[task.Status]set)
	m.priority = make(map[task.Priority]set)
	m.files = make(map[string]set)
	m.terms = make(map[string]set)
	m.roots = make(set)
	m.orphans = make(set)
	m.leaves = make(set)
}

// OnInsertOrUpdate moves a task between buckets. When prev is non-nil its
// entries are removed first, then next's entries are added and next's
// root/orphan/leaf membership is recomputed from the graph.
func (m *Manager) OnInsertOrUpdate(next, prev *task.Task, g Adjacency) {
	if prev != nil {
		m.drop(prev)
	}
	m.add(next)
	m.Refresh(next.ID, g)
}

// OnRemove drops every entry of a removed task.
func (m *Manager) OnRemove(t *task.Task) {
	m.drop(t)
	delete(m.roots, t.ID)
	delete(m.orphans, t.ID)
	delete(m.leaves, t.ID)
}

// Refresh recomputes root/orphan/leaf membership for one task. It is called
// for both endpoints after an edge change and for the former neighbours of a
// removed task.
func (m *Manager) Refresh(id string, g Adjacency) {
	delete(m.roots, id)
	delete(m.orphans, id)
	delete(m.leaves, id)
	if !g.Has(id) {
		return
	}
	in, out := g.InDegree(id), g.OutDegree(id)
	if in == 0 {
		m.roots[id] = struct{}{}
	}
	if out == 0 {
		m.leaves[id] = struct{}{}
	}
	if in == 0 && out == 0 {
		m.orphans[id] = struct{}{}
	}
}

// RebuildAll clears every table and re-indexes the given tasks.
func (m *Manager) RebuildAll(nodes []*task.Task, g Adjacency) {
	m.reset()
	for _, t := range nodes {
		m.add(t)
		m.Refresh(t.ID, g)
	}
}

func (m *Manager) add(t *task.Task) {
	addTo(m.status, t.Status, t.ID)
	addTo(m.priority, t.Priority, t.ID)
	for _, f := range t.Files() {
		addTo(m.files, normalizePath(f), t.ID)
	}
	for _, term := range Terms(t) {
		addTo(m.terms, term, t.ID)
	}
}

func (m *Manager) drop(t *task.Task) {
	removeFrom(m.status, t.Status, t.ID)
	removeFrom(m.priority, t.Priority, t.ID)
	for _, f := range t.Files() {
		removeFrom(m.files, normalizePath(f), t.ID)
	}
	for _, term := range Terms(t) {
		removeFrom(m.terms, term, t.ID)
	}
}

// ByStatus returns the ids with the given status, sorted.
func (m *Manager) ByStatus(s task.Status) []string {
	return sorted(m.status[s])
}

// ByPriority returns the ids with the given priority, sorted.
func (m *Manager) ByPriority(p task.Priority) []string {
	return sorted(m.priority[p])
}

// ByFile returns the ids referencing the given file path, sorted.
func (m *Manager) ByFile(path string) []string {
	return sorted(m.files[normalizePath(path)])
}

// Search returns the ids whose text contains every word of the query, sorted.
func (m *Manager) Search(query string) []string {
	words := Tokenize(query)
	if len(words) == 0 {
		return []string{}
	}
	buckets := make([]set, 0, len(words))
	for _, w := range words {
		b, ok := m.terms[w]
		if !ok {
			return []string{}
		}
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return len(buckets[i]) < len(buckets[j]) })

	ids := []string{}
	for id := range buckets[0] {
		match := true
		for _, b := range buckets[1:] {
			if _, ok := b[id]; !ok {
				match = false
				break
			}
		}
		if match {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Roots returns the cached ids with no incoming edges, sorted.
func (m *Manager) Roots() []string {
	return sorted(m.roots)
}

// Orphans returns the cached ids with no edges at all, sorted.
func (m *Manager) Orphans() []string {
	return sorted(m.orphans)
}

// Leaves returns the cached ids with no outgoing edges, sorted.
func (m *Manager) Leaves() []string {
	return sorted(m.leaves)
}

// Counts returns the number of tasks per status.
func (m *Manager) Counts() map[task.Status]int {
	counts := make(map[task.Status]int, len(task.Statuses()))
	for _, s := range task.Statuses() {
		counts[s] = len(m.status[s])
	}
	return counts
}

func normalizePath(p string) string {
	if p == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(p))
}

func addTo[K comparable](buckets map[K]set, key K, id string) {
	b, ok := buckets[key]
	if !ok {
		b = make(set)
		buckets[key] = b
	}
	b[id] = struct{}{}
}

func removeFrom[K comparable](buckets map[K]set, key K, id string) {
	b, ok := buckets[key]
	if !ok {
		return
	}
	delete(b, id)
	if len(b) == 0 {
		delete(buckets, key)
	}
}

func sorted(s set) []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
