// Package project ties the graph engine, its indexes and the persistence
// store together. Every mutation goes through a Project so the index stays in
// step with the graph and blocker bookkeeping stays consistent.
//
// A Project is not safe for concurrent use.
package project

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/graph"
	"github.com/nibzard/atomgraph-go/internal/graphdir"
	"github.com/nibzard/atomgraph-go/internal/index"
	"github.com/nibzard/atomgraph-go/internal/store"
	"github.com/nibzard/atomgraph-go/internal/task"
)

// Options configures Create and Open.
type Options struct {
	// GraphFile overrides the default .atomgraph/graph.json location.
	GraphFile string
	// Retention is the number of backups kept. Zero uses the store default.
	Retention int
	// Policy is the atomicity policy for new and updated tasks. Nil means
	// task.DefaultPolicy().
	Policy *task.Policy
	// Logger receives progress and policy warnings. Nil discards them.
	Logger *log.Logger
}

// Project is an open task graph.
type Project struct {
	dir    string
	store  *store.Store
	graph  *graph.Engine
	index  *index.Manager
	policy task.Policy
	logger *log.Logger
}

func newProject(dir string, opts Options) *Project {
	p := &Project{
		dir:    dir,
		policy: task.DefaultPolicy(),
		logger: opts.Logger,
	}
	if opts.Policy != nil {
		p.policy = *opts.Policy
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	path := opts.GraphFile
	if path == "" {
		path = graphdir.GraphPath(dir)
	}
	p.store = store.New(path, store.Options{Retention: opts.Retention, Logger: p.logger})
	return p
}

// Create starts a new, empty project in dir and saves it. It fails with
// AlreadyExists when the graph file is already there.
func Create(dir, name string, opts Options) (*Project, error) {
	p := newProject(dir, opts)
	if p.store.Exists() {
		return nil, errs.AlreadyExists("project.create", p.store.Path())
	}
	if name == "" {
		return nil, errs.Invalid("project.create", "", "project_name", "missing required field")
	}
	p.graph = graph.New(name)
	p.index = index.New()
	if err := p.Save(); err != nil {
		return nil, err
	}
	p.logger.Info("project created", "name", name, "path", p.store.Path())
	return p, nil
}

// Open loads an existing project from dir.
func Open(dir string, opts Options) (*Project, error) {
	p := newProject(dir, opts)
	g, idx, err := p.store.Load()
	if err != nil {
		return nil, err
	}
	p.graph, p.index = g, idx
	return p, nil
}

// Save writes the project to disk.
func (p *Project) Save() error {
	return p.store.Save(p.graph, p.index)
}

// Dir returns the work directory the project was opened in.
func (p *Project) Dir() string { return p.dir }

// Path returns the graph file path.
func (p *Project) Path() string { return p.store.Path() }

// Store returns the underlying store.
func (p *Project) Store() *store.Store { return p.store }

// Metadata returns the graph metadata.
func (p *Project) Metadata() graph.Metadata { return p.graph.Metadata() }

// Policy returns the atomicity policy in effect.
func (p *Project) Policy() task.Policy { return p.policy }

// Len returns the number of tasks.
func (p *Project) Len() int { return p.graph.Len() }

// NewTask builds a task from a draft under the project's policy. It does not
// insert it.
func (p *Project) NewTask(d task.Draft) (*task.Task, error) {
	return task.New(d, p.policy)
}

// Add builds a task from a draft and inserts it.
func (p *Project) Add(d task.Draft) (*task.Task, error) {
	t, err := p.NewTask(d)
	if err != nil {
		return nil, err
	}
	if err := p.Insert(t); err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// Insert adds a task to the graph. Each blocker must exist and gets an edge
// blocker -> t. A blocked task whose blockers are all complete is inserted as
// ready. The project takes ownership of t.
func (p *Project) Insert(t *task.Task) error {
	const op = "project.insert"
	if err := task.Validate(t); err != nil {
		return err
	}
	if err := p.checkPolicy(t); err != nil {
		return err
	}
	for _, b := range t.Blockers {
		if !p.graph.Has(b) {
			return errs.NotFound(op, b)
		}
	}
	// A new task only waits on blockers that are still open.
	if t.Status == task.StatusBlocked && blockersDone(t, p.graph) {
		t.Status = task.StatusReady
	}
	if err := p.graph.Insert(t); err != nil {
		return err
	}
	p.index.OnInsertOrUpdate(t, nil, p.graph)
	for _, to := range t.Edges {
		p.index.Refresh(to, p.graph)
	}
	for _, b := range t.Blockers {
		if p.graph.HasEdge(b, t.ID) {
			continue
		}
		if err := p.AddEdge(b, t.ID); err != nil {
			return err
		}
	}
	p.logger.Debug("task inserted", "id", t.ID, "title", t.Title)
	return nil
}

// Remove deletes a task, its edges, and any blocker references to it.
func (p *Project) Remove(id string) (*task.Task, error) {
	if !p.graph.Has(id) {
		return nil, errs.NotFound("project.remove", id)
	}
	neighbours := append(p.graph.Incoming(id), p.graph.Outgoing(id)...)
	removed, err := p.graph.Remove(id)
	if err != nil {
		return nil, err
	}
	p.index.OnRemove(removed)
	for _, n := range neighbours {
		p.index.Refresh(n, p.graph)
	}
	for _, other := range p.graph.Nodes() {
		if !slices.Contains(other.Blockers, id) {
			continue
		}
		if _, err := p.mutate(other.ID, func(t *task.Task) error {
			return dropBlocker(t, id, p.graph)
		}); err != nil {
			return nil, err
		}
	}
	p.logger.Debug("task removed", "id", id)
	return removed, nil
}

// AddEdge records that from must finish before to.
func (p *Project) AddEdge(from, to string) error {
	if err := p.graph.AddEdge(from, to); err != nil {
		return err
	}
	p.index.Refresh(from, p.graph)
	p.index.Refresh(to, p.graph)
	if path, found, _ := p.ShortestPath(to, from); found {
		p.logger.Warn("edge closes a cycle", "from", from, "to", to, "path", path)
	}
	return nil
}

// RemoveEdge deletes the edge from -> to. If from was recorded as a blocker
// of to, that record goes too.
func (p *Project) RemoveEdge(from, to string) error {
	if err := p.graph.RemoveEdge(from, to); err != nil {
		return err
	}
	p.index.Refresh(from, p.graph)
	p.index.Refresh(to, p.graph)
	if slices.Contains(p.graph.Get(to).Blockers, from) {
		_, err := p.mutate(to, func(t *task.Task) error {
			return dropBlocker(t, from, p.graph)
		})
		return err
	}
	return nil
}

// AddBlocker records that blocker must complete before id can proceed. It
// adds the edge blocker -> id when missing and moves id to blocked while the
// blocker is open.
func (p *Project) AddBlocker(id, blocker string) (*task.Task, error) {
	const op = "project.add_blocker"
	t, err := p.graph.GetOrFail(id)
	if err != nil {
		return nil, err
	}
	b, err := p.graph.GetOrFail(blocker)
	if err != nil {
		return nil, err
	}
	if id == blocker {
		return nil, errs.Invalid(op, id, "blockers", "task cannot block itself")
	}
	if slices.Contains(t.Blockers, blocker) {
		return nil, errs.AlreadyExists(op, blocker+"->"+id)
	}
	if !p.graph.HasEdge(blocker, id) {
		if err := p.AddEdge(blocker, id); err != nil {
			return nil, err
		}
	}
	open := b.Status != task.StatusCompleted
	return p.mutate(id, func(t *task.Task) error {
		t.Blockers = append(t.Blockers, blocker)
		if open && t.Status != task.StatusCompleted {
			return t.Transition(task.StatusBlocked)
		}
		return nil
	})
}

// RemoveBlocker drops a blocker record and its edge, and releases id when no
// open blocker remains.
func (p *Project) RemoveBlocker(id, blocker string) (*task.Task, error) {
	t, err := p.graph.GetOrFail(id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(t.Blockers, blocker) {
		return nil, errs.NotFound("project.remove_blocker", blocker+"->"+id)
	}
	if p.graph.HasEdge(blocker, id) {
		if err := p.graph.RemoveEdge(blocker, id); err != nil {
			return nil, err
		}
		p.index.Refresh(blocker, p.graph)
		p.index.Refresh(id, p.graph)
	}
	return p.mutate(id, func(t *task.Task) error {
		return dropBlocker(t, blocker, p.graph)
	})
}

// Restore replaces the graph file with a backup and reloads it.
func (p *Project) Restore(backupPath string) error {
	g, idx, err := p.store.RestoreFromBackup(backupPath)
	if err != nil {
		return err
	}
	p.graph, p.index = g, idx
	return nil
}

// Backups lists the existing backups, newest first.
func (p *Project) Backups() ([]store.Backup, error) {
	return p.store.Backups()
}

func (p *Project) checkPolicy(t *task.Task) error {
	if p.policy.Strict {
		return p.policy.Check(t)
	}
	p.warnPolicy(t)
	return nil
}

func (p *Project) warnPolicy(t *task.Task) {
	for _, v := range p.policy.Findings(t) {
		p.logger.Warn("policy", "id", t.ID, "field", v.Path, "finding", v.Msg)
	}
}
