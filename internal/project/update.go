package project

import (
	"slices"

	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/graph"
	"github.com/nibzard/atomgraph-go/internal/task"
)

// Update applies fn to a copy of the task and stores the result. fn may
// change content, items and status, but not the id, edges or blockers; those
// have their own operations. Status changes must follow the state machine.
// Completing a task releases blocked dependents whose blockers are all done.
func (p *Project) Update(id string, fn func(*task.Task) error) (*task.Task, error) {
	const op = "project.update"
	prev, err := p.graph.GetOrFail(id)
	if err != nil {
		return nil, err
	}
	next := prev.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	var v []errs.Violation
	if next.ID != prev.ID {
		v = append(v, errs.Violation{Path: "id", Msg: "is immutable"})
	}
	if !slices.Equal(next.Edges, prev.Edges) {
		v = append(v, errs.Violation{Path: "edges", Msg: "change edges with link and unlink"})
	}
	if !slices.Equal(next.Blockers, prev.Blockers) {
		v = append(v, errs.Violation{Path: "blockers", Msg: "change blockers with the blocker operations"})
	}
	if !legalChange(prev, next) {
		v = append(v, errs.Violation{Path: "status", Msg: "cannot move from " + string(prev.Status) + " to " + string(next.Status)})
	}
	if len(v) > 0 {
		return nil, errs.Validation(op, id, v...)
	}
	next.CreatedAt = prev.CreatedAt
	next.Touch()
	if err := task.Validate(next); err != nil {
		return nil, err
	}
	// Only reject an update that introduces policy findings, so tasks saved
	// under a lenient policy stay editable.
	if p.policy.Strict {
		if err := p.policy.Check(next); err != nil && p.policy.Check(prev) == nil {
			return nil, err
		}
	}
	if err := p.commit(prev, next); err != nil {
		return nil, err
	}

	if next.Status == task.StatusCompleted && prev.Status != task.StatusCompleted {
		if err := p.releaseDependents(id); err != nil {
			return nil, err
		}
	}
	return next.Clone(), nil
}

// Transition moves a task to a new status.
func (p *Project) Transition(id string, to task.Status) (*task.Task, error) {
	return p.Update(id, func(t *task.Task) error {
		return t.Transition(to)
	})
}

// legalChange accepts state-machine transitions plus the automatic reopen of
// a completed task whose items are no longer all complete.
func legalChange(prev, next *task.Task) bool {
	if task.CanTransition(prev.Status, next.Status) {
		return true
	}
	return prev.Status == task.StatusCompleted &&
		next.Status == task.StatusInProgress &&
		!next.ItemsComplete()
}

// mutate is Update without the caller-facing guards, for bookkeeping the
// project does itself.
func (p *Project) mutate(id string, fn func(*task.Task) error) (*task.Task, error) {
	prev, err := p.graph.GetOrFail(id)
	if err != nil {
		return nil, err
	}
	next := prev.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Touch()
	if err := p.commit(prev, next); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

func (p *Project) commit(prev, next *task.Task) error {
	if err := task.Validate(next); err != nil {
		return err
	}
	if _, err := p.graph.Replace(next); err != nil {
		return err
	}
	p.index.OnInsertOrUpdate(next, prev, p.graph)
	return nil
}

// releaseDependents moves every blocked task that lists id as a blocker back
// to in_progress once all of its blockers are complete.
func (p *Project) releaseDependents(id string) error {
	for _, dep := range p.graph.Outgoing(id) {
		d := p.graph.Get(dep)
		if d.Status != task.StatusBlocked || !slices.Contains(d.Blockers, id) || !blockersDone(d, p.graph) {
			continue
		}
		if _, err := p.mutate(dep, func(t *task.Task) error {
			return t.Transition(task.StatusInProgress)
		}); err != nil {
			return err
		}
		p.logger.Info("blockers cleared", "id", dep, "completed", id)
	}
	return nil
}

// dropBlocker removes one blocker from t and unblocks t when every remaining
// blocker is complete.
func dropBlocker(t *task.Task, blocker string, g *graph.Engine) error {
	t.Blockers = slices.DeleteFunc(t.Blockers, func(b string) bool { return b == blocker })
	if t.Status == task.StatusBlocked && blockersDone(t, g) {
		return t.Transition(task.StatusInProgress)
	}
	return nil
}

// blockersDone reports whether every blocker still in the graph is complete.
func blockersDone(t *task.Task, g *graph.Engine) bool {
	for _, b := range t.Blockers {
		if bt := g.Get(b); bt != nil && bt.Status != task.StatusCompleted {
			return false
		}
	}
	return true
}
