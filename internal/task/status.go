package task

import (
	"slices"

	"github.com/nibzard/atomgraph-go/internal/errs"
)

var transitions = map[Status][]Status{
	StatusReady:      {StatusInProgress, StatusBlocked},
	StatusInProgress: {StatusInReview, StatusBlocked},
	StatusInReview:   {StatusCompleted, StatusInProgress, StatusBlocked},
	StatusBlocked:    {StatusInProgress},
	StatusCompleted:  {},
}

// CanTransition reports whether moving from one status to another is legal.
// Staying in the same status is always legal.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return slices.Contains(transitions[from], to)
}

// Transition moves the task to a new status. Completing requires every
// success criterion and deliverable to be complete.
func (t *Task) Transition(to Status) error {
	const op = "task.transition"
	if !to.Valid() {
		return errs.Invalid(op, t.ID, "status", "invalid status %q", to)
	}
	if t.Status == to {
		return nil
	}
	if !CanTransition(t.Status, to) {
		return errs.Invalid(op, t.ID, "status", "cannot move from %s to %s", t.Status, to)
	}
	if to == StatusCompleted && !t.ItemsComplete() {
		return errs.Invalid(op, t.ID, "status",
			"completed requires every success criterion and deliverable to be complete")
	}
	t.Status = to
	if to == StatusCompleted && t.CompletedAt == nil {
		ts := now()
		t.CompletedAt = &ts
	}
	t.Touch()
	return nil
}
