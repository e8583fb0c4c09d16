package task

import (
	"fmt"
	"unicode/utf8"

	"github.com/nibzard/atomgraph-go/internal/errs"
)

// Structural bounds enforced by Validate.
const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 2000
	MaxNotesLength       = 10000
	MaxItemTextLength    = 300
	MinCriteria          = 1
	MaxCriteria          = 10
	MinDeliverables      = 1
	MaxDeliverables      = 10
)

// Validate checks the structural constraints of a task and returns a
// ValidationFailed error listing every violation found.
func Validate(t *Task) error {
	var v []errs.Violation
	add := func(path, format string, args ...any) {
		v = append(v, errs.Violation{Path: path, Msg: fmt.Sprintf(format, args...)})
	}

	if t.ID == "" {
		add("id", "missing required field")
	}
	if t.Title == "" {
		add("title", "missing required field")
	} else if n := utf8.RuneCountInString(t.Title); n > MaxTitleLength {
		add("title", "must be at most %d characters, got %d", MaxTitleLength, n)
	}
	if n := utf8.RuneCountInString(t.Description); n > MaxDescriptionLength {
		add("description", "must be at most %d characters, got %d", MaxDescriptionLength, n)
	}
	if n := utf8.RuneCountInString(t.Notes); n > MaxNotesLength {
		add("notes", "must be at most %d characters, got %d", MaxNotesLength, n)
	}
	if !t.Status.Valid() {
		add("status", "invalid status %q", t.Status)
	}
	if !t.Priority.Valid() {
		add("priority", "invalid priority %q", t.Priority)
	}

	if n := len(t.SuccessCriteria); n < MinCriteria || n > MaxCriteria {
		add("success_criteria", "must have between %d and %d items, got %d", MinCriteria, MaxCriteria, n)
	}
	ids := make(map[string]bool)
	for i, c := range t.SuccessCriteria {
		path := fmt.Sprintf("success_criteria[%d]", i)
		checkItem(add, path, c.ID, c.Text, ids)
	}

	if n := len(t.Deliverables); n < MinDeliverables || n > MaxDeliverables {
		add("deliverables", "must have between %d and %d items, got %d", MinDeliverables, MaxDeliverables, n)
	}
	for i, d := range t.Deliverables {
		path := fmt.Sprintf("deliverables[%d]", i)
		checkItem(add, path, d.ID, d.Text, ids)
	}

	checkRefs(add, "blockers", t.ID, t.Blockers)
	checkRefs(add, "edges", t.ID, t.Edges)

	for i, f := range t.FixItems {
		path := fmt.Sprintf("needs_fixing[%d]", i)
		if f.Text == "" {
			add(path+".text", "missing required field")
		}
		if !f.Source.Valid() {
			add(path+".source", "invalid source %q", f.Source)
		}
	}

	if t.Status == StatusCompleted && !t.ItemsComplete() {
		add("status", "completed requires every success criterion and deliverable to be complete")
	}

	if len(v) > 0 {
		return errs.Validation("task.validate", t.ID, v...)
	}
	return nil
}

func checkItem(add func(string, string, ...any), path, id, text string, ids map[string]bool) {
	if id == "" {
		add(path+".id", "missing required field")
	} else if ids[id] {
		add(path+".id", "duplicate item id %q", id)
	}
	ids[id] = true
	if text == "" {
		add(path+".text", "missing required field")
	} else if n := utf8.RuneCountInString(text); n > MaxItemTextLength {
		add(path+".text", "must be at most %d characters, got %d", MaxItemTextLength, n)
	}
}

func checkRefs(add func(string, string, ...any), field, self string, refs []string) {
	seen := make(map[string]bool, len(refs))
	for i, ref := range refs {
		path := fmt.Sprintf("%s[%d]", field, i)
		switch {
		case ref == "":
			add(path, "empty task id")
		case ref == self:
			add(path, "task cannot reference itself")
		case seen[ref]:
			add(path, "duplicate task id %q", ref)
		}
		seen[ref] = true
	}
}
