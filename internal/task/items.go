package task

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nibzard/atomgraph-go/internal/errs"
)

const (
	criterionPrefix   = "sc-"
	deliverablePrefix = "dl-"
)

// AddCriterion appends an incomplete success criterion and returns its id.
// A completed task is re-opened.
func (t *Task) AddCriterion(text string) (string, error) {
	const op = "task.add_criterion"
	text = strings.TrimSpace(text)
	if err := checkText(op, t.ID, text); err != nil {
		return "", err
	}
	if len(t.SuccessCriteria) >= MaxCriteria {
		return "", errs.Invalid(op, t.ID, "success_criteria", "at most %d items allowed", MaxCriteria)
	}
	id := nextItemID(criterionPrefix, len(t.SuccessCriteria), func(i int) string { return t.SuccessCriteria[i].ID })
	t.SuccessCriteria = append(t.SuccessCriteria, Criterion{ID: id, Text: text})
	t.refreshCompletion()
	return id, nil
}

// SetCriterion marks a success criterion complete or incomplete.
func (t *Task) SetCriterion(id string, completed bool) error {
	i := slices.IndexFunc(t.SuccessCriteria, func(c Criterion) bool { return c.ID == id })
	if i < 0 {
		return errs.NotFound("task.set_criterion", t.ID+"/"+id)
	}
	c := &t.SuccessCriteria[i]
	c.Completed = completed
	if completed {
		ts := now()
		c.CompletedAt = &ts
	} else {
		c.CompletedAt = nil
	}
	t.refreshCompletion()
	return nil
}

// RemoveCriterion deletes a success criterion. The last one cannot be removed.
func (t *Task) RemoveCriterion(id string) error {
	const op = "task.remove_criterion"
	i := slices.IndexFunc(t.SuccessCriteria, func(c Criterion) bool { return c.ID == id })
	if i < 0 {
		return errs.NotFound(op, t.ID+"/"+id)
	}
	if len(t.SuccessCriteria) <= MinCriteria {
		return errs.Invalid(op, t.ID, "success_criteria", "at least %d success criterion required", MinCriteria)
	}
	t.SuccessCriteria = slices.Delete(t.SuccessCriteria, i, i+1)
	t.refreshCompletion()
	return nil
}

// AddDeliverable appends an incomplete deliverable and returns its id.
// A completed task is re-opened.
func (t *Task) AddDeliverable(text, filePath string) (string, error) {
	const op = "task.add_deliverable"
	text = strings.TrimSpace(text)
	if err := checkText(op, t.ID, text); err != nil {
		return "", err
	}
	if len(t.Deliverables) >= MaxDeliverables {
		return "", errs.Invalid(op, t.ID, "deliverables", "at most %d items allowed", MaxDeliverables)
	}
	id := nextItemID(deliverablePrefix, len(t.Deliverables), func(i int) string { return t.Deliverables[i].ID })
	t.Deliverables = append(t.Deliverables, Deliverable{ID: id, Text: text, FilePath: cleanPath(filePath)})
	t.refreshCompletion()
	return id, nil
}

// SetDeliverable marks a deliverable complete or incomplete.
func (t *Task) SetDeliverable(id string, completed bool) error {
	i := slices.IndexFunc(t.Deliverables, func(d Deliverable) bool { return d.ID == id })
	if i < 0 {
		return errs.NotFound("task.set_deliverable", t.ID+"/"+id)
	}
	t.Deliverables[i].Completed = completed
	t.refreshCompletion()
	return nil
}

// RemoveDeliverable deletes a deliverable. The last one cannot be removed.
func (t *Task) RemoveDeliverable(id string) error {
	const op = "task.remove_deliverable"
	i := slices.IndexFunc(t.Deliverables, func(d Deliverable) bool { return d.ID == id })
	if i < 0 {
		return errs.NotFound(op, t.ID+"/"+id)
	}
	if len(t.Deliverables) <= MinDeliverables {
		return errs.Invalid(op, t.ID, "deliverables", "at least %d deliverable required", MinDeliverables)
	}
	t.Deliverables = slices.Delete(t.Deliverables, i, i+1)
	t.refreshCompletion()
	return nil
}

// AddFixItem records something that needs fixing.
func (t *Task) AddFixItem(text string, source FixSource, filePath string) error {
	const op = "task.add_fix"
	text = strings.TrimSpace(text)
	if err := checkText(op, t.ID, text); err != nil {
		return err
	}
	if !source.Valid() {
		return errs.Invalid(op, t.ID, "source", "invalid source %q", source)
	}
	t.FixItems = append(t.FixItems, FixItem{Text: text, Source: source, FilePath: cleanPath(filePath)})
	t.Touch()
	return nil
}

// SetFixItem marks the fix item at index i complete or incomplete.
func (t *Task) SetFixItem(i int, completed bool) error {
	if i < 0 || i >= len(t.FixItems) {
		return errs.NotFound("task.set_fix", fmt.Sprintf("%s/needs_fixing[%d]", t.ID, i))
	}
	t.FixItems[i].Completed = completed
	t.Touch()
	return nil
}

// OpenFixItems returns the number of incomplete fix items.
func (t *Task) OpenFixItems() int {
	n := 0
	for _, f := range t.FixItems {
		if !f.Completed {
			n++
		}
	}
	return n
}

// AddVerification records an external documentation check.
func (t *Task) AddVerification(libraryID, notes string) error {
	libraryID = strings.TrimSpace(libraryID)
	if libraryID == "" {
		return errs.Invalid("task.add_verification", t.ID, "library_id", "missing required field")
	}
	t.Verifications = append(t.Verifications, Verification{
		LibraryID:  libraryID,
		VerifiedAt: now(),
		Notes:      strings.TrimSpace(notes),
	})
	t.Touch()
	return nil
}

// AddRelatedFile records a related file path. Duplicates are ignored.
func (t *Task) AddRelatedFile(path string) {
	p := cleanPath(path)
	if p == "" || slices.Contains(t.RelatedFiles, p) {
		return
	}
	t.RelatedFiles = append(t.RelatedFiles, p)
	t.Touch()
}

// RemoveRelatedFile drops a related file path, reporting whether it was present.
func (t *Task) RemoveRelatedFile(path string) bool {
	p := cleanPath(path)
	i := slices.Index(t.RelatedFiles, p)
	if i < 0 {
		return false
	}
	t.RelatedFiles = slices.Delete(t.RelatedFiles, i, i+1)
	t.Touch()
	return true
}

// refreshCompletion keeps CompletedAt and the completed status consistent
// with the item flags.
func (t *Task) refreshCompletion() {
	if t.ItemsComplete() {
		if t.CompletedAt == nil {
			ts := now()
			t.CompletedAt = &ts
		}
	} else {
		t.CompletedAt = nil
		if t.Status == StatusCompleted {
			t.Status = StatusInProgress
		}
	}
	t.Touch()
}

func checkText(op, id, text string) error {
	if text == "" {
		return errs.Invalid(op, id, "text", "missing required field")
	}
	if n := utf8.RuneCountInString(text); n > MaxItemTextLength {
		return errs.Invalid(op, id, "text", "must be at most %d characters, got %d", MaxItemTextLength, n)
	}
	return nil
}

// nextItemID returns prefix followed by one more than the highest numeric
// suffix in use.
func nextItemID(prefix string, n int, idAt func(int) string) string {
	highest := 0
	for i := 0; i < n; i++ {
		num, err := strconv.Atoi(strings.TrimPrefix(idAt(i), prefix))
		if err == nil && num > highest {
			highest = num
		}
	}
	return fmt.Sprintf("%s%d", prefix, highest+1)
}
