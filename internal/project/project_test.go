package project

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/nibzard/atomgraph-go/internal/algo"
	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/index"
	"github.com/nibzard/atomgraph-go/internal/store"
	"github.com/nibzard/atomgraph-go/internal/task"
)

func draft(title string, blockers ...string) task.Draft {
	return task.Draft{
		Title:           title,
		Priority:        task.PriorityMedium,
		SuccessCriteria: []string{"Endpoint returns 200 for valid input"},
		Deliverables:    []task.DeliverableDraft{{Text: "Handler", FilePath: "internal/api/handler.go"}},
		Blockers:        blockers,
	}
}

func create(t *testing.T, opts Options) *Project {
	t.Helper()
	p, err := Create(t.TempDir(), "demo", opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func add(t *testing.T, p *Project, d task.Draft) *task.Task {
	t.Helper()
	tk, err := p.Add(d)
	if err != nil {
		t.Fatalf("Add(%q): %v", d.Title, err)
	}
	return tk
}

// finish checks every item and walks the task to completed.
func finish(t *testing.T, p *Project, id string) {
	t.Helper()
	_, err := p.Update(id, func(tk *task.Task) error {
		for _, c := range tk.SuccessCriteria {
			if err := tk.SetCriterion(c.ID, true); err != nil {
				return err
			}
		}
		for _, d := range tk.Deliverables {
			if err := tk.SetDeliverable(d.ID, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update(%s): %v", id, err)
	}
	for _, s := range []task.Status{task.StatusInProgress, task.StatusInReview, task.StatusCompleted} {
		if _, err := p.Transition(id, s); err != nil {
			t.Fatalf("Transition(%s, %s): %v", id, s, err)
		}
	}
}

// checkIndex compares the incrementally maintained index with a full rebuild.
func checkIndex(t *testing.T, p *Project) {
	t.Helper()
	fresh := index.New()
	fresh.RebuildAll(p.graph.Nodes(), p.graph)
	if diff := cmp.Diff(fresh.Snapshot(), p.index.Snapshot()); diff != "" {
		t.Errorf("index out of step (-rebuilt +incremental):\n%s", diff)
	}
	if err := p.graph.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants: %v", err)
	}
}

func TestCreateAndOpen(t *testing.T) {
	dir := t.TempDir()
	p, err := Create(dir, "demo", Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := Create(dir, "demo", Options{}); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Errorf("second Create: got %v, want AlreadyExists", err)
	}
	a := add(t, p, draft("Implement login handler"))
	add(t, p, draft("Add session cookie", a.ID))
	if err := p.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	q, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if diff := cmp.Diff(p.Tasks(), q.Tasks()); diff != "" {
		t.Errorf("tasks after reopen (-want +got):\n%s", diff)
	}
	if q.Metadata().ProjectName != "demo" {
		t.Errorf("ProjectName: got %q, want demo", q.Metadata().ProjectName)
	}
	checkIndex(t, q)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(t.TempDir(), Options{})
	if !errors.Is(err, store.ErrMissing) {
		t.Errorf("Open: got %v, want ErrMissing", err)
	}
}

func TestCreateRequiresName(t *testing.T) {
	_, err := Create(t.TempDir(), "", Options{})
	if !errors.Is(err, errs.ErrValidationFailed) {
		t.Errorf("Create: got %v, want ValidationFailed", err)
	}
}

func TestBlockersLifecycle(t *testing.T) {
	p := create(t, Options{})
	a := add(t, p, draft("Implement login handler"))
	b := add(t, p, draft("Add session cookie", a.ID))

	if b.Status != task.StatusBlocked {
		t.Errorf("B status: got %s, want blocked", b.Status)
	}
	if diff := cmp.Diff([]string{a.ID}, p.Roots()); diff != "" {
		t.Errorf("Roots (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{b.ID}, p.Leaves()); diff != "" {
		t.Errorf("Leaves (-want +got):\n%s", diff)
	}
	if got := p.Orphans(); len(got) != 0 {
		t.Errorf("Orphans: got %v, want none", got)
	}

	finish(t, p, a.ID)
	if got := p.Get(b.ID).Status; got != task.StatusInProgress {
		t.Errorf("B after A completed: got %s, want in_progress", got)
	}
	checkIndex(t, p)
}

func TestAddWithCompletedBlocker(t *testing.T) {
	p := create(t, Options{})
	a := add(t, p, draft("Implement parser core"))
	c := add(t, p, draft("Document parser grammar"))
	finish(t, p, a.ID)

	b := add(t, p, draft("Ship parser release", a.ID))
	if b.Status != task.StatusReady {
		t.Errorf("B status: got %s, want ready", b.Status)
	}
	var ready []string
	for _, tk := range p.Ready() {
		ready = append(ready, tk.ID)
	}
	if diff := cmp.Diff([]string{c.ID, b.ID}, ready); diff != "" {
		t.Errorf("Ready (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{b.ID}, p.Dependents(a.ID)); diff != "" {
		t.Errorf("Dependents (-want +got):\n%s", diff)
	}

	d := add(t, p, draft("Write release announcement", a.ID, c.ID))
	if d.Status != task.StatusBlocked {
		t.Errorf("D status with one open blocker: got %s, want blocked", d.Status)
	}
	checkIndex(t, p)
}

func TestAddUnknownBlocker(t *testing.T) {
	p := create(t, Options{})
	_, err := p.Add(draft("Add session cookie", "task-000000000000"))
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Add: got %v, want NotFound", err)
	}
	if p.Len() != 0 {
		t.Errorf("Len: got %d, want 0", p.Len())
	}
}

func TestRemoveReleasesDependents(t *testing.T) {
	p := create(t, Options{})
	a := add(t, p, draft("Implement login handler"))
	b := add(t, p, draft("Add session cookie", a.ID))

	if _, err := p.Remove(a.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got := p.Get(b.ID)
	if len(got.Blockers) != 0 {
		t.Errorf("Blockers: got %v, want none", got.Blockers)
	}
	if got.Status != task.StatusInProgress {
		t.Errorf("Status: got %s, want in_progress", got.Status)
	}
	if len(p.Prerequisites(b.ID)) != 0 {
		t.Errorf("Prerequisites: got %v, want none", p.Prerequisites(b.ID))
	}
	if _, err := p.Remove(a.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second Remove: got %v, want NotFound", err)
	}
	checkIndex(t, p)
}

func TestBlockerOperations(t *testing.T) {
	p := create(t, Options{})
	a := add(t, p, draft("Implement login handler"))
	b := add(t, p, draft("Add session cookie"))

	got, err := p.AddBlocker(b.ID, a.ID)
	if err != nil {
		t.Fatalf("AddBlocker: %v", err)
	}
	if got.Status != task.StatusBlocked || !cmp.Equal(got.Blockers, []string{a.ID}) {
		t.Errorf("after AddBlocker: got %s %v", got.Status, got.Blockers)
	}
	if _, err := p.AddBlocker(b.ID, a.ID); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Errorf("duplicate AddBlocker: got %v, want AlreadyExists", err)
	}
	if _, err := p.AddBlocker(b.ID, b.ID); !errors.Is(err, errs.ErrValidationFailed) {
		t.Errorf("self AddBlocker: got %v, want ValidationFailed", err)
	}

	got, err = p.RemoveBlocker(b.ID, a.ID)
	if err != nil {
		t.Fatalf("RemoveBlocker: %v", err)
	}
	if got.Status != task.StatusInProgress || len(got.Blockers) != 0 {
		t.Errorf("after RemoveBlocker: got %s %v", got.Status, got.Blockers)
	}
	if len(p.Edges()) != 0 {
		t.Errorf("Edges: got %v, want none", p.Edges())
	}
	if _, err := p.RemoveBlocker(b.ID, a.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second RemoveBlocker: got %v, want NotFound", err)
	}
	checkIndex(t, p)
}

func TestRemoveEdgeDropsBlocker(t *testing.T) {
	p := create(t, Options{})
	a := add(t, p, draft("Implement login handler"))
	b := add(t, p, draft("Add session cookie", a.ID))

	if err := p.RemoveEdge(a.ID, b.ID); err != nil {
		t.Fatalf("RemoveEdge: %v", err)
	}
	if got := p.Get(b.ID); len(got.Blockers) != 0 || got.Status != task.StatusInProgress {
		t.Errorf("B: got blockers %v status %s", got.Blockers, got.Status)
	}
	if err := p.RemoveEdge(a.ID, b.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second RemoveEdge: got %v, want NotFound", err)
	}
	checkIndex(t, p)
}

func TestAddEdgeWarnsOnCycle(t *testing.T) {
	var buf bytes.Buffer
	p := create(t, Options{Logger: log.New(&buf)})
	a := add(t, p, draft("Implement login handler"))
	b := add(t, p, draft("Add session cookie"))

	if err := p.AddEdge(a.ID, b.ID); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := p.AddEdge(b.ID, a.ID); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if !strings.Contains(buf.String(), "edge closes a cycle") {
		t.Errorf("log: got %q, want cycle warning", buf.String())
	}
	if got := p.TopologicalSort(); !got.HasCycle {
		t.Error("TopologicalSort: got no cycle")
	}
	if got := p.DetectCycles(); len(got) != 1 {
		t.Errorf("DetectCycles: got %v, want one cycle", got)
	}
}

func TestUpdateGuards(t *testing.T) {
	p := create(t, Options{})
	a := add(t, p, draft("Implement login handler"))
	b := add(t, p, draft("Add session cookie"))

	tests := []struct {
		name string
		fn   func(*task.Task) error
		want error
	}{
		{"id", func(tk *task.Task) error { tk.ID = "task-ffffffffffff"; return nil }, errs.ErrValidationFailed},
		{"edges", func(tk *task.Task) error { tk.Edges = []string{b.ID}; return nil }, errs.ErrValidationFailed},
		{"blockers", func(tk *task.Task) error { tk.Blockers = []string{b.ID}; return nil }, errs.ErrValidationFailed},
		{"skip to completed", func(tk *task.Task) error { tk.Status = task.StatusCompleted; return nil }, errs.ErrValidationFailed},
		{"empty title", func(tk *task.Task) error { tk.Title = ""; return nil }, errs.ErrValidationFailed},
		{"vague title", func(tk *task.Task) error { tk.Title = "Stuff"; return nil }, errs.ErrPolicyViolation},
		{"fn error", func(tk *task.Task) error { return tk.SetCriterion("sc-9", true) }, errs.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Update(a.ID, tt.fn); !errors.Is(err, tt.want) {
				t.Errorf("Update: got %v, want %v", err, tt.want)
			}
			if diff := cmp.Diff(a, p.Get(a.ID)); diff != "" {
				t.Errorf("task changed by rejected update (-want +got):\n%s", diff)
			}
		})
	}

	got, err := p.Update(a.ID, func(tk *task.Task) error {
		tk.Title = "Implement logout handler"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "Implement logout handler" || got.UpdatedAt.Before(a.UpdatedAt) {
		t.Errorf("Update: got %q at %v", got.Title, got.UpdatedAt)
	}
	if ids := p.Search("logout"); !cmp.Equal(ids, []string{a.ID}) {
		t.Errorf("Search(logout): got %v, want [%s]", ids, a.ID)
	}
	if ids := p.Search("login"); len(ids) != 0 {
		t.Errorf("Search(login): got %v, want none", ids)
	}
}

func TestUpdateReopensCompleted(t *testing.T) {
	p := create(t, Options{})
	a := add(t, p, draft("Implement login handler"))
	finish(t, p, a.ID)

	got, err := p.Update(a.ID, func(tk *task.Task) error {
		_, err := tk.AddCriterion("Returns 401 for bad password")
		return err
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != task.StatusInProgress || got.CompletedAt != nil {
		t.Errorf("after reopen: got %s completed_at=%v", got.Status, got.CompletedAt)
	}
	if ids := p.ByStatus(task.StatusCompleted); len(ids) != 0 {
		t.Errorf("ByStatus(completed): got %v, want none", ids)
	}
	checkIndex(t, p)
}

func TestPolicyModes(t *testing.T) {
	strict := create(t, Options{})
	if _, err := strict.Add(draft("Stuff")); !errors.Is(err, errs.ErrPolicyViolation) {
		t.Errorf("strict Add: got %v, want PolicyViolation", err)
	}

	var buf bytes.Buffer
	lenient := task.DefaultPolicy()
	lenient.Strict = false
	p := create(t, Options{Policy: &lenient, Logger: log.New(&buf)})
	if _, err := p.Add(draft("Stuff")); err != nil {
		t.Fatalf("lenient Add: %v", err)
	}
	if !strings.Contains(buf.String(), "action verb") {
		t.Errorf("log: got %q, want policy warning", buf.String())
	}
}

func TestTransitionBatch(t *testing.T) {
	p := create(t, Options{})
	a := add(t, p, draft("Implement login handler"))
	b := add(t, p, draft("Add session cookie"))

	results := p.TransitionBatch([]string{a.ID, "task-000000000000", b.ID}, task.StatusInProgress)
	if len(results) != 3 {
		t.Fatalf("results: got %d, want 3", len(results))
	}
	if !results[0].OK() || !results[2].OK() {
		t.Errorf("valid items failed: %v, %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, errs.ErrNotFound) {
		t.Errorf("unknown item: got %v, want NotFound", results[1].Err)
	}
	if Failed(results) != 1 {
		t.Errorf("Failed: got %d, want 1", Failed(results))
	}

	results = p.TransitionBatch([]string{a.ID}, task.StatusCompleted)
	if !errors.Is(results[0].Err, errs.ErrValidationFailed) {
		t.Errorf("in_progress -> completed: got %v, want ValidationFailed", results[0].Err)
	}
	if got := p.ByStatus(task.StatusInProgress); len(got) != 2 {
		t.Errorf("ByStatus(in_progress): got %v, want 2 ids", got)
	}
}

func TestRemoveBatch(t *testing.T) {
	p := create(t, Options{})
	a := add(t, p, draft("Implement login handler"))
	b := add(t, p, draft("Add session cookie", a.ID))
	c := add(t, p, draft("Write login docs"))

	if _, err := p.RemoveBatch([]string{a.ID, b.ID}, false); !errors.Is(err, errs.ErrValidationFailed) {
		t.Errorf("unconfirmed RemoveBatch: got %v, want ValidationFailed", err)
	}
	if p.Len() != 3 {
		t.Fatalf("Len after refused batch: got %d, want 3", p.Len())
	}

	results, err := p.RemoveBatch([]string{a.ID, "task-000000000000", b.ID}, true)
	if err != nil {
		t.Fatalf("RemoveBatch: %v", err)
	}
	if Failed(results) != 1 || !errors.Is(results[1].Err, errs.ErrNotFound) {
		t.Errorf("results: got %+v", results)
	}
	if diff := cmp.Diff([]string{c.ID}, p.graph.IDs()); diff != "" {
		t.Errorf("remaining (-want +got):\n%s", diff)
	}
	checkIndex(t, p)
}

func TestReady(t *testing.T) {
	p := create(t, Options{})
	low := draft("Write login docs")
	low.Priority = task.PriorityLow
	l := add(t, p, low)
	m := add(t, p, draft("Implement login handler"))
	high := draft("Fix password hashing")
	high.Priority = task.PriorityHigh
	h := add(t, p, high)
	add(t, p, draft("Add session cookie", m.ID))

	var got []string
	for _, tk := range p.Ready() {
		got = append(got, tk.ID)
	}
	if diff := cmp.Diff([]string{h.ID, m.ID, l.ID}, got); diff != "" {
		t.Errorf("Ready (-want +got):\n%s", diff)
	}
}

func TestQueries(t *testing.T) {
	p := create(t, Options{})
	a := add(t, p, draft("Implement login handler"))
	d := draft("Add session cookie", a.ID)
	d.RelatedFiles = []string{"internal/auth/session.go"}
	b := add(t, p, d)

	if got := p.ByFile("./internal/auth/session.go"); !cmp.Equal(got, []string{b.ID}) {
		t.Errorf("ByFile: got %v, want [%s]", got, b.ID)
	}
	if got := p.ByPriority(task.PriorityMedium); len(got) != 2 {
		t.Errorf("ByPriority: got %v, want 2 ids", got)
	}
	w, err := p.Traverse(algo.Downstream, algo.BreadthFirst, a.ID)
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	if diff := cmp.Diff([]string{a.ID, b.ID}, w.Collect()); diff != "" {
		t.Errorf("Traverse (-want +got):\n%s", diff)
	}
	if got := p.TopologicalSort().Order; !cmp.Equal(got, []string{a.ID, b.ID}) {
		t.Errorf("TopologicalSort: got %v", got)
	}
	if got, _ := p.Levels(); len(got) != 2 {
		t.Errorf("Levels: got %v, want 2 levels", got)
	}
	if counts := p.Counts(); counts[task.StatusReady] != 1 || counts[task.StatusBlocked] != 1 {
		t.Errorf("Counts: got %v", counts)
	}
	if _, err := p.GetOrFail("task-000000000000"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("GetOrFail: got %v, want NotFound", err)
	}
	if p.Get("task-000000000000") != nil {
		t.Error("Get of unknown id: got task, want nil")
	}
}

func TestRestore(t *testing.T) {
	p := create(t, Options{})
	add(t, p, draft("Implement login handler"))
	if err := p.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	add(t, p, draft("Add session cookie"))
	if err := p.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	backups, err := p.Backups()
	if err != nil || len(backups) != 2 {
		t.Fatalf("Backups: got %d, %v; want 2", len(backups), err)
	}
	if err := p.Restore(backups[0].Path); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if p.Len() != 1 {
		t.Errorf("Len after restore: got %d, want 1", p.Len())
	}
	checkIndex(t, p)
}
