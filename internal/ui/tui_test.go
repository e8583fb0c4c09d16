package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/atomgraph-go/internal/project"
	"github.com/nibzard/atomgraph-go/internal/store"
	"github.com/nibzard/atomgraph-go/internal/task"
)

func sampleProject(t *testing.T) *project.Project {
	t.Helper()
	p, err := project.Create(t.TempDir(), "demo", project.Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	d := task.Draft{
		Title:           "Add login handler",
		Priority:        task.PriorityHigh,
		SuccessCriteria: []string{"Returns 200 for valid input"},
		Deliverables:    []task.DeliverableDraft{{Text: "Handler", FilePath: "internal/api/login.go"}},
	}
	first, err := p.Add(d)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	d.Title = "Write login tests"
	d.Blockers = []string{first.ID}
	if _, err := p.Add(d); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return p
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewOverview(t *testing.T) {
	p := sampleProject(t)
	m := newTUIModel("graph.json", func() (*project.Project, error) { return p, nil }, 0)
	m.Init()

	view := m.View()
	for _, want := range []string{
		"demo (2 tasks)",
		"Ready: 1",
		"Blocked: 1",
		"Add login handler",
		"No completed tasks yet.",
		"Press h for help | q to quit",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Write login tests") {
		t.Errorf("blocked task listed without a filter:\n%s", view)
	}
}

func TestFilterKeys(t *testing.T) {
	p := sampleProject(t)
	m := newTUIModel("graph.json", func() (*project.Project, error) { return p, nil }, 0)
	m.Init()

	m.Update(key("5"))
	if m.filter != task.StatusBlocked {
		t.Fatalf("got filter %q, want %q", m.filter, task.StatusBlocked)
	}
	view := m.View()
	if !strings.Contains(view, "Write login tests") {
		t.Errorf("blocked filter view missing blocked task:\n%s", view)
	}
	if strings.Contains(view, "Add login handler") {
		t.Errorf("blocked filter view lists a ready task:\n%s", view)
	}

	m.Update(key("4"))
	if !strings.Contains(m.View(), "No matching tasks.") {
		t.Errorf("completed filter should be empty:\n%s", m.View())
	}

	m.Update(key("0"))
	if m.filter != "" {
		t.Errorf("got filter %q after clear, want empty", m.filter)
	}
}

func TestToggles(t *testing.T) {
	p := sampleProject(t)
	m := newTUIModel("graph.json", func() (*project.Project, error) { return p, nil }, 0)
	m.Init()

	m.Update(key("?"))
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Errorf("help screen not shown")
	}
	m.Update(key("h"))

	m.Update(key("l"))
	view := m.View()
	if !strings.Contains(view, "Execution Levels") {
		t.Errorf("levels not shown:\n%s", view)
	}
	if strings.Contains(view, "cycle") {
		t.Errorf("acyclic graph reported as cyclic:\n%s", view)
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("q did not quit")
	}
}

func TestLoadError(t *testing.T) {
	fail := errors.New("graph file is corrupt")
	m := newTUIModel("graph.json", func() (*project.Project, error) { return nil, fail }, 0)
	m.Init()

	view := m.View()
	if !strings.Contains(view, "Error loading graph file") || !strings.Contains(view, fail.Error()) {
		t.Errorf("view does not report load error:\n%s", view)
	}
}

func TestChangeReloads(t *testing.T) {
	p := sampleProject(t)
	loads := 0
	m := newTUIModel("graph.json", func() (*project.Project, error) {
		loads++
		return p, nil
	}, 0)
	ch := make(chan store.Change, 1)
	m.changes = ch
	m.Init()

	_, cmd := m.Update(changeMsg{change: store.Change{Path: "graph.json", Op: store.ChangeWritten}})
	if loads != 2 {
		t.Errorf("got %d loads, want 2", loads)
	}
	if cmd == nil {
		t.Fatal("change did not re-arm the watcher")
	}

	m.Update(changeMsg{change: store.Change{Path: "graph.json", Op: store.ChangeRemoved}})
	if loads != 2 {
		t.Errorf("removal reloaded the graph: got %d loads", loads)
	}

	close(ch)
	if _, ok := waitForChange(ch)().(watchClosedMsg); !ok {
		t.Errorf("closed channel did not report watchClosedMsg")
	}
}

func TestIsTTY(t *testing.T) {
	if IsTTY(&bytes.Buffer{}) {
		t.Error("buffer reported as a TTY")
	}
}
