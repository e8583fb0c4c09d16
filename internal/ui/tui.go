// Package ui provides optional terminal interfaces.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/atomgraph-go/internal/project"
	"github.com/nibzard/atomgraph-go/internal/store"
	"github.com/nibzard/atomgraph-go/internal/task"
)

// Loader opens a fresh copy of the project for each refresh.
type Loader func() (*project.Project, error)

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

type tuiConfig struct {
	interval time.Duration
	watch    bool
}

// WithInterval sets the polling interval. Zero disables polling.
func WithInterval(d time.Duration) TUIOption {
	return func(c *tuiConfig) {
		c.interval = d
	}
}

// WithWatch enables reloading when the graph file changes on disk.
func WithWatch(enabled bool) TUIOption {
	return func(c *tuiConfig) {
		c.watch = enabled
	}
}

// RunTUI starts a read-only browser over the graph at path.
func RunTUI(ctx context.Context, path string, load Loader, opts ...TUIOption) error {
	c := &tuiConfig{
		interval: 2 * time.Second,
		watch:    true,
	}
	for _, opt := range opts {
		opt(c)
	}

	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	model := newTUIModel(path, load, c.interval)
	if c.watch {
		w, err := store.New(path, store.Options{}).Watch()
		if err != nil {
			return fmt.Errorf("watch graph file: %w", err)
		}
		defer w.Stop()
		model.changes = w.Events()
	}
	return runProgram(ctx, model)
}

func runProgram(ctx context.Context, model *tuiModel) error {
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headingStyle = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

type tuiModel struct {
	path         string
	load         Loader
	changes      <-chan store.Change
	loadErr      error
	data         *tuiData
	tickInterval time.Duration
	filter       task.Status
	showHelp     bool
	showLevels   bool
}

type tuiData struct {
	project  string
	counts   map[task.Status]int
	total    int
	ready    []*task.Task
	active   []*task.Task
	recent   []*task.Task
	matching []*task.Task
	all      []*task.Task
	levels   [][]string
	cyclic   bool
}

type tickMsg time.Time

type changeMsg struct {
	change store.Change
}

type watchClosedMsg struct{}

func newTUIModel(path string, load Loader, interval time.Duration) *tuiModel {
	return &tuiModel{
		path:         path,
		load:         load,
		tickInterval: interval,
	}
}

func (m *tuiModel) Init() tea.Cmd {
	m.refresh()
	var cmds []tea.Cmd
	if m.tickInterval > 0 {
		cmds = append(cmds, tickCmd(m.tickInterval))
	}
	if m.changes != nil {
		cmds = append(cmds, waitForChange(m.changes))
	}
	return tea.Batch(cmds...)
}

// filterKeys maps number keys to status filters.
var filterKeys = map[string]task.Status{
	"1": task.StatusReady,
	"2": task.StatusInProgress,
	"3": task.StatusInReview,
	"4": task.StatusCompleted,
	"5": task.StatusBlocked,
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r", "f5":
			m.refresh()
			return m, nil
		case "l":
			m.showLevels = !m.showLevels
			return m, nil
		case "h", "?":
			m.showHelp = !m.showHelp
			return m, nil
		case "0":
			m.filter = ""
			m.applyFilter()
			return m, nil
		}
		if status, ok := filterKeys[key]; ok {
			m.filter = status
			m.applyFilter()
		}
	case tickMsg:
		m.refresh()
		return m, tickCmd(m.tickInterval)
	case changeMsg:
		if msg.change.Op == store.ChangeWritten {
			m.refresh()
		}
		return m, waitForChange(m.changes)
	case watchClosedMsg:
		m.changes = nil
	}

	return m, nil
}

func (m *tuiModel) View() string {
	var b strings.Builder
	writeTitle(&b)

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b, m.tickInterval)
		return b.String()
	}

	if m.filter != "" {
		b.WriteString(fmt.Sprintf("Filter: %s (0 to clear)\n\n", m.filter))
	}

	if m.loadErr != nil {
		b.WriteString(errorStyle.Render("Error loading graph file:") + "\n")
		b.WriteString("  " + m.loadErr.Error() + "\n\n")
		writeFooter(&b, m.tickInterval)
		return b.String()
	}
	if m.data == nil {
		b.WriteString("Loading...\n\n")
		writeFooter(&b, m.tickInterval)
		return b.String()
	}

	writeOverview(&b, m.data)
	if m.filter != "" {
		writeTasks(&b, fmt.Sprintf("Tasks (%s)", m.filter), m.data.matching, "No matching tasks.")
	} else {
		writeTasks(&b, "In Progress", m.data.active, "Nothing in progress.")
		writeTasks(&b, "Ready", m.data.ready, "No ready tasks.")
		writeTasks(&b, "Recently Completed", m.data.recent, "No completed tasks yet.")
	}
	if m.showLevels {
		writeLevels(&b, m.data)
	}
	b.WriteString(dimStyle.Render("Graph: "+m.path) + "\n\n")
	writeFooter(&b, m.tickInterval)
	return b.String()
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(ch <-chan store.Change) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return changeMsg{change: c}
	}
}

func (m *tuiModel) refresh() {
	p, err := m.load()
	if err != nil {
		m.loadErr = err
		m.data = nil
		return
	}
	m.loadErr = nil
	m.data = buildTUIData(p)
	m.applyFilter()
}

func (m *tuiModel) applyFilter() {
	if m.data == nil {
		return
	}
	m.data.matching = nil
	if m.filter == "" {
		return
	}
	m.data.matching = m.data.byStatus(m.filter)
}

func (d *tuiData) byStatus(s task.Status) []*task.Task {
	var out []*task.Task
	for _, t := range d.all {
		if t.Status == s {
			out = append(out, t)
		}
	}
	return out
}

const recentLimit = 5

func buildTUIData(p *project.Project) *tuiData {
	data := &tuiData{
		project: p.Metadata().ProjectName,
		counts:  p.Counts(),
		total:   p.Len(),
		ready:   p.Ready(),
		active:  p.Resolve(p.ByStatus(task.StatusInProgress)),
		all:     p.Tasks(),
	}
	data.active = append(data.active, p.Resolve(p.ByStatus(task.StatusInReview))...)
	var complete bool
	data.levels, complete = p.Levels()
	data.cyclic = !complete

	completed := p.Resolve(p.ByStatus(task.StatusCompleted))
	sort.SliceStable(completed, func(i, j int) bool {
		return completedAt(completed[i]).After(completedAt(completed[j]))
	})
	if len(completed) > recentLimit {
		completed = completed[:recentLimit]
	}
	data.recent = completed
	return data
}

func completedAt(t *task.Task) time.Time {
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return t.UpdatedAt
}

func writeTitle(b *strings.Builder) {
	b.WriteString(titleStyle.Render("atomgraph") + "\n\n")
}

func writeOverview(b *strings.Builder, data *tuiData) {
	b.WriteString(headingStyle.Render(fmt.Sprintf("%s (%d tasks)", data.project, data.total)) + "\n\n")
	b.WriteString(fmt.Sprintf("  Ready: %d  In progress: %d  In review: %d  Completed: %d  Blocked: %d\n\n",
		data.counts[task.StatusReady],
		data.counts[task.StatusInProgress],
		data.counts[task.StatusInReview],
		data.counts[task.StatusCompleted],
		data.counts[task.StatusBlocked],
	))
}

func writeTasks(b *strings.Builder, heading string, tasks []*task.Task, empty string) {
	b.WriteString(headingStyle.Render(heading) + "\n\n")
	for _, t := range tasks {
		b.WriteString(formatTask(t))
		b.WriteString("\n")
	}
	if len(tasks) == 0 {
		b.WriteString("  " + empty + "\n")
	}
	b.WriteString("\n")
}

func writeLevels(b *strings.Builder, data *tuiData) {
	b.WriteString(headingStyle.Render("Execution Levels") + "\n\n")
	if data.cyclic {
		b.WriteString(errorStyle.Render("  Graph contains a cycle; levels are partial.") + "\n")
	}
	for i, level := range data.levels {
		b.WriteString(fmt.Sprintf("  %d: %s\n", i, strings.Join(level, ", ")))
	}
	b.WriteString("\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString(headingStyle.Render("Keyboard Shortcuts") + "\n\n")
	b.WriteString("  q, ctrl+c    Quit\n")
	b.WriteString("  r, F5        Reload graph\n")
	b.WriteString("  l            Toggle execution levels\n")
	b.WriteString("  h, ?         Toggle this help screen\n")
	b.WriteString("  1            Filter by ready\n")
	b.WriteString("  2            Filter by in_progress\n")
	b.WriteString("  3            Filter by in_review\n")
	b.WriteString("  4            Filter by completed\n")
	b.WriteString("  5            Filter by blocked\n")
	b.WriteString("  0            Clear filter\n\n")
}

func writeFooter(b *strings.Builder, interval time.Duration) {
	if interval <= 0 {
		b.WriteString(dimStyle.Render("Press h for help | q to quit") + "\n")
		return
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("Press h for help | q to quit | Refreshing every %s", interval)) + "\n")
}

func formatTask(t *task.Task) string {
	icon := " "
	switch t.Status {
	case task.StatusInProgress:
		icon = ">"
	case task.StatusInReview:
		icon = "?"
	case task.StatusBlocked:
		icon = "!"
	case task.StatusCompleted:
		icon = "x"
	}
	done, total := t.Progress()
	return fmt.Sprintf("  %s [%s] (%s) %s  %d/%d", icon, t.ID, t.Priority, t.Title, done, total)
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
