package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/project"
	"github.com/nibzard/atomgraph-go/internal/task"
)

func addCmd(a *app) *cobra.Command {
	var (
		d            task.Draft
		priority     string
		deliverables []string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Long: `Add a task. Deliverables take the form "text" or "text=path/to/file".
A task with blockers starts blocked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pr, err := task.ParsePriority(priority)
			if err != nil {
				return err
			}
			d.Title = args[0]
			d.Priority = pr
			for _, s := range deliverables {
				d.Deliverables = append(d.Deliverables, parseDeliverable(s))
			}

			var added *task.Task
			err = a.mutate(func(p *project.Project) error {
				added, err = p.Add(d)
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(added, func(w io.Writer) {
				fmt.Fprintf(w, "Added %s (%s): %s\n", added.ID, added.Status, added.Title)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&d.Description, "description", "d", "", "task description")
	f.StringVarP(&priority, "priority", "p", string(task.PriorityMedium), "priority: high, medium, low")
	f.StringArrayVarP(&d.SuccessCriteria, "criterion", "c", nil, "success criterion (repeatable)")
	f.StringArrayVarP(&deliverables, "deliverable", "D", nil, "deliverable as text or text=path (repeatable)")
	f.StringSliceVarP(&d.Blockers, "blocker", "b", nil, "id of a task that must complete first")
	f.StringSliceVar(&d.RelatedFiles, "file", nil, "related file path")
	f.StringVar(&d.Notes, "notes", "", "free-form notes")
	f.StringVar(&d.Dependencies, "dependencies", "", "free-text description of external dependencies")
	return cmd
}

// parseDeliverable splits "text=path" on the last '='.
func parseDeliverable(s string) task.DeliverableDraft {
	i := strings.LastIndex(s, "=")
	if i <= 0 || i == len(s)-1 {
		return task.DeliverableDraft{Text: s}
	}
	return task.DeliverableDraft{Text: strings.TrimSpace(s[:i]), FilePath: strings.TrimSpace(s[i+1:])}
}

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.open()
			if err != nil {
				return err
			}
			t, err := p.GetOrFail(args[0])
			if err != nil {
				return err
			}
			return a.emit(t, func(w io.Writer) {
				printTaskDetail(w, t, p.Prerequisites(t.ID), p.Dependents(t.ID))
			})
		},
	}
}

func listCmd(a *app) *cobra.Command {
	var (
		status, priority, file string
		roots, leaves, orphans bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, optionally filtered",
		Long:    "List tasks in insertion order. Filters combine as an intersection.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.open()
			if err != nil {
				return err
			}

			var filters [][]string
			if status != "" {
				st, err := task.ParseStatus(status)
				if err != nil {
					return err
				}
				filters = append(filters, p.ByStatus(st))
			}
			if priority != "" {
				pr, err := task.ParsePriority(priority)
				if err != nil {
					return err
				}
				filters = append(filters, p.ByPriority(pr))
			}
			if file != "" {
				filters = append(filters, p.ByFile(file))
			}
			if roots {
				filters = append(filters, p.Roots())
			}
			if leaves {
				filters = append(filters, p.Leaves())
			}
			if orphans {
				filters = append(filters, p.Orphans())
			}

			tasks := p.Tasks()
			if len(filters) > 0 {
				tasks = slices.DeleteFunc(tasks, func(t *task.Task) bool {
					for _, ids := range filters {
						if !slices.Contains(ids, t.ID) {
							return true
						}
					}
					return false
				})
			}
			return a.emit(tasks, func(w io.Writer) {
				printTaskList(w, tasks)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&status, "status", "s", "", "only tasks with this status")
	f.StringVarP(&priority, "priority", "p", "", "only tasks with this priority")
	f.StringVar(&file, "file", "", "only tasks referencing this file")
	f.BoolVar(&roots, "roots", false, "only tasks nothing depends on being done first")
	f.BoolVar(&leaves, "leaves", false, "only tasks nothing else waits for")
	f.BoolVar(&orphans, "orphans", false, "only tasks with no edges at all")
	return cmd
}

func readyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "List ready tasks whose blockers are all complete, highest priority first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.open()
			if err != nil {
				return err
			}
			tasks := p.Ready()
			return a.emit(tasks, func(w io.Writer) {
				printTaskList(w, tasks)
			})
		},
	}
}

func edgeCmd(a *app, use, short string, fn func(p *project.Project, from, to string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mutate(func(p *project.Project) error {
				return fn(p, args[0], args[1])
			}); err != nil {
				return err
			}
			return a.emit(map[string]string{"from": args[0], "to": args[1]}, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %s -> %s\n", cmdName(use), args[0], args[1])
			})
		},
	}
}

func cmdName(use string) string {
	name, _, _ := strings.Cut(use, " ")
	return name
}

func linkCmd(a *app) *cobra.Command {
	return edgeCmd(a, "link <from> <to>", "Add a dependency edge: <from> must finish before <to>",
		func(p *project.Project, from, to string) error { return p.AddEdge(from, to) })
}

func unlinkCmd(a *app) *cobra.Command {
	return edgeCmd(a, "unlink <from> <to>", "Remove a dependency edge",
		func(p *project.Project, from, to string) error { return p.RemoveEdge(from, to) })
}

func blockCmd(a *app) *cobra.Command {
	return edgeCmd(a, "block <blocker> <id>", "Record that <blocker> blocks task <id>",
		func(p *project.Project, blocker, id string) error {
			_, err := p.AddBlocker(id, blocker)
			return err
		})
}

func unblockCmd(a *app) *cobra.Command {
	return edgeCmd(a, "unblock <blocker> <id>", "Drop <blocker> from task <id>'s blockers",
		func(p *project.Project, blocker, id string) error {
			_, err := p.RemoveBlocker(id, blocker)
			return err
		})
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <status> <id>...",
		Short: "Move one or more tasks to a new status",
		Long: `Move tasks along the lifecycle:
ready -> in_progress -> in_review -> completed, in_review -> in_progress,
any open status -> blocked, blocked -> in_progress.
Each task is reported separately; successful moves are saved even when others fail.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := task.ParseStatus(args[0])
			if err != nil {
				return err
			}
			p, err := a.open()
			if err != nil {
				return err
			}
			results := p.TransitionBatch(args[1:], to)
			return a.finishBatch(p, results, "->"+string(to))
		},
	}
}

func rmCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <id>...",
		Short: "Remove tasks and their edges",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.open()
			if err != nil {
				return err
			}
			results, err := p.RemoveBatch(args, yes)
			if err != nil {
				return fmt.Errorf("%w (pass --yes to confirm)", err)
			}
			return a.finishBatch(p, results, "removed")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm removal")
	return cmd
}

type batchLine struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// finishBatch saves when anything succeeded, reports every item and fails
// when any item failed.
func (a *app) finishBatch(p *project.Project, results []project.BatchResult, verb string) error {
	failed := project.Failed(results)
	if failed < len(results) {
		if err := p.Save(); err != nil {
			return err
		}
	}
	lines := make([]batchLine, len(results))
	for i, r := range results {
		lines[i] = batchLine{ID: r.ID, OK: r.OK()}
		if r.Err != nil {
			lines[i].Error = r.Err.Error()
		}
	}
	if err := a.emit(lines, func(w io.Writer) {
		for _, l := range lines {
			if l.OK {
				fmt.Fprintf(w, "  ok    %s %s\n", l.ID, verb)
			} else {
				fmt.Fprintf(w, "  fail  %s: %s\n", l.ID, l.Error)
			}
		}
	}); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, len(results))
	}
	return nil
}

func editCmd(a *app) *cobra.Command {
	var (
		title, description, priority, notes, dependencies string
		addFiles, removeFiles                             []string
		fixes                                             []string
		fixed                                             []int
		fixSource                                         string
		verify                                            string
		verifyNotes                                       string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's fields",
		Long: `Change a task's text fields, related files, fix items and external
verifications. Edges, blockers and status have their own commands.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var pr task.Priority
			if f.Changed("priority") {
				var err error
				if pr, err = task.ParsePriority(priority); err != nil {
					return err
				}
			}
			source := task.FixSource(fixSource)
			if len(fixes) > 0 && !source.Valid() {
				return fmt.Errorf("invalid fix source %q, must be one of: review, test, verification, user", fixSource)
			}

			var updated *task.Task
			err := a.mutate(func(p *project.Project) error {
				var err error
				updated, err = p.Update(args[0], func(t *task.Task) error {
					if f.Changed("title") {
						t.Title = title
					}
					if f.Changed("description") {
						t.Description = description
					}
					if f.Changed("notes") {
						t.Notes = notes
					}
					if f.Changed("dependencies") {
						t.Dependencies = dependencies
					}
					if pr != "" {
						t.Priority = pr
					}
					for _, path := range addFiles {
						t.AddRelatedFile(path)
					}
					for _, path := range removeFiles {
						t.RemoveRelatedFile(path)
					}
					for _, text := range fixes {
						if err := t.AddFixItem(text, source, ""); err != nil {
							return err
						}
					}
					for _, i := range fixed {
						if err := t.SetFixItem(i, true); err != nil {
							return err
						}
					}
					if verify != "" {
						if err := t.AddVerification(verify, verifyNotes); err != nil {
							return err
						}
					}
					return nil
				})
				return err
			})
			if err != nil {
				return err
			}
			return a.emit(updated, func(w io.Writer) {
				fmt.Fprintf(w, "Updated %s\n", updated.ID)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&title, "title", "", "new title")
	f.StringVarP(&description, "description", "d", "", "new description")
	f.StringVarP(&priority, "priority", "p", "", "new priority")
	f.StringVar(&notes, "notes", "", "new notes")
	f.StringVar(&dependencies, "dependencies", "", "new external dependency text")
	f.StringSliceVar(&addFiles, "add-file", nil, "add a related file")
	f.StringSliceVar(&removeFiles, "remove-file", nil, "remove a related file")
	f.StringArrayVar(&fixes, "fix", nil, "add an item that needs fixing (repeatable)")
	f.StringVar(&fixSource, "fix-source", string(task.FixFromUser), "source of --fix items: review, test, verification, user")
	f.IntSliceVar(&fixed, "fixed", nil, "mark the fix item at this index complete")
	f.StringVar(&verify, "verify", "", "record an external verification against this library id")
	f.StringVar(&verifyNotes, "verify-notes", "", "notes for --verify")
	return cmd
}

// itemKind describes the criterion and deliverable subcommands.
type itemKind struct {
	name   string
	plural string
	add    func(t *task.Task, text, file string) (string, error)
	set    func(t *task.Task, id string, done bool) error
	remove func(t *task.Task, id string) error
}

var (
	itemCriterion = itemKind{
		name:   "criterion",
		plural: "success criteria",
		add: func(t *task.Task, text, _ string) (string, error) {
			return t.AddCriterion(text)
		},
		set:    (*task.Task).SetCriterion,
		remove: (*task.Task).RemoveCriterion,
	}
	itemDeliverable = itemKind{
		name:   "deliverable",
		plural: "deliverables",
		add:    (*task.Task).AddDeliverable,
		set:    (*task.Task).SetDeliverable,
		remove: (*task.Task).RemoveDeliverable,
	}
)

func itemCmd(a *app, kind itemKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.name,
		Short: "Add, check, uncheck or remove " + kind.plural,
	}

	update := func(id string, fn func(t *task.Task) error) (*task.Task, error) {
		var updated *task.Task
		err := a.mutate(func(p *project.Project) error {
			var err error
			updated, err = p.Update(id, fn)
			return err
		})
		return updated, err
	}
	report := func(t *task.Task, msg string) error {
		return a.emit(t, func(w io.Writer) {
			done, total := t.Progress()
			fmt.Fprintf(w, "%s: %s (%d/%d items, %s)\n", t.ID, msg, done, total, t.Status)
		})
	}

	var file string
	add := &cobra.Command{
		Use:   "add <task-id> <text>",
		Short: "Add a " + kind.name,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind.name == itemCriterion.name {
				if err := a.checkCriterion(args[0], args[1]); err != nil {
					return err
				}
			}
			var itemID string
			t, err := update(args[0], func(t *task.Task) error {
				var err error
				itemID, err = kind.add(t, args[1], file)
				return err
			})
			if err != nil {
				return err
			}
			return report(t, "added "+itemID)
		},
	}
	if kind.name == itemDeliverable.name {
		add.Flags().StringVar(&file, "file", "", "file the deliverable produces")
	}

	setter := func(use string, done bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <task-id> <item-id>",
			Short: "Mark a " + kind.name + " " + map[bool]string{true: "complete", false: "incomplete"}[done],
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := update(args[0], func(t *task.Task) error {
					return kind.set(t, args[1], done)
				})
				if err != nil {
					return err
				}
				return report(t, use+"ed "+args[1])
			},
		}
	}

	rm := &cobra.Command{
		Use:   "rm <task-id> <item-id>",
		Short: "Remove a " + kind.name,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := update(args[0], func(t *task.Task) error {
				return kind.remove(t, args[1])
			})
			if err != nil {
				return err
			}
			return report(t, "removed "+args[1])
		},
	}

	cmd.AddCommand(add, setter("check", true), setter("uncheck", false), rm)
	return cmd
}

var statusIcons = map[task.Status]string{
	task.StatusReady:      " ",
	task.StatusInProgress: ">",
	task.StatusInReview:   "?",
	task.StatusCompleted:  "x",
	task.StatusBlocked:    "!",
}

func printTaskList(w io.Writer, tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	for _, t := range tasks {
		printTask(w, t)
	}
}

func printTask(w io.Writer, t *task.Task) {
	done, total := t.Progress()
	fmt.Fprintf(w, "[%s] %s  %-6s %-11s %s (%d/%d)\n",
		statusIcons[t.Status], t.ID, t.Priority, t.Status, t.Title, done, total)
}

// checkCriterion rejects subjective criterion text under a strict policy and
// logs it otherwise.
func (a *app) checkCriterion(id, text string) error {
	policy := a.cfg.Policy.TaskPolicy()
	err := policy.CheckCriterion(text)
	if err == nil || policy.Strict {
		return err
	}
	for _, v := range errs.ViolationsOf(err) {
		a.logger.Warn("policy finding", "id", id, "criterion", text, "finding", v.Msg)
	}
	return nil
}

func printTaskDetail(w io.Writer, t *task.Task, prereqs, dependents []string) {
	fmt.Fprintf(w, "%s  %s\n", t.ID, t.Title)
	fmt.Fprintf(w, "  Status:    %s\n", t.Status)
	fmt.Fprintf(w, "  Priority:  %s\n", t.Priority)
	if t.Description != "" {
		fmt.Fprintf(w, "  Description:\n    %s\n", strings.ReplaceAll(t.Description, "\n", "\n    "))
	}
	fmt.Fprintln(w, "  Success criteria:")
	for _, c := range t.SuccessCriteria {
		fmt.Fprintf(w, "    [%s] %s %s\n", check(c.Completed), c.ID, c.Text)
	}
	fmt.Fprintln(w, "  Deliverables:")
	for _, d := range t.Deliverables {
		line := fmt.Sprintf("    [%s] %s %s", check(d.Completed), d.ID, d.Text)
		if d.FilePath != "" {
			line += " (" + d.FilePath + ")"
		}
		fmt.Fprintln(w, line)
	}
	if len(t.FixItems) > 0 {
		fmt.Fprintf(w, "  Needs fixing (%d open):\n", t.OpenFixItems())
		for _, f := range t.FixItems {
			fmt.Fprintf(w, "    [%s] %s (%s)\n", check(f.Completed), f.Text, f.Source)
		}
	}
	list := func(label string, ids []string) {
		if len(ids) > 0 {
			fmt.Fprintf(w, "  %-11s%s\n", label+":", strings.Join(ids, ", "))
		}
	}
	list("Blockers", t.Blockers)
	list("After", prereqs)
	list("Before", dependents)
	list("Files", t.RelatedFiles)
	if t.Notes != "" {
		fmt.Fprintf(w, "  Notes:     %s\n", t.Notes)
	}
	if t.CompletedAt != nil {
		fmt.Fprintf(w, "  Completed: %s\n", t.CompletedAt.Format("2006-01-02 15:04"))
	}
}

func check(done bool) string {
	if done {
		return "x"
	}
	return " "
}
