package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nibzard/atomgraph-go/internal/algo"
	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/store"
	"github.com/nibzard/atomgraph-go/internal/task"
)

func (a *app) store() *store.Store {
	return store.New(a.cfg.DataFile, store.Options{Retention: a.cfg.BackupRetention, Logger: a.logger})
}

func infoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show graph file metadata without loading tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := a.store().Peek()
			if err != nil {
				return err
			}
			return a.emit(sum, func(w io.Writer) {
				fmt.Fprintf(w, "Project:  %s\n", sum.ProjectName)
				fmt.Fprintf(w, "File:     %s (%s v%d)\n", a.cfg.DataFile, sum.Format, sum.Version)
				fmt.Fprintf(w, "Tasks:    %d\n", sum.TaskCount)
				fmt.Fprintf(w, "Created:  %s\n", sum.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Fprintf(w, "Updated:  %s\n", sum.UpdatedAt.Format("2006-01-02 15:04:05"))
			})
		},
	}
}

func backupsCmd(a *app) *cobra.Command {
	var (
		verify  bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List backups of the graph file, newest first",
		Long: `List backups of the graph file, newest first. With --verify every backup is
decoded and validated, several at a time, and the command fails if any is unusable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.store()
			if verify {
				return a.verifyBackups(cmd.Context(), s, workers)
			}
			backups, err := s.Backups()
			if err != nil {
				return err
			}
			if backups == nil {
				backups = []store.Backup{}
			}
			return a.emit(backups, func(w io.Writer) {
				if len(backups) == 0 {
					fmt.Fprintln(w, "No backups.")
					return
				}
				for _, b := range backups {
					fmt.Fprintf(w, "%d  %s  %7d bytes  %s\n", b.Slot, b.ModTime.Format("2006-01-02 15:04:05"), b.Size, b.Path)
				}
			})
		},
	}
	f := cmd.Flags()
	f.BoolVar(&verify, "verify", false, "decode and validate every backup")
	f.IntVar(&workers, "workers", 4, "backups verified at once, 0 means all")
	return cmd
}

type backupStatus struct {
	store.BackupCheck
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (a *app) verifyBackups(ctx context.Context, s *store.Store, workers int) error {
	checks, err := s.VerifyBackups(ctx, workers)
	if err != nil {
		return err
	}
	out := make([]backupStatus, 0, len(checks))
	failed := 0
	for _, c := range checks {
		st := backupStatus{BackupCheck: c, OK: c.OK()}
		if !c.OK() {
			st.Error = c.Err.Error()
			failed++
		}
		out = append(out, st)
	}
	if err := a.emit(out, func(w io.Writer) {
		if len(out) == 0 {
			fmt.Fprintln(w, "No backups.")
			return
		}
		for _, st := range out {
			if st.OK {
				fmt.Fprintf(w, "  ok    %d  %s  %d tasks\n", st.Slot, st.Path, st.Tasks)
			} else {
				fmt.Fprintf(w, "  fail  %d  %s: %s\n", st.Slot, st.Path, st.Error)
			}
		}
	}); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d backups failed verification", failed, len(out))
	}
	return nil
}

func restoreCmd(a *app) *cobra.Command {
	var slot int

	cmd := &cobra.Command{
		Use:   "restore [backup-file]",
		Short: "Replace the graph with a backup",
		Long: `Replace the graph with a backup. The backup is validated before anything is
written, and the current graph joins the backup rotation so the restore can be undone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.open()
			if err != nil {
				return err
			}
			src := p.Store().BackupPath(slot)
			if len(args) == 1 {
				src = args[0]
			}
			if err := p.Restore(src); err != nil {
				return err
			}
			meta := p.Metadata()
			return a.emit(map[string]any{"restored": src, "task_count": p.Len()}, func(w io.Writer) {
				fmt.Fprintf(w, "Restored %q (%d tasks) from %s\n", meta.ProjectName, p.Len(), src)
			})
		},
	}
	cmd.Flags().IntVar(&slot, "slot", 0, "backup slot to restore, 0 is the newest")
	return cmd
}

func doctorCmd(a *app) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check config, graph file, invariants and backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.doctor(cmd.Context(), a.stdout, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every task checked")
	return cmd
}

func (a *app) doctor(ctx context.Context, w io.Writer, verbose bool) error {
	fmt.Fprintln(w, "atomgraph doctor")
	fmt.Fprintln(w, "================")
	fmt.Fprintln(w)

	allOK := true

	fmt.Fprintf(w, "Project root: %s\n", a.cfg.ProjectRoot)
	if _, err := os.Stat(a.cfg.ProjectRoot); err != nil {
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		allOK = false
	} else {
		fmt.Fprintln(w, "  ✅ OK")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Config:")
	if len(a.cfg.Files) == 0 {
		fmt.Fprintln(w, "  ✅ Defaults (no config file)")
	}
	for _, f := range a.cfg.Files {
		fmt.Fprintf(w, "  ✅ %s\n", f)
	}
	strict := "strict"
	if !a.cfg.Policy.Strict {
		strict = "warn only"
	}
	fmt.Fprintf(w, "  ✅ Policy: %s, %d-%d title words, %d items\n",
		strict, a.cfg.Policy.MinTitleWords, a.cfg.Policy.MaxTitleWords, a.cfg.Policy.MaxItems)
	fmt.Fprintln(w)

	s := a.store()
	fmt.Fprintf(w, "Graph file: %s\n", s.Path())
	if !s.Exists() {
		fmt.Fprintln(w, "  ⚠️  Not found (run 'atomgraph init')")
		fmt.Fprintln(w)
		return a.doctorResult(w, allOK)
	}
	if sum, err := s.Peek(); err != nil {
		fmt.Fprintf(w, "  ❌ Header: %v\n", err)
		allOK = false
	} else {
		fmt.Fprintf(w, "  ✅ Header: %s, %d tasks\n", sum.Format, sum.TaskCount)
	}
	g, _, err := s.Load()
	if err != nil {
		fmt.Fprintln(w, "  ❌ Load failed:")
		fmt.Fprintf(w, "     - %v\n", errs.KindOf(err))
		for _, v := range errs.ViolationsOf(err) {
			fmt.Fprintf(w, "     - %s\n", v)
		}
		if len(errs.ViolationsOf(err)) == 0 {
			fmt.Fprintf(w, "     - %v\n", err)
		}
		allOK = false
	} else {
		fmt.Fprintln(w, "  ✅ Valid")
		if err := g.CheckInvariants(); err != nil {
			fmt.Fprintf(w, "  ❌ Invariants: %v\n", err)
			allOK = false
		} else {
			fmt.Fprintln(w, "  ✅ Adjacency consistent")
		}
		if cycles := algo.DetectCycles(g); len(cycles) > 0 {
			fmt.Fprintf(w, "  ⚠️  %d cycle(s), run 'atomgraph cycles'\n", len(cycles))
		}
		policy := a.cfg.Policy.TaskPolicy()
		for _, t := range g.Nodes() {
			findings := policy.Findings(t)
			for _, f := range findings {
				fmt.Fprintf(w, "  ⚠️  %s: %s\n", t.ID, f)
			}
			if n := t.OpenFixItems(); n > 0 && t.Status == task.StatusCompleted {
				fmt.Fprintf(w, "  ⚠️  %s: completed with %d open fix item(s)\n", t.ID, n)
			}
			if verbose {
				fmt.Fprintf(w, "    - [%s] %s: %s\n", t.Status, t.ID, t.Title)
			}
		}
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), "."+filepath.Base(s.Path())+".tmp-*"))
	for _, f := range leftovers {
		fmt.Fprintf(w, "  ⚠️  Leftover temp file from an interrupted save: %s\n", f)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Backups:")
	backups, err := s.Backups()
	switch {
	case err != nil:
		fmt.Fprintf(w, "  ❌ %v\n", err)
		allOK = false
	case len(backups) == 0:
		fmt.Fprintln(w, "  ⚠️  None yet")
	default:
		fmt.Fprintf(w, "  ✅ %d of %d slots used\n", len(backups), s.Retention())
		checks, err := s.VerifyBackups(ctx, 0)
		if err != nil {
			fmt.Fprintf(w, "  ❌ %v\n", err)
			allOK = false
			break
		}
		loaded := 0
		for _, c := range checks {
			if c.OK() {
				loaded++
				continue
			}
			fmt.Fprintf(w, "  ❌ Backup %d does not load: %v\n", c.Slot, c.Err)
			allOK = false
		}
		if loaded == len(checks) {
			fmt.Fprintln(w, "  ✅ All backups load")
		}
	}
	fmt.Fprintln(w)

	return a.doctorResult(w, allOK)
}

func (a *app) doctorResult(w io.Writer, ok bool) error {
	if ok {
		fmt.Fprintln(w, "✅ All checks passed!")
		return nil
	}
	fmt.Fprintln(w, "⚠️  Some checks failed.")
	return fmt.Errorf("doctor checks failed")
}
