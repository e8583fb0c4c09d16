package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nibzard/atomgraph-go/internal/algo"
)

func topoCmd(a *app) *cobra.Command {
	var levels bool

	cmd := &cobra.Command{
		Use:   "topo",
		Short: "Print tasks in dependency order",
		Long: `Print tasks so that every task comes after the tasks it depends on.
With --levels, tasks are grouped into waves that can run in parallel.
A cycle is reported as an error after printing the ordered part.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.open()
			if err != nil {
				return err
			}

			if levels {
				waves, complete := p.Levels()
				if err := a.emit(waves, func(w io.Writer) {
					for i, wave := range waves {
						fmt.Fprintf(w, "%d: %s\n", i, strings.Join(wave, " "))
					}
				}); err != nil {
					return err
				}
				if !complete {
					return fmt.Errorf("graph has a cycle; run 'atomgraph cycles'")
				}
				return nil
			}

			res := p.TopologicalSort()
			if err := a.emit(res, func(w io.Writer) {
				for _, id := range res.Order {
					t := p.Get(id)
					fmt.Fprintf(w, "%s  %s\n", id, t.Title)
				}
			}); err != nil {
				return err
			}
			if res.HasCycle {
				return fmt.Errorf("graph has a cycle through %s", strings.Join(res.CycleNodes, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&levels, "levels", false, "group tasks into parallel waves")
	return cmd
}

func cyclesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cycles",
		Short: "List dependency cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.open()
			if err != nil {
				return err
			}
			cycles := p.DetectCycles()
			if cycles == nil {
				cycles = [][]string{}
			}
			return a.emit(cycles, func(w io.Writer) {
				if len(cycles) == 0 {
					fmt.Fprintln(w, "No cycles.")
					return
				}
				for _, c := range cycles {
					fmt.Fprintln(w, strings.Join(c, " -> ")+" -> "+c[0])
				}
			})
		},
	}
}

func traverseCmd(a *app) *cobra.Command {
	var direction, strategy string

	cmd := &cobra.Command{
		Use:   "traverse <start-id>",
		Short: "Walk the graph from a task",
		Long: `Walk the graph from a task. downstream follows tasks that depend on the
start, upstream follows the tasks it depends on. The start task is listed first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := algo.ParseDirection(direction)
			if err != nil {
				return err
			}
			strat, err := algo.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			p, err := a.open()
			if err != nil {
				return err
			}
			walker, err := p.Traverse(dir, strat, args[0])
			if err != nil {
				return err
			}
			ids := walker.Collect()
			tasks := p.Resolve(ids)
			return a.emit(ids, func(w io.Writer) {
				printTaskList(w, tasks)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&direction, "direction", string(algo.Downstream), "downstream or upstream")
	f.StringVar(&strategy, "strategy", string(algo.BreadthFirst), "bfs or dfs")
	return cmd
}

func pathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Show the shortest dependency chain from one task to another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.open()
			if err != nil {
				return err
			}
			path, ok, err := p.ShortestPath(args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no path from %s to %s", args[0], args[1])
			}
			return a.emit(path, func(w io.Writer) {
				fmt.Fprintln(w, strings.Join(path, " -> "))
			})
		},
	}
}

func searchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>...",
		Short: "Find tasks whose text contains every term",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.open()
			if err != nil {
				return err
			}
			tasks := p.Resolve(p.Search(strings.Join(args, " ")))
			return a.emit(tasks, func(w io.Writer) {
				printTaskList(w, tasks)
			})
		},
	}
}
