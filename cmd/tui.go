package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/nibzard/atomgraph-go/internal/logging"
	"github.com/nibzard/atomgraph-go/internal/project"
	"github.com/nibzard/atomgraph-go/internal/ui"
)

func tuiCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		noWatch  bool
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse the graph in a terminal UI that follows changes on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.open(); err != nil {
				return err
			}
			// Log lines would tear the alternate screen.
			opts := a.projectOptions()
			opts.Logger = logging.Discard()
			load := func() (*project.Project, error) {
				return project.Open(a.cfg.ProjectRoot, opts)
			}
			return ui.RunTUI(cmd.Context(), a.cfg.DataFile, load,
				ui.WithInterval(interval), ui.WithWatch(!noWatch))
		},
	}
	f := cmd.Flags()
	f.DurationVar(&interval, "interval", 2*time.Second, "polling interval, 0 disables polling")
	f.BoolVar(&noWatch, "no-watch", false, "do not watch the graph file for changes")
	return cmd
}
