// Package cmd implements the CLI command structure for atomgraph.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nibzard/atomgraph-go/internal/config"
	"github.com/nibzard/atomgraph-go/internal/graphdir"
	"github.com/nibzard/atomgraph-go/internal/logging"
	"github.com/nibzard/atomgraph-go/internal/project"
	"github.com/nibzard/atomgraph-go/internal/store"
)

// Version is set via ldflags at build time.
var Version = "dev"

// app carries the state shared by every subcommand.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	workDir string
	jsonOut bool

	cfg     *config.Config
	sources map[string]config.ConfigSource
	logger  *log.Logger
	closer  io.Closer
}

// Run executes the atomgraph CLI.
func Run(ctx context.Context, args []string) error {
	return Execute(ctx, args, os.Stdout, os.Stderr)
}

// Execute runs the CLI with explicit output streams.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "atomgraph",
		Short: "Track atomic tasks and their dependencies as a graph",
		Long: `atomgraph keeps a project's atomic tasks in a dependency graph stored in
.atomgraph/graph.json. Every save is atomic and keeps rotating backups.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("atomgraph version {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&a.workDir, "dir", "C", "", "run as if started in this directory")
	pf.BoolVar(&a.jsonOut, "json", false, "machine-readable JSON output")
	config.RegisterFlags(pf)

	root.AddCommand(
		initCmd(a),
		addCmd(a),
		showCmd(a),
		listCmd(a),
		linkCmd(a),
		unlinkCmd(a),
		blockCmd(a),
		unblockCmd(a),
		statusCmd(a),
		itemCmd(a, itemCriterion),
		itemCmd(a, itemDeliverable),
		editCmd(a),
		rmCmd(a),
		topoCmd(a),
		cyclesCmd(a),
		traverseCmd(a),
		pathCmd(a),
		searchCmd(a),
		readyCmd(a),
		infoCmd(a),
		backupsCmd(a),
		restoreCmd(a),
		doctorCmd(a),
		configCmd(a),
		tuiCmd(a),
	)
	return root
}

// setup loads configuration and builds the logger once flags are parsed.
func (a *app) setup(cmd *cobra.Command) error {
	workDir := a.workDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		workDir = wd
	}
	cws, err := config.LoadWithSources(workDir, cmd.Root().PersistentFlags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg, a.sources = cws.Config, cws.Sources

	opts := logging.DefaultOptions()
	opts.Level = a.cfg.LogLevel
	opts.Format = a.cfg.LogFormat
	opts.Timestamps = a.cfg.LogTimestamps
	opts.Caller = a.cfg.LogCaller
	opts.File = a.cfg.LogFile
	logger, closer, err := logging.New(a.stderr, opts)
	if err != nil {
		return err
	}
	a.logger, a.closer = logger, closer
	return nil
}

func (a *app) teardown() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

func (a *app) projectOptions() project.Options {
	policy := a.cfg.Policy.TaskPolicy()
	return project.Options{
		GraphFile: a.cfg.DataFile,
		Retention: a.cfg.BackupRetention,
		Policy:    &policy,
		Logger:    a.logger,
	}
}

// open loads the project the configuration points at.
func (a *app) open() (*project.Project, error) {
	p, err := project.Open(a.cfg.ProjectRoot, a.projectOptions())
	if errors.Is(err, store.ErrMissing) {
		return nil, fmt.Errorf("no graph at %s, run 'atomgraph init' first: %w", a.cfg.DataFile, err)
	}
	return p, err
}

// mutate opens the project, applies fn and saves the result.
func (a *app) mutate(fn func(p *project.Project) error) error {
	p, err := a.open()
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	return p.Save()
}

// emit writes v as indented JSON when --json is set and calls text otherwise.
func (a *app) emit(v any, text func(w io.Writer)) error {
	if a.jsonOut {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(a.stdout)
	return nil
}

func initCmd(a *app) *cobra.Command {
	var writeConfig bool

	cmd := &cobra.Command{
		Use:   "init [project-name]",
		Short: "Create an empty graph in .atomgraph/",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.cfg.ProjectRoot
			name := filepath.Base(root)
			if len(args) == 1 {
				name = args[0]
			}
			p, err := project.Create(root, name, a.projectOptions())
			if err != nil {
				return err
			}
			if writeConfig {
				path := graphdir.ConfigPath(root)
				if _, err := os.Stat(path); err == nil {
					a.logger.Warn("config file exists, leaving it alone", "path", path)
				} else if err := os.WriteFile(path, []byte(config.ExampleConfig()), 0o644); err != nil {
					return fmt.Errorf("writing config: %w", err)
				}
			}
			return a.emit(p.Metadata(), func(w io.Writer) {
				fmt.Fprintf(w, "Initialized %q in %s\n", name, p.Path())
			})
		},
	}
	cmd.Flags().BoolVar(&writeConfig, "config", false, "also write an example .atomgraph/config.toml")
	return cmd
}

func configCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration and where each value came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.jsonOut {
				return a.emit(struct {
					Config  *config.Config                 `json:"config"`
					Sources map[string]config.ConfigSource `json:"sources"`
				}{a.cfg, a.sources}, nil)
			}
			c := a.cfg
			w := a.stdout
			fmt.Fprintf(w, "Project root: %s\n", c.ProjectRoot)
			for _, f := range c.Files {
				fmt.Fprintf(w, "Config file:  %s\n", f)
			}
			fmt.Fprintln(w)
			row := func(key string, v any) {
				fmt.Fprintf(w, "  %-22s %-40v (%s)\n", key, v, a.sources[key])
			}
			row("data_file", c.DataFile)
			row("backup_retention", c.BackupRetention)
			row("log_level", c.LogLevel)
			row("log_format", c.LogFormat)
			row("log_file", c.LogFile)
			row("policy.strict", c.Policy.Strict)
			row("policy.max_title_words", c.Policy.MaxTitleWords)
			row("policy.max_items", c.Policy.MaxItems)
			return nil
		},
	}
}
