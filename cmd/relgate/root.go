// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/relgate/relgate/internal/app/execute"
	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/pkg/types"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// BuildFunc assembles the pipeline for a command.
	BuildFunc func(ctx context.Context, opts execute.Options) (*execute.Pipeline, error)

	// App is the composition root of the CLI. Command handlers reach the
	// pipeline and output streams only through it.
	App struct {
		stdout io.Writer
		stderr io.Writer
		build  BuildFunc
		config config.Provider
		flags  rootFlags
		scheme config.ColorScheme
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults.
	Dependencies struct {
		Stdout io.Writer
		Stderr io.Writer
		Build  BuildFunc
		Config config.Provider
	}

	rootFlags struct {
		configPath   string
		workspaceDir string
		metricsFile  string
		verbose      bool
		parallelism  int
	}
)

// NewApp creates an App from dependencies.
func NewApp(deps Dependencies) *App {
	app := &App{
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		build:  deps.Build,
		config: deps.Config,
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.build == nil {
		app.build = execute.Build
	}
	if app.config == nil {
		app.config = config.NewProvider()
	}
	return app
}

// NewRootCommand creates the relgate command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "relgate",
		Short: "Build governance and conditional publication for multi-module workspaces",
		Long: TitleStyle.Render("relgate") + SubtitleStyle.Render(" - build governance and conditional publication") + `

relgate decides which analysis and formatting policies apply to every module
of a workspace, gates publication on a zero-tolerance violation check and
publishes artifacts only to repositories whose credentials resolve.

The workspace is described by relgate.cue at the workspace root.

` + SubtitleStyle.Render("Examples:") + `
  relgate check                      Run every module check and violation gate
  relgate publish                    Publish every module and included build
  relgate run :library:lintDebug     Run a single task and its dependencies
  relgate tasks                      List the wired task graph
  relgate credentials                Show which repositories are enabled`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			app.applyUIConfig(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.flags.configPath, "config", "", "workspace config file (default is ./relgate.cue)")
	flags.StringVarP(&app.flags.workspaceDir, "workspace", "C", "", "workspace root directory")
	flags.StringVar(&app.flags.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.IntVarP(&app.flags.parallelism, "parallelism", "j", 0, "maximum number of tasks run concurrently")

	root.AddCommand(
		newRunCommand(app),
		newCheckCommand(app),
		newPublishCommand(app),
		newTasksCommand(app),
		newCredentialsCommand(app),
		newConfigCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the command's exit code.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			fmt.Fprintln(w, app.formatError(err))
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// applyUIConfig applies the ui section of the workspace config. The verbose
// flag wins over the config. Load errors are left to the command, which
// reports them with the proper exit code.
func (a *App) applyUIConfig(ctx context.Context) {
	a.scheme = config.ColorSchemeAuto
	loaded, err := a.config.Load(ctx, a.loadOptions())
	if err != nil || loaded.Config == nil {
		return
	}
	if !a.flags.verbose {
		a.flags.verbose = loaded.Config.UI.Verbose
	}
	if valid, _ := loaded.Config.UI.ColorScheme.IsValid(); valid {
		a.scheme = loaded.Config.UI.ColorScheme
	}
}

func (a *App) logger() *log.Logger {
	level := log.InfoLevel
	if a.flags.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{Level: level, Prefix: "relgate"})
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.flags.configPath, WorkspaceDir: a.flags.workspaceDir}
}

func (a *App) pipeline(ctx context.Context) (*execute.Pipeline, error) {
	p, err := a.build(ctx, execute.Options{
		Load:        a.loadOptions(),
		Provider:    a.config,
		Logger:      a.logger(),
		Report:      a.stderr,
		Stdout:      a.stdout,
		Stderr:      a.stderr,
		MetricsFile: a.flags.metricsFile,
		Parallelism: a.flags.parallelism,
	})
	if err != nil {
		return nil, &ExitError{Code: types.ExitConfigError, Err: err}
	}
	return p, nil
}
