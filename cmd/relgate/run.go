// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/relgate/relgate/internal/app/execute"
	"github.com/relgate/relgate/internal/compose"
	"github.com/relgate/relgate/internal/watch"
	"github.com/relgate/relgate/pkg/types"

	"github.com/spf13/cobra"
)

func newRunCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run <task>...",
		Short: "Run tasks and their dependencies",
		Long: `Run tasks and their dependencies.

Tasks are addressed by path (":library:lintDebug"); bare names address
root tasks ("publish" is ":publish").`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runTargets(cmd.Context(), args...)
		},
	}
}

func newCheckCommand(app *App) *cobra.Command {
	var watchSources bool
	cmd := &cobra.Command{
		Use:   "check [module]...",
		Short: "Run module checks and violation gates",
		Long: `Run module checks and violation gates.

With --watch the checks re-run whenever module sources, checker
configuration or the workspace file change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := checkTargets(args)
			if !watchSources {
				return app.run(cmd.Context(), targets)
			}
			return app.watch(cmd.Context(), targets)
		},
	}
	cmd.Flags().BoolVarP(&watchSources, "watch", "w", false, "re-run checks when sources change")
	return cmd
}

func checkTargets(modules []string) func(*execute.Pipeline) []string {
	return func(p *execute.Pipeline) []string {
		if len(modules) == 0 {
			return []string{compose.TaskCheck}
		}
		var targets []string
		for _, m := range modules {
			gate := p.Composer.GateTasks(types.ModuleName(m))
			if len(gate) == 0 {
				gate = []types.TaskPath{types.ModuleTask(types.ModuleName(m), compose.TaskViolations)}
			}
			for _, path := range gate {
				targets = append(targets, path.String())
			}
		}
		return targets
	}
}

func newPublishCommand(app *App) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish every module and included build",
		Long: `Publish every module and included build.

Publication waits for each module's violation gate. Repositories whose
credentials do not resolve are skipped; a module with no enabled remote
repository fails to publish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if local {
				return app.runTargets(cmd.Context(), compose.TaskPublishToMavenLocal)
			}
			return app.runTargets(cmd.Context(), compose.TaskPublish)
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "publish to the local Maven repository instead")
	return cmd
}

func (a *App) runTargets(ctx context.Context, targets ...string) error {
	return a.run(ctx, func(*execute.Pipeline) []string { return targets })
}

func (a *App) run(ctx context.Context, targets func(*execute.Pipeline) []string) error {
	p, err := a.pipeline(ctx)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx, targets(p)...)
	if res == nil {
		return &ExitError{Code: types.ExitConfigError, Err: err}
	}
	printSummary(a.stdout, res)
	if err != nil {
		return &ExitError{Code: classifyRunError(err), Err: err}
	}
	return nil
}

// watch runs targets once and again after every source change until ctx
// is done. Failures are reported and do not stop watching.
func (a *App) watch(ctx context.Context, targets func(*execute.Pipeline) []string) error {
	p, err := a.pipeline(ctx)
	if err != nil {
		return err
	}
	rerun := func(ctx context.Context) {
		if err := a.run(ctx, targets); err != nil {
			fmt.Fprintln(a.stderr, a.formatError(err))
		}
	}
	rerun(ctx)

	w, err := watch.New(watch.Options{
		Root:   p.Loaded.Root,
		Logger: a.logger(),
		OnChange: func(ctx context.Context, _ []string) error {
			fmt.Fprintln(a.stdout)
			rerun(ctx)
			return nil
		},
	})
	if err != nil {
		return &ExitError{Code: types.ExitConfigError, Err: err}
	}
	fmt.Fprintln(a.stdout, SubtitleStyle.Render("Watching "+p.Loaded.Root+" for changes (Ctrl+C to stop)"))
	return w.Run(ctx)
}
