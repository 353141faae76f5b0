// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/issue"
	"github.com/relgate/relgate/pkg/types"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `relgate config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect relgate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the embedded configuration schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.stdout.Write(config.Schema())
			return err
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	loaded, err := app.config.Load(ctx, app.loadOptions())
	if err != nil {
		if guide := issue.Get(issue.ConfigLoadFailedId); guide != nil {
			if rendered, rerr := guide.Render(app.glamourStyle()); rerr == nil {
				fmt.Fprint(app.stderr, rendered)
			}
		}
		return &ExitError{Code: types.ExitConfigError, Err: err}
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	if loaded.Path != "" {
		fmt.Fprintf(app.stdout, "%s: %s\n", CmdStyle.Render("Config file"), loaded.Path)
	} else {
		fmt.Fprintf(app.stdout, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(app.stdout)

	out, err := config.GenerateCUE(loaded.Config)
	if err != nil {
		return err
	}
	fmt.Fprint(app.stdout, out)
	return nil
}
