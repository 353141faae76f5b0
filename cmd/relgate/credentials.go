// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCredentialsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "credentials",
		Short: "Show which repositories and signing are enabled",
		Long: `Show which repositories and signing are enabled.

Credentials are resolved from properties files, inline properties and the
environment; the private repository also consults the ambient AWS chain.
Secrets are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			w := app.stdout
			fmt.Fprintln(w, TitleStyle.Render("Repositories"))
			targets := p.Publisher.Targets()
			if len(targets) == 0 {
				fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
			}
			for _, t := range targets {
				if t.Active {
					fmt.Fprintf(w, "  %s %s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(t.Name), t.URL)
				} else {
					fmt.Fprintf(w, "  %s %s %s %s\n", ErrorStyle.Render("✗"), CmdStyle.Render(t.Name), t.URL, SubtitleStyle.Render("(credentials not found)"))
				}
			}

			fmt.Fprintln(w)
			fmt.Fprintln(w, TitleStyle.Render("Signing"))
			if s := p.Publisher.Signer(); s != nil {
				fmt.Fprintf(w, "  %s enabled (key %s)\n", SuccessStyle.Render("✓"), s.KeyID())
			} else {
				fmt.Fprintf(w, "  %s %s\n", WarningStyle.Render("-"), SubtitleStyle.Render("disabled, publications are unsigned"))
			}
			return nil
		},
	}
}
