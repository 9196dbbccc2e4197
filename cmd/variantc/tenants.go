// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTenantsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tenants",
		Short: "List the configured tenants",
		Long: `List the configured tenants in declaration order. The first tenant is
the default build target.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := app.service(cmd.Context())
			if err != nil {
				return err
			}

			def, _ := svc.Tenants().Default()
			for _, t := range svc.Tenants().All() {
				if t == def {
					fmt.Fprintf(app.stdout, "%s %s\n", KeyStyle.Render(string(t)), SubtitleStyle.Render("(default)"))
					continue
				}
				fmt.Fprintln(app.stdout, KeyStyle.Render(string(t)))
			}

			if app.flags.verbose {
				fmt.Fprintln(app.stdout)
				fmt.Fprintln(app.stdout, TitleStyle.Render("Scan patterns"))
				for _, p := range svc.Patterns() {
					fmt.Fprintf(app.stdout, "  %s\n", p)
				}
			}
			return nil
		},
	}
}
