// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/variantc/variantc/internal/report"
)

func newExplainCommand(app *App) *cobra.Command {
	var (
		tenantName string
		style      string
		width      int
		raw        bool
	)

	explainCmd := &cobra.Command{
		Use:   "explain",
		Short: "Explain which candidate every module compiles to",
		Long: `Render a report of the resolution for a tenant: the compiled file of
every module, the candidates found for it and the excluded files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := app.service(cmd.Context())
			if err != nil {
				return err
			}
			target, err := svc.Target(tenantName)
			if err != nil {
				return err
			}
			res, err := svc.Resolve(cmd.Context(), target)
			if err != nil {
				return err
			}

			md := report.Markdown(res)
			if raw {
				_, err = fmt.Fprint(app.stdout, md)
				return err
			}
			out, err := report.Render(md, report.RenderOptions{Style: style, Width: width})
			if err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			_, err = fmt.Fprint(app.stdout, out)
			return err
		},
	}

	tenantFlag(explainCmd, &tenantName)
	explainCmd.Flags().StringVar(&style, "style", report.StyleAuto, "glamour style: auto, dark, light, notty, ...")
	explainCmd.Flags().IntVar(&width, "width", 0, "wrap the report at this column")
	explainCmd.Flags().BoolVar(&raw, "raw", false, "print the Markdown source")
	return explainCmd
}
