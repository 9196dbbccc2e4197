// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/variantc/variantc/internal/projector"
	"github.com/variantc/variantc/internal/variant"
)

// profileFlag registers the --profile flag on cmd.
func profileFlag(cmd *cobra.Command, profile *projector.Profile) {
	cmd.Flags().VarP(
		enumflag.New(profile, "profile", projector.ProfileIds, enumflag.EnumCaseInsensitive),
		"profile", "p", "tsconfig profile: development or production")
}

// tenantFlag registers --tenant and its hidden --manufacturer alias.
func tenantFlag(cmd *cobra.Command, name *string) {
	cmd.Flags().StringVarP(name, "tenant", "t", "", "target tenant (default is the first configured tenant)")
	cmd.Flags().StringVarP(name, "manufacturer", "m", "", "alias of --tenant")
	_ = cmd.Flags().MarkHidden("manufacturer")
}

func newTsConfigCommand(app *App) *cobra.Command {
	var (
		tenantName string
		all        bool
		profile    projector.Profile
		output     string
		dryRun     bool
	)

	tsCmd := &cobra.Command{
		Use:   "tsconfig",
		Short: "Write the tsconfig for a tenant",
		Long: `Project the base tsconfig for a tenant. The development profile writes
tsConfigPath; the production profile writes tsConfigAotPath with the AOT
compiler options.

With --all, one file per tenant is written next to the profile's output,
named after the tenant (tsconfig-aot.honda.json).`,
		Example: `  variantc tsconfig --tenant honda
  variantc tsconfig --profile production --tenant toyota
  variantc tsconfig --all --profile production
  variantc tsconfig --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all && tenantName != "" {
				return usageError("--tenant and --all are mutually exclusive")
			}
			if all && output != "" {
				return usageError("--output cannot be combined with --all")
			}

			svc, _, err := app.service(cmd.Context())
			if err != nil {
				return err
			}

			if all {
				results, err := svc.GenerateAll(cmd.Context(), profile, dryRun)
				if err != nil {
					return err
				}
				for _, r := range results {
					reportResult(app, r, dryRun)
				}
				return nil
			}

			target, err := svc.Target(tenantName)
			if err != nil {
				return err
			}
			var result *variant.GenerateResult
			if dryRun {
				result, err = svc.Project(cmd.Context(), target, profile, output)
			} else {
				result, err = svc.Generate(cmd.Context(), target, profile, output)
			}
			if err != nil {
				return err
			}
			reportResult(app, result, dryRun)
			return nil
		},
	}

	tenantFlag(tsCmd, &tenantName)
	profileFlag(tsCmd, &profile)
	tsCmd.Flags().BoolVar(&all, "all", false, "write one tsconfig per configured tenant")
	tsCmd.Flags().StringVarP(&output, "output", "o", "", "output path (default is the profile's configured path)")
	tsCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the projected tsconfig instead of writing it")
	return tsCmd
}

// reportResult prints the projected document on a dry run and a summary
// line otherwise.
func reportResult(app *App, r *variant.GenerateResult, dryRun bool) {
	if dryRun {
		if app.flags.verbose {
			fmt.Fprintln(app.stderr, SubtitleStyle.Render(fmt.Sprintf("# %s (%s) -> %s", r.Tenant, r.Profile, r.Output)))
		}
		_, _ = app.stdout.Write(r.Content)
		return
	}
	fmt.Fprintf(app.stdout, "%s Wrote %s for %s (%s)\n",
		SuccessStyle.Render("✓"), KeyStyle.Render(r.Output), KeyStyle.Render(string(r.Tenant)), r.Profile)
	for _, p := range r.MissingGenerics {
		fmt.Fprintf(app.stdout, "  %s generic fallback %s does not exist\n", WarningStyle.Render("!"), p)
	}
}

func newCleanCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the generated tsconfig files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := app.service(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := svc.Clean()
			for _, p := range removed {
				fmt.Fprintf(app.stdout, "%s Removed %s\n", SuccessStyle.Render("✓"), p)
			}
			if err == nil && len(removed) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("Nothing to remove."))
			}
			return err
		},
	}
}
