// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/variantc/variantc/internal/issue"
	"github.com/variantc/variantc/internal/projector"
	"github.com/variantc/variantc/internal/variant"
	"github.com/variantc/variantc/internal/watch"
)

func newWatchCommand(app *App) *cobra.Command {
	var (
		tenantName string
		profile    projector.Profile
		output     string
		debounce   time.Duration
	)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the tsconfig whenever sources change",
		Long: `Write the tsconfig for a tenant, then rewrite it after every change to a
source file below clientAppPath or to the base tsconfig. Adding or
removing an override takes effect without restarting the dev server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, cfg, err := app.service(ctx)
			if err != nil {
				return err
			}
			target, err := svc.Target(tenantName)
			if err != nil {
				return err
			}

			report := func(r *variant.GenerateResult, changed []string) {
				if len(changed) > 0 {
					fmt.Fprintf(app.stdout, "%s %d file(s) changed\n", SubtitleStyle.Render("~"), len(changed))
				}
				reportResult(app, r, false)
			}
			tgt := watch.Target{Tenant: target, Profile: profile, Output: output}
			regenerate := watch.Regenerate(svc, tgt, report)

			// the first run surfaces configuration problems before watching
			if err := regenerate(ctx, nil); err != nil {
				return err
			}

			if !cmd.Flags().Changed("debounce") {
				debounce = cfg.DebounceDuration()
			}
			w, err := watch.New(watch.Options{
				BaseDir:     app.projectDir(),
				Patterns:    watch.Patterns(svc.ClientAppDir(), cfg.Extension, cfg.TsConfigBasePath),
				Ignore:      cfg.Ignore,
				Debounce:    debounce,
				ClearScreen: cfg.Watch.ClearScreen,
				Stdout:      app.stdout,
				OnChange: func(ctx context.Context, changed []string) error {
					if err := regenerate(ctx, changed); err != nil {
						fmt.Fprintln(app.stderr, ErrorStyle.Render("✗ ")+formatErrorForDisplay(err, app.flags.verbose))
					}
					return nil
				},
			})
			if err != nil {
				return watchLimitAdvice(err)
			}

			slog.Info("watching for changes", "tenant", target, "profile", profile.String())
			fmt.Fprintln(app.stdout, SubtitleStyle.Render("Watching for changes. Press Ctrl+C to stop."))
			return watchLimitAdvice(w.Run(ctx))
		},
	}

	tenantFlag(watchCmd, &tenantName)
	profileFlag(watchCmd, &profile)
	watchCmd.Flags().StringVarP(&output, "output", "o", "", "output path (default is the profile's configured path)")
	watchCmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before regenerating (default from watch.debounce)")
	return watchCmd
}

// watchLimitAdvice turns watch resource exhaustion into an actionable error.
func watchLimitAdvice(err error) error {
	if !errors.Is(err, watch.ErrWatchLimit) {
		return err
	}
	return issue.NewErrorContext().
		WithOperation("watch project").
		WithSuggestion("Add large generated or vendored directories to ignore in variantc.cue").
		Wrap(err).
		BuildError()
}
