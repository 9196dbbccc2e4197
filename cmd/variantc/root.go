// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/variantc/variantc/internal/issue"
	"github.com/variantc/variantc/internal/logging"
	"github.com/variantc/variantc/pkg/overlay"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// aliasRuleIds maps alias rules to their flag names.
var aliasRuleIds = map[overlay.AliasRule][]string{
	overlay.RuleStrict: {"strict"},
	overlay.RuleLegacy: {"legacy"},
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "variantc",
		Short: "Per-tenant source overrides for TypeScript builds",
		Long: TitleStyle.Render("variantc") + SubtitleStyle.Render(" - per-tenant source overrides for TypeScript builds") + `

variantc selects, for one tenant, which implementation of every module is
compiled: the tenant's override (cars.service.honda.ts) when it exists,
the generic file (cars.service.ts) otherwise. The choice is written into
the tsconfig as compilerOptions.paths and exclude entries.

` + SubtitleStyle.Render("Examples:") + `
  variantc tenants                            List the configured tenants
  variantc resolve --tenant honda             Show the files compiled for honda
  variantc tsconfig --tenant honda            Write tsconfig.json for honda
  variantc tsconfig --all --profile prod      Write one AOT tsconfig per tenant
  variantc watch --tenant toyota              Regenerate on every change`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			app.flags.ruleChanged = cmd.Flags().Changed("alias-rule")
			logging.Setup(logging.Options{Verbose: app.flags.verbose, Writer: app.stderr})
		},
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is variantc.cue in the project directory)")
	pf.StringVarP(&app.flags.projectDir, "project", "C", "", "project directory (default is the working directory)")
	pf.Var(
		enumflag.New(&app.flags.aliasRule, "rule", aliasRuleIds, enumflag.EnumCaseInsensitive),
		"alias-rule", "module alias rule: strict or legacy (overrides the configured rule)")

	rootCmd.AddCommand(
		newTenantsCommand(app),
		newResolveCommand(app),
		newTsConfigCommand(app),
		newCleanCommand(app),
		newExplainCommand(app),
		newWatchCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Run executes the CLI with os.Args and returns the process exit code.
func Run() int {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err != nil {
		writeSuggestions(app.stderr, err)
		if app.flags.verbose {
			renderIssue(app.stderr, err)
		}
	}
	return exitCode(err)
}

// Execute runs the CLI and exits the process.
func Execute() {
	os.Exit(Run())
}

// writeSuggestions lists the remediation hints of an actionable error. The
// error message itself is printed by fang.
func writeSuggestions(w io.Writer, err error) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		return
	}
	for _, s := range ae.Suggestions {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("•"), s)
	}
}

// renderIssue writes the catalog guidance attached to err, if any.
func renderIssue(w io.Writer, err error) {
	id := issue.IssueOf(err)
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	if rendered, renderErr := entry.Render("dark"); renderErr == nil {
		fmt.Fprint(w, rendered)
	}
}

// formatErrorForDisplay formats an error for user display. Actionable
// errors list their suggestions; verbose mode adds the cause chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
