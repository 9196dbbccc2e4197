// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/variantc/variantc/internal/config"
	"github.com/variantc/variantc/internal/issue"
	"github.com/variantc/variantc/pkg/tenant"
)

// dumpFormat selects the config dump syntax.
type dumpFormat enumflag.Flag

const (
	dumpCUE dumpFormat = iota
	dumpTOML
)

var dumpFormatIds = map[dumpFormat][]string{
	dumpCUE:  {"cue"},
	dumpTOML: {"toml"},
}

// newConfigCommand creates the `variantc config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the variantc configuration",
		Long: `Inspect and create the variantc configuration.

Settings are merged from, later sources winning:
  - built-in defaults
  - the "config" block of package.json (npm names such as "manufacturers")
  - variantc.cue in the project directory, or the file given with --config
  - VARIANTC_* and npm_package_config_* environment variables`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	var format dumpFormat
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE or TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config.Load(cmd.Context(), app.loadOptions(true))
			if err != nil {
				return err
			}
			if format == dumpTOML {
				data, err := config.MarshalTOML(cfg)
				if err != nil {
					return err
				}
				_, err = app.stdout.Write(data)
				return err
			}
			_, err = fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return err
		},
	}
	dumpCmd.Flags().VarP(
		enumflag.New(&format, "format", dumpFormatIds, enumflag.EnumCaseInsensitive),
		"format", "f", "output format: cue or toml")
	cfgCmd.AddCommand(dumpCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := app.flags.configPath
			if p == "" {
				p = config.ProjectConfigPath(app.projectDir())
			}
			fmt.Fprintf(app.stdout, "Config file: %s\n", p)
			fmt.Fprintf(app.stdout, "Package file: %s\n", filepath.Join(app.projectDir(), config.PackageJSONFile))
			return nil
		},
	})

	var (
		tenants string
		force   bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create variantc.cue in the project directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var names []string
			if tenants != "" {
				set, err := tenant.ParseList(tenants)
				if err != nil {
					return &ExitError{Code: ExitInvalidInput, Err: err}
				}
				for _, t := range set.All() {
					names = append(names, string(t))
				}
			}

			p, err := config.CreateDefaultConfig(app.projectDir(), names, force)
			if err != nil {
				if errors.Is(err, fs.ErrExist) {
					return issue.NewErrorContext().
						WithOperation("create configuration").
						WithResource(p).
						WithSuggestion("Pass --force to overwrite it").
						Wrap(err).
						BuildError()
				}
				return err
			}
			fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), p)
			return nil
		},
	}
	initCmd.Flags().StringVar(&tenants, "tenants", "", "tenant list, separated by ';' or ','")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.Config.Load(ctx, app.loadOptions(true))
	if err != nil {
		if rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render("dark"); renderErr == nil {
			fmt.Fprint(app.stderr, rendered)
		}
		return err
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.stdout)
	if cfg.Source != "" {
		fmt.Fprintf(app.stdout, "%s: %s\n", KeyStyle.Render("Config file"), cfg.Source)
	} else {
		fmt.Fprintf(app.stdout, "%s: %s\n", KeyStyle.Render("Config file"), SubtitleStyle.Render("(none, using package.json, environment and defaults)"))
	}
	fmt.Fprintln(app.stdout)

	tenants := SubtitleStyle.Render("(none configured)")
	if len(cfg.Tenants) > 0 {
		tenants = SuccessStyle.Render(strings.Join(cfg.Tenants, ", "))
	}
	settings := []struct{ key, val string }{
		{"tenants", tenants},
		{"clientAppPath", cfg.ClientAppPath},
		{"aliasPathSeparator", cfg.AliasPathSeparator},
		{"extension", cfg.Extension},
		{"aliasRule", cfg.AliasRule},
		{"tsConfigPath", cfg.TsConfigPath},
		{"tsConfigAotPath", cfg.TsConfigAotPath},
		{"tsConfigBasePath", cfg.TsConfigBasePath},
		{"mainPath", cfg.MainPath},
		{"mainAotPath", cfg.MainAotPath},
		{"aotPath", cfg.AotPath},
		{"ignore", strings.Join(cfg.Ignore, ", ")},
		{"includeGeneric", fmt.Sprint(cfg.IncludeGeneric)},
		{"watch.debounce", cfg.Watch.Debounce},
		{"watch.clearScreen", fmt.Sprint(cfg.Watch.ClearScreen)},
	}
	for _, s := range settings {
		fmt.Fprintf(app.stdout, "%s: %s\n", KeyStyle.Render(s.key), s.val)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(app.stdout)
		fmt.Fprintln(app.stdout, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, app.flags.verbose))
	}
	return nil
}
