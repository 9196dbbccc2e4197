// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/variantc/variantc/internal/projector"
	"github.com/variantc/variantc/pkg/overlay"
)

// outputFormat selects how resolve prints its result.
type outputFormat enumflag.Flag

const (
	formatText outputFormat = iota
	formatJSON
	formatYAML
	formatTOML
)

var outputFormatIds = map[outputFormat][]string{
	formatText: {"text"},
	formatJSON: {"json"},
	formatYAML: {"yaml", "yml"},
	formatTOML: {"toml"},
}

type (
	// aliasView is one row of the alias table.
	aliasView struct {
		Module   string `json:"module" yaml:"module" toml:"module"`
		Key      string `json:"key" yaml:"key" toml:"key"`
		File     string `json:"file" yaml:"file" toml:"file"`
		Override bool   `json:"override" yaml:"override" toml:"override"`
	}

	// resolutionView is the serialized form of a resolution.
	resolutionView struct {
		Tenant   string      `json:"tenant" yaml:"tenant" toml:"tenant"`
		Aliases  []aliasView `json:"aliases" yaml:"aliases" toml:"aliases"`
		Excluded []string    `json:"excluded" yaml:"excluded" toml:"excluded"`
	}

	// resolutionsView wraps the per-tenant views of --all.
	resolutionsView struct {
		Resolutions []resolutionView `json:"resolutions" yaml:"resolutions" toml:"resolution"`
	}
)

func newResolveCommand(app *App) *cobra.Command {
	var (
		tenantName string
		all        bool
		format     outputFormat
	)

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the file compiled for every module",
		Long: `Scan the project for override files and print, for one tenant, the file
every module resolves to and the files excluded from compilation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all && tenantName != "" {
				return usageError("--tenant and --all are mutually exclusive")
			}
			svc, cfg, err := app.service(cmd.Context())
			if err != nil {
				return err
			}

			var resolutions []*overlay.Resolution
			if all {
				if resolutions, err = svc.ResolveAll(cmd.Context()); err != nil {
					return err
				}
			} else {
				target, err := svc.Target(tenantName)
				if err != nil {
					return err
				}
				res, err := svc.Resolve(cmd.Context(), target)
				if err != nil {
					return err
				}
				resolutions = []*overlay.Resolution{res}
			}

			views := make([]resolutionView, len(resolutions))
			for i, res := range resolutions {
				views[i] = newResolutionView(res, cfg.ClientAppPath, cfg.AliasPathSeparator)
			}
			return writeResolutions(app.stdout, views, format, all)
		},
	}

	resolveCmd.Flags().StringVarP(&tenantName, "tenant", "t", "", "tenant to resolve (default is the first configured tenant)")
	resolveCmd.Flags().BoolVar(&all, "all", false, "resolve every configured tenant")
	resolveCmd.Flags().VarP(
		enumflag.New(&format, "format", outputFormatIds, enumflag.EnumCaseInsensitive),
		"format", "f", "output format: text, json, yaml or toml")
	return resolveCmd
}

func newResolutionView(res *overlay.Resolution, clientAppPath, sep string) resolutionView {
	v := resolutionView{Tenant: string(res.Tenant), Aliases: []aliasView{}, Excluded: []string{}}
	for _, alias := range res.Aliases.Aliases() {
		run, _ := res.Run(alias)
		v.Aliases = append(v.Aliases, aliasView{
			Module:   string(alias),
			Key:      projector.AliasKey(alias, clientAppPath, sep),
			File:     string(res.Aliases[alias]),
			Override: run.IsOverride(),
		})
	}
	for _, p := range res.Excluded.Sorted() {
		v.Excluded = append(v.Excluded, string(p))
	}
	return v
}

func writeResolutions(w io.Writer, views []resolutionView, format outputFormat, all bool) error {
	var doc any = resolutionsView{Resolutions: views}
	if !all && len(views) == 1 {
		doc = views[0]
	}

	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case formatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case formatTOML:
		data, err := toml.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeResolutionText(w, v)
	}
	return nil
}

func writeResolutionText(w io.Writer, v resolutionView) {
	fmt.Fprintln(w, TitleStyle.Render("Tenant "+v.Tenant))

	rows := make([][]string, 0, len(v.Aliases))
	for _, a := range v.Aliases {
		source := "generic"
		if a.Override {
			source = "override"
		}
		rows = append(rows, []string{a.Key, a.File, source})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers("KEY", "FILE", "SOURCE").
		Rows(rows...)
	fmt.Fprintln(w, t.String())

	if len(v.Excluded) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("No files excluded."))
		return
	}
	fmt.Fprintln(w, SubtitleStyle.Render("Excluded:"))
	for _, p := range v.Excluded {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}
