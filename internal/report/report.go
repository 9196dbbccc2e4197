// SPDX-License-Identifier: MPL-2.0

// Package report renders a resolution as a Markdown explanation of which
// file every module compiles to and why the other candidates are excluded.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/variantc/variantc/pkg/overlay"
)

// StyleAuto picks a dark or light style from the terminal background.
const StyleAuto = "auto"

// RenderOptions controls glamour rendering.
type RenderOptions struct {
	// Style is a glamour standard style name ("dark", "light", "notty",
	// ...) or StyleAuto. Empty means StyleAuto.
	Style string
	// Width wraps text at the given column when positive.
	Width int
}

// Markdown describes res: a selection table with the coverage of every
// module, followed by the excluded files.
func Markdown(res *overlay.Resolution) string {
	var sb strings.Builder

	overrides := 0
	for _, run := range res.Runs {
		if run.IsOverride() {
			overrides++
		}
	}
	fmt.Fprintf(&sb, "# Overrides for `%s`\n\n", res.Tenant)
	fmt.Fprintf(&sb, "%d modules, %d resolved to an override, %d files excluded.\n\n",
		len(res.Runs), overrides, res.Excluded.Len())

	if len(res.Runs) > 0 {
		sb.WriteString("## Selection\n\n")
		sb.WriteString("| Module | Compiled file | Candidates |\n")
		sb.WriteString("|---|---|---|\n")
		for _, run := range res.Runs {
			fmt.Fprintf(&sb, "| `%s` | `%s` | %s |\n", run.Alias, run.Selected, coverage(run))
		}
		sb.WriteString("\n")
	}

	if res.Excluded.Len() > 0 {
		sb.WriteString("## Excluded\n\n")
		for _, p := range res.Excluded.Sorted() {
			fmt.Fprintf(&sb, "- `%s`\n", p)
		}
	}
	return sb.String()
}

func coverage(run overlay.Run) string {
	owners := make([]string, 0, len(run.Members))
	for _, m := range run.Members {
		if m.IsGeneric() {
			owners = append(owners, "generic")
			continue
		}
		owners = append(owners, string(m.Owner))
	}
	s := strings.Join(owners, ", ")
	if run.FullCoverage {
		s += " (full)"
	}
	return s
}

// Render renders Markdown for the terminal.
func Render(md string, opts RenderOptions) (string, error) {
	style := opts.Style
	if style == "" {
		style = StyleAuto
	}

	var rendererOpts []glamour.TermRendererOption
	if style == StyleAuto {
		rendererOpts = append(rendererOpts, glamour.WithAutoStyle())
	} else {
		rendererOpts = append(rendererOpts, glamour.WithStandardStyle(style))
	}
	if opts.Width > 0 {
		rendererOpts = append(rendererOpts, glamour.WithWordWrap(opts.Width))
	}

	renderer, err := glamour.NewTermRenderer(rendererOpts...)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}
