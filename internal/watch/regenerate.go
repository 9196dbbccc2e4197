// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/variantc/variantc/internal/projector"
	"github.com/variantc/variantc/internal/variant"
	"github.com/variantc/variantc/pkg/tenant"
)

type (
	// Generator writes the tsconfig of one tenant. *variant.Service
	// implements it.
	Generator interface {
		Generate(ctx context.Context, target tenant.Tenant, profile projector.Profile, output string) (*variant.GenerateResult, error)
	}

	// Target names the tsconfig a watch session keeps current.
	Target struct {
		Tenant  tenant.Tenant
		Profile projector.Profile
		// Output overrides the profile's configured path when set.
		Output string
	}
)

// Patterns returns the watch patterns of a project: every source file below
// clientAppDir with extension ext, plus the extra files given (typically the
// base tsconfig). Paths are slash-separated and relative to the project.
func Patterns(clientAppDir, ext string, extra ...string) []string {
	pats := []string{path.Join(clean(clientAppDir), "**", "*"+ext)}
	for _, p := range extra {
		if p != "" {
			pats = append(pats, doublestarEscape(clean(p)))
		}
	}
	return pats
}

// Regenerate returns an OnChange callback that rewrites target's tsconfig.
// Each successful run is reported through report, which may be nil.
func Regenerate(g Generator, target Target, report func(*variant.GenerateResult, []string)) func(context.Context, []string) error {
	return func(ctx context.Context, changed []string) error {
		slog.Info("regenerating tsconfig", "tenant", target.Tenant, "changed", len(changed))
		result, err := g.Generate(ctx, target.Tenant, target.Profile, target.Output)
		if err != nil {
			return err
		}
		if report != nil {
			report(result, changed)
		}
		return nil
	}
}

func clean(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}

// doublestarEscape quotes the metacharacters of a literal path.
func doublestarEscape(p string) string {
	var sb strings.Builder
	for _, r := range p {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
