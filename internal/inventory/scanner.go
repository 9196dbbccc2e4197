// SPDX-License-Identifier: MPL-2.0

// Package inventory discovers the override files of a project: every
// "<module>.<tenant><ext>" file below the client application root, plus the
// generic sibling of each override when it exists.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/variantc/variantc/pkg/overlay"
	"github.com/variantc/variantc/pkg/tenant"
)

// defaultIgnores are never scanned.
var defaultIgnores = []string{
	"**/node_modules/**",
	"**/.git/**",
}

// ErrInvalidPattern is returned when an ignore pattern is not a valid glob.
var ErrInvalidPattern = errors.New("invalid glob pattern")

type (
	// Options configures a Scanner.
	Options struct {
		// Root is the client application directory, slash-separated and
		// relative to the scanned file system. Empty means ".".
		Root string
		// Extension is the source extension; defaults to overlay.DefaultExtension.
		Extension string
		// Ignore holds extra doublestar patterns, matched against paths
		// relative to the file system root.
		Ignore []string
		// IncludeGeneric adds the existing generic sibling of every override.
		IncludeGeneric bool
	}

	// Scanner lists override files. It is safe for concurrent use.
	Scanner struct {
		fsys    fs.FS
		root    string
		ext     string
		ignores []string
		generic bool
	}
)

// New creates a Scanner over fsys. Invalid ignore patterns fail here rather
// than silently never matching.
func New(fsys fs.FS, opts Options) (*Scanner, error) {
	for _, pat := range opts.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("inventory: %w %q", ErrInvalidPattern, pat)
		}
	}

	root := path.Clean(strings.TrimPrefix(opts.Root, "/"))
	if root == "" {
		root = "."
	}
	ext := opts.Extension
	if ext == "" {
		ext = overlay.DefaultExtension
	}

	return &Scanner{
		fsys:    fsys,
		root:    root,
		ext:     ext,
		ignores: append(DefaultIgnores(), opts.Ignore...),
		generic: opts.IncludeGeneric,
	}, nil
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	out := make([]string, len(defaultIgnores))
	copy(out, defaultIgnores)
	return out
}

// Root returns the scanned directory.
func (s *Scanner) Root() string { return s.root }

// Patterns returns the match pattern of every tenant, "<root>/**/*.<tenant><ext>".
func (s *Scanner) Patterns(tenants tenant.Set) []string {
	out := make([]string, 0, tenants.Len())
	for _, t := range tenants.All() {
		out = append(out, path.Join(s.root, "**", "*."+string(t)+s.ext))
	}
	return out
}

// Scan walks the root and returns the inventory in the order
// overlay.Resolve expects. Tenant qualifiers and the extension match
// case-insensitively.
func (s *Scanner) Scan(ctx context.Context, tenants tenant.Set) ([]overlay.FilePath, error) {
	qualifiers := make([]string, 0, tenants.Len())
	for _, t := range tenants.All() {
		qualifiers = append(qualifiers, "**/*."+strings.ToLower(string(t)+s.ext))
	}

	found := make(map[overlay.FilePath]struct{})
	walkErr := fs.WalkDir(s.fsys, s.root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == s.root {
				return err
			}
			slog.Warn("skipping inaccessible path", "path", p, "error", err)
			return nil
		}
		if d.IsDir() {
			if p != s.root && (s.isIgnored(p) || s.isIgnored(p+"/")) {
				return fs.SkipDir
			}
			return nil
		}
		if s.isIgnored(p) || !s.isOverride(p, qualifiers) {
			return nil
		}

		found[overlay.FilePath(p)] = struct{}{}
		if s.generic {
			if g, ok := s.genericSibling(p); ok {
				found[g] = struct{}{}
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("inventory: scan %s: %w", s.root, walkErr)
	}

	out := make([]overlay.FilePath, 0, len(found))
	for p := range found {
		out = append(out, p)
	}
	overlay.SortInventory(out)
	slog.Debug("inventory scanned", "root", s.root, "tenants", tenants.String(), "files", len(out))
	return out, nil
}

// Exists reports whether p is a regular file in the scanned file system.
func (s *Scanner) Exists(p overlay.FilePath) bool {
	info, err := fs.Stat(s.fsys, string(p))
	return err == nil && info.Mode().IsRegular()
}

// isOverride reports whether p carries one of the tenant qualifiers.
func (s *Scanner) isOverride(p string, qualifiers []string) bool {
	lower := strings.ToLower(p)
	for _, q := range qualifiers {
		if ok, _ := doublestar.Match(q, lower); ok {
			return true
		}
	}
	return false
}

// genericSibling strips the tenant qualifier of an override and reports
// whether the resulting file exists.
func (s *Scanner) genericSibling(p string) (overlay.FilePath, bool) {
	stem := p[:len(p)-len(s.ext)]
	dot := strings.LastIndexByte(stem, '.')
	if dot <= strings.LastIndexByte(stem, '/')+1 {
		return "", false
	}
	g := overlay.FilePath(stem[:dot] + s.ext)
	return g, s.Exists(g)
}

func (s *Scanner) isIgnored(p string) bool {
	for _, pat := range s.ignores {
		if ok, _ := doublestar.Match(pat, p); ok {
			return true
		}
	}
	return false
}
