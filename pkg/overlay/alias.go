// SPDX-License-Identifier: MPL-2.0

package overlay

import (
	"fmt"
	"strings"

	"github.com/variantc/variantc/pkg/tenant"
)

// DefaultExtension is the source file extension overrides are declared with.
const DefaultExtension = ".ts"

const (
	// RuleStrict strips the extension, then strips the last dot-segment of the
	// file name only when it names a known tenant. Module names containing
	// dots keep the same alias for their generic file and their overrides.
	RuleStrict AliasRule = iota
	// RuleLegacy detects the owner by a case-insensitive ".<TENANT>.TS"
	// substring and strips the last two dot-segments of an owned path
	// whatever they are. Unowned files keep their path minus the extension,
	// so a generic sibling joins its module's run.
	RuleLegacy
)

// AliasRule selects how a module alias is derived from a file path.
type AliasRule int

// String returns the rule name.
func (r AliasRule) String() string {
	switch r {
	case RuleStrict:
		return "strict"
	case RuleLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("AliasRule(%d)", int(r))
	}
}

// ParseAliasRule parses a rule name ("strict" or "legacy").
func ParseAliasRule(name string) (AliasRule, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "strict":
		return RuleStrict, nil
	case "legacy":
		return RuleLegacy, nil
	default:
		return 0, fmt.Errorf("%w %q: want strict or legacy", ErrInvalidAliasRule, name)
	}
}

// deriveStrict implements RuleStrict on a path already known to end in ext.
func deriveStrict(p FilePath, ext string, tenants tenant.Set) (ModuleAlias, tenant.Tenant) {
	s := string(p)
	stem := s[:len(s)-len(ext)]
	base := strings.LastIndexByte(stem, '/') + 1
	dot := strings.LastIndexByte(stem, '.')
	if dot > base {
		if owner, ok := tenants.Lookup(stem[dot+1:]); ok {
			return ModuleAlias(stem[:dot]), owner
		}
	}
	return ModuleAlias(stem), ""
}

// deriveLegacy implements RuleLegacy. Index clamping mirrors the historic
// substring semantics, where a missing penultimate dot yields an empty alias.
func deriveLegacy(p FilePath, ext string, tenants tenant.Set) (ModuleAlias, tenant.Tenant) {
	s := string(p)
	upper := strings.ToUpper(s)
	upperExt := strings.ToUpper(ext)
	var owner tenant.Tenant
	for _, t := range tenants.All() {
		if strings.Contains(upper, "."+strings.ToUpper(string(t))+upperExt) {
			owner = t
			break
		}
	}
	if owner == "" {
		return ModuleAlias(s[:len(s)-len(ext)]), ""
	}

	last := strings.LastIndexByte(s, '.')
	if last < 0 {
		last = 0
	}
	penultimate := strings.LastIndexByte(s[:last], '.')
	if penultimate < 0 {
		penultimate = 0
	}
	return ModuleAlias(s[:penultimate]), owner
}

// hasExtension reports whether p ends in ext, ignoring case, with a
// non-empty stem.
func hasExtension(p FilePath, ext string) bool {
	s := string(p)
	return len(s) > len(ext) && strings.EqualFold(s[len(s)-len(ext):], ext)
}
