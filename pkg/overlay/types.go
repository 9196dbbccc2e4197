// SPDX-License-Identifier: MPL-2.0

package overlay

import (
	"maps"
	"slices"

	"github.com/variantc/variantc/pkg/tenant"
)

type (
	// FilePath identifies a candidate source file. Paths use forward slashes
	// and are ordered byte-wise.
	FilePath string

	// ModuleAlias is the tenant-independent identifier of a module: its path
	// without the extension and without a tenant qualifier.
	ModuleAlias string

	// Candidate is an inventory file tagged with its module and owner.
	Candidate struct {
		Path  FilePath
		Alias ModuleAlias
		// Generic is the path of the module's generic implementation.
		Generic FilePath
		// Owner is the tenant the file belongs to; empty for a generic file.
		Owner tenant.Tenant
	}

	// AliasTable maps every module alias to the file compiled for it.
	AliasTable map[ModuleAlias]FilePath

	// ExclusionSet holds the files that must not be compiled. The zero value
	// is ready to use.
	ExclusionSet struct {
		paths map[FilePath]struct{}
	}

	// Run groups every inventory entry sharing one module alias.
	Run struct {
		Alias   ModuleAlias
		Generic FilePath
		Members []Candidate
		// Selected is the file the alias resolves to for the target tenant.
		Selected FilePath
		// FullCoverage is set when the run holds exactly one entry per tenant.
		FullCoverage bool
		// GenericExcluded is set when the generic file ended up excluded.
		GenericExcluded bool
	}

	// Resolution is the outcome of resolving an inventory for one tenant.
	Resolution struct {
		Tenant   tenant.Tenant
		Aliases  AliasTable
		Excluded ExclusionSet
		// Runs are listed in order of first appearance in the inventory.
		Runs []Run
	}
)

// IsGeneric reports whether the candidate carries no tenant qualifier.
func (c Candidate) IsGeneric() bool { return c.Owner == "" }

// String returns the path.
func (p FilePath) String() string { return string(p) }

// String returns the alias.
func (a ModuleAlias) String() string { return string(a) }

// Aliases returns the table keys in ascending order.
func (t AliasTable) Aliases() []ModuleAlias {
	return slices.Sorted(maps.Keys(t))
}

// NewExclusionSet returns a set holding paths.
func NewExclusionSet(paths ...FilePath) ExclusionSet {
	var s ExclusionSet
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts p into the set.
func (s *ExclusionSet) Add(p FilePath) {
	if s.paths == nil {
		s.paths = make(map[FilePath]struct{})
	}
	s.paths[p] = struct{}{}
}

// Contains reports whether p is excluded.
func (s ExclusionSet) Contains(p FilePath) bool {
	_, ok := s.paths[p]
	return ok
}

// Len returns the number of excluded files.
func (s ExclusionSet) Len() int { return len(s.paths) }

// Sorted returns the excluded files in ascending order.
func (s ExclusionSet) Sorted() []FilePath {
	return slices.Sorted(maps.Keys(s.paths))
}

// IsOverride reports whether the alias resolved to a tenant override rather
// than the generic file.
func (r Run) IsOverride() bool { return r.Selected != r.Generic }

// Selected returns the chosen files in alias order.
func (r *Resolution) Selected() []FilePath {
	aliases := r.Aliases.Aliases()
	out := make([]FilePath, len(aliases))
	for i, a := range aliases {
		out[i] = r.Aliases[a]
	}
	return out
}

// Run returns the run for alias, if the inventory contained it.
func (r *Resolution) Run(alias ModuleAlias) (Run, bool) {
	for _, run := range r.Runs {
		if run.Alias == alias {
			return run, true
		}
	}
	return Run{}, false
}

// SortInventory sorts paths in place into the order Resolve expects:
// ascending byte-wise string order.
func SortInventory(paths []FilePath) {
	slices.Sort(paths)
}

// IsSortedInventory reports whether paths are strictly ascending.
func IsSortedInventory(paths []FilePath) bool {
	for i := 1; i < len(paths); i++ {
		if paths[i] <= paths[i-1] {
			return false
		}
	}
	return true
}
