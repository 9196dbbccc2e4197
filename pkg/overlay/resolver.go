// SPDX-License-Identifier: MPL-2.0

package overlay

import (
	"errors"

	"github.com/variantc/variantc/pkg/tenant"
)

type (
	// Option configures a Resolver.
	Option func(*Resolver)

	// Resolver resolves inventories against a fixed tenant set. It holds no
	// mutable state and is safe for concurrent use.
	Resolver struct {
		tenants tenant.Set
		rule    AliasRule
		ext     string
	}
)

// WithRule selects the alias derivation rule. The default is RuleStrict.
func WithRule(rule AliasRule) Option {
	return func(r *Resolver) { r.rule = rule }
}

// WithExtension sets the source extension, including its leading dot. The
// default is DefaultExtension.
func WithExtension(ext string) Option {
	return func(r *Resolver) {
		if ext != "" {
			r.ext = ext
		}
	}
}

// NewResolver creates a resolver for the given tenant set. An empty set is
// accepted here and reported by Resolve, so callers get a single error path.
func NewResolver(tenants tenant.Set, opts ...Option) *Resolver {
	r := &Resolver{tenants: tenants, rule: RuleStrict, ext: DefaultExtension}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve is shorthand for NewResolver(tenants, opts...).Resolve(target, inventory).
func Resolve(target tenant.Tenant, inventory []FilePath, tenants tenant.Set, opts ...Option) (*Resolution, error) {
	return NewResolver(tenants, opts...).Resolve(target, inventory)
}

// Tenants returns the resolver's tenant set.
func (r *Resolver) Tenants() tenant.Set { return r.tenants }

// Rule returns the alias derivation rule in use.
func (r *Resolver) Rule() AliasRule { return r.rule }

// Extension returns the source extension in use.
func (r *Resolver) Extension() string { return r.ext }

// Classify derives the module alias, generic path and owner of one file.
func (r *Resolver) Classify(p FilePath) (Candidate, error) {
	if !hasExtension(p, r.ext) {
		return Candidate{}, &InvalidInputError{Fault: FaultExtension, Path: p, Index: -1}
	}

	var (
		alias ModuleAlias
		owner tenant.Tenant
	)
	switch r.rule {
	case RuleLegacy:
		alias, owner = deriveLegacy(p, r.ext, r.tenants)
	default:
		alias, owner = deriveStrict(p, r.ext, r.tenants)
	}
	generic := FilePath(string(alias) + r.ext)
	if owner == "" {
		// keep the file's own extension spelling
		generic = p
	}
	return Candidate{
		Path:    p,
		Alias:   alias,
		Generic: generic,
		Owner:   owner,
	}, nil
}

// Resolve computes the alias table and exclusion set for target.
//
// Every alias is seeded with its generic path. The target tenant's override,
// when present, replaces it. Every inventory file that is not the selection
// is excluded, and so is the generic path of a run whose selection is an
// override unless the run has full coverage (one entry per tenant, hence no
// generic file to compile).
func (r *Resolver) Resolve(target tenant.Tenant, inventory []FilePath) (*Resolution, error) {
	if r.tenants.IsEmpty() {
		return nil, &InvalidInputError{Fault: FaultEmptyTenantSet, Tenant: target, Index: -1}
	}
	canonical, ok := r.tenants.Lookup(string(target))
	if !ok {
		return nil, &InvalidInputError{Fault: FaultUnknownTenant, Tenant: target, Index: -1}
	}
	for i := 1; i < len(inventory); i++ {
		switch {
		case inventory[i] == inventory[i-1]:
			return nil, &InvalidInputError{Fault: FaultDuplicate, Tenant: canonical, Path: inventory[i], Index: i}
		case inventory[i] < inventory[i-1]:
			return nil, &InvalidInputError{Fault: FaultUnsorted, Tenant: canonical, Path: inventory[i], Index: i}
		}
	}

	res := &Resolution{
		Tenant:  canonical,
		Aliases: make(AliasTable),
	}
	runIndex := make(map[ModuleAlias]int)

	for i, p := range inventory {
		c, err := r.Classify(p)
		if err != nil {
			var inErr *InvalidInputError
			if errors.As(err, &inErr) {
				inErr.Tenant, inErr.Index = canonical, i
			}
			return nil, err
		}

		idx, seen := runIndex[c.Alias]
		if !seen {
			idx = len(res.Runs)
			runIndex[c.Alias] = idx
			res.Runs = append(res.Runs, Run{Alias: c.Alias, Generic: c.Generic})
			res.Aliases[c.Alias] = c.Generic
		}
		run := &res.Runs[idx]
		run.Members = append(run.Members, c)

		if c.IsGeneric() && run.Generic != c.Path {
			// an override seeded the run with a differently spelled generic path
			if res.Aliases[c.Alias] == run.Generic {
				res.Aliases[c.Alias] = c.Path
			}
			run.Generic = c.Path
		}

		if !c.IsGeneric() && c.Owner == canonical {
			res.Aliases[c.Alias] = c.Path
		}
	}

	tenantCount := r.tenants.Len()
	for i := range res.Runs {
		run := &res.Runs[i]
		run.Selected = res.Aliases[run.Alias]
		run.FullCoverage = len(run.Members) == tenantCount

		for _, m := range run.Members {
			if m.Path != run.Selected {
				res.Excluded.Add(m.Path)
			}
		}
		if !run.FullCoverage && run.IsOverride() {
			res.Excluded.Add(run.Generic)
		}
		run.GenericExcluded = res.Excluded.Contains(run.Generic)
	}

	return res, nil
}
