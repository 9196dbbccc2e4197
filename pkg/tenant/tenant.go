// SPDX-License-Identifier: MPL-2.0

// Package tenant defines tenant (manufacturer) identifiers and the ordered
// tenant set a build is configured with.
//
// A tenant identifier doubles as the qualifier segment of override file names
// (`<module>.<tenant>.ts`), so it must be a single dot-free path segment.
// Tenant names are compared case-insensitively; the spelling used when the set
// was declared is the canonical one.
package tenant

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidTenant is the sentinel error wrapped by InvalidTenantError.
var ErrInvalidTenant = errors.New("invalid tenant")

// ErrInvalidTenantSet is the sentinel error wrapped by InvalidTenantSetError.
var ErrInvalidTenantSet = errors.New("invalid tenant set")

var tenantPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

const (
	// SetEmpty means no tenant was declared.
	SetEmpty SetFault = iota + 1
	// SetDuplicate means the same tenant was declared twice (case-insensitively).
	SetDuplicate
)

type (
	// Tenant identifies one variant of the product being built.
	Tenant string

	// InvalidTenantError is returned when a Tenant value is empty or is not a
	// single identifier segment.
	InvalidTenantError struct {
		Value Tenant
	}

	// SetFault classifies why a tenant set was rejected.
	SetFault int

	// InvalidTenantSetError is returned when a tenant set cannot be built.
	InvalidTenantSetError struct {
		Fault  SetFault
		Tenant Tenant
	}

	// Set is an ordered, de-duplicated collection of tenants. The zero value
	// is an empty set; use NewSet or ParseList to build a usable one.
	Set struct {
		tenants []Tenant
		index   map[string]int
	}
)

// String returns the tenant identifier.
func (t Tenant) String() string { return string(t) }

// Validate returns an error if the tenant is not a usable file-name qualifier.
func (t Tenant) Validate() error {
	if !tenantPattern.MatchString(string(t)) {
		return &InvalidTenantError{Value: t}
	}
	return nil
}

// Equal reports whether two tenants name the same variant.
func (t Tenant) Equal(other Tenant) bool {
	return strings.EqualFold(string(t), string(other))
}

// Error implements the error interface for InvalidTenantError.
func (e *InvalidTenantError) Error() string {
	return fmt.Sprintf("invalid tenant %q: must match %s", e.Value, tenantPattern)
}

// Unwrap returns ErrInvalidTenant for errors.Is() compatibility.
func (e *InvalidTenantError) Unwrap() error { return ErrInvalidTenant }

// String returns a short description of the fault.
func (f SetFault) String() string {
	switch f {
	case SetEmpty:
		return "empty"
	case SetDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Error implements the error interface for InvalidTenantSetError.
func (e *InvalidTenantSetError) Error() string {
	switch e.Fault {
	case SetEmpty:
		return "invalid tenant set: at least one tenant is required"
	case SetDuplicate:
		return fmt.Sprintf("invalid tenant set: tenant %q declared more than once", e.Tenant)
	default:
		return "invalid tenant set"
	}
}

// Unwrap returns ErrInvalidTenantSet for errors.Is() compatibility.
func (e *InvalidTenantSetError) Unwrap() error { return ErrInvalidTenantSet }

// NewSet builds a tenant set preserving declaration order.
func NewSet(tenants ...Tenant) (Set, error) {
	if len(tenants) == 0 {
		return Set{}, &InvalidTenantSetError{Fault: SetEmpty}
	}
	s := Set{
		tenants: make([]Tenant, 0, len(tenants)),
		index:   make(map[string]int, len(tenants)),
	}
	for _, t := range tenants {
		if err := t.Validate(); err != nil {
			return Set{}, err
		}
		key := strings.ToLower(string(t))
		if _, dup := s.index[key]; dup {
			return Set{}, &InvalidTenantSetError{Fault: SetDuplicate, Tenant: t}
		}
		s.index[key] = len(s.tenants)
		s.tenants = append(s.tenants, t)
	}
	return s, nil
}

// ParseList parses a separated tenant list such as "honda;toyota". Both ';'
// (the npm package config convention) and ',' are accepted; blanks are
// ignored.
func ParseList(list string) (Set, error) {
	fields := strings.FieldsFunc(list, func(r rune) bool { return r == ';' || r == ',' })
	tenants := make([]Tenant, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			tenants = append(tenants, Tenant(f))
		}
	}
	return NewSet(tenants...)
}

// MustParseList is like ParseList but panics on error. Intended for tests and
// static declarations.
func MustParseList(list string) Set {
	s, err := ParseList(list)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of tenants in the set.
func (s Set) Len() int { return len(s.tenants) }

// IsEmpty reports whether the set holds no tenants.
func (s Set) IsEmpty() bool { return len(s.tenants) == 0 }

// All returns the tenants in declaration order.
func (s Set) All() []Tenant {
	out := make([]Tenant, len(s.tenants))
	copy(out, s.tenants)
	return out
}

// Lookup finds a tenant by name, ignoring case, and returns its canonical
// spelling.
func (s Set) Lookup(name string) (Tenant, bool) {
	i, ok := s.index[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return s.tenants[i], true
}

// Contains reports whether t belongs to the set.
func (s Set) Contains(t Tenant) bool {
	_, ok := s.Lookup(string(t))
	return ok
}

// Default returns the first declared tenant, used when no target is given.
func (s Set) Default() (Tenant, bool) {
	if len(s.tenants) == 0 {
		return "", false
	}
	return s.tenants[0], true
}

// String joins the tenants with ';'.
func (s Set) String() string {
	parts := make([]string, len(s.tenants))
	for i, t := range s.tenants {
		parts[i] = string(t)
	}
	return strings.Join(parts, ";")
}
