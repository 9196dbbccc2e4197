// SPDX-License-Identifier: MPL-2.0

package overlay

import (
	"errors"
	"fmt"

	"github.com/variantc/variantc/pkg/tenant"
)

// ErrInvalidInput is the sentinel error wrapped by InvalidInputError. Every
// resolver failure is a precondition violation and wraps it.
var ErrInvalidInput = errors.New("invalid resolver input")

// ErrInvalidAliasRule is returned when an alias rule name is not recognized.
var ErrInvalidAliasRule = errors.New("invalid alias rule")

const (
	// FaultEmptyTenantSet means the resolver was given no tenants.
	FaultEmptyTenantSet Fault = iota + 1
	// FaultUnknownTenant means the target tenant is not in the tenant set.
	FaultUnknownTenant
	// FaultUnsorted means the inventory is not in ascending order.
	FaultUnsorted
	// FaultDuplicate means the inventory lists the same path twice.
	FaultDuplicate
	// FaultExtension means an inventory path lacks the source extension.
	FaultExtension
)

type (
	// Fault classifies an InvalidInputError.
	Fault int

	// InvalidInputError reports a resolver precondition violation.
	InvalidInputError struct {
		Fault  Fault
		Tenant tenant.Tenant
		// Path and Index locate the offending inventory entry, when any.
		Path  FilePath
		Index int
	}
)

// String returns a short description of the fault.
func (f Fault) String() string {
	switch f {
	case FaultEmptyTenantSet:
		return "empty tenant set"
	case FaultUnknownTenant:
		return "unknown tenant"
	case FaultUnsorted:
		return "unsorted inventory"
	case FaultDuplicate:
		return "duplicate inventory entry"
	case FaultExtension:
		return "unexpected file extension"
	default:
		return "unknown fault"
	}
}

// Error implements the error interface for InvalidInputError.
func (e *InvalidInputError) Error() string {
	switch e.Fault {
	case FaultEmptyTenantSet:
		return "invalid resolver input: tenant set is empty"
	case FaultUnknownTenant:
		return fmt.Sprintf("invalid resolver input: tenant %q is not in the tenant set", e.Tenant)
	case FaultUnsorted:
		return fmt.Sprintf("invalid resolver input: inventory is not sorted ascending at entry %d (%s)", e.Index, e.Path)
	case FaultDuplicate:
		return fmt.Sprintf("invalid resolver input: inventory lists %s more than once (entry %d)", e.Path, e.Index)
	case FaultExtension:
		return fmt.Sprintf("invalid resolver input: %s (entry %d) does not carry the source extension", e.Path, e.Index)
	default:
		return "invalid resolver input"
	}
}

// Unwrap returns ErrInvalidInput for errors.Is() compatibility.
func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }
