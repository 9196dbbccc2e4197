// SPDX-License-Identifier: MPL-2.0

// Package overlay resolves tenant-specific module overrides.
//
// A module's generic implementation lives in `<module>.ts`; a tenant may
// override it with `<module>.<tenant>.ts`. Given the inventory of candidate
// files and a target tenant, Resolve computes which single file represents
// every module (the AliasTable) and which inventory files must be kept out of
// the compilation (the ExclusionSet), so that a tenant build never compiles
// two definitions of one module nor another tenant's override.
//
// The inventory must be sorted ascending by byte-wise path order (see
// SortInventory). Files sharing a module alias are grouped into runs; a run
// where every tenant supplied an override is said to have full coverage and
// needs no generic exclusion.
//
// Resolution is a pure computation: it performs no I/O, keeps no state
// between calls and may be invoked concurrently for different tenants.
package overlay
