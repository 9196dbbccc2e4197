// SPDX-License-Identifier: MPL-2.0

// Command variantc selects per-tenant source overrides for TypeScript
// builds.
package main

import cmd "github.com/variantc/variantc/cmd/variantc"

func main() {
	cmd.Execute()
}
