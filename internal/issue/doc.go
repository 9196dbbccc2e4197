// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown guidance
// for the failures users hit most often: missing configuration, an unusable
// tenant list, an unsorted inventory or a base tsconfig that cannot be read.
package issue
