// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the variantc command-line interface.
//
// Every command is built by a newXCommand(app) constructor and reaches the
// project through the App composition root, so tests can run commands with
// their own writers and configuration provider.
package cmd
