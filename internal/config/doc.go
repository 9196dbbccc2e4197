// SPDX-License-Identifier: MPL-2.0

// Package config loads variantc settings using Viper, with CUE as the file
// format.
//
// Settings come from, lowest precedence first: built-in defaults, the
// "config" block of package.json (the npm package config convention the
// build scripts historically used), variantc.cue in the project directory or
// the file named with --config, and finally the environment. Both
// VARIANTC_<KEY> and the npm_package_config_<key> names npm exports when it
// runs a script are honored.
//
// CUE files are validated against the embedded schema (config_schema.cue).
// Path values undergo $VAR expansion before validation.
package config
