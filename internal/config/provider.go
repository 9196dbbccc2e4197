// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific CUE file when set.
	ConfigFilePath string
	// ProjectDir is searched for variantc.cue and package.json. Defaults to
	// the working directory.
	ProjectDir string
	// Getenv resolves $VAR references in path settings. nil reads the
	// process environment.
	Getenv func(string) string
	// SkipValidation returns the merged settings even when they do not
	// validate, for inspection commands.
	SkipValidation bool
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested sources.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return loadWithOptions(ctx, opts)
}
