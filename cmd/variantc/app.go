// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/variantc/variantc/internal/config"
	"github.com/variantc/variantc/internal/variant"
	"github.com/variantc/variantc/pkg/overlay"
)

type (
	// App wires CLI services and shared dependencies. Command handlers
	// receive an App and reach configuration and the build-target service
	// through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
		getenv func(string) string
		flags  globalFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
		// Getenv resolves $VAR references in configured paths.
		Getenv func(string) string
	}

	// globalFlags holds the persistent flags of the root command.
	globalFlags struct {
		verbose     bool
		configPath  string
		projectDir  string
		aliasRule   overlay.AliasRule
		ruleChanged bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		getenv: deps.Getenv,
	}
}

// loadOptions builds config loading options from the global flags.
func (a *App) loadOptions(skipValidation bool) config.LoadOptions {
	return config.LoadOptions{
		ConfigFilePath: a.flags.configPath,
		ProjectDir:     a.projectDir(),
		Getenv:         a.getenv,
		SkipValidation: skipValidation,
	}
}

func (a *App) projectDir() string {
	if a.flags.projectDir == "" {
		return "."
	}
	return a.flags.projectDir
}

// loadConfig loads and validates the project configuration.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	return a.Config.Load(ctx, a.loadOptions(false))
}

// service loads the configuration and builds the build-target service.
func (a *App) service(ctx context.Context) (*variant.Service, *config.Config, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	var opts []variant.Option
	if a.flags.ruleChanged {
		opts = append(opts, variant.WithAliasRule(a.flags.aliasRule))
	}
	svc, err := variant.New(cfg, a.projectDir(), opts...)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}
