// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/variantc/variantc/pkg/overlay"
	"github.com/variantc/variantc/pkg/tenant"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidValue is the sentinel error wrapped by InvalidValueError.
	ErrInvalidValue = errors.New("invalid config value")
	// ErrConfigNotFound is returned when an explicitly requested config file
	// does not exist.
	ErrConfigNotFound = errors.New("config file not found")

	extensionPattern = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)
)

type (
	// TenantList is the configured tenant names, in declaration order. A
	// single ';' or ',' separated string decodes into a list.
	TenantList []string

	// InvalidValueError reports one rejected setting.
	InvalidValueError struct {
		Key    string
		Value  string
		Reason string
	}

	// InvalidConfigError collects every field-level error of a Config. It
	// wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the variantc configuration. Paths are relative to the
	// project directory unless absolute.
	Config struct {
		// Tenants lists the tenants overrides may be written for. The first
		// one is the default build target.
		Tenants TenantList `json:"tenants" mapstructure:"tenants" toml:"tenants"`
		// ClientAppPath is the root of the client application sources.
		ClientAppPath string `json:"clientAppPath" mapstructure:"clientAppPath" toml:"clientAppPath"`
		// AliasPathSeparator replaces '/' in compilerOptions.paths keys.
		AliasPathSeparator string `json:"aliasPathSeparator" mapstructure:"aliasPathSeparator" toml:"aliasPathSeparator"`
		// Extension is the source extension including its leading dot.
		Extension string `json:"extension" mapstructure:"extension" toml:"extension"`
		// AliasRule is "strict" or "legacy".
		AliasRule string `json:"aliasRule" mapstructure:"aliasRule" toml:"aliasRule"`

		TsConfigPath     string `json:"tsConfigPath" mapstructure:"tsConfigPath" toml:"tsConfigPath"`
		TsConfigAotPath  string `json:"tsConfigAotPath" mapstructure:"tsConfigAotPath" toml:"tsConfigAotPath"`
		TsConfigBasePath string `json:"tsConfigBasePath" mapstructure:"tsConfigBasePath" toml:"tsConfigBasePath"`
		MainPath         string `json:"mainPath" mapstructure:"mainPath" toml:"mainPath"`
		MainAotPath      string `json:"mainAotPath" mapstructure:"mainAotPath" toml:"mainAotPath"`
		AotPath          string `json:"aotPath" mapstructure:"aotPath" toml:"aotPath"`

		// Ignore holds extra doublestar patterns skipped by the inventory scan.
		Ignore []string `json:"ignore" mapstructure:"ignore" toml:"ignore"`
		// IncludeGeneric adds the generic sibling of every override to the
		// inventory.
		IncludeGeneric bool `json:"includeGeneric" mapstructure:"includeGeneric" toml:"includeGeneric"`

		Watch WatchConfig `json:"watch" mapstructure:"watch" toml:"watch"`

		// Source is the CUE file the settings were read from, empty when only
		// defaults, package.json and the environment applied.
		Source string `json:"-" mapstructure:"-" toml:"-"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		// Debounce is a Go duration string such as "500ms".
		Debounce    string `json:"debounce" mapstructure:"debounce" toml:"debounce"`
		ClearScreen bool   `json:"clearScreen" mapstructure:"clearScreen" toml:"clearScreen"`
	}
)

// Error implements the error interface for InvalidValueError.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Key, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidValue for errors.Is() compatibility.
func (e *InvalidValueError) Unwrap() error { return ErrInvalidValue }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks every field and aggregates the failures.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.TenantSet(); err != nil {
		errs = append(errs, err)
	}
	if _, err := overlay.ParseAliasRule(c.AliasRule); err != nil {
		errs = append(errs, err)
	}
	if !extensionPattern.MatchString(c.Extension) {
		errs = append(errs, &InvalidValueError{Key: "extension", Value: c.Extension, Reason: "must be a dot followed by letters or digits"})
	}
	if strings.Contains(c.AliasPathSeparator, "/") {
		errs = append(errs, &InvalidValueError{Key: "aliasPathSeparator", Value: c.AliasPathSeparator, Reason: "must not contain '/'"})
	}
	for _, f := range []struct{ key, val string }{
		{"clientAppPath", c.ClientAppPath},
		{"tsConfigPath", c.TsConfigPath},
		{"tsConfigAotPath", c.TsConfigAotPath},
		{"tsConfigBasePath", c.TsConfigBasePath},
	} {
		if strings.TrimSpace(f.val) == "" {
			errs = append(errs, &InvalidValueError{Key: f.key, Value: f.val, Reason: "must not be empty"})
		}
	}
	for _, pat := range c.Ignore {
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, &InvalidValueError{Key: "ignore", Value: pat, Reason: "not a valid glob pattern"})
		}
	}
	if c.Watch.Debounce != "" {
		if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d < 0 {
			errs = append(errs, &InvalidValueError{Key: "watch.debounce", Value: c.Watch.Debounce, Reason: "must be a non-negative duration"})
		}
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// TenantSet builds the tenant set from Tenants.
func (c *Config) TenantSet() (tenant.Set, error) {
	ts := make([]tenant.Tenant, 0, len(c.Tenants))
	for _, name := range c.Tenants {
		if name = strings.TrimSpace(name); name != "" {
			ts = append(ts, tenant.Tenant(name))
		}
	}
	return tenant.NewSet(ts...)
}

// Rule returns the configured alias rule, RuleStrict when unset or invalid.
func (c *Config) Rule() overlay.AliasRule {
	rule, err := overlay.ParseAliasRule(c.AliasRule)
	if err != nil {
		return overlay.RuleStrict
	}
	return rule
}

// ClientAppDir returns ClientAppPath in the slash-separated, "./"-free form
// inventory paths use.
func (c *Config) ClientAppDir() string {
	return path.Clean(strings.ReplaceAll(c.ClientAppPath, `\`, "/"))
}

// DebounceDuration returns the watch debounce, zero when unset or invalid.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// pathFields returns pointers to every path-valued setting.
func (c *Config) pathFields() []*string {
	return []*string{
		&c.ClientAppPath,
		&c.TsConfigPath,
		&c.TsConfigAotPath,
		&c.TsConfigBasePath,
		&c.MainPath,
		&c.MainAotPath,
		&c.AotPath,
	}
}
