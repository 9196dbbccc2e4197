// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-json"
	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"

	"github.com/variantc/variantc/internal/issue"
	"github.com/variantc/variantc/pkg/tenant"
)

const (
	// AppName is the application name.
	AppName = "variantc"
	// ConfigFileName is the name of the project config file (without extension).
	ConfigFileName = "variantc"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// PackageJSONFile holds the npm package config block.
	PackageJSONFile = "package.json"
	// EnvPrefix prefixes the environment variable of every setting.
	EnvPrefix = "VARIANTC"

	npmEnvPrefix = "npm_package_config_"

	// maxConfigFileSize bounds the CUE and package.json files read.
	maxConfigFileSize = 4 << 20
)

//go:embed config_schema.cue
var configSchema string

// npmKeys maps npm package config names to config keys.
var npmKeys = map[string]string{
	"manufacturers":      "tenants",
	"clientAppPath":      "clientAppPath",
	"aliasPathSeparator": "aliasPathSeparator",
	"tsConfigPath":       "tsConfigPath",
	"tsConfigAotPath":    "tsConfigAotPath",
	"tsConfigBasePath":   "tsConfigBasePath",
	"mainPath":           "mainPath",
	"mainAotPath":        "mainAotPath",
	"aotPath":            "aotPath",
}

// DefaultConfig returns the settings used when nothing overrides them. The
// tenant list has no default.
func DefaultConfig() *Config {
	return &Config{
		ClientAppPath:      "./src/app",
		AliasPathSeparator: "_",
		Extension:          ".ts",
		AliasRule:          "strict",
		TsConfigPath:       "./tsconfig.json",
		TsConfigAotPath:    "./tsconfig-aot.json",
		TsConfigBasePath:   "./tsconfig.base.json",
		MainPath:           "./src/main.ts",
		MainAotPath:        "./src/main-aot.ts",
		AotPath:            "./aot",
		IncludeGeneric:     true,
		Watch:              WatchConfig{Debounce: "500ms"},
	}
}

// defaultsMap flattens cfg into viper keys.
func defaultsMap(cfg *Config) map[string]any {
	return map[string]any{
		"tenants":            cfg.Tenants,
		"clientAppPath":      cfg.ClientAppPath,
		"aliasPathSeparator": cfg.AliasPathSeparator,
		"extension":          cfg.Extension,
		"aliasRule":          cfg.AliasRule,
		"tsConfigPath":       cfg.TsConfigPath,
		"tsConfigAotPath":    cfg.TsConfigAotPath,
		"tsConfigBasePath":   cfg.TsConfigBasePath,
		"mainPath":           cfg.MainPath,
		"mainAotPath":        cfg.MainAotPath,
		"aotPath":            cfg.AotPath,
		"ignore":             cfg.Ignore,
		"includeGeneric":     cfg.IncludeGeneric,
		"watch.debounce":     cfg.Watch.Debounce,
		"watch.clearScreen":  cfg.Watch.ClearScreen,
	}
}

// EnvName returns the VARIANTC_* variable for a config key, e.g.
// "tsConfigAotPath" becomes VARIANTC_TS_CONFIG_AOT_PATH.
func EnvName(key string) string {
	var sb strings.Builder
	sb.WriteString(EnvPrefix)
	sb.WriteByte('_')
	for i, r := range key {
		switch {
		case r == '.':
			sb.WriteByte('_')
			continue
		case unicode.IsUpper(r) && i > 0 && key[i-1] != '.':
			sb.WriteByte('_')
		}
		sb.WriteRune(unicode.ToUpper(r))
	}
	return sb.String()
}

// loadWithOptions performs option-driven config loading.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	for key, val := range defaultsMap(DefaultConfig()) {
		v.SetDefault(key, val)
	}

	projectDir := opts.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}

	pkgPath := filepath.Join(projectDir, PackageJSONFile)
	if fileExists(pkgPath) {
		m, err := readPackageConfig(pkgPath)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(pkgPath).
				WithSuggestion("Check that package.json is valid JSON").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
		if len(m) > 0 {
			if err := v.MergeConfigMap(m); err != nil {
				return nil, fmt.Errorf("failed to merge package config: %w", err)
			}
			slog.Debug("loaded npm package config", "path", pkgPath, "keys", len(m))
		}
	}

	cuePath := opts.ConfigFilePath
	if cuePath != "" {
		if !fileExists(cuePath) {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(cuePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'variantc config init' to create a config file").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(ErrConfigNotFound).
				BuildError()
		}
	} else if candidate := filepath.Join(projectDir, ConfigFileName+"."+ConfigFileExt); fileExists(candidate) {
		cuePath = candidate
	}

	if cuePath != "" {
		if err := loadCUEIntoViper(v, cuePath); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(cuePath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'variantc config dump' for a complete example").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
		slog.Debug("loaded config file", "path", cuePath)
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = cuePath

	if err := cfg.expandPaths(opts.Getenv); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("expand configuration paths").
			WithSuggestion("Check $VAR references in path settings").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	if !opts.SkipValidation {
		if err := cfg.Validate(); err != nil {
			id := issue.ConfigLoadFailedId
			if hasTenantError(err) {
				id = issue.TenantSetInvalidId
			}
			return nil, issue.NewErrorContext().
				WithOperation("validate configuration").
				WithSuggestion("Run 'variantc config show' to inspect the effective settings").
				WithIssue(id).
				Wrap(err).
				BuildError()
		}
	}

	return &cfg, nil
}

// hasTenantError reports whether a validation failure concerns the tenant list.
func hasTenantError(err error) bool {
	var cfgErr *InvalidConfigError
	if !errors.As(err, &cfgErr) {
		return false
	}
	for _, fe := range cfgErr.FieldErrors {
		if errors.Is(fe, tenant.ErrInvalidTenant) || errors.Is(fe, tenant.ErrInvalidTenantSet) {
			return true
		}
	}
	return false
}

// bindEnv registers VARIANTC_* and npm_package_config_* names for every key.
func bindEnv(v *viper.Viper) error {
	npmNames := make(map[string]string, len(npmKeys))
	for npm, key := range npmKeys {
		npmNames[key] = npm
	}
	for key := range defaultsMap(DefaultConfig()) {
		names := []string{key, EnvName(key)}
		if npm, ok := npmNames[key]; ok {
			names = append(names, npmEnvPrefix+npm)
		}
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}
	return nil
}

var tenantListType = reflect.TypeFor[TenantList]()

// splitTenantList decodes "honda;toyota" or "honda,toyota" into a TenantList.
var splitTenantList mapstructure.DecodeHookFuncType = func(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != tenantListType {
		return data, nil
	}
	fields := strings.FieldsFunc(data.(string), func(r rune) bool { return r == ';' || r == ',' })
	out := make(TenantList, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		splitTenantList,
		mapstructure.StringToSliceHookFunc(";"),
	)
}

// readPackageConfig returns the known settings of package.json's "config"
// block, keyed by config key.
func readPackageConfig(path string) (map[string]any, error) {
	data, err := readBounded(path)
	if err != nil {
		return nil, err
	}
	var pkg struct {
		Config map[string]any `json:"config"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	out := make(map[string]any)
	for npm, key := range npmKeys {
		if val, ok := pkg.Config[npm]; ok {
			out[key] = val
		}
	}
	return out, nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := readBounded(path)
	if err != nil {
		return err
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// expandPaths applies $VAR expansion to path settings. A nil getenv reads
// the process environment.
func (c *Config) expandPaths(getenv func(string) string) error {
	for _, p := range c.pathFields() {
		if !strings.ContainsRune(*p, '$') {
			continue
		}
		expanded, err := shell.Expand(*p, getenv)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// readBounded reads path, refusing files larger than maxConfigFileSize.
func readBounded(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%s: file size %d exceeds the %d byte limit", path, info.Size(), maxConfigFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ProjectConfigPath returns where the project config file lives for dir.
func ProjectConfigPath(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
}

// CreateDefaultConfig writes a default variantc.cue into dir. An existing
// file is kept unless overwrite is set. It returns the path written.
func CreateDefaultConfig(dir string, tenants []string, overwrite bool) (string, error) {
	cfgPath := ProjectConfigPath(dir)
	if !overwrite && fileExists(cfgPath) {
		return cfgPath, fmt.Errorf("%s: %w", cfgPath, fs.ErrExist)
	}
	cfg := DefaultConfig()
	cfg.Tenants = tenants
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}
