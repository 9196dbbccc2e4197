// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/variantc/variantc/internal/issue"
	"github.com/variantc/variantc/pkg/overlay"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func load(t *testing.T, opts LoadOptions) (*Config, error) {
	t.Helper()
	return NewProvider().Load(context.Background(), opts)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Extension != ".ts" || cfg.AliasPathSeparator != "_" || cfg.AliasRule != "strict" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.IncludeGeneric {
		t.Error("IncludeGeneric should default to true")
	}
	if len(cfg.Tenants) != 0 {
		t.Errorf("Tenants should have no default, got %v", cfg.Tenants)
	}
	if got := cfg.ClientAppDir(); got != "src/app" {
		t.Errorf("ClientAppDir() = %q, want src/app", got)
	}
	if got := cfg.DebounceDuration().String(); got != "500ms" {
		t.Errorf("DebounceDuration() = %s, want 500ms", got)
	}
}

func TestEnvName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"tenants":           "VARIANTC_TENANTS",
		"tsConfigAotPath":   "VARIANTC_TS_CONFIG_AOT_PATH",
		"watch.clearScreen": "VARIANTC_WATCH_CLEAR_SCREEN",
	}
	for key, want := range tests {
		if got := EnvName(key); got != want {
			t.Errorf("EnvName(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestLoad_CUEFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "variantc.cue", `
tenants: ["honda", "toyota"]
clientAppPath: "./web/app"
aliasRule: "legacy"
ignore: ["**/*.spec.ts"]
watch: debounce: "1s"
`)

	cfg, err := load(t, LoadOptions{ProjectDir: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(TenantList{"honda", "toyota"}, cfg.Tenants); diff != "" {
		t.Errorf("Tenants mismatch (-want +got):\n%s", diff)
	}
	if cfg.ClientAppPath != "./web/app" || cfg.Rule() != overlay.RuleLegacy {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"**/*.spec.ts"}, cfg.Ignore); diff != "" {
		t.Errorf("Ignore mismatch (-want +got):\n%s", diff)
	}
	if cfg.TsConfigBasePath != "./tsconfig.base.json" {
		t.Errorf("unset keys should keep defaults, got TsConfigBasePath=%q", cfg.TsConfigBasePath)
	}
	if cfg.Source != filepath.Join(dir, "variantc.cue") {
		t.Errorf("Source = %q", cfg.Source)
	}
}

func TestLoad_PackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
  "name": "cars",
  "config": {
    "manufacturers": "honda;toyota;ford",
    "clientAppPath": "./src/app",
    "aliasPathSeparator": "-",
    "tsConfigBasePath": "./tsconfig-base.json",
    "manufacturerArg": "manufacturer"
  }
}`)

	cfg, err := load(t, LoadOptions{ProjectDir: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(TenantList{"honda", "toyota", "ford"}, cfg.Tenants); diff != "" {
		t.Errorf("Tenants mismatch (-want +got):\n%s", diff)
	}
	if cfg.AliasPathSeparator != "-" || cfg.TsConfigBasePath != "./tsconfig-base.json" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty without a CUE file", cfg.Source)
	}
}

func TestLoad_CUEOverridesPackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"config": {"manufacturers": "honda", "aliasPathSeparator": "-"}}`)
	writeFile(t, dir, "variantc.cue", `tenants: ["toyota"]`)

	cfg, err := load(t, LoadOptions{ProjectDir: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(TenantList{"toyota"}, cfg.Tenants); diff != "" {
		t.Errorf("Tenants mismatch (-want +got):\n%s", diff)
	}
	if cfg.AliasPathSeparator != "-" {
		t.Errorf("package.json keys absent from the CUE file should survive, got %q", cfg.AliasPathSeparator)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "variantc.cue", `tenants: ["honda"]`)
	t.Setenv("VARIANTC_TENANTS", "kia,seat")
	t.Setenv("npm_package_config_tsConfigPath", "./build/tsconfig.json")
	t.Setenv("VARIANTC_INCLUDE_GENERIC", "false")

	cfg, err := load(t, LoadOptions{ProjectDir: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(TenantList{"kia", "seat"}, cfg.Tenants); diff != "" {
		t.Errorf("Tenants mismatch (-want +got):\n%s", diff)
	}
	if cfg.TsConfigPath != "./build/tsconfig.json" {
		t.Errorf("TsConfigPath = %q, want npm env value", cfg.TsConfigPath)
	}
	if cfg.IncludeGeneric {
		t.Error("IncludeGeneric should be false from the environment")
	}
}

func TestLoad_NpmManufacturersEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("npm_package_config_manufacturers", "honda;toyota")

	cfg, err := load(t, LoadOptions{ProjectDir: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(TenantList{"honda", "toyota"}, cfg.Tenants); diff != "" {
		t.Errorf("Tenants mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ExpandsPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "variantc.cue", `
tenants: ["honda"]
tsConfigPath: "$OUT/tsconfig.json"
`)
	env := map[string]string{"OUT": "/tmp/out"}

	cfg, err := load(t, LoadOptions{ProjectDir: dir, Getenv: func(k string) string { return env[k] }})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.TsConfigPath != "/tmp/out/tsconfig.json" {
		t.Errorf("TsConfigPath = %q, want expanded path", cfg.TsConfigPath)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cue       string
		explicit  string
		wantIssue issue.Id
		wantIs    error
	}{
		{
			name:      "missing explicit file",
			explicit:  "does-not-exist.cue",
			wantIssue: issue.ConfigLoadFailedId,
			wantIs:    ErrConfigNotFound,
		},
		{
			name:      "schema violation",
			cue:       `aliasRule: "fuzzy"`,
			wantIssue: issue.ConfigLoadFailedId,
		},
		{
			name:      "unknown field",
			cue:       "tenants: [\"honda\"]\nbogus: 1",
			wantIssue: issue.ConfigLoadFailedId,
		},
		{
			name:      "no tenants",
			cue:       `clientAppPath: "./src/app"`,
			wantIssue: issue.TenantSetInvalidId,
			wantIs:    ErrInvalidConfig,
		},
		{
			name:      "duplicate tenants",
			cue:       `tenants: ["honda", "HONDA"]`,
			wantIssue: issue.TenantSetInvalidId,
			wantIs:    ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			opts := LoadOptions{ProjectDir: dir}
			if tt.cue != "" {
				writeFile(t, dir, "variantc.cue", tt.cue)
			}
			if tt.explicit != "" {
				opts.ConfigFilePath = filepath.Join(dir, tt.explicit)
			}

			_, err := load(t, opts)
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if got := issue.IssueOf(err); got != tt.wantIssue {
				t.Errorf("IssueOf() = %d, want %d (err: %v)", got, tt.wantIssue, err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error should wrap %v, got: %v", tt.wantIs, err)
			}
		})
	}
}

func TestLoad_SkipValidation(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, LoadOptions{ProjectDir: t.TempDir(), SkipValidation: true})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Validate() == nil {
		t.Error("Validate() should still report the missing tenant list")
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ProjectDir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Tenants = TenantList{"honda"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() on defaults with a tenant: %v", err)
	}

	cfg.Extension = "ts"
	cfg.AliasPathSeparator = "/"
	cfg.TsConfigBasePath = " "
	cfg.Ignore = []string{"[unclosed"}
	cfg.Watch.Debounce = "soon"

	err := cfg.Validate()
	var cfgErr *InvalidConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Validate() = %v, want *InvalidConfigError", err)
	}
	if len(cfgErr.FieldErrors) != 5 {
		t.Errorf("got %d field errors, want 5: %v", len(cfgErr.FieldErrors), err)
	}
	for _, fe := range cfgErr.FieldErrors {
		if !errors.Is(fe, ErrInvalidValue) {
			t.Errorf("field error %v should wrap ErrInvalidValue", fe)
		}
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	want := DefaultConfig()
	want.Tenants = TenantList{"honda", "toyota"}
	want.Ignore = []string{"**/*.spec.ts"}

	dir := t.TempDir()
	writeFile(t, dir, "variantc.cue", GenerateCUE(want))

	got, err := load(t, LoadOptions{ProjectDir: dir})
	if err != nil {
		t.Fatalf("Load() of generated CUE: %v", err)
	}
	got.Source = ""
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalTOML(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Tenants = TenantList{"honda"}
	out, err := MarshalTOML(cfg)
	if err != nil {
		t.Fatalf("MarshalTOML() error: %v", err)
	}
	for _, want := range []string{"tenants = ['honda']", "clientAppPath = './src/app'", "[watch]"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("TOML output missing %q:\n%s", want, out)
		}
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p, err := CreateDefaultConfig(dir, []string{"honda"}, false)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}
	if p != ProjectConfigPath(dir) {
		t.Errorf("path = %q, want %q", p, ProjectConfigPath(dir))
	}
	if _, err := CreateDefaultConfig(dir, nil, false); !errors.Is(err, fs.ErrExist) {
		t.Errorf("second call error = %v, want fs.ErrExist", err)
	}
	if _, err := CreateDefaultConfig(dir, []string{"kia"}, true); err != nil {
		t.Errorf("overwrite error: %v", err)
	}
}
