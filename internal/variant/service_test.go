// SPDX-License-Identifier: MPL-2.0

package variant

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/variantc/variantc/internal/config"
	"github.com/variantc/variantc/internal/issue"
	"github.com/variantc/variantc/internal/projector"
	"github.com/variantc/variantc/pkg/overlay"
	"github.com/variantc/variantc/pkg/tenant"
)

const baseTsConfig = `{
  "compilerOptions": {"baseUrl": ".", "paths": {"stale": ["x"]}},
  "exclude": ["dist"]
}`

// newProject lays out a small two-tenant project and returns a service for it.
func newProject(t *testing.T, opts ...Option) (*Service, string) {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"tsconfig.base.json":                            baseTsConfig,
		"src/app/services/cars.service.ts":              "export class CarsService {}",
		"src/app/services/cars.service.honda.ts":        "export class CarsService {}",
		"src/app/models/car.model.ts":                   "export interface Car {}",
		"src/app/util/only.toyota.ts":                   "export const only = 1;",
		"src/app/node_modules/pkg/ignored.honda.ts":     "",
		"src/app/components/banner.component.honda.ts":  "",
		"src/app/components/banner.component.toyota.ts": "",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Tenants = config.TenantList{"honda", "toyota"}
	cfg.Ignore = []string{"**/node_modules/**"}

	svc, err := New(cfg, dir, opts...)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return svc, dir
}

func TestService_Target(t *testing.T) {
	t.Parallel()

	svc, _ := newProject(t)

	got, err := svc.Target("")
	if err != nil || got != "honda" {
		t.Errorf("Target(\"\") = %q, %v; want honda", got, err)
	}
	got, err = svc.Target("TOYOTA")
	if err != nil || got != "toyota" {
		t.Errorf("Target(TOYOTA) = %q, %v; want toyota", got, err)
	}

	_, err = svc.Target("ford")
	if !errors.Is(err, overlay.ErrInvalidInput) {
		t.Fatalf("Target(ford) error = %v, want ErrInvalidInput", err)
	}
	if id := issue.IssueOf(err); id != issue.UnknownTenantId {
		t.Errorf("IssueOf() = %v, want UnknownTenantId", id)
	}
}

func TestService_Resolve(t *testing.T) {
	t.Parallel()

	svc, _ := newProject(t)
	res, err := svc.Resolve(context.Background(), "honda")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}

	wantAliases := overlay.AliasTable{
		"src/app/components/banner.component": "src/app/components/banner.component.honda.ts",
		"src/app/services/cars.service":       "src/app/services/cars.service.honda.ts",
		"src/app/util/only":                   "src/app/util/only.ts",
	}
	if diff := cmp.Diff(wantAliases, res.Aliases); diff != "" {
		t.Errorf("Aliases mismatch (-want +got):\n%s", diff)
	}

	wantExcluded := []overlay.FilePath{
		"src/app/components/banner.component.toyota.ts",
		"src/app/services/cars.service.ts",
		"src/app/util/only.toyota.ts",
	}
	if diff := cmp.Diff(wantExcluded, res.Excluded.Sorted()); diff != "" {
		t.Errorf("Excluded mismatch (-want +got):\n%s", diff)
	}
}

func TestService_ResolveLegacyRule(t *testing.T) {
	t.Parallel()

	strict, _ := newProject(t)
	legacy, _ := newProject(t, WithAliasRule(overlay.RuleLegacy))
	ctx := context.Background()

	for _, target := range []tenant.Tenant{"honda", "toyota"} {
		want, err := strict.Resolve(ctx, target)
		if err != nil {
			t.Fatalf("strict Resolve(%s) unexpected error: %v", target, err)
		}
		got, err := legacy.Resolve(ctx, target)
		if err != nil {
			t.Fatalf("legacy Resolve(%s) unexpected error: %v", target, err)
		}
		if diff := cmp.Diff(want.Aliases, got.Aliases); diff != "" {
			t.Errorf("%s: Aliases mismatch (-strict +legacy):\n%s", target, diff)
		}
		if diff := cmp.Diff(want.Excluded.Sorted(), got.Excluded.Sorted()); diff != "" {
			t.Errorf("%s: Excluded mismatch (-strict +legacy):\n%s", target, diff)
		}
		for _, sel := range got.Selected() {
			if got.Excluded.Contains(sel) {
				t.Errorf("%s: %s is both selected and excluded", target, sel)
			}
		}
	}

	res, err := legacy.Resolve(ctx, "toyota")
	if err != nil {
		t.Fatal(err)
	}
	if sel := res.Aliases["src/app/services/cars.service"]; sel != "src/app/services/cars.service.ts" {
		t.Errorf("toyota selection for cars.service = %q, want the generic file", sel)
	}
}

func TestService_ResolveAll(t *testing.T) {
	t.Parallel()

	svc, _ := newProject(t)
	all, err := svc.ResolveAll(context.Background())
	if err != nil {
		t.Fatalf("ResolveAll() unexpected error: %v", err)
	}

	var got []tenant.Tenant
	for _, res := range all {
		got = append(got, res.Tenant)
	}
	if diff := cmp.Diff([]tenant.Tenant{"honda", "toyota"}, got); diff != "" {
		t.Errorf("ResolveAll() tenants mismatch (-want +got):\n%s", diff)
	}

	toyota := all[1]
	if sel := toyota.Aliases["src/app/util/only"]; sel != "src/app/util/only.toyota.ts" {
		t.Errorf("toyota selection for util/only = %q", sel)
	}
	// the generic of a partially covered module is excluded once overridden
	if !toyota.Excluded.Contains("src/app/util/only.ts") {
		t.Error("toyota should exclude src/app/util/only.ts")
	}
}

func TestService_ResolveCanceled(t *testing.T) {
	t.Parallel()

	svc, _ := newProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.ResolveAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ResolveAll() error = %v, want context.Canceled", err)
	}
}

func TestService_Generate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		profile     projector.Profile
		wantOutput  string
		wantExclude []string
	}{
		{
			name:       "development",
			profile:    projector.Development,
			wantOutput: "./tsconfig.json",
			wantExclude: []string{
				"node_modules",
				"src/main-aot.ts",
				"aot",
				"src/app/components/banner.component.toyota.ts",
				"src/app/services/cars.service.ts",
				"src/app/util/only.toyota.ts",
			},
		},
		{
			name:       "production",
			profile:    projector.Production,
			wantOutput: "./tsconfig-aot.json",
			wantExclude: []string{
				"src/app/components/banner.component.toyota.ts",
				"src/app/services/cars.service.ts",
				"src/app/util/only.toyota.ts",
				"src/main.ts",
				"node_modules",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, dir := newProject(t)
			result, err := svc.Generate(context.Background(), "", tt.profile, "")
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if result.Output != tt.wantOutput || !result.Written {
				t.Errorf("Generate() output = %q written = %v", result.Output, result.Written)
			}
			if diff := cmp.Diff([]overlay.FilePath{"src/app/util/only.ts"}, result.MissingGenerics); diff != "" {
				t.Errorf("MissingGenerics mismatch (-want +got):\n%s", diff)
			}

			data, err := os.ReadFile(filepath.Join(dir, tt.wantOutput))
			if err != nil {
				t.Fatalf("read output: %v", err)
			}
			var doc struct {
				CompilerOptions struct {
					BaseURL string              `json:"baseUrl"`
					Paths   map[string][]string `json:"paths"`
				} `json:"compilerOptions"`
				Exclude []string `json:"exclude"`
			}
			if err := json.Unmarshal(data, &doc); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}

			if doc.CompilerOptions.BaseURL != "." {
				t.Errorf("baseUrl = %q, want base setting kept", doc.CompilerOptions.BaseURL)
			}
			wantPaths := map[string][]string{
				"components_banner.component": {"src/app/components/banner.component.honda.ts"},
				"services_cars.service":       {"src/app/services/cars.service.honda.ts"},
				"util_only":                   {"src/app/util/only.ts"},
			}
			if diff := cmp.Diff(wantPaths, doc.CompilerOptions.Paths); diff != "" {
				t.Errorf("paths mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantExclude, doc.Exclude); diff != "" {
				t.Errorf("exclude mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestService_ProjectDoesNotWrite(t *testing.T) {
	t.Parallel()

	svc, dir := newProject(t)
	result, err := svc.Project(context.Background(), "toyota", projector.Development, "")
	if err != nil {
		t.Fatalf("Project() unexpected error: %v", err)
	}
	if result.Written || len(result.Content) == 0 {
		t.Errorf("Project() written = %v, content length %d", result.Written, len(result.Content))
	}
	if _, err := os.Stat(filepath.Join(dir, "tsconfig.json")); !os.IsNotExist(err) {
		t.Errorf("Project() created tsconfig.json (stat error %v)", err)
	}
	if len(result.MissingGenerics) != 0 {
		t.Errorf("toyota MissingGenerics = %v, want none", result.MissingGenerics)
	}
}

func TestService_GenerateAll(t *testing.T) {
	t.Parallel()

	svc, dir := newProject(t)
	results, err := svc.GenerateAll(context.Background(), projector.Production, false)
	if err != nil {
		t.Fatalf("GenerateAll() unexpected error: %v", err)
	}

	want := []string{"./tsconfig-aot.honda.json", "./tsconfig-aot.toyota.json"}
	var got []string
	for _, r := range results {
		got = append(got, r.Output)
		if _, err := os.Stat(filepath.Join(dir, r.Output)); err != nil {
			t.Errorf("output %s not written: %v", r.Output, err)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GenerateAll() outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestService_GenerateMissingBase(t *testing.T) {
	t.Parallel()

	svc, dir := newProject(t)
	if err := os.Remove(filepath.Join(dir, "tsconfig.base.json")); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Generate(context.Background(), "honda", projector.Development, "")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Generate() error = %v, want ErrNotExist", err)
	}
	if id := issue.IssueOf(err); id != issue.BaseTsConfigNotFoundId {
		t.Errorf("IssueOf() = %v, want BaseTsConfigNotFoundId", id)
	}
}

func TestService_GenerateInvalidBase(t *testing.T) {
	t.Parallel()

	svc, dir := newProject(t)
	if err := os.WriteFile(filepath.Join(dir, "tsconfig.base.json"), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Generate(context.Background(), "honda", projector.Development, "")
	if !errors.Is(err, projector.ErrInvalidBase) {
		t.Fatalf("Generate() error = %v, want ErrInvalidBase", err)
	}
	if id := issue.IssueOf(err); id != issue.BaseTsConfigInvalidId {
		t.Errorf("IssueOf() = %v, want BaseTsConfigInvalidId", id)
	}
}

func TestService_Clean(t *testing.T) {
	t.Parallel()

	svc, dir := newProject(t)
	ctx := context.Background()
	if _, err := svc.Generate(ctx, "honda", projector.Development, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GenerateAll(ctx, projector.Production, false); err != nil {
		t.Fatal(err)
	}

	removed, err := svc.Clean()
	if err != nil {
		t.Fatalf("Clean() unexpected error: %v", err)
	}
	want := []string{"./tsconfig.json", "./tsconfig-aot.honda.json", "./tsconfig-aot.toyota.json"}
	if diff := cmp.Diff(want, removed); diff != "" {
		t.Errorf("Clean() removed mismatch (-want +got):\n%s", diff)
	}
	for _, p := range want {
		if _, err := os.Stat(filepath.Join(dir, p)); !os.IsNotExist(err) {
			t.Errorf("%s still present (stat error %v)", p, err)
		}
	}

	again, err := svc.Clean()
	if err != nil || len(again) != 0 {
		t.Errorf("second Clean() = %v, %v; want nothing removed", again, err)
	}
}

func TestNew_EmptyTenants(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	_, err := New(cfg, t.TempDir())
	if !errors.Is(err, tenant.ErrInvalidTenantSet) {
		t.Fatalf("New() error = %v, want ErrInvalidTenantSet", err)
	}
	if id := issue.IssueOf(err); id != issue.TenantSetInvalidId {
		t.Errorf("IssueOf() = %v, want TenantSetInvalidId", id)
	}
}

func TestService_TenantOutputPath(t *testing.T) {
	t.Parallel()

	svc, _ := newProject(t)
	if got := svc.TenantOutputPath(projector.Development, "Honda"); got != "./tsconfig.honda.json" {
		t.Errorf("TenantOutputPath() = %q", got)
	}
}

// Not parallel: it swaps the process-wide slog handler.
func TestService_ProjectLogsFileLists(t *testing.T) {
	svc, _ := newProject(t)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		profile projector.Profile
		want    bool
	}{
		{projector.Production, true},
		{projector.Development, false},
	}
	for _, tt := range tests {
		buf.Reset()
		if _, err := svc.Project(context.Background(), "honda", tt.profile, ""); err != nil {
			t.Fatalf("Project(%s) unexpected error: %v", tt.profile, err)
		}
		out := buf.String()
		for _, msg := range []string{"files excluded from the build", "files included in the build"} {
			if got := strings.Contains(out, msg); got != tt.want {
				t.Errorf("%s: logged %q at info = %v, want %v\n%s", tt.profile, msg, got, tt.want, out)
			}
		}
	}
}
