// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/variantc/variantc/pkg/overlay"
	"github.com/variantc/variantc/pkg/tenant"
)

func projectFS() fstest.MapFS {
	file := &fstest.MapFile{Data: []byte("export {};\n")}
	return fstest.MapFS{
		"package.json":                               file,
		"src/main.ts":                                file,
		"src/app/app.module.ts":                      file,
		"src/app/services/cars.service.ts":           file,
		"src/app/services/cars.service.honda.ts":     file,
		"src/app/services/cars.service.toyota.ts":    file,
		"src/app/models/car.model.ts":                file,
		"src/app/brand/logo.HONDA.ts":                file,
		"src/app/brand/logo.toyota.ts":               file,
		"src/app/brand/theme.honda.scss":             file,
		"src/app/node_modules/lib/x.honda.ts":        file,
		"src/app/legacy/old.honda.ts":                file,
		"src/app/legacy/old.ts":                      file,
		"src/other/outside.honda.ts":                 file,
		"src/app/services/cars.service.honda.ts.bak": file,
	}
}

func TestScanner_Scan(t *testing.T) {
	t.Parallel()

	tenants := tenant.MustParseList("honda;toyota")

	tests := []struct {
		name string
		opts Options
		want []overlay.FilePath
	}{
		{
			name: "overrides only",
			opts: Options{Root: "./src/app"},
			want: []overlay.FilePath{
				"src/app/brand/logo.HONDA.ts",
				"src/app/brand/logo.toyota.ts",
				"src/app/legacy/old.honda.ts",
				"src/app/services/cars.service.honda.ts",
				"src/app/services/cars.service.toyota.ts",
			},
		},
		{
			name: "with generic siblings",
			opts: Options{Root: "src/app", IncludeGeneric: true},
			want: []overlay.FilePath{
				"src/app/brand/logo.HONDA.ts",
				"src/app/brand/logo.toyota.ts",
				"src/app/legacy/old.honda.ts",
				"src/app/legacy/old.ts",
				"src/app/services/cars.service.honda.ts",
				"src/app/services/cars.service.toyota.ts",
				"src/app/services/cars.service.ts",
			},
		},
		{
			name: "user ignore",
			opts: Options{Root: "src/app", Ignore: []string{"src/app/legacy/**"}},
			want: []overlay.FilePath{
				"src/app/brand/logo.HONDA.ts",
				"src/app/brand/logo.toyota.ts",
				"src/app/services/cars.service.honda.ts",
				"src/app/services/cars.service.toyota.ts",
			},
		},
		{
			name: "whole project",
			opts: Options{},
			want: []overlay.FilePath{
				"src/app/brand/logo.HONDA.ts",
				"src/app/brand/logo.toyota.ts",
				"src/app/legacy/old.honda.ts",
				"src/app/services/cars.service.honda.ts",
				"src/app/services/cars.service.toyota.ts",
				"src/other/outside.honda.ts",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := New(projectFS(), tt.opts)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			got, err := s.Scan(context.Background(), tenants)
			if err != nil {
				t.Fatalf("Scan() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
			}
			if !overlay.IsSortedInventory(got) {
				t.Errorf("Scan() result is not sorted: %v", got)
			}
		})
	}
}

func TestScanner_FeedsResolver(t *testing.T) {
	t.Parallel()

	tenants := tenant.MustParseList("honda;toyota")
	s, err := New(projectFS(), Options{Root: "src/app", IncludeGeneric: true})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	inv, err := s.Scan(context.Background(), tenants)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	res, err := overlay.Resolve("toyota", inv, tenants)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := map[overlay.ModuleAlias]overlay.FilePath{
		"src/app/brand/logo":            "src/app/brand/logo.toyota.ts",
		"src/app/legacy/old":            "src/app/legacy/old.ts",
		"src/app/services/cars.service": "src/app/services/cars.service.toyota.ts",
	}
	if diff := cmp.Diff(want, map[overlay.ModuleAlias]overlay.FilePath(res.Aliases)); diff != "" {
		t.Errorf("aliases mismatch (-want +got):\n%s", diff)
	}
	if !res.Excluded.Contains("src/app/services/cars.service.ts") {
		t.Error("the generic of an overridden module must be excluded")
	}
}

func TestScanner_Patterns(t *testing.T) {
	t.Parallel()

	s, err := New(projectFS(), Options{Root: "./src/app"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	got := s.Patterns(tenant.MustParseList("honda;toyota"))
	want := []string{"src/app/**/*.honda.ts", "src/app/**/*.toyota.ts"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Patterns() mismatch (-want +got):\n%s", diff)
	}
}

func TestScanner_Errors(t *testing.T) {
	t.Parallel()

	if _, err := New(projectFS(), Options{Ignore: []string{"[broken"}}); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("New() error = %v, want ErrInvalidPattern", err)
	}

	s, err := New(projectFS(), Options{Root: "missing"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := s.Scan(context.Background(), tenant.MustParseList("honda")); err == nil {
		t.Error("Scan() of a missing root should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _ = New(projectFS(), Options{})
	if _, err := s.Scan(ctx, tenant.MustParseList("honda")); !errors.Is(err, context.Canceled) {
		t.Errorf("Scan() with canceled context error = %v, want context.Canceled", err)
	}
}

func TestScanner_Exists(t *testing.T) {
	t.Parallel()

	s, _ := New(projectFS(), Options{})
	if !s.Exists("src/app/services/cars.service.ts") {
		t.Error("Exists() = false for a present file")
	}
	if s.Exists("src/app/services/trucks.service.ts") || s.Exists("src/app") {
		t.Error("Exists() should be false for missing files and directories")
	}
}
