// SPDX-License-Identifier: MPL-2.0

// Package variant composes configuration, inventory scanning, override
// resolution and tsconfig projection into the per-tenant build operations
// the CLI exposes.
package variant

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/variantc/variantc/internal/config"
	"github.com/variantc/variantc/internal/inventory"
	"github.com/variantc/variantc/internal/issue"
	"github.com/variantc/variantc/internal/projector"
	"github.com/variantc/variantc/pkg/overlay"
	"github.com/variantc/variantc/pkg/tenant"
)

type (
	// Option configures a Service.
	Option func(*serviceOptions)

	serviceOptions struct {
		fsys fs.FS
		rule *overlay.AliasRule
	}

	// Service runs build-target operations for one project. It is safe for
	// concurrent use.
	Service struct {
		cfg        *config.Config
		projectDir string
		tenants    tenant.Set
		resolver   *overlay.Resolver
		scanner    *inventory.Scanner
	}

	// GenerateResult describes one projected tsconfig.
	GenerateResult struct {
		Tenant     tenant.Tenant
		Profile    projector.Profile
		Output     string
		Content    []byte
		Written    bool
		Resolution *overlay.Resolution
		// MissingGenerics lists generic files selected as fallbacks that do
		// not exist in the project. The compiler will fail to import them.
		MissingGenerics []overlay.FilePath
	}
)

// WithFS scans fsys instead of the project directory on disk.
func WithFS(fsys fs.FS) Option {
	return func(o *serviceOptions) { o.fsys = fsys }
}

// WithAliasRule overrides the configured alias rule.
func WithAliasRule(rule overlay.AliasRule) Option {
	return func(o *serviceOptions) { o.rule = &rule }
}

// New creates a Service for the project rooted at projectDir.
func New(cfg *config.Config, projectDir string, opts ...Option) (*Service, error) {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if projectDir == "" {
		projectDir = "."
	}
	if o.fsys == nil {
		o.fsys = os.DirFS(projectDir)
	}

	tenants, err := cfg.TenantSet()
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load tenant list").
			WithSuggestion("Declare at least one tenant in variantc.cue or package.json").
			WithIssue(issue.TenantSetInvalidId).
			Wrap(err).
			BuildError()
	}

	rule := cfg.Rule()
	if o.rule != nil {
		rule = *o.rule
	}

	scanner, err := inventory.New(o.fsys, inventory.Options{
		Root:           cfg.ClientAppDir(),
		Extension:      cfg.Extension,
		Ignore:         cfg.Ignore,
		IncludeGeneric: cfg.IncludeGeneric,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:        cfg,
		projectDir: projectDir,
		tenants:    tenants,
		resolver:   overlay.NewResolver(tenants, overlay.WithRule(rule), overlay.WithExtension(cfg.Extension)),
		scanner:    scanner,
	}, nil
}

// Tenants returns the configured tenant set.
func (s *Service) Tenants() tenant.Set { return s.tenants }

// Rule returns the alias rule in effect.
func (s *Service) Rule() overlay.AliasRule { return s.resolver.Rule() }

// Patterns returns the per-tenant scan patterns.
func (s *Service) Patterns() []string { return s.scanner.Patterns(s.tenants) }

// ClientAppDir returns the scanned client application directory.
func (s *Service) ClientAppDir() string { return s.scanner.Root() }

// Target resolves a tenant name to its canonical spelling; an empty name
// selects the default tenant.
func (s *Service) Target(name string) (tenant.Tenant, error) {
	if name == "" {
		t, _ := s.tenants.Default()
		return t, nil
	}
	if t, ok := s.tenants.Lookup(name); ok {
		return t, nil
	}
	return "", invalidInput(&overlay.InvalidInputError{
		Fault:  overlay.FaultUnknownTenant,
		Tenant: tenant.Tenant(name),
		Index:  -1,
	})
}

// Inventory scans the project for override files.
func (s *Service) Inventory(ctx context.Context) ([]overlay.FilePath, error) {
	inv, err := s.scanner.Scan(ctx, s.tenants)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, issue.NewErrorContext().
			WithOperation("scan override files").
			WithResource(s.scanner.Root()).
			WithSuggestion("Check clientAppPath in your configuration").
			WithIssue(issue.InventoryInvalidId).
			Wrap(err).
			BuildError()
	}
	return inv, nil
}

// Resolve scans the project and resolves it for target.
func (s *Service) Resolve(ctx context.Context, target tenant.Tenant) (*overlay.Resolution, error) {
	inv, err := s.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	return s.resolve(target, inv)
}

// ResolveAll resolves the project for every tenant, concurrently, sharing
// one inventory scan. Results follow the tenant declaration order.
func (s *Service) ResolveAll(ctx context.Context) ([]*overlay.Resolution, error) {
	inv, err := s.Inventory(ctx)
	if err != nil {
		return nil, err
	}

	tenants := s.tenants.All()
	out := make([]*overlay.Resolution, len(tenants))
	g, ctx := errgroup.WithContext(ctx)
	for i, t := range tenants {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.resolve(t, inv)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) resolve(target tenant.Tenant, inv []overlay.FilePath) (*overlay.Resolution, error) {
	res, err := s.resolver.Resolve(target, inv)
	if err != nil {
		return nil, invalidInput(err)
	}

	slog.Info("resolved overrides",
		"tenant", res.Tenant,
		"modules", len(res.Aliases),
		"overrides", countOverrides(res),
		"excluded", res.Excluded.Len())
	return res, nil
}

// OutputPath returns where the profile's tsconfig is written, relative to
// the project.
func (s *Service) OutputPath(profile projector.Profile) string {
	if profile == projector.Production {
		return s.cfg.TsConfigAotPath
	}
	return s.cfg.TsConfigPath
}

// TenantOutputPath inserts the tenant before the extension of the profile's
// output, e.g. tsconfig-aot.honda.json. Used when every tenant is generated
// at once.
func (s *Service) TenantOutputPath(profile projector.Profile, t tenant.Tenant) string {
	p := s.OutputPath(profile)
	ext := filepath.Ext(p)
	return strings.TrimSuffix(p, ext) + "." + strings.ToLower(string(t)) + ext
}

// Project computes the tsconfig for target without writing it. An empty
// output selects the profile's configured path.
func (s *Service) Project(ctx context.Context, target tenant.Tenant, profile projector.Profile, output string) (*GenerateResult, error) {
	res, err := s.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	return s.project(res, profile, output)
}

// Generate computes the tsconfig for target and writes it atomically.
func (s *Service) Generate(ctx context.Context, target tenant.Tenant, profile projector.Profile, output string) (*GenerateResult, error) {
	result, err := s.Project(ctx, target, profile, output)
	if err != nil {
		return nil, err
	}
	if err := s.write(result); err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateAll writes one tsconfig per tenant, each to its TenantOutputPath.
func (s *Service) GenerateAll(ctx context.Context, profile projector.Profile, dryRun bool) ([]*GenerateResult, error) {
	resolutions, err := s.ResolveAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*GenerateResult, len(resolutions))
	for i, res := range resolutions {
		result, err := s.project(res, profile, s.TenantOutputPath(profile, res.Tenant))
		if err != nil {
			return nil, err
		}
		if !dryRun {
			if err := s.write(result); err != nil {
				return nil, err
			}
		}
		out[i] = result
	}
	return out, nil
}

func (s *Service) project(res *overlay.Resolution, profile projector.Profile, output string) (*GenerateResult, error) {
	base, err := s.readBase()
	if err != nil {
		return nil, err
	}

	content, err := projector.Project(base, res, projector.Options{
		Profile:        profile,
		ClientAppPath:  s.cfg.ClientAppPath,
		AliasSeparator: s.cfg.AliasPathSeparator,
		MainPath:       s.cfg.MainPath,
		MainAotPath:    s.cfg.MainAotPath,
		AotPath:        s.cfg.AotPath,
	})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("project tsconfig").
			WithResource(s.cfg.TsConfigBasePath).
			WithIssue(issue.BaseTsConfigInvalidId).
			Wrap(err).
			BuildError()
	}

	if output == "" {
		output = s.OutputPath(profile)
	}
	result := &GenerateResult{
		Tenant:          res.Tenant,
		Profile:         profile,
		Output:          output,
		Content:         content,
		Resolution:      res,
		MissingGenerics: s.missingGenerics(res),
	}
	level := slog.LevelDebug
	if profile == projector.Production {
		level = slog.LevelInfo
	}
	slog.Log(context.Background(), level, "files excluded from the build", "tenant", res.Tenant, "files", res.Excluded.Sorted())
	slog.Log(context.Background(), level, "files included in the build", "tenant", res.Tenant, "files", res.Selected())

	for _, p := range result.MissingGenerics {
		slog.Warn("generic fallback does not exist", "tenant", res.Tenant, "file", p)
	}
	return result, nil
}

func (s *Service) write(result *GenerateResult) error {
	dest := s.abs(result.Output)
	if err := projector.WriteFile(dest, result.Content); err != nil {
		id := issue.OutputWriteFailedId
		if errors.Is(err, fs.ErrPermission) {
			id = issue.PermissionDeniedId
		}
		return issue.NewErrorContext().
			WithOperation("write tsconfig").
			WithResource(result.Output).
			WithIssue(id).
			Wrap(err).
			BuildError()
	}
	result.Written = true
	slog.Info("tsconfig written", "tenant", result.Tenant, "profile", result.Profile.String(), "path", result.Output)
	return nil
}

// Clean removes the generated tsconfig of every profile, including the
// per-tenant files GenerateAll writes. Missing files are not an error. It
// returns the paths removed.
func (s *Service) Clean() ([]string, error) {
	var removed []string
	for _, p := range s.generatedPaths() {
		err := os.Remove(s.abs(p))
		switch {
		case err == nil:
			removed = append(removed, p)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return removed, issue.WrapWithContext(err, "remove generated tsconfig", p)
		}
	}
	return removed, nil
}

func (s *Service) generatedPaths() []string {
	profiles := []projector.Profile{projector.Development, projector.Production}
	var out []string
	for _, profile := range profiles {
		out = append(out, s.OutputPath(profile))
	}
	for _, profile := range profiles {
		for _, t := range s.tenants.All() {
			out = append(out, s.TenantOutputPath(profile, t))
		}
	}
	return out
}

func (s *Service) readBase() ([]byte, error) {
	p := s.cfg.TsConfigBasePath
	data, err := os.ReadFile(s.abs(p))
	if err != nil {
		id := issue.BaseTsConfigNotFoundId
		if errors.Is(err, fs.ErrPermission) {
			id = issue.PermissionDeniedId
		}
		return nil, issue.NewErrorContext().
			WithOperation("read base tsconfig").
			WithResource(p).
			WithSuggestion("Set tsConfigBasePath to an existing file").
			WithIssue(id).
			Wrap(err).
			BuildError()
	}
	return data, nil
}

func (s *Service) missingGenerics(res *overlay.Resolution) []overlay.FilePath {
	var missing []overlay.FilePath
	for _, run := range res.Runs {
		if !run.IsOverride() && !s.scanner.Exists(run.Selected) {
			missing = append(missing, run.Selected)
		}
	}
	overlay.SortInventory(missing)
	return missing
}

func (s *Service) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.projectDir, filepath.FromSlash(p))
}

// invalidInput attaches catalog guidance to resolver input errors. The
// overlay error stays in the chain for errors.Is(err, overlay.ErrInvalidInput).
func invalidInput(err error) error {
	var inErr *overlay.InvalidInputError
	if !errors.As(err, &inErr) {
		return err
	}
	ctx := issue.NewErrorContext().WithOperation("resolve overrides").Wrap(err)
	switch inErr.Fault {
	case overlay.FaultUnknownTenant:
		ctx.WithIssue(issue.UnknownTenantId).WithSuggestion("Run 'variantc tenants' to list the configured tenants")
	case overlay.FaultEmptyTenantSet:
		ctx.WithIssue(issue.TenantSetInvalidId)
	default:
		ctx.WithIssue(issue.InventoryInvalidId).WithResource(string(inErr.Path))
	}
	return ctx.BuildError()
}

func countOverrides(res *overlay.Resolution) int {
	n := 0
	for _, run := range res.Runs {
		if run.IsOverride() {
			n++
		}
	}
	return n
}

// String formats a result for logs.
func (r *GenerateResult) String() string {
	return fmt.Sprintf("%s/%s -> %s", r.Tenant, r.Profile, r.Output)
}
