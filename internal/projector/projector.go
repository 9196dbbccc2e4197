// SPDX-License-Identifier: MPL-2.0

// Package projector turns a resolution into a tsconfig file: the module
// aliases become compilerOptions.paths and the excluded files join the
// exclude list. The result is an RFC 7386 merge patch applied to the base
// tsconfig, so every other setting of the base survives.
package projector

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/goccy/go-json"

	"github.com/variantc/variantc/pkg/overlay"
)

// DefaultSeparator replaces '/' in path keys when none is configured.
const DefaultSeparator = "_"

// ErrInvalidBase is returned when the base tsconfig is not a JSON object.
var ErrInvalidBase = errors.New("base tsconfig is not a JSON object")

// Options carries the project layout settings a projection needs. Paths are
// as configured, "./" prefixes included.
type Options struct {
	Profile        Profile
	ClientAppPath  string
	AliasSeparator string
	MainPath       string
	MainAotPath    string
	AotPath        string
}

// AliasKey derives the compilerOptions.paths key of alias: the client app
// prefix is removed, then every '/' is replaced by sep.
func AliasKey(alias overlay.ModuleAlias, clientAppPath, sep string) string {
	s := string(alias)
	if root := cleanDir(clientAppPath); root != "." {
		if s == root {
			s = ""
		} else if strings.HasPrefix(s, root+"/") {
			s = s[len(root):]
		}
	}
	s = strings.TrimPrefix(s, "/")
	if sep == "" {
		sep = DefaultSeparator
	}
	return strings.ReplaceAll(s, "/", sep)
}

// Paths builds the compilerOptions.paths value of res.
func Paths(res *overlay.Resolution, opts Options) map[string][]string {
	paths := make(map[string][]string, len(res.Aliases))
	for _, alias := range res.Aliases.Aliases() {
		key := AliasKey(alias, opts.ClientAppPath, opts.AliasSeparator)
		paths[key] = []string{string(res.Aliases[alias])}
	}
	return paths
}

// Excludes builds the exclude list for the profile.
func Excludes(res *overlay.Resolution, opts Options) []string {
	excluded := res.Excluded.Sorted()
	out := make([]string, 0, len(excluded)+3)
	if opts.Profile == Production {
		for _, p := range excluded {
			out = append(out, string(p))
		}
		if opts.MainPath != "" {
			out = append(out, strings.TrimPrefix(opts.MainPath, "./"))
		}
		return append(out, "node_modules")
	}

	out = append(out, "node_modules")
	for _, p := range []string{opts.MainAotPath, opts.AotPath} {
		if p != "" {
			out = append(out, strings.TrimPrefix(p, "./"))
		}
	}
	for _, p := range excluded {
		out = append(out, string(p))
	}
	return out
}

// Patch returns the merge patches that turn the base tsconfig into the
// projected one. The first patch clears the values replaced wholesale.
func Patch(res *overlay.Resolution, opts Options) (reset, fragment map[string]any) {
	reset = map[string]any{"compilerOptions": map[string]any{"paths": nil}}
	compilerOptions := map[string]any{"paths": Paths(res, opts)}
	fragment = map[string]any{
		"compilerOptions": compilerOptions,
		"exclude":         Excludes(res, opts),
	}

	if opts.Profile == Production {
		reset["angularCompilerOptions"] = nil
		compilerOptions["sourceMap"] = false
		compilerOptions["suppressImplicitAnyIndexErrors"] = true
		compilerOptions["typeRoots"] = nil
		fragment["awesomeTypescriptLoaderOptions"] = nil
		fragment["angularCompilerOptions"] = map[string]any{
			"genDir":           opts.AotPath,
			"entryModule":      opts.ClientAppPath + "/app.module#AppModule",
			"skipMetadataEmit": true,
		}
	}
	return reset, fragment
}

// Project applies the projection of res to base and returns the indented
// result.
func Project(base []byte, res *overlay.Resolution, opts Options) ([]byte, error) {
	var probe map[string]any
	if err := json.Unmarshal(base, &probe); err != nil || probe == nil {
		if err == nil {
			err = errors.New("document is null")
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidBase, err)
	}

	reset, fragment := Patch(res, opts)
	doc := base
	for _, patch := range []map[string]any{reset, fragment} {
		raw, err := json.Marshal(patch)
		if err != nil {
			return nil, fmt.Errorf("encode tsconfig patch: %w", err)
		}
		if doc, err = jsonpatch.MergePatch(doc, raw); err != nil {
			return nil, fmt.Errorf("apply tsconfig patch: %w", err)
		}
	}

	var out bytes.Buffer
	if err := json.Indent(&out, doc, "", "  "); err != nil {
		return nil, fmt.Errorf("format tsconfig: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// WriteFile replaces name with data atomically: the content goes to a
// temporary file in the same directory which is then renamed over name.
func WriteFile(name string, data []byte) (err error) {
	dir := filepath.Dir(name)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name()) // best-effort cleanup
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("rename to %s: %w", name, err)
	}
	return nil
}

func cleanDir(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}
