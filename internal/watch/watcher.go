// SPDX-License-Identifier: MPL-2.0

// Package watch regenerates a tenant's tsconfig while sources change.
//
// A Watcher monitors the project tree for files matching doublestar patterns
// and invokes a callback after a debounce period. Events within the window
// are coalesced so the callback fires once with every changed path.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces editor write-then-rename sequences into one
// regeneration.
const defaultDebounce = 500 * time.Millisecond

// defaultIgnores are never watched. Generated tsconfig files are not
// listed: they only matter when a pattern names them.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

var (
	// ErrInvalidOptions is the sentinel for rejected watcher options.
	ErrInvalidOptions = errors.New("invalid watch options")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watch: Run called more than once")

	// ErrWatchLimit is wrapped when the platform refuses further watches,
	// usually because a large dependency tree under the project is not ignored.
	ErrWatchLimit = errors.New("watch: platform watch limit reached")
)

type (
	// Options configures a Watcher.
	Options struct {
		// BaseDir is the project directory. Patterns and callback paths are
		// relative to it. Empty means the working directory.
		BaseDir string

		// Patterns select the files whose changes trigger the callback. An
		// empty slice matches every non-ignored file.
		Patterns []string

		// Ignore adds patterns to the built-in ignores.
		Ignore []string

		// Debounce is the quiet period before the callback fires. Zero
		// selects defaultDebounce.
		Debounce time.Duration

		// ClearScreen writes an ANSI clear sequence to Stdout before each
		// callback.
		ClearScreen bool

		// Stdout receives the clear sequence. nil means os.Stdout.
		Stdout io.Writer

		// OnChange receives the deduplicated, sorted changed paths.
		OnChange func(ctx context.Context, changed []string) error
	}

	// InvalidOptionsError lists every rejected option.
	InvalidOptionsError struct {
		FieldErrors []error
	}

	// Watcher fires a debounced callback when matching files change. Run
	// must be called exactly once.
	Watcher struct {
		opts     Options
		fsw      *fsnotify.Watcher
		ignores  []string
		stdout   io.Writer
		debounce time.Duration
		baseDir  string
		started  atomic.Bool
	}
)

// Error implements the error interface.
func (e *InvalidOptionsError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidOptions, strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidOptions for errors.Is() compatibility.
func (e *InvalidOptionsError) Unwrap() error { return ErrInvalidOptions }

// Validate checks the patterns and the debounce.
func (o Options) Validate() error {
	var errs []error
	if o.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce %s is negative", o.Debounce))
	}
	for _, pat := range o.Patterns {
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("invalid watch pattern %q", pat))
		}
	}
	for _, pat := range o.Ignore {
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("invalid ignore pattern %q", pat))
		}
	}
	if len(errs) > 0 {
		return &InvalidOptionsError{FieldErrors: errs}
	}
	return nil
}

// New validates opts and registers every non-ignored directory under
// BaseDir with fsnotify.
func New(opts Options) (*Watcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := opts.Debounce
	if debounce == 0 {
		debounce = defaultDebounce
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	w := &Watcher{
		opts:     opts,
		fsw:      fsw,
		ignores:  slices.Concat(defaultIgnores, opts.Ignore),
		stdout:   stdout,
		debounce: debounce,
		baseDir:  absBase,
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			slog.Warn("watch: close after init failure", "error", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled. It returns nil on
// cancellation and an error when fsnotify fails beyond recovery.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire runs at most one callback at a time. A fire that finds a callback
	// in progress re-arms the timer so pending paths are not lost.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			slog.Warn("watch: previous regeneration still running, retrying")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.opts.ClearScreen {
			fmt.Fprint(w.stdout, "\033[2J\033[H")
		}
		if w.opts.OnChange != nil {
			if err := w.opts.OnChange(ctx, changed); err != nil {
				slog.Error("watch: callback failed", "error", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			slog.Warn("watch: close fsnotify", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}

			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			rel = filepath.ToSlash(rel)

			// new directories extend the recursive watch
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name, rel)
			}
			if w.isIgnored(rel) || !w.matches(rel) {
				continue
			}
			slog.Debug("watch: change", "path", rel, "op", evt.Op.String())

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalWatchError(err) {
				return limitError(err)
			}
			slog.Warn("watch: fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.baseDir, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			slog.Warn("watch: skipping inaccessible path", "path", p, "error", walkErr)
			return nil //nolint:nilerr // unreadable directories are not watched
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.baseDir, p)
		if err != nil {
			return nil //nolint:nilerr // not below the base directory
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && w.isIgnoredDir(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			if isFatalWatchError(err) {
				err = limitError(err)
			}
			return fmt.Errorf("watch: add directory %q: %w", p, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk directory tree: %w", err)
	}
	return nil
}

func (w *Watcher) maybeAddDir(abs, rel string) {
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() || w.isIgnoredDir(rel) {
		return
	}
	if err := w.fsw.Add(abs); err != nil {
		slog.Warn("watch: add new directory", "path", abs, "error", err)
	}
}

func (w *Watcher) isIgnoredDir(rel string) bool {
	return w.isIgnored(rel) || w.isIgnored(rel+"/")
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) matches(rel string) bool {
	return len(w.opts.Patterns) == 0 || matchAny(w.opts.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// limitError wraps a fatal fsnotify error with ErrWatchLimit and the
// platform's remedy.
func limitError(err error) error {
	return fmt.Errorf("%w (%s): %w", ErrWatchLimit, watchLimitHint, err)
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}
