// Package watch reruns a regeneration whenever a watched source tree changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jward/project2yaml/internal/discover"
)

// DefaultIgnore lists paths, relative to the watched directory, whose
// changes never trigger a regeneration. Dotfiles and dot-directories are
// always ignored.
var DefaultIgnore = []string{
	"**/node_modules/**",
	"**/.next/**",
	"**/dist/**",
	"**/coverage/**",
	"**/*.log",
	"**/*.yaml",
}

// Op is the kind of change that triggered a regeneration.
type Op int

const (
	// OpAdd indicates a file was created.
	OpAdd Op = iota

	// OpChange indicates a file was modified.
	OpChange

	// OpUnlink indicates a file was removed or renamed away.
	OpUnlink
)

// String returns the string representation of the operation.
func (op Op) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpChange:
		return "change"
	case OpUnlink:
		return "unlink"
	default:
		return "unknown"
	}
}

// Event is one filesystem change.
type Event struct {
	Op   Op
	Path string
}

// RegenerateFunc performs one full regeneration.
type RegenerateFunc func(ctx context.Context, ev Event) error

// Watcher watches a directory tree and calls a RegenerateFunc once per
// relevant change. Each call runs in its own goroutine; calls are neither
// debounced nor serialized, so the last one to finish determines the
// artifact.
type Watcher struct {
	dir        string
	regenerate RegenerateFunc
	ignore     []string
	skip       map[string]bool
	logger     *slog.Logger
	ready      chan struct{}
	wg         sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithIgnore replaces DefaultIgnore.
func WithIgnore(patterns []string) Option {
	return func(w *Watcher) {
		w.ignore = patterns
	}
}

// WithSkip ignores the given files, typically the generated artifact.
func WithSkip(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			if abs, err := filepath.Abs(p); err == nil {
				w.skip[abs] = true
			}
		}
	}
}

// WithLogger sets the logger for event and error reporting.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// New creates a Watcher for dir.
func New(dir string, regenerate RegenerateFunc, opts ...Option) (*Watcher, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid watch dir: %w", err)
	}
	w := &Watcher{
		dir:        absDir,
		regenerate: regenerate,
		ignore:     DefaultIgnore,
		skip:       make(map[string]bool),
		logger:     slog.New(slog.DiscardHandler),
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watch")
	return w, nil
}

// Dir returns the absolute watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Ready is closed once the initial directory tree is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled, then closes the underlying watcher and
// waits for in-flight regenerations. It returns an error only when watching
// cannot start.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch dir %s: not a directory", w.dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		fw.Close()
		w.wg.Wait()
	}()

	if err := w.addTree(fw, w.dir); err != nil {
		return fmt.Errorf("failed to add watch dirs: %w", err)
	}
	w.logger.Info("ready", "dir", w.dir)
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fw, event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fs-error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fw *fsnotify.Watcher, event fsnotify.Event) {
	if w.Ignored(event.Name) {
		return
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fw, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
			}
			w.addContents(ctx, event.Name)
			return
		}
		op = OpAdd
	case event.Has(fsnotify.Write):
		op = OpChange
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OpUnlink
	default:
		return
	}
	w.dispatch(ctx, Event{Op: op, Path: event.Name})
}

// addContents reports an add for every file already present in a directory
// that appeared after watching started, e.g. one moved or copied in whole.
func (w *Watcher) addContents(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && w.ignoredDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.Ignored(path) {
			w.dispatch(ctx, Event{Op: OpAdd, Path: path})
		}
		return nil
	})
}

// dispatch runs one regeneration for ev in its own goroutine.
func (w *Watcher) dispatch(ctx context.Context, ev Event) {
	w.logger.Info(ev.Op.String(), "path", w.rel(ev.Path))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.regenerate(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("regeneration failed", "path", w.rel(ev.Path), "error", err)
		}
	}()
}

// addTree adds root and every non-ignored directory below it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.dir && w.ignoredDir(path) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

// Ignored reports whether a change to path should be dropped.
func (w *Watcher) Ignored(path string) bool {
	if abs, err := filepath.Abs(path); err == nil && w.skip[abs] {
		return true
	}
	rel := w.rel(path)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return false
	}
	if hasDotSegment(rel) {
		return true
	}
	return discover.Match(w.ignore, rel)
}

func (w *Watcher) ignoredDir(path string) bool {
	rel := w.rel(path)
	return hasDotSegment(rel) || discover.PrunesDir(w.ignore, rel)
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return discover.ToPosix(path)
	}
	return discover.ToPosix(rel)
}

func hasDotSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}
