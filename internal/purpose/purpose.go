// Package purpose fills the purpose field of map entries by evaluating a
// user-supplied Risor script against each entry's structural facts.
//
// The script sees the globals path, file_type, imports and exports and its
// final expression is the result. A string result becomes the purpose; any
// other result leaves the purpose empty.
package purpose

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
)

// Input is what a script can see about one file.
type Input struct {
	Path     string
	FileType string
	Imports  []string
	Exports  []string
}

// Annotator evaluates a purpose script. A nil *Annotator annotates nothing.
type Annotator struct {
	source string
	label  string
	logger *slog.Logger
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithLogger routes script log calls and evaluation warnings to l.
func WithLogger(l *slog.Logger) Option {
	return func(a *Annotator) {
		a.logger = l
	}
}

// New creates an Annotator from script source. label names the script in
// errors.
func New(source, label string, opts ...Option) *Annotator {
	a := &Annotator{
		source: source,
		label:  label,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load reads a script from disk. Relative paths are resolved against dir.
func Load(dir, path string, opts ...Option) (*Annotator, error) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(dir, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("purpose: loading script %s: %w", full, err)
	}
	return New(string(data), full, opts...), nil
}

// LoadFS reads a script from fsys.
func LoadFS(fsys fs.FS, path string, opts ...Option) (*Annotator, error) {
	fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
	data, err := fs.ReadFile(fsys, fsPath)
	if err != nil {
		return nil, fmt.Errorf("purpose: loading script %s from fs: %w", fsPath, err)
	}
	return New(string(data), fsPath, opts...), nil
}

// Eval runs the script for in and returns its string result.
func (a *Annotator) Eval(ctx context.Context, in Input) (string, error) {
	if a == nil {
		return "", nil
	}
	var opts []risor.Option
	for name, val := range a.globals(in) {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	result, err := risor.Eval(ctx, a.source, opts...)
	if err != nil {
		return "", fmt.Errorf("purpose: script %s: %w", a.label, err)
	}
	if s, ok := result.(*object.String); ok {
		return strings.TrimSpace(s.Value()), nil
	}
	return "", nil
}

// Annotate is Eval with errors downgraded to a warning and an empty purpose.
func (a *Annotator) Annotate(ctx context.Context, in Input) string {
	if a == nil {
		return ""
	}
	p, err := a.Eval(ctx, in)
	if err != nil {
		a.logger.Warn("purpose script failed", "path", in.Path, "error", err)
		return ""
	}
	return p
}

func (a *Annotator) globals(in Input) map[string]any {
	return map[string]any{
		"path":      object.NewString(in.Path),
		"file_type": object.NewString(in.FileType),
		"imports":   stringList(in.Imports),
		"exports":   stringList(in.Exports),
		"log":       mustProxy(&logObject{logger: a.logger, path: in.Path}),
	}
}

func stringList(ss []string) *object.List {
	items := make([]object.Object, len(ss))
	for i, s := range ss {
		items[i] = object.NewString(s)
	}
	return object.NewList(items)
}

// logObject provides log.Info/Warn methods for scripts.
type logObject struct {
	logger *slog.Logger
	path   string
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, "component", "purpose", "path", l.path)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, "component", "purpose", "path", l.path)
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("purpose: proxy error: %v", err))
	}
	return p
}
