package project2yaml

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/project2yaml/internal/classify"
	"github.com/jward/project2yaml/internal/config"
	"github.com/jward/project2yaml/internal/discover"
	"github.com/jward/project2yaml/internal/extract"
	"github.com/jward/project2yaml/internal/parse"
	"github.com/jward/project2yaml/internal/purpose"
	"github.com/jward/project2yaml/internal/store"
	"github.com/jward/project2yaml/scripts"
)

var (
	// ErrNoTSConfig is returned by Generate when the project has no
	// tsconfig and one is required.
	ErrNoTSConfig = errors.New("project2yaml: tsconfig not found")

	// ErrHistoryDisabled is returned by RecentRuns when no history store is
	// configured.
	ErrHistoryDisabled = errors.New("project2yaml: history is disabled")
)

// DefaultOutput is the artifact file name, relative to the project root.
const DefaultOutput = "project-map.yaml"

// Engine scans one project root and maintains its YAML map.
type Engine struct {
	root      string
	output    string
	include   []string
	exclude   []string
	gitignore bool

	tsconfig        string
	requireTSConfig bool

	cacheSize     int
	purposeScript string
	historyPath   string

	provider  *parse.Provider
	annotator *purpose.Annotator
	history   *store.Store
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithOutput sets the artifact path. Relative paths are resolved against the
// project root.
func WithOutput(path string) Option {
	return func(e *Engine) {
		e.output = path
	}
}

// WithIncludes replaces the include globs.
func WithIncludes(patterns ...string) Option {
	return func(e *Engine) {
		e.include = patterns
	}
}

// WithExcludes replaces the exclude globs.
func WithExcludes(patterns ...string) Option {
	return func(e *Engine) {
		e.exclude = patterns
	}
}

// WithGitignore controls whether the root .gitignore filters discovery.
func WithGitignore(enabled bool) Option {
	return func(e *Engine) {
		e.gitignore = enabled
	}
}

// WithTSConfig sets the tsconfig path checked before each regeneration and
// whether its absence is fatal.
func WithTSConfig(path string, required bool) Option {
	return func(e *Engine) {
		e.tsconfig = path
		e.requireTSConfig = required
	}
}

// WithCacheSize bounds the number of parsed files kept between scans.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// WithPurposeScript loads a Risor script that computes each entry's purpose.
// Relative paths are resolved against the project root; "builtin:<name>"
// selects an embedded script.
func WithPurposeScript(path string) Option {
	return func(e *Engine) {
		e.purposeScript = path
	}
}

// WithHistory records every Generate call in a SQLite database at path.
// Relative paths are resolved against the project root.
func WithHistory(path string) Option {
	return func(e *Engine) {
		e.historyPath = path
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithConfig applies every setting in cfg.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.output = cfg.Output
		e.include = cfg.Include
		e.exclude = cfg.Exclude
		e.gitignore = cfg.Gitignore
		e.tsconfig = cfg.TSConfig
		e.requireTSConfig = cfg.RequireTSConfig
		e.purposeScript = cfg.PurposeScript
		if cfg.History {
			e.historyPath = cfg.HistoryPath
		}
	}
}

// New creates an Engine for the project at root. A purpose script that
// cannot be loaded is an error; a history database that cannot be opened is
// logged and history stays disabled.
func New(root string, opts ...Option) (*Engine, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("project2yaml: resolve root: %w", err)
	}

	def := config.Default()
	e := &Engine{
		root:            absRoot,
		output:          DefaultOutput,
		include:         def.Include,
		exclude:         def.Exclude,
		gitignore:       def.Gitignore,
		tsconfig:        def.TSConfig,
		requireTSConfig: def.RequireTSConfig,
		cacheSize:       parse.DefaultCacheSize,
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.output = config.Resolve(absRoot, e.output)

	e.provider, err = parse.NewProvider(e.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("project2yaml: %w", err)
	}

	if e.purposeScript != "" {
		e.annotator, err = e.loadPurpose()
		if err != nil {
			return nil, fmt.Errorf("project2yaml: %w", err)
		}
	}

	if e.historyPath != "" {
		e.history = e.openHistory(config.Resolve(absRoot, e.historyPath))
	}

	return e, nil
}

// loadPurpose loads the configured purpose script: an embedded one for
// "builtin:<name>", otherwise a file relative to the project root.
func (e *Engine) loadPurpose() (*purpose.Annotator, error) {
	opt := purpose.WithLogger(e.logger.With("component", "purpose"))
	if name, ok := strings.CutPrefix(e.purposeScript, scripts.BuiltinPrefix); ok {
		return purpose.LoadFS(scripts.FS, scripts.PurposePath(name), opt)
	}
	return purpose.Load(e.root, e.purposeScript, opt)
}

func (e *Engine) openHistory(path string) *store.Store {
	log := e.logger.With("component", "history")
	s, err := store.NewStore(path)
	if err != nil {
		log.Warn("history disabled", "path", path, "error", err)
		return nil
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		log.Warn("history disabled", "path", path, "error", err)
		return nil
	}
	return s
}

// Close releases the history database, if any.
func (e *Engine) Close() error {
	if e.history == nil {
		return nil
	}
	return e.history.Close()
}

// Root returns the absolute project root.
func (e *Engine) Root() string {
	return e.root
}

// Output returns the absolute artifact path.
func (e *Engine) Output() string {
	return e.output
}

// Files returns the absolute paths a scan would cover, in lexical order.
func (e *Engine) Files() ([]string, error) {
	paths, err := discover.Files(e.root, discover.Options{
		Include:   e.include,
		Exclude:   e.exclude,
		Skip:      []string{e.output},
		Gitignore: e.gitignore,
	})
	if err != nil {
		return nil, fmt.Errorf("project2yaml: discover: %w", err)
	}
	return paths, nil
}

// Scan builds a fresh ProjectMap from the files currently on disk. Per-file
// failures become ERROR entries; only discovery failures and cancellation
// are returned as errors.
func (e *Engine) Scan(ctx context.Context) (ProjectMap, error) {
	paths, err := e.Files()
	if err != nil {
		return nil, err
	}
	m := make(ProjectMap, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.Add(e.BuildEntry(ctx, p))
	}
	e.logger.Debug("scanned", "component", "scan", "files", len(m))
	return m, nil
}

// BuildEntry classifies and extracts the file at path, which must lie under
// the project root. CSS files are never parsed, whatever their type. It never
// fails: an unreadable or unparsable file yields an entry whose imports hold
// a single ERROR line.
func (e *Engine) BuildEntry(ctx context.Context, path string) Entry {
	rel := e.rel(path)
	typ := classify.Classify(rel)
	entry := Entry{
		Path:    rel,
		Type:    string(typ),
		Imports: []string{},
		Exports: []string{},
	}

	// CSS under pages/ or app/ keeps its page type but has no grammar.
	if typ.Parsed() && !strings.HasSuffix(rel, ".css") {
		res := e.extractFile(ctx, path)
		if res.IsFailed() {
			e.logger.Warn("extraction failed", "component", "scan", "path", rel, "error", strings.TrimPrefix(res.Imports[0], extract.ErrorPrefix))
			entry.Imports = res.Imports
			return entry
		}
		entry.Imports = res.Imports
		entry.Exports = res.Exports
		entry.Interfaces = res.Interfaces
		entry.Props = res.Props
		entry.State = res.State
		entry.Methods = res.Methods
	}

	entry.Purpose = e.annotator.Annotate(ctx, purpose.Input{
		Path:     entry.Path,
		FileType: entry.Type,
		Imports:  entry.Imports,
		Exports:  entry.Exports,
	})
	return entry
}

func (e *Engine) extractFile(ctx context.Context, path string) extract.Result {
	src, err := e.provider.Refresh(ctx, path)
	if err != nil {
		return extract.Failed(err)
	}
	res, err := extract.Extract(src)
	if err != nil {
		return extract.Failed(err)
	}
	return res
}

func (e *Engine) rel(path string) string {
	rel, err := filepath.Rel(e.root, path)
	if err != nil {
		return discover.ToPosix(path)
	}
	return discover.ToPosix(rel)
}

// validate checks the setup errors that abort a regeneration.
func (e *Engine) validate() error {
	info, err := os.Stat(e.root)
	if err != nil {
		return fmt.Errorf("project2yaml: project root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project2yaml: project root %s is not a directory", e.root)
	}
	if e.requireTSConfig {
		ts := config.Resolve(e.root, e.tsconfig)
		if _, err := os.Stat(ts); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrNoTSConfig, ts)
			}
			return fmt.Errorf("project2yaml: tsconfig: %w", err)
		}
	}
	return nil
}
