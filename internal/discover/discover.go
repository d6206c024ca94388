// Package discover lists the source files a scan covers.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultInclude selects TypeScript sources and stylesheets.
var DefaultInclude = []string{"**/*.{ts,tsx,css}"}

// DefaultExclude skips dependency and build output directories.
var DefaultExclude = []string{
	"**/node_modules/**",
	"**/.next/**",
	"**/dist/**",
	"**/build/**",
	"**/coverage/**",
}

// Options controls which files Files returns. Patterns are doublestar globs
// matched against root-relative POSIX paths.
type Options struct {
	Include []string
	Exclude []string

	// Skip lists paths that are never returned, typically the artifact.
	Skip []string

	// Gitignore applies the root .gitignore when true.
	Gitignore bool
}

// Files walks root and returns the absolute paths of matching files in
// lexical order. Hidden files and directories are skipped.
func Files(root string, opts Options) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	skip := make(map[string]bool, len(opts.Skip))
	for _, s := range opts.Skip {
		if abs, err := filepath.Abs(s); err == nil {
			skip[abs] = true
		}
	}

	var gi *ignore.GitIgnore
	if opts.Gitignore {
		gi = LoadGitignore(absRoot)
	}

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == absRoot {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = ToPosix(rel)

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if PrunesDir(opts.Exclude, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if skip[path] || !matchAny(opts.Include, rel) || matchAny(opts.Exclude, rel) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadGitignore compiles root/.gitignore, returning nil when there is none.
func LoadGitignore(root string) *ignore.GitIgnore {
	gitignorePath := filepath.Join(root, ".gitignore")

	if _, err := os.Stat(gitignorePath); err == nil {
		if gitignore, err := ignore.CompileIgnoreFile(gitignorePath); err == nil {
			return gitignore
		}
	}

	return nil
}

// ToPosix converts OS path separators, including backslashes, to "/".
func ToPosix(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), `\`, "/")
}

// Match reports whether rel matches any of patterns.
func Match(patterns []string, rel string) bool {
	return matchAny(patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// PrunesDir reports whether a "<dir>/**" pattern covers the directory rel,
// so a walk can skip it instead of testing every file below it.
func PrunesDir(excludes []string, rel string) bool {
	for _, p := range excludes {
		dirPattern, ok := strings.CutSuffix(p, "/**")
		if !ok {
			continue
		}
		if m, _ := doublestar.Match(dirPattern, rel); m {
			return true
		}
	}
	return false
}
