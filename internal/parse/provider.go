// Package parse is the syntax-tree provider: it turns a file path into a
// tree-sitter tree plus the source bytes needed to read node text.
package parse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
)

var (
	// ErrUnsupportedLanguage is returned for files whose extension has no grammar.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrSyntax is returned by Source.SyntaxError when the tree contains
	// error or missing nodes.
	ErrSyntax = errors.New("syntax error")
)

// DefaultCacheSize bounds the number of parsed sources kept between scans.
const DefaultCacheSize = 4096

// Source is one parsed file.
type Source struct {
	Path     string
	Language string
	Content  []byte
	Tree     *sitter.Tree
}

// Root returns the root node of the tree.
func (s *Source) Root() *sitter.Node {
	return s.Tree.RootNode()
}

// Text returns the raw source text spanned by n.
func (s *Source) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(s.Content)
}

// SyntaxError returns an error wrapping ErrSyntax that names the position of
// the first error or missing node, or nil when the tree is clean.
func (s *Source) SyntaxError() error {
	root := s.Root()
	if root == nil || !root.HasError() {
		return nil
	}
	bad := firstErrorNode(root)
	if bad == nil {
		bad = root
	}
	p := bad.StartPoint()
	return fmt.Errorf("%w at %d:%d", ErrSyntax, p.Row+1, p.Column+1)
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if bad := firstErrorNode(child); bad != nil {
			return bad
		}
	}
	return nil
}

// Provider parses files and keeps the results keyed by absolute path. Parse
// trusts the cache; Refresh always reads the file and reuses the cached tree
// only when the bytes are unchanged, so scans skip re-parsing untouched files
// without ever serving stale content.
//
// Provider is safe for concurrent use. Trees are never closed explicitly:
// a source may still be in use by another scan when it is replaced, so tree
// memory is left to the finalizers set by go-tree-sitter.
type Provider struct {
	cache *lru.Cache[string, *Source]
}

// NewProvider creates a Provider holding at most size parsed sources.
func NewProvider(size int) (*Provider, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Source](size)
	if err != nil {
		return nil, fmt.Errorf("parse: create cache: %w", err)
	}
	return &Provider{cache: c}, nil
}

// Parse returns the cached source for path, parsing it from disk on a miss.
func (p *Provider) Parse(ctx context.Context, path string) (*Source, error) {
	key := cacheKey(path)
	if src, ok := p.cache.Get(key); ok {
		return src, nil
	}
	return p.Refresh(ctx, path)
}

// Refresh re-reads path from disk. The cached source is returned when its
// content matches; otherwise the file is parsed and replaces the cached entry.
func (p *Provider) Refresh(ctx context.Context, path string) (*Source, error) {
	key := cacheKey(path)
	content, err := os.ReadFile(path)
	if err != nil {
		p.cache.Remove(key)
		return nil, fmt.Errorf("read file: %w", err)
	}
	if cached, ok := p.cache.Get(key); ok && bytes.Equal(cached.Content, content) {
		return cached, nil
	}
	src, err := ParseBytes(ctx, path, content)
	if err != nil {
		p.cache.Remove(key)
		return nil, err
	}
	p.cache.Add(key, src)
	return src, nil
}

// Forget drops path from the cache.
func (p *Provider) Forget(path string) {
	p.cache.Remove(cacheKey(path))
}

// Len returns the number of cached sources.
func (p *Provider) Len() int {
	return p.cache.Len()
}

// ParseBytes parses content with the grammar selected by path's extension.
// Nothing is cached.
func ParseBytes(ctx context.Context, path string, content []byte) (*Source, error) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, filepath.Ext(path))
	}
	grammar, _ := GrammarForLanguage(lang)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	return &Source{Path: path, Language: lang, Content: content, Tree: tree}, nil
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
