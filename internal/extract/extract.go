// Package extract derives the structural fields of a project-map entry from
// one parsed TypeScript or JavaScript source.
//
// Results are split in two. Facts (imports, exports, interfaces) are read
// directly off declarations in the syntax tree. Heuristics (props, state,
// methods) are pattern matches over function shapes and call-expression
// text; they miss state that is not destructured straight from the hook
// call and can report unrelated calls whose callee merely ends in the hook
// name.
package extract

import (
	"fmt"

	"github.com/jward/project2yaml/internal/parse"
)

// ErrorPrefix starts the single import recorded for a file that could not
// be extracted.
const ErrorPrefix = "ERROR: "

// Facts are the structurally guaranteed fields.
type Facts struct {
	Imports    []string
	Exports    []string
	Interfaces []string
}

// Heuristics are best-effort component details.
type Heuristics struct {
	Props   []string
	State   []string
	Methods []string
}

// Result is everything extracted from one file.
type Result struct {
	Facts
	Heuristics
}

// Failed returns the degraded result recorded for a file whose extraction
// raised err.
func Failed(err error) Result {
	return Result{Facts: Facts{
		Imports: []string{ErrorPrefix + err.Error()},
		Exports: []string{},
	}}
}

// IsFailed reports whether r was produced by Failed.
func (r Result) IsFailed() bool {
	return len(r.Imports) == 1 && len(r.Exports) == 0 &&
		len(r.Imports[0]) >= len(ErrorPrefix) && r.Imports[0][:len(ErrorPrefix)] == ErrorPrefix
}

// Extract walks src and returns its facts and heuristics. A tree containing
// syntax errors, or a panic while walking it, is reported as an error.
func Extract(src *parse.Source) (res Result, err error) {
	if err := src.SyntaxError(); err != nil {
		return Result{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = fmt.Errorf("traverse %s: %v", src.Path, r)
		}
	}()

	f := newFile(src)
	res.Imports = f.imports()
	res.Exports = f.exports()
	res.Interfaces = f.interfaces()
	res.Heuristics = f.heuristics()
	return res, nil
}
