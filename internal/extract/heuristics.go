package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// StateHook is the callee suffix that marks a local state initializer.
const StateHook = "useState"

// propPlaceholder is recorded for every prop; prop types are never resolved.
const propPlaceholder = "unknown"

func (f *file) heuristics() Heuristics {
	props, state, methods := newOrderedSet(), newOrderedSet(), newOrderedSet()

	addFunc := func(name, sig string, exported bool) {
		methods.add(name + "(" + sig + ")")
		if exported {
			for _, p := range propNames(sig) {
				props.add(p + ":" + propPlaceholder)
			}
		}
	}

	// Named top-level function declarations.
	for _, stmt := range f.statements {
		decl, exported := stmt, false
		if stmt.Type() == "export_statement" {
			decl, exported = stmt.ChildByFieldName("declaration"), true
		}
		if decl == nil {
			continue
		}
		switch decl.Type() {
		case "function_declaration", "generator_function_declaration":
		default:
			continue
		}
		name := decl.ChildByFieldName("name")
		if name == nil {
			continue
		}
		n := f.text(name)
		addFunc(n, f.joinedParams(decl.ChildByFieldName("parameters")), exported || f.localExports[n])
	}

	walk(f.src.Root(), func(n *sitter.Node) {
		switch n.Type() {
		case "variable_declarator":
			name, value := n.ChildByFieldName("name"), n.ChildByFieldName("value")
			if name == nil || value == nil || name.Type() != "identifier" || !isFunctionValue(value) {
				return
			}
			id := f.text(name)
			addFunc(id, f.rawParams(value), f.declaratorExported(n, id))
		case "call_expression":
			if s, ok := f.stateOf(n); ok {
				state.add(s)
			}
		}
	})

	var h Heuristics
	if props.len() > 0 {
		h.Props = props.items
	}
	if state.len() > 0 {
		h.State = state.items
	}
	if methods.len() > 0 {
		h.Methods = methods.items
	}
	return h
}

func isFunctionValue(n *sitter.Node) bool {
	switch n.Type() {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}

// declaratorExported reports whether a variable declarator is exported,
// either by its own statement or by a later local export clause.
func (f *file) declaratorExported(d *sitter.Node, name string) bool {
	decl := d.Parent()
	if decl == nil {
		return false
	}
	stmt := decl.Parent()
	if stmt == nil {
		return false
	}
	if stmt.Type() == "export_statement" {
		return true
	}
	return stmt.Type() == "program" && f.localExports[name]
}

// joinedParams joins the literal text of each parameter with ",".
func (f *file) joinedParams(params *sitter.Node) string {
	cs := namedChildren(params)
	texts := make([]string, 0, len(cs))
	for _, c := range cs {
		texts = append(texts, f.text(c))
	}
	return strings.Join(texts, ",")
}

// rawParams returns the literal text between the parentheses of a function
// value's parameter list, or the single bare parameter of `x => ...`.
func (f *file) rawParams(fn *sitter.Node) string {
	if params := fn.ChildByFieldName("parameters"); params != nil {
		t := f.text(params)
		t = strings.TrimPrefix(t, "(")
		t = strings.TrimSuffix(t, ")")
		return strings.TrimSpace(t)
	}
	if p := fn.ChildByFieldName("parameter"); p != nil {
		return f.text(p)
	}
	return ""
}

// propNames turns a parameter list into candidate prop names. Object pattern
// braces are dropped so destructured members become candidates; each
// top-level comma-separated piece contributes the text before its colon.
func propNames(sig string) []string {
	sig = strings.NewReplacer("{", "", "}", "").Replace(sig)
	var out []string
	for _, part := range splitTopLevel(sig, ',') {
		name := splitTopLevel(part, ':')[0]
		if i := strings.IndexByte(name, '='); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSpace(name)
		name = strings.TrimPrefix(name, "...")
		name = strings.TrimSuffix(name, "?")
		if !isIdentifier(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// stateOf matches `const [name, setName] = ...useState<T>(...)` and returns
// "name:T". Calls of any other shape are skipped.
func (f *file) stateOf(call *sitter.Node) (string, bool) {
	callee := call.ChildByFieldName("function")
	if callee == nil || !strings.HasSuffix(f.text(callee), StateHook) {
		return "", false
	}

	var decl *sitter.Node
	for p := call.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "variable_declarator" {
			decl = p
			break
		}
	}
	if decl == nil {
		return "", false
	}
	pattern := decl.ChildByFieldName("name")
	if pattern == nil || pattern.Type() != "array_pattern" {
		return "", false
	}
	name := f.firstElement(pattern)
	if name == "" {
		return "", false
	}

	typ := "unknown"
	if args := call.ChildByFieldName("type_arguments"); args != nil {
		if cs := namedChildren(args); len(cs) > 0 {
			typ = f.text(cs[0])
		}
	}
	return name + ":" + typ, true
}

// firstElement returns the name bound by the first element of an array
// pattern, or "" when the first slot is a hole or not a plain binding.
func (f *file) firstElement(pattern *sitter.Node) string {
	for i := 0; i < int(pattern.ChildCount()); i++ {
		c := pattern.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "[", "comment":
			continue
		case "identifier":
			return f.text(c)
		case "assignment_pattern":
			if left := c.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
				return f.text(left)
			}
		}
		return ""
	}
	return ""
}
