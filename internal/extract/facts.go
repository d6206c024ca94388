package extract

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/project2yaml/internal/parse"
)

// Declaration kinds recorded in exports.
const (
	KindVariable  = "variable"
	KindFunction  = "function"
	KindClass     = "class"
	KindInterface = "interface"
	KindType      = "type"
	KindEnum      = "enum"
	KindUnknown   = "unknown"
)

// binding is one name introduced by a declaration.
type binding struct {
	name string
	kind string
}

// file holds per-source state shared by the fact and heuristic passes.
type file struct {
	src        *parse.Source
	statements []*sitter.Node

	// decls maps a top-level name to the kind of its first declaration.
	decls map[string]string

	// localExports holds local names exported through `export { a }` or
	// `export default a`.
	localExports map[string]bool
}

func newFile(src *parse.Source) *file {
	f := &file{
		src:          src,
		statements:   namedChildren(src.Root()),
		decls:        make(map[string]string),
		localExports: make(map[string]bool),
	}
	for _, stmt := range f.statements {
		decl := stmt
		if stmt.Type() == "export_statement" {
			decl = stmt.ChildByFieldName("declaration")
			f.collectLocalExports(stmt)
		}
		for _, b := range f.bindings(decl) {
			if _, ok := f.decls[b.name]; !ok {
				f.decls[b.name] = b.kind
			}
		}
	}
	return f
}

func (f *file) text(n *sitter.Node) string {
	return f.src.Text(n)
}

func (f *file) collectLocalExports(stmt *sitter.Node) {
	if stmt.ChildByFieldName("source") != nil {
		return
	}
	if clause := childOfType(stmt, "export_clause"); clause != nil {
		for _, spec := range namedChildren(clause) {
			if name := spec.ChildByFieldName("name"); name != nil {
				f.localExports[f.text(name)] = true
			}
		}
	}
	if v := stmt.ChildByFieldName("value"); v != nil && v.Type() == "identifier" {
		f.localExports[f.text(v)] = true
	}
}

// unwrapAmbient returns the declaration inside `declare ...`.
func unwrapAmbient(n *sitter.Node) *sitter.Node {
	if n == nil || n.Type() != "ambient_declaration" {
		return n
	}
	if cs := namedChildren(n); len(cs) > 0 {
		return cs[0]
	}
	return nil
}

// bindings returns the names a top-level declaration introduces, in order.
func (f *file) bindings(decl *sitter.Node) []binding {
	decl = unwrapAmbient(decl)
	if decl == nil {
		return nil
	}
	named := func(kind string) []binding {
		if name := decl.ChildByFieldName("name"); name != nil {
			return []binding{{f.text(name), kind}}
		}
		return nil
	}
	switch decl.Type() {
	case "function_declaration", "generator_function_declaration", "function_signature":
		return named(KindFunction)
	case "class_declaration", "abstract_class_declaration":
		return named(KindClass)
	case "interface_declaration":
		return named(KindInterface)
	case "type_alias_declaration":
		return named(KindType)
	case "enum_declaration":
		return named(KindEnum)
	case "module", "internal_module":
		return named(KindUnknown)
	case "lexical_declaration", "variable_declaration":
		var out []binding
		for _, d := range namedChildren(decl) {
			if d.Type() != "variable_declarator" {
				continue
			}
			name := d.ChildByFieldName("name")
			if name == nil {
				continue
			}
			if name.Type() == "identifier" {
				out = append(out, binding{f.text(name), KindVariable})
				continue
			}
			// Destructured exports are binding elements, not variable
			// declarations.
			for _, id := range f.patternIdentifiers(name) {
				out = append(out, binding{id, KindUnknown})
			}
		}
		return out
	}
	return nil
}

// patternIdentifiers returns the names bound by a destructuring pattern.
func (f *file) patternIdentifiers(n *sitter.Node) []string {
	var out []string
	var visit func(*sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "identifier", "shorthand_property_identifier_pattern":
			out = append(out, f.text(n))
			return
		case "assignment_pattern", "object_assignment_pattern":
			visit(n.ChildByFieldName("left"))
			return
		case "pair_pattern":
			visit(n.ChildByFieldName("value"))
			return
		}
		for _, c := range namedChildren(n) {
			visit(c)
		}
	}
	visit(n)
	return out
}

// imports groups import bindings by module specifier in first-encounter
// order.
func (f *file) imports() []string {
	var order []string
	groups := make(map[string]*orderedSet)

	for _, stmt := range f.statements {
		if stmt.Type() != "import_statement" {
			continue
		}
		source := stmt.ChildByFieldName("source")
		if source == nil {
			continue // import x = require(...)
		}
		mod := unquote(f.text(source))
		set, ok := groups[mod]
		if !ok {
			set = newOrderedSet()
			groups[mod] = set
			order = append(order, mod)
		}

		clause := childOfType(stmt, "import_clause")
		for _, c := range namedChildren(clause) {
			switch c.Type() {
			case "identifier":
				set.add(f.text(c))
			case "namespace_import":
				if id := childOfType(c, "identifier"); id != nil {
					set.add("* as " + f.text(id))
				}
			case "named_imports":
				for _, spec := range namedChildren(c) {
					if spec.Type() == "import_specifier" {
						set.add(f.specifier(spec))
					}
				}
			}
		}
	}

	out := make([]string, 0, len(order))
	for _, mod := range order {
		set := groups[mod]
		if set.len() == 0 {
			out = append(out, mod)
			continue
		}
		out = append(out, fmt.Sprintf("%s:{%s}", mod, strings.Join(set.items, ",")))
	}
	return out
}

// specifier renders an import or export specifier as "name" or
// "name as alias".
func (f *file) specifier(spec *sitter.Node) string {
	name := unquote(f.text(spec.ChildByFieldName("name")))
	if alias := spec.ChildByFieldName("alias"); alias != nil {
		return name + " as " + unquote(f.text(alias))
	}
	return name
}

// exports returns re-exports followed by local exported names, deduplicated.
func (f *file) exports() []string {
	out := newOrderedSet()

	for _, stmt := range f.statements {
		if stmt.Type() != "export_statement" {
			continue
		}
		source := stmt.ChildByFieldName("source")
		if source == nil {
			continue
		}
		mod := unquote(f.text(source))
		switch {
		case childOfType(stmt, "namespace_export") != nil:
			ns := childOfType(stmt, "namespace_export")
			if id := namedChildren(ns); len(id) > 0 {
				out.add(fmt.Sprintf("* as %s from '%s'", unquote(f.text(id[0])), mod))
			}
		case childOfType(stmt, "export_clause") != nil:
			for _, spec := range namedChildren(childOfType(stmt, "export_clause")) {
				out.add(fmt.Sprintf("%s from '%s'", f.specifier(spec), mod))
			}
		case hasChild(stmt, "*"):
			out.add(fmt.Sprintf("* from '%s'", mod))
		}
	}

	for _, stmt := range f.statements {
		if stmt.Type() != "export_statement" || stmt.ChildByFieldName("source") != nil {
			continue
		}
		for _, b := range f.exportedBindings(stmt) {
			out.add(b.name + ":" + b.kind)
		}
	}
	return out.list()
}

// exportedBindings returns the names a local export statement exports, each
// classified by the first declaration of the name it refers to.
func (f *file) exportedBindings(stmt *sitter.Node) []binding {
	isDefault := hasChild(stmt, "default")

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		bs := f.bindings(decl)
		if isDefault {
			kind := KindUnknown
			if len(bs) > 0 {
				kind = f.decls[bs[0].name]
			}
			return []binding{{"default", kind}}
		}
		out := make([]binding, 0, len(bs))
		for _, b := range bs {
			out = append(out, binding{b.name, f.kindOf(b.name)})
		}
		return out
	}

	if v := stmt.ChildByFieldName("value"); v != nil && isDefault {
		return []binding{{"default", f.valueKind(v)}}
	}

	var out []binding
	if clause := childOfType(stmt, "export_clause"); clause != nil {
		for _, spec := range namedChildren(clause) {
			name := spec.ChildByFieldName("name")
			if name == nil {
				continue
			}
			local := unquote(f.text(name))
			exported := local
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = unquote(f.text(alias))
			}
			out = append(out, binding{exported, f.kindOf(local)})
		}
	}
	return out
}

func (f *file) kindOf(name string) string {
	if kind, ok := f.decls[name]; ok {
		return kind
	}
	return KindUnknown
}

// valueKind classifies the expression of `export default <expr>`.
func (f *file) valueKind(v *sitter.Node) string {
	switch v.Type() {
	case "identifier":
		return f.kindOf(f.text(v))
	case "function", "function_expression", "generator_function":
		return KindFunction
	case "class":
		return KindClass
	}
	return KindUnknown
}

// interfaces returns top-level interface names in declaration order.
func (f *file) interfaces() []string {
	var out []string
	for _, stmt := range f.statements {
		decl := stmt
		if stmt.Type() == "export_statement" {
			decl = stmt.ChildByFieldName("declaration")
		}
		decl = unwrapAmbient(decl)
		if decl == nil || decl.Type() != "interface_declaration" {
			continue
		}
		if name := decl.ChildByFieldName("name"); name != nil && f.text(name) != "" {
			out = append(out, f.text(name))
		}
	}
	return out
}
