// Package project2yaml inventories a TypeScript project and writes a
// deterministic YAML map of every source file's structure.
//
// # Pipeline
//
// A regeneration runs in four steps:
//
//  1. Discover: walk the project root for files matching the include globs,
//     honoring exclude globs, .gitignore and hidden-file rules.
//
//  2. Extract: classify each file by path, parse non-stylesheets with
//     tree-sitter and derive imports, exports and interfaces (facts) plus
//     props, state and methods (heuristics). A file that fails to read or
//     parse becomes an ERROR entry; the scan continues.
//
//  3. Render: sort entries by path and encode them as YAML.
//
//  4. Write: replace the artifact only when its bytes changed.
//
// # Usage
//
//	e, err := project2yaml.New("path/to/project")
//	if err != nil { ... }
//	defer e.Close()
//
//	res, err := e.Generate(ctx)
//	fmt.Println(res.Status) // "updated" or "up-to-date"
//
// [Engine.Scan] returns the map without writing it. [Engine.Watch] reruns
// [Engine.Generate] on every source change.
//
// # Purpose scripts
//
// [WithPurposeScript] names a Risor script evaluated for each entry. It sees
// the globals path, file_type, imports and exports; a string result becomes
// the entry's purpose.
package project2yaml
