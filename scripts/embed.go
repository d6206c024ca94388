// Package scripts embeds the built-in Risor purpose scripts.
package scripts

import "embed"

// FS holds purpose/<name>.risor for every built-in script.
//
//go:embed purpose/*.risor
var FS embed.FS

// BuiltinPrefix marks a purpose_script value naming an embedded script,
// as in "builtin:nextjs".
const BuiltinPrefix = "builtin:"

// PurposePath returns the FS path of the built-in purpose script name.
func PurposePath(name string) string {
	return "purpose/" + name + ".risor"
}
