// Package classify maps a project-relative path to the category recorded in
// the project map.
package classify

import "strings"

// Type is the category of a scanned file.
type Type string

const (
	Page       Type = "page"
	API        Type = "api"
	Stylesheet Type = "stylesheet"
	Module     Type = "module"
)

// Classify returns the category for a relative POSIX path. Rules are checked
// in order and the first match wins; the prefixes are literal string
// prefixes, not path segments.
func Classify(rel string) Type {
	switch {
	case strings.HasPrefix(rel, "pages"), strings.HasPrefix(rel, "app"):
		return Page
	case strings.HasPrefix(rel, "api"):
		return API
	case strings.HasSuffix(rel, ".css"):
		return Stylesheet
	default:
		return Module
	}
}

// Parsed reports whether files of this category go through the extractor.
func (t Type) Parsed() bool {
	return t != Stylesheet
}
