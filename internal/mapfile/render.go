package mapfile

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Indent is the number of spaces per nesting level in the artifact.
const Indent = 2

type document struct {
	Files []Entry `yaml:"files"`
}

// Sorted returns the entries of m ordered by path using byte-wise
// comparison, which for UTF-8 paths is code point order.
func Sorted(m ProjectMap) []Entry {
	out := make([]Entry, 0, len(m))
	for _, e := range m {
		out = append(out, normalize(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// normalize makes the always-present list fields non-nil so that they
// render as [] rather than depending on how the entry was built.
func normalize(e Entry) Entry {
	if e.Imports == nil {
		e.Imports = []string{}
	}
	if e.Exports == nil {
		e.Exports = []string{}
	}
	return e
}

// Render encodes m as the YAML artifact. The same map always yields the same
// bytes.
func Render(m ProjectMap) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(Indent)
	if err := enc.Encode(document{Files: Sorted(m)}); err != nil {
		return nil, fmt.Errorf("encode project map: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode project map: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes an artifact produced by Render.
func Parse(data []byte) (ProjectMap, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode project map: %w", err)
	}
	m := make(ProjectMap, len(doc.Files))
	for _, e := range doc.Files {
		m.Add(e)
	}
	return m, nil
}
