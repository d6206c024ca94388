// Package mapfile renders a project map to its canonical YAML form and writes
// it to disk only when the content changed.
package mapfile

// Entry is the record kept for one scanned file. Field order is the
// serialized key order: path first, the rest alphabetical.
type Entry struct {
	Path       string   `yaml:"path" json:"path"`
	Exports    []string `yaml:"exports" json:"exports"`
	Imports    []string `yaml:"imports" json:"imports"`
	Interfaces []string `yaml:"interfaces,omitempty" json:"interfaces,omitempty"`
	Methods    []string `yaml:"methods,omitempty" json:"methods,omitempty"`
	Props      []string `yaml:"props,omitempty" json:"props,omitempty"`
	Purpose    string   `yaml:"purpose" json:"purpose"`
	State      []string `yaml:"state,omitempty" json:"state,omitempty"`
	Type       string   `yaml:"type" json:"type"`
}

// ProjectMap holds the entries of one scan keyed by Entry.Path.
type ProjectMap map[string]Entry

// Add stores e under its path, replacing any previous entry.
func (m ProjectMap) Add(e Entry) {
	m[e.Path] = e
}
