package mapfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMap() ProjectMap {
	m := ProjectMap{}
	m.Add(Entry{Path: "a.ts", Type: "module", Imports: []string{"react:{React}"}, Exports: []string{"a:variable"}})
	m.Add(Entry{Path: "A.ts", Type: "module"})
	m.Add(Entry{Path: "pages/index.tsx", Type: "page", Methods: []string{"Home()"}, State: []string{"n:number"}})
	m.Add(Entry{Path: "styles/x.css", Type: "stylesheet", Imports: []string{}, Exports: []string{}})
	return m
}

func TestSorted_CodePointOrder(t *testing.T) {
	t.Parallel()
	var paths []string
	for _, e := range Sorted(sampleMap()) {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"A.ts", "a.ts", "pages/index.tsx", "styles/x.css"}, paths)
}

func TestProjectMap_AddOverwrites(t *testing.T) {
	t.Parallel()
	m := ProjectMap{}
	m.Add(Entry{Path: "a.ts", Type: "module"})
	m.Add(Entry{Path: "a.ts", Type: "page"})
	require.Len(t, m, 1)
	assert.Equal(t, "page", m["a.ts"].Type)
}

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()
	first, err := Render(sampleMap())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Render(sampleMap())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRender_FieldOrderAndOmission(t *testing.T) {
	t.Parallel()
	m := ProjectMap{}
	m.Add(Entry{
		Path:    "pages/index.tsx",
		Type:    "page",
		Imports: []string{"react:{useState}"},
		Exports: []string{"default:function"},
		Methods: []string{"Home()"},
		State:   []string{"n:number"},
	})
	out, err := Render(m)
	require.NoError(t, err)
	doc := string(out)

	assert.True(t, strings.HasPrefix(doc, "files:\n"))
	assert.NotContains(t, doc, "interfaces:")
	assert.NotContains(t, doc, "props:")
	assert.Contains(t, doc, `purpose: ""`)

	keys := []string{"- path:", "exports:", "imports:", "methods:", "purpose:", "state:", "type:"}
	last := -1
	for _, k := range keys {
		idx := strings.Index(doc, k)
		require.GreaterOrEqual(t, idx, 0, k)
		assert.Greater(t, idx, last, "key %q out of order", k)
		last = idx
	}
}

func TestRender_EmptyListsForRequiredFields(t *testing.T) {
	t.Parallel()
	m := ProjectMap{}
	m.Add(Entry{Path: "x.css", Type: "stylesheet"})
	out, err := Render(m)
	require.NoError(t, err)
	assert.Contains(t, string(out), "exports: []")
	assert.Contains(t, string(out), "imports: []")
}

func TestParse_ReadsRenderedArtifact(t *testing.T) {
	t.Parallel()
	out, err := Render(sampleMap())
	require.NoError(t, err)

	m, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, m, 4)
	assert.Equal(t, []string{"n:number"}, m["pages/index.tsx"].State)
	assert.Equal(t, []string{"react:{React}"}, m["a.ts"].Imports)
}

func TestWrite_CreatesThenSkips(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "project-map.yaml")

	status, err := Write(path, []byte("files: []\n"))
	require.NoError(t, err)
	assert.Equal(t, StatusUpdated, status)

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, old, old))

	status, err = Write(path, []byte("files: []\n"))
	require.NoError(t, err)
	assert.Equal(t, StatusUpToDate, status)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "mtime must be preserved")
}

func TestWrite_ReplacesChangedContent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "project-map.yaml")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	status, err := Write(path, []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, StatusUpdated, status)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWrite_UnwritableDirectory(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "missing", "project-map.yaml")
	_, err := Write(path, []byte("x"))
	require.Error(t, err)
}

func TestStatusString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "updated", StatusUpdated.String())
	assert.Equal(t, "up-to-date", StatusUpToDate.String())
}
