package project2yaml

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/project2yaml/internal/mapfile"
)

// copyFixture copies testdata/<name> into a temp dir so generation never
// writes into the source tree.
func copyFixture(t *testing.T, name string) string {
	t.Helper()
	dst := t.TempDir()
	require.NoError(t, os.CopyFS(dst, os.DirFS(filepath.Join("testdata", name))))
	return dst
}

// TestGolden scans every testdata/<project>/ directory and compares the
// entries with testdata/<project>.golden.json.
func TestGolden(t *testing.T) {
	dirs, err := os.ReadDir("testdata")
	require.NoError(t, err)

	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		name := d.Name()
		goldenPath := filepath.Join("testdata", name+".golden.json")
		if _, err := os.Stat(goldenPath); err != nil {
			continue
		}
		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(goldenPath)
			require.NoError(t, err)
			var want []Entry
			require.NoError(t, json.Unmarshal(data, &want))

			e := newTestEngine(t, copyFixture(t, name))
			m, err := e.Scan(context.Background())
			require.NoError(t, err)

			got := mapfile.Sorted(m)
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i], got[i], want[i].Path)
			}
		})
	}
}

// TestGolden_ArtifactRoundTrip checks that the written artifact decodes back
// to the scanned map and that regenerating it is a no-op.
func TestGolden_ArtifactRoundTrip(t *testing.T) {
	e := newTestEngine(t, copyFixture(t, "nextapp"))
	ctx := context.Background()

	res, err := e.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusUpdated, res.Status)
	assert.Equal(t, 6, res.Files)

	data, err := os.ReadFile(e.Output())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "files:\n"))

	scanned, err := e.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, mapfile.Sorted(scanned), mapfile.Sorted(readMap(t, e)))

	res, err = e.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusUpToDate, res.Status)
}
