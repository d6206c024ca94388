package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/project2yaml"
	"github.com/jward/project2yaml/internal/config"
)

// newCLIProject creates a project root with a tsconfig and one source file.
func newCLIProject(t *testing.T, cfgYAML string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte("{}"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.ts"), []byte("export const a = 1\n"), 0o644))
	if cfgYAML != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, config.FileName), []byte(cfgYAML), 0o644))
	}
	return root
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	errorHandled = false
	err := rootCmd.Execute()
	return out.String(), err
}

func TestResolveRoot(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = resolveRoot(filepath.Join(dir, "missing"))
	require.Error(t, err)

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = resolveRoot(file)
	require.Error(t, err)
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("yaml"))
}

func TestFormatRunsText(t *testing.T) {
	var buf bytes.Buffer
	formatRunsText(&buf, nil)
	assert.Equal(t, "No runs recorded.\n", buf.String())

	buf.Reset()
	formatRunsText(&buf, []*project2yaml.Run{
		{ID: 2, StartedAt: time.Now(), Duration: 20 * time.Millisecond, FileCount: 4, Outcome: "failed", Error: "boom"},
		{ID: 1, StartedAt: time.Now(), FileCount: 4, ErrorCount: 1, Outcome: "updated", ArtifactHash: strings.Repeat("ab", 32)},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "failed")
	assert.Contains(t, lines[1], "boom")
	assert.Contains(t, lines[2], "updated")
	assert.Contains(t, lines[2], "abababababab")
}

func TestGenerateCommand(t *testing.T) {
	root := newCLIProject(t, "")
	_, err := execute(t, "generate", "--root", root)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "project-map.yaml"))
}

func TestGenerateCommand_MissingTSConfig(t *testing.T) {
	root := newCLIProject(t, "")
	require.NoError(t, os.Remove(filepath.Join(root, "tsconfig.json")))

	_, err := execute(t, "generate", "--root", root)
	require.ErrorIs(t, err, project2yaml.ErrNoTSConfig)
	assert.NoFileExists(t, filepath.Join(root, "project-map.yaml"))
}

func TestGenerateCommand_InvalidConfig(t *testing.T) {
	root := newCLIProject(t, "include: [\n")
	_, err := execute(t, "generate", "--root", root)
	require.Error(t, err)
}

func TestHistoryCommand_JSON(t *testing.T) {
	root := newCLIProject(t, "history: true\n")
	_, err := execute(t, "generate", "--root", root)
	require.NoError(t, err)
	_, err = execute(t, "generate", "--root", root)
	require.NoError(t, err)

	out, err := execute(t, "history", "--root", root, "--format", "json", "--limit", "5")
	require.NoError(t, err)

	var res HistoryResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "history", res.Command)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "up-to-date", res.Results[0].Outcome)
	assert.Equal(t, "updated", res.Results[1].Outcome)
}

func TestHistoryCommand_Empty(t *testing.T) {
	root := newCLIProject(t, "")
	out, err := execute(t, "history", "--root", root, "--format", "text", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)
	assert.NoDirExists(t, filepath.Join(root, ".project2yaml"), "history must not create the database")
}

func TestHistoryCommand_EmptyJSON(t *testing.T) {
	root := newCLIProject(t, "")
	out, err := execute(t, "history", "--root", root, "--format", "json")
	require.NoError(t, err)

	var res HistoryResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Results)
	assert.NoFileExists(t, filepath.Join(root, config.Default().HistoryPath))
}

func TestHistoryCommand_InvalidFormat(t *testing.T) {
	root := newCLIProject(t, "")
	_, err := execute(t, "history", "--root", root, "--format", "xml")
	require.Error(t, err)
}
