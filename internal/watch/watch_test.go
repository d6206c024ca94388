package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventTimeout = 5 * time.Second

// recorder collects regeneration calls.
type recorder struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Event, 64)}
}

func (r *recorder) regenerate(_ context.Context, ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.ch <- ev
	return nil
}

// waitFor returns the first event for path, failing after eventTimeout.
func (r *recorder) waitFor(t *testing.T, path string) Event {
	t.Helper()
	deadline := time.After(eventTimeout)
	for {
		select {
		case ev := <-r.ch:
			if ev.Path == path {
				return ev
			}
		case <-deadline:
			t.Fatalf("no event for %s", path)
		}
	}
}

func startWatcher(t *testing.T, dir string, rec *recorder, opts ...Option) context.CancelFunc {
	t.Helper()
	w, err := New(dir, rec.regenerate, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-w.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("watcher exited early: %v", err)
	case <-time.After(eventTimeout):
		cancel()
		t.Fatal("watcher not ready")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(eventTimeout):
			t.Error("watcher did not stop")
		}
	})
	return cancel
}

func TestOpString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "add", OpAdd.String())
	assert.Equal(t, "change", OpChange.String())
	assert.Equal(t, "unlink", OpUnlink.String())
	assert.Equal(t, "unknown", Op(42).String())
}

func TestIgnored(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w, err := New(dir, nil, WithSkip(filepath.Join(dir, "map.txt")))
	require.NoError(t, err)

	tests := []struct {
		rel  string
		want bool
	}{
		{"app.ts", false},
		{"components/Button.tsx", false},
		{"styles/site.css", false},
		{".env", true},
		{"components/.cache/x.ts", true},
		{"node_modules/react/index.js", true},
		{"pkg/node_modules/dep/index.ts", true},
		{".next/server.js", true},
		{"dist/app.js", true},
		{"coverage/lcov.info", true},
		{"debug.log", true},
		{"nested/config.yaml", true},
		{"map.txt", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.Ignored(filepath.Join(dir, filepath.FromSlash(tt.rel))), tt.rel)
	}
}

func TestRun_MissingDir(t *testing.T) {
	t.Parallel()
	w, err := New(filepath.Join(t.TempDir(), "missing"), newRecorder().regenerate)
	require.NoError(t, err)
	require.Error(t, w.Run(context.Background()))
}

func TestRun_AddChangeUnlink(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, dir, rec)

	file := filepath.Join(dir, "a.ts")
	require.NoError(t, os.WriteFile(file, []byte("export const a = 1\n"), 0o644))
	ev := rec.waitFor(t, file)
	assert.Contains(t, []Op{OpAdd, OpChange}, ev.Op)

	require.NoError(t, os.Remove(file))
	for {
		ev = rec.waitFor(t, file)
		if ev.Op == OpUnlink {
			break
		}
	}
}

func TestRun_NewDirectoryIsWatched(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, dir, rec)

	sub := filepath.Join(dir, "components")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(200 * time.Millisecond)

	file := filepath.Join(sub, "Button.tsx")
	require.NoError(t, os.WriteFile(file, []byte("export default function Button() {}\n"), 0o644))
	rec.waitFor(t, file)
}

func TestRun_DirectoryMovedInReportsItsFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	staging := t.TempDir()

	feature := filepath.Join(staging, "feature")
	require.NoError(t, os.MkdirAll(filepath.Join(feature, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(feature, "Card.tsx"), []byte("export default function Card() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(feature, "node_modules", "dep.ts"), []byte("export {}\n"), 0o644))

	rec := newRecorder()
	startWatcher(t, dir, rec)

	moved := filepath.Join(dir, "feature")
	require.NoError(t, os.Rename(feature, moved))

	card := filepath.Join(moved, "Card.tsx")
	ev := rec.waitFor(t, card)
	assert.Equal(t, OpAdd, ev.Op)

	// Files created after the move are seen through the new watch.
	later := filepath.Join(moved, "Later.ts")
	require.NoError(t, os.WriteFile(later, []byte("export const later = 1\n"), 0o644))
	rec.waitFor(t, later)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, ev := range rec.events {
		assert.NotContains(t, ev.Path, "node_modules")
	}
}

func TestRun_IgnoredChangesDoNotRegenerate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, dir, rec)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "project-map.yaml"), []byte("files: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("X=1\n"), 0o644))

	sentinel := filepath.Join(dir, "b.ts")
	require.NoError(t, os.WriteFile(sentinel, []byte("export {}\n"), 0o644))
	rec.waitFor(t, sentinel)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, ev := range rec.events {
		assert.Equal(t, sentinel, ev.Path)
	}
}
