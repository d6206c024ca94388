package project2yaml

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jward/project2yaml/internal/config"
	"github.com/jward/project2yaml/internal/extract"
	"github.com/jward/project2yaml/internal/mapfile"
	"github.com/jward/project2yaml/internal/store"
	"github.com/jward/project2yaml/internal/watch"
)

// Result summarizes one regeneration.
type Result struct {
	Status   Status
	Files    int
	Errors   int
	Duration time.Duration
	Hash     string
}

// Generate validates the setup, scans the project, renders the map and
// writes it if its content changed. Setup, render and write failures are
// returned; per-file failures only increment Result.Errors.
func (e *Engine) Generate(ctx context.Context) (Result, error) {
	start := time.Now()
	res, err := e.generate(ctx)
	res.Duration = time.Since(start)
	e.record(start, res, err)

	if err != nil {
		return res, err
	}
	e.logger.Info(res.Status.String(),
		"component", "scan",
		"output", e.rel(e.output),
		"files", res.Files,
		"errors", res.Errors,
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}

func (e *Engine) generate(ctx context.Context) (Result, error) {
	if err := e.validate(); err != nil {
		return Result{}, err
	}
	m, err := e.Scan(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{Files: len(m), Errors: countErrors(m)}

	data, err := mapfile.Render(m)
	if err != nil {
		return res, fmt.Errorf("project2yaml: %w", err)
	}
	res.Hash = store.ArtifactHash(data)

	res.Status, err = mapfile.Write(e.output, data)
	if err != nil {
		return res, fmt.Errorf("project2yaml: write %s: %w", e.output, err)
	}
	return res, nil
}

func countErrors(m ProjectMap) int {
	n := 0
	for _, entry := range m {
		if len(entry.Imports) == 1 && strings.HasPrefix(entry.Imports[0], extract.ErrorPrefix) {
			n++
		}
	}
	return n
}

// record appends a run to the history store. Failures are logged only.
func (e *Engine) record(start time.Time, res Result, genErr error) {
	if e.history == nil {
		return
	}
	run := &store.Run{
		StartedAt:  start,
		Duration:   res.Duration,
		Root:       e.root,
		FileCount:  res.Files,
		ErrorCount: res.Errors,
		Outcome:    res.Status.String(),
	}
	if genErr != nil {
		run.Outcome = store.OutcomeFailed
		run.Error = genErr.Error()
	} else {
		run.ArtifactHash = res.Hash
	}
	if _, err := e.history.InsertRun(run); err != nil {
		e.logger.Warn("failed to record run", "component", "history", "error", err)
	}
}

// RecentRuns returns up to limit recorded runs, newest first.
func (e *Engine) RecentRuns(limit int) ([]*Run, error) {
	if e.history == nil {
		return nil, ErrHistoryDisabled
	}
	return e.history.RecentRuns(limit)
}

// Watch regenerates the map on every change under dir until ctx is
// cancelled. A relative dir is resolved against the project root; an empty
// dir means <root>/src. Regenerations run concurrently without
// coordination, so the last one to finish wins.
func (e *Engine) Watch(ctx context.Context, dir string) error {
	if dir == "" {
		dir = config.Default().WatchDir
	}
	dir = config.Resolve(e.root, dir)

	w, err := watch.New(dir, func(ctx context.Context, _ watch.Event) error {
		_, err := e.Generate(ctx)
		return err
	}, watch.WithSkip(e.output), watch.WithLogger(e.logger))
	if err != nil {
		return fmt.Errorf("project2yaml: %w", err)
	}
	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("project2yaml: %w", err)
	}
	return nil
}
