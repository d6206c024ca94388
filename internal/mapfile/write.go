package mapfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Status is the outcome of Write.
type Status int

const (
	// StatusUpToDate means the artifact already held the rendered bytes and
	// was not touched.
	StatusUpToDate Status = iota
	// StatusUpdated means the artifact was created or replaced.
	StatusUpdated
)

func (s Status) String() string {
	switch s {
	case StatusUpToDate:
		return "up-to-date"
	case StatusUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Write replaces the file at path with data unless it already holds exactly
// data. The replacement goes through a temp file in the same directory and a
// rename, so readers see either the old or the new artifact in full.
func Write(path string, data []byte) (Status, error) {
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if bytes.Equal(existing, data) {
			return StatusUpToDate, nil
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return StatusUpToDate, fmt.Errorf("read %s: %w", path, err)
	}

	if err := replace(path, data); err != nil {
		return StatusUpToDate, err
	}
	return StatusUpdated, nil
}

func replace(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
