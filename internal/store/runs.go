package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// InsertRun records r and sets its ID.
func (s *Store) InsertRun(r *Run) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO runs (started_at, duration_ms, root, file_count, error_count, outcome, artifact_hash, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		r.StartedAt.UTC(), r.Duration.Milliseconds(), r.Root, r.FileCount, r.ErrorCount, r.Outcome, nullString(r.ArtifactHash), nullString(r.Error),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return id, nil
}

// RecentRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) RecentRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		"SELECT id, started_at, duration_ms, root, file_count, error_count, outcome, artifact_hash, error FROM runs ORDER BY started_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var ms int64
		var hash, msg sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &ms, &r.Root, &r.FileCount, &r.ErrorCount, &r.Outcome, &hash, &msg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		r.ArtifactHash = hash.String
		r.Error = msg.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountRuns returns the number of recorded runs.
func (s *Store) CountRuns() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// ArtifactHash returns the hex SHA-256 of rendered map bytes.
func ArtifactHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
