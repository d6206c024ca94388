package store

import "time"

// Run outcomes.
const (
	OutcomeUpdated  = "updated"
	OutcomeUpToDate = "up-to-date"
	OutcomeFailed   = "failed"
)

// Run is one recorded regeneration.
type Run struct {
	ID           int64         `json:"id"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Root         string        `json:"root"`
	FileCount    int           `json:"file_count"`
	ErrorCount   int           `json:"error_count"`
	Outcome      string        `json:"outcome"`
	ArtifactHash string        `json:"artifact_hash,omitempty"`
	Error        string        `json:"error,omitempty"`
}
