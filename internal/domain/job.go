package domain

import "time"

// JobStatus represents the status of a long-running job.
// Values include JobStatusPending, JobStatusRunning, JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IndexJob records the progress of one index build run.
type IndexJob struct {
	Status       JobStatus  `json:"status"`
	AnalysisPath string     `json:"analysis_path"`
	OutputPath   string     `json:"output_path"`
	IndexedCount int        `json:"indexed_count"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Error        string     `json:"error,omitempty"`
}
