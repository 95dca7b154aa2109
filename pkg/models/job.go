// pkg/models/job.go
package models

import "time"

// JobState is the lifecycle of a queued optimize job
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobDone       JobState = "done"
	JobFailed     JobState = "failed"
)

// OptimizeJob asks a worker to run the pipeline on an uploaded file
type OptimizeJob struct {
	ID         string          `json:"id"`
	SourcePath string          `json:"sourcePath"`
	BaseName   string          `json:"baseName"`
	Options    OptimizeOptions `json:"options"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// JobStatus is what callers poll while a job runs
type JobStatus struct {
	ID        string                `json:"id"`
	State     JobState              `json:"state"`
	BaseName  string                `json:"baseName"`
	Error     string                `json:"error,omitempty"`
	Manifest  *OptimizationManifest `json:"manifest,omitempty"`
	UpdatedAt time.Time             `json:"updatedAt"`
}
