package media

import (
	"strings"
	"time"
)

// JobStatus is the closed set of states a remote job moves through.
type JobStatus string

const (
	JobSubmitted  JobStatus = "submitted"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ParseJobStatus maps a raw service status onto the closed set. Anything
// not recognized as terminal is treated as still processing.
func ParseJobStatus(raw string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "processing complete":
		return JobCompleted
	case "failed":
		return JobFailed
	case "submitted", "processing_started":
		return JobSubmitted
	default:
		return JobProcessing
	}
}

// Terminal reports whether no further transition can occur.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is one remote operation as observed by the poller.
type Job struct {
	ID          string
	Kind        Kind
	Status      JobStatus
	RawStatus   string
	ArtifactRef string
	Message     string
	Error       string
	Attempts    int
}

// PendingJob records a submitted job whose terminal state has not yet been
// consumed by the session.
type PendingJob struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Params      Params    `json:"params"`
	SubmittedAt time.Time `json:"submitted_at"`
}
