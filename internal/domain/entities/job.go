package entities

import "time"

// JobType enumerates the registered processor kinds (§4.4.1).
type JobType string

const (
	JobTypeSeparation  JobType = "SEPARATION"
	JobTypeAnalysis    JobType = "ANALYSIS"
	JobTypeSlicing     JobType = "SLICING"
	JobTypeMoments     JobType = "MOMENTS"
	JobTypeStemAnalysis JobType = "STEM_ANALYSIS"
	JobTypePeaks       JobType = "PEAKS"
)

// JobStatus is the closed set of lifecycle states (§3). CANCELLED is
// terminal and sticky: no finalizer may overwrite it.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Job is one unit of background work claimed and run by the orchestrator.
type Job struct {
	ID           string                 `json:"id" db:"id"`
	SessionID    string                 `json:"session_id" db:"session_id"`
	Type         JobType                `json:"type" db:"type"`
	Status       JobStatus              `json:"status" db:"status"`
	InputPath    string                 `json:"input_path" db:"input_path"`
	Config       map[string]interface{} `json:"config" db:"config"`
	OutputPaths  map[string]string      `json:"output_paths" db:"output_paths"`
	Progress     int                    `json:"progress" db:"progress"`
	Stage        string                 `json:"stage" db:"stage"`
	RetryCount   int                    `json:"retry_count" db:"retry_count"`
	MaxRetries   int                    `json:"max_retries" db:"max_retries"`
	ErrorMessage string                 `json:"error_message,omitempty" db:"error_message"`
	ErrorTrace   string                 `json:"error_trace,omitempty" db:"error_trace"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty" db:"completed_at"`
}

// IsTerminal reports whether the job has reached a status from which no
// further transition is legal.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}
