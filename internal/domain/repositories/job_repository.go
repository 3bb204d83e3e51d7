package repositories

import (
	"context"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

// JobFilters narrows a job listing, mirroring how the teacher's
// TrackFilters uses pointer fields for "unset" (internal/domain/repositories
// in the teacher repo).
type JobFilters struct {
	SessionID *string
	Status    *entities.JobStatus
	Type      *entities.JobType
	Limit     int
	Offset    int
}

// JobRepository persists Jobs and provides the single atomic claim
// operation the orchestrator depends on (§4.4.3).
type JobRepository interface {
	Create(ctx context.Context, job *entities.Job) error
	GetByID(ctx context.Context, id string) (*entities.Job, error)
	GetStatus(ctx context.Context, id string) (entities.JobStatus, error)
	List(ctx context.Context, filters JobFilters) ([]*entities.Job, error)

	// ClaimPending atomically transitions up to n PENDING jobs to RUNNING
	// and returns them, ordered by created_at. This is the only legal way
	// to perform a PENDING→RUNNING transition (§4.4.3, §5).
	ClaimPending(ctx context.Context, n int) ([]*entities.Job, error)

	// UpdateProgress writes progress/stage for a RUNNING job. Returns the
	// job's current status so the caller can detect CANCELLED without a
	// second round trip.
	UpdateProgress(ctx context.Context, id string, progress int, stage string) (entities.JobStatus, error)

	// Complete finalizes a job as COMPLETED, unless its current status is
	// already CANCELLED (sticky terminal state, §3, §4.4.4).
	Complete(ctx context.Context, id string, outputPaths map[string]string) error

	// Fail finalizes a job as FAILED, unless its current status is already
	// CANCELLED.
	Fail(ctx context.Context, id string, message, trace string) error

	// Cancel transitions a job to CANCELLED if it is currently PENDING or
	// RUNNING; no-op error otherwise (§4.4.6).
	Cancel(ctx context.Context, id string) error

	// Retry transitions a FAILED job back to PENDING, clearing error
	// fields and incrementing retry_count (§4.4.7).
	Retry(ctx context.Context, id string) error

	// RequeueRunning is used by crash recovery on startup: every RUNNING
	// row is moved to PENDING (retry_count++) or FAILED if retries are
	// exhausted (§4.4.5). Returns the number of jobs touched.
	RequeueRunning(ctx context.Context) (requeued, failed int, err error)
}
