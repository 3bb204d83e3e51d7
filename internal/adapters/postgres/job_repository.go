package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/domain/repositories"
)

type jobRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewJobRepository returns a repositories.JobRepository backed by Postgres.
func NewJobRepository(db *sql.DB, logger *zap.Logger) repositories.JobRepository {
	return &jobRepository{db: db, logger: logger}
}

func (r *jobRepository) Create(ctx context.Context, job *entities.Job) error {
	cfg, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("marshal job config: %w", err)
	}
	outputs, err := json.Marshal(job.OutputPaths)
	if err != nil {
		return fmt.Errorf("marshal output paths: %w", err)
	}

	query := `
		INSERT INTO jobs (id, session_id, type, status, input_path, config, output_paths, progress, stage, retry_count, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		job.ID, job.SessionID, string(job.Type), string(job.Status), job.InputPath,
		cfg, outputs, job.Progress, job.Stage, job.RetryCount, job.MaxRetries,
	).Scan(&job.CreatedAt)
	if err != nil {
		r.logger.Error("job insert failed", zap.Error(err), zap.String("job_id", job.ID))
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*entities.Job, error) {
	query := `
		SELECT id, session_id, type, status, input_path, config, output_paths, progress, stage,
		       retry_count, max_retries, error_message, error_trace, created_at, started_at, completed_at
		FROM jobs WHERE id = $1
	`
	return r.scanJob(r.db.QueryRowContext(ctx, query, id))
}

func (r *jobRepository) GetStatus(ctx context.Context, id string) (entities.JobStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get job status: %w", err)
	}
	return entities.JobStatus(status), nil
}

func (r *jobRepository) List(ctx context.Context, filters repositories.JobFilters) ([]*entities.Job, error) {
	query := `
		SELECT id, session_id, type, status, input_path, config, output_paths, progress, stage,
		       retry_count, max_retries, error_message, error_trace, created_at, started_at, completed_at
		FROM jobs WHERE 1=1
	`
	args := []interface{}{}
	if filters.SessionID != nil {
		args = append(args, *filters.SessionID)
		query += fmt.Sprintf(" AND session_id = $%d", len(args))
	}
	if filters.Status != nil {
		args = append(args, string(*filters.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.Type != nil {
		args = append(args, string(*filters.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*entities.Job
	for rows.Next() {
		job, err := r.scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimPending is the sole mechanism transitioning PENDING→RUNNING (§4.4.3).
// The UPDATE...SELECT...RETURNING statement is atomic under Postgres' MVCC:
// the inner SELECT's row locks prevent two orchestrators from claiming the
// same row, with no in-memory "reserved" set required.
func (r *jobRepository) ClaimPending(ctx context.Context, n int) ([]*entities.Job, error) {
	query := `
		UPDATE jobs
		SET status = 'RUNNING', started_at = NOW()
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status = 'PENDING'
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, session_id, type, status, input_path, config, output_paths, progress, stage,
		          retry_count, max_retries, error_message, error_trace, created_at, started_at, completed_at
	`
	rows, err := r.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("claim pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*entities.Job
	for rows.Next() {
		job, err := r.scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *jobRepository) UpdateProgress(ctx context.Context, id string, progress int, stage string) (entities.JobStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		`UPDATE jobs SET progress = $1, stage = $2 WHERE id = $3 RETURNING status`,
		progress, stage, id,
	).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("update job progress: %w", err)
	}
	return entities.JobStatus(status), nil
}

// Complete is a no-op when the job's current status is already CANCELLED:
// that terminal state is sticky (§3, §4.4.4).
func (r *jobRepository) Complete(ctx context.Context, id string, outputPaths map[string]string) error {
	outputs, err := json.Marshal(outputPaths)
	if err != nil {
		return fmt.Errorf("marshal output paths: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'COMPLETED', output_paths = $1, progress = 100, completed_at = NOW()
		WHERE id = $2 AND status != 'CANCELLED'
	`, outputs, id)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (r *jobRepository) Fail(ctx context.Context, id string, message, trace string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'FAILED', error_message = $1, error_trace = $2, completed_at = NOW()
		WHERE id = $3 AND status != 'CANCELLED'
	`, message, trace, id)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

func (r *jobRepository) Cancel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'CANCELLED', completed_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'RUNNING')
	`, id)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("cancel job %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (r *jobRepository) Retry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'PENDING', error_message = '', error_trace = '', retry_count = retry_count + 1,
		    started_at = NULL, completed_at = NULL
		WHERE id = $1 AND status = 'FAILED'
	`, id)
	if err != nil {
		return fmt.Errorf("retry job: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("retry job %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// RequeueRunning implements crash recovery (§4.4.5): every RUNNING row is
// moved back to PENDING with retry_count incremented, unless retries are
// already exhausted, in which case it is marked FAILED.
func (r *jobRepository) RequeueRunning(ctx context.Context) (requeued, failed int, err error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'PENDING', retry_count = retry_count + 1, started_at = NULL
		WHERE status = 'RUNNING' AND retry_count < max_retries
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("requeue running jobs: %w", err)
	}
	n, _ := res.RowsAffected()

	res, err = r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'FAILED', error_message = 'max retries exceeded after restart', completed_at = NOW()
		WHERE status = 'RUNNING' AND retry_count >= max_retries
	`)
	if err != nil {
		return int(n), 0, fmt.Errorf("fail exhausted running jobs: %w", err)
	}
	f, _ := res.RowsAffected()

	return int(n), int(f), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *jobRepository) scanJob(row rowScanner) (*entities.Job, error) {
	job, err := r.scanJobRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

func (r *jobRepository) scanJobRow(row rowScanner) (*entities.Job, error) {
	var job entities.Job
	var jobType, status string
	var cfg, outputs []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.SessionID, &jobType, &status, &job.InputPath, &cfg, &outputs,
		&job.Progress, &job.Stage, &job.RetryCount, &job.MaxRetries,
		&job.ErrorMessage, &job.ErrorTrace, &job.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Type = entities.JobType(jobType)
	job.Status = entities.JobStatus(status)
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &job.Config); err != nil {
			return nil, fmt.Errorf("unmarshal job config: %w", err)
		}
	}
	if len(outputs) > 0 {
		if err := json.Unmarshal(outputs, &job.OutputPaths); err != nil {
			return nil, fmt.Errorf("unmarshal output paths: %w", err)
		}
	}
	return &job, nil
}
