// Package jobs implements the Job Orchestrator described in §4.4: a
// bounded worker pool that claims PENDING jobs atomically from Postgres,
// dispatches them to registered Processors, debounces progress updates,
// and recovers RUNNING jobs left behind by a crash.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/config"
	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/domain/repositories"
	"github.com/studiobgc/loopforge/internal/errors"
	"github.com/studiobgc/loopforge/internal/eventbus"
)

// ProgressFunc reports fractional completion (0-100) and a short status
// message. A Processor may call it as often as it likes; the Orchestrator
// debounces writes per §4.4.4.
type ProgressFunc func(percent float64, message string)

// Processor executes one job type end to end. Process must honor ctx
// cancellation promptly: the Orchestrator cancels it when a job is
// cancelled through the API (§4.4.6).
type Processor interface {
	Type() entities.JobType
	Process(ctx context.Context, job *entities.Job, progress ProgressFunc) error
}

// Orchestrator owns the claim/dispatch loop and the processor registry.
type Orchestrator struct {
	repo       repositories.JobRepository
	bus        *eventbus.Bus
	bridge     *eventbus.Bridge
	logger     *zap.Logger
	cfg        config.QueueConfig
	processors map[entities.JobType]Processor

	sem chan struct{}

	mu      sync.Mutex
	running map[string]context.CancelFunc

	wg sync.WaitGroup

	metrics *Metrics
}

// New constructs an Orchestrator. Call RegisterProcessor for every job
// type before Run.
func New(repo repositories.JobRepository, bus *eventbus.Bus, bridge *eventbus.Bridge, cfg config.QueueConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		repo:       repo,
		bus:        bus,
		bridge:     bridge,
		logger:     logger,
		cfg:        cfg,
		processors: make(map[entities.JobType]Processor),
		sem:        make(chan struct{}, cfg.MaxWorkers),
		running:    make(map[string]context.CancelFunc),
	}
}

// WithMetrics attaches Prometheus instrumentation. Optional: an
// Orchestrator with no metrics attached behaves identically, just
// unobserved.
func (o *Orchestrator) WithMetrics(m *Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// RegisterProcessor makes p available for jobs of its declared type.
func (o *Orchestrator) RegisterProcessor(p Processor) {
	o.processors[p.Type()] = p
}

// Run recovers crashed RUNNING jobs, then polls for PENDING work until ctx
// is cancelled. It blocks; call it from its own goroutine.
func (o *Orchestrator) Run(ctx context.Context) error {
	requeued, failed, err := o.repo.RequeueRunning(ctx)
	if err != nil {
		return fmt.Errorf("requeue running jobs at startup: %w", err)
	}
	if requeued > 0 || failed > 0 {
		o.logger.Info("recovered jobs left RUNNING by a prior crash",
			zap.Int("requeued", requeued), zap.Int("failed_max_retries", failed))
	}

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.wg.Wait()
			return nil
		case <-ticker.C:
			o.pollOnce(ctx)
		}
	}
}

// pollOnce claims as many jobs as there are free worker slots and
// dispatches each to its own goroutine.
func (o *Orchestrator) pollOnce(ctx context.Context) {
	inUse := len(o.sem)
	slots := cap(o.sem) - inUse
	if slots <= 0 {
		return
	}

	claimed, err := o.repo.ClaimPending(ctx, slots)
	if err != nil {
		o.logger.Error("claim pending jobs failed", zap.Error(err))
		return
	}

	if o.metrics != nil {
		o.metrics.ActiveWorkers.Set(float64(inUse + len(claimed)))
	}

	for _, job := range claimed {
		if o.metrics != nil {
			o.metrics.observeClaim(job.CreatedAt)
		}
		o.sem <- struct{}{}
		o.wg.Add(1)
		go o.dispatch(ctx, job)
	}
}

func (o *Orchestrator) dispatch(parent context.Context, job *entities.Job) {
	defer o.wg.Done()
	defer func() { <-o.sem }()

	jobCtx, cancel := context.WithCancel(parent)
	if o.cfg.ProcessingTimeout > 0 {
		var timeoutCancel context.CancelFunc
		jobCtx, timeoutCancel = context.WithTimeout(jobCtx, o.cfg.ProcessingTimeout)
		defer timeoutCancel()
	}

	o.mu.Lock()
	o.running[job.ID] = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.running, job.ID)
		o.mu.Unlock()
		cancel()
	}()

	o.publish(entities.Event{Type: entities.EventJobStarted, SessionID: job.SessionID, Timestamp: time.Now(),
		Data: map[string]interface{}{"job_id": job.ID, "type": job.Type}})

	processor, ok := o.processors[job.Type]
	if !ok {
		msg := fmt.Sprintf("no processor registered for job type %s", job.Type)
		if err := o.repo.Fail(jobCtx, job.ID, msg, ""); err != nil {
			o.logger.Error("fail job with missing processor", zap.Error(err), zap.String("job_id", job.ID))
		}
		o.publish(entities.Event{Type: entities.EventJobFailed, SessionID: job.SessionID, Timestamp: time.Now(),
			Data: map[string]interface{}{"job_id": job.ID, "reason": msg}})
		return
	}

	debouncer := newProgressDebouncer(o.cfg.ProgressMinInterval, o.cfg.ProgressMinDelta)
	progress := func(percent float64, message string) {
		if !debouncer.allow(percent) {
			return
		}
		status, err := o.repo.UpdateProgress(jobCtx, job.ID, int(percent), message)
		if err != nil {
			o.logger.Warn("update job progress failed", zap.Error(err), zap.String("job_id", job.ID))
			return
		}
		if status == entities.JobStatusCancelled {
			cancel()
			return
		}
		if o.metrics != nil {
			o.metrics.ProgressEvents.Inc()
		}
		o.publish(entities.Event{Type: entities.EventJobProgress, SessionID: job.SessionID, Timestamp: time.Now(),
			Data: map[string]interface{}{"job_id": job.ID, "progress": percent, "message": message}})
	}

	err := processor.Process(jobCtx, job, progress)

	switch {
	case err == nil:
		if completeErr := o.repo.Complete(jobCtx, job.ID, job.OutputPaths); completeErr != nil {
			o.logger.Error("mark job complete failed", zap.Error(completeErr), zap.String("job_id", job.ID))
			return
		}
		if o.metrics != nil {
			o.metrics.JobsCompleted.WithLabelValues(string(job.Type)).Inc()
		}
		o.publish(entities.Event{Type: entities.EventJobCompleted, SessionID: job.SessionID, Timestamp: time.Now(),
			Data: map[string]interface{}{"job_id": job.ID, "output_paths": job.OutputPaths}})

	case jobCtx.Err() == context.Canceled:
		o.publish(entities.Event{Type: entities.EventJobCancelled, SessionID: job.SessionID, Timestamp: time.Now(),
			Data: map[string]interface{}{"job_id": job.ID}})

	default:
		reason := err.Error()
		trace := ""
		if svcErr, ok := errors.AsServiceError(err); ok {
			reason = svcErr.Message
			trace = err.Error()
		}
		if failErr := o.repo.Fail(jobCtx, job.ID, reason, trace); failErr != nil {
			o.logger.Error("mark job failed failed", zap.Error(failErr), zap.String("job_id", job.ID))
		}
		if o.metrics != nil {
			o.metrics.JobsFailed.WithLabelValues(string(job.Type)).Inc()
		}
		o.publish(entities.Event{Type: entities.EventJobFailed, SessionID: job.SessionID, Timestamp: time.Now(),
			Data: map[string]interface{}{"job_id": job.ID, "reason": reason}})
	}
}

// RequestCancel cancels a job in the database and, if it happens to be
// running on this instance, interrupts its context immediately instead of
// waiting for the Processor to notice on its own.
func (o *Orchestrator) RequestCancel(ctx context.Context, jobID string) error {
	if err := o.repo.Cancel(ctx, jobID); err != nil {
		return err
	}

	o.mu.Lock()
	cancel, ok := o.running[jobID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

func (o *Orchestrator) publish(event entities.Event) {
	o.bus.Publish(event)
	if o.bridge != nil {
		if err := o.bridge.Publish(event); err != nil {
			o.logger.Warn("bridge publish failed", zap.Error(err))
		}
	}
}
