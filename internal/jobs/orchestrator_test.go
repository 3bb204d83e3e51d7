package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/config"
	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/domain/repositories"
	"github.com/studiobgc/loopforge/internal/eventbus"
)

// mockJobRepository is an in-memory stand-in for repositories.JobRepository,
// good enough to exercise the claim/dispatch/finalize paths without Postgres.
type mockJobRepository struct {
	mu   sync.Mutex
	jobs map[string]*entities.Job
}

func newMockJobRepository() *mockJobRepository {
	return &mockJobRepository{jobs: make(map[string]*entities.Job)}
}

func (m *mockJobRepository) put(j *entities.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
}

func (m *mockJobRepository) Create(ctx context.Context, job *entities.Job) error {
	m.put(job)
	return nil
}

func (m *mockJobRepository) GetByID(ctx context.Context, id string) (*entities.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id], nil
}

func (m *mockJobRepository) GetStatus(ctx context.Context, id string) (entities.JobStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return j.Status, nil
	}
	return "", nil
}

func (m *mockJobRepository) List(ctx context.Context, filters repositories.JobFilters) ([]*entities.Job, error) {
	return nil, nil
}

func (m *mockJobRepository) ClaimPending(ctx context.Context, n int) ([]*entities.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var claimed []*entities.Job
	for _, j := range m.jobs {
		if len(claimed) >= n {
			break
		}
		if j.Status == entities.JobStatusPending {
			j.Status = entities.JobStatusRunning
			claimed = append(claimed, j)
		}
	}
	return claimed, nil
}

func (m *mockJobRepository) UpdateProgress(ctx context.Context, id string, progress int, stage string) (entities.JobStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return "", nil
	}
	j.Progress = progress
	j.Stage = stage
	return j.Status, nil
}

func (m *mockJobRepository) Complete(ctx context.Context, id string, outputPaths map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status == entities.JobStatusCancelled {
		return nil
	}
	j.Status = entities.JobStatusCompleted
	j.OutputPaths = outputPaths
	return nil
}

func (m *mockJobRepository) Fail(ctx context.Context, id string, message, trace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status == entities.JobStatusCancelled {
		return nil
	}
	j.Status = entities.JobStatusFailed
	j.ErrorMessage = message
	j.ErrorTrace = trace
	return nil
}

func (m *mockJobRepository) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil
	}
	if j.Status != entities.JobStatusPending && j.Status != entities.JobStatusRunning {
		return nil
	}
	j.Status = entities.JobStatusCancelled
	return nil
}

func (m *mockJobRepository) Retry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != entities.JobStatusFailed {
		return nil
	}
	j.Status = entities.JobStatusPending
	j.RetryCount++
	return nil
}

func (m *mockJobRepository) RequeueRunning(ctx context.Context) (int, int, error) {
	return 0, 0, nil
}

type fakeProcessor struct {
	jobType entities.JobType
	run     func(ctx context.Context, job *entities.Job, progress ProgressFunc) error
}

func (p *fakeProcessor) Type() entities.JobType { return p.jobType }
func (p *fakeProcessor) Process(ctx context.Context, job *entities.Job, progress ProgressFunc) error {
	return p.run(ctx, job, progress)
}

func testConfig() config.QueueConfig {
	return config.QueueConfig{
		MaxWorkers:          2,
		ProcessingTimeout:   time.Second,
		PollInterval:        5 * time.Millisecond,
		RetryMaxAttempts:    3,
		ProgressMinInterval: 0,
		ProgressMinDelta:    0,
	}
}

func TestDispatchCompletesJobOnSuccess(t *testing.T) {
	repo := newMockJobRepository()
	job := &entities.Job{ID: "job1", SessionID: "sess1", Type: entities.JobTypeAnalysis, Status: entities.JobStatusPending}
	repo.put(job)

	bus := eventbus.New(zap.NewNop())
	var completed entities.Event
	bus.Subscribe("sess1", func(e entities.Event) {
		if e.Type == entities.EventJobCompleted {
			completed = e
		}
	})

	o := New(repo, bus, nil, testConfig(), zap.NewNop())
	o.RegisterProcessor(&fakeProcessor{
		jobType: entities.JobTypeAnalysis,
		run: func(ctx context.Context, job *entities.Job, progress ProgressFunc) error {
			progress(50, "halfway")
			job.OutputPaths = map[string]string{"result": "/tmp/out.json"}
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	o.pollOnce(ctx)
	o.wg.Wait()

	if repo.jobs["job1"].Status != entities.JobStatusCompleted {
		t.Fatalf("expected job to complete, got status %s", repo.jobs["job1"].Status)
	}
	if completed.Type != entities.EventJobCompleted {
		t.Error("expected a job.completed event on the bus")
	}
}

func TestDispatchFailsJobOnProcessorError(t *testing.T) {
	repo := newMockJobRepository()
	job := &entities.Job{ID: "job1", SessionID: "sess1", Type: entities.JobTypeAnalysis, Status: entities.JobStatusPending}
	repo.put(job)

	o := New(repo, eventbus.New(zap.NewNop()), nil, testConfig(), zap.NewNop())
	o.RegisterProcessor(&fakeProcessor{
		jobType: entities.JobTypeAnalysis,
		run: func(ctx context.Context, job *entities.Job, progress ProgressFunc) error {
			return context.DeadlineExceeded
		},
	})

	ctx := context.Background()
	o.pollOnce(ctx)
	o.wg.Wait()

	if repo.jobs["job1"].Status != entities.JobStatusFailed {
		t.Fatalf("expected job to fail, got status %s", repo.jobs["job1"].Status)
	}
}

func TestDispatchSkipsJobWithNoRegisteredProcessor(t *testing.T) {
	repo := newMockJobRepository()
	job := &entities.Job{ID: "job1", SessionID: "sess1", Type: entities.JobTypeMoments, Status: entities.JobStatusPending}
	repo.put(job)

	o := New(repo, eventbus.New(zap.NewNop()), nil, testConfig(), zap.NewNop())

	o.pollOnce(context.Background())
	o.wg.Wait()

	if repo.jobs["job1"].Status != entities.JobStatusFailed {
		t.Fatalf("expected job with no processor to fail, got status %s", repo.jobs["job1"].Status)
	}
}

func TestCancelledJobIsNotOverwrittenByLateCompletion(t *testing.T) {
	repo := newMockJobRepository()
	job := &entities.Job{ID: "job1", SessionID: "sess1", Type: entities.JobTypeAnalysis, Status: entities.JobStatusPending}
	repo.put(job)

	release := make(chan struct{})
	o := New(repo, eventbus.New(zap.NewNop()), nil, testConfig(), zap.NewNop())
	o.RegisterProcessor(&fakeProcessor{
		jobType: entities.JobTypeAnalysis,
		run: func(ctx context.Context, job *entities.Job, progress ProgressFunc) error {
			<-release
			return nil
		},
	})

	ctx := context.Background()
	o.pollOnce(ctx)

	if err := o.RequestCancel(ctx, "job1"); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	close(release)
	o.wg.Wait()

	if repo.jobs["job1"].Status != entities.JobStatusCancelled {
		t.Fatalf("expected CANCELLED to stick, got status %s", repo.jobs["job1"].Status)
	}
}

func TestProgressDebouncerAllowsOnlyFirstAndLastInsideWindow(t *testing.T) {
	d := newProgressDebouncer(time.Hour, 10)

	if !d.allow(0) {
		t.Error("first call must always be allowed")
	}
	if d.allow(5) {
		t.Error("small jump within the debounce window should be suppressed")
	}
	if d.allow(20) {
		t.Error("a jump of at least minDelta should still be suppressed inside the window")
	}
	if !d.allow(100) {
		t.Error("100% must always be allowed through")
	}
}
