package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maxvaer/dirgraph/internal/config"
	"github.com/maxvaer/dirgraph/internal/events"
	"github.com/maxvaer/dirgraph/internal/metrics"
)

// ErrUnknownJob is returned for ids that were never issued or were removed.
var ErrUnknownJob = errors.New("unknown job")

// Job is one tracked run.
type Job struct {
	ID      string
	Request config.StartRequest
	Stream  *events.Stream
	Created time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	finished time.Time
}

// Done is closed when the run goroutine has returned.
func (j *Job) Done() <-chan struct{} { return j.done }

// Finished returns when the run ended, if it has.
func (j *Job) Finished() (time.Time, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finished, !j.finished.IsZero()
}

func (j *Job) markFinished(t time.Time) {
	j.mu.Lock()
	j.finished = t
	j.mu.Unlock()
}

// Registry starts runs and owns their cancellation.
type Registry struct {
	pipeline  *Pipeline
	retention time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics

	ctx      context.Context
	shutdown context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]*Job
	removed map[string]time.Time // tombstones, kept for one retention period
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRetention keeps terminated jobs this long before Sweep removes them.
func WithRetention(d time.Duration) RegistryOption {
	return func(r *Registry) { r.retention = d }
}

// WithRegistryLogger sets the logger. The default is slog.Default().
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRegistryMetrics maintains job gauges on m.
func WithRegistryMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry returns an empty registry running jobs through p.
func NewRegistry(p *Pipeline, opts ...RegistryOption) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		pipeline:  p,
		retention: config.DefaultRetention,
		logger:    slog.Default(),
		ctx:       ctx,
		shutdown:  cancel,
		jobs:      make(map[string]*Job),
		removed:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start validates req, registers a job and runs it in the background.
func (r *Registry) Start(req config.StartRequest) (string, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(r.ctx)
	job := &Job{
		ID:      uuid.NewString(),
		Request: req,
		Stream:  events.NewStream(),
		Created: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	r.metrics.JobStarted()
	r.logger.Info("job started", "job_id", job.ID, "target", req.URL)
	go r.run(ctx, job)
	return job.ID, nil
}

func (r *Registry) run(ctx context.Context, job *Job) {
	defer close(job.done)
	defer job.cancel()

	res, err := r.execute(ctx, job)

	outcome := metrics.JobDone
	switch {
	case ctx.Err() != nil:
		job.Stream.Close(events.Canceled())
		outcome = metrics.JobCanceled
	case err != nil:
		if job.Stream.Close(events.Error(err.Error())) {
			outcome = metrics.JobFailed
		} else {
			outcome = metrics.JobCanceled
		}
	default:
		if !job.Stream.Close(events.Done(res)) {
			outcome = metrics.JobCanceled
		}
	}

	job.markFinished(time.Now())
	r.metrics.JobFinished(outcome)
	r.logger.Info("job finished", "job_id", job.ID, "outcome", outcome, "findings", len(res.Findings))
}

// execute runs the pipeline, turning a panic into a run-level error.
func (r *Registry) execute(ctx context.Context, job *Job) (res events.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("pipeline panicked", "job_id", job.ID, "panic", p)
			err = fmt.Errorf("internal error: %v", p)
		}
	}()
	return r.pipeline.Execute(ctx, job.Request, job.Stream)
}

// Get returns the job with id.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

// Cancel stops a job. The stream receives exactly one canceled event, then
// closes. Canceling a job that already ended, or was removed within the
// retention period, is a no-op.
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	job, ok := r.jobs[id]
	_, gone := r.removed[id]
	r.mu.Unlock()
	if !ok {
		if gone {
			return nil
		}
		return ErrUnknownJob
	}
	if job.Stream.Close(events.Canceled()) {
		r.logger.Info("job canceled", "job_id", id)
	}
	job.cancel()
	return nil
}

// Remove forgets a job, canceling it if it is still running.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if ok {
		delete(r.jobs, id)
		r.removed[id] = time.Now()
	}
	r.mu.Unlock()
	if ok {
		job.cancel()
	}
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Sweep removes jobs that terminated more than the retention period before
// now and returns how many were removed. Expired tombstones are dropped too.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, at := range r.removed {
		if now.Sub(at) > r.retention {
			delete(r.removed, id)
		}
	}
	n := 0
	for id, job := range r.jobs {
		if at, ok := job.Finished(); ok && now.Sub(at) > r.retention {
			delete(r.jobs, id)
			r.removed[id] = now
			n++
		}
	}
	return n
}

// Janitor calls Sweep every interval until ctx is done.
func (r *Registry) Janitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := r.Sweep(now); n > 0 {
				r.logger.Debug("expired jobs removed", "count", n)
			}
		}
	}
}

// Shutdown cancels every running job and waits for them to return, or for
// ctx to be done.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.shutdown()

	r.mu.Lock()
	pending := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		pending = append(pending, j)
	}
	r.mu.Unlock()

	for _, j := range pending {
		select {
		case <-j.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
