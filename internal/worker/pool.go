// Package worker runs queued jobs on a bounded pool of goroutines.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned when the job queue has no capacity. Callers
	// surface it as a retryable condition; the job row stays pending.
	ErrQueueFull = errors.New("job queue full")
	// ErrStopped is returned when the pool is shutting down.
	ErrStopped = errors.New("worker pool stopped")
)

// RunFunc executes one job. It must not panic the pool; job-level failures are
// its own responsibility to record.
type RunFunc func(ctx context.Context, jobID uuid.UUID)

// Pool is a fixed-size worker pool fed by a buffered channel. Enqueue never
// blocks: when the buffer is full the caller gets ErrQueueFull and the job
// stays pending for a later reprocess.
type Pool struct {
	count int
	jobs  chan uuid.UUID
	run   RunFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Pool with count workers and a queue buffer of queueSize.
func New(count, queueSize int, run RunFunc) *Pool {
	if count <= 0 {
		count = 1
	}
	if queueSize <= 0 {
		queueSize = count
	}
	return &Pool{
		count: count,
		jobs:  make(chan uuid.UUID, queueSize),
		run:   run,
	}
}

// Start launches the workers. They exit when ctx is cancelled or Stop closes
// the queue, whichever comes first.
func (p *Pool) Start(ctx context.Context) {
	slog.Info("starting worker pool", "workers", p.count, "queue_size", cap(p.jobs))
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-p.jobs:
			if !ok {
				return
			}
			slog.Debug("worker picked up job", "worker", id, "job_id", jobID)
			p.run(ctx, jobID)
		}
	}
}

// Enqueue hands a job to the pool without blocking.
func (p *Pool) Enqueue(jobID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for the workers to drain it. Safe to call
// more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	slog.Info("worker pool stopped")
}
