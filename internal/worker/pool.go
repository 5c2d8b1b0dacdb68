package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vytor/cryptogram/internal/logger"
)

// ErrStopped is returned when submitting to a pool that has been stopped.
var ErrStopped = errors.New("worker pool stopped")

type Job interface {
	Run(context.Context) error
	Name() string
}

// Pool runs submitted jobs on a fixed set of workers. With one worker it is
// a write queue: jobs run one at a time in submission order. Workers drain
// every accepted job before Stop returns, so an accepted job always runs.
type Pool struct {
	jobs    chan queued
	wg      sync.WaitGroup
	workers int
	queue   int
	log     *logger.Logger

	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

type queued struct {
	job  Job
	ctx  context.Context
	done chan<- error
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	log := logger.Default().WithPrefix("worker-pool")
	log.Debug("creating worker pool with %d workers and queue size %d", workers, queueSize)
	return &Pool{
		jobs:    make(chan queued, queueSize),
		workers: workers,
		queue:   queueSize,
		log:     log,
	}
}

// Start launches the workers. Cancelling ctx stops the pool as Stop does.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info("starting worker pool with %d workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			workerLog := p.log.WithField("worker_id", id)
			workerLog.Debug("worker started")

			for q := range p.jobs {
				jobLog := workerLog.WithField("job", q.job.Name())
				jobLog.Debug("starting job")
				start := time.Now()

				// Jobs are never interrupted once accepted.
				jobCtx := logger.NewContext(context.WithoutCancel(q.ctx), jobLog)

				err := q.job.Run(jobCtx)
				if err != nil {
					jobLog.Error("job failed after %v: %v", time.Since(start), err)
				} else {
					jobLog.Debug("job completed in %v", time.Since(start))
				}
				q.done <- err
			}
			workerLog.Debug("worker shutting down (queue closed)")
		}(i + 1)
	}

	go func() {
		<-ctx.Done()
		p.log.Debug("pool context cancelled")
		p.close()
	}()
}

func (p *Pool) close() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
	})
}

// Stop refuses new jobs and waits for the queued ones to finish.
func (p *Pool) Stop() {
	p.log.Info("stopping worker pool")
	p.close()
	p.wg.Wait()
	p.log.Info("worker pool stopped")
}

// Do enqueues job and waits for its result. It blocks while the queue is
// full, until ctx is done. Once accepted the job runs to completion even if
// ctx is cancelled, and Do reports its outcome.
func (p *Pool) Do(ctx context.Context, job Job) error {
	done := make(chan error, 1)
	if err := p.enqueue(ctx, queued{job: job, ctx: ctx, done: done}); err != nil {
		return err
	}
	return <-done
}

func (p *Pool) enqueue(ctx context.Context, q queued) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("rejecting job %s: pool stopped", q.job.Name())
		return ErrStopped
	}
	p.log.Debug("submitting job: %s", q.job.Name())
	select {
	case p.jobs <- q:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueSize returns the current number of pending jobs.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// Capacity is the number of jobs the queue holds before Do blocks.
func (p *Pool) Capacity() int {
	return p.queue
}

// Func adapts a function into a Job.
type Func struct {
	JobName string
	Fn      func(context.Context) error
}

func (f Func) Run(ctx context.Context) error { return f.Fn(ctx) }
func (f Func) Name() string                  { return f.JobName }
