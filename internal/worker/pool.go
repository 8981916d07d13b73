package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vytor/quests/internal/logger"
)

// ErrPoolStopped is returned for jobs submitted to, or still queued in, a stopped pool.
var ErrPoolStopped = errors.New("worker pool stopped")

type Job interface {
	Run(context.Context) error
	Name() string
}

type task struct {
	ctx  context.Context
	job  Job
	done chan error
}

// Pool runs jobs on a fixed number of goroutines. Every submitted job reports
// its outcome; callers wait for it.
type Pool struct {
	tasks   chan task
	wg      sync.WaitGroup
	workers int
	queue   int
	cancel  context.CancelFunc
	log     *logger.Logger

	mu      sync.RWMutex
	stopped bool
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	log := logger.Default().WithPrefix("worker-pool")
	log.Debug("creating worker pool with %d workers and queue size %d", workers, queueSize)
	return &Pool{
		tasks:   make(chan task, queueSize),
		workers: workers,
		queue:   queueSize,
		log:     log,
	}
}

func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.log.Info("starting worker pool with %d workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			workerLog := p.log.WithField("worker_id", id)
			workerLog.Debug("worker started")

			for {
				select {
				case <-ctx.Done():
					workerLog.Debug("worker shutting down (context cancelled)")
					return
				case t, ok := <-p.tasks:
					if !ok {
						workerLog.Debug("worker shutting down (queue closed)")
						return
					}
					t.done <- p.run(t)
				}
			}
		}(i + 1)
	}
}

func (p *Pool) run(t task) error {
	jobLog := logger.FromContext(t.ctx).WithField("job", t.job.Name())
	if err := t.ctx.Err(); err != nil {
		jobLog.Debug("skipping job, caller gone: %v", err)
		return err
	}

	jobLog.Debug("starting job")
	start := time.Now()
	err := t.job.Run(logger.NewContext(t.ctx, jobLog))
	if err != nil {
		jobLog.Error("job failed after %v: %v", time.Since(start), err)
	} else {
		jobLog.Debug("job completed in %v", time.Since(start))
	}
	return err
}

// Stop cancels the workers and fails every job still queued with ErrPoolStopped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.log.Info("stopping worker pool")
	if p.cancel != nil {
		p.cancel()
	}
	close(p.tasks)
	p.wg.Wait()
	for t := range p.tasks {
		t.done <- ErrPoolStopped
	}
	p.log.Info("worker pool stopped")
}

// Submit queues job and returns a channel that receives its result once.
func (p *Pool) Submit(ctx context.Context, job Job) <-chan error {
	done := make(chan error, 1)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		done <- ErrPoolStopped
		return done
	}

	p.log.Debug("submitting job: %s", job.Name())
	select {
	case p.tasks <- task{ctx: ctx, job: job, done: done}:
	case <-ctx.Done():
		done <- ctx.Err()
	}
	return done
}

// RunAll submits every job and waits for all of them. The result at index i
// belongs to jobs[i].
func (p *Pool) RunAll(ctx context.Context, jobs []Job) []error {
	pending := make([]<-chan error, len(jobs))
	for i, job := range jobs {
		pending[i] = p.Submit(ctx, job)
	}
	errs := make([]error, len(jobs))
	for i, ch := range pending {
		errs[i] = <-ch
	}
	return errs
}

// QueueSize returns the current number of pending jobs.
func (p *Pool) QueueSize() int {
	return len(p.tasks)
}
