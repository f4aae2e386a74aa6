package jobs

import (
	"context"
	"sync"

	"github.com/rafey804/flipfilex-sub000/internal/infra"
)

// Task pairs a job id with the closure that performs its work.
type Task struct {
	JobID string
	Run   func(ctx context.Context)
}

// Pool is a bounded worker pool draining a queue of conversion tasks. The
// pool size caps how many external tools run at once.
type Pool struct {
	queue   chan Task
	workers int
	logger  infra.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewPool builds a pool with the given worker count and queue depth.
func NewPool(workers, depth int, logger infra.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if depth < 1 {
		depth = 1
	}
	return &Pool{
		queue:   make(chan Task, depth),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the workers. Safe to call once.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(ctx, i)
		}
	})
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			p.logger.Debug().Int("worker", id).Str("job_id", task.JobID).Msg("job picked up")
			task.Run(ctx)
		}
	}
}

// Submit enqueues a task. Returns false when the queue is full; the caller
// maps that to resource-exhausted rather than blocking the request handler.
func (p *Pool) Submit(task Task) bool {
	select {
	case p.queue <- task:
		return true
	default:
		return false
	}
}

// Stop cancels the worker context and waits for in-flight tasks to return.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
	})
}
