package worker

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"golang.org/x/sync/errgroup"
)

type Task func(ctx context.Context)

// Pool executes submitted tasks on a fixed set of goroutines. Submission is
// best-effort: when the queue is full the task is dropped and logged, never
// blocked on or retried.
type Pool struct {
	size  int
	tasks chan Task
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	return &Pool{
		size:  size,
		tasks: make(chan Task, 64),
	}
}

func (p *Pool) Submit(ctx context.Context, task Task) {
	select {
	case p.tasks <- task:
	default:
		log.FromContext(ctx).Warn("worker pool queue is full, dropping task")
	}
}

// Run blocks until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.size; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case task := <-p.tasks:
					task(ctx)
				}
			}
		})
	}

	return g.Wait()
}
