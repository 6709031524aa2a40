package workerpool

import (
	"context"
	"sync"
)

// Job represents one unit of work submitted to the pool.
type Job[T any] struct {
	Task func(ctx context.Context) (T, error)
}

// JobResult represents the result of a job.
type JobResult[T any] struct {
	Result T
	Err    error
}

// Dispatcher fans jobs out to a fixed number of workers and funnels the
// results into a single queue. The sweep uses it to run reconciliations
// for distinct (identity, group) keys in parallel while the per-key
// mutex handles overlap with event-triggered reconciliations.
type Dispatcher[T any] struct {
	maxWorkers  int
	jobQueue    chan Job[T]
	resultQueue chan JobResult[T]
}

// NewDispatcher creates a dispatcher with the given worker count.
func NewDispatcher[T any](maxWorkers int) *Dispatcher[T] {
	return &Dispatcher[T]{
		maxWorkers:  maxWorkers,
		jobQueue:    make(chan Job[T]),
		resultQueue: make(chan JobResult[T]),
	}
}

// Run starts the workers and blocks until the job queue is closed and
// drained or ctx is canceled. The result queue is closed on return.
func (d *Dispatcher[T]) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for i := 0; i < d.maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job, ok := <-d.jobQueue:
					if !ok {
						return
					}

					result, err := job.Task(ctx)
					d.resultQueue <- JobResult[T]{Result: result, Err: err}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	wg.Wait()
	close(d.resultQueue)
}

// Submit enqueues a job. Blocks while all workers are busy.
func (d *Dispatcher[T]) Submit(job Job[T]) {
	d.jobQueue <- job
}

// Close signals that no further jobs will be submitted.
func (d *Dispatcher[T]) Close() {
	close(d.jobQueue)
}

// Results returns the result queue. It is closed once all workers have
// stopped.
func (d *Dispatcher[T]) Results() <-chan JobResult[T] {
	return d.resultQueue
}
