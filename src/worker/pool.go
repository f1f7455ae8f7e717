package worker

import (
	"context"
	"log"
	"sync"

	"screen-clip/src/session"
)

// Task runs one capture session.
type Task func(ctx context.Context) (session.Outcome, error)

// ResultCallback is invoked on task completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(outcome session.Outcome, err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs      chan job
	closeOnce sync.Once
}

type job struct {
	ctx  context.Context
	task Task
	cb   ResultCallback
}

// New creates a worker pool. Size defaults to 1 when size<=0, since a
// session owns the display while it runs. Queue is 1 slot.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		go func() {
			for j := range p.jobs {
				if err := j.ctx.Err(); err != nil {
					j.cb(session.Outcome{}, err)
					continue
				}
				log.Printf("Worker: starting session")
				outcome, err := j.task(j.ctx)
				log.Printf("Worker: session finished, state=%s err=%v", outcome.State, err)
				j.cb(outcome, err)
			}
		}()
	}
}

// Submit enqueues a task if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, task Task, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, task: task, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops accepting tasks. A session blocked waiting for input is not
// interrupted, so Close does not wait for running tasks.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
}
