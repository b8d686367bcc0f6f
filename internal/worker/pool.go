// Package worker runs CPU-bound geometry off the calling goroutine with
// bounded concurrency.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

var (
	ErrPoolClosed   = errors.New("pool is closed")
	ErrTaskPanicked = errors.New("task panicked")
)

// Pool limits how many tasks run at once. Each task runs on its own
// goroutine while the submitter waits for it.
type Pool struct {
	size   int
	sem    *semaphore.Weighted
	mu     sync.Mutex // guards closed and wg.Add
	closed bool
	wg     sync.WaitGroup

	active    atomic.Int32
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// Stats is a snapshot of pool counters
type Stats struct {
	Size      int
	Active    int
	Submitted int64
	Completed int64
	Failed    int64
}

// New creates a pool running at most size tasks concurrently
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size, sem: semaphore.NewWeighted(int64(size))}
}

// Do runs task on a worker goroutine and waits for it. ctx only bounds the
// wait for a free slot: a task that has started always runs to completion.
func (p *Pool) Do(ctx context.Context, task func() error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()
	defer p.wg.Done()
	p.submitted.Add(1)

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.failed.Add(1)
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		p.active.Add(1)
		defer p.active.Add(-1)
		done <- execute(task)
	}()

	err := <-done
	if err != nil {
		p.failed.Add(1)
	} else {
		p.completed.Add(1)
	}
	return err
}

func execute(task func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return task()
}

// Run is Do for tasks that produce a value
func Run[T any](ctx context.Context, p *Pool, task func() (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func() error {
		var err error
		out, err = task()
		return err
	})
	return out, err
}

// Stats returns the current counters
func (p *Pool) Stats() Stats {
	return Stats{
		Size:      p.size,
		Active:    int(p.active.Load()),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close rejects new tasks and waits for every accepted one, including
// tasks still waiting for a slot
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
