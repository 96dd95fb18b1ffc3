// Package workers bounds how many blocking jobs (process spawns, downloads,
// image codecs) run at once.
package workers

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool runs jobs on at most size goroutines.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New creates a pool. Sizes below one are raised to one.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

func (p *Pool) Size() int {
	return p.size
}

// Do runs fn on a pool slot and blocks until it returns.
// Only the wait for a free slot observes ctx; a started job always finishes.
// A panic inside fn is returned as an error.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("worker panicked: %v", r)
			}
		}()
		done <- fn()
	}()

	return <-done
}
