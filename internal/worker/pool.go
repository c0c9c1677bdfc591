package worker

import (
	"context"
	"sync"
)

// Runner is a background loop that returns once ctx is cancelled.
type Runner interface {
	Run(ctx context.Context)
}

// Pool manages the lifecycle of the background loops.
type Pool struct {
	runners []Runner
	wg      sync.WaitGroup
}

func NewPool(runners ...Runner) *Pool {
	return &Pool{runners: runners}
}

// Start launches every runner in its own goroutine.
// Runners stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for _, r := range p.runners {
		p.wg.Add(1)
		go func(r Runner) {
			defer p.wg.Done()
			r.Run(ctx)
		}(r)
	}
}

// Wait blocks until all runners have returned.
// Call after cancelling the context passed to Start.
func (p *Pool) Wait() {
	p.wg.Wait()
}
