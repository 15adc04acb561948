// Package workerpool fans out bounded-concurrency work within a single pure
// function call — verifying every contributor's share against its
// commitments during dkg.Finalize, or building Birkhoff matrix rows during
// signing. It introduces no suspension point beyond the call itself: every
// task is joined before the call returns, preserving the single-threaded,
// synchronous contract of spec §5.
//
// This mirrors the *pool.Pool parameter threaded through every round
// constructor in the teacher's protocols/lss/keygen and reshare packages,
// generalized from a bespoke pool type to golang.org/x/sync/errgroup.
package workerpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool bounds the number of goroutines used to run a batch of tasks.
type Pool struct {
	limit int
}

// New returns a Pool sized to the host's CPU count. A limit <= 0 means
// unbounded (one goroutine per task).
func New() *Pool {
	return &Pool{limit: runtime.GOMAXPROCS(0)}
}

// WithLimit returns a Pool bounded to limit concurrent goroutines.
func WithLimit(limit int) *Pool {
	return &Pool{limit: limit}
}

// Run executes fn(i) for i in [0, n) across the pool, stopping at the first
// error and returning it. All goroutines are joined before Run returns.
func (p *Pool) Run(n int, fn func(i int) error) error {
	g := new(errgroup.Group)
	if p != nil && p.limit > 0 {
		g.SetLimit(p.limit)
	}
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}

// RunContext is Run with an externally supplied context, for callers that
// want to cancel the remaining tasks once the first error is observed.
func (p *Pool) RunContext(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if p != nil && p.limit > 0 {
		g.SetLimit(p.limit)
	}
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fn(ctx, i) })
	}
	return g.Wait()
}
