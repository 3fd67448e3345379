// Package await bounds host readiness waits. A wait that runs out of time is
// not a failure: the caller proceeds with whatever the host has painted.
package await

import (
	"context"
	"errors"
	"time"
)

// Within races fn against timeout and reports whether fn finished first.
// A timeout yields (false, nil); cancellation of ctx yields ctx.Err().
// A non-positive timeout runs fn without a bound.
func Within(ctx context.Context, timeout time.Duration, fn func(context.Context) error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if timeout <= 0 {
		return true, fn(ctx)
	}

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := make(chan error, 1)
	go func() { res <- fn(wctx) }()

	select {
	case err := <-res:
		if err != nil && errors.Is(wctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			// fn 自己观察到了截止时间。
			return false, nil
		}
		return true, err
	case <-wctx.Done():
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return false, nil
	}
}

// Step is one named readiness condition. A zero Timeout uses the default
// passed to Sequence.
type Step struct {
	Name    string
	Timeout time.Duration
	Wait    func(context.Context) error
}

// Sequence runs steps in order, each bounded by its timeout, and returns the
// names of the steps that timed out. The first real error stops the sequence.
func Sequence(ctx context.Context, timeout time.Duration, steps ...Step) ([]string, error) {
	var late []string
	for _, s := range steps {
		limit := s.Timeout
		if limit <= 0 {
			limit = timeout
		}
		done, err := Within(ctx, limit, s.Wait)
		if err != nil {
			return late, err
		}
		if !done {
			late = append(late, s.Name)
		}
	}
	return late, nil
}
