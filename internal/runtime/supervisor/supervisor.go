// Package supervisor tracks named goroutines with panic recovery and a
// shared cancellation context so shutdown can wait for everything.
package supervisor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"mealbot/pkg/logx"
)

type Supervisor struct {
	log    logx.Logger
	ctx    context.Context
	cancel context.CancelCauseFunc

	wg sync.WaitGroup

	mu       sync.Mutex
	firstErr error
}

func New(parent context.Context, log logx.Logger) *Supervisor {
	ctx, cancel := context.WithCancelCause(parent)
	return &Supervisor{log: log, ctx: ctx, cancel: cancel}
}

// Context is the shared lifecycle context. It is cancelled on Cancel or on
// the first failing goroutine.
func (s *Supervisor) Context() context.Context { return s.ctx }

// Go runs fn in a named goroutine. A returned error or a recovered panic
// cancels the whole supervisor.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("%s: panic: %v", name, r)
				s.log.Error("goroutine panicked",
					logx.String("goroutine", name),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())),
				)
				s.fail(err)
			}
		}()

		if err := fn(s.ctx); err != nil && s.ctx.Err() == nil {
			s.log.Error("goroutine failed",
				logx.String("goroutine", name), logx.Err(err))
			s.fail(fmt.Errorf("%s: %w", name, err))
		}
	}()
}

// Go0 runs fn like Go, for bodies that cannot fail.
func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	s.Go(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

func (s *Supervisor) fail(err error) {
	s.mu.Lock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	s.mu.Unlock()
	s.cancel(err)
}

// Cancel stops all supervised goroutines without recording an error.
func (s *Supervisor) Cancel() { s.cancel(context.Canceled) }

// Wait blocks until all supervised goroutines return and reports the first
// failure, if any.
func (s *Supervisor) Wait() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

// Err reports the first failure without waiting.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}
