package engine

import (
	"context"
	"sync"
	"time"
)

// task is one cancellable periodic job owned by the scheduler.
type task struct {
	name   string
	cancel context.CancelFunc
}

// scheduler owns the engine's periodic loops (broadcast, health, scan).
//
// Replaces the source system's repeating setInterval-style timers with
// cancellable goroutine-backed tickers. CancelAll is the dispose path and
// is idempotent: it stops every outstanding task and waits for the loops
// to exit before returning.
//
// Interval changes (recovery temporarily slowing the broadcast rate) go
// through the interval callback so a running loop picks up the new period
// on its next tick without being restarted.
type scheduler struct {
	mu    sync.Mutex
	ctx   context.Context
	stop  context.CancelFunc
	tasks map[string]*task
	wg    sync.WaitGroup
}

func newScheduler() *scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &scheduler{
		ctx:   ctx,
		stop:  cancel,
		tasks: make(map[string]*task),
	}
}

// every schedules fn to run periodically. The interval function is consulted
// before each sleep, so callers can retune a running loop. Scheduling the
// same name twice replaces the previous task.
//
// fn runs on the scheduler goroutine for that task; ticks never overlap
// for a given task.
func (s *scheduler) every(name string, interval func() time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return // scheduler already cancelled
	}
	if prev, ok := s.tasks[name]; ok {
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.tasks[name] = &task{name: name, cancel: cancel}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(interval())
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				fn()
				timer.Reset(interval())
			}
		}
	}()
}

// cancel stops one task by name. Unknown names are a no-op.
func (s *scheduler) cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[name]; ok {
		t.cancel()
		delete(s.tasks, name)
	}
}

// cancelAll stops every task and blocks until all loops have exited.
// Safe to call multiple times.
func (s *scheduler) cancelAll() {
	s.mu.Lock()
	s.stop()
	s.tasks = make(map[string]*task)
	s.mu.Unlock()

	s.wg.Wait()
}
