// Package scheduler runs blocking work off the request path on a fixed pool
// of workers. Queued tasks are admitted strictly by priority class, FIFO
// within a class. There is no aging: a steady stream of higher-priority work
// can starve lower classes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inkfeed/internal/observability"
)

// Priority is a task's scheduling class.
type Priority int

const (
	Low Priority = iota
	Normal
	High
	Critical
)

const numPriorities = int(Critical) + 1

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	case Critical:
		return "critical"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("scheduler closed")

// PanicError rejects the future of a task that panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("scheduled task panicked: %v", e.Value)
}

// Work is a unit of blocking work. The context carries the submitter's
// values but is never cancelled once the task is admitted.
type Work func(ctx context.Context) (any, error)

// Future settles exactly once with the task's result.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) settle(v any, err error) {
	f.value, f.err = v, err
	close(f.done)
}

// Done is closed when the task has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes or ctx ends. Giving up on the wait
// does not stop the task.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type task struct {
	seq       uint64
	priority  Priority
	createdAt time.Time
	ctx       context.Context
	work      Work
	future    *Future
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	Active         int            `json:"active"`
	Queued         int            `json:"queued"`
	QueuedBy       map[string]int `json:"queued_by_priority"`
	MaxConcurrency int            `json:"max_concurrency"`
}

// Scheduler is a bounded worker pool with four priority lanes.
type Scheduler struct {
	name string
	max  int

	mu     sync.Mutex
	cond   *sync.Cond
	lanes  [numPriorities][]*task
	queued int
	active int
	seq    uint64
	closed bool

	wg sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithName sets the label used for metrics and logs.
func WithName(name string) Option {
	return func(s *Scheduler) { s.name = name }
}

// New starts a scheduler running exactly maxConcurrency workers.
func New(maxConcurrency int, opts ...Option) *Scheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	s := &Scheduler{name: "default", max: maxConcurrency}
	for _, opt := range opts {
		opt(s)
	}
	s.cond = sync.NewCond(&s.mu)

	s.wg.Add(maxConcurrency)
	for i := 0; i < maxConcurrency; i++ {
		go s.worker()
	}
	return s
}

// Submit queues work at priority p. After Close the returned future is
// already rejected with ErrClosed.
func (s *Scheduler) Submit(ctx context.Context, p Priority, work Work) *Future {
	f := newFuture()
	if p < Low || p > Critical {
		p = Normal
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		f.settle(nil, ErrClosed)
		return f
	}
	s.seq++
	s.lanes[p] = append(s.lanes[p], &task{
		seq:       s.seq,
		priority:  p,
		createdAt: time.Now(),
		ctx:       context.WithoutCancel(ctx),
		work:      work,
		future:    f,
	})
	s.queued++
	observability.SchedulerQueued.WithLabelValues(s.name, p.String()).Set(float64(len(s.lanes[p])))
	s.mu.Unlock()

	s.cond.Signal()
	return f
}

// next pops the oldest task of the highest non-empty class. Callers hold mu.
func (s *Scheduler) next() *task {
	for p := numPriorities - 1; p >= 0; p-- {
		if len(s.lanes[p]) == 0 {
			continue
		}
		t := s.lanes[p][0]
		s.lanes[p][0] = nil
		s.lanes[p] = s.lanes[p][1:]
		s.queued--
		observability.SchedulerQueued.WithLabelValues(s.name, Priority(p).String()).Set(float64(len(s.lanes[p])))
		return t
	}
	return nil
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for s.queued == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.queued == 0 {
			s.mu.Unlock()
			return
		}
		t := s.next()
		s.active++
		observability.SchedulerActive.WithLabelValues(s.name).Set(float64(s.active))
		s.mu.Unlock()

		observability.ObserveSince(observability.SchedulerWait.WithLabelValues(s.name, t.priority.String()), t.createdAt)
		s.run(t)

		s.mu.Lock()
		s.active--
		observability.SchedulerActive.WithLabelValues(s.name).Set(float64(s.active))
		s.mu.Unlock()
	}
}

func (s *Scheduler) run(t *task) {
	var (
		value any
		err   error
	)
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
			observability.Logger.ErrorContext(t.ctx, "scheduled task panicked",
				"scheduler", s.name,
				"priority", t.priority.String(),
				"seq", t.seq,
				"panic", fmt.Sprint(r),
			)
		}
		if err != nil {
			observability.SchedulerFailures.WithLabelValues(s.name, t.priority.String()).Inc()
		}
		t.future.settle(value, err)
	}()
	value, err = t.work(t.ctx)
}

// Close stops accepting work, lets queued and running tasks finish, and
// waits for the workers to exit. It is safe to call more than once.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
	s.wg.Wait()
}

// Stats reports current load.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	by := make(map[string]int, numPriorities)
	for p := 0; p < numPriorities; p++ {
		by[Priority(p).String()] = len(s.lanes[p])
	}
	return Stats{
		Active:         s.active,
		Queued:         s.queued,
		QueuedBy:       by,
		MaxConcurrency: s.max,
	}
}

// Do submits fn and waits for its typed result.
func Do[T any](ctx context.Context, s *Scheduler, p Priority, fn func(ctx context.Context) (T, error)) (T, error) {
	f := s.Submit(ctx, p, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	v, err := f.Wait(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}
