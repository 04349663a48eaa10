package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/semaphore"

	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/libs/service"
)

// ErrStopped is returned when a timer is added to a stopped scheduler.
var ErrStopped = errors.New("scheduler is stopped")

// Task is one run of a periodic job.
type Task func(ctx context.Context) error

// eventBufferSize is the capacity of the event channel. Events are dropped
// when nobody reads them.
const eventBufferSize = 256

type timer struct {
	name         string
	task         Task
	initialDelay time.Duration
	strategy     DelayStrategy

	mtx    sync.Mutex
	status TimerStatus
}

// Scheduler runs periodic tasks on a bounded number of workers. Every timer
// waits for its delay, then for a free worker, runs its task and asks its
// DelayStrategy for the next delay. A timer never overlaps with itself.
type Scheduler struct {
	*service.BaseService

	logger   log.Logger
	metrics  *Metrics
	clock    clock.Clock
	sem      *semaphore.Weighted
	observer Observer
	events   chan Event

	mtx     sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	timers  []*timer
	wg      sync.WaitGroup
}

// Option sets an optional parameter on the Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock driving the timers.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Scheduler) { s.metrics = metrics }
}

// WithObserver sets a function called for every timer event.
func WithObserver(observer Observer) Option {
	return func(s *Scheduler) { s.observer = observer }
}

// NewScheduler creates a scheduler running at most workers tasks at once.
func NewScheduler(logger log.Logger, workers int64, options ...Option) *Scheduler {
	if workers < 1 {
		workers = 1
	}

	s := &Scheduler{
		logger:  logger.With("module", "scheduler"),
		metrics: NopMetrics(),
		clock:   clock.New(),
		sem:     semaphore.NewWeighted(workers),
		events:  make(chan Event, eventBufferSize),
	}
	for _, opt := range options {
		opt(s)
	}
	s.BaseService = service.NewBaseService(logger, "Scheduler", s)
	return s
}

// AddTimer registers a periodic task. The first run happens after
// initialDelay, later runs after the delays of strategy. Timers added to a
// running scheduler start immediately.
func (s *Scheduler) AddTimer(name string, task Task, initialDelay time.Duration, strategy DelayStrategy) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.stopped {
		return ErrStopped
	}
	for _, t := range s.timers {
		if t.name == name {
			return fmt.Errorf("timer %q already exists", name)
		}
	}

	t := &timer{
		name:         name,
		task:         task,
		initialDelay: initialDelay,
		strategy:     strategy,
		status:       TimerStatus{Name: name},
	}
	s.timers = append(s.timers, t)
	if s.ctx != nil {
		s.launch(t)
	}
	return nil
}

// Events returns the channel receiving timer events.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// Timers returns the status of every timer, ordered by name.
func (s *Scheduler) Timers() []TimerStatus {
	s.mtx.Lock()
	timers := append([]*timer(nil), s.timers...)
	s.mtx.Unlock()

	statuses := make([]TimerStatus, 0, len(timers))
	for _, t := range timers {
		t.mtx.Lock()
		statuses = append(statuses, t.status)
		t.mtx.Unlock()
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// OnStart implements service.Service.
func (s *Scheduler) OnStart(ctx context.Context) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, t := range s.timers {
		s.launch(t)
	}
	return nil
}

// OnStop implements service.Service. It waits for running tasks to return.
func (s *Scheduler) OnStop() {
	s.mtx.Lock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mtx.Unlock()

	s.wg.Wait()
}

// launch must be called with s.mtx held.
func (s *Scheduler) launch(t *timer) {
	s.wg.Add(1)
	go s.run(s.ctx, t)
}

func (s *Scheduler) run(ctx context.Context, t *timer) {
	defer s.wg.Done()
	defer s.emit(t, Event{Type: EventStop})

	delay := t.initialDelay
	for {
		if !s.wait(ctx, t, delay) {
			return
		}
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		s.execute(ctx, t)
		s.sem.Release(1)

		var ok bool
		if delay, ok = t.strategy.Next(); !ok {
			s.logger.Info("timer exhausted its delays", "timer", t.name)
			return
		}
	}
}

func (s *Scheduler) wait(ctx context.Context, t *timer, delay time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}

	tm := s.clock.Timer(delay)
	defer tm.Stop()

	s.emit(t, Event{Type: EventDelay, Delay: delay})
	select {
	case <-ctx.Done():
		return false
	case <-tm.C:
		return true
	}
}

func (s *Scheduler) execute(ctx context.Context, t *timer) {
	start := s.clock.Now()
	s.emit(t, Event{Type: EventStart})

	err := t.task(ctx)
	elapsed := s.clock.Since(start)
	s.metrics.TaskDuration.With("timer", t.name).Observe(elapsed.Seconds())

	if err != nil {
		s.logger.Error("task failed", "timer", t.name, "elapsed", elapsed, "err", err)
		s.metrics.TaskRuns.With("timer", t.name, "result", "error").Add(1)
		s.emit(t, Event{Type: EventError, Elapsed: elapsed, Err: err})
		return
	}

	s.logger.Debug("task completed", "timer", t.name, "elapsed", elapsed)
	s.metrics.TaskRuns.With("timer", t.name, "result", "complete").Add(1)
	s.emit(t, Event{Type: EventComplete, Elapsed: elapsed})
}

func (s *Scheduler) emit(t *timer, e Event) {
	e.Timer = t.name
	e.Time = s.clock.Now()

	t.mtx.Lock()
	t.status.apply(e)
	t.mtx.Unlock()

	if s.observer != nil {
		s.observer(e)
	}

	select {
	case s.events <- e:
	default:
		s.logger.Debug("dropped timer event", "timer", t.name, "type", e.Type)
	}
}
