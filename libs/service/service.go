package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/NemProject/nem-sub016/libs/log"
)

var (
	// ErrAlreadyStarted is returned when somebody tries to start an already
	// running service.
	ErrAlreadyStarted = errors.New("already started")
	// ErrAlreadyStopped is returned when somebody tries to stop an already
	// stopped service.
	ErrAlreadyStopped = errors.New("already stopped")
	// ErrNotStarted is returned when somebody tries to stop a not running
	// service.
	ErrNotStarted = errors.New("not started")
)

// Service defines a service that can be started and stopped exactly once.
type Service interface {
	// Start is called to start the service, which should run until
	// the context terminates. If the service is already running, Start
	// must report an error.
	Start(context.Context) error

	// Stop stops the service.
	Stop() error

	// Return true if the service is running
	IsRunning() bool

	// String representation of the service
	String() string

	// Wait blocks until the service is stopped.
	Wait()
}

// Implementation describes the implementation that the
// BaseService implementation wraps.
type Implementation interface {
	// Called by the Services Start Method
	OnStart(context.Context) error

	// Called when the service's context is canceled or Stop is called.
	OnStop()
}

// BaseService tracks the started/stopped flags of a long running component
// (scheduler, node) and calls into its Implementation on transitions.
//
//	type Scheduler struct {
//		*service.BaseService
//		// private fields
//	}
//
//	func NewScheduler(logger log.Logger) *Scheduler {
//		s := &Scheduler{}
//		s.BaseService = service.NewBaseService(logger, "Scheduler", s)
//		return s
//	}
//
// OnStart and OnStop are called at most once. If OnStart returns an error the
// service is not marked as started. Cancelling the context passed to Start
// stops the service.
type BaseService struct {
	logger  log.Logger
	name    string
	started uint32 // atomic
	stopped uint32 // atomic
	quit    chan struct{}

	impl Implementation
}

// NewBaseService creates a new BaseService.
func NewBaseService(logger log.Logger, name string, impl Implementation) *BaseService {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &BaseService{
		logger: logger,
		name:   name,
		quit:   make(chan struct{}),
		impl:   impl,
	}
}

// Start starts the Service and calls its OnStart method. An error will be
// returned if the service is already running or stopped.
func (bs *BaseService) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&bs.started, 0, 1) {
		return ErrAlreadyStarted
	}

	if atomic.LoadUint32(&bs.stopped) == 1 {
		bs.logger.Error("not starting service; already stopped", "service", bs.name)
		atomic.StoreUint32(&bs.started, 0)
		return ErrAlreadyStopped
	}

	bs.logger.Info("starting service", "service", bs.name)

	if err := bs.impl.OnStart(ctx); err != nil {
		// revert flag
		atomic.StoreUint32(&bs.started, 0)
		return err
	}

	go func(ctx context.Context) {
		select {
		case <-bs.quit:
			// someone else explicitly called stop
			return
		case <-ctx.Done():
			if err := bs.Stop(); err != nil && !errors.Is(err, ErrAlreadyStopped) {
				bs.logger.Error("failed to stop service", "service", bs.name, "err", err)
				return
			}

			bs.logger.Info("stopped service", "service", bs.name)
		}
	}(ctx)

	return nil
}

// Stop implements Service by calling OnStop and closing the quit channel. An
// error will be returned if the service is already stopped.
func (bs *BaseService) Stop() error {
	if !atomic.CompareAndSwapUint32(&bs.stopped, 0, 1) {
		return ErrAlreadyStopped
	}

	if atomic.LoadUint32(&bs.started) == 0 {
		bs.logger.Error("not stopping service; not started yet", "service", bs.name)
		atomic.StoreUint32(&bs.stopped, 0)
		return ErrNotStarted
	}

	bs.logger.Info("stopping service", "service", bs.name)
	bs.impl.OnStop()
	close(bs.quit)

	return nil
}

// IsRunning implements Service by returning true or false depending on the
// service's state.
func (bs *BaseService) IsRunning() bool {
	return atomic.LoadUint32(&bs.started) == 1 && atomic.LoadUint32(&bs.stopped) == 0
}

// IsStopped reports whether Stop has completed.
func (bs *BaseService) IsStopped() bool { return atomic.LoadUint32(&bs.stopped) == 1 }

// Quit returns a channel closed once the service is stopped.
func (bs *BaseService) Quit() <-chan struct{} { return bs.quit }

// Wait blocks until the service is stopped.
func (bs *BaseService) Wait() { <-bs.quit }

// String implements Service by returning a string representation of the service.
func (bs *BaseService) String() string { return bs.name }
