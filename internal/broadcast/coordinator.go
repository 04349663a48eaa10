package broadcast

import (
	"context"
	"sync"

	"github.com/creachadair/taskgroup"
	"go.uber.org/multierr"

	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
)

// Broadcaster sends one batch of entities of a message type to the network.
type Broadcaster interface {
	Broadcast(ctx context.Context, messageType types.NodeAPIID, entities []interface{}) error
}

// Future completes when every broadcast of a flush has finished.
type Future struct {
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(err error) {
	f.err = err
	close(f.done)
}

// Done is closed when the flush has finished.
func (f *Future) Done() <-chan struct{} { return f.done }

// Err blocks until the flush has finished and returns the combined errors of
// all failed broadcasts.
func (f *Future) Err() error {
	<-f.done
	return f.err
}

// Wait blocks until the flush has finished or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Coordinator batches outbound entities and flushes all of them at once.
type Coordinator struct {
	logger      log.Logger
	metrics     *Metrics
	buffer      *Buffer
	broadcaster Broadcaster
}

// CoordinatorOption sets an optional parameter on the Coordinator.
type CoordinatorOption func(*Coordinator)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = metrics }
}

// NewCoordinator creates a coordinator flushing through broadcaster.
func NewCoordinator(logger log.Logger, broadcaster Broadcaster, options ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		logger:      logger.With("module", "broadcast"),
		metrics:     NopMetrics(),
		buffer:      NewBuffer(),
		broadcaster: broadcaster,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Queue adds entity to the next flush of messageType.
func (c *Coordinator) Queue(messageType types.NodeAPIID, entity interface{}) {
	c.buffer.Add(messageType, entity)
	c.metrics.QueuedEntities.With("type", messageType.String()).Add(1)
}

// Pending returns the number of queued entities.
func (c *Coordinator) Pending() int {
	return c.buffer.Size()
}

// BroadcastAll takes every queued entity and broadcasts one batch per message
// type concurrently. Entities queued while the flush is running belong to the
// next flush. A failing batch does not stop the others.
func (c *Coordinator) BroadcastAll(ctx context.Context) *Future {
	future := newFuture()
	batches := c.buffer.DeliverAll()
	if len(batches) == 0 {
		future.complete(nil)
		return future
	}

	var (
		mtx    sync.Mutex
		errs   error
		failed = func(err error) error {
			mtx.Lock()
			defer mtx.Unlock()
			errs = multierr.Append(errs, err)
			return nil
		}
	)

	g := taskgroup.New(failed)
	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			logger := c.logger.With("type", batch.MessageType, "entities", len(batch.Entities))
			if err := c.broadcaster.Broadcast(ctx, batch.MessageType, batch.Entities); err != nil {
				logger.Debug("failed to broadcast batch", "err", err)
				c.metrics.FailedBatches.With("type", batch.MessageType.String()).Add(1)
				return err
			}
			logger.Debug("broadcast batch")
			c.metrics.BroadcastBatches.With("type", batch.MessageType.String()).Add(1)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		mtx.Lock()
		defer mtx.Unlock()
		future.complete(errs)
	}()
	return future
}
