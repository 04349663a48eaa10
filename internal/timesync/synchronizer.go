package timesync

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/NemProject/nem-sub016/internal/connect"
	"github.com/NemProject/nem-sub016/internal/netstate"
	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
)

// SelectorSource builds a fresh selector for every round.
type SelectorSource interface {
	TimeSyncSelector() (trust.NodeSelector, error)
}

// Synchronizer runs time synchronization rounds: it samples the clocks of
// selected partners, computes the offset with a Strategy and adjusts the
// network time.
type Synchronizer struct {
	logger    log.Logger
	metrics   *Metrics
	state     *netstate.NetworkState
	selectors SelectorSource
	connector connect.TimeSyncConnector
	strategy  Strategy
	time      *NetworkTime
}

// SynchronizerOption sets an optional parameter on the Synchronizer.
type SynchronizerOption func(*Synchronizer)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) SynchronizerOption {
	return func(s *Synchronizer) { s.metrics = metrics }
}

// NewSynchronizer creates a synchronizer.
func NewSynchronizer(
	logger log.Logger,
	state *netstate.NetworkState,
	selectors SelectorSource,
	connector connect.TimeSyncConnector,
	strategy Strategy,
	networkTime *NetworkTime,
	options ...SynchronizerOption,
) *Synchronizer {
	s := &Synchronizer{
		logger:    logger.With("module", "timesync"),
		metrics:   NopMetrics(),
		state:     state,
		selectors: selectors,
		connector: connector,
		strategy:  strategy,
		time:      networkTime,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// SynchronizeTime runs one round. The node age advances whether or not the
// round succeeds. ErrNoSamples is returned when no partner produced a usable
// sample.
func (s *Synchronizer) SynchronizeTime(ctx context.Context) (types.TimeSynchronizationResult, error) {
	logger := s.logger.With("round", uuid.New().String())
	age := s.state.NodeAge()
	defer s.state.IncrementAge()

	s.metrics.Rounds.Add(1)

	selector, err := s.selectors.TimeSyncSelector()
	if err != nil {
		s.metrics.FailedRounds.Add(1)
		return types.TimeSynchronizationResult{}, fmt.Errorf("failed to select time sync partners: %w", err)
	}

	nodes := selector.SelectNodes()
	samples := s.collectSamples(ctx, logger, nodes)
	s.metrics.Samples.Set(float64(len(samples)))

	offset, err := s.strategy.UpdateOffset(samples, age)
	if err != nil {
		s.metrics.FailedRounds.Add(1)
		logger.Info("time synchronization failed", "partners", len(nodes), "samples", len(samples), "err", err)
		return types.TimeSynchronizationResult{}, err
	}

	result := s.time.UpdateOffset(offset)
	s.state.AddTimeSynchronizationResult(result)
	s.metrics.Offset.Set(float64(result.CurrentTimeOffset.Milliseconds()))

	logger.Info("synchronized time",
		"age", age,
		"samples", len(samples),
		"offset", offset,
		"change", result.Change,
		"total_offset", result.CurrentTimeOffset,
	)
	return result, nil
}

// collectSamples queries all nodes concurrently. Failed requests are
// reported to the network state and skipped.
func (s *Synchronizer) collectSamples(ctx context.Context, logger log.Logger, nodes []*types.Node) []Sample {
	var (
		mtx     sync.Mutex
		samples = make([]Sample, 0, len(nodes))
		g       errgroup.Group
	)

	for _, node := range nodes {
		node := node
		g.Go(func() error {
			localSend := s.time.Now()
			stamps, err := s.connector.GetCommunicationTimeStamps(ctx, node)
			localReceive := s.time.Now()

			if err != nil {
				logger.Debug("failed to sample node clock", "node", node, "err", err)
				s.state.UpdateExperience(node, connect.InteractionResult(err))
				return nil
			}

			mtx.Lock()
			samples = append(samples, Sample{
				Node:         node,
				LocalSend:    localSend,
				LocalReceive: localReceive,
				Remote:       stamps,
			})
			mtx.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return samples
}
