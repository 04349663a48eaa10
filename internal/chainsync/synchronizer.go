package chainsync

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/NemProject/nem-sub016/internal/connect"
	"github.com/NemProject/nem-sub016/internal/netstate"
	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
)

// SelectorSource builds a fresh selector for every round.
type SelectorSource interface {
	ChainSyncSelector() (trust.NodeSelector, error)
}

// Synchronizer pulls blocks and unconfirmed transactions from partners
// chosen by trust and reports the outcome of every interaction to the
// network state.
type Synchronizer struct {
	logger    log.Logger
	metrics   *Metrics
	state     *netstate.NetworkState
	selectors SelectorSource
	connector connect.ChainConnector
	comparer  *Comparer
	validator Validator
	chain     Chain
	sink      TransactionSink
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
	connector connect.ChainConnector,
	comparer *Comparer,
	validator Validator,
	chain Chain,
	sink TransactionSink,
	options ...SynchronizerOption,
) *Synchronizer {
	s := &Synchronizer{
		logger:    logger.With("module", "chainsync"),
		metrics:   NopMetrics(),
		state:     state,
		selectors: selectors,
		connector: connector,
		comparer:  comparer,
		validator: validator,
		chain:     chain,
		sink:      sink,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// SynchronizeNodes synchronizes with every selected partner in turn and
// returns the result of the last interaction. The chain has a single
// writer, so partners are not synchronized concurrently.
func (s *Synchronizer) SynchronizeNodes(ctx context.Context) (types.NodeInteractionResult, error) {
	selector, err := s.selectors.ChainSyncSelector()
	if err != nil {
		return types.InteractionNeutral, fmt.Errorf("failed to select sync partners: %w", err)
	}

	result := types.InteractionNeutral
	for _, node := range selector.SelectNodes() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result = s.SynchronizeNode(ctx, node)
	}
	return result, nil
}

// SynchronizeNode synchronizes the local chain with the chain of node. The
// outcome is always reported to the network state.
func (s *Synchronizer) SynchronizeNode(ctx context.Context, node *types.Node) types.NodeInteractionResult {
	result := s.synchronizeNode(ctx, node)
	s.state.UpdateExperience(node, result)
	return result
}

func (s *Synchronizer) synchronizeNode(ctx context.Context, node *types.Node) types.NodeInteractionResult {
	logger := s.logger.With("node", node)

	comparison, err := s.comparer.Compare(ctx, node, s.chain)
	if err != nil {
		logger.Debug("failed to compare chains", "err", err)
		return connect.InteractionResult(err)
	}

	s.metrics.Comparisons.With("result", comparison.Result.String()).Add(1)
	s.state.SetChainSynchronized(comparison.Result == RemoteIsSynced)

	if comparison.Result != RemoteIsNotSynced {
		logger.Debug("compared chains", "result", comparison.Result, "remote_height", comparison.RemoteHeight)
		return comparison.Result.InteractionResult()
	}

	blocks, err := s.connector.BlocksAfter(ctx, node, comparison.CommonHeight)
	if err != nil {
		logger.Debug("failed to fetch blocks", "common_height", comparison.CommonHeight, "err", err)
		return connect.InteractionResult(err)
	}
	if len(blocks) == 0 {
		logger.Info("remote node claims to be ahead but returned no blocks", "remote_height", comparison.RemoteHeight)
		return types.InteractionFailure
	}

	parent := s.chain.HashesFrom(comparison.CommonHeight, 1)
	if len(parent) != 1 {
		return types.InteractionNeutral
	}

	candidate := &Candidate{CommonHeight: comparison.CommonHeight, ParentHash: parent[0], Blocks: blocks}
	validation := s.validator.Validate(ctx, candidate)
	if validation != types.ValidationSuccess {
		logger.Info("rejected remote chain", "common_height", comparison.CommonHeight, "result", validation)
		return types.InteractionResultFromValidation(validation)
	}

	if err := s.chain.Apply(comparison.CommonHeight, blocks); err != nil {
		logger.Error("failed to apply remote chain", "err", err)
		return types.InteractionNeutral
	}

	s.metrics.AppliedBlocks.Add(float64(len(blocks)))
	s.metrics.Height.Set(float64(s.chain.Height()))
	logger.Info("applied remote chain",
		"common_height", comparison.CommonHeight,
		"blocks", len(blocks),
		"height", s.chain.Height(),
	)
	return types.InteractionSuccess
}

// ErrNotSynchronized is returned when transactions are not pulled because
// the local chain is behind.
var ErrNotSynchronized = errors.New("local chain is not synchronized")

// SynchronizeUnconfirmedTransactions pulls unconfirmed transactions from the
// selected partners concurrently and hands them to the sink. Transactions
// are only pulled while the local chain is synchronized.
func (s *Synchronizer) SynchronizeUnconfirmedTransactions(ctx context.Context) error {
	if !s.state.IsChainSynchronized() {
		return ErrNotSynchronized
	}

	selector, err := s.selectors.ChainSyncSelector()
	if err != nil {
		return fmt.Errorf("failed to select sync partners: %w", err)
	}

	var g errgroup.Group
	for _, node := range selector.SelectNodes() {
		node := node
		g.Go(func() error {
			txs, err := s.connector.UnconfirmedTransactions(ctx, node)
			if err != nil {
				s.logger.Debug("failed to pull unconfirmed transactions", "node", node, "err", err)
				s.state.UpdateExperience(node, connect.InteractionResult(err))
				return nil
			}

			s.metrics.PulledTransactions.Add(float64(len(txs)))
			result := s.sink.AddUnconfirmed(txs)
			s.state.UpdateExperience(node, types.InteractionResultFromValidation(result))
			return nil
		})
	}
	return g.Wait()
}
