package netstate

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NemProject/nem-sub016/internal/p2p"
	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
)

const (
	// MaxTimeSynchronizationResults bounds the time synchronization history.
	MaxTimeSynchronizationResults = 100

	// chainSynchronizedConfidence is the confidence a successful comparison
	// resets to. Each failed comparison takes one point away.
	chainSynchronizedConfidence = 4
)

var (
	// ErrLocalNodeExperiences is returned when a remote table claims to be the
	// local node's.
	ErrLocalNodeExperiences = errors.New("refusing to overwrite local node experiences")

	// ErrLocalNode is returned when the local node would be tracked as a peer.
	ErrLocalNode = errors.New("local node can't be tracked as a peer")
)

// NodeAge counts time synchronization rounds. It never decreases.
type NodeAge int64

// Config is the immutable configuration of the network state.
type Config struct {
	LocalNode       *types.Node
	PreTrustedNodes *trust.PreTrustedNodes
	TrustParameters trust.Parameters
	Selection       SelectionConfig
}

// Validate performs basic validation.
func (cfg Config) Validate() error {
	if cfg.LocalNode == nil {
		return errors.New("local node is required")
	}
	if cfg.PreTrustedNodes == nil {
		return errors.New("pre-trusted nodes are required")
	}
	if err := cfg.TrustParameters.Validate(); err != nil {
		return fmt.Errorf("invalid trust parameters: %w", err)
	}
	return cfg.Selection.Validate()
}

// NetworkState is the local node's view of the network: the known nodes and
// their health, the experience ledger, the node age, the time
// synchronization history and the chain synchronization confidence.
//
// Interaction outcomes flow in through UpdateExperience and shape the trust
// contexts handed out by TrustContext in the next round.
type NetworkState struct {
	logger   log.Logger
	metrics  *Metrics
	cfg      Config
	registry *p2p.NodeRegistry
	ledger   *trust.Ledger

	mtx        sync.RWMutex
	age        NodeAge
	confidence int
	history    []types.TimeSynchronizationResult
}

// Option sets an optional parameter on the NetworkState.
type Option func(*NetworkState)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(s *NetworkState) { s.metrics = metrics }
}

// New creates a network state around registry and ledger.
func New(
	logger log.Logger,
	cfg Config,
	registry *p2p.NodeRegistry,
	ledger *trust.Ledger,
	options ...Option,
) (*NetworkState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &NetworkState{
		logger:   logger.With("module", "netstate"),
		metrics:  NopMetrics(),
		cfg:      cfg,
		registry: registry,
		ledger:   ledger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *NetworkState) Config() Config { return s.cfg }
func (s *NetworkState) LocalNode() *types.Node { return s.cfg.LocalNode }
func (s *NetworkState) Nodes() *p2p.NodeRegistry { return s.registry }
func (s *NetworkState) Ledger() *trust.Ledger { return s.ledger }

// IsLocalNode reports whether node is the local node.
func (s *NetworkState) IsLocalNode(node *types.Node) bool {
	return node.Equal(s.cfg.LocalNode)
}

// UpdateExperience records the outcome of an interaction with node. Neutral
// outcomes and interactions with the local node are ignored.
func (s *NetworkState) UpdateExperience(node *types.Node, result types.NodeInteractionResult) {
	if s.IsLocalNode(node) || result == types.InteractionNeutral {
		return
	}

	experience := s.ledger.Experience(s.cfg.LocalNode, node)
	switch result {
	case types.InteractionSuccess:
		experience.IncrementSuccessfulCalls()
	case types.InteractionFailure:
		experience.IncrementFailedCalls()
	default:
		return
	}

	s.metrics.Interactions.With("result", result.String()).Add(1)
	s.logger.Debug("updated experience", "node", node, "result", result, "experience", experience)
}

// LocalNodeExperiences returns the local node's experience table for gossip.
func (s *NetworkState) LocalNodeExperiences() trust.NodeExperiencesPair {
	return trust.NodeExperiencesPair{
		Node:        s.cfg.LocalNode,
		Experiences: s.ledger.Experiences(s.cfg.LocalNode),
	}
}

// SetRemoteNodeExperiences imports the experience table a remote node
// reported about its peers.
func (s *NetworkState) SetRemoteNodeExperiences(pair trust.NodeExperiencesPair, timestamp time.Time) error {
	if pair.Node == nil {
		return errors.New("experiences without a node")
	}
	if s.IsLocalNode(pair.Node) {
		return ErrLocalNodeExperiences
	}

	s.ledger.SetExperiences(pair.Node, pair.Experiences, timestamp)
	return nil
}

// IsChainSynchronized reports whether recent chain comparisons found the
// local chain up to date.
func (s *NetworkState) IsChainSynchronized() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.confidence > 0
}

// SetChainSynchronized records the result of a chain comparison. A positive
// result restores full confidence, a negative one takes away one point.
// Confidence may go below zero so that a long streak of negative results
// needs a positive one to recover.
func (s *NetworkState) SetChainSynchronized(synchronized bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if synchronized {
		s.confidence = chainSynchronizedConfidence
	} else {
		s.confidence--
	}

	if s.confidence > 0 {
		s.metrics.ChainSynchronized.Set(1)
	} else {
		s.metrics.ChainSynchronized.Set(0)
	}
}

// TrustContext returns a fresh trust context over the currently known nodes.
func (s *NetworkState) TrustContext() *trust.Context {
	return trust.NewContext(
		s.registry.AllNodes(),
		s.cfg.LocalNode,
		s.ledger,
		s.cfg.PreTrustedNodes,
		s.cfg.TrustParameters,
	)
}

// NodeAge returns the number of completed time synchronization rounds.
func (s *NetworkState) NodeAge() NodeAge {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.age
}

// IncrementAge advances the node age by one round.
func (s *NetworkState) IncrementAge() NodeAge {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.age++
	s.metrics.NodeAge.Set(float64(s.age))
	return s.age
}

// TimeSynchronizationResults returns the recorded results, oldest first.
func (s *NetworkState) TimeSynchronizationResults() []types.TimeSynchronizationResult {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return append([]types.TimeSynchronizationResult(nil), s.history...)
}

// AddTimeSynchronizationResult records result, dropping the oldest result
// once the history is full.
func (s *NetworkState) AddTimeSynchronizationResult(result types.TimeSynchronizationResult) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if len(s.history) >= MaxTimeSynchronizationResults {
		s.history = append(s.history[:0], s.history[len(s.history)-MaxTimeSynchronizationResults+1:]...)
	}
	s.history = append(s.history, result)
}

// UpdateNode sets the status of a remote node.
func (s *NetworkState) UpdateNode(node *types.Node, status types.NodeStatus) error {
	if s.IsLocalNode(node) {
		return ErrLocalNode
	}

	s.registry.Update(node, status)
	return nil
}

// Status returns the registry status of node.
func (s *NetworkState) Status(node *types.Node) types.NodeStatus {
	return s.registry.Status(node)
}

// PruneNodes evicts nodes that stayed blacklisted for two prune cycles and
// drops stale experience tables.
func (s *NetworkState) PruneNodes(now time.Time) []*types.Node {
	evicted := s.registry.PruneInactiveNodes()
	tables := s.ledger.Prune(now)

	if len(evicted) > 0 || tables > 0 {
		s.logger.Info("pruned network state", "nodes", len(evicted), "experience_tables", tables)
	}
	return evicted
}
