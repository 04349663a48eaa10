package refresh

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/NemProject/nem-sub016/internal/connect"
	"github.com/NemProject/nem-sub016/internal/netstate"
	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
)

const (
	// MaxKnownPeers is the maximum number of peers a node may report.
	MaxKnownPeers = 100

	// DefaultMaxNewNodes bounds how many unknown nodes are probed per round.
	DefaultMaxNewNodes = 20
)

// SelectorSource builds a fresh selector for every round.
type SelectorSource interface {
	RefreshSelector() (trust.NodeSelector, error)
}

// Refresher probes selected nodes, updates their status and learns about new
// nodes and the experiences of its peers.
//
// Nodes probed directly always take precedence over what other nodes report
// about them: a reported node that is already known is never touched, and an
// unknown node is only added when it answers itself with a matching
// identity.
type Refresher struct {
	logger      log.Logger
	metrics     *Metrics
	clock       clock.Clock
	state       *netstate.NetworkState
	selectors   SelectorSource
	connector   connect.PeerConnector
	maxNewNodes int
}

// Option sets an optional parameter on the Refresher.
type Option func(*Refresher)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(r *Refresher) { r.metrics = metrics }
}

// WithClock sets the clock used to stamp imported experiences.
func WithClock(c clock.Clock) Option {
	return func(r *Refresher) { r.clock = c }
}

// WithMaxNewNodes sets how many unknown nodes are probed per round.
func WithMaxNewNodes(n int) Option {
	return func(r *Refresher) { r.maxNewNodes = n }
}

// NewRefresher creates a refresher.
func NewRefresher(
	logger log.Logger,
	state *netstate.NetworkState,
	selectors SelectorSource,
	connector connect.PeerConnector,
	options ...Option,
) *Refresher {
	r := &Refresher{
		logger:      logger.With("module", "refresh"),
		metrics:     NopMetrics(),
		clock:       clock.New(),
		state:       state,
		selectors:   selectors,
		connector:   connector,
		maxNewNodes: DefaultMaxNewNodes,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Refresh refreshes the nodes drawn by the refresh selector.
func (r *Refresher) Refresh(ctx context.Context) error {
	selector, err := r.selectors.RefreshSelector()
	if err != nil {
		return fmt.Errorf("failed to select nodes to refresh: %w", err)
	}
	return r.RefreshNodes(ctx, selector.SelectNodes())
}

// RefreshNodes probes nodes, then probes the unknown nodes they report.
func (r *Refresher) RefreshNodes(ctx context.Context, nodes []*types.Node) error {
	round := newRound(r.state, nodes)

	var g errgroup.Group
	for _, node := range nodes {
		node := node
		if r.state.Nodes().IsBlacklisted(node) {
			r.logger.Debug("skipping blacklisted node", "node", node)
			continue
		}
		g.Go(func() error {
			r.refreshDirect(ctx, node, round)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var indirect errgroup.Group
	for _, node := range round.candidates(r.maxNewNodes) {
		node := node
		indirect.Go(func() error {
			r.refreshIndirect(ctx, node)
			return nil
		})
	}
	if err := indirect.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}

func (r *Refresher) refreshDirect(ctx context.Context, node *types.Node, round *round) {
	logger := r.logger.With("node", node)

	node, status := r.probe(ctx, node, true)
	if status == types.NodeStatusActive {
		peers, err := r.connector.GetKnownPeers(ctx, node)
		switch {
		case err != nil:
			logger.Debug("failed to get known peers", "err", err)
			status = connect.NodeStatus(err)
		case len(peers) > MaxKnownPeers:
			logger.Info("node reported too many peers", "max", MaxKnownPeers, "got", len(peers))
			status = types.NodeStatusFailure
		default:
			round.report(peers)
		}
	}

	r.setStatus(node, status)
	if status == types.NodeStatusActive {
		r.importExperiences(ctx, node)
	}
}

func (r *Refresher) refreshIndirect(ctx context.Context, node *types.Node) {
	node, status := r.probe(ctx, node, false)
	if status != types.NodeStatusActive {
		r.logger.Debug("ignoring unreachable reported node", "node", node, "status", status)
		return
	}

	r.metrics.DiscoveredNodes.Add(1)
	r.setStatus(node, status)
}

// probe asks node to describe itself. Only direct probes may update the
// endpoint and the name of the node.
func (r *Refresher) probe(ctx context.Context, node *types.Node, direct bool) (*types.Node, types.NodeStatus) {
	info, err := r.connector.GetInfo(ctx, node)
	if err != nil {
		r.logger.Debug("failed to get node info", "node", node, "err", err)
		return node, connect.NodeStatus(err)
	}

	if !info.Identity().Equal(node.Identity()) {
		r.logger.Info("node reported a different identity", "node", node, "reported", info.Identity())
		return node, types.NodeStatusFailure
	}
	if err := r.state.LocalNode().MetaData().CompatibleWith(info.MetaData()); err != nil {
		r.logger.Info("node is incompatible", "node", node, "err", err)
		return node, types.NodeStatusFailure
	}

	if !direct {
		return info, types.NodeStatusActive
	}

	if info.MetaData() != node.MetaData() {
		updated := types.NewNode(node.Identity(), info.Endpoint(), info.MetaData())
		updated.SetName(info.Identity().Name())
		return updated, types.NodeStatusActive
	}

	node.SetEndpoint(info.Endpoint())
	node.SetName(info.Identity().Name())
	return node, types.NodeStatusActive
}

func (r *Refresher) setStatus(node *types.Node, status types.NodeStatus) {
	if err := r.state.UpdateNode(node, status); err != nil {
		r.logger.Error("failed to update node", "node", node, "err", err)
		return
	}
	r.metrics.RefreshedNodes.With("status", status.String()).Add(1)
}

func (r *Refresher) importExperiences(ctx context.Context, node *types.Node) {
	pair, err := r.connector.GetNodeExperiences(ctx, node)
	if err != nil {
		r.logger.Debug("failed to get node experiences", "node", node, "err", err)
		return
	}
	if !pair.Node.Equal(node) {
		r.logger.Info("node reported experiences of another node", "node", node, "reported", pair.Node)
		return
	}

	if err := r.state.SetRemoteNodeExperiences(pair, r.clock.Now()); err != nil {
		r.logger.Error("failed to import node experiences", "node", node, "err", err)
		return
	}
	r.metrics.ImportedExperiences.Add(1)
}

// round collects the nodes reported during one refresh.
type round struct {
	state *netstate.NetworkState

	mtx      sync.Mutex
	seen     map[string]struct{}
	reported []*types.Node
}

func newRound(state *netstate.NetworkState, direct []*types.Node) *round {
	seen := map[string]struct{}{state.LocalNode().Key(): {}}
	for _, node := range direct {
		seen[node.Key()] = struct{}{}
	}
	return &round{state: state, seen: seen}
}

func (r *round) report(nodes []*types.Node) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, node := range nodes {
		if node == nil {
			continue
		}
		key := node.Key()
		if _, ok := r.seen[key]; ok {
			continue
		}
		r.seen[key] = struct{}{}
		if r.state.Status(node) != types.NodeStatusUnknown {
			continue
		}
		r.reported = append(r.reported, node)
	}
}

// candidates returns at most max reported nodes, in the order they were
// first reported.
func (r *round) candidates(max int) []*types.Node {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if len(r.reported) > max {
		return r.reported[:max]
	}
	return r.reported
}
