package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"github.com/NemProject/nem-sub016/config"
	"github.com/NemProject/nem-sub016/internal/broadcast"
	"github.com/NemProject/nem-sub016/internal/chainsync"
	"github.com/NemProject/nem-sub016/internal/netstate"
	"github.com/NemProject/nem-sub016/internal/p2p"
	"github.com/NemProject/nem-sub016/internal/refresh"
	"github.com/NemProject/nem-sub016/internal/scheduler"
	"github.com/NemProject/nem-sub016/internal/timesync"
	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
	"github.com/NemProject/nem-sub016/version"
)

// nodeMetrics bundles the metrics of every component.
type nodeMetrics struct {
	registry  *p2p.Metrics
	state     *netstate.Metrics
	timeSync  *timesync.Metrics
	chainSync *chainsync.Metrics
	refresh   *refresh.Metrics
	broadcast *broadcast.Metrics
	scheduler *scheduler.Metrics
}

// metricsProvider returns the metrics used by a node on network networkID.
type metricsProvider func(networkID string) *nodeMetrics

// defaultMetricsProvider returns Metrics build using Prometheus client library
// if Prometheus is enabled. Otherwise, it returns no-op Metrics.
func defaultMetricsProvider(cfg *config.InstrumentationConfig) metricsProvider {
	return func(networkID string) *nodeMetrics {
		if cfg.Prometheus {
			return &nodeMetrics{
				registry:  p2p.PrometheusMetrics(cfg.Namespace, "network_id", networkID),
				state:     netstate.PrometheusMetrics(cfg.Namespace, "network_id", networkID),
				timeSync:  timesync.PrometheusMetrics(cfg.Namespace, "network_id", networkID),
				chainSync: chainsync.PrometheusMetrics(cfg.Namespace, "network_id", networkID),
				refresh:   refresh.PrometheusMetrics(cfg.Namespace, "network_id", networkID),
				broadcast: broadcast.PrometheusMetrics(cfg.Namespace, "network_id", networkID),
				scheduler: scheduler.PrometheusMetrics(cfg.Namespace, "network_id", networkID),
			}
		}
		return &nodeMetrics{
			registry:  p2p.NopMetrics(),
			state:     netstate.NopMetrics(),
			timeSync:  timesync.NopMetrics(),
			chainSync: chainsync.NopMetrics(),
			refresh:   refresh.NopMetrics(),
			broadcast: broadcast.NopMetrics(),
			scheduler: scheduler.NopMetrics(),
		}
	}
}

// makeLocalNode builds the node this process runs as.
func makeLocalNode(cfg *config.Config, nodeKey types.NodeKey) (*types.Node, error) {
	identity, err := nodeKey.Identity(cfg.Moniker)
	if err != nil {
		return nil, err
	}
	endpoint, err := types.ParseNodeEndpoint(cfg.Peer.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid local endpoint: %w", err)
	}
	metaData := types.NodeMetaData{
		Platform:    version.Platform,
		Application: version.Application,
		Version:     version.Version,
		NetworkID:   cfg.Peer.NetworkID,
	}
	return types.NewNode(identity, endpoint, metaData), nil
}

// makePreTrustedNodes parses the configured seed nodes. The local node is
// returned as itself when its key is listed.
func makePreTrustedNodes(cfg *config.PeerConfig, local *types.Node) ([]*types.Node, error) {
	entries := cfg.PreTrustedNodeList()
	nodes := make([]*types.Node, 0, len(entries))
	for _, entry := range entries {
		node, err := types.ParseNode(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid pre-trusted node: %w", err)
		}
		if node.Equal(local) {
			node = local
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func trustParameters(cfg *config.TrustConfig) trust.Parameters {
	return trust.Parameters{
		MaxIterations:      cfg.MaxIterations,
		Alpha:              cfg.Alpha,
		Epsilon:            cfg.Epsilon,
		MinCommunication:   cfg.MinCommunication,
		LowComWeight:       cfg.LowComWeight,
		AllowEmptyPreTrust: cfg.AllowEmptyPreTrust,
	}
}

func selectionConfig(cfg *config.PeerConfig) netstate.SelectionConfig {
	return netstate.SelectionConfig{
		ChainSyncNodes: cfg.ChainSyncNodes,
		RefreshNodes:   cfg.RefreshNodes,
		TimeSyncNodes:  cfg.TimeSyncNodes,
		MinImportance:  cfg.MinImportance,
	}
}

// makeGenesisBlock returns the first block shared by every node of the
// network.
func makeGenesisBlock(cfg *config.SyncConfig) (*types.Block, error) {
	timestamp, err := cfg.GenesisTimestamp()
	if err != nil {
		return nil, err
	}
	return &types.Block{Height: 1, Timestamp: timestamp.UTC()}, nil
}

// refreshDelay speeds up discovery right after start: the delay grows from
// the minimum to the maximum interval over the ramp up and stays there.
func refreshDelay(cfg *config.ScheduleConfig) scheduler.DelayStrategy {
	return scheduler.NewAggregateDelay(
		scheduler.NewLinearDelayWithDuration(cfg.RefreshMinInterval, cfg.RefreshMaxInterval, cfg.RefreshRampUp),
		scheduler.NewUniformDelay(cfg.RefreshMaxInterval),
	)
}

// timeSyncDelay runs a few quick rounds first, then slows down linearly.
func timeSyncDelay(cfg *config.ScheduleConfig) scheduler.DelayStrategy {
	strategies := []scheduler.DelayStrategy{}
	if cfg.TimeSyncInitialRounds > 0 {
		strategies = append(strategies, scheduler.NewLimitedUniformDelay(cfg.TimeSyncMinInterval, cfg.TimeSyncInitialRounds))
	}
	strategies = append(strategies,
		scheduler.NewLinearDelayWithDuration(cfg.TimeSyncMinInterval, cfg.TimeSyncMaxInterval, cfg.TimeSyncRampUp),
		scheduler.NewUniformDelay(cfg.TimeSyncMaxInterval),
	)
	return scheduler.NewAggregateDelay(strategies...)
}

// addTimers registers the periodic tasks of the node.
func (n *nodeImpl) addTimers() error {
	cfg := n.config.Schedule

	type timerSpec struct {
		name     string
		task     scheduler.Task
		initial  time.Duration
		strategy scheduler.DelayStrategy
	}
	specs := []timerSpec{
		{"refresh", n.refresher.Refresh, cfg.RefreshMinInterval, refreshDelay(cfg)},
		{"chain-sync", n.synchronizeChain, cfg.ChainSyncInterval, scheduler.NewUniformDelay(cfg.ChainSyncInterval)},
		{"transaction-sync", n.synchronizeTransactions, cfg.TransactionSyncInterval, scheduler.NewUniformDelay(cfg.TransactionSyncInterval)},
		{"broadcast", n.broadcastAll, cfg.BroadcastInterval, scheduler.NewUniformDelay(cfg.BroadcastInterval)},
		{"prune", n.prune, cfg.PruneInterval, scheduler.NewUniformDelay(cfg.PruneInterval)},
		{"checkpoint", n.checkpoint, cfg.CheckpointInterval, scheduler.NewUniformDelay(cfg.CheckpointInterval)},
	}
	if n.config.TimeSync.Enable {
		specs = append(specs, timerSpec{"time-sync", n.synchronizeTime, cfg.TimeSyncMinInterval, timeSyncDelay(cfg)})
	}

	for _, spec := range specs {
		if err := n.scheduler.AddTimer(spec.name, spec.task, spec.initial, spec.strategy); err != nil {
			return err
		}
	}
	return nil
}

func (n *nodeImpl) synchronizeChain(ctx context.Context) error {
	_, err := n.chainSync.SynchronizeNodes(ctx)
	return err
}

func (n *nodeImpl) synchronizeTransactions(ctx context.Context) error {
	err := n.chainSync.SynchronizeUnconfirmedTransactions(ctx)
	if errors.Is(err, chainsync.ErrNotSynchronized) {
		n.logger.Debug("skipping unconfirmed transactions", "reason", err)
		return nil
	}
	return err
}

func (n *nodeImpl) synchronizeTime(ctx context.Context) error {
	_, err := n.timeSync.SynchronizeTime(ctx)
	return err
}

func (n *nodeImpl) broadcastAll(ctx context.Context) error {
	return n.broadcasts.BroadcastAll(ctx).Wait(ctx)
}

func (n *nodeImpl) prune(context.Context) error {
	n.state.PruneNodes(n.clock.Now())
	if pruned := n.pool.Prune(); pruned > 0 {
		n.logger.Debug("pruned unconfirmed transactions", "count", pruned)
	}
	return nil
}

func (n *nodeImpl) checkpoint(context.Context) error {
	return n.store.Save(n.state)
}

// listen opens a TCP listener on a "tcp://host:port" or "host:port" address.
func listen(addr string, maxOpenConnections int) (net.Listener, error) {
	listener, err := net.Listen("tcp", strings.TrimPrefix(addr, "tcp://"))
	if err != nil {
		return nil, err
	}
	if maxOpenConnections > 0 {
		listener = netutil.LimitListener(listener, maxOpenConnections)
	}
	return listener, nil
}

// startPrometheusServer starts a Prometheus HTTP server, listening for metrics
// collectors on addr.
func (n *nodeImpl) startPrometheusServer(addr string) (*http.Server, error) {
	listener, err := listen(addr, n.config.Instrumentation.MaxOpenConnections)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: n.config.Instrumentation.MaxOpenConnections},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Error starting or closing listener:
			n.logger.Error("Prometheus HTTP server Serve", "err", err)
		}
	}()
	return srv, nil
}

// startAPIServer serves the node API on the configured address.
func (n *nodeImpl) startAPIServer() (*http.Server, net.Listener, error) {
	listener, err := listen(n.config.Peer.ListenAddress, 0)
	if err != nil {
		return nil, nil, err
	}

	srv := &http.Server{
		Handler:           newAPIRouter(n),
		ReadHeaderTimeout: n.config.Peer.ReadTimeout,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.logger.Error("API server Serve", "err", err)
		}
	}()
	return srv, listener, nil
}

func logNodeStartupInfo(logger log.Logger, local *types.Node, preTrusted []*types.Node, cfg *config.Config) {
	logger.Info("version info",
		"version", version.Version,
		"platform", version.Platform,
	)
	logger.Info("this node",
		"identity", local.Identity(),
		"endpoint", local.Endpoint(),
		"network_id", strconv.Itoa(cfg.Peer.NetworkID),
		"pre_trusted", len(preTrusted),
	)
	for _, node := range preTrusted {
		if node.Equal(local) {
			logger.Info("this node is pre-trusted")
			return
		}
	}
}
