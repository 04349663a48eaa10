package node

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	dbm "github.com/tendermint/tm-db"

	"github.com/NemProject/nem-sub016/config"
	"github.com/NemProject/nem-sub016/internal/broadcast"
	"github.com/NemProject/nem-sub016/internal/chainsync"
	"github.com/NemProject/nem-sub016/internal/connect"
	"github.com/NemProject/nem-sub016/internal/netstate"
	"github.com/NemProject/nem-sub016/internal/p2p"
	"github.com/NemProject/nem-sub016/internal/refresh"
	"github.com/NemProject/nem-sub016/internal/scheduler"
	"github.com/NemProject/nem-sub016/internal/store"
	"github.com/NemProject/nem-sub016/internal/timesync"
	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/libs/service"
	"github.com/NemProject/nem-sub016/types"
)

// shutdownTimeout bounds waiting for in-flight API requests on stop.
const shutdownTimeout = 5 * time.Second

// nodeImpl is the highest level interface to a full peer node.
// It includes all configuration information and running services.
type nodeImpl struct {
	*service.BaseService

	// config
	config *config.Config
	logger log.Logger
	clock  clock.Clock

	// network state
	localNode   *types.Node
	preTrusted  []*types.Node
	state       *netstate.NetworkState
	selectors   *netstate.SelectorFactory
	connector   connect.Connector
	networkTime *timesync.NetworkTime
	importances *timesync.StaticImportances

	// chain
	chain     *chainsync.MemoryChain
	pool      *chainsync.TransactionPool
	validator chainsync.Validator

	// services
	refresher  *refresh.Refresher
	chainSync  *chainsync.Synchronizer
	timeSync   *timesync.Synchronizer
	broadcasts *broadcast.Coordinator
	scheduler  *scheduler.Scheduler

	// persistence
	db    dbm.DB
	store *store.Store

	apiServer        *http.Server
	apiListener      net.Listener
	prometheusServer *http.Server
}

// New constructs a node from the configuration: it loads or generates the
// node key, opens the database and talks to other nodes over HTTP.
func New(cfg *config.Config, logger log.Logger) (service.Service, error) {
	nodeKey, err := types.LoadOrGenNodeKey(cfg.NodeKeyFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load or gen node key %s: %w", cfg.NodeKeyFile(), err)
	}

	connector := connect.NewHTTPConnector(logger, cfg.Peer.ConnectTimeout, cfg.Peer.ReadTimeout)
	return makeNode(cfg, nodeKey, connector, config.DefaultDBProvider, logger)
}

// makeNode wires every component of the node. Nothing runs before Start.
func makeNode(
	cfg *config.Config,
	nodeKey types.NodeKey,
	connector connect.Connector,
	dbProvider config.DBProvider,
	logger log.Logger,
) (*nodeImpl, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	localNode, err := makeLocalNode(cfg, nodeKey)
	if err != nil {
		return nil, err
	}
	preTrusted, err := makePreTrustedNodes(cfg.Peer, localNode)
	if err != nil {
		return nil, err
	}

	logger = logger.With("node", localNode.Identity().Name())
	metrics := defaultMetricsProvider(cfg.Instrumentation)(strconv.Itoa(cfg.Peer.NetworkID))
	clk := clock.New()

	registry := p2p.NewNodeRegistry(p2p.WithMetrics(metrics.registry))
	ledger := trust.NewLedger(trust.WithClock(clk), trust.WithRetention(cfg.Peer.ExperienceRetention))
	state, err := netstate.New(logger, netstate.Config{
		LocalNode:       localNode,
		PreTrustedNodes: trust.NewPreTrustedNodes(preTrusted),
		TrustParameters: trustParameters(cfg.Trust),
		Selection:       selectionConfig(cfg.Peer),
	}, registry, ledger, netstate.WithMetrics(metrics.state))
	if err != nil {
		return nil, err
	}

	// Seeds start out inactive and get probed by the first refresh.
	for _, node := range preTrusted {
		if node == localNode {
			continue
		}
		if err := state.UpdateNode(node, types.NodeStatusInactive); err != nil {
			return nil, err
		}
	}

	importances := timesync.NewStaticImportances(cfg.TimeSync.ImportanceHeight)
	for _, node := range preTrusted {
		if node != localNode {
			importances.Set(node, 1/float64(len(preTrusted)))
		}
	}
	selectors := netstate.NewSelectorFactory(state, importances)
	networkTime := timesync.NewNetworkTime(clk, cfg.TimeSync.AdjustmentThreshold)

	genesis, err := makeGenesisBlock(cfg.Sync)
	if err != nil {
		return nil, err
	}
	chain, err := chainsync.NewMemoryChain(genesis)
	if err != nil {
		return nil, err
	}
	pool := chainsync.NewTransactionPool(networkTime.Now, cfg.Sync.TxPoolCapacity)
	validator := chainsync.NewStructuralValidator(networkTime.Now, cfg.Sync.MaxFutureTime)

	db, err := dbProvider(&config.DBContext{ID: "peers", Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	nodeStore, err := store.NewStore(db)
	if err != nil {
		return nil, err
	}

	n := &nodeImpl{
		config:      cfg,
		logger:      logger,
		clock:       clk,
		localNode:   localNode,
		preTrusted:  preTrusted,
		state:       state,
		selectors:   selectors,
		connector:   connector,
		networkTime: networkTime,
		importances: importances,
		chain:       chain,
		pool:        pool,
		validator:   validator,
		db:          db,
		store:       nodeStore,
	}

	n.refresher = refresh.NewRefresher(logger, state, selectors, connector,
		refresh.WithMetrics(metrics.refresh),
		refresh.WithClock(clk),
		refresh.WithMaxNewNodes(cfg.Peer.MaxNewNodes),
	)
	n.chainSync = chainsync.NewSynchronizer(logger, state, selectors, connector,
		chainsync.NewComparer(connector, cfg.Sync.MaxRewrite, cfg.Sync.MaxHashes),
		validator, chain, pool,
		chainsync.WithMetrics(metrics.chainSync),
	)
	n.timeSync = timesync.NewSynchronizer(logger, state, selectors, connector,
		timesync.NewCoupledStrategy(timesync.DefaultFilter(), importances),
		networkTime,
		timesync.WithMetrics(metrics.timeSync),
	)
	n.broadcasts = broadcast.NewCoordinator(logger,
		broadcast.NewPeerBroadcaster(logger, selectors, connector),
		broadcast.WithMetrics(metrics.broadcast),
	)
	n.scheduler = scheduler.NewScheduler(logger, cfg.Schedule.Workers,
		scheduler.WithClock(clk),
		scheduler.WithMetrics(metrics.scheduler),
		scheduler.WithObserver(n.observeTimer),
	)
	if err := n.addTimers(); err != nil {
		return nil, err
	}

	n.BaseService = service.NewBaseService(logger, "Node", n)
	return n, nil
}

// OnStart starts the Node. It implements service.Service.
func (n *nodeImpl) OnStart(ctx context.Context) error {
	logNodeStartupInfo(n.logger, n.localNode, n.preTrusted, n.config)

	if err := n.store.Load(n.state); err != nil {
		return fmt.Errorf("failed to load network state: %w", err)
	}
	n.logger.Info("loaded network state", "nodes", n.state.Nodes().Size())

	apiServer, apiListener, err := n.startAPIServer()
	if err != nil {
		return fmt.Errorf("failed to start node API: %w", err)
	}
	n.apiServer, n.apiListener = apiServer, apiListener
	n.logger.Info("serving node API", "addr", apiListener.Addr())

	if n.config.Instrumentation.Prometheus && n.config.Instrumentation.PrometheusListenAddr != "" {
		n.prometheusServer, err = n.startPrometheusServer(n.config.Instrumentation.PrometheusListenAddr)
		if err != nil {
			n.shutdownServers()
			return fmt.Errorf("failed to start prometheus server: %w", err)
		}
	}

	if err := n.scheduler.Start(ctx); err != nil {
		n.shutdownServers()
		return err
	}
	return nil
}

// OnStop stops the Node. It implements service.Service.
func (n *nodeImpl) OnStop() {
	n.logger.Info("Stopping Node")

	if err := n.scheduler.Stop(); err != nil {
		n.logger.Error("failed to stop scheduler", "err", err)
	}
	n.shutdownServers()

	if err := n.store.Save(n.state); err != nil {
		n.logger.Error("failed to save network state", "err", err)
	}
	if err := n.db.Close(); err != nil {
		n.logger.Error("failed to close database", "err", err)
	}
}

func (n *nodeImpl) shutdownServers() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range []*http.Server{n.apiServer, n.prometheusServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			n.logger.Error("failed to shut down HTTP server", "err", err)
		}
	}
}

// observeTimer logs the failures of periodic tasks. Failed rounds are retried
// on the next tick.
func (n *nodeImpl) observeTimer(event scheduler.Event) {
	if event.Type == scheduler.EventError {
		n.logger.Info("periodic task failed", "timer", event.Timer, "err", event.Err)
	}
}

// acceptBlocks appends pushed blocks that extend the local chain and queues
// them for further broadcast.
func (n *nodeImpl) acceptBlocks(ctx context.Context, blocks []*types.Block) types.ValidationResult {
	height := n.chain.Height()
	fresh := make([]*types.Block, 0, len(blocks))
	for _, block := range blocks {
		if block != nil && block.Height > height {
			fresh = append(fresh, block)
		}
	}
	if len(fresh) == 0 {
		return types.ValidationNeutral
	}
	sortBlocks(fresh)

	candidate := &chainsync.Candidate{
		CommonHeight: height,
		ParentHash:   n.chain.LastBlock().Hash(),
		Blocks:       fresh,
	}
	if result := n.validator.Validate(ctx, candidate); result != types.ValidationSuccess {
		n.logger.Debug("rejected pushed blocks", "height", height, "result", result)
		return result
	}
	if err := n.chain.Apply(height, fresh); err != nil {
		n.logger.Error("failed to apply pushed blocks", "err", err)
		return types.ValidationNeutral
	}

	for _, block := range fresh {
		n.broadcasts.Queue(types.APIPushBlocks, block)
	}
	n.logger.Info("accepted pushed blocks", "blocks", len(fresh), "height", n.chain.Height())
	return types.ValidationSuccess
}

// acceptTransactions adds pushed transactions to the pool and queues the new
// ones for further broadcast.
func (n *nodeImpl) acceptTransactions(txs []*types.Transaction) types.ValidationResult {
	results := make([]types.ValidationResult, 0, len(txs))
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		result := n.pool.AddUnconfirmed([]*types.Transaction{tx})
		if result == types.ValidationSuccess {
			n.broadcasts.Queue(types.APIPushTransactions, tx)
		}
		results = append(results, result)
	}
	return types.AggregateValidationResults(results...)
}
