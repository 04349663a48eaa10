package node

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NemProject/nem-sub016/config"
	"github.com/NemProject/nem-sub016/internal/connect"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/libs/service"
	"github.com/NemProject/nem-sub016/types"
)

func freePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())
	return port
}

func testNodeConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.ResetTestRoot(t.TempDir(), "node_test")
	require.NoError(t, err)

	port := freePort(t)
	cfg.Peer.ListenAddress = fmt.Sprintf("tcp://127.0.0.1:%d", port)
	cfg.Peer.Endpoint = fmt.Sprintf("http://127.0.0.1:%d", port)
	cfg.TimeSync.Enable = false
	return cfg
}

func startNode(ctx context.Context, t *testing.T, cfg *config.Config) *nodeImpl {
	t.Helper()

	nodeKey, err := types.GenNodeKey()
	require.NoError(t, err)

	logger := log.NewNopLogger()
	connector := connect.NewHTTPConnector(logger, cfg.Peer.ConnectTimeout, cfg.Peer.ReadTimeout)
	n, err := makeNode(cfg, nodeKey, connector, config.DefaultDBProvider, logger)
	require.NoError(t, err)

	require.NoError(t, n.Start(ctx))
	t.Cleanup(func() {
		if n.IsRunning() {
			_ = n.Stop()
		}
	})
	return n
}

func TestNodeStartStop(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := startNode(ctx, t, testNodeConfig(t))
	require.True(t, n.IsRunning())
	require.NotNil(t, n.apiListener)

	require.NoError(t, n.Stop())
	assert.False(t, n.IsRunning())
	assert.ErrorIs(t, n.Stop(), service.ErrAlreadyStopped)
}

func TestNodeAPI(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := startNode(ctx, t, testNodeConfig(t))
	connector := connect.NewHTTPConnector(log.NewNopLogger(), time.Second, time.Second)
	remote := n.localNode

	height, err := connector.ChainHeight(ctx, remote)
	require.NoError(t, err)
	assert.EqualValues(t, 1, height)

	last, err := connector.LastBlock(ctx, remote)
	require.NoError(t, err)
	assert.True(t, n.chain.LastBlock().Hash().Equal(last.Hash()))

	info, err := connector.GetInfo(ctx, remote)
	require.NoError(t, err)
	assert.True(t, info.Identity().Equal(n.localNode.Identity()))
	assert.Equal(t, n.localNode.MetaData(), info.MetaData())

	peers, err := connector.GetKnownPeers(ctx, remote)
	require.NoError(t, err)
	assert.Empty(t, peers)

	pair, err := connector.GetNodeExperiences(ctx, remote)
	require.NoError(t, err)
	assert.True(t, pair.Node.Equal(n.localNode))

	stamps, err := connector.GetCommunicationTimeStamps(ctx, remote)
	require.NoError(t, err)
	assert.False(t, stamps.SendTimeStamp.Before(stamps.ReceiveTimeStamp))

	hashes, err := connector.HashChain(ctx, remote, 1)
	require.NoError(t, err)
	require.Len(t, hashes, 1)
	assert.True(t, hashes[0].Equal(last.Hash()))
}

func TestNodePushBlocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := startNode(ctx, t, testNodeConfig(t))
	connector := connect.NewHTTPConnector(log.NewNopLogger(), time.Second, time.Second)

	genesis := n.chain.LastBlock()
	b2 := &types.Block{Height: 2, PrevHash: genesis.Hash(), Timestamp: genesis.Timestamp.Add(time.Minute)}
	b3 := &types.Block{Height: 3, PrevHash: b2.Hash(), Timestamp: b2.Timestamp.Add(time.Minute)}

	// Out of order blocks are sorted before validation.
	require.NoError(t, connector.Announce(ctx, n.localNode, types.APIPushBlocks, []*types.Block{b3, b2}))
	assert.EqualValues(t, 3, n.chain.Height())

	blocks, err := connector.BlocksAfter(ctx, n.localNode, 1)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.True(t, blocks[1].Hash().Equal(b3.Hash()))

	// A block that does not link to the tip is rejected.
	bad := &types.Block{Height: 4, PrevHash: genesis.Hash(), Timestamp: b3.Timestamp.Add(time.Minute)}
	err = connector.Announce(ctx, n.localNode, types.APIPushBlocks, []*types.Block{bad})
	assert.Error(t, err)
	assert.EqualValues(t, 3, n.chain.Height())

	// Known blocks are ignored.
	require.NoError(t, connector.Announce(ctx, n.localNode, types.APIPushBlocks, []*types.Block{b2}))
	assert.EqualValues(t, 3, n.chain.Height())
}

func TestNodePushTransactions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := startNode(ctx, t, testNodeConfig(t))
	connector := connect.NewHTTPConnector(log.NewNopLogger(), time.Second, time.Second)

	tx := &types.Transaction{Signer: []byte{1, 2, 3}, Deadline: time.Now().Add(time.Hour)}
	require.NoError(t, connector.Announce(ctx, n.localNode, types.APIPushTransactions, []*types.Transaction{tx}))
	require.NoError(t, connector.Announce(ctx, n.localNode, types.APIPushTransactions, []*types.Transaction{tx}))

	txs, err := connector.UnconfirmedTransactions(ctx, n.localNode)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Hash().Equal(tx.Hash()))

	expired := &types.Transaction{Signer: []byte{4}, Deadline: time.Now().Add(-time.Hour)}
	err = connector.Announce(ctx, n.localNode, types.APIPushTransactions, []*types.Transaction{expired})
	assert.Error(t, err)
	assert.Equal(t, 1, n.pool.Size())
}

func TestNodeRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testNodeConfig(t)
	cfg.Peer.APIRateLimit = 2
	n := startNode(ctx, t, cfg)
	connector := connect.NewHTTPConnector(log.NewNopLogger(), time.Second, time.Second)

	var err error
	for i := 0; i < 5 && err == nil; i++ {
		_, err = connector.ChainHeight(ctx, n.localNode)
	}
	assert.Error(t, err)
}

func TestNodeRefreshesPreTrustedNode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seed := startNode(ctx, t, testNodeConfig(t))

	cfg := testNodeConfig(t)
	cfg.Peer.PreTrustedNodes = fmt.Sprintf("%s@%s",
		hex.EncodeToString(seed.localNode.Identity().PublicKey()),
		seed.config.Peer.Endpoint,
	)
	n := startNode(ctx, t, cfg)

	require.Len(t, n.preTrusted, 1)
	require.Eventually(t, func() bool {
		return n.state.Status(n.preTrusted[0]) == types.NodeStatusActive
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, seed.localNode.Identity().Name(), n.preTrusted[0].Identity().Name())
}

func TestNodeRestoresState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testNodeConfig(t)
	cfg.DBBackend = "goleveldb"
	cfg.Schedule.RefreshMinInterval = time.Hour
	cfg.Schedule.RefreshMaxInterval = time.Hour
	cfg.Schedule.PruneInterval = time.Hour
	n := startNode(ctx, t, cfg)

	identity, err := types.GenerateNodeIdentity("")
	require.NoError(t, err)
	other, err := types.ParseNode(fmt.Sprintf("%s@http://127.0.0.1:1", hex.EncodeToString(identity.PublicKey())))
	require.NoError(t, err)
	require.NoError(t, n.state.UpdateNode(other, types.NodeStatusBusy))
	require.NoError(t, n.Stop())

	nodeKey, err := types.GenNodeKey()
	require.NoError(t, err)
	logger := log.NewNopLogger()
	restarted, err := makeNode(cfg, nodeKey, connect.NewHTTPConnector(logger, time.Second, time.Second), config.DefaultDBProvider, logger)
	require.NoError(t, err)
	require.NoError(t, restarted.Start(ctx))
	defer func() { _ = restarted.Stop() }()

	assert.Equal(t, types.NodeStatusBusy, restarted.state.Status(other))
}
