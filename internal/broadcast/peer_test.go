package broadcast

import (
	"context"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NemProject/nem-sub016/internal/connect"
	"github.com/NemProject/nem-sub016/internal/connect/mocks"
	"github.com/NemProject/nem-sub016/internal/netstate"
	"github.com/NemProject/nem-sub016/internal/p2p"
	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
)

func newPeerBroadcaster(t *testing.T, nodes []*types.Node) (*PeerBroadcaster, *mocks.Connector) {
	t.Helper()

	cfg := netstate.Config{
		LocalNode:       types.MakeTestNode("local"),
		PreTrustedNodes: trust.NewPreTrustedNodes(nodes),
		TrustParameters: trust.DefaultParameters(),
		Selection:       netstate.DefaultSelectionConfig(),
	}
	state, err := netstate.New(log.TestingLogger(), cfg, p2p.NewNodeRegistry(), trust.NewLedger())
	require.NoError(t, err)
	for _, node := range nodes {
		require.NoError(t, state.UpdateNode(node, types.NodeStatusActive))
	}

	connector := mocks.NewConnector(t)
	return NewPeerBroadcaster(log.TestingLogger(), netstate.NewSelectorFactory(state, nil), connector), connector
}

func TestPeerBroadcaster_AnnouncesToActivePartners(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nodes := types.MakeTestNodes(2)
	broadcaster, connector := newPeerBroadcaster(t, nodes)
	entities := []interface{}{"tx1", "tx2"}
	for _, node := range nodes {
		connector.On("Announce", mock.Anything, node, types.APIPushTransactions, entities).Return(nil).Once()
	}

	require.NoError(t, broadcaster.Broadcast(context.Background(), types.APIPushTransactions, entities))
}

func TestPeerBroadcaster_ReturnsFailedAnnouncements(t *testing.T) {
	nodes := types.MakeTestNodes(2)
	broadcaster, connector := newPeerBroadcaster(t, nodes)
	entities := []interface{}{"block"}
	connector.On("Announce", mock.Anything, nodes[0], types.APIPushBlocks, entities).Return(connect.ErrInactivePeer)
	connector.On("Announce", mock.Anything, nodes[1], types.APIPushBlocks, entities).Return(nil)

	err := broadcaster.Broadcast(context.Background(), types.APIPushBlocks, entities)
	require.ErrorIs(t, err, connect.ErrInactivePeer)
}
