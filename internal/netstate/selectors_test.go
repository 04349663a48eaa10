package netstate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NemProject/nem-sub016/types"
)

type fixedImportances map[string]float64

func (f fixedImportances) Importance(node *types.Node) (float64, int64, bool) {
	importance, ok := f[node.Key()]
	return importance, 10, ok
}

func (fixedImportances) LastRecalculationHeight() int64 { return 10 }

func TestSelectorFactory_ChainSyncSelectsActiveOnly(t *testing.T) {
	nodes := types.MakeTestNodes(4)
	state := makeState(t, nodes...)
	statuses := []types.NodeStatus{
		types.NodeStatusActive,
		types.NodeStatusBusy,
		types.NodeStatusInactive,
		types.NodeStatusFailure,
	}
	for i, node := range nodes {
		require.NoError(t, state.UpdateNode(node, statuses[i]))
	}

	factory := NewSelectorFactory(state, nil)
	for i := 0; i < 20; i++ {
		selector, err := factory.ChainSyncSelector()
		require.NoError(t, err)

		selected := selector.SelectNodes()
		require.Len(t, selected, 1)
		require.True(t, selected[0].Equal(nodes[0]))
	}
}

func TestSelectorFactory_RefreshIncludesOfflinePreTrusted(t *testing.T) {
	nodes := types.MakeTestNodes(3)
	state := makeState(t, nodes[0])
	require.NoError(t, state.UpdateNode(nodes[0], types.NodeStatusFailure))
	require.NoError(t, state.UpdateNode(nodes[1], types.NodeStatusInactive))
	require.NoError(t, state.UpdateNode(nodes[2], types.NodeStatusFailure))

	selector, err := NewSelectorFactory(state, nil).RefreshSelector()
	require.NoError(t, err)

	selected := selector.SelectNodes()
	keys := map[string]bool{}
	for _, node := range selected {
		keys[node.Key()] = true
	}
	require.True(t, keys[nodes[0].Key()], "offline pre-trusted node is refreshed")
	require.True(t, keys[nodes[1].Key()], "inactive node gets a chance to recover")
	require.False(t, keys[nodes[2].Key()], "failed node is not refreshed")
}

func TestSelectorFactory_TimeSync(t *testing.T) {
	nodes := types.MakeTestNodes(3)
	state := makeState(t, nodes...)
	for _, node := range nodes {
		require.NoError(t, state.UpdateNode(node, types.NodeStatusActive))
	}

	_, err := NewSelectorFactory(state, nil).TimeSyncSelector()
	require.Error(t, err)

	importances := fixedImportances{nodes[0].Key(): 0.5, nodes[1].Key(): 0.00001}
	selector, err := NewSelectorFactory(state, importances).TimeSyncSelector()
	require.NoError(t, err)

	selected := selector.SelectNodes()
	require.Len(t, selected, 1)
	require.True(t, selected[0].Equal(nodes[0]))
}

func TestSelectorFactory_NoPreTrustedNodes(t *testing.T) {
	state := makeState(t)
	require.NoError(t, state.UpdateNode(types.MakeTestNode("a"), types.NodeStatusActive))

	_, err := NewSelectorFactory(state, nil).ChainSyncSelector()
	require.Error(t, err)
}
