package p2p_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NemProject/nem-sub016/internal/p2p"
	"github.com/NemProject/nem-sub016/types"
)

func TestNodeRegistry_UpdateReplacesStatus(t *testing.T) {
	registry := p2p.NewNodeRegistry()
	node := types.MakeTestNode("a")

	require.Equal(t, types.NodeStatusUnknown, registry.Status(node))

	for _, from := range types.TrackedNodeStatuses {
		for _, to := range types.TrackedNodeStatuses {
			registry.Update(node, from)
			registry.Update(node, to)

			require.Equal(t, to, registry.Status(node))
			require.Equal(t, 1, registry.Size())
			require.Len(t, registry.Nodes(to), 1)
		}
	}

	registry.Update(node, types.NodeStatusUnknown)
	require.Equal(t, types.NodeStatusUnknown, registry.Status(node))
	require.Empty(t, registry.AllNodes())
}

func TestNodeRegistry_UpdateReplacesInstance(t *testing.T) {
	registry := p2p.NewNodeRegistry()
	node := types.MakeTestNode("a")
	moved := types.NewNode(node.Identity(), types.NodeEndpoint{Protocol: "http", Host: "10.0.0.9", Port: 7890}, node.MetaData())

	registry.Update(node, types.NodeStatusActive)
	registry.Update(moved, types.NodeStatusBusy)

	found := registry.FindByIdentity(node.Identity())
	require.Same(t, moved, found)
	require.Equal(t, types.NodeStatusBusy, registry.Status(node))
}

func TestNodeRegistry_UpdatePanicsOnNil(t *testing.T) {
	registry := p2p.NewNodeRegistry()
	require.Panics(t, func() { registry.Update(nil, types.NodeStatusActive) })
}

func TestNodeRegistry_IsBlacklisted(t *testing.T) {
	registry := p2p.NewNodeRegistry()
	node := types.MakeTestNode("a")

	expected := map[types.NodeStatus]bool{
		types.NodeStatusActive:   false,
		types.NodeStatusBusy:     false,
		types.NodeStatusInactive: true,
		types.NodeStatusFailure:  true,
		types.NodeStatusUnknown:  false,
	}
	for status, blacklisted := range expected {
		registry.Update(node, status)
		assert.Equal(t, blacklisted, registry.IsBlacklisted(node), status.String())
	}
}

func TestNodeRegistry_ReadViewsAreCopies(t *testing.T) {
	registry := p2p.NewNodeRegistry()
	nodes := types.MakeTestNodes(3)
	for _, node := range nodes {
		registry.Update(node, types.NodeStatusActive)
	}

	view := registry.ActiveNodes()
	view[0] = nil
	view = view[:1]

	require.Len(t, registry.ActiveNodes(), 3)
	for _, node := range registry.ActiveNodes() {
		require.NotNil(t, node)
	}
}

func TestNodeRegistry_PruneIsTwoPhase(t *testing.T) {
	registry := p2p.NewNodeRegistry()
	nodes := types.MakeTestNodes(4)
	stillBad, recovered, newlyBad, healthy := nodes[0], nodes[1], nodes[2], nodes[3]

	registry.Update(stillBad, types.NodeStatusInactive)
	registry.Update(recovered, types.NodeStatusFailure)
	registry.Update(healthy, types.NodeStatusActive)

	// first cycle only marks
	require.Empty(t, registry.PruneInactiveNodes())
	require.Equal(t, 3, registry.Size())

	registry.Update(recovered, types.NodeStatusActive)
	registry.Update(newlyBad, types.NodeStatusFailure)

	evicted := registry.PruneInactiveNodes()
	require.Len(t, evicted, 1)
	require.True(t, stillBad.Equal(evicted[0]))

	require.Equal(t, types.NodeStatusUnknown, registry.Status(stillBad))
	require.Equal(t, types.NodeStatusActive, registry.Status(recovered))
	require.Equal(t, types.NodeStatusFailure, registry.Status(newlyBad))
	require.Equal(t, types.NodeStatusActive, registry.Status(healthy))

	// newlyBad was marked by the second cycle
	evicted = registry.PruneInactiveNodes()
	require.Len(t, evicted, 1)
	require.True(t, newlyBad.Equal(evicted[0]))
}

func TestNodeRegistry_PruneFollowsIdentityNotInstance(t *testing.T) {
	registry := p2p.NewNodeRegistry()
	node := types.MakeTestNode("a")

	registry.Update(node, types.NodeStatusInactive)
	require.Empty(t, registry.PruneInactiveNodes())

	// a new instance of the same node is still the same node
	replacement := types.NewNode(node.Identity(), node.Endpoint(), node.MetaData())
	registry.Update(replacement, types.NodeStatusFailure)

	require.Len(t, registry.PruneInactiveNodes(), 1)
	require.Equal(t, 0, registry.Size())
}

func TestNodeRegistry_ConcurrentUpdateAndIterate(t *testing.T) {
	registry := p2p.NewNodeRegistry()
	nodes := types.MakeTestNodes(20)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(offset int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				node := nodes[(j+offset)%len(nodes)]
				registry.Update(node, types.TrackedNodeStatuses[j%len(types.TrackedNodeStatuses)])
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				for _, node := range registry.AllNodes() {
					_ = registry.Status(node)
				}
				registry.PruneInactiveNodes()
			}
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, registry.Size(), len(nodes))
}
