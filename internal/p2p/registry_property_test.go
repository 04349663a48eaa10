package p2p_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/NemProject/nem-sub016/internal/p2p"
	"github.com/NemProject/nem-sub016/types"
)

func TestNodeRegistryProperties(t *testing.T) {
	rapid.Check(t, rapid.Run(&registryModel{}))
}

var allStatuses = append([]types.NodeStatus{types.NodeStatusUnknown}, types.TrackedNodeStatuses...)

// registryModel checks the registry against a plain map of statuses and a
// model of the two-phase prune.
type registryModel struct {
	registry *p2p.NodeRegistry
	nodes    []*types.Node

	status map[string]types.NodeStatus
	marked map[string]bool
}

func (m *registryModel) Init(t *rapid.T) {
	m.registry = p2p.NewNodeRegistry()
	m.nodes = types.MakeTestNodes(6)
	m.status = map[string]types.NodeStatus{}
	m.marked = map[string]bool{}
}

func (m *registryModel) Update(t *rapid.T) {
	node := m.nodes[rapid.IntRange(0, len(m.nodes)-1).Draw(t, "node").(int)]
	status := allStatuses[rapid.IntRange(0, len(allStatuses)-1).Draw(t, "status").(int)]

	m.registry.Update(node, status)
	if status == types.NodeStatusUnknown {
		delete(m.status, node.Key())
	} else {
		m.status[node.Key()] = status
	}
}

func (m *registryModel) Prune(t *rapid.T) {
	evicted := map[string]bool{}
	for _, node := range m.registry.PruneInactiveNodes() {
		evicted[node.Key()] = true
	}

	expected := map[string]bool{}
	for key := range m.marked {
		if m.status[key].IsBlacklisted() {
			expected[key] = true
			delete(m.status, key)
		}
	}
	require.Equal(t, expected, evicted)

	m.marked = map[string]bool{}
	for key, status := range m.status {
		if status.IsBlacklisted() {
			m.marked[key] = true
		}
	}
}

func (m *registryModel) Check(t *rapid.T) {
	all := m.registry.AllNodes()
	require.Len(t, all, len(m.status))

	for _, node := range m.nodes {
		expected, ok := m.status[node.Key()]
		if !ok {
			expected = types.NodeStatusUnknown
		}
		require.Equal(t, expected, m.registry.Status(node))
	}

	total := 0
	for _, status := range types.TrackedNodeStatuses {
		total += len(m.registry.Nodes(status))
	}
	require.Equal(t, len(all), total)
}
