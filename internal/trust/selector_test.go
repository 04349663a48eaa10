package trust

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NemProject/nem-sub016/types"
)

type staticImportances struct {
	height      int64
	importances map[string]float64
	heights     map[string]int64
}

func (s staticImportances) Importance(node *types.Node) (float64, int64, bool) {
	importance, ok := s.importances[node.Key()]
	return importance, s.heights[node.Key()], ok
}

func (s staticImportances) LastRecalculationHeight() int64 { return s.height }

// uniformContext gives every remote node the same trust.
func uniformContext(t *testing.T, n int) (*Context, []*types.Node) {
	t.Helper()
	nodes := types.MakeTestNodes(n)
	local := types.MakeTestNode("local")
	return NewContext(nodes, local, NewLedger(), NewPreTrustedNodes(nodes), DefaultParameters()), nodes
}

func TestBasicNodeSelector_RespectsLimitAndExcludesLocal(t *testing.T) {
	ctx, _ := uniformContext(t, 10)

	for seed := int64(0); seed < 50; seed++ {
		selector, err := NewBasicNodeSelector(3, EigenTrust{}, ctx, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)

		selected := selector.SelectNodes()
		require.Len(t, selected, 3)

		seen := map[string]bool{}
		for _, node := range selected {
			require.False(t, node.Equal(ctx.LocalNode()))
			require.False(t, seen[node.Key()], "duplicate selection")
			seen[node.Key()] = true
		}
	}
}

func TestBasicNodeSelector_FewerCandidatesThanLimit(t *testing.T) {
	ctx, _ := uniformContext(t, 2)

	selector, err := NewBasicNodeSelector(5, EigenTrust{}, ctx, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, selector.SelectNodes(), 2)
}

func TestBasicNodeSelector_EmptyContext(t *testing.T) {
	local := types.MakeTestNode("local")
	params := DefaultParameters()
	params.AllowEmptyPreTrust = true
	ctx := NewContext(nil, local, NewLedger(), NewPreTrustedNodes(nil), params)

	selector, err := NewBasicNodeSelector(5, EigenTrust{}, ctx, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Empty(t, selector.SelectNodes())
	require.Nil(t, selector.SelectNode())
}

func TestBasicNodeSelector_PrefersTrustedNodes(t *testing.T) {
	nodes := types.MakeTestNodes(2)
	local := types.MakeTestNode("local")
	ledger := NewLedger()
	reliable, unreliable := nodes[0], nodes[1]

	addCalls(ledger, local, reliable, 10, 0)
	addCalls(ledger, local, unreliable, 0, 10)

	preTrusted := NewPreTrustedNodes([]*types.Node{local})
	ctx := NewContext(nodes, local, ledger, preTrusted, DefaultParameters())

	selector, err := NewBasicNodeSelector(1, NewLowComTrustProvider(EigenTrust{}), ctx, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		if node := selector.SelectNode(); node != nil {
			counts[node.Key()]++
		}
	}

	require.Greater(t, counts[reliable.Key()], 5*counts[unreliable.Key()])
}

func TestBasicNodeSelector_NeverSelectsZeroTrust(t *testing.T) {
	nodes := types.MakeTestNodes(3)
	local := types.MakeTestNode("local")
	statuses := staticStatuses{nodes[0].Key(): types.NodeStatusActive}

	ctx := NewContext(nodes, local, NewLedger(), NewPreTrustedNodes(nodes), DefaultParameters())
	provider := NewStatusMaskTrustProvider(EigenTrust{}, statuses, types.NodeStatusActive)

	selector, err := NewBasicNodeSelector(3, provider, ctx, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		selected := selector.SelectNodes()
		require.Len(t, selected, 1)
		require.True(t, selected[0].Equal(nodes[0]))
	}
}

func TestImportanceAwareNodeSelector(t *testing.T) {
	ctx, nodes := uniformContext(t, 4)
	importances := staticImportances{
		height: 100,
		importances: map[string]float64{
			nodes[0].Key(): 0.01,
			nodes[1].Key(): 0.00001, // too low
			nodes[2].Key(): 0.01,    // stale
		},
		heights: map[string]int64{
			nodes[0].Key(): 100,
			nodes[1].Key(): 100,
			nodes[2].Key(): 99,
		},
	}

	selector, err := NewImportanceAwareNodeSelector(10, 0.0001, EigenTrust{}, ctx, importances, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	selected := selector.SelectNodes()
	require.Len(t, selected, 1)
	require.True(t, selected[0].Equal(nodes[0]))
}

func TestPreTrustAwareNodeSelector(t *testing.T) {
	nodes := types.MakeTestNodes(5)
	local := types.MakeTestNode("local")
	seeds := nodes[:3]

	testCases := []struct {
		name          string
		localIsSeed   bool
		online        []*types.Node
		expectedSeeds int
	}{
		{"local seed adds all online seeds", true, seeds[:2], 2},
		{"remote local adds one online seed", false, seeds, 1},
		{"all seeds offline adds all", false, nil, 3},
		{"local seed with all offline adds all", true, nil, 3},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			preTrusted := seeds
			if tc.localIsSeed {
				preTrusted = append(append([]*types.Node(nil), seeds...), local)
			}
			statuses := staticStatuses{}
			for _, node := range tc.online {
				statuses[node.Key()] = types.NodeStatusActive
			}

			ctx := NewContext(nodes, local, NewLedger(), NewPreTrustedNodes(preTrusted), DefaultParameters())
			inner := emptySelector{}
			selector := NewPreTrustAwareNodeSelector(inner, ctx, statuses, rand.New(rand.NewSource(1)))

			selected := selector.SelectNodes()
			assert.Len(t, selected, tc.expectedSeeds)
			for _, node := range selected {
				assert.True(t, ctx.PreTrustedNodes().IsPreTrusted(node))
				assert.False(t, node.Equal(local))
			}
		})
	}
}

func TestPreTrustAwareNodeSelector_NoDuplicates(t *testing.T) {
	ctx, nodes := uniformContext(t, 3)
	statuses := staticStatuses{}
	for _, node := range nodes {
		statuses[node.Key()] = types.NodeStatusActive
	}

	inner, err := NewBasicNodeSelector(3, EigenTrust{}, ctx, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	selected := NewPreTrustAwareNodeSelector(inner, ctx, statuses, rand.New(rand.NewSource(2))).SelectNodes()
	require.Len(t, selected, 3)
}

type emptySelector struct{}

func (emptySelector) SelectNode() *types.Node { return nil }
func (emptySelector) SelectNodes() []*types.Node { return nil }
