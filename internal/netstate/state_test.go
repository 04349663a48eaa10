package netstate

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NemProject/nem-sub016/internal/p2p"
	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/libs/log"
	"github.com/NemProject/nem-sub016/types"
)

func makeState(t *testing.T, preTrusted ...*types.Node) *NetworkState {
	t.Helper()

	cfg := Config{
		LocalNode:       types.MakeTestNode("local"),
		PreTrustedNodes: trust.NewPreTrustedNodes(preTrusted),
		TrustParameters: trust.DefaultParameters(),
		Selection:       DefaultSelectionConfig(),
	}
	state, err := New(log.TestingLogger(), cfg, p2p.NewNodeRegistry(), trust.NewLedger())
	require.NoError(t, err)
	return state
}

func TestNew_ValidatesConfig(t *testing.T) {
	_, err := New(log.NewNopLogger(), Config{}, p2p.NewNodeRegistry(), trust.NewLedger())
	require.Error(t, err)

	cfg := Config{
		LocalNode:       types.MakeTestNode("local"),
		PreTrustedNodes: trust.NewPreTrustedNodes(nil),
		TrustParameters: trust.DefaultParameters(),
	}
	_, err = New(log.NewNopLogger(), cfg, p2p.NewNodeRegistry(), trust.NewLedger())
	require.Error(t, err, "zero selection limits")
}

func TestNetworkState_UpdateExperience(t *testing.T) {
	state := makeState(t)
	remote := types.MakeTestNode("remote")
	local := state.LocalNode()

	state.UpdateExperience(remote, types.InteractionSuccess)
	state.UpdateExperience(remote, types.InteractionSuccess)
	state.UpdateExperience(remote, types.InteractionFailure)
	state.UpdateExperience(remote, types.InteractionNeutral)

	experience := state.Ledger().Experience(local, remote)
	assert.EqualValues(t, 2, experience.SuccessfulCalls())
	assert.EqualValues(t, 1, experience.FailedCalls())

	// self interactions are ignored
	state.UpdateExperience(local, types.InteractionSuccess)
	assert.EqualValues(t, 0, state.Ledger().Experience(local, local).TotalCalls())
}

func TestNetworkState_UpdateExperienceFromValidation(t *testing.T) {
	state := makeState(t)
	remote := types.MakeTestNode("remote")

	results := []types.ValidationResult{
		types.ValidationSuccess,
		types.ValidationNeutral,
		types.ValidationFailureEntityUnusableOutOfSync,
		types.ValidationFailureTransactionCacheTooFull,
		types.ValidationFailureChainInvalid,
		types.ValidationFailurePastDeadline,
	}
	for _, result := range results {
		state.UpdateExperience(remote, types.InteractionResultFromValidation(result))
	}

	experience := state.Ledger().Experience(state.LocalNode(), remote)
	assert.EqualValues(t, 1, experience.SuccessfulCalls())
	assert.EqualValues(t, 2, experience.FailedCalls())
}

func TestNetworkState_SetRemoteNodeExperiences(t *testing.T) {
	state := makeState(t)
	nodes := types.MakeTestNodes(2)
	pairs := []trust.NodeExperiencePair{{Node: nodes[1], Experience: trust.NewNodeExperience(3, 1)}}

	err := state.SetRemoteNodeExperiences(trust.NodeExperiencesPair{Node: nodes[0], Experiences: pairs}, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 3, state.Ledger().Experience(nodes[0], nodes[1]).SuccessfulCalls())

	err = state.SetRemoteNodeExperiences(trust.NodeExperiencesPair{Node: state.LocalNode(), Experiences: pairs}, time.Now())
	require.ErrorIs(t, err, ErrLocalNodeExperiences)
	require.EqualValues(t, 0, state.Ledger().Experience(state.LocalNode(), nodes[1]).TotalCalls())

	// a different instance of the local node is still the local node
	impostor := types.NewNode(state.LocalNode().Identity(), state.LocalNode().Endpoint(), state.LocalNode().MetaData())
	err = state.SetRemoteNodeExperiences(trust.NodeExperiencesPair{Node: impostor, Experiences: pairs}, time.Now())
	require.ErrorIs(t, err, ErrLocalNodeExperiences)
}

func TestNetworkState_ChainSynchronizedHysteresis(t *testing.T) {
	state := makeState(t)
	require.False(t, state.IsChainSynchronized())

	state.SetChainSynchronized(true)
	require.True(t, state.IsChainSynchronized())

	// three negative reports are tolerated
	for i := 0; i < 3; i++ {
		state.SetChainSynchronized(false)
		require.True(t, state.IsChainSynchronized(), "after %d negative reports", i+1)
	}
	state.SetChainSynchronized(false)
	require.False(t, state.IsChainSynchronized())

	// no floor: the counter keeps going down and one positive report recovers
	for i := 0; i < 10; i++ {
		state.SetChainSynchronized(false)
	}
	require.False(t, state.IsChainSynchronized())
	require.Equal(t, -10, state.confidence)

	state.SetChainSynchronized(true)
	require.True(t, state.IsChainSynchronized())
}

func TestNetworkState_TrustContextIsFresh(t *testing.T) {
	state := makeState(t)
	nodes := types.MakeTestNodes(3)

	require.NoError(t, state.UpdateNode(nodes[0], types.NodeStatusActive))
	first := state.TrustContext()
	require.Len(t, first.Nodes(), 2)

	require.NoError(t, state.UpdateNode(nodes[1], types.NodeStatusBusy))
	require.NoError(t, state.UpdateNode(nodes[2], types.NodeStatusFailure))
	second := state.TrustContext()

	require.NotSame(t, first, second)
	require.Len(t, first.Nodes(), 2)
	require.Len(t, second.Nodes(), state.Nodes().Size()+1)
	require.True(t, second.LocalNode().Equal(second.Nodes()[second.LocalIndex()]))
}

func TestNetworkState_UpdateNodeRefusesLocal(t *testing.T) {
	state := makeState(t)
	require.ErrorIs(t, state.UpdateNode(state.LocalNode(), types.NodeStatusActive), ErrLocalNode)
	require.Zero(t, state.Nodes().Size())
}

func TestNetworkState_NodeAge(t *testing.T) {
	state := makeState(t)
	require.EqualValues(t, 0, state.NodeAge())

	for i := 1; i <= 5; i++ {
		require.EqualValues(t, i, state.IncrementAge())
	}
	require.EqualValues(t, 5, state.NodeAge())
}

func TestNetworkState_TimeSynchronizationHistoryIsBounded(t *testing.T) {
	state := makeState(t)
	base := time.Unix(0, 0)

	for i := 0; i < MaxTimeSynchronizationResults+20; i++ {
		state.AddTimeSynchronizationResult(types.TimeSynchronizationResult{
			TimeStamp: base.Add(time.Duration(i) * time.Minute),
			Change:    time.Duration(i) * time.Millisecond,
		})
	}

	history := state.TimeSynchronizationResults()
	require.Len(t, history, MaxTimeSynchronizationResults)
	assert.Equal(t, 20*time.Millisecond, history[0].Change, "oldest entries are dropped first")
	assert.Equal(t, time.Duration(MaxTimeSynchronizationResults+19)*time.Millisecond, history[len(history)-1].Change)

	history[0].Change = 0
	require.NotZero(t, state.TimeSynchronizationResults()[0].Change)
}

func TestNetworkState_PruneNodes(t *testing.T) {
	state := makeState(t)
	nodes := types.MakeTestNodes(2)

	require.NoError(t, state.UpdateNode(nodes[0], types.NodeStatusInactive))
	require.NoError(t, state.UpdateNode(nodes[1], types.NodeStatusActive))

	now := time.Now()
	require.Empty(t, state.PruneNodes(now))

	evicted := state.PruneNodes(now)
	require.Len(t, evicted, 1)
	require.Equal(t, types.NodeStatusUnknown, state.Status(nodes[0]))
	require.Equal(t, types.NodeStatusActive, state.Status(nodes[1]))
}

func TestNetworkState_LocalNodeExperiences(t *testing.T) {
	state := makeState(t)
	nodes := types.MakeTestNodes(3)
	for i, node := range nodes {
		for j := 0; j <= i; j++ {
			state.UpdateExperience(node, types.InteractionSuccess)
		}
	}

	pair := state.LocalNodeExperiences()
	require.True(t, pair.Node.Equal(state.LocalNode()))
	require.Len(t, pair.Experiences, 3)

	total := int64(0)
	for _, e := range pair.Experiences {
		total += e.Experience.SuccessfulCalls()
	}
	require.EqualValues(t, 6, total, fmt.Sprint(pair.Experiences))
}
