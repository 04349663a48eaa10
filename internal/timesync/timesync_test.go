package timesync

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NemProject/nem-sub016/internal/netstate"
	"github.com/NemProject/nem-sub016/types"
)

func ms(v int64) time.Time { return time.UnixMilli(v) }

// makeSample returns a sample with a 10ms round trip and the given offset.
func makeSample(node *types.Node, offset time.Duration) Sample {
	localSend := ms(10000)
	return Sample{
		Node:         node,
		LocalSend:    localSend,
		LocalReceive: localSend.Add(10 * time.Millisecond),
		Remote: types.CommunicationTimeStamps{
			ReceiveTimeStamp: localSend.Add(5*time.Millisecond + offset),
			SendTimeStamp:    localSend.Add(5*time.Millisecond + offset),
		},
	}
}

func TestSample_Offset(t *testing.T) {
	s := Sample{
		LocalSend:    ms(1000),
		LocalReceive: ms(1200),
		Remote: types.CommunicationTimeStamps{
			SendTimeStamp:    ms(1100),
			ReceiveTimeStamp: ms(1105),
		},
	}

	assert.Equal(t, 205*time.Millisecond, s.RoundTripTime())
	assert.Equal(t, 2500*time.Microsecond, s.Offset())
}

func TestSample_OffsetOfHelper(t *testing.T) {
	s := makeSample(nil, -300*time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, s.RoundTripTime())
	assert.Equal(t, -300*time.Millisecond, s.Offset())
}

func TestCoupling(t *testing.T) {
	for age := netstate.NodeAge(0); age <= StartDecayAfterRound; age++ {
		assert.Equal(t, 1.0, Coupling(age), "age %d", age)
	}

	expected := map[netstate.NodeAge]float64{
		StartDecayAfterRound + 1: 0.7408,
		StartDecayAfterRound + 3: 0.4066,
		StartDecayAfterRound + 5: 0.2231,
		StartDecayAfterRound + 7: 0.1225,
		StartDecayAfterRound + 8: 0.1,
		1000:                     0.1,
	}
	for age, coupling := range expected {
		assert.InDelta(t, coupling, Coupling(age), 0.0001, "age %d", age)
	}
}

func TestToleratedDeviation(t *testing.T) {
	assert.Equal(t, ToleratedDeviationStart, ToleratedDeviation(0))
	assert.Equal(t, ToleratedDeviationStart, ToleratedDeviation(StartDecayAfterRound))
	assert.Less(t, int64(ToleratedDeviation(StartDecayAfterRound+1)), int64(ToleratedDeviationStart))
	assert.Equal(t, ToleratedDeviationMinimum, ToleratedDeviation(100))
}

func TestResponseDelayDetectionFilter(t *testing.T) {
	fast := makeSample(nil, 0)
	slow := fast
	slow.LocalReceive = slow.LocalSend.Add(MaxRoundTripTime + 20*time.Millisecond)

	filtered := ResponseDelayDetectionFilter().Filter([]Sample{fast, slow}, 0)
	require.Equal(t, []Sample{fast}, filtered)
}

func TestClampingFilter(t *testing.T) {
	samples := []Sample{
		makeSample(nil, 30*time.Minute),
		makeSample(nil, -119*time.Minute),
		makeSample(nil, 121*time.Minute),
		makeSample(nil, 30*time.Second),
	}

	young := ClampingFilter().Filter(samples, 0)
	assert.Len(t, young, 3)

	old := ClampingFilter().Filter(samples, 100)
	require.Len(t, old, 1)
	assert.Equal(t, 30*time.Second, old[0].Offset())
}

func TestAlphaTrimmedMeanFilter(t *testing.T) {
	var samples []Sample
	for i := 10; i > 0; i-- {
		samples = append(samples, makeSample(nil, time.Duration(i)*time.Second))
	}

	filtered := AlphaTrimmedMeanFilter().Filter(samples, 0)
	require.Len(t, filtered, 6)
	assert.Equal(t, 3*time.Second, filtered[0].Offset())
	assert.Equal(t, 8*time.Second, filtered[5].Offset())

	// too few samples to trim
	assert.Len(t, AlphaTrimmedMeanFilter().Filter(samples[:2], 0), 2)
	assert.Empty(t, AlphaTrimmedMeanFilter().Filter(nil, 0))
}

func TestCoupledStrategy_NoSamples(t *testing.T) {
	strategy := NewCoupledStrategy(DefaultFilter(), NewStaticImportances(1))

	_, err := strategy.UpdateOffset(nil, 0)
	require.ErrorIs(t, err, ErrNoSamples)

	// every sample is filtered out
	slow := makeSample(types.MakeTestNode("a"), 0)
	slow.LocalReceive = slow.LocalSend.Add(2 * MaxRoundTripTime)
	_, err = strategy.UpdateOffset([]Sample{slow}, 0)
	require.ErrorIs(t, err, ErrNoSamples)
}

func TestCoupledStrategy_ImportanceWeighting(t *testing.T) {
	nodes := types.MakeTestNodes(2)
	importances := NewStaticImportances(1)
	importances.Set(nodes[0], 0.3)
	importances.Set(nodes[1], 0.1)
	importances.SetVectorSize(100)

	samples := []Sample{
		makeSample(nodes[0], 100*time.Millisecond),
		makeSample(nodes[1], 500*time.Millisecond),
	}
	strategy := NewCoupledStrategy(AggregateFilter{}, importances)

	// cumulative importance 0.4 beats the view share 0.02
	offset, err := strategy.UpdateOffset(samples, 0)
	require.NoError(t, err)
	assert.InDelta(t, float64(200*time.Millisecond), float64(offset), float64(time.Microsecond))

	// coupling applies on top
	offset, err = strategy.UpdateOffset(samples, StartDecayAfterRound+20)
	require.NoError(t, err)
	assert.InDelta(t, float64(20*time.Millisecond), float64(offset), float64(time.Microsecond))
}

func TestCoupledStrategy_ManyUnimportantNodes(t *testing.T) {
	nodes := types.MakeTestNodes(4)
	importances := NewStaticImportances(1)
	samples := make([]Sample, len(nodes))
	for i, node := range nodes {
		importances.Set(node, 0.01)
		samples[i] = makeSample(node, time.Second)
	}
	importances.SetVectorSize(8)

	// the view share 0.5 beats the cumulative importance 0.04
	offset, err := NewCoupledStrategy(AggregateFilter{}, importances).UpdateOffset(samples, 0)
	require.NoError(t, err)
	assert.InDelta(t, float64(80*time.Millisecond), float64(offset), float64(time.Microsecond))
}

func TestNetworkTime_Threshold(t *testing.T) {
	mockClock := clock.NewMock()
	mockClock.Set(time.Unix(1000, 0))
	networkTime := NewNetworkTime(mockClock, DefaultAdjustmentThreshold)

	result := networkTime.UpdateOffset(50 * time.Millisecond)
	assert.Zero(t, result.Change)
	assert.Zero(t, networkTime.Offset())

	result = networkTime.UpdateOffset(150 * time.Millisecond)
	assert.Equal(t, 150*time.Millisecond, result.Change)
	assert.Equal(t, 150*time.Millisecond, result.CurrentTimeOffset)

	result = networkTime.UpdateOffset(-200 * time.Millisecond)
	assert.Equal(t, -200*time.Millisecond, result.Change)
	assert.Equal(t, -50*time.Millisecond, networkTime.Offset())
	assert.True(t, networkTime.Now().Equal(time.Unix(1000, 0).Add(-50*time.Millisecond)))
	assert.True(t, result.TimeStamp.Equal(networkTime.Now()))
}
