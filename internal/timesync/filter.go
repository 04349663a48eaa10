package timesync

import (
	"math"
	"sort"
	"time"

	"github.com/NemProject/nem-sub016/internal/netstate"
)

const (
	// MaxRoundTripTime is the longest acceptable request duration.
	MaxRoundTripTime = 1000 * time.Millisecond

	// ToleratedDeviationStart is the largest offset accepted by a young node.
	ToleratedDeviationStart = 120 * time.Minute
	// ToleratedDeviationMinimum is the largest offset accepted by an old node.
	ToleratedDeviationMinimum = 1 * time.Minute

	// Alpha is the share of samples the trimmed mean discards, half at
	// each end.
	Alpha = 0.4
)

// Filter removes unusable samples.
type Filter interface {
	Filter(samples []Sample, age netstate.NodeAge) []Sample
}

// FilterFunc adapts a function to a Filter.
type FilterFunc func(samples []Sample, age netstate.NodeAge) []Sample

func (f FilterFunc) Filter(samples []Sample, age netstate.NodeAge) []Sample {
	return f(samples, age)
}

// AggregateFilter applies filters in order.
type AggregateFilter []Filter

func (a AggregateFilter) Filter(samples []Sample, age netstate.NodeAge) []Sample {
	for _, f := range a {
		samples = f.Filter(samples, age)
	}
	return samples
}

// DefaultFilter drops slow responses, then implausible offsets, then the
// outer samples by offset.
func DefaultFilter() Filter {
	return AggregateFilter{
		ResponseDelayDetectionFilter(),
		ClampingFilter(),
		AlphaTrimmedMeanFilter(),
	}
}

// ResponseDelayDetectionFilter drops samples whose round trip took longer
// than MaxRoundTripTime.
func ResponseDelayDetectionFilter() Filter {
	return FilterFunc(func(samples []Sample, _ netstate.NodeAge) []Sample {
		filtered := make([]Sample, 0, len(samples))
		for _, s := range samples {
			if s.RoundTripTime() <= MaxRoundTripTime {
				filtered = append(filtered, s)
			}
		}
		return filtered
	})
}

// ClampingFilter drops samples whose offset exceeds the tolerated deviation.
// The tolerance shrinks from ToleratedDeviationStart to
// ToleratedDeviationMinimum as the node ages.
func ClampingFilter() Filter {
	return FilterFunc(func(samples []Sample, age netstate.NodeAge) []Sample {
		tolerated := ToleratedDeviation(age)
		filtered := make([]Sample, 0, len(samples))
		for _, s := range samples {
			offset := s.Offset()
			if offset <= tolerated && offset >= -tolerated {
				filtered = append(filtered, s)
			}
		}
		return filtered
	})
}

// ToleratedDeviation returns the largest accepted offset for age.
func ToleratedDeviation(age netstate.NodeAge) time.Duration {
	decayed := time.Duration(decay(age) * float64(ToleratedDeviationStart))
	if decayed < ToleratedDeviationMinimum {
		return ToleratedDeviationMinimum
	}
	return decayed
}

// AlphaTrimmedMeanFilter sorts samples by offset and drops Alpha/2 of them at
// each end.
func AlphaTrimmedMeanFilter() Filter {
	return FilterFunc(func(samples []Sample, _ netstate.NodeAge) []Sample {
		sorted := append([]Sample(nil), samples...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset() < sorted[j].Offset() })

		discard := int(math.Floor(float64(len(sorted)) * Alpha / 2))
		return sorted[discard : len(sorted)-discard]
	})
}
