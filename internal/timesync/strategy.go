package timesync

import (
	"errors"
	"time"

	"github.com/NemProject/nem-sub016/internal/netstate"
	"github.com/NemProject/nem-sub016/internal/trust"
)

// ErrNoSamples is returned when a round has no usable samples left.
var ErrNoSamples = errors.New("no time synchronization samples available")

// ImportanceSource extends the importance view of the node selector with the
// size of the last importance vector.
type ImportanceSource interface {
	trust.ImportanceSource
	// ImportanceVectorSize is the number of accounts in the last
	// importance recalculation.
	ImportanceVectorSize() int
}

// Strategy turns samples into the offset to apply to the network clock.
type Strategy interface {
	UpdateOffset(samples []Sample, age netstate.NodeAge) (time.Duration, error)
}

// CoupledStrategy weights every filtered sample offset with the importance of
// its node and scales the sum by the coupling of the node age.
//
// The weights are normalized by the larger of the cumulative importance of
// the sample nodes and the share of the importance vector they represent, so
// neither a few important nodes nor many unimportant nodes dominate.
type CoupledStrategy struct {
	filter      Filter
	importances ImportanceSource
}

var _ Strategy = (*CoupledStrategy)(nil)

// NewCoupledStrategy creates the strategy.
func NewCoupledStrategy(filter Filter, importances ImportanceSource) *CoupledStrategy {
	return &CoupledStrategy{filter: filter, importances: importances}
}

func (s *CoupledStrategy) UpdateOffset(samples []Sample, age netstate.NodeAge) (time.Duration, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	filtered := s.filter.Filter(samples, age)
	if len(filtered) == 0 {
		return 0, ErrNoSamples
	}

	importances := make([]float64, len(filtered))
	cumulative := 0.0
	for i, sample := range filtered {
		if importance, _, ok := s.importances.Importance(sample.Node); ok {
			importances[i] = importance
			cumulative += importance
		}
	}

	viewShare := float64(len(filtered))
	if size := s.importances.ImportanceVectorSize(); size > 0 {
		viewShare /= float64(size)
	}

	scaling := 1 / viewShare
	if cumulative > viewShare {
		scaling = 1 / cumulative
	}

	sum := 0.0
	for i, sample := range filtered {
		sum += float64(sample.Offset()) * importances[i] * scaling
	}
	return time.Duration(sum * Coupling(age)), nil
}
