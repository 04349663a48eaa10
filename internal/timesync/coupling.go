package timesync

import (
	"math"

	"github.com/NemProject/nem-sub016/internal/netstate"
)

const (
	// StartDecayAfterRound is the node age after which coupling decays.
	StartDecayAfterRound = 5
	// DecayStrength is the exponential decay rate per round.
	DecayStrength = 0.3
	// MinCoupling is the floor of the coupling.
	MinCoupling = 0.1
)

// decay returns exp(-DecayStrength·max(age-StartDecayAfterRound, 0)).
func decay(age netstate.NodeAge) float64 {
	rounds := math.Max(float64(age-StartDecayAfterRound), 0)
	return math.Exp(-DecayStrength * rounds)
}

// Coupling is the share of a computed offset that is applied to the clock.
// Young nodes follow the network fully; older nodes trust their own clock
// more, down to MinCoupling.
func Coupling(age netstate.NodeAge) float64 {
	return math.Max(decay(age), MinCoupling)
}
