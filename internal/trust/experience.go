package trust

import (
	"encoding/json"
	"sync/atomic"

	"github.com/NemProject/nem-sub016/types"
)

// NodeExperience holds the outcome counters of the interactions one node had
// with another. The counters are safe for concurrent increments.
type NodeExperience struct {
	successfulCalls int64
	failedCalls     int64
}

// NewNodeExperience creates an experience with the given counters.
func NewNodeExperience(successfulCalls, failedCalls int64) *NodeExperience {
	return &NodeExperience{successfulCalls: successfulCalls, failedCalls: failedCalls}
}

func (e *NodeExperience) SuccessfulCalls() int64 { return atomic.LoadInt64(&e.successfulCalls) }
func (e *NodeExperience) FailedCalls() int64 { return atomic.LoadInt64(&e.failedCalls) }

// TotalCalls returns the number of interactions with a non-neutral outcome.
func (e *NodeExperience) TotalCalls() int64 {
	return e.SuccessfulCalls() + e.FailedCalls()
}

func (e *NodeExperience) IncrementSuccessfulCalls() { atomic.AddInt64(&e.successfulCalls, 1) }
func (e *NodeExperience) IncrementFailedCalls() { atomic.AddInt64(&e.failedCalls, 1) }

// LocalTrust is the unnormalized opinion derived from the counters.
func (e *NodeExperience) LocalTrust() float64 {
	diff := e.SuccessfulCalls() - e.FailedCalls()
	if diff < 0 {
		return 0
	}
	return float64(diff)
}

// set overwrites both counters. Used when a gossiped table replaces an older one.
func (e *NodeExperience) set(successfulCalls, failedCalls int64) {
	atomic.StoreInt64(&e.successfulCalls, successfulCalls)
	atomic.StoreInt64(&e.failedCalls, failedCalls)
}

func (e *NodeExperience) String() string {
	b, _ := json.Marshal(e)
	return string(b)
}

type nodeExperienceJSON struct {
	SuccessfulCalls int64 `json:"s"`
	FailedCalls     int64 `json:"f"`
}

func (e *NodeExperience) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeExperienceJSON{
		SuccessfulCalls: e.SuccessfulCalls(),
		FailedCalls:     e.FailedCalls(),
	})
}

func (e *NodeExperience) UnmarshalJSON(data []byte) error {
	var v nodeExperienceJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	e.set(v.SuccessfulCalls, v.FailedCalls)
	return nil
}

// NodeExperiencePair is one row entry of an exported experience table.
type NodeExperiencePair struct {
	Node       *types.Node     `json:"node"`
	Experience *NodeExperience `json:"experience"`
}

// NodeExperiencesPair is the experience table a node reports about its peers.
type NodeExperiencesPair struct {
	Node        *types.Node          `json:"node"`
	Experiences []NodeExperiencePair `json:"experiences"`
}
