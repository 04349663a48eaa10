package timesync

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/NemProject/nem-sub016/types"
)

// DefaultAdjustmentThreshold is the smallest offset that changes the clock.
const DefaultAdjustmentThreshold = 75 * time.Millisecond

// NetworkTime is the local clock corrected by the offset agreed on with the
// network.
type NetworkTime struct {
	clock     clock.Clock
	threshold time.Duration

	mtx    sync.RWMutex
	offset time.Duration
}

// NewNetworkTime creates a network time with a zero offset.
func NewNetworkTime(c clock.Clock, threshold time.Duration) *NetworkTime {
	return &NetworkTime{clock: c, threshold: threshold}
}

// Now returns the current network time.
func (t *NetworkTime) Now() time.Time {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.clock.Now().Add(t.offset)
}

// Offset returns the cumulative offset applied to the local clock.
func (t *NetworkTime) Offset() time.Duration {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.offset
}

// UpdateOffset applies offset if its magnitude exceeds the threshold and
// returns what was done. Smaller offsets are recorded as a zero change.
func (t *NetworkTime) UpdateOffset(offset time.Duration) types.TimeSynchronizationResult {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	change := time.Duration(0)
	if offset > t.threshold || offset < -t.threshold {
		change = offset
		t.offset += change
	}

	return types.TimeSynchronizationResult{
		TimeStamp:         t.clock.Now().Add(t.offset),
		CurrentTimeOffset: t.offset,
		Change:            change,
	}
}
