package timesync

import (
	"time"

	"github.com/NemProject/nem-sub016/types"
)

// Sample is the outcome of one time synchronization request: when the local
// node sent and received it in local network time, and when the remote node
// received and answered it in its network time.
type Sample struct {
	Node         *types.Node
	LocalSend    time.Time
	LocalReceive time.Time
	Remote       types.CommunicationTimeStamps
}

// RoundTripTime is the time the request spent on the wire: the local
// duration minus the time the remote node spent processing it.
func (s Sample) RoundTripTime() time.Duration {
	return s.LocalReceive.Sub(s.LocalSend) - s.Remote.SendTimeStamp.Sub(s.Remote.ReceiveTimeStamp)
}

// Offset estimates how far the remote clock is ahead of the local clock,
// assuming both directions take the same time.
func (s Sample) Offset() time.Duration {
	return s.Remote.ReceiveTimeStamp.Sub(s.LocalSend) - s.RoundTripTime()/2
}
