package types

import (
	"encoding/json"
	"time"
)

// CommunicationTimeStamps are the send and receive times a remote node
// reports for a time synchronization request, in its own network time.
type CommunicationTimeStamps struct {
	SendTimeStamp    time.Time
	ReceiveTimeStamp time.Time
}

type communicationTimeStampsJSON struct {
	SendTimeStamp    int64 `json:"sendTimeStamp"`
	ReceiveTimeStamp int64 `json:"receiveTimeStamp"`
}

// MarshalJSON encodes the stamps as milliseconds since the epoch.
func (c CommunicationTimeStamps) MarshalJSON() ([]byte, error) {
	return json.Marshal(communicationTimeStampsJSON{
		SendTimeStamp:    c.SendTimeStamp.UnixMilli(),
		ReceiveTimeStamp: c.ReceiveTimeStamp.UnixMilli(),
	})
}

func (c *CommunicationTimeStamps) UnmarshalJSON(data []byte) error {
	var v communicationTimeStampsJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.SendTimeStamp = time.UnixMilli(v.SendTimeStamp)
	c.ReceiveTimeStamp = time.UnixMilli(v.ReceiveTimeStamp)
	return nil
}

// TimeSynchronizationResult records one clock adjustment round.
type TimeSynchronizationResult struct {
	TimeStamp         time.Time     `json:"timeStamp"`
	CurrentTimeOffset time.Duration `json:"currentTimeOffset"`
	Change            time.Duration `json:"change"`
}
