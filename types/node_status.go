package types

import (
	"fmt"
	"strings"
)

// NodeStatus is the health of a known node as observed by the local node.
type NodeStatus int

const (
	// NodeStatusUnknown is reported for nodes that are not tracked.
	NodeStatusUnknown NodeStatus = iota
	// NodeStatusActive nodes answered the last probe and are compatible.
	NodeStatusActive
	// NodeStatusInactive nodes could not be reached.
	NodeStatusInactive
	// NodeStatusBusy nodes accepted a connection but did not answer in time.
	NodeStatusBusy
	// NodeStatusFailure nodes answered with garbage or are incompatible.
	NodeStatusFailure
)

// TrackedNodeStatuses lists every status that places a node into a registry
// bucket.
var TrackedNodeStatuses = []NodeStatus{
	NodeStatusActive,
	NodeStatusInactive,
	NodeStatusBusy,
	NodeStatusFailure,
}

func (s NodeStatus) String() string {
	switch s {
	case NodeStatusActive:
		return "active"
	case NodeStatusInactive:
		return "inactive"
	case NodeStatusBusy:
		return "busy"
	case NodeStatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// IsBlacklisted reports whether nodes with this status are candidates for
// eviction.
func (s NodeStatus) IsBlacklisted() bool {
	return s == NodeStatusInactive || s == NodeStatusFailure
}

// ParseNodeStatus parses the lower case name of a status.
func ParseNodeStatus(s string) (NodeStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return NodeStatusActive, nil
	case "inactive":
		return NodeStatusInactive, nil
	case "busy":
		return NodeStatusBusy, nil
	case "failure":
		return NodeStatusFailure, nil
	case "unknown":
		return NodeStatusUnknown, nil
	default:
		return NodeStatusUnknown, fmt.Errorf("unknown node status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s NodeStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *NodeStatus) UnmarshalText(text []byte) error {
	status, err := ParseNodeStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}
