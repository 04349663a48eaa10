package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Node is a network participant. Identity and metadata never change once the
// node is created; the endpoint and the friendly name may be updated when the
// node reports new values.
type Node struct {
	mtx      sync.RWMutex
	identity NodeIdentity
	endpoint NodeEndpoint
	metaData NodeMetaData
}

// NewNode creates a node.
func NewNode(identity NodeIdentity, endpoint NodeEndpoint, metaData NodeMetaData) *Node {
	return &Node{identity: identity, endpoint: endpoint, metaData: metaData}
}

// Identity returns the node's identity.
func (n *Node) Identity() NodeIdentity {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.identity
}

// Key returns the stable lookup key of the node (hex public key).
func (n *Node) Key() string {
	return n.Identity().Key()
}

// Endpoint returns the current endpoint.
func (n *Node) Endpoint() NodeEndpoint {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.endpoint
}

// SetEndpoint updates the endpoint.
func (n *Node) SetEndpoint(endpoint NodeEndpoint) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.endpoint = endpoint
}

// SetName updates the friendly name of the identity.
func (n *Node) SetName(name string) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.identity.name = name
}

// MetaData returns the node's metadata.
func (n *Node) MetaData() NodeMetaData {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.metaData
}

// Equal compares nodes by identity.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.Identity().Equal(other.Identity())
}

func (n *Node) String() string {
	return fmt.Sprintf("Node{%v @ %v}", n.Identity(), n.Endpoint())
}

type nodeJSON struct {
	MetaData NodeMetaData `json:"metaData"`
	Endpoint NodeEndpoint `json:"endpoint"`
	Identity NodeIdentity `json:"identity"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		MetaData: n.MetaData(),
		Endpoint: n.Endpoint(),
		Identity: n.Identity(),
	})
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var v nodeJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if err := v.Endpoint.Validate(); err != nil {
		return fmt.Errorf("invalid node endpoint: %w", err)
	}

	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.identity = v.Identity
	n.endpoint = v.Endpoint
	n.metaData = v.MetaData
	return nil
}

// ParseNode parses a node description of the form
// "public-key@protocol://host:port". The metadata is left empty.
func ParseNode(s string) (*Node, error) {
	spl := strings.SplitN(s, "@", 2)
	if len(spl) != 2 {
		return nil, fmt.Errorf("invalid node %q: expected public-key@protocol://host:port", s)
	}

	pk, err := hex.DecodeString(spl[0])
	if err != nil {
		return nil, fmt.Errorf("invalid node public key %q: %w", spl[0], err)
	}
	identity, err := NewNodeIdentity(pk, "")
	if err != nil {
		return nil, err
	}
	endpoint, err := ParseNodeEndpoint(spl[1])
	if err != nil {
		return nil, err
	}
	return NewNode(identity, endpoint, NodeMetaData{}), nil
}
