package types

import (
	"fmt"
	"sync/atomic"
)

var testNodePort uint32 = 7890

// MakeTestNode returns a node with a fresh identity and a unique local
// endpoint. It is meant for tests in this and dependent packages.
func MakeTestNode(name string) *Node {
	identity, err := GenerateNodeIdentity(name)
	if err != nil {
		panic(fmt.Sprintf("failed to generate identity: %v", err))
	}

	port := int(atomic.AddUint32(&testNodePort, 1))%60000 + 1024
	return NewNode(
		identity,
		NodeEndpoint{Protocol: "http", Host: "127.0.0.1", Port: port},
		NodeMetaData{Platform: "test", Application: "nem-peer", Version: "1.0.0", NetworkID: 104},
	)
}

// MakeTestNodes returns n test nodes named node-0 .. node-(n-1).
func MakeTestNodes(n int) []*Node {
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = MakeTestNode(fmt.Sprintf("node-%d", i))
	}
	return nodes
}
