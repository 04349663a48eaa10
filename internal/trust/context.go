package trust

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/NemProject/nem-sub016/types"
)

// ErrNoPreTrustedNodes is returned when a trust computation has no pre-trusted
// node to anchor on and the empty pre-trust override is off.
var ErrNoPreTrustedNodes = errors.New("no pre-trusted nodes")

// Parameters tune the trust computation.
type Parameters struct {
	// Maximum number of fixed-point iterations.
	MaxIterations int

	// Weight of the pre-trust vector in every iteration.
	Alpha float64

	// Iteration stops once the L1 change drops below this value.
	Epsilon float64

	// Nodes with fewer calls than this get a share of the trust.
	MinCommunication int64

	// Share, in percent, of the trust given to low-communication nodes.
	LowComWeight float64

	// Use uniform pre-trust over all nodes when none is configured.
	// Intended for development networks only.
	AllowEmptyPreTrust bool
}

// DefaultParameters returns the parameters used by production nodes.
func DefaultParameters() Parameters {
	return Parameters{
		MaxIterations:    20,
		Alpha:            0.1,
		Epsilon:          0.01,
		MinCommunication: 10,
		LowComWeight:     30,
	}
}

// Validate performs basic validation.
func (p Parameters) Validate() error {
	switch {
	case p.MaxIterations <= 0:
		return errors.New("max iterations must be positive")
	case p.Alpha < 0 || p.Alpha > 1:
		return fmt.Errorf("alpha %v is not in [0, 1]", p.Alpha)
	case p.Epsilon <= 0:
		return errors.New("epsilon must be positive")
	case p.MinCommunication < 0:
		return errors.New("min communication can't be negative")
	case p.LowComWeight < 0 || p.LowComWeight > 100:
		return fmt.Errorf("low communication weight %v is not in [0, 100]", p.LowComWeight)
	}
	return nil
}

// PreTrustedNodes is the configured set of seed nodes.
type PreTrustedNodes struct {
	nodes map[string]*types.Node
}

// NewPreTrustedNodes creates the set.
func NewPreTrustedNodes(nodes []*types.Node) *PreTrustedNodes {
	set := &PreTrustedNodes{nodes: make(map[string]*types.Node, len(nodes))}
	for _, node := range nodes {
		set.nodes[node.Key()] = node
	}
	return set
}

func (p *PreTrustedNodes) Size() int { return len(p.nodes) }

// IsPreTrusted reports whether node is in the set.
func (p *PreTrustedNodes) IsPreTrusted(node *types.Node) bool {
	_, ok := p.nodes[node.Key()]
	return ok
}

// Nodes returns the pre-trusted nodes ordered by key.
func (p *PreTrustedNodes) Nodes() []*types.Node {
	return sortedByKey(p.nodes)
}

// Vector returns the uniform pre-trust vector over those of nodes that are
// pre-trusted. The result is all zero when none are.
func (p *PreTrustedNodes) Vector(nodes []*types.Node) Vector {
	v := NewVector(len(nodes))
	for i, node := range nodes {
		if p.IsPreTrusted(node) {
			v[i] = 1
		}
	}
	return v.Normalize()
}

// Context is the immutable input of one trust round: the known nodes with the
// local node appended last, the experience ledger, the pre-trusted set and the
// parameters. A Context must not be reused across rounds.
type Context struct {
	nodes      []*types.Node
	local      *types.Node
	ledger     *Ledger
	preTrusted *PreTrustedNodes
	params     Parameters
}

// NewContext builds a context. known must not contain local.
func NewContext(
	known []*types.Node,
	local *types.Node,
	ledger *Ledger,
	preTrusted *PreTrustedNodes,
	params Parameters,
) *Context {
	nodes := make([]*types.Node, 0, len(known)+1)
	for _, node := range known {
		if !node.Equal(local) {
			nodes = append(nodes, node)
		}
	}
	nodes = append(nodes, local)

	return &Context{
		nodes:      nodes,
		local:      local,
		ledger:     ledger,
		preTrusted: preTrusted,
		params:     params,
	}
}

// Nodes returns a copy of the context nodes. The local node is last.
func (c *Context) Nodes() []*types.Node {
	return append([]*types.Node(nil), c.nodes...)
}

func (c *Context) LocalNode() *types.Node { return c.local }
func (c *Context) Ledger() *Ledger { return c.ledger }
func (c *Context) PreTrustedNodes() *PreTrustedNodes { return c.preTrusted }
func (c *Context) Parameters() Parameters { return c.params }

// LocalIndex is the index of the local node in Nodes.
func (c *Context) LocalIndex() int { return len(c.nodes) - 1 }

// preTrustVector returns the pre-trust vector of the context nodes.
func (c *Context) preTrustVector() (Vector, error) {
	p := c.preTrusted.Vector(c.nodes)
	if !p.IsZero() {
		return p, nil
	}
	if !c.params.AllowEmptyPreTrust {
		return nil, ErrNoPreTrustedNodes
	}

	for i := range p {
		p[i] = 1
	}
	return p.Normalize(), nil
}

// randomPick returns a uniformly chosen node, or nil.
func randomPick(rnd *rand.Rand, nodes []*types.Node) *types.Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[rnd.Intn(len(nodes))]
}
