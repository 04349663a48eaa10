package trust

import (
	"math"
	"sort"

	"github.com/NemProject/nem-sub016/types"
)

// Provider computes a trust vector aligned with Context.Nodes. A non-zero
// result sums to one.
type Provider interface {
	ComputeTrust(ctx *Context) (Vector, error)
}

// EigenTrust computes global trust as the fixed point of
//
//	t = α·p + (1−α)·Cᵀ·t
//
// where C holds the row-normalized local trust of every node about every
// other node and p is the pre-trust vector. Rows without any opinion defer to
// p.
type EigenTrust struct{}

var _ Provider = EigenTrust{}

func (EigenTrust) ComputeTrust(ctx *Context) (Vector, error) {
	return computeGlobalTrust(ctx, nil)
}

// EigenTrustPlusPlus extends EigenTrust by weighting the feedback of every
// remote node with its credibility: how closely its opinions match the local
// node's opinions about the nodes both have successfully interacted with.
// Nodes sharing no such experience get zero credibility.
type EigenTrustPlusPlus struct{}

var _ Provider = EigenTrustPlusPlus{}

func (EigenTrustPlusPlus) ComputeTrust(ctx *Context) (Vector, error) {
	return computeGlobalTrust(ctx, feedbackCredibility)
}

type credibilityFunc func(ctx *Context, c *Matrix) Vector

func computeGlobalTrust(ctx *Context, credibility credibilityFunc) (Vector, error) {
	nodes := ctx.nodes
	if len(nodes) == 0 {
		return Vector{}, nil
	}

	p, err := ctx.preTrustVector()
	if err != nil {
		return nil, err
	}

	c := ctx.ledger.LocalTrustMatrix(nodes).NormalizeRows()
	for i := 0; i < c.Rows(); i++ {
		if c.Row(i).IsZero() {
			c.SetRow(i, p)
		}
	}

	var cred Vector
	if credibility != nil {
		cred = credibility(ctx, c)
	}

	params := ctx.params
	t := p.Clone()
	for k := 0; k < params.MaxIterations; k++ {
		weighted := t
		if cred != nil {
			weighted = t.Clone()
			for i := range weighted {
				weighted[i] *= cred[i]
			}
		}

		aggregated := c.MultiplyTransposed(weighted).Normalize()
		if aggregated.IsZero() {
			aggregated = p.Clone()
		}

		next := aggregated.Scale(1 - params.Alpha).Add(p.Clone().Scale(params.Alpha))
		delta := next.L1Distance(t)
		t = next
		if delta < params.Epsilon {
			break
		}
	}

	return t.Normalize(), nil
}

// feedbackCredibility compares the normalized opinions of every remote node
// with the local node's opinions over the nodes marked in the shared
// experience matrix. Credibility is 1 − RMS(difference), clamped to [0, 1].
func feedbackCredibility(ctx *Context, c *Matrix) Vector {
	local := ctx.LocalIndex()
	shared := ctx.ledger.SharedExperienceMatrix(ctx.local, ctx.nodes)

	cred := NewVector(len(ctx.nodes))
	cred[local] = 1
	for i := range ctx.nodes {
		if i == local {
			continue
		}

		var sumSquares float64
		common := 0
		for j := range ctx.nodes {
			if shared.At(i, j) == 0 {
				continue
			}
			d := c.At(local, j) - c.At(i, j)
			sumSquares += d * d
			common++
		}
		if common == 0 {
			continue
		}
		cred[i] = math.Max(0, 1-math.Sqrt(sumSquares/float64(common)))
	}
	return cred
}

// StatusSource reports the registry status of a node.
type StatusSource interface {
	Status(node *types.Node) types.NodeStatus
}

// StatusMaskTrustProvider zeroes the trust of every remote node whose status
// is not allowed.
type StatusMaskTrustProvider struct {
	inner   Provider
	source  StatusSource
	allowed map[types.NodeStatus]bool
}

// NewStatusMaskTrustProvider wraps inner.
func NewStatusMaskTrustProvider(inner Provider, source StatusSource, allowed ...types.NodeStatus) *StatusMaskTrustProvider {
	mask := make(map[types.NodeStatus]bool, len(allowed))
	for _, status := range allowed {
		mask[status] = true
	}
	return &StatusMaskTrustProvider{inner: inner, source: source, allowed: mask}
}

func (p *StatusMaskTrustProvider) ComputeTrust(ctx *Context) (Vector, error) {
	t, err := p.inner.ComputeTrust(ctx)
	if err != nil {
		return nil, err
	}

	local := ctx.LocalIndex()
	for i, node := range ctx.nodes {
		if i != local && !p.allowed[p.source.Status(node)] {
			t[i] = 0
		}
	}
	return t.Normalize(), nil
}

// LowComTrustProvider gives nodes the local node rarely talked to a chance to
// be selected: a LowComWeight percent share of the trust is spread evenly
// over the remote nodes with fewer than MinCommunication calls.
type LowComTrustProvider struct {
	inner Provider
}

// NewLowComTrustProvider wraps inner.
func NewLowComTrustProvider(inner Provider) *LowComTrustProvider {
	return &LowComTrustProvider{inner: inner}
}

func (p *LowComTrustProvider) ComputeTrust(ctx *Context) (Vector, error) {
	t, err := p.inner.ComputeTrust(ctx)
	if err != nil {
		return nil, err
	}

	params := ctx.params
	local := ctx.LocalIndex()
	lowCom := NewVector(len(ctx.nodes))
	for i, node := range ctx.nodes {
		if i == local {
			continue
		}
		if ctx.ledger.lookup(ctx.local, node).TotalCalls() < params.MinCommunication {
			lowCom[i] = 1
		}
	}

	if lowCom.IsZero() {
		return t, nil
	}
	if t.IsZero() {
		return lowCom.Normalize(), nil
	}

	lowCom.Normalize().Scale(params.LowComWeight / 100)
	return t.Normalize().Add(lowCom).Normalize(), nil
}

func sortedByKey(nodes map[string]*types.Node) []*types.Node {
	sorted := make([]*types.Node, 0, len(nodes))
	for _, node := range nodes {
		sorted = append(sorted, node)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key() < sorted[j].Key() })
	return sorted
}
