package trust

import (
	"math/rand"

	"github.com/mroth/weightedrand"

	"github.com/NemProject/nem-sub016/types"
)

// weightScale converts normalized trust values into chooser weights.
const weightScale = 1 << 30

// NodeSelector picks interaction partners.
type NodeSelector interface {
	// SelectNode returns one partner, or nil when there is none.
	SelectNode() *types.Node
	// SelectNodes returns distinct partners.
	SelectNodes() []*types.Node
}

// BasicNodeSelector draws nodes without replacement with probability
// proportional to their trust. The local node and nodes without trust are
// never selected.
type BasicNodeSelector struct {
	maxNodes int
	ctx      *Context
	trust    Vector
	accept   func(node *types.Node) bool
	rnd      *rand.Rand
}

var _ NodeSelector = (*BasicNodeSelector)(nil)

// NewBasicNodeSelector computes the trust of ctx with provider and returns a
// selector returning at most maxNodes nodes per call.
func NewBasicNodeSelector(maxNodes int, provider Provider, ctx *Context, rnd *rand.Rand) (*BasicNodeSelector, error) {
	trust, err := provider.ComputeTrust(ctx)
	if err != nil {
		return nil, err
	}
	return &BasicNodeSelector{
		maxNodes: maxNodes,
		ctx:      ctx,
		trust:    trust,
		rnd:      rnd,
	}, nil
}

// Trust returns the trust vector the selector draws from.
func (s *BasicNodeSelector) Trust() Vector { return s.trust.Clone() }

func (s *BasicNodeSelector) SelectNode() *types.Node {
	nodes := s.selectNodes(1)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func (s *BasicNodeSelector) SelectNodes() []*types.Node {
	return s.selectNodes(s.maxNodes)
}

func (s *BasicNodeSelector) selectNodes(limit int) []*types.Node {
	local := s.ctx.LocalIndex()
	candidates := make([]weightedrand.Choice, 0, len(s.trust))
	for i, value := range s.trust {
		if i == local || value <= 0 {
			continue
		}
		if s.accept != nil && !s.accept(s.ctx.nodes[i]) {
			continue
		}
		weight := uint(value * weightScale)
		if weight == 0 {
			weight = 1
		}
		candidates = append(candidates, weightedrand.NewChoice(i, weight))
	}

	selected := make([]*types.Node, 0, limit)
	for len(selected) < limit && len(candidates) > 0 {
		chooser, err := weightedrand.NewChooser(candidates...)
		if err != nil {
			break
		}

		i := chooser.PickSource(s.rnd).(int)
		selected = append(selected, s.ctx.nodes[i])
		for k, c := range candidates {
			if c.Item.(int) == i {
				candidates = append(candidates[:k], candidates[k+1:]...)
				break
			}
		}
	}
	return selected
}

// ImportanceSource reports the importance of nodes as of the last importance
// recalculation.
type ImportanceSource interface {
	// Importance returns the importance of node and the height it was
	// calculated at. ok is false when node has no known importance.
	Importance(node *types.Node) (importance float64, height int64, ok bool)
	// LastRecalculationHeight is the height of the latest recalculation.
	LastRecalculationHeight() int64
}

// NewImportanceAwareNodeSelector returns a selector that additionally
// excludes nodes whose importance is below minImportance or was not
// calculated at the last recalculation height.
func NewImportanceAwareNodeSelector(
	maxNodes int,
	minImportance float64,
	provider Provider,
	ctx *Context,
	importances ImportanceSource,
	rnd *rand.Rand,
) (*BasicNodeSelector, error) {
	s, err := NewBasicNodeSelector(maxNodes, provider, ctx, rnd)
	if err != nil {
		return nil, err
	}

	height := importances.LastRecalculationHeight()
	s.accept = func(node *types.Node) bool {
		importance, at, ok := importances.Importance(node)
		return ok && at == height && importance >= minImportance
	}
	return s, nil
}

// PreTrustAwareNodeSelector makes sure refresh rounds keep talking to the
// pre-trusted nodes. A pre-trusted local node adds every other online
// pre-trusted node; otherwise one random online pre-trusted node is added.
// When no pre-trusted node is online all of them are added.
type PreTrustAwareNodeSelector struct {
	inner  NodeSelector
	ctx    *Context
	source StatusSource
	rnd    *rand.Rand
}

var _ NodeSelector = (*PreTrustAwareNodeSelector)(nil)

// NewPreTrustAwareNodeSelector wraps inner.
func NewPreTrustAwareNodeSelector(inner NodeSelector, ctx *Context, source StatusSource, rnd *rand.Rand) *PreTrustAwareNodeSelector {
	return &PreTrustAwareNodeSelector{inner: inner, ctx: ctx, source: source, rnd: rnd}
}

func (s *PreTrustAwareNodeSelector) SelectNode() *types.Node {
	return s.inner.SelectNode()
}

func (s *PreTrustAwareNodeSelector) SelectNodes() []*types.Node {
	selected := s.inner.SelectNodes()
	seen := make(map[string]bool, len(selected))
	for _, node := range selected {
		seen[node.Key()] = true
	}

	var all, online []*types.Node
	for _, node := range s.ctx.preTrusted.Nodes() {
		if node.Equal(s.ctx.local) {
			continue
		}
		all = append(all, node)
		if s.source.Status(node) == types.NodeStatusActive {
			online = append(online, node)
		}
	}

	var extra []*types.Node
	switch {
	case len(online) == 0:
		extra = all
	case s.ctx.preTrusted.IsPreTrusted(s.ctx.local):
		extra = online
	default:
		extra = []*types.Node{randomPick(s.rnd, online)}
	}

	for _, node := range extra {
		if !seen[node.Key()] {
			seen[node.Key()] = true
			selected = append(selected, node)
		}
	}
	return selected
}
