package netstate

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/NemProject/nem-sub016/internal/trust"
	"github.com/NemProject/nem-sub016/types"
)

// SelectionConfig limits how many partners each kind of round talks to.
type SelectionConfig struct {
	ChainSyncNodes int
	RefreshNodes   int
	TimeSyncNodes  int

	// Nodes below this importance are never used for time synchronization.
	MinImportance float64
}

// DefaultSelectionConfig returns the default limits.
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{
		ChainSyncNodes: 5,
		RefreshNodes:   10,
		TimeSyncNodes:  20,
		MinImportance:  0.0001,
	}
}

// Validate performs basic validation.
func (cfg SelectionConfig) Validate() error {
	if cfg.ChainSyncNodes <= 0 || cfg.RefreshNodes <= 0 || cfg.TimeSyncNodes <= 0 {
		return errors.New("node selection limits must be positive")
	}
	if cfg.MinImportance < 0 {
		return errors.New("min importance can't be negative")
	}
	return nil
}

// SelectorFactory builds the node selectors of the different rounds. Every
// call takes a fresh trust context from the network state.
type SelectorFactory struct {
	state       *NetworkState
	importances trust.ImportanceSource

	mtx sync.Mutex
	rnd *rand.Rand
}

// NewSelectorFactory creates a factory. importances may be nil when no time
// synchronization selector is needed.
func NewSelectorFactory(state *NetworkState, importances trust.ImportanceSource) *SelectorFactory {
	return &SelectorFactory{
		state:       state,
		importances: importances,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ChainSyncSelector draws active partners for block and transaction
// synchronization.
func (f *SelectorFactory) ChainSyncSelector() (trust.NodeSelector, error) {
	return trust.NewBasicNodeSelector(
		f.state.cfg.Selection.ChainSyncNodes,
		f.activeTrustProvider(),
		f.state.TrustContext(),
		f.newRand(),
	)
}

// RefreshSelector draws nodes whose status should be refreshed. Inactive and
// busy nodes stay eligible so they get a chance to recover, and pre-trusted
// nodes are always included.
func (f *SelectorFactory) RefreshSelector() (trust.NodeSelector, error) {
	ctx := f.state.TrustContext()
	provider := trust.NewStatusMaskTrustProvider(
		trust.NewLowComTrustProvider(trust.EigenTrustPlusPlus{}),
		f.state.registry,
		types.NodeStatusActive,
		types.NodeStatusBusy,
		types.NodeStatusInactive,
	)

	inner, err := trust.NewBasicNodeSelector(f.state.cfg.Selection.RefreshNodes, provider, ctx, f.newRand())
	if err != nil {
		return nil, err
	}
	return trust.NewPreTrustAwareNodeSelector(inner, ctx, f.state.registry, f.newRand()), nil
}

// TimeSyncSelector draws active partners with a current, sufficiently large
// importance.
func (f *SelectorFactory) TimeSyncSelector() (trust.NodeSelector, error) {
	if f.importances == nil {
		return nil, errors.New("no importance source configured")
	}
	return trust.NewImportanceAwareNodeSelector(
		f.state.cfg.Selection.TimeSyncNodes,
		f.state.cfg.Selection.MinImportance,
		f.activeTrustProvider(),
		f.state.TrustContext(),
		f.importances,
		f.newRand(),
	)
}

func (f *SelectorFactory) activeTrustProvider() trust.Provider {
	return trust.NewStatusMaskTrustProvider(
		trust.NewLowComTrustProvider(trust.EigenTrustPlusPlus{}),
		f.state.registry,
		types.NodeStatusActive,
	)
}

// newRand returns a source owned by a single selector.
func (f *SelectorFactory) newRand() *rand.Rand {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return rand.New(rand.NewSource(f.rnd.Int63()))
}
