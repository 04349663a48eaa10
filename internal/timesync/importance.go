package timesync

import (
	"sync"

	"github.com/NemProject/nem-sub016/types"
)

// StaticImportances is an ImportanceSource backed by explicitly set values.
// It stands in for the account state when importances are configured rather
// than calculated.
type StaticImportances struct {
	mtx         sync.RWMutex
	height      int64
	vectorSize  int
	importances map[string]float64
}

var _ ImportanceSource = (*StaticImportances)(nil)

// NewStaticImportances creates an empty source at height.
func NewStaticImportances(height int64) *StaticImportances {
	return &StaticImportances{height: height, importances: map[string]float64{}}
}

// Set sets the importance of node at the current height.
func (s *StaticImportances) Set(node *types.Node, importance float64) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.importances[node.Key()] = importance
}

// SetVectorSize overrides the importance vector size. By default it is the
// number of nodes with an importance.
func (s *StaticImportances) SetVectorSize(size int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.vectorSize = size
}

func (s *StaticImportances) Importance(node *types.Node) (float64, int64, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	importance, ok := s.importances[node.Key()]
	return importance, s.height, ok
}

func (s *StaticImportances) LastRecalculationHeight() int64 {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.height
}

func (s *StaticImportances) ImportanceVectorSize() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.vectorSize > 0 {
		return s.vectorSize
	}
	return len(s.importances)
}
