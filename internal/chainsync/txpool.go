package chainsync

import (
	"sort"
	"sync"
	"time"

	"github.com/NemProject/nem-sub016/types"
)

// TransactionSink accepts unconfirmed transactions pulled from other nodes.
type TransactionSink interface {
	// AddUnconfirmed adds txs and returns the aggregated validation result.
	AddUnconfirmed(txs []*types.Transaction) types.ValidationResult
}

// TransactionPool is a bounded in-memory TransactionSink.
type TransactionPool struct {
	now      func() time.Time
	capacity int

	mtx sync.RWMutex
	txs map[string]*types.Transaction
}

var _ TransactionSink = (*TransactionPool)(nil)

// NewTransactionPool creates a pool holding at most capacity transactions.
func NewTransactionPool(now func() time.Time, capacity int) *TransactionPool {
	return &TransactionPool{now: now, capacity: capacity, txs: map[string]*types.Transaction{}}
}

func (p *TransactionPool) AddUnconfirmed(txs []*types.Transaction) types.ValidationResult {
	now := p.now()

	p.mtx.Lock()
	defer p.mtx.Unlock()

	results := make([]types.ValidationResult, 0, len(txs))
	for _, tx := range txs {
		results = append(results, p.add(tx, now))
	}
	return types.AggregateValidationResults(results...)
}

func (p *TransactionPool) add(tx *types.Transaction, now time.Time) types.ValidationResult {
	key := tx.Hash().String()
	if _, ok := p.txs[key]; ok {
		return types.ValidationNeutral
	}
	if tx.Deadline.Before(now) {
		return types.ValidationFailurePastDeadline
	}
	if len(p.txs) >= p.capacity {
		return types.ValidationFailureTransactionCacheTooFull
	}

	p.txs[key] = tx
	return types.ValidationSuccess
}

// Size returns the number of pooled transactions.
func (p *TransactionPool) Size() int {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return len(p.txs)
}

// Transactions returns the pooled transactions ordered by hash.
func (p *TransactionPool) Transactions() []*types.Transaction {
	p.mtx.RLock()
	keys := make([]string, 0, len(p.txs))
	for key := range p.txs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	txs := make([]*types.Transaction, 0, len(keys))
	for _, key := range keys {
		txs = append(txs, p.txs[key])
	}
	p.mtx.RUnlock()
	return txs
}

// Prune drops transactions whose deadline passed and returns how many were
// dropped.
func (p *TransactionPool) Prune() int {
	now := p.now()

	p.mtx.Lock()
	defer p.mtx.Unlock()

	pruned := 0
	for key, tx := range p.txs {
		if tx.Deadline.Before(now) {
			delete(p.txs, key)
			pruned++
		}
	}
	return pruned
}
