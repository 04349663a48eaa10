package chainsync

import (
	"context"
	"time"

	"github.com/NemProject/nem-sub016/types"
)

// Candidate is a remote chain segment proposed to replace the local blocks
// after CommonHeight.
type Candidate struct {
	CommonHeight int64
	// Hash of the local block at CommonHeight.
	ParentHash types.Hash
	Blocks     []*types.Block
}

// Validator decides whether a candidate may be applied.
type Validator interface {
	Validate(ctx context.Context, candidate *Candidate) types.ValidationResult
}

// DefaultMaxFutureTime is how far a block timestamp may be ahead of the
// network time.
const DefaultMaxFutureTime = 10 * time.Second

// StructuralValidator checks that a candidate links to the local chain,
// that heights are contiguous, that every block references its predecessor
// and that timestamps neither go back nor lie too far in the future. It does
// not check block contents.
type StructuralValidator struct {
	now           func() time.Time
	maxFutureTime time.Duration
}

var _ Validator = (*StructuralValidator)(nil)

// NewStructuralValidator creates a validator using now as the network time.
func NewStructuralValidator(now func() time.Time, maxFutureTime time.Duration) *StructuralValidator {
	return &StructuralValidator{now: now, maxFutureTime: maxFutureTime}
}

func (v *StructuralValidator) Validate(_ context.Context, candidate *Candidate) types.ValidationResult {
	if len(candidate.Blocks) == 0 {
		return types.ValidationNeutral
	}

	limit := v.now().Add(v.maxFutureTime)
	parentHash := candidate.ParentHash
	var parentTime time.Time
	for i, block := range candidate.Blocks {
		if block.Height != candidate.CommonHeight+int64(i)+1 {
			return types.ValidationFailureChainInvalid
		}
		if !block.PrevHash.Equal(parentHash) {
			return types.ValidationFailureChainInvalid
		}
		if block.Timestamp.After(limit) {
			return types.ValidationFailureTimestampTooFarInFuture
		}
		if i > 0 && block.Timestamp.Before(parentTime) {
			return types.ValidationFailureChainInvalid
		}

		parentHash = block.Hash()
		parentTime = block.Timestamp
	}
	return types.ValidationSuccess
}
